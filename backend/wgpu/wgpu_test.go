// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gpubroker/backend"
	"github.com/gogpu/gputypes"
)

func TestName(t *testing.T) {
	w := New()
	if w.Name() != backend.BackendWGPU {
		t.Errorf("Name() = %q, want %q", w.Name(), backend.BackendWGPU)
	}
}

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.BackendWGPU) {
		t.Error("wgpu backend not registered")
	}
}

func TestNotInitialized(t *testing.T) {
	w := New()
	if _, err := w.RequestAdapter(1, gputypes.RequestAdapterOptions{}); !errors.Is(err, backend.ErrNotInitialized) {
		t.Errorf("RequestAdapter before Init: err = %v, want ErrNotInitialized", err)
	}
	// Close before Init is a no-op.
	w.Close()
}

func TestCompileToSPIRV(t *testing.T) {
	const src = `@compute @workgroup_size(1) fn main() {}`
	words, err := compileToSPIRV(src)
	if err != nil {
		t.Fatalf("compileToSPIRV() error = %v", err)
	}
	if len(words) == 0 {
		t.Fatal("compileToSPIRV() returned no code")
	}
	const spirvMagic = 0x07230203
	if words[0] != spirvMagic {
		t.Errorf("first word = %#x, want SPIR-V magic %#x", words[0], spirvMagic)
	}
}

func TestCompileToSPIRVInvalid(t *testing.T) {
	if _, err := compileToSPIRV("this is not wgsl"); err == nil {
		t.Error("compileToSPIRV accepted invalid source")
	}
}

func TestHardwareRoundTrip(t *testing.T) {
	w := New()
	if err := w.Init(); err != nil {
		t.Skipf("no GPU available: %v", err)
	}
	defer w.Close()

	info, err := w.RequestAdapter(1, gputypes.RequestAdapterOptions{})
	if err != nil {
		t.Skipf("no adapter available: %v", err)
	}
	if info.Name == "" {
		t.Error("adapter info has empty name")
	}

	if err := w.RequestDevice(1, 1, backend.DeviceDescriptor{Label: "wgpu-test"}); err != nil {
		t.Fatalf("RequestDevice() error = %v", err)
	}
	if err := w.CreateBuffer(1, 1, backend.BufferDescriptor{
		Label: "wgpu-test",
		Size:  256,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	}); err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	if err := w.DestroyBuffer(1); err != nil {
		t.Errorf("DestroyBuffer() error = %v", err)
	}
}
