// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu provides the hardware GPU backend built on the gogpu/wgpu
// HAL layer. It translates the broker's identifier-keyed operations into
// HAL calls: adapters and devices are opened through a Vulkan instance,
// WGSL shaders are compiled to SPIR-V with naga, and buffer mappings are
// emulated with a fence wait followed by a queue readback.
//
// The broker serializes every call, so the backend keeps its resource
// tables in plain maps without locking.
//
// Build with the nogpu tag to compile the package out on hosts without
// Vulkan support; the registry then falls back to the memory backend.
package wgpu
