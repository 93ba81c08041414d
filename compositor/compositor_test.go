// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"sync"
	"testing"
)

func TestTransactionOpsInOrder(t *testing.T) {
	txn := NewTransaction()
	if !txn.Empty() {
		t.Error("new transaction should be empty")
	}

	desc := ImageDescriptor{Format: ImageFormatBGRA8, Width: 4, Height: 2, Stride: 256}
	data := ImageData{ExternalID: 7}

	txn.AddImage(1, desc, data)
	txn.UpdateImage(1, desc, data, WholeImage())
	txn.DeleteImage(1)

	ops := txn.Ops()
	if len(ops) != 3 {
		t.Fatalf("got %d ops, want 3", len(ops))
	}
	wantKinds := []OpKind{OpAddImage, OpUpdateImage, OpDeleteImage}
	for i, op := range ops {
		if op.Kind != wantKinds[i] {
			t.Errorf("op %d kind = %v, want %v", i, op.Kind, wantKinds[i])
		}
		if op.Key != 1 {
			t.Errorf("op %d key = %d, want 1", i, op.Key)
		}
	}
	if !ops[1].Dirty.All {
		t.Error("update op should carry a whole-image dirty rect")
	}
}

func TestOpKindString(t *testing.T) {
	cases := []struct {
		kind OpKind
		want string
	}{
		{OpAddImage, "AddImage"},
		{OpUpdateImage, "UpdateImage"},
		{OpDeleteImage, "DeleteImage"},
		{OpKind(99), "Unknown"},
	}
	for _, c := range cases {
		if got := c.kind.String(); got != c.want {
			t.Errorf("OpKind(%d).String() = %q, want %q", c.kind, got, c.want)
		}
	}
}

func TestImageFormatBytesPerPixel(t *testing.T) {
	if got := ImageFormatBGRA8.BytesPerPixel(); got != 4 {
		t.Errorf("BGRA8 BytesPerPixel() = %d, want 4", got)
	}
	if got := ImageFormatRGBA8.BytesPerPixel(); got != 4 {
		t.Errorf("RGBA8 BytesPerPixel() = %d, want 4", got)
	}
	if got := ImageFormat(0).BytesPerPixel(); got != 0 {
		t.Errorf("zero format BytesPerPixel() = %d, want 0", got)
	}
}

func TestImageDataExternal(t *testing.T) {
	if (ImageData{}).External() {
		t.Error("zero ImageData should not be external")
	}
	if !(ImageData{ExternalID: 3}).External() {
		t.Error("ImageData with ExternalID should be external")
	}
}

func TestExternalImageRegistryUnique(t *testing.T) {
	r := NewExternalImageRegistry()
	first := r.NextID()
	if first == 0 {
		t.Fatal("NextID() returned 0, which is reserved")
	}
	seen := map[ExternalImageID]bool{first: true}
	for range 100 {
		v := r.NextID()
		if seen[v] {
			t.Fatalf("NextID() returned %d twice", v)
		}
		seen[v] = true
	}
}

func TestExternalImageRegistryConcurrent(t *testing.T) {
	const goroutines = 8
	const perG = 500

	r := NewExternalImageRegistry()
	results := make([][]ExternalImageID, goroutines)
	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]ExternalImageID, 0, perG)
			for range perG {
				ids = append(ids, r.NextID())
			}
			results[g] = ids
		}()
	}
	wg.Wait()

	seen := make(map[ExternalImageID]bool)
	for _, ids := range results {
		for _, v := range ids {
			if seen[v] {
				t.Fatalf("id %d minted twice", v)
			}
			seen[v] = true
		}
	}
}

func TestRecordingBridge(t *testing.T) {
	b := NewRecordingBridge()

	k1 := b.GenerateImageKey()
	k2 := b.GenerateImageKey()
	if k1 == InvalidImageKey || k2 == InvalidImageKey {
		t.Fatal("GenerateImageKey() returned the invalid key")
	}
	if k1 == k2 {
		t.Fatalf("GenerateImageKey() returned %d twice", k1)
	}

	txn := NewTransaction()
	txn.AddImage(k1, ImageDescriptor{Width: 1, Height: 1}, ImageData{ExternalID: 1})
	b.SendTransaction(txn)

	txn2 := NewTransaction()
	txn2.UpdateImage(k1, ImageDescriptor{Width: 1, Height: 1}, ImageData{ExternalID: 1}, WholeImage())
	b.SendTransaction(txn2)

	if got := len(b.Transactions()); got != 2 {
		t.Fatalf("got %d transactions, want 2", got)
	}
	if got := len(b.OpsOfKind(OpAddImage)); got != 1 {
		t.Errorf("got %d add ops, want 1", got)
	}
	if got := len(b.OpsOfKind(OpUpdateImage)); got != 1 {
		t.Errorf("got %d update ops, want 1", got)
	}
	if got := len(b.OpsOfKind(OpDeleteImage)); got != 0 {
		t.Errorf("got %d delete ops, want 0", got)
	}
}
