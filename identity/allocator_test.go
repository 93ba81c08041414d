package identity

import (
	"sync"
	"testing"

	"github.com/gogpu/gpubroker/id"
)

func TestAllocateStartsAtOne(t *testing.T) {
	a := NewAllocator()
	for k := id.Kind(0); int(k) < id.NumKinds; k++ {
		if got := a.Allocate(k); got != 1 {
			t.Errorf("first Allocate(%v) = %d, want 1", k, got)
		}
	}
}

func TestAllocateMonotonic(t *testing.T) {
	a := NewAllocator()
	prev := uint64(0)
	for i := 0; i < 100; i++ {
		got := a.Allocate(id.KindBuffer)
		if got <= prev {
			t.Fatalf("Allocate returned %d after %d, want strictly increasing", got, prev)
		}
		prev = got
	}
}

func TestAllocateKindsIndependent(t *testing.T) {
	a := NewAllocator()
	bufID := a.Allocate(id.KindBuffer)
	texID := a.Allocate(id.KindTexture)
	if bufID != 1 || texID != 1 {
		t.Errorf("got buffer=%d texture=%d, want both 1: kinds share a counter", bufID, texID)
	}
}

func TestTypedHelpers(t *testing.T) {
	a := NewAllocator()
	if got := a.AdapterID(); got != 1 {
		t.Errorf("AdapterID() = %d, want 1", got)
	}
	if got := a.DeviceID(); got != 1 {
		t.Errorf("DeviceID() = %d, want 1", got)
	}
	if got := a.BufferID(); got != 1 {
		t.Errorf("BufferID() = %d, want 1", got)
	}
	if got := a.CommandEncoderID(); got != 1 {
		t.Errorf("CommandEncoderID() = %d, want 1", got)
	}
	if got := a.BufferID(); got != 2 {
		t.Errorf("second BufferID() = %d, want 2", got)
	}
}

func TestAllocateConcurrentUnique(t *testing.T) {
	const (
		goroutines = 8
		perG       = 1000
	)
	a := NewAllocator()

	results := make([][]uint64, goroutines)
	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]uint64, 0, perG)
			for range perG {
				ids = append(ids, a.Allocate(id.KindTexture))
			}
			results[g] = ids
		}()
	}
	wg.Wait()

	seen := make(map[uint64]bool, goroutines*perG)
	for _, ids := range results {
		for _, v := range ids {
			if v == id.InvalidID {
				t.Fatal("Allocate returned the invalid id")
			}
			if seen[v] {
				t.Fatalf("id %d allocated twice", v)
			}
			seen[v] = true
		}
	}
	if len(seen) != goroutines*perG {
		t.Errorf("got %d unique ids, want %d", len(seen), goroutines*perG)
	}
}
