// Package gpubroker serializes GPU work from many producers onto a
// single backend-owning goroutine.
//
// # Overview
//
// gpubroker is the coordination layer between content processes that
// want GPU resources and the backend that owns them. Producers send
// typed requests into an unbounded mailbox; a single broker goroutine
// drains it and executes each request against the backend in arrival
// order. Because the backend is touched by exactly one goroutine, no
// GPU resource needs locking.
//
// On top of the request plumbing the broker runs a swapchain
// presentation pipeline: rendered frames are copied into CPU-visible
// staging buffers and published to a compositor through external image
// keys, so a display process can read pixels without touching GPU
// state.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/gpubroker"
//		"github.com/gogpu/gpubroker/backend"
//	)
//
//	be := backend.MustDefault()
//	broker, msgs, err := gpubroker.New(be, bridge)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Request an adapter.
//	ids := identity.NewAllocator()
//	reply := make(chan gpubroker.ResponseResult, 1)
//	broker.Send(&gpubroker.RequestAdapter{Reply: reply, AdapterID: ids.AdapterID()})
//
//	// Shut down: the ack fires after the backend is closed.
//	ack := make(chan struct{})
//	broker.Exit(ack)
//	<-ack
//
// # Architecture
//
// The module is organized into:
//   - Public API: Broker, Request variants, Response variants
//   - id, identity: typed resource identifiers and their allocator
//   - backend: the Backend interface, the in-memory backend, and the
//     wgpu hardware backend
//   - swapchain: presentation table, staging layout, external image
//     provider
//   - compositor: image keys, transactions, and the display bridge
package gpubroker
