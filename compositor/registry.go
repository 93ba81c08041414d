// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"sync"
	"sync/atomic"
)

// ExternalImageRegistry mints external image ids. It is shared between
// the broker (which mints an id per GPU context) and the compositor's
// image provider (which resolves the ids at composition time).
//
// ExternalImageRegistry is safe for concurrent use.
type ExternalImageRegistry struct {
	next atomic.Uint64
}

// NewExternalImageRegistry returns a registry whose ids start at 1
// (0 is reserved as "no external image").
func NewExternalImageRegistry() *ExternalImageRegistry {
	r := &ExternalImageRegistry{}
	r.next.Store(1)
	return r
}

// NextID mints a fresh external image id.
func (r *ExternalImageRegistry) NextID() ExternalImageID {
	return ExternalImageID(r.next.Add(1) - 1)
}

// RecordingBridge is a Bridge that accumulates transactions in memory.
// It serves headless embedders and tests that want to observe what the
// broker would have told a real compositor.
type RecordingBridge struct {
	mu      sync.Mutex
	nextKey uint64
	txns    []*Transaction
}

// NewRecordingBridge returns an empty recording bridge.
func NewRecordingBridge() *RecordingBridge {
	return &RecordingBridge{nextKey: 1}
}

// GenerateImageKey mints a fresh image key.
func (b *RecordingBridge) GenerateImageKey() ImageKey {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := ImageKey(b.nextKey)
	b.nextKey++
	return key
}

// SendTransaction records the transaction.
func (b *RecordingBridge) SendTransaction(txn *Transaction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txns = append(b.txns, txn)
}

// Transactions returns a snapshot of the transactions recorded so far.
func (b *RecordingBridge) Transactions() []*Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Transaction, len(b.txns))
	copy(out, b.txns)
	return out
}

// OpsOfKind returns every recorded operation of the given kind, across
// all transactions, in order.
func (b *RecordingBridge) OpsOfKind(kind OpKind) []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Op
	for _, txn := range b.txns {
		for _, op := range txn.Ops() {
			if op.Kind == kind {
				out = append(out, op)
			}
		}
	}
	return out
}
