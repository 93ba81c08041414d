// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package compositor defines the one-way bridge between the GPU broker
// and a compositor's image system.
//
// The broker never renders on behalf of the compositor; it only tells
// the compositor which images exist, when their pixels changed, and
// when they are gone. All communication flows outward through
// [Bridge.SendTransaction] — the compositor reads pixel bytes back
// through its own external image provider, not through this package.
package compositor

// OpKind tags a transaction operation.
type OpKind uint8

// Transaction operation kinds.
const (
	OpAddImage OpKind = iota + 1
	OpUpdateImage
	OpDeleteImage
)

// String returns the operation kind's name.
func (k OpKind) String() string {
	switch k {
	case OpAddImage:
		return "AddImage"
	case OpUpdateImage:
		return "UpdateImage"
	case OpDeleteImage:
		return "DeleteImage"
	default:
		return "Unknown"
	}
}

// Op is a single image operation within a transaction.
type Op struct {
	Kind       OpKind
	Key        ImageKey
	Descriptor ImageDescriptor
	Data       ImageData
	Dirty      DirtyRect
}

// Transaction batches image operations for atomic application by the
// compositor. Build one with NewTransaction, append operations, then
// hand it to [Bridge.SendTransaction]. A transaction must not be reused
// after sending.
type Transaction struct {
	ops []Op
}

// NewTransaction returns an empty transaction.
func NewTransaction() *Transaction {
	return &Transaction{}
}

// AddImage registers a new image under key.
func (t *Transaction) AddImage(key ImageKey, desc ImageDescriptor, data ImageData) {
	t.ops = append(t.ops, Op{Kind: OpAddImage, Key: key, Descriptor: desc, Data: data})
}

// UpdateImage replaces the pixels of an existing image. The dirty
// region tells the compositor how much of its cached copy to invalidate.
func (t *Transaction) UpdateImage(key ImageKey, desc ImageDescriptor, data ImageData, dirty DirtyRect) {
	t.ops = append(t.ops, Op{Kind: OpUpdateImage, Key: key, Descriptor: desc, Data: data, Dirty: dirty})
}

// DeleteImage unregisters an image.
func (t *Transaction) DeleteImage(key ImageKey) {
	t.ops = append(t.ops, Op{Kind: OpDeleteImage, Key: key})
}

// Ops returns the operations recorded so far, in order.
func (t *Transaction) Ops() []Op { return t.ops }

// Empty reports whether the transaction carries no operations.
func (t *Transaction) Empty() bool { return len(t.ops) == 0 }

// Bridge is the broker's outbound interface to the compositor. All
// methods are one-way: the compositor applies transactions
// asynchronously and never responds through this interface.
//
// Implementations must be safe for concurrent use; the broker calls
// from its actor goroutine while embedders may mint keys from others.
type Bridge interface {
	// GenerateImageKey mints a fresh key for a not-yet-added image.
	GenerateImageKey() ImageKey

	// SendTransaction hands a batch of image operations to the
	// compositor. The call must not block on the compositor's
	// application of the batch.
	SendTransaction(txn *Transaction)
}
