package gpubroker

import (
	"errors"
	"sync"

	"github.com/gogpu/gpubroker/backend"
	"github.com/gogpu/gpubroker/compositor"
	"github.com/gogpu/gpubroker/id"
	"github.com/gogpu/gpubroker/swapchain"
)

// Broker errors.
var (
	// ErrBrokerClosed is returned by Send after the broker has exited.
	ErrBrokerClosed = errors.New("gpubroker: broker closed")

	// ErrNilBackend is returned by New when no backend is given.
	ErrNilBackend = errors.New("gpubroker: nil backend")

	// ErrNilBridge is returned by New when no compositor bridge is given.
	ErrNilBridge = errors.New("gpubroker: nil compositor bridge")
)

// mailbox is an unbounded multi-producer single-consumer queue.
// Producers never block: push appends under the lock and signals the
// consumer. Channels are bounded, so the queue is a locked slice with a
// condition variable instead.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Request
	closed bool
}

func newMailbox(capacity int) *mailbox {
	m := &mailbox{}
	if capacity > 0 {
		m.queue = make([]Request, 0, capacity)
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) push(req Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrBrokerClosed
	}
	m.queue = append(m.queue, req)
	m.cond.Signal()
	return nil
}

// pop blocks until a request is available or the mailbox closes.
// A closed mailbox still drains: pending requests are returned before
// ok turns false.
func (m *mailbox) pop() (req Request, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.queue) == 0 {
		return nil, false
	}
	req = m.queue[0]
	m.queue = m.queue[1:]
	return req, true
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.queue = nil
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Broker is a producer-side handle on the GPU broker. Handles are
// cheap: every handle returned by New or carried in an AdapterResponse
// is bound to the same mailbox and the same actor goroutine.
//
// Broker is safe for concurrent use.
type Broker struct {
	mbox  *mailbox
	table *swapchain.Table
	book  *bookkeeping
}

// Option configures New.
type Option func(*config)

type config struct {
	table       *swapchain.Table
	registry    *compositor.ExternalImageRegistry
	mailboxCap  int
	upstreamCap int
}

// WithTable uses an existing presentation table instead of a fresh one.
// Embedders share the table with the compositor's external image
// provider.
func WithTable(table *swapchain.Table) Option {
	return func(c *config) { c.table = table }
}

// WithRegistry uses an existing external image registry instead of a
// fresh one.
func WithRegistry(registry *compositor.ExternalImageRegistry) Option {
	return func(c *config) { c.registry = registry }
}

// WithMailboxCapacity pre-sizes the mailbox. The mailbox stays
// unbounded; the capacity only avoids early growth.
func WithMailboxCapacity(n int) Option {
	return func(c *config) { c.mailboxCap = n }
}

// New starts a broker draining requests against the given backend and
// publishing presentation to the given bridge. The backend must already
// be initialized (see backend.InitDefault).
//
// The returned channel carries upstream messages; the embedder should
// drain it. The broker goroutine runs until an Exit request is
// processed.
func New(be backend.Backend, bridge compositor.Bridge, opts ...Option) (*Broker, <-chan Msg, error) {
	if be == nil {
		return nil, nil, ErrNilBackend
	}
	if bridge == nil {
		return nil, nil, ErrNilBridge
	}

	cfg := config{upstreamCap: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.table == nil {
		cfg.table = swapchain.NewTable()
	}
	if cfg.registry == nil {
		cfg.registry = compositor.NewExternalImageRegistry()
	}

	mbox := newMailbox(cfg.mailboxCap)
	msgs := make(chan Msg, cfg.upstreamCap)
	book := &bookkeeping{}

	a := &actor{
		mbox:     mbox,
		msgs:     msgs,
		backend:  be,
		bridge:   bridge,
		table:    cfg.table,
		registry: cfg.registry,
		book:     book,
	}
	go a.run()

	return &Broker{mbox: mbox, table: cfg.table, book: book}, msgs, nil
}

// Send enqueues a request. It never blocks on the actor; the mailbox is
// unbounded. After Exit has been processed, Send returns
// ErrBrokerClosed.
func (b *Broker) Send(req Request) error {
	return b.mbox.push(req)
}

// Exit enqueues broker termination. Pending requests ahead of it are
// still processed; ack receives exactly one value once the backend is
// closed. Pass a buffered channel or drain it.
func (b *Broker) Exit(ack chan<- struct{}) error {
	return b.mbox.push(&Exit{Ack: ack})
}

// Table returns the presentation table the broker publishes into, for
// wiring the compositor's external image provider. Handles carried in
// AdapterResponse share it too.
func (b *Broker) Table() *swapchain.Table {
	return b.table
}

// Adapters returns a snapshot of the adapter ids granted so far.
// Diagnostic only; the list never shrinks.
func (b *Broker) Adapters() []id.AdapterID {
	b.book.mu.Lock()
	defer b.book.mu.Unlock()
	return append([]id.AdapterID(nil), b.book.adapters...)
}

// Devices returns a snapshot of the device ids opened so far.
// Diagnostic only; the list never shrinks.
func (b *Broker) Devices() []id.DeviceID {
	b.book.mu.Lock()
	defer b.book.mu.Unlock()
	return append([]id.DeviceID(nil), b.book.devices...)
}
