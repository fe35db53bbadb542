package unifeed

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Collection names a persisted collection in a change notification.
type Collection string

const (
	CollectionPosts     Collection = "posts"
	CollectionTags      Collection = "tags"
	CollectionFollow    Collection = "follow"
	CollectionWatermark Collection = "watermark"

	// CollectionAny is reported by transports that can detect that
	// something changed but not what. Subscribers re-derive from full
	// persisted state either way.
	CollectionAny Collection = "any"
)

// Handler receives change notifications published by other contexts.
type Handler func(Collection)

// Bus propagates "collection changed" notices to every other open context
// of the same medium. Delivery is best-effort, unordered and at-most-once;
// the publishing context never receives its own notice and must re-render
// itself after a local write.
type Bus interface {
	Publish(collection Collection)
	Subscribe(handler Handler) (cancel func())
	Close() error
}

// BroadcastHub is the in-process analog of a same-origin broadcast channel.
// One hub stands in for the origin; each context connects once and keeps
// the returned Bus for its lifetime.
type BroadcastHub struct {
	mu      sync.Mutex
	name    string
	clients map[*hubBus]struct{}
}

func NewBroadcastHub(name string) *BroadcastHub {
	return &BroadcastHub{
		name:    name,
		clients: make(map[*hubBus]struct{}),
	}
}

// Name returns the channel name the hub was created with.
func (h *BroadcastHub) Name() string {
	return h.name
}

// Connect attaches a new context to the hub.
func (h *BroadcastHub) Connect() Bus {
	h.mu.Lock()
	defer h.mu.Unlock()

	client := &hubBus{hub: h, handlers: make(map[int]Handler)}
	h.clients[client] = struct{}{}
	return client
}

func (h *BroadcastHub) broadcast(from *hubBus, collection Collection) {
	h.mu.Lock()
	targets := make([]*hubBus, 0, len(h.clients))
	for client := range h.clients {
		if client != from {
			targets = append(targets, client)
		}
	}
	h.mu.Unlock()

	for _, client := range targets {
		client.deliver(collection)
	}
}

func (h *BroadcastHub) disconnect(client *hubBus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

type hubBus struct {
	hub      *BroadcastHub
	mu       sync.Mutex
	handlers map[int]Handler
	nextID   int
	closed   bool
}

func (b *hubBus) Publish(collection Collection) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	b.hub.broadcast(b, collection)
}

func (b *hubBus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

func (b *hubBus) deliver(collection Collection) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, handler := range b.handlers {
		handlers = append(handlers, handler)
	}
	b.mu.Unlock()

	// Asynchronous like a posted message: the publisher never blocks on a
	// slow subscriber.
	for _, handler := range handlers {
		go handler(collection)
	}
}

func (b *hubBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.handlers = make(map[int]Handler)
	b.mu.Unlock()

	b.hub.disconnect(b)
	return nil
}

// MarkerBus is the fallback transport for environments without a broadcast
// hub. It watches the shared last-modified marker key and fires when some
// other context touches it. Changes this context announced itself are
// suppressed, mirroring the broadcast guarantee that a writer does not hear
// its own event.
type MarkerBus struct {
	kv       KeyValue
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	handlers map[int]Handler
	nextID   int
	lastSeen []byte
	stop     chan struct{}
	running  bool
}

func NewMarkerBus(kv KeyValue, interval time.Duration, logger *slog.Logger) *MarkerBus {
	if interval <= 0 {
		interval = time.Second
	}
	bus := &MarkerBus{
		kv:       kv,
		interval: interval,
		logger:   logger,
		handlers: make(map[int]Handler),
	}
	bus.lastSeen = bus.readMarker()
	return bus
}

// Publish records the marker value this context just wrote so the watcher
// does not report the context's own change back to it. The marker itself is
// written by the Store alongside every successful write.
func (m *MarkerBus) Publish(_ Collection) {
	marker := m.readMarker()
	m.mu.Lock()
	m.lastSeen = marker
	m.mu.Unlock()
}

func (m *MarkerBus) Subscribe(handler Handler) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = handler
	if !m.running {
		m.running = true
		m.stop = make(chan struct{})
		go m.watch(m.stop)
	}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, id)
	}
}

func (m *MarkerBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		close(m.stop)
		m.running = false
	}
	m.handlers = make(map[int]Handler)
	return nil
}

func (m *MarkerBus) watch(stop chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *MarkerBus) poll() {
	marker := m.readMarker()

	m.mu.Lock()
	changed := !bytes.Equal(marker, m.lastSeen)
	if changed {
		m.lastSeen = marker
	}
	handlers := make([]Handler, 0, len(m.handlers))
	for _, handler := range m.handlers {
		handlers = append(handlers, handler)
	}
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, handler := range handlers {
		go handler(CollectionAny)
	}
}

func (m *MarkerBus) readMarker() []byte {
	value, err := m.kv.Get(KeyLastModified)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) && m.logger != nil {
			m.logger.Warn("failed to read last-modified marker", slog.String("error", err.Error()))
		}
		return nil
	}
	return value
}

// NopBus is used when both transports are unavailable. Cross-context sync
// degrades to stale-until-refresh; publishing never fails.
type NopBus struct{}

func (NopBus) Publish(Collection) {}

func (NopBus) Subscribe(Handler) func() { return func() {} }

func (NopBus) Close() error { return nil }

// PreferredBus picks the best available transport: the broadcast hub when
// one exists, the marker watcher when only shared storage does, and a no-op
// bus otherwise.
func PreferredBus(hub *BroadcastHub, kv KeyValue, interval time.Duration, logger *slog.Logger) Bus {
	if hub != nil {
		return hub.Connect()
	}
	if kv != nil {
		return NewMarkerBus(kv, interval, logger)
	}
	if logger != nil {
		logger.Warn("no sync transport available, cross-context updates disabled")
	}
	return NopBus{}
}
