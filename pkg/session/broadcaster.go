package session

import (
	"log/slog"
	"sync"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/pkg/domain"
)

// DefaultSubscriberBuffer is the channel capacity handed to each subscriber.
const DefaultSubscriberBuffer = 16

// Broadcaster fans session snapshots out to rendering subscribers.
// Broadcast never blocks: when a subscriber's buffer is full the oldest pending
// snapshot is discarded, so a slow subscriber always ends up with the latest one.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan domain.Snapshot]struct{}
	closed      bool
	logger      *slog.Logger
}

// NewBroadcaster creates an empty Broadcaster. A nil logger discards diagnostics.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Broadcaster{
		subscribers: make(map[chan domain.Snapshot]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a subscriber with the given buffer size.
// The returned cancel function unregisters it and closes the channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan domain.Snapshot, func()) {
	return b.subscribe(buffer, nil)
}

// SubscribeFrom is Subscribe with initial already queued on the channel.
func (b *Broadcaster) SubscribeFrom(buffer int, initial domain.Snapshot) (<-chan domain.Snapshot, func()) {
	return b.subscribe(buffer, &initial)
}

func (b *Broadcaster) subscribe(buffer int, initial *domain.Snapshot) (<-chan domain.Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan domain.Snapshot, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subscribers[ch] = struct{}{}
	if initial != nil {
		ch <- *initial
	}

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
	}
}

// Broadcast delivers snap to every subscriber without blocking.
func (b *Broadcaster) Broadcast(snap domain.Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		b.deliver(ch, snap)
	}
}

// Len returns the number of active subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close unregisters and closes every subscriber. Later subscriptions receive a closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subscribers {
		close(ch)
	}
	clear(b.subscribers)
}

// deliver sends on ch, making room by dropping the oldest snapshot if needed.
func (b *Broadcaster) deliver(ch chan domain.Snapshot, snap domain.Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}

	select {
	case stale := <-ch:
		b.logger.Warn("Subscriber buffer full, dropping stale snapshot",
			"session_id", snap.SessionID,
			"dropped_version", stale.Version,
		)
	default:
	}

	select {
	case ch <- snap:
	default:
		b.logger.Warn("Subscriber buffer full, dropping snapshot", "session_id", snap.SessionID, "version", snap.Version)
	}
}
