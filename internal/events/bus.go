package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Bus distributes telemetry events to subscribers with filtering support.
//
// Thread safety: all methods are safe for concurrent use. Publish never
// blocks on slow subscribers; if a subscriber's buffer is full the event is
// dropped for that subscriber and the others are unaffected.
type Bus interface {
	// Publish sends an event to all matching subscribers.
	// Returns an error only if the bus is closed.
	Publish(ctx context.Context, event Event) error

	// Subscribe creates a subscription with optional filtering.
	// Returns a channel for receiving events and a cleanup function that
	// must be called to prevent resource leaks.
	Subscribe(ctx context.Context, filter Filter, bufferSize int) (<-chan Event, func())

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// DefaultBus implements Bus with buffered channels and non-blocking sends.
type DefaultBus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscription
	bufferSize  int
	closed      bool
}

type subscription struct {
	id       string
	ch       chan Event
	filter   Filter
	ctx      context.Context
	cancel   context.CancelFunc
	received atomic.Int64
	dropped  atomic.Int64
}

// NewBus creates a new DefaultBus. bufferSize <= 0 selects the default of 100.
func NewBus(bufferSize int) *DefaultBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &DefaultBus{
		subscribers: make(map[string]*subscription),
		bufferSize:  bufferSize,
	}
}

// Publish sends an event to all matching subscribers.
// Events without a timestamp are stamped at publish time.
func (b *DefaultBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, sub := range b.subscribers {
		select {
		case <-sub.ctx.Done():
			// Subscriber disconnected, cleaned up on unsubscribe.
			continue
		default:
		}

		if !sub.filter.Matches(event) {
			continue
		}

		select {
		case sub.ch <- event:
			sub.received.Add(1)
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Channel full, drop for this slow subscriber.
			sub.dropped.Add(1)
		}
	}

	return nil
}

// Subscribe creates a new subscription with optional filtering.
func (b *DefaultBus) Subscribe(ctx context.Context, filter Filter, bufferSize int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if bufferSize <= 0 {
		bufferSize = b.bufferSize
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		id:     generateSubscriberID(),
		ch:     make(chan Event, bufferSize),
		filter: filter,
		ctx:    subCtx,
		cancel: cancel,
	}

	b.subscribers[sub.id] = sub

	cleanup := func() {
		b.unsubscribe(sub.id)
	}

	return sub.ch, cleanup
}

func (b *DefaultBus) unsubscribe(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, exists := b.subscribers[subscriberID]
	if !exists {
		return
	}

	sub.cancel()
	close(sub.ch)
	delete(b.subscribers, subscriberID)
}

// Close shuts down the bus and closes all subscriber channels.
// Close is idempotent; multiple calls are safe.
func (b *DefaultBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for id, sub := range b.subscribers {
		sub.cancel()
		close(sub.ch)
		delete(b.subscribers, id)
	}

	return nil
}

// SubscriberCount returns the current number of active subscribers.
func (b *DefaultBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

var subscriberCounter atomic.Uint64

func generateSubscriberID() string {
	return fmt.Sprintf("sub-%d-%d", time.Now().UnixNano(), subscriberCounter.Add(1))
}

// Ensure DefaultBus implements Bus at compile time.
var _ Bus = (*DefaultBus)(nil)
