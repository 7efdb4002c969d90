// Package notify carries ledger events to real-time delivery.
//
// The ledger publishes through the Publisher port it is constructed with;
// nothing in this package is process-global.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event describes a committed ledger mutation.
type Event struct {
	Type    string
	ActorID string
	GroupID string

	// Recipients are the users the event concerns.
	Recipients []string

	// Subject is the id of the mutated expense or settlement.
	Subject string
	Message string
	At      time.Time
}

// Publisher delivers events. Implementations must not block for long.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Handler receives events from a Bus.
type Handler func(ctx context.Context, event Event)

// Bus fans events out to subscribed handlers, in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	order    []int
	next     int
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.handlers[id] = h
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers event to every current subscriber.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, event)
	}
	return nil
}

// LogHandler returns a Handler that logs every event with logger.
func LogHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, event Event) {
		logger.InfoContext(ctx, "Ledger event",
			"type", event.Type,
			"actor_id", event.ActorID,
			"group_id", event.GroupID,
			"subject", event.Subject,
			"recipients", event.Recipients,
			"message", event.Message,
		)
	}
}
