// Package events provides a publish/subscribe bus for data-layer events.
// The cache publishes invalidations and mutation outcomes here; UI-facing
// collaborators (notifications, navigation, metrics) subscribe.
package events

import (
	"context"
	"strings"
	"sync"

	"github.com/artpar/rentdesk/domain/tag"
	"github.com/rs/zerolog"
)

// Event names published by the data layer.
const (
	MutationSucceeded = "mutation.succeeded"
	MutationFailed    = "mutation.failed"
	CacheInvalidated  = "cache.invalidated"
	CacheRefetched    = "cache.refetched"
	CacheEvicted      = "cache.evicted"
	SessionChanged    = "session.changed"
)

// Event represents a published event.
type Event struct {
	// Name is the event name (e.g., "mutation.succeeded", "cache.invalidated").
	Name string

	// Endpoint is the registry name of the query or mutation involved.
	Endpoint string

	// Key is the cache key involved, if any.
	Key string

	// Tags are the tags provided or invalidated.
	Tags tag.Set

	// Err is set for failure events.
	Err error

	// Meta contains additional metadata.
	Meta map[string]any
}

// Handler is a function that processes an event.
type Handler func(ctx context.Context, event Event) error

// Bus is a simple publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event.
// Supports wildcard subscriptions:
//   - "mutation.failed" - exact match
//   - "cache.*" - all cache events
//   - "*" - all events
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Publish emits an event to all matching handlers.
// Handlers are called synchronously in registration order.
// Handler errors are logged and do not stop delivery.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if b == nil {
		return
	}

	matched := b.match(event.Name)

	b.logger.Debug().
		Str("event", event.Name).
		Str("endpoint", event.Endpoint).
		Str("tags", event.Tags.String()).
		Int("handlers", len(matched)).
		Msg("event emitted")

	for _, handler := range matched {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// HasSubscribers checks if any handlers are registered for an event.
func (b *Bus) HasSubscribers(event string) bool {
	return len(b.match(event)) > 0
}

// match collects handlers under the read lock so handlers may subscribe
// further handlers without deadlocking.
func (b *Bus) match(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []Handler
	matched = append(matched, b.handlers[name]...)
	if prefix, _, ok := strings.Cut(name, "."); ok {
		matched = append(matched, b.handlers[prefix+".*"]...)
	}
	matched = append(matched, b.handlers["*"]...)
	return matched
}
