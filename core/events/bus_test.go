package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/artpar/rentdesk/domain/tag"
	"github.com/rs/zerolog"
)

func TestBus_ExactAndWildcard(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var mu sync.Mutex
	var got []string
	record := func(label string) Handler {
		return func(ctx context.Context, e Event) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, label+":"+e.Name)
			return nil
		}
	}

	bus.Subscribe(CacheInvalidated, record("exact"))
	bus.Subscribe("cache.*", record("prefix"))
	bus.Subscribe("*", record("all"))

	bus.Publish(context.Background(), Event{Name: CacheInvalidated, Tags: tag.Set{tag.List(tag.Review)}})
	bus.Publish(context.Background(), Event{Name: MutationSucceeded})

	want := []string{
		"exact:cache.invalidated",
		"prefix:cache.invalidated",
		"all:cache.invalidated",
		"all:mutation.succeeded",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	calls := 0

	bus.Subscribe(MutationFailed, func(ctx context.Context, e Event) error {
		calls++
		return errors.New("toast service down")
	})
	bus.Subscribe(MutationFailed, func(ctx context.Context, e Event) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), Event{Name: MutationFailed, Err: errors.New("409")})
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestBus_HasSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	if bus.HasSubscribers(SessionChanged) {
		t.Error("empty bus should have no subscribers")
	}

	bus.Subscribe("session.*", func(ctx context.Context, e Event) error { return nil })
	if !bus.HasSubscribers(SessionChanged) {
		t.Error("prefix wildcard should count as subscriber")
	}
	if bus.HasSubscribers(CacheEvicted) {
		t.Error("session.* must not match cache events")
	}
}

func TestBus_NilPublishIsNoop(t *testing.T) {
	var bus *Bus
	bus.Publish(context.Background(), Event{Name: CacheEvicted})
}

func TestBus_SubscribeFromHandler(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	bus.Subscribe(SessionChanged, func(ctx context.Context, e Event) error {
		bus.Subscribe(CacheEvicted, func(ctx context.Context, e Event) error { return nil })
		return nil
	})

	bus.Publish(context.Background(), Event{Name: SessionChanged})
	if !bus.HasSubscribers(CacheEvicted) {
		t.Error("handler registered during publish was lost")
	}
}
