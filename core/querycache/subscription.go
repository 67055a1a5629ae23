package querycache

import (
	"context"
	"sync"

	"github.com/artpar/rentdesk/domain/querystate"
	"github.com/jellydator/ttlcache/v3"
)

// Subscription keeps an entry alive and receives its state changes.
// A subscription is a live consumer: invalidating a tag its entry provides
// triggers an immediate refetch.
type Subscription struct {
	cache   *Cache
	entry   *entry
	req     Request
	changes chan querystate.State

	once sync.Once
}

// Subscribe registers a live consumer for r. If the entry is missing, stale,
// or errored a request starts in the background (or joins one in flight).
func (c *Cache) Subscribe(ctx context.Context, r Request) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, created := c.entryLocked(r)
	e.subscribers++
	c.gc.Delete(e.key)

	sub := &Subscription{
		cache:   c,
		entry:   e,
		req:     r,
		changes: make(chan querystate.State, 1),
	}
	e.watchers[sub] = struct{}{}

	if c.closed {
		return sub
	}
	if created || !c.freshLocked(e) {
		c.miss(r.Endpoint)
		c.startLocked(ctx, e)
	} else {
		c.hit(r.Endpoint)
	}
	sub.push(e.state())
	return sub
}

// State returns the entry's current state.
func (s *Subscription) State() querystate.State {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	return s.entry.state()
}

// Changes delivers the latest state after every change. Intermediate
// states may be dropped when the reader falls behind.
func (s *Subscription) Changes() <-chan querystate.State {
	return s.changes
}

// Wait blocks until no request for the entry is in flight and returns the
// settled state.
func (s *Subscription) Wait(ctx context.Context) (querystate.State, error) {
	for {
		s.cache.mu.Lock()
		st := s.entry.state()
		ch := s.entry.changed
		s.cache.mu.Unlock()

		if !st.IsFetching && st.Status != querystate.Fetching {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Refetch forces a new request and waits for it.
func (s *Subscription) Refetch(ctx context.Context) (any, error) {
	return s.cache.Refetch(ctx, s.req)
}

// Close releases the subscription. When the last subscriber leaves the
// entry is scheduled for eviction after the GC delay. An in-flight request
// is not aborted.
func (s *Subscription) Close() {
	s.once.Do(func() {
		c := s.cache
		c.mu.Lock()
		defer c.mu.Unlock()

		delete(s.entry.watchers, s)
		s.entry.subscribers--
		if s.entry.subscribers == 0 && c.entries[s.entry.key] == s.entry && !c.closed {
			c.gc.Set(s.entry.key, struct{}{}, ttlcache.DefaultTTL)
		}
	})
}

// push replaces any unread state with st. Called with the cache lock held.
func (s *Subscription) push(st querystate.State) {
	select {
	case <-s.changes:
	default:
	}
	select {
	case s.changes <- st:
	default:
	}
}
