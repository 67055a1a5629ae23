package querycache

import (
	"context"
	"sort"

	"github.com/artpar/rentdesk/core/events"
	"github.com/artpar/rentdesk/domain/tag"
	"golang.org/x/sync/errgroup"
)

// MutateFunc performs one backend write and returns the tags it invalidates.
type MutateFunc func(ctx context.Context) (any, tag.Set, error)

// Mutate runs fn and, only on success, invalidates the tags it returns.
// Mutations are never cached or deduplicated.
func (c *Cache) Mutate(ctx context.Context, endpoint string, fn MutateFunc) (any, error) {
	val, tags, err := fn(ctx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.Mutations.WithLabelValues(endpoint, "failed").Inc()
		}
		c.bus.Publish(ctx, events.Event{Name: events.MutationFailed, Endpoint: endpoint, Err: err})
		return val, err
	}

	if c.metrics != nil {
		c.metrics.Mutations.WithLabelValues(endpoint, "succeeded").Inc()
	}
	c.bus.Publish(ctx, events.Event{Name: events.MutationSucceeded, Endpoint: endpoint, Tags: tags})
	c.Invalidate(ctx, tags...)
	return val, nil
}

// Invalidate marks every entry providing one of tags as stale. Entries with
// live subscribers are refetched in parallel, each exactly once; the rest
// refetch on their next use. It returns the number of entries marked.
func (c *Cache) Invalidate(ctx context.Context, tags ...tag.Tag) int {
	if len(tags) == 0 {
		return 0
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	keys := c.matchLocked(tags)
	var live []*entry
	for _, key := range keys {
		e := c.entries[key]
		e.stale = true
		e.staleSeq = e.issued
		// Callers arriving from now on must not join a pre-invalidation request.
		c.flights.Forget(key)
		if e.subscribers > 0 {
			live = append(live, e)
		}
	}
	c.mu.Unlock()

	if c.metrics != nil {
		for _, t := range tag.Set(tags).Types() {
			c.metrics.CacheInvalidations.WithLabelValues(string(t)).Inc()
		}
	}
	c.logger.Debug().
		Str("tags", tag.Set(tags).String()).
		Int("entries", len(keys)).
		Int("refetching", len(live)).
		Msg("cache invalidated")
	c.bus.Publish(ctx, events.Event{
		Name: events.CacheInvalidated,
		Tags: tags,
		Meta: map[string]any{"entries": len(keys), "refetching": len(live)},
	})

	if len(live) == 0 {
		return len(keys)
	}

	refetchCtx := context.WithoutCancel(ctx)
	if c.backgroundRefetch {
		c.bg.Add(1)
		go func() {
			defer c.bg.Done()
			c.refetchAll(refetchCtx, live)
		}()
	} else {
		c.refetchAll(refetchCtx, live)
	}
	return len(keys)
}

func (c *Cache) refetchAll(ctx context.Context, live []*entry) {
	var g errgroup.Group
	for _, e := range live {
		g.Go(func() error {
			c.mu.Lock()
			ch := c.startLocked(ctx, e)
			c.mu.Unlock()

			res := <-ch
			if c.metrics != nil {
				c.metrics.CacheRefetches.WithLabelValues(e.endpoint).Inc()
			}
			c.bus.Publish(ctx, events.Event{
				Name:     events.CacheRefetched,
				Endpoint: e.endpoint,
				Key:      e.key,
				Err:      res.Err,
			})
			// Refetch failures are stored on the entry.
			return nil
		})
	}
	_ = g.Wait()
}

// matchLocked returns the sorted keys of entries providing any of tags.
func (c *Cache) matchLocked(tags []tag.Tag) []string {
	seen := make(map[string]struct{})
	for _, t := range tags {
		if t.IsWildcard() {
			for provided, keys := range c.provided {
				if provided.Type != t.Type {
					continue
				}
				for k := range keys {
					seen[k] = struct{}{}
				}
			}
			continue
		}
		for k := range c.provided[t] {
			seen[k] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Providers returns the keys of entries currently providing any of tags.
func (c *Cache) Providers(tags ...tag.Tag) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matchLocked(tags)
}

func sortEntries(es []EntryInfo) {
	sort.Slice(es, func(i, j int) bool { return es[i].Key < es[j].Key })
}
