// Package querycache is the client-side query cache. Queries provide tags,
// mutations invalidate tags, and every entry providing an invalidated tag is
// marked stale and refetched if it has live subscribers (lazily otherwise).
//
// Identical concurrent requests for one key share a single backend call.
// Entries whose subscriber count drops to zero are evicted after GCDelay.
package querycache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/artpar/rentdesk/adapters/clock"
	"github.com/artpar/rentdesk/adapters/metrics"
	"github.com/artpar/rentdesk/core/events"
	"github.com/artpar/rentdesk/domain/querystate"
	"github.com/artpar/rentdesk/domain/tag"
	"github.com/artpar/rentdesk/ports"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// FetchFunc performs one backend read. It returns the tags the result
// provides; tags are also returned on error so invalidation can still reach
// an entry whose first request failed.
type FetchFunc func(ctx context.Context) (any, tag.Set, error)

// Request identifies a cached read.
type Request struct {
	Key      string // endpoint + serialized args
	Endpoint string
	Fetch    FetchFunc
}

// Options configures a Cache.
type Options struct {
	// StaleTime is how long data is served without refetching on a new
	// subscription. Zero means data stays fresh until invalidated.
	StaleTime time.Duration

	// GCDelay is how long an unsubscribed entry is kept.
	GCDelay time.Duration

	// BackgroundRefetch makes Invalidate return before refetches complete.
	BackgroundRefetch bool

	Clock   ports.Clock
	Bus     *events.Bus
	Metrics *metrics.Collector
	Logger  zerolog.Logger
}

// DefaultGCDelay matches the usual "keep unused data" window.
const DefaultGCDelay = 60 * time.Second

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("query cache closed")

type entry struct {
	key      string
	endpoint string
	fetch    FetchFunc

	value     any
	err       error
	hasData   bool
	status    querystate.Status
	fetchedAt time.Time
	tags      tag.Set

	stale    bool
	staleSeq uint64 // results of requests issued at or before this are stale

	issued   uint64
	applied  uint64
	inflight int
	awaiting bool

	subscribers int
	watchers    map[*Subscription]struct{}
	changed     chan struct{}
}

func (e *entry) state() querystate.State {
	return querystate.State{
		Status:     e.status,
		Data:       e.value,
		Err:        e.err,
		FetchedAt:  e.fetchedAt,
		IsFetching: e.awaiting || e.inflight > 0,
	}
}

// Cache is the query cache.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	provided map[tag.Tag]map[string]struct{}
	closed   bool

	flights singleflight.Group
	gc      *ttlcache.Cache[string, struct{}]
	bg      sync.WaitGroup

	staleTime         time.Duration
	backgroundRefetch bool
	clock             ports.Clock
	bus               *events.Bus
	metrics           *metrics.Collector
	logger            zerolog.Logger
}

// New creates a cache and starts its garbage collector.
func New(opts Options) *Cache {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.GCDelay <= 0 {
		opts.GCDelay = DefaultGCDelay
	}

	c := &Cache{
		entries:           make(map[string]*entry),
		provided:          make(map[tag.Tag]map[string]struct{}),
		staleTime:         opts.StaleTime,
		backgroundRefetch: opts.BackgroundRefetch,
		clock:             opts.Clock,
		bus:               opts.Bus,
		metrics:           opts.Metrics,
		logger:            opts.Logger,
	}

	c.gc = ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](opts.GCDelay),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	c.gc.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, struct{}]) {
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		// Leave the ttlcache callback before touching our own lock.
		go c.evict(item.Key())
	})
	go c.gc.Start()

	return c
}

// Close stops the garbage collector and waits for background refetches.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.gc.Stop()
	c.bg.Wait()
}

// SetStaleTime changes the freshness window for subsequent reads.
func (c *Cache) SetStaleTime(d time.Duration) {
	c.mu.Lock()
	c.staleTime = d
	c.mu.Unlock()
}

// Fetch returns the cached value for r when fresh, otherwise performs (or
// joins) a backend request. Cancelling ctx stops waiting but not the request;
// its result still lands in the cache.
func (c *Cache) Fetch(ctx context.Context, r Request) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e, created := c.entryLocked(r)
	if !created && c.freshLocked(e) {
		v := e.value
		c.mu.Unlock()
		c.hit(r.Endpoint)
		return v, nil
	}
	ch := c.startLocked(ctx, e)
	if e.subscribers == 0 {
		c.gc.Set(e.key, struct{}{}, ttlcache.DefaultTTL)
	}
	c.mu.Unlock()

	c.miss(r.Endpoint)
	return c.await(ctx, ch)
}

// Refetch forces a backend request for r regardless of freshness.
func (c *Cache) Refetch(ctx context.Context, r Request) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e, _ := c.entryLocked(r)
	ch := c.startLocked(ctx, e)
	c.mu.Unlock()

	return c.await(ctx, ch)
}

// Peek returns the current state of key without fetching.
func (c *Cache) Peek(key string) (querystate.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return querystate.State{Status: querystate.Idle}, false
	}
	return e.state(), true
}

func (c *Cache) await(ctx context.Context, ch <-chan singleflight.Result) (any, error) {
	select {
	case res := <-ch:
		if res.Shared && c.metrics != nil {
			c.metrics.CacheDeduplicated.Inc()
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// entryLocked returns the entry for r, creating it when missing.
func (c *Cache) entryLocked(r Request) (*entry, bool) {
	if e, ok := c.entries[r.Key]; ok {
		if r.Fetch != nil {
			e.fetch = r.Fetch
		}
		return e, false
	}
	e := &entry{
		key:      r.Key,
		endpoint: r.Endpoint,
		fetch:    r.Fetch,
		status:   querystate.Fetching,
		watchers: make(map[*Subscription]struct{}),
		changed:  make(chan struct{}),
	}
	c.entries[r.Key] = e
	if c.metrics != nil {
		c.metrics.CacheEntries.Set(float64(len(c.entries)))
	}
	return e, true
}

func (c *Cache) freshLocked(e *entry) bool {
	if !e.hasData || e.err != nil || e.stale {
		return false
	}
	if c.staleTime <= 0 {
		return true
	}
	return c.clock.Now().Sub(e.fetchedAt) < c.staleTime
}

// startLocked starts a request for e or joins the one in flight.
func (c *Cache) startLocked(ctx context.Context, e *entry) <-chan singleflight.Result {
	e.awaiting = true
	if !e.hasData {
		e.status = querystate.Fetching
	}
	c.notifyLocked(e)

	fetchCtx := context.WithoutCancel(ctx)
	return c.flights.DoChan(e.key, func() (any, error) {
		return c.run(fetchCtx, e)
	})
}

func (c *Cache) run(ctx context.Context, e *entry) (any, error) {
	c.mu.Lock()
	e.issued++
	seq := e.issued
	e.inflight++
	fetch := e.fetch
	c.mu.Unlock()

	if fetch == nil {
		err := errors.New("querycache: no fetch function for " + e.key)
		c.apply(e, seq, nil, nil, err)
		return nil, err
	}

	val, tags, err := fetch(ctx)
	c.apply(e, seq, val, tags, err)
	return val, err
}

// apply stores a result unless a newer request's result is already applied.
func (c *Cache) apply(e *entry, seq uint64, val any, tags tag.Set, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.inflight--
	if e.inflight == 0 {
		e.awaiting = false
	}

	if seq < e.applied {
		c.logger.Debug().
			Str("key", e.key).
			Uint64("seq", seq).
			Uint64("applied", e.applied).
			Msg("discarding out-of-order response")
		c.notifyLocked(e)
		return
	}
	e.applied = seq

	if err != nil {
		e.err = err
		e.status = querystate.Error
		if len(tags) > 0 {
			c.reindexLocked(e, tag.Union(e.tags, tags))
		}
	} else {
		e.value = val
		e.err = nil
		e.hasData = true
		e.status = querystate.Success
		e.fetchedAt = c.clock.Now()
		c.reindexLocked(e, tags)
	}
	e.stale = seq <= e.staleSeq

	c.notifyLocked(e)
}

// reindexLocked replaces the tags e provides in the tag index.
func (c *Cache) reindexLocked(e *entry, tags tag.Set) {
	for _, t := range e.tags {
		if keys, ok := c.provided[t]; ok {
			delete(keys, e.key)
			if len(keys) == 0 {
				delete(c.provided, t)
			}
		}
	}
	e.tags = tag.Union(tags)
	for _, t := range e.tags {
		keys, ok := c.provided[t]
		if !ok {
			keys = make(map[string]struct{})
			c.provided[t] = keys
		}
		keys[e.key] = struct{}{}
	}
}

// notifyLocked wakes waiters and pushes the new state to subscribers.
func (c *Cache) notifyLocked(e *entry) {
	close(e.changed)
	e.changed = make(chan struct{})

	st := e.state()
	for sub := range e.watchers {
		sub.push(st)
	}
}

func (c *Cache) evict(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.subscribers > 0 || c.closed {
		c.mu.Unlock()
		return
	}
	if e.awaiting || e.inflight > 0 {
		c.gc.Set(key, struct{}{}, ttlcache.DefaultTTL)
		c.mu.Unlock()
		return
	}
	c.reindexLocked(e, nil)
	delete(c.entries, key)
	n := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.CacheEvictions.Inc()
		c.metrics.CacheEntries.Set(float64(n))
	}
	c.logger.Debug().Str("key", key).Msg("cache entry evicted")
	c.bus.Publish(context.Background(), events.Event{Name: events.CacheEvicted, Endpoint: e.endpoint, Key: key})
}

func (c *Cache) hit(endpoint string) {
	if c.metrics != nil {
		c.metrics.CacheHits.WithLabelValues(endpoint).Inc()
	}
}

func (c *Cache) miss(endpoint string) {
	if c.metrics != nil {
		c.metrics.CacheMisses.WithLabelValues(endpoint).Inc()
	}
}

// EntryInfo summarizes one entry for diagnostics.
type EntryInfo struct {
	Key         string    `json:"key"`
	Endpoint    string    `json:"endpoint"`
	Status      string    `json:"status"`
	Tags        []string  `json:"tags"`
	Subscribers int       `json:"subscribers"`
	Stale       bool      `json:"stale"`
	Fetching    bool      `json:"fetching"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Snapshot lists all entries sorted by key.
func (c *Cache) Snapshot() []EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]EntryInfo, 0, len(c.entries))
	for _, e := range c.entries {
		tags := make([]string, len(e.tags))
		for i, t := range e.tags {
			tags[i] = t.String()
		}
		out = append(out, EntryInfo{
			Key:         e.key,
			Endpoint:    e.endpoint,
			Status:      e.status.String(),
			Tags:        tags,
			Subscribers: e.subscribers,
			Stale:       e.stale,
			Fetching:    e.awaiting || e.inflight > 0,
			FetchedAt:   e.fetchedAt,
		})
	}
	sortEntries(out)
	return out
}
