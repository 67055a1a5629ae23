package querycache

import (
	"context"
	"sync"

	"github.com/artpar/rentdesk/domain/querystate"
)

// Conditional is a query that stays idle until its precondition holds.
// Re-evaluating with the same key while not skipped never starts another
// request; changing the key moves the subscription to the new entry.
type Conditional struct {
	cache *Cache

	mu      sync.Mutex
	machine querystate.Machine
	sub     *Subscription
	closed  bool
}

// NewConditional creates an idle conditional query on c.
func NewConditional(c *Cache) *Conditional {
	return &Conditional{cache: c}
}

// Evaluate applies the current skip predicate. r is ignored while skipped.
// After Close it reports Idle and starts nothing.
func (q *Conditional) Evaluate(ctx context.Context, skip bool, r Request) querystate.State {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return querystate.State{Status: querystate.Idle}
	}
	if !q.machine.Evaluate(skip, r.Key) {
		if skip {
			q.release()
			return querystate.State{Status: querystate.Idle}
		}
		return q.machine.Observe(q.sub.State())
	}

	prev := q.sub
	q.sub = q.cache.Subscribe(ctx, r)
	if prev != nil {
		prev.Close()
	}
	return q.machine.Observe(q.sub.State())
}

// State returns the last observed state without re-evaluating.
func (q *Conditional) State() querystate.State {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sub == nil {
		return querystate.State{Status: querystate.Idle}
	}
	return q.machine.Observe(q.sub.State())
}

// Wait blocks until the current request settles. It returns immediately
// while skipped.
func (q *Conditional) Wait(ctx context.Context) (querystate.State, error) {
	q.mu.Lock()
	sub := q.sub
	q.mu.Unlock()
	if sub == nil {
		return querystate.State{Status: querystate.Idle}, nil
	}
	if _, err := sub.Wait(ctx); err != nil {
		return q.State(), err
	}
	return q.State(), nil
}

// Close releases the underlying subscription. It is safe to call more than
// once and concurrently with Evaluate.
func (q *Conditional) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.release()
}

// release drops the subscription and disarms the machine so that no
// observation refers to a closed subscription.
func (q *Conditional) release() {
	q.machine.Evaluate(true, "")
	if q.sub != nil {
		q.sub.Close()
		q.sub = nil
	}
}
