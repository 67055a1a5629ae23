package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/artpar/rentdesk/adapters/clock"
	"github.com/artpar/rentdesk/core/events"
	"github.com/artpar/rentdesk/domain/querystate"
	"github.com/artpar/rentdesk/domain/tag"
	"github.com/rs/zerolog"
)

type counter struct {
	calls atomic.Int64
	value atomic.Int64
}

// fetch returns an incrementing value providing tags.
func (c *counter) fetch(tags ...tag.Tag) FetchFunc {
	return func(ctx context.Context) (any, tag.Set, error) {
		c.calls.Add(1)
		return int(c.value.Add(1)), tags, nil
	}
}

func newTestCache(t *testing.T, opts Options) *Cache {
	t.Helper()
	opts.Logger = zerolog.Nop()
	c := New(opts)
	t.Cleanup(c.Close)
	return c
}

func TestFetch_CachesResult(t *testing.T) {
	c := newTestCache(t, Options{})
	var n counter
	req := Request{Key: "GetVehicles", Endpoint: "GetVehicles", Fetch: n.fetch(tag.List(tag.Vehicle))}

	for i := 0; i < 3; i++ {
		v, err := c.Fetch(context.Background(), req)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if v != 1 {
			t.Errorf("Fetch() = %v, want 1", v)
		}
	}
	if got := n.calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
}

func TestFetch_DeduplicatesConcurrentRequests(t *testing.T) {
	c := newTestCache(t, Options{})

	release := make(chan struct{})
	var calls atomic.Int64
	req := Request{Key: "GetAdminStats", Endpoint: "GetAdminStats", Fetch: func(ctx context.Context) (any, tag.Set, error) {
		calls.Add(1)
		<-release
		return "stats", nil, nil
	}}

	const callers = 5
	var wg sync.WaitGroup
	results := make([]any, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.Fetch(context.Background(), req)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
	for i, r := range results {
		if r != "stats" {
			t.Errorf("results[%d] = %v, want stats", i, r)
		}
	}
}

func TestFetch_StaleTime(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c := newTestCache(t, Options{StaleTime: time.Minute, Clock: clk})
	var n counter
	req := Request{Key: "GetSettings", Endpoint: "GetSettings", Fetch: n.fetch()}

	ctx := context.Background()
	c.Fetch(ctx, req)
	clk.Advance(30 * time.Second)
	c.Fetch(ctx, req)
	if got := n.calls.Load(); got != 1 {
		t.Fatalf("calls within stale time = %d, want 1", got)
	}

	clk.Advance(31 * time.Second)
	v, _ := c.Fetch(ctx, req)
	if got := n.calls.Load(); got != 2 {
		t.Errorf("calls after stale time = %d, want 2", got)
	}
	if v != 2 {
		t.Errorf("Fetch() = %v, want 2", v)
	}
}

func TestSetStaleTime(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c := newTestCache(t, Options{Clock: clk})
	var n counter
	req := Request{Key: "GetSettings", Endpoint: "GetSettings", Fetch: n.fetch()}

	ctx := context.Background()
	c.Fetch(ctx, req)
	clk.Advance(time.Hour)
	c.Fetch(ctx, req)
	if got := n.calls.Load(); got != 1 {
		t.Fatalf("zero stale time should keep data fresh, calls = %d", got)
	}

	c.SetStaleTime(time.Minute)
	c.Fetch(ctx, req)
	if got := n.calls.Load(); got != 2 {
		t.Errorf("calls after shortening stale time = %d, want 2", got)
	}
}

func TestFetch_ErrorIsNotCached(t *testing.T) {
	c := newTestCache(t, Options{})
	boom := errors.New("boom")
	var calls atomic.Int64
	req := Request{Key: "k", Endpoint: "GetPayments", Fetch: func(ctx context.Context) (any, tag.Set, error) {
		if calls.Add(1) == 1 {
			return nil, tag.Set{tag.List(tag.Payment)}, boom
		}
		return "ok", tag.Set{tag.List(tag.Payment)}, nil
	}}

	if _, err := c.Fetch(context.Background(), req); !errors.Is(err, boom) {
		t.Fatalf("first Fetch() error = %v, want boom", err)
	}
	st, _ := c.Peek("k")
	if !st.IsError() {
		t.Errorf("status = %v, want error", st.Status)
	}
	if got := c.Providers(tag.List(tag.Payment)); len(got) != 1 {
		t.Errorf("failed entry providers = %v, want [k]", got)
	}

	v, err := c.Fetch(context.Background(), req)
	if err != nil || v != "ok" {
		t.Errorf("retry Fetch() = %v, %v; want ok", v, err)
	}
}

func TestFetch_CallerCancelDoesNotAbortRequest(t *testing.T) {
	c := newTestCache(t, Options{})
	release := make(chan struct{})
	req := Request{Key: "k", Endpoint: "GetBookings", Fetch: func(ctx context.Context) (any, tag.Set, error) {
		<-release
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return "late", nil, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, req)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch() error = %v, want context.Canceled", err)
	}

	close(release)
	v, err := c.Fetch(context.Background(), req)
	if err != nil || v != "late" {
		t.Errorf("Fetch() after cancel = %v, %v; want late", v, err)
	}
}

func TestInvalidate_RefetchesSubscribedOnce(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()

	var list, byID counter
	listReq := Request{Key: "GetVehicles", Endpoint: "GetVehicles", Fetch: list.fetch(tag.List(tag.Vehicle), tag.ID(tag.Vehicle, 7))}
	idReq := Request{Key: "GetVehicleByID(7)", Endpoint: "GetVehicleByID", Fetch: byID.fetch(tag.ID(tag.Vehicle, 7))}

	s1 := c.Subscribe(ctx, listReq)
	defer s1.Close()
	s2 := c.Subscribe(ctx, idReq)
	defer s2.Close()
	s1.Wait(ctx)
	s2.Wait(ctx)

	// Both tags match the list entry; it must refetch only once.
	n := c.Invalidate(ctx, tag.List(tag.Vehicle), tag.ID(tag.Vehicle, 7))
	if n != 2 {
		t.Errorf("Invalidate() = %d, want 2", n)
	}
	if got := list.calls.Load(); got != 2 {
		t.Errorf("list calls = %d, want 2", got)
	}
	if got := byID.calls.Load(); got != 2 {
		t.Errorf("by-id calls = %d, want 2", got)
	}
	if st := s1.State(); st.Data != 2 || st.IsFetching {
		t.Errorf("list state = %+v, want settled data 2", st)
	}
}

func TestInvalidate_UnsubscribedRefetchesLazily(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()
	var n counter
	req := Request{Key: "GetAllReviews", Endpoint: "GetAllReviews", Fetch: n.fetch(tag.List(tag.Review))}

	c.Fetch(ctx, req)
	c.Invalidate(ctx, tag.List(tag.Review))
	if got := n.calls.Load(); got != 1 {
		t.Fatalf("calls after invalidate = %d, want 1", got)
	}
	st, _ := c.Peek("GetAllReviews")
	if st.Data != 1 {
		t.Errorf("stale data = %v, want 1 still visible", st.Data)
	}

	v, _ := c.Fetch(ctx, req)
	if v != 2 || n.calls.Load() != 2 {
		t.Errorf("Fetch() after invalidate = %v (calls %d), want 2 (2)", v, n.calls.Load())
	}
}

func TestInvalidate_WildcardAndUnrelated(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()
	var a, b counter
	c.Fetch(ctx, Request{Key: "a", Endpoint: "GetBookingByID", Fetch: a.fetch(tag.ID(tag.Booking, 1))})
	c.Fetch(ctx, Request{Key: "b", Endpoint: "GetPayments", Fetch: b.fetch(tag.List(tag.Payment))})

	if n := c.Invalidate(ctx, tag.List(tag.Vehicle)); n != 0 {
		t.Errorf("unrelated Invalidate() = %d, want 0", n)
	}
	if n := c.Invalidate(ctx, tag.Of(tag.Booking)); n != 1 {
		t.Errorf("wildcard Invalidate() = %d, want 1", n)
	}
	if n := c.Invalidate(ctx); n != 0 {
		t.Errorf("empty Invalidate() = %d, want 0", n)
	}
}

func TestMutate(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		err       error
		wantCalls int64
		wantEvent string
	}{
		{name: "success invalidates", wantCalls: 2, wantEvent: events.MutationSucceeded},
		{name: "failure does not invalidate", err: boom, wantCalls: 1, wantEvent: events.MutationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := events.NewBus(zerolog.Nop())
			var got []string
			var mu sync.Mutex
			bus.Subscribe("mutation.*", func(ctx context.Context, e events.Event) error {
				mu.Lock()
				got = append(got, e.Name)
				mu.Unlock()
				return nil
			})

			c := newTestCache(t, Options{Bus: bus})
			ctx := context.Background()
			var n counter
			sub := c.Subscribe(ctx, Request{Key: "GetBookings", Endpoint: "GetBookings", Fetch: n.fetch(tag.List(tag.Booking))})
			defer sub.Close()
			sub.Wait(ctx)

			_, err := c.Mutate(ctx, "CreateBooking", func(ctx context.Context) (any, tag.Set, error) {
				return nil, tag.Set{tag.List(tag.Booking)}, tt.err
			})
			if !errors.Is(err, tt.err) {
				t.Fatalf("Mutate() error = %v, want %v", err, tt.err)
			}
			if calls := n.calls.Load(); calls != tt.wantCalls {
				t.Errorf("query calls = %d, want %d", calls, tt.wantCalls)
			}
			mu.Lock()
			defer mu.Unlock()
			if len(got) != 1 || got[0] != tt.wantEvent {
				t.Errorf("events = %v, want [%s]", got, tt.wantEvent)
			}
		})
	}
}

func TestApply_OlderResponseDoesNotOverwriteNewer(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()

	first := make(chan struct{})
	second := make(chan struct{})
	var calls atomic.Int64
	tags := tag.Set{tag.List(tag.Booking)}
	req := Request{Key: "GetUserBookings(u1)", Endpoint: "GetUserBookings", Fetch: func(ctx context.Context) (any, tag.Set, error) {
		switch calls.Add(1) {
		case 1:
			return "initial", tags, nil
		case 2:
			<-first
			return "old", tags, nil
		default:
			<-second
			return "new", tags, nil
		}
	}}

	if _, err := c.Fetch(ctx, req); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	go c.Refetch(ctx, req)
	time.Sleep(10 * time.Millisecond)

	// Forget the slow request so the next one is a separate backend call.
	c.Invalidate(ctx, tag.Of(tag.Booking))
	done := make(chan any, 1)
	go func() {
		v, _ := c.Refetch(ctx, req)
		done <- v
	}()
	time.Sleep(10 * time.Millisecond)

	close(second)
	if v := <-done; v != "new" {
		t.Fatalf("Refetch() = %v, want new", v)
	}
	close(first)
	time.Sleep(10 * time.Millisecond)

	st, _ := c.Peek(req.Key)
	if st.Data != "new" {
		t.Errorf("cached data = %v, want new", st.Data)
	}
	if st.IsFetching {
		t.Error("entry still fetching after both responses")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestGC_EvictsUnsubscribedEntry(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	evicted := make(chan string, 1)
	bus.Subscribe(events.CacheEvicted, func(ctx context.Context, e events.Event) error {
		evicted <- e.Key
		return nil
	})

	c := newTestCache(t, Options{GCDelay: 20 * time.Millisecond, Bus: bus})
	ctx := context.Background()
	var n counter
	sub := c.Subscribe(ctx, Request{Key: "GetRecentBookings", Endpoint: "GetRecentBookings", Fetch: n.fetch(tag.List(tag.AdminDashboard))})
	sub.Wait(ctx)
	sub.Close()
	sub.Close() // idempotent

	select {
	case key := <-evicted:
		if key != "GetRecentBookings" {
			t.Errorf("evicted %q", key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("entry was not evicted")
	}
	if _, ok := c.Peek("GetRecentBookings"); ok {
		t.Error("entry still present after eviction")
	}
	if got := c.Providers(tag.List(tag.AdminDashboard)); len(got) != 0 {
		t.Errorf("tag index still references evicted entry: %v", got)
	}
}

func TestGC_ResubscribeCancelsEviction(t *testing.T) {
	c := newTestCache(t, Options{GCDelay: 20 * time.Millisecond})
	ctx := context.Background()
	var n counter
	req := Request{Key: "GetVisibleReviews", Endpoint: "GetVisibleReviews", Fetch: n.fetch()}

	sub := c.Subscribe(ctx, req)
	sub.Wait(ctx)
	sub.Close()

	again := c.Subscribe(ctx, req)
	defer again.Close()
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Peek(req.Key); !ok {
		t.Fatal("entry evicted while subscribed")
	}
	if got := n.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestSubscription_Changes(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()
	var n counter
	sub := c.Subscribe(ctx, Request{Key: "GetPaymentMethods", Endpoint: "GetPaymentMethods", Fetch: n.fetch(tag.List(tag.PaymentMethod))})
	defer sub.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-sub.Changes():
			if st.IsSuccess() && !st.IsFetching {
				if st.Data != 1 {
					t.Errorf("Data = %v, want 1", st.Data)
				}
				return
			}
		case <-deadline:
			t.Fatal("no settled state delivered")
		}
	}
}

func TestConditional(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()
	var n counter
	q := NewConditional(c)
	defer q.Close()

	req := func(id string) Request {
		return Request{Key: "GetUserStats(" + id + ")", Endpoint: "GetUserStats", Fetch: n.fetch(tag.ID(tag.UserDashboard, id))}
	}

	for i := 0; i < 3; i++ {
		if st := q.Evaluate(ctx, true, Request{}); !st.IsSkipped() {
			t.Fatalf("skipped state = %v, want idle", st.Status)
		}
	}
	if n.calls.Load() != 0 {
		t.Fatalf("calls while skipped = %d", n.calls.Load())
	}

	q.Evaluate(ctx, false, req("u1"))
	q.Evaluate(ctx, false, req("u1"))
	st, err := q.Wait(ctx)
	if err != nil || !st.IsSuccess() {
		t.Fatalf("Wait() = %+v, %v", st, err)
	}
	q.Evaluate(ctx, false, req("u1"))
	if got := n.calls.Load(); got != 1 {
		t.Errorf("calls after unskip = %d, want 1", got)
	}

	q.Evaluate(ctx, false, req("u2"))
	q.Wait(ctx)
	if got := n.calls.Load(); got != 2 {
		t.Errorf("calls after key change = %d, want 2", got)
	}

	if st := q.Evaluate(ctx, true, Request{}); st.Status != querystate.Idle || st.Data != nil {
		t.Errorf("re-skipped state = %+v, want idle without data", st)
	}
}

func TestConditional_EvaluateAfterClose(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()
	var n counter
	q := NewConditional(c)

	req := Request{Key: "GetVehicleByID(42)", Endpoint: "GetVehicleByID", Fetch: n.fetch(tag.ID(tag.Vehicle, 42))}
	q.Evaluate(ctx, false, req)
	if _, err := q.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	q.Close()

	for _, skip := range []bool{false, true, false} {
		if st := q.Evaluate(ctx, skip, req); st.Status != querystate.Idle {
			t.Errorf("Evaluate(skip=%v) after Close = %v, want idle", skip, st.Status)
		}
	}
	if st := q.State(); st.Status != querystate.Idle {
		t.Errorf("State() after Close = %v, want idle", st.Status)
	}
	if got := n.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	if subs := c.Snapshot(); len(subs) == 1 && subs[0].Subscribers != 0 {
		t.Errorf("subscribers after Close = %d, want 0", subs[0].Subscribers)
	}
	q.Close()
}

func TestParallel(t *testing.T) {
	boom := errors.New("boom")
	var done atomic.Int64
	errs := Parallel(context.Background(),
		func(ctx context.Context) error { done.Add(1); return nil },
		func(ctx context.Context) error { return boom },
		func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			done.Add(1)
			return nil
		},
	)
	if errs[0] != nil || !errors.Is(errs[1], boom) || errs[2] != nil {
		t.Errorf("Parallel() = %v", errs)
	}
	if done.Load() != 2 {
		t.Errorf("completed = %d, want 2 (no sibling cancellation)", done.Load())
	}
}

func TestSnapshot(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()
	var n counter
	c.Fetch(ctx, Request{Key: "b", Endpoint: "GetPayments", Fetch: n.fetch(tag.List(tag.Payment))})
	c.Fetch(ctx, Request{Key: "a", Endpoint: "GetSettings", Fetch: n.fetch(tag.List(tag.Settings))})

	snap := c.Snapshot()
	if len(snap) != 2 || snap[0].Key != "a" || snap[1].Key != "b" {
		t.Fatalf("Snapshot() = %+v", snap)
	}
	if snap[1].Tags[0] != "Payment:LIST" || snap[1].Status != "success" {
		t.Errorf("Snapshot()[1] = %+v", snap[1])
	}
}

func TestClosed(t *testing.T) {
	c := New(Options{Logger: zerolog.Nop()})
	c.Close()
	c.Close()
	if _, err := c.Fetch(context.Background(), Request{Key: "k"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Fetch() after Close error = %v, want ErrClosed", err)
	}
}
