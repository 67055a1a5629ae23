package app

import (
	"context"
	"sync"

	"github.com/artpar/rentdesk/core/querycache"
	"github.com/artpar/rentdesk/domain/booking"
	"github.com/artpar/rentdesk/domain/dashboard"
	"github.com/artpar/rentdesk/domain/querystate"
	"github.com/artpar/rentdesk/domain/user"
	"github.com/artpar/rentdesk/ports"
)

// Dependent is a live query that stays idle until its precondition holds.
type Dependent[A, R any] struct {
	api  *API
	def  querycache.QueryDef[A, R]
	cond *querycache.Conditional

	mu   sync.Mutex
	stop []func()
}

// NewDependent creates an idle dependent query.
func NewDependent[A, R any](a *API, d querycache.QueryDef[A, R]) *Dependent[A, R] {
	return &Dependent[A, R]{api: a, def: d, cond: querycache.NewConditional(a.client.Cache)}
}

// Evaluate applies the skip predicate for args. It is safe to call on every
// change of inputs: a request starts only when not skipped and args differ
// from those of the last started request.
func (d *Dependent[A, R]) Evaluate(ctx context.Context, skip bool, args A) (querystate.State, error) {
	if skip {
		return d.cond.Evaluate(ctx, true, querycache.Request{}), nil
	}
	req, err := d.def.Request(d.api.client, args)
	if err != nil {
		return querystate.State{Status: querystate.Error, Err: err}, err
	}
	return d.cond.Evaluate(ctx, false, req), nil
}

// State returns the current state.
func (d *Dependent[A, R]) State() querystate.State {
	return d.cond.State()
}

// Wait blocks until the current request settles.
func (d *Dependent[A, R]) Wait(ctx context.Context) (querystate.State, error) {
	return d.cond.Wait(ctx)
}

// Data returns the typed data of the current state.
func (d *Dependent[A, R]) Data() (R, bool) {
	return querycache.Value[R](d.State().Data)
}

// Close releases the subscription and any session listener.
func (d *Dependent[A, R]) Close() {
	d.mu.Lock()
	stops := d.stop
	d.stop = nil
	d.mu.Unlock()

	for _, fn := range stops {
		fn()
	}
	d.cond.Close()
}

func (d *Dependent[A, R]) onClose(fn func()) {
	d.mu.Lock()
	d.stop = append(d.stop, fn)
	d.mu.Unlock()
}

// WatchAdminUsers is the admin user list, skipped while signed out and
// re-evaluated whenever the session changes.
func (a *API) WatchAdminUsers(ctx context.Context, sessions ports.SessionNotifier) *Dependent[struct{}, []user.User] {
	d := NewDependent(a, GetAdminUsersQuery)
	eval := func(s ports.Session) {
		d.Evaluate(ctx, !s.IsAuthenticated(), struct{}{})
	}
	d.onClose(sessions.OnChange(eval))
	eval(sessions.Current())
	return d
}

// UserDashboardWatch keeps the four customer dashboard queries live for the
// signed-in user.
type UserDashboardWatch struct {
	Stats           *Dependent[string, dashboard.UserStats]
	Upcoming        *Dependent[string, []booking.Booking]
	Activity        *Dependent[string, []dashboard.ActivityItem]
	Recommendations *Dependent[string, []dashboard.Recommendation]

	stop func()
}

// WatchUserDashboard subscribes the customer dashboard queries, skipped
// while the session has no user id.
func (a *API) WatchUserDashboard(ctx context.Context, sessions ports.SessionNotifier) *UserDashboardWatch {
	w := &UserDashboardWatch{
		Stats:           NewDependent(a, GetUserStatsQuery),
		Upcoming:        NewDependent(a, GetUpcomingBookingsQuery),
		Activity:        NewDependent(a, GetRecentActivityQuery),
		Recommendations: NewDependent(a, GetRecommendationsQuery),
	}
	eval := func(s ports.Session) {
		skip := s.UserID == ""
		w.Stats.Evaluate(ctx, skip, s.UserID)
		w.Upcoming.Evaluate(ctx, skip, s.UserID)
		w.Activity.Evaluate(ctx, skip, s.UserID)
		w.Recommendations.Evaluate(ctx, skip, s.UserID)
	}
	w.stop = sessions.OnChange(eval)
	eval(sessions.Current())
	return w
}

// Wait blocks until all four queries settle.
func (w *UserDashboardWatch) Wait(ctx context.Context) error {
	errs := querycache.Parallel(ctx,
		func(ctx context.Context) error { _, err := w.Stats.Wait(ctx); return err },
		func(ctx context.Context) error { _, err := w.Upcoming.Wait(ctx); return err },
		func(ctx context.Context) error { _, err := w.Activity.Wait(ctx); return err },
		func(ctx context.Context) error { _, err := w.Recommendations.Wait(ctx); return err },
	)
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// View merges the current states with per-field fallback. The status is
// Idle while skipped and Fetching while any first request is in flight.
func (w *UserDashboardWatch) View() (dashboard.UserDashboard, querystate.Status) {
	states := []querystate.State{w.Stats.State(), w.Upcoming.State(), w.Activity.State(), w.Recommendations.State()}

	r := dashboard.UserResults{
		Stats:           result[dashboard.UserStats](states[0]),
		Upcoming:        result[[]booking.Booking](states[1]),
		Activity:        result[[]dashboard.ActivityItem](states[2]),
		Recommendations: result[[]dashboard.Recommendation](states[3]),
	}
	d := dashboard.MergeUser(r)

	switch {
	case states[0].IsSkipped():
		return d, querystate.Idle
	case anyLoading(states):
		return d, querystate.Fetching
	default:
		return d, mergedStatus(len(d.Errors), len(states))
	}
}

// Close releases all subscriptions.
func (w *UserDashboardWatch) Close() {
	if w.stop != nil {
		w.stop()
	}
	w.Stats.Close()
	w.Upcoming.Close()
	w.Activity.Close()
	w.Recommendations.Close()
}

func result[T any](s querystate.State) dashboard.Result[T] {
	v, _ := querycache.Value[T](s.Data)
	if s.IsError() {
		return dashboard.Result[T]{Data: v, Err: s.Err}
	}
	return dashboard.Result[T]{Data: v}
}

func anyLoading(states []querystate.State) bool {
	for _, s := range states {
		if s.IsLoading() {
			return true
		}
	}
	return false
}
