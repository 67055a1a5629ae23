package app_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/artpar/rentdesk/app"
	"github.com/artpar/rentdesk/core/querycache"
	"github.com/artpar/rentdesk/core/registry"
	"github.com/artpar/rentdesk/domain/booking"
	"github.com/artpar/rentdesk/domain/filter"
	"github.com/artpar/rentdesk/domain/payment"
	"github.com/artpar/rentdesk/domain/review"
	"github.com/artpar/rentdesk/domain/settings"
	"github.com/artpar/rentdesk/domain/user"
	"github.com/artpar/rentdesk/domain/vehicle"
	"github.com/artpar/rentdesk/ports"
	"github.com/rs/zerolog"
)

// fakeTransport answers every endpoint with a canned payload and counts calls.
type fakeTransport struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
	data  map[string]string
}

var cannedLists = map[string]string{
	"GetVehicles":          `[{"vehicle_id":42}]`,
	"SearchVehicles":       `[{"vehicle_id":42}]`,
	"GetAvailableVehicles": `[{"vehicle_id":42}]`,
	"GetBookings":          `[{"booking_id":5}]`,
	"GetUserBookings":      `[{"booking_id":5}]`,
	"GetRecentBookings":    `[{"booking_id":5}]`,
	"GetAllReviews":        `[{"review_id":9}]`,
	"GetVisibleReviews":    `[{"review_id":9}]`,
	"GetReviewsByVehicle":  `[{"review_id":9}]`,
	"GetUserReviews":       `[{"review_id":9}]`,
	"GetAdminUsers":        `[{"user_id":"u1"}]`,
	"GetPayments":          `[{"payment_id":3}]`,
	"GetUpcomingBookings":  `[]`,
	"GetRecentActivity":    `[]`,
	"GetRecommendations":   `[]`,
	"GetRevenueSeries":     `[]`,
	"GetLoginHistory":      `[]`,
	"GetPaymentMethods":    `[]`,
}

// Mutation results carry the linked ids a cross-domain invalidation needs.
var cannedResults = map[string]string{
	"CreateBooking":       `{"booking_id":6,"vehicle_id":42}`,
	"UpdateBookingStatus": `{"booking_id":5,"vehicle_id":42}`,
	"CancelBooking":       `{"booking_id":5,"vehicle_id":42}`,
	"RefundPayment":       `{"payment_id":3,"booking_id":5}`,
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{calls: make(map[string]int), fail: make(map[string]error), data: make(map[string]string)}
}

func (f *fakeTransport) Do(ctx context.Context, req ports.Request) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.Endpoint]++
	if err := f.fail[req.Endpoint]; err != nil {
		return nil, err
	}
	body := `{}`
	if list, ok := cannedLists[req.Endpoint]; ok {
		body = list
	}
	if res, ok := cannedResults[req.Endpoint]; ok {
		body = res
	}
	if res, ok := f.data[req.Endpoint]; ok {
		body = res
	}
	return []byte(`{"success":true,"data":` + body + `}`), nil
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	f.calls = make(map[string]int)
	f.mu.Unlock()
}

func (f *fakeTransport) called() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.calls))
	for k, v := range f.calls {
		out[k] = v
	}
	return out
}

type staticSession struct{ s ports.Session }

func (s staticSession) Current() ports.Session { return s.s }

func newTestAPI(t *testing.T, tr ports.Transport, sess ports.SessionSource) *app.API {
	t.Helper()
	cache := querycache.New(querycache.Options{Logger: zerolog.Nop()})
	t.Cleanup(cache.Close)
	a, err := app.New(app.Config{Cache: cache, Transport: tr, Session: sess, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	return a
}

type watched struct {
	name  string
	watch func(ctx context.Context, a *app.API) (*querycache.Subscription, error)
}

func w[A, R any](d querycache.QueryDef[A, R], args A) watched {
	return watched{name: d.Name, watch: func(ctx context.Context, a *app.API) (*querycache.Subscription, error) {
		return app.Watch(ctx, a, d, args)
	}}
}

// Every query, subscribed with arguments that reference the ids used below.
var allQueries = []watched{
	w(app.GetVehiclesQuery, filter.New()),
	w(app.SearchVehiclesQuery, filter.New().Set("search", "suv")),
	w(app.GetAvailableVehiclesQuery, filter.New()),
	w(app.GetVehicleByIDQuery, 42),
	w(app.GetBookingsQuery, filter.New()),
	w(app.GetUserBookingsQuery, "u1"),
	w(app.GetBookingByIDQuery, 5),
	w(app.GetAllReviewsQuery, struct{}{}),
	w(app.GetVisibleReviewsQuery, struct{}{}),
	w(app.GetReviewsByVehicleQuery, 7),
	w(app.GetUserReviewsQuery, "u1"),
	w(app.GetUserStatsQuery, "u1"),
	w(app.GetUpcomingBookingsQuery, "u1"),
	w(app.GetRecentActivityQuery, "u1"),
	w(app.GetRecommendationsQuery, "u1"),
	w(app.GetAdminStatsQuery, struct{}{}),
	w(app.GetRevenueSeriesQuery, filter.New()),
	w(app.GetRecentBookingsQuery, 5),
	w(app.GetSettingsQuery, struct{}{}),
	w(app.GetSecuritySettingsQuery, struct{}{}),
	w(app.GetLoginHistoryQuery, filter.New()),
	w(app.GetAdminUsersQuery, struct{}{}),
	w(app.GetAdminUserByIDQuery, "u1"),
	w(app.GetPaymentsQuery, filter.New()),
	w(app.GetPaymentByIDQuery, 3),
	w(app.GetPaymentMethodsQuery, struct{}{}),
}

var (
	vehicleLists   = []string{"GetVehicles", "SearchVehicles", "GetAvailableVehicles"}
	bookingLists   = []string{"GetBookings", "GetUserBookings"}
	reviewLists    = []string{"GetAllReviews", "GetVisibleReviews", "GetReviewsByVehicle", "GetUserReviews"}
	userDashboard  = []string{"GetUserStats", "GetUpcomingBookings", "GetRecentActivity", "GetRecommendations"}
	adminDashboard = []string{"GetAdminStats", "GetRevenueSeries", "GetRecentBookings"}
)

func join(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

type mutationCase struct {
	name string
	run  func(ctx context.Context, a *app.API) error
	want []string
}

func ignore[T any](_ T, err error) error { return err }

var mutationCases = []mutationCase{
	{"CreateVehicle", func(ctx context.Context, a *app.API) error {
		return ignore(a.CreateVehicle(ctx, vehicle.Input{Make: "Kia"}))
	}, join(vehicleLists, adminDashboard)},
	{"UpdateVehicle", func(ctx context.Context, a *app.API) error {
		return ignore(a.UpdateVehicle(ctx, 42, vehicle.Input{Seats: 7}))
	}, join(vehicleLists, []string{"GetVehicleByID"}, adminDashboard)},
	{"UpdateVehicleStatus", func(ctx context.Context, a *app.API) error {
		return ignore(a.UpdateVehicleStatus(ctx, vehicle.StatusUpdate{VehicleID: 42, Status: vehicle.StatusMaintenance}))
	}, join(vehicleLists, []string{"GetVehicleByID"}, adminDashboard)},
	{"DeleteVehicle", func(ctx context.Context, a *app.API) error {
		return a.DeleteVehicle(ctx, 42)
	}, join(vehicleLists, []string{"GetVehicleByID"}, adminDashboard)},
	{"CreateBooking", func(ctx context.Context, a *app.API) error {
		return ignore(a.CreateBooking(ctx, booking.Input{UserID: "u1", VehicleID: 42}))
	}, join(bookingLists, vehicleLists, []string{"GetVehicleByID"}, userDashboard, adminDashboard)},
	{"UpdateBookingStatus", func(ctx context.Context, a *app.API) error {
		return ignore(a.UpdateBookingStatus(ctx, booking.StatusUpdate{BookingID: 5, Status: booking.StatusConfirmed}))
	}, join(bookingLists, []string{"GetBookingByID"}, vehicleLists, []string{"GetVehicleByID"}, userDashboard, adminDashboard)},
	{"CancelBooking", func(ctx context.Context, a *app.API) error {
		return ignore(a.CancelBooking(ctx, booking.Cancellation{BookingID: 5, Reason: "plans changed"}))
	}, join(bookingLists, []string{"GetBookingByID"}, vehicleLists, []string{"GetVehicleByID"}, userDashboard, adminDashboard)},
	{"CreateReview", func(ctx context.Context, a *app.API) error {
		return ignore(a.CreateReview(ctx, review.Input{UserID: "u1", VehicleID: 7, Rating: 5}))
	}, join(reviewLists, userDashboard, adminDashboard)},
	{"UpdateReviewVisibility", func(ctx context.Context, a *app.API) error {
		return ignore(a.UpdateReviewVisibility(ctx, review.Visibility{ReviewID: 9}))
	}, join(reviewLists, userDashboard, adminDashboard)},
	{"DeleteReview", func(ctx context.Context, a *app.API) error {
		return a.DeleteReview(ctx, 9)
	}, join(reviewLists, userDashboard, adminDashboard)},
	{"UpdateSettings", func(ctx context.Context, a *app.API) error {
		return ignore(a.UpdateSettings(ctx, settings.Defaults()))
	}, []string{"GetSettings"}},
	{"UpdateSecuritySettings", func(ctx context.Context, a *app.API) error {
		return ignore(a.UpdateSecuritySettings(ctx, settings.Security{PasswordMinLength: 12}))
	}, []string{"GetSecuritySettings", "GetLoginHistory"}},
	{"CreateAdminUser", func(ctx context.Context, a *app.API) error {
		return ignore(a.CreateAdminUser(ctx, user.Input{Email: "new@example.com"}))
	}, join([]string{"GetAdminUsers"}, adminDashboard)},
	{"UpdateAdminUser", func(ctx context.Context, a *app.API) error {
		return ignore(a.UpdateAdminUser(ctx, "u1", user.Input{Role: user.RoleAdmin}))
	}, join([]string{"GetAdminUsers", "GetAdminUserByID"}, adminDashboard)},
	{"DeactivateAdminUser", func(ctx context.Context, a *app.API) error {
		return ignore(a.DeactivateAdminUser(ctx, "u1"))
	}, join([]string{"GetAdminUsers", "GetAdminUserByID"}, adminDashboard)},
	{"RefundPayment", func(ctx context.Context, a *app.API) error {
		return ignore(a.RefundPayment(ctx, payment.Refund{PaymentID: 3}))
	}, join([]string{"GetPayments", "GetPaymentByID", "GetBookingByID"}, bookingLists, adminDashboard)},
	{"UpdatePaymentMethod", func(ctx context.Context, a *app.API) error {
		return ignore(a.UpdatePaymentMethod(ctx, payment.MethodUpdate{MethodID: "card"}))
	}, []string{"GetPaymentMethods"}},
}

// subscribeAll watches every query and waits for the initial loads.
func subscribeAll(t *testing.T, ctx context.Context, a *app.API) {
	t.Helper()
	for _, q := range allQueries {
		sub, err := q.watch(ctx, a)
		if err != nil {
			t.Fatalf("watch %s: %v", q.name, err)
		}
		t.Cleanup(sub.Close)
		if st, err := sub.Wait(ctx); err != nil || !st.IsSuccess() {
			t.Fatalf("initial %s = %+v, %v", q.name, st, err)
		}
	}
}

func TestMutationRefetchCoverage(t *testing.T) {
	for _, tc := range mutationCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			tr := newFakeTransport()
			a := newTestAPI(t, tr, nil)
			subscribeAll(t, ctx, a)
			tr.reset()

			if err := tc.run(ctx, a); err != nil {
				t.Fatalf("%s error = %v", tc.name, err)
			}

			calls := tr.called()
			want := map[string]bool{}
			for _, q := range tc.want {
				want[q] = true
			}
			for _, q := range allQueries {
				got := calls[q.name]
				switch {
				case want[q.name] && got != 1:
					t.Errorf("%s: %s refetched %d times, want exactly 1", tc.name, q.name, got)
				case !want[q.name] && got != 0:
					t.Errorf("%s: %s refetched %d times, want 0", tc.name, q.name, got)
				}
			}
			if calls[tc.name] != 1 {
				t.Errorf("%s sent %d times, want 1", tc.name, calls[tc.name])
			}
		})
	}
}

func TestMutationFailureRefetchesNothing(t *testing.T) {
	for _, tc := range mutationCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			tr := newFakeTransport()
			a := newTestAPI(t, tr, nil)
			subscribeAll(t, ctx, a)
			tr.reset()
			tr.fail[tc.name] = errors.New("backend down")

			if err := tc.run(ctx, a); err == nil {
				t.Fatalf("%s should fail", tc.name)
			}
			for name, n := range tr.called() {
				if name != tc.name && n != 0 {
					t.Errorf("%s refetched %d times after failed %s", name, n, tc.name)
				}
			}
		})
	}
}

func TestMutationRefetchCoverage_UnrelatedID(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	a := newTestAPI(t, tr, nil)
	subscribeAll(t, ctx, a)
	tr.reset()

	if _, err := a.UpdateVehicleStatus(ctx, vehicle.StatusUpdate{VehicleID: 99, Status: vehicle.StatusRetired}); err != nil {
		t.Fatal(err)
	}
	if n := tr.called()["GetVehicleByID"]; n != 0 {
		t.Errorf("GetVehicleByID(42) refetched %d times after update of vehicle 99", n)
	}
}

func TestMutationRefetchCoverage_LinkedIDs(t *testing.T) {
	tests := []struct {
		name   string
		result string
		run    func(ctx context.Context, a *app.API) error
		query  string
		want   int
	}{
		{
			name:   "booking for another vehicle",
			result: `{"booking_id":5,"vehicle_id":99}`,
			run: func(ctx context.Context, a *app.API) error {
				return ignore(a.UpdateBookingStatus(ctx, booking.StatusUpdate{BookingID: 5, Status: booking.StatusCompleted}))
			},
			query: "GetVehicleByID",
			want:  0,
		},
		{
			name:   "new booking names the vehicle before the backend echoes it",
			result: `{"booking_id":6}`,
			run: func(ctx context.Context, a *app.API) error {
				return ignore(a.CreateBooking(ctx, booking.Input{UserID: "u1", VehicleID: 42}))
			},
			query: "GetVehicleByID",
			want:  1,
		},
		{
			name:   "refund of another booking",
			result: `{"payment_id":3,"booking_id":8}`,
			run: func(ctx context.Context, a *app.API) error {
				return ignore(a.RefundPayment(ctx, payment.Refund{PaymentID: 3}))
			},
			query: "GetBookingByID",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			tr := newFakeTransport()
			a := newTestAPI(t, tr, nil)
			subscribeAll(t, ctx, a)
			tr.reset()
			tr.mu.Lock()
			for _, name := range []string{"CreateBooking", "UpdateBookingStatus", "RefundPayment"} {
				tr.data[name] = tt.result
			}
			tr.mu.Unlock()

			if err := tt.run(ctx, a); err != nil {
				t.Fatal(err)
			}
			if got := tr.called()[tt.query]; got != tt.want {
				t.Errorf("%s refetched %d times, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestCoverageTablesAreComplete(t *testing.T) {
	a := newTestAPI(t, newFakeTransport(), nil)

	var queries, mutations []string
	for _, ep := range a.Registry().List() {
		if ep.Kind == registry.KindQuery {
			queries = append(queries, ep.Name)
		} else {
			mutations = append(mutations, ep.Name)
		}
	}

	var watchedNames, caseNames []string
	for _, q := range allQueries {
		watchedNames = append(watchedNames, q.name)
	}
	for _, m := range mutationCases {
		caseNames = append(caseNames, m.name)
	}

	assertSameSet(t, "queries", queries, watchedNames)
	assertSameSet(t, "mutations", mutations, caseNames)

	if findings := a.Registry().Audit(); len(findings) != 0 {
		t.Errorf("Audit() = %v", findings)
	}
}

func assertSameSet(t *testing.T, what string, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("%s: registered %v, covered %v", what, got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("%s: registered %v, covered %v", what, got, want)
		}
	}
}

func TestDependent_EvaluateAfterClose(t *testing.T) {
	ctx := context.Background()
	tr := newFakeTransport()
	a := newTestAPI(t, tr, nil)

	d := app.NewDependent(a, app.GetVehicleByIDQuery)
	if _, err := d.Evaluate(ctx, false, 42); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if st, err := d.Wait(ctx); err != nil || !st.IsSuccess() {
		t.Fatalf("Wait() = %+v, %v", st, err)
	}
	d.Close()

	st, err := d.Evaluate(ctx, false, 42)
	if err != nil {
		t.Fatalf("Evaluate() after Close error = %v", err)
	}
	if !st.IsSkipped() {
		t.Errorf("Evaluate() after Close = %v, want idle", st.Status)
	}
	if _, ok := d.Data(); ok {
		t.Error("Data() after Close should be empty")
	}
	if n := tr.called()["GetVehicleByID"]; n != 1 {
		t.Errorf("GetVehicleByID sent %d times, want 1", n)
	}
	d.Close()
}
