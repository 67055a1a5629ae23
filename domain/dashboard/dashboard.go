// Package dashboard provides dashboard DTOs and the per-field fallback merge
// used to compose a dashboard from independent queries.
// A failure in one query only replaces that query's field with its default.
package dashboard

import (
	"sort"
	"time"

	"github.com/artpar/rentdesk/domain/booking"
	"github.com/artpar/rentdesk/domain/filter"
)

// Field names used as keys of the Errors map.
const (
	FieldStats           = "stats"
	FieldUpcoming        = "upcoming_bookings"
	FieldActivity        = "recent_activity"
	FieldRecommendations = "recommendations"
	FieldRevenue         = "revenue"
	FieldRecentBookings  = "recent_bookings"
)

// UserStats summarizes a customer's account.
type UserStats struct {
	TotalBookings  int     `json:"total_bookings"`
	ActiveBookings int     `json:"active_bookings"`
	TotalSpent     float64 `json:"total_spent"`
	LoyaltyPoints  int     `json:"loyalty_points"`
	ReviewsWritten int     `json:"reviews_written"`
}

// ActivityItem is one line of a customer's recent activity feed.
type ActivityItem struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

// Recommendation is a vehicle suggested to a customer.
type Recommendation struct {
	VehicleID int     `json:"vehicle_id"`
	Make      string  `json:"make"`
	Model     string  `json:"model"`
	DailyRate float64 `json:"daily_rate"`
	ImageURL  string  `json:"image_url,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// AdminStats summarizes the platform for the admin console.
type AdminStats struct {
	TotalVehicles     int     `json:"total_vehicles"`
	AvailableVehicles int     `json:"available_vehicles"`
	ActiveBookings    int     `json:"active_bookings"`
	TotalUsers        int     `json:"total_users"`
	MonthlyRevenue    float64 `json:"monthly_revenue"`
	PendingReviews    int     `json:"pending_reviews"`
}

// RevenuePoint is one bucket of the revenue series.
type RevenuePoint struct {
	Period string  `json:"period"`
	Amount float64 `json:"amount"`
}

// Result is the outcome of one query feeding a dashboard field.
type Result[T any] struct {
	Data T
	Err  error
}

// Value returns the data when the query succeeded and def otherwise.
func (r Result[T]) Value(def T) T {
	if r.Err != nil {
		return def
	}
	return r.Data
}

// DefaultUserStats is shown when the stats query fails.
func DefaultUserStats() UserStats {
	return UserStats{}
}

// DefaultAdminStats is shown when the admin stats query fails.
func DefaultAdminStats() AdminStats {
	return AdminStats{}
}

// UserResults are the raw outcomes of the customer dashboard queries.
type UserResults struct {
	Stats           Result[UserStats]
	Upcoming        Result[[]booking.Booking]
	Activity        Result[[]ActivityItem]
	Recommendations Result[[]Recommendation]
}

// UserDashboard is the merged customer view.
type UserDashboard struct {
	Stats           UserStats         `json:"stats"`
	Upcoming        []booking.Booking `json:"upcoming_bookings"`
	Activity        []ActivityItem    `json:"recent_activity"`
	Recommendations []Recommendation  `json:"recommendations"`
	Errors          map[string]error  `json:"-"`
}

// MergeUser composes the customer view, falling back per field.
func MergeUser(r UserResults) UserDashboard {
	d := UserDashboard{
		Stats:           r.Stats.Value(DefaultUserStats()),
		Upcoming:        nonNil(r.Upcoming.Value(nil)),
		Activity:        nonNil(r.Activity.Value(nil)),
		Recommendations: nonNil(r.Recommendations.Value(nil)),
		Errors:          make(map[string]error),
	}
	record(d.Errors, FieldStats, r.Stats.Err)
	record(d.Errors, FieldUpcoming, r.Upcoming.Err)
	record(d.Errors, FieldActivity, r.Activity.Err)
	record(d.Errors, FieldRecommendations, r.Recommendations.Err)
	return d
}

// AdminResults are the raw outcomes of the admin dashboard queries.
type AdminResults struct {
	Stats          Result[AdminStats]
	Revenue        Result[[]RevenuePoint]
	RecentBookings Result[[]booking.Booking]
}

// AdminDashboard is the merged admin view.
type AdminDashboard struct {
	Stats          AdminStats        `json:"stats"`
	Revenue        []RevenuePoint    `json:"revenue"`
	RecentBookings []booking.Booking `json:"recent_bookings"`
	Errors         map[string]error  `json:"-"`
}

// MergeAdmin composes the admin view, falling back per field.
func MergeAdmin(r AdminResults) AdminDashboard {
	d := AdminDashboard{
		Stats:          r.Stats.Value(DefaultAdminStats()),
		Revenue:        nonNil(r.Revenue.Value(nil)),
		RecentBookings: nonNil(r.RecentBookings.Value(nil)),
		Errors:         make(map[string]error),
	}
	record(d.Errors, FieldStats, r.Stats.Err)
	record(d.Errors, FieldRevenue, r.Revenue.Err)
	record(d.Errors, FieldRecentBookings, r.RecentBookings.Err)
	return d
}

// FailedFields returns the sorted names of fields that fell back.
func FailedFields(errs map[string]error) []string {
	out := make([]string, 0, len(errs))
	for k := range errs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func record(errs map[string]error, field string, err error) {
	if err != nil {
		errs[field] = err
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// RevenueSearch selects the revenue series window.
type RevenueSearch struct {
	Period string // day, week, month
	From   *time.Time
	To     *time.Time
}

// Filter converts the search into a query filter.
func (s RevenueSearch) Filter() filter.Filter {
	return filter.New().
		Set("period", s.Period).
		Set("from", s.From).
		Set("to", s.To)
}
