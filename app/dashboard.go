package app

import (
	"context"
	"strconv"

	"github.com/artpar/rentdesk/core/querycache"
	"github.com/artpar/rentdesk/domain/booking"
	"github.com/artpar/rentdesk/domain/dashboard"
	"github.com/artpar/rentdesk/domain/envelope"
	"github.com/artpar/rentdesk/domain/filter"
	"github.com/artpar/rentdesk/domain/querystate"
	"github.com/artpar/rentdesk/domain/tag"
)

func userDashboardQuery[R any](name, suffix string, shape envelope.Shape) querycache.QueryDef[string, R] {
	return querycache.QueryDef[string, R]{
		Name:   name,
		Domain: DomainDashboard,
		Path:   "/dashboard/user/{userID}" + suffix,
		URL: func(userID string) (string, error) {
			return stringPath("/dashboard/user", userID, suffix)
		},
		Shape: shape,
		Provides: func(userID string, _ R) tag.Set {
			return tag.Set{tag.List(tag.UserDashboard), tag.ID(tag.UserDashboard, userID)}
		},
		Types: []tag.Type{tag.UserDashboard},
	}
}

func provideAdminDashboard[A, R any](A, R) tag.Set {
	return tag.Set{tag.List(tag.AdminDashboard)}
}

var (
	GetUserStatsQuery        = userDashboardQuery[dashboard.UserStats]("GetUserStats", "/stats", envelope.ShapeObject)
	GetUpcomingBookingsQuery = userDashboardQuery[[]booking.Booking]("GetUpcomingBookings", "/upcoming-bookings", envelope.ShapeList)
	GetRecentActivityQuery   = userDashboardQuery[[]dashboard.ActivityItem]("GetRecentActivity", "/activity", envelope.ShapeList)
	GetRecommendationsQuery  = userDashboardQuery[[]dashboard.Recommendation]("GetRecommendations", "/recommendations", envelope.ShapeList)
	adminDashboardTypes      = []tag.Type{tag.AdminDashboard}

	GetAdminStatsQuery = querycache.QueryDef[struct{}, dashboard.AdminStats]{
		Name:     "GetAdminStats",
		Domain:   DomainAdmin,
		Path:     "/admin/dashboard/stats",
		URL:      fixed("/admin/dashboard/stats"),
		Shape:    envelope.ShapeObject,
		Provides: provideAdminDashboard[struct{}, dashboard.AdminStats],
		Types:    adminDashboardTypes,
	}

	GetRevenueSeriesQuery = querycache.QueryDef[filter.Filter, []dashboard.RevenuePoint]{
		Name:     "GetRevenueSeries",
		Domain:   DomainAdmin,
		Path:     "/admin/dashboard/revenue",
		URL:      func(f filter.Filter) (string, error) { return f.AppendTo("/admin/dashboard/revenue"), nil },
		Shape:    envelope.ShapeList,
		Provides: provideAdminDashboard[filter.Filter, []dashboard.RevenuePoint],
		Types:    adminDashboardTypes,
	}

	GetRecentBookingsQuery = querycache.QueryDef[int, []booking.Booking]{
		Name:   "GetRecentBookings",
		Domain: DomainAdmin,
		Path:   "/admin/dashboard/recent-bookings",
		URL: func(limit int) (string, error) {
			path := "/admin/dashboard/recent-bookings"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}
			return path, nil
		},
		Shape: envelope.ShapeList,
		// Recent bookings sit on the admin dashboard but are bookings too.
		Provides: func(_ int, bs []booking.Booking) tag.Set {
			return tag.Union(tag.Set{tag.List(tag.AdminDashboard)}, tag.ListAndIDs(tag.Booking, booking.IDs(bs)))
		},
		Types: []tag.Type{tag.AdminDashboard, tag.Booking},
	}
)

func dashboardDefinitions() []Definition {
	return []Definition{
		GetUserStatsQuery,
		GetUpcomingBookingsQuery,
		GetRecentActivityQuery,
		GetRecommendationsQuery,
		GetAdminStatsQuery,
		GetRevenueSeriesQuery,
		GetRecentBookingsQuery,
	}
}

func (a *API) GetUserStats(ctx context.Context, userID string) (dashboard.UserStats, error) {
	return Query(ctx, a, GetUserStatsQuery, userID)
}

func (a *API) GetUpcomingBookings(ctx context.Context, userID string) ([]booking.Booking, error) {
	return Query(ctx, a, GetUpcomingBookingsQuery, userID)
}

func (a *API) GetRecentActivity(ctx context.Context, userID string) ([]dashboard.ActivityItem, error) {
	return Query(ctx, a, GetRecentActivityQuery, userID)
}

func (a *API) GetRecommendations(ctx context.Context, userID string) ([]dashboard.Recommendation, error) {
	return Query(ctx, a, GetRecommendationsQuery, userID)
}

func (a *API) GetAdminStats(ctx context.Context) (dashboard.AdminStats, error) {
	return Query(ctx, a, GetAdminStatsQuery, struct{}{})
}

func (a *API) GetRevenueSeries(ctx context.Context, s dashboard.RevenueSearch) ([]dashboard.RevenuePoint, error) {
	return Query(ctx, a, GetRevenueSeriesQuery, s.Filter())
}

// GetRecentBookings returns the latest bookings; limit <= 0 uses the
// backend default.
func (a *API) GetRecentBookings(ctx context.Context, limit int) ([]booking.Booking, error) {
	return Query(ctx, a, GetRecentBookingsQuery, limit)
}

// DefaultRecentBookings is the number of recent bookings on the admin dashboard.
const DefaultRecentBookings = 5

// UserDashboard loads the customer dashboard for the signed-in user. It is
// skipped (Idle, no requests) while the session has no user id. The four
// queries run in parallel and each field falls back on its own failure.
func (a *API) UserDashboard(ctx context.Context) (dashboard.UserDashboard, querystate.Status) {
	userID := a.Session().UserID
	if userID == "" {
		return dashboard.MergeUser(dashboard.UserResults{}), querystate.Idle
	}

	var r dashboard.UserResults
	errs := querycache.Parallel(ctx,
		func(ctx context.Context) (err error) {
			r.Stats.Data, err = a.GetUserStats(ctx, userID)
			return err
		},
		func(ctx context.Context) (err error) {
			r.Upcoming.Data, err = a.GetUpcomingBookings(ctx, userID)
			return err
		},
		func(ctx context.Context) (err error) {
			r.Activity.Data, err = a.GetRecentActivity(ctx, userID)
			return err
		},
		func(ctx context.Context) (err error) {
			r.Recommendations.Data, err = a.GetRecommendations(ctx, userID)
			return err
		},
	)
	r.Stats.Err, r.Upcoming.Err, r.Activity.Err, r.Recommendations.Err = errs[0], errs[1], errs[2], errs[3]

	d := dashboard.MergeUser(r)
	return d, mergedStatus(len(d.Errors), len(errs))
}

// AdminDashboard loads the admin dashboard with per-field fallback.
func (a *API) AdminDashboard(ctx context.Context, revenue dashboard.RevenueSearch) (dashboard.AdminDashboard, querystate.Status) {
	var r dashboard.AdminResults
	errs := querycache.Parallel(ctx,
		func(ctx context.Context) (err error) {
			r.Stats.Data, err = a.GetAdminStats(ctx)
			return err
		},
		func(ctx context.Context) (err error) {
			r.Revenue.Data, err = a.GetRevenueSeries(ctx, revenue)
			return err
		},
		func(ctx context.Context) (err error) {
			r.RecentBookings.Data, err = a.GetRecentBookings(ctx, DefaultRecentBookings)
			return err
		},
	)
	r.Stats.Err, r.Revenue.Err, r.RecentBookings.Err = errs[0], errs[1], errs[2]

	d := dashboard.MergeAdmin(r)
	return d, mergedStatus(len(d.Errors), len(errs))
}

// mergedStatus is Error only when every query failed.
func mergedStatus(failed, total int) querystate.Status {
	if failed == total {
		return querystate.Error
	}
	return querystate.Success
}
