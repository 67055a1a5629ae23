package app

import (
	"context"
	"net/http"

	"github.com/artpar/rentdesk/core/querycache"
	"github.com/artpar/rentdesk/domain/booking"
	"github.com/artpar/rentdesk/domain/envelope"
	"github.com/artpar/rentdesk/domain/filter"
	"github.com/artpar/rentdesk/domain/tag"
)

// A booking change moves vehicle availability and both dashboards.
var bookingMutationTypes = []tag.Type{tag.Booking, tag.Vehicle, tag.UserDashboard, tag.AdminDashboard}

// invalidateBooking also names the booked vehicle, whose status and
// availability follow the booking.
func invalidateBooking(id int, vehicleIDs ...int) tag.Set {
	tags := tag.Set{
		tag.List(tag.Booking),
		tag.List(tag.Vehicle),
		tag.List(tag.UserDashboard),
		tag.List(tag.AdminDashboard),
	}
	if id > 0 {
		tags = append(tags, tag.ID(tag.Booking, id))
	}
	for _, v := range vehicleIDs {
		if v > 0 {
			tags = append(tags, tag.ID(tag.Vehicle, v))
		}
	}
	return tag.Union(tags)
}

func provideBookings[A any](_ A, bs []booking.Booking) tag.Set {
	return tag.ListAndIDs(tag.Booking, booking.IDs(bs))
}

var (
	GetBookingsQuery = querycache.QueryDef[filter.Filter, []booking.Booking]{
		Name:     "GetBookings",
		Domain:   DomainBookings,
		Path:     "/bookings",
		URL:      func(f filter.Filter) (string, error) { return f.AppendTo("/bookings"), nil },
		Shape:    envelope.ShapeList,
		Provides: provideBookings[filter.Filter],
		Types:    []tag.Type{tag.Booking},
	}

	GetUserBookingsQuery = querycache.QueryDef[string, []booking.Booking]{
		Name:     "GetUserBookings",
		Domain:   DomainBookings,
		Path:     "/bookings/user/{userID}",
		URL:      func(userID string) (string, error) { return stringPath("/bookings/user", userID, "") },
		Shape:    envelope.ShapeList,
		Provides: provideBookings[string],
		Types:    []tag.Type{tag.Booking},
	}

	GetBookingByIDQuery = querycache.QueryDef[int, booking.Booking]{
		Name:   "GetBookingByID",
		Domain: DomainBookings,
		Path:   "/bookings/{id}",
		URL:    func(id int) (string, error) { return intPath("/bookings", id, "") },
		Shape:  envelope.ShapeObject,
		Provides: func(id int, _ booking.Booking) tag.Set {
			return tag.Set{tag.ID(tag.Booking, id)}
		},
		Types: []tag.Type{tag.Booking},
	}

	CreateBookingMutation = querycache.MutationDef[booking.Input, booking.Booking]{
		Name:   "CreateBooking",
		Domain: DomainBookings,
		Method: http.MethodPost,
		Path:   "/bookings",
		URL:    func(booking.Input) (string, error) { return "/bookings", nil },
		Body:   func(in booking.Input) any { return in },
		Shape:  envelope.ShapeObject,
		Invalidates: func(in booking.Input, b booking.Booking) tag.Set {
			return invalidateBooking(0, in.VehicleID, b.VehicleID)
		},
		Types:   bookingMutationTypes,
		Affects: bookingMutationTypes,
	}

	UpdateBookingStatusMutation = querycache.MutationDef[booking.StatusUpdate, booking.Booking]{
		Name:   "UpdateBookingStatus",
		Domain: DomainBookings,
		Method: http.MethodPatch,
		Path:   "/bookings/{id}/status",
		URL: func(u booking.StatusUpdate) (string, error) {
			return intPath("/bookings", u.BookingID, "/status")
		},
		Body: func(u booking.StatusUpdate) any {
			return map[string]booking.Status{"status": u.Status}
		},
		Shape: envelope.ShapeObject,
		Invalidates: func(u booking.StatusUpdate, b booking.Booking) tag.Set {
			return invalidateBooking(u.BookingID, b.VehicleID)
		},
		Types:   bookingMutationTypes,
		Affects: bookingMutationTypes,
	}

	CancelBookingMutation = querycache.MutationDef[booking.Cancellation, booking.Booking]{
		Name:   "CancelBooking",
		Domain: DomainBookings,
		Method: http.MethodPatch,
		Path:   "/bookings/{id}/cancel",
		URL: func(c booking.Cancellation) (string, error) {
			return intPath("/bookings", c.BookingID, "/cancel")
		},
		Body: func(c booking.Cancellation) any {
			return map[string]string{"reason": c.Reason}
		},
		Shape: envelope.ShapeObject,
		Invalidates: func(c booking.Cancellation, b booking.Booking) tag.Set {
			return invalidateBooking(c.BookingID, b.VehicleID)
		},
		Types:   bookingMutationTypes,
		Affects: bookingMutationTypes,
	}
)

func bookingDefinitions() []Definition {
	return []Definition{
		GetBookingsQuery,
		GetUserBookingsQuery,
		GetBookingByIDQuery,
		CreateBookingMutation,
		UpdateBookingStatusMutation,
		CancelBookingMutation,
	}
}

// GetBookings lists bookings matching s (admin view).
func (a *API) GetBookings(ctx context.Context, s booking.Search) ([]booking.Booking, error) {
	return Query(ctx, a, GetBookingsQuery, s.Filter())
}

// GetUserBookings lists one customer's bookings.
func (a *API) GetUserBookings(ctx context.Context, userID string) ([]booking.Booking, error) {
	return Query(ctx, a, GetUserBookingsQuery, userID)
}

func (a *API) GetBookingByID(ctx context.Context, id int) (booking.Booking, error) {
	return Query(ctx, a, GetBookingByIDQuery, id)
}

func (a *API) CreateBooking(ctx context.Context, in booking.Input) (booking.Booking, error) {
	return Mutate(ctx, a, CreateBookingMutation, in)
}

func (a *API) UpdateBookingStatus(ctx context.Context, u booking.StatusUpdate) (booking.Booking, error) {
	return Mutate(ctx, a, UpdateBookingStatusMutation, u)
}

func (a *API) CancelBooking(ctx context.Context, c booking.Cancellation) (booking.Booking, error) {
	return Mutate(ctx, a, CancelBookingMutation, c)
}
