// Package booking provides reservation DTOs.
package booking

import (
	"time"

	"github.com/artpar/rentdesk/domain/filter"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// VehicleSummary is the vehicle projection embedded in booking responses.
type VehicleSummary struct {
	VehicleID int    `json:"vehicle_id"`
	Make      string `json:"make"`
	Model     string `json:"model"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Booking is a reservation of one vehicle by one customer.
type Booking struct {
	BookingID      int             `json:"booking_id"`
	UserID         string          `json:"user_id"`
	VehicleID      int             `json:"vehicle_id"`
	PickupDate     time.Time       `json:"pickup_date"`
	ReturnDate     time.Time       `json:"return_date"`
	PickupLocation string          `json:"pickup_location,omitempty"`
	ReturnLocation string          `json:"return_location,omitempty"`
	TotalAmount    float64         `json:"total_amount"`
	Status         Status          `json:"status"`
	Vehicle        *VehicleSummary `json:"vehicle,omitempty"`
	CreatedAt      time.Time       `json:"created_at,omitempty"`
}

// Input is the body of a create request.
type Input struct {
	UserID         string    `json:"user_id"`
	VehicleID      int       `json:"vehicle_id"`
	PickupDate     time.Time `json:"pickup_date"`
	ReturnDate     time.Time `json:"return_date"`
	PickupLocation string    `json:"pickup_location,omitempty"`
	ReturnLocation string    `json:"return_location,omitempty"`
}

// StatusUpdate is the argument of a status change.
type StatusUpdate struct {
	BookingID int    `json:"booking_id"`
	Status    Status `json:"status"`
}

// Cancellation is the argument of a cancel request.
type Cancellation struct {
	BookingID int    `json:"booking_id"`
	Reason    string `json:"reason,omitempty"`
}

// Search holds optional list criteria.
type Search struct {
	Status    Status
	UserID    string
	VehicleID *int
	From      *time.Time
	To        *time.Time
}

// Filter converts the search into a query filter.
func (s Search) Filter() filter.Filter {
	return filter.New().
		Set("status", string(s.Status)).
		Set("user_id", s.UserID).
		Set("vehicle_id", s.VehicleID).
		Set("from", s.From).
		Set("to", s.To)
}

// IDs returns the ids of bs in order.
func IDs(bs []Booking) []int {
	ids := make([]int, len(bs))
	for i, b := range bs {
		ids[i] = b.BookingID
	}
	return ids
}
