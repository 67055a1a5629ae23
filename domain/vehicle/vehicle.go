// Package vehicle provides the fleet DTOs exchanged with the rental backend.
package vehicle

import (
	"time"

	"github.com/artpar/rentdesk/domain/filter"
)

// Status is the operational state of a vehicle.
type Status string

const (
	StatusAvailable   Status = "Available"
	StatusRented      Status = "Rented"
	StatusMaintenance Status = "Maintenance"
	StatusRetired     Status = "Retired"
)

// Valid reports whether s is a status the backend accepts.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusRented, StatusMaintenance, StatusRetired:
		return true
	}
	return false
}

// Vehicle is a fleet entry.
type Vehicle struct {
	VehicleID    int       `json:"vehicle_id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	LicensePlate string    `json:"license_plate"`
	Category     string    `json:"category"`
	DailyRate    float64   `json:"daily_rate"`
	Status       Status    `json:"status"`
	Location     string    `json:"location,omitempty"`
	Seats        int       `json:"seats,omitempty"`
	FuelType     string    `json:"fuel_type,omitempty"`
	Transmission string    `json:"transmission,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Input is the body of create and update requests.
type Input struct {
	Make         string  `json:"make,omitempty"`
	Model        string  `json:"model,omitempty"`
	Year         int     `json:"year,omitempty"`
	LicensePlate string  `json:"license_plate,omitempty"`
	Category     string  `json:"category,omitempty"`
	DailyRate    float64 `json:"daily_rate,omitempty"`
	Status       Status  `json:"status,omitempty"`
	Location     string  `json:"location,omitempty"`
	Seats        int     `json:"seats,omitempty"`
	FuelType     string  `json:"fuel_type,omitempty"`
	Transmission string  `json:"transmission,omitempty"`
	ImageURL     string  `json:"image_url,omitempty"`
}

// StatusUpdate is the argument of a status change.
type StatusUpdate struct {
	VehicleID int    `json:"vehicle_id"`
	Status    Status `json:"status"`
}

// Search holds the optional search criteria of list queries.
// Nil pointers and empty strings are omitted from the query string.
type Search struct {
	Category     string
	Status       Status
	Location     string
	MinRate      *float64
	MaxRate      *float64
	StartDate    *time.Time
	EndDate      *time.Time
	Seats        *int
	Transmission string
	Query        string
}

// Filter converts the search into a query filter in a fixed key order.
func (s Search) Filter() filter.Filter {
	return filter.New().
		Set("category", s.Category).
		Set("status", string(s.Status)).
		Set("location", s.Location).
		Set("min_rate", s.MinRate).
		Set("max_rate", s.MaxRate).
		Set("start_date", s.StartDate).
		Set("end_date", s.EndDate).
		Set("seats", s.Seats).
		Set("transmission", s.Transmission).
		Set("search", s.Query)
}

// IDs returns the ids of vs in order.
func IDs(vs []Vehicle) []int {
	ids := make([]int, len(vs))
	for i, v := range vs {
		ids[i] = v.VehicleID
	}
	return ids
}
