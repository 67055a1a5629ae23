// Package review provides customer review DTOs.
package review

import (
	"errors"
	"time"
)

// Review is a customer's rating of a rented vehicle.
type Review struct {
	ReviewID   int       `json:"review_id"`
	UserID     string    `json:"user_id"`
	VehicleID  int       `json:"vehicle_id"`
	BookingID  int       `json:"booking_id,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	IsVisible  bool      `json:"is_visible"`
	AuthorName string    `json:"author_name,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Input is the body of a create request.
type Input struct {
	UserID    string `json:"user_id"`
	VehicleID int    `json:"vehicle_id"`
	BookingID int    `json:"booking_id,omitempty"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// ErrRating is returned for ratings outside 1..5.
var ErrRating = errors.New("rating must be between 1 and 5")

// Validate checks the one constraint the backend rejects without a message.
func (in Input) Validate() error {
	if in.Rating < 1 || in.Rating > 5 {
		return ErrRating
	}
	return nil
}

// Visibility is the argument of a moderation change.
type Visibility struct {
	ReviewID  int  `json:"review_id"`
	IsVisible bool `json:"is_visible"`
}

// IDs returns the ids of rs in order.
func IDs(rs []Review) []int {
	ids := make([]int, len(rs))
	for i, r := range rs {
		ids[i] = r.ReviewID
	}
	return ids
}

// AverageRating returns the mean rating, or 0 for no reviews.
func AverageRating(rs []Review) float64 {
	if len(rs) == 0 {
		return 0
	}
	sum := 0
	for _, r := range rs {
		sum += r.Rating
	}
	return float64(sum) / float64(len(rs))
}
