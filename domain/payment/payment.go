// Package payment provides payment and refund DTOs.
package payment

import (
	"time"

	"github.com/artpar/rentdesk/domain/filter"
)

// Status is the settlement state of a payment.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusRefunded  Status = "Refunded"
)

// Payment is a charge against a booking.
type Payment struct {
	PaymentID     int        `json:"payment_id"`
	BookingID     int        `json:"booking_id"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	Method        string     `json:"method"`
	Status        Status     `json:"status"`
	TransactionID string     `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// Method is a payment method the platform accepts.
type Method struct {
	MethodID string `json:"method_id"`
	Type     string `json:"type"`
	Label    string `json:"label"`
	Enabled  bool   `json:"enabled"`
}

// MethodUpdate toggles or relabels a payment method.
type MethodUpdate struct {
	MethodID string `json:"method_id"`
	Label    string `json:"label,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// Refund is the argument of a refund request.
type Refund struct {
	PaymentID int     `json:"payment_id"`
	Amount    float64 `json:"amount,omitempty"` // zero refunds the full amount
	Reason    string  `json:"reason,omitempty"`
}

// Search holds optional list criteria.
type Search struct {
	Status    Status
	BookingID *int
	From      *time.Time
	To        *time.Time
}

// Filter converts the search into a query filter.
func (s Search) Filter() filter.Filter {
	return filter.New().
		Set("status", string(s.Status)).
		Set("booking_id", s.BookingID).
		Set("from", s.From).
		Set("to", s.To)
}

// IDs returns the ids of ps in order.
func IDs(ps []Payment) []int {
	ids := make([]int, len(ps))
	for i, p := range ps {
		ids[i] = p.PaymentID
	}
	return ids
}
