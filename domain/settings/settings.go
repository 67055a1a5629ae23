// Package settings provides the admin console's settings DTOs.
package settings

import (
	"time"

	"github.com/artpar/rentdesk/domain/filter"
)

// General holds company-wide settings.
type General struct {
	CompanyName       string        `json:"company_name"`
	SupportEmail      string        `json:"support_email"`
	SupportPhone      string        `json:"support_phone,omitempty"`
	Currency          string        `json:"currency"`
	Timezone          string        `json:"timezone"`
	BookingLeadHours  int           `json:"booking_lead_hours"`
	CancellationHours int           `json:"cancellation_hours"`
	TaxRate           float64       `json:"tax_rate"`
	Notifications     Notifications `json:"notifications"`
	UpdatedAt         time.Time     `json:"updated_at,omitempty"`
}

// Notifications toggles outbound messages.
type Notifications struct {
	EmailOnBooking      bool `json:"email_on_booking"`
	EmailOnCancellation bool `json:"email_on_cancellation"`
	SMSReminders        bool `json:"sms_reminders"`
	AdminDailyDigest    bool `json:"admin_daily_digest"`
}

// Defaults returns the values the console shows before settings load.
func Defaults() General {
	return General{
		Currency:          "USD",
		Timezone:          "UTC",
		BookingLeadHours:  2,
		CancellationHours: 24,
	}
}

// WithDefaults fills zero fields of g from Defaults.
func WithDefaults(g General) General {
	d := Defaults()
	if g.Currency == "" {
		g.Currency = d.Currency
	}
	if g.Timezone == "" {
		g.Timezone = d.Timezone
	}
	if g.BookingLeadHours == 0 {
		g.BookingLeadHours = d.BookingLeadHours
	}
	if g.CancellationHours == 0 {
		g.CancellationHours = d.CancellationHours
	}
	return g
}

// Security holds authentication policy.
type Security struct {
	TwoFactorRequired     bool     `json:"two_factor_required"`
	SessionTimeoutMinutes int      `json:"session_timeout_minutes"`
	PasswordMinLength     int      `json:"password_min_length"`
	MaxLoginAttempts      int      `json:"max_login_attempts"`
	IPWhitelist           []string `json:"ip_whitelist"`
}

// LoginAttempt is one entry of the security login history.
type LoginAttempt struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty"`
	Success   bool      `json:"success"`
	At        time.Time `json:"at"`
}

// HistorySearch narrows the login history.
type HistorySearch struct {
	UserID  string
	Success *bool
	Limit   int
}

// Filter converts the search into a query filter.
func (s HistorySearch) Filter() filter.Filter {
	f := filter.New().
		Set("user_id", s.UserID).
		Set("success", s.Success)
	if s.Limit > 0 {
		f = f.Set("limit", s.Limit)
	}
	return f
}
