// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Session Ports
// -----------------------------------------------------------------------------

// Session is the authenticated identity the data layer reads at request time.
// The zero value is the signed-out session.
type Session struct {
	Token  string
	UserID string
	Email  string
	Role   string
}

// IsAuthenticated reports whether a credential is present.
// No enforcement happens client-side; the backend decides.
func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// IsAdmin reports whether the session carries an admin role.
func (s Session) IsAdmin() bool {
	return s.Role == "admin" || s.Role == "superadmin"
}

// SessionSource provides read-only access to the current session.
// The data layer never mutates it; the authentication flow does.
type SessionSource interface {
	Current() Session
}

// SessionNotifier is a SessionSource that reports changes. The returned
// func unregisters fn.
type SessionNotifier interface {
	SessionSource
	OnChange(fn func(Session)) func()
}

// TokenStore persists the session between process runs.
type TokenStore interface {
	// Load returns the stored session, or the zero session when none is stored.
	Load(ctx context.Context) (Session, error)

	// Save replaces the stored session.
	Save(ctx context.Context, s Session) error

	// Clear removes the stored session.
	Clear(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// Transport Ports
// -----------------------------------------------------------------------------

// Request is a prepared backend call. Token is passed explicitly so request
// preparation never reads ambient state.
type Request struct {
	Endpoint string // registry name, for logs and metrics
	Domain   string // selects the base URL
	Method   string
	Path     string // path including any encoded query string
	Body     any
	Token    string
}

// Transport executes prepared requests and returns the raw 2xx response body.
type Transport interface {
	Do(ctx context.Context, req Request) ([]byte, error)
}
