package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// TransportError means no response was received (offline, DNS, timeout).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError represents a non-2xx response. The raw body is kept so callers
// can inspect it.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

// Message extracts a human readable message from the body. Envelope bodies
// yield their error/message field; anything else yields the trimmed body.
func (e *HTTPError) Message() string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(e.Body), &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	if len(e.Body) > 200 {
		return e.Body[:200]
	}
	return e.Body
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// IsUnauthorized returns true if the error is a 401. Screens treat it as an
// auth failure and redirect to sign-in.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsTransport returns true if no response was received.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
