// Package idgen provides ID generation implementations.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/artpar/rentdesk/ports"
	"github.com/google/uuid"
)

// RequestID generates request correlation ids sent as X-Request-ID.
type RequestID struct {
	Prefix string
}

// New generates a new prefixed UUID v4.
func (g RequestID) New() string {
	return g.Prefix + uuid.New().String()
}

// Ensure interface compliance.
var _ ports.IDGenerator = RequestID{}

// Sequential generates predictable ids (for testing).
type Sequential struct {
	prefix  string
	counter uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return s.prefix + strconv.FormatUint(n, 10)
}

// Ensure interface compliance.
var _ ports.IDGenerator = (*Sequential)(nil)
