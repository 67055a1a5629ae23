// Package querystate models the lifecycle of a single cached query as seen
// by one consumer, including the "skip until ready" precondition.
package querystate

import "time"

// Status is the coarse lifecycle position of a query.
type Status int

const (
	// Idle means the query is waiting on a precondition. Not loading, not failed.
	Idle Status = iota
	// Fetching means the first request for the current key is in flight.
	Fetching
	// Success means data is available (a background refetch may be running).
	Success
	// Error means the last request failed.
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// State is what a consumer observes for one query.
type State struct {
	Status     Status
	Data       any
	Err        error
	FetchedAt  time.Time
	IsFetching bool // true while any request for the key is in flight, including refetches
}

// IsSkipped reports the pending-but-not-loading state.
func (s State) IsSkipped() bool { return s.Status == Idle }

// IsLoading reports whether the first request for the key is in flight.
func (s State) IsLoading() bool { return s.Status == Fetching }

// IsSuccess reports whether data is available.
func (s State) IsSuccess() bool { return s.Status == Success }

// IsError reports whether the last request failed.
func (s State) IsError() bool { return s.Status == Error }

// Machine guards the Idle -> Fetching transition of a conditional query.
// Repeated evaluations with the same key while not skipped do not re-trigger.
// Machine is not safe for concurrent use; callers serialize access.
type Machine struct {
	status Status
	key    string
	armed  bool
}

// Status returns the machine's current status.
func (m *Machine) Status() Status {
	return m.status
}

// Key returns the key of the last fetch the machine started.
func (m *Machine) Key() string {
	return m.key
}

// Evaluate is called on every render with the current skip predicate and the
// cache key the query would use. It reports whether a fetch must start now.
func (m *Machine) Evaluate(skip bool, key string) bool {
	if skip {
		m.status = Idle
		m.armed = false
		m.key = ""
		return false
	}
	if m.armed && m.key == key {
		return false
	}
	m.armed = true
	m.key = key
	m.status = Fetching
	return true
}

// Observe folds a state reported by the cache into the consumer's view.
// While skipped the consumer always sees Idle regardless of cached data.
func (m *Machine) Observe(s State) State {
	if !m.armed {
		return State{Status: Idle}
	}
	m.status = s.Status
	return s
}
