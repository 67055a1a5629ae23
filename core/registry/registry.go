// Package registry manages endpoint registration and conflict detection.
// It ensures endpoints don't claim conflicting names or query paths and
// audits that every mutation invalidates the tag types it affects.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/artpar/rentdesk/domain/tag"
)

// Kind distinguishes cached reads from writes.
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// Endpoint is the static description of one backend operation.
type Endpoint struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Kind   Kind   `json:"kind"`
	Method string `json:"method"`
	Path   string `json:"path"` // template, e.g. /vehicles/{id}

	// Provides lists the tag types a query's results carry.
	Provides []tag.Type `json:"provides,omitempty"`
	// Invalidates lists the tag types a mutation invalidates on success.
	Invalidates []tag.Type `json:"invalidates,omitempty"`
	// Affects lists the tag types whose server-side data a mutation changes.
	Affects []tag.Type `json:"affects,omitempty"`
}

// Validate checks the endpoint is well formed.
func (e Endpoint) Validate() error {
	var errs []error
	if e.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if e.Kind != KindQuery && e.Kind != KindMutation {
		errs = append(errs, fmt.Errorf("invalid kind %q", e.Kind))
	}
	if e.Method == "" {
		errs = append(errs, errors.New("method is required"))
	}
	if !strings.HasPrefix(e.Path, "/") {
		errs = append(errs, fmt.Errorf("path %q must start with /", e.Path))
	}
	if e.Kind == KindQuery && len(e.Invalidates) > 0 {
		errs = append(errs, errors.New("queries cannot invalidate tags"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("endpoint %q: %w", e.Name, errors.Join(errs...))
	}
	return nil
}

func (e Endpoint) pathKey() string {
	return e.Method + " " + e.Path
}

// Registry manages registered endpoints and their path claims.
type Registry struct {
	mu sync.RWMutex

	// endpoints by name
	endpoints map[string]Endpoint

	// query path claims: "METHOD /path" -> endpoint name
	paths map[string]string
}

// New creates a new registry.
func New() *Registry {
	return &Registry{
		endpoints: make(map[string]Endpoint),
		paths:     make(map[string]string),
	}
}

// Register registers an endpoint.
// Returns an error if it is invalid or conflicts with a registered one.
func (r *Registry) Register(ep Endpoint) error {
	if err := ep.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var conflicts []Conflict
	if existing, exists := r.endpoints[ep.Name]; exists {
		conflicts = append(conflicts, Conflict{Kind: "name", Key: ep.Name, Existing: existing.Name, New: ep.Name})
	}
	// Mutations may share a path (PUT and PATCH on one resource); queries may not,
	// since two cached reads of one resource would hold divergent copies.
	if ep.Kind == KindQuery {
		if existing, exists := r.paths[ep.pathKey()]; exists {
			conflicts = append(conflicts, Conflict{Kind: "path", Key: ep.pathKey(), Existing: existing, New: ep.Name})
		}
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}

	r.endpoints[ep.Name] = ep
	if ep.Kind == KindQuery {
		r.paths[ep.pathKey()] = ep.Name
	}
	return nil
}

// Unregister removes an endpoint from the registry.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, exists := r.endpoints[name]
	if !exists {
		return fmt.Errorf("endpoint %q not registered", name)
	}
	if r.paths[ep.pathKey()] == name {
		delete(r.paths, ep.pathKey())
	}
	delete(r.endpoints, name)
	return nil
}

// Get returns a registered endpoint by name.
func (r *Registry) Get(name string) (Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.endpoints[name]
	return ep, ok
}

// List returns all registered endpoints sorted by domain then name.
func (r *Registry) List() []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Domain != out[j].Domain {
			return out[i].Domain < out[j].Domain
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ByKind returns the registered endpoints of one kind.
func (r *Registry) ByKind(kind Kind) []Endpoint {
	var out []Endpoint
	for _, ep := range r.List() {
		if ep.Kind == kind {
			out = append(out, ep)
		}
	}
	return out
}

// LookupPath finds the query endpoint serving a concrete method and path.
func (r *Registry) LookupPath(method, path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := method + " " + path
	if name, ok := r.paths[key]; ok {
		return name, true
	}
	// Try pattern matching for parameterized paths
	for claim, name := range r.paths {
		if matchPattern(claim, key) {
			return name, true
		}
	}
	return "", false
}

// matchPattern checks if a key matches a pattern with {param} placeholders.
func matchPattern(pattern, key string) bool {
	patternParts := strings.Split(pattern, "/")
	keyParts := strings.Split(key, "/")

	if len(patternParts) != len(keyParts) {
		return false
	}

	for i, part := range patternParts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			continue // Parameter matches anything
		}
		if part != keyParts[i] {
			return false
		}
	}

	return true
}

// Finding is one tag-coverage problem reported by Audit.
type Finding struct {
	Endpoint string
	Type     tag.Type
	Queries  []string // queries left holding stale data
	Reason   string
}

func (f Finding) String() string {
	if len(f.Queries) == 0 {
		return fmt.Sprintf("%s: %s", f.Endpoint, f.Reason)
	}
	return fmt.Sprintf("%s: %s (stale: %s)", f.Endpoint, f.Reason, strings.Join(f.Queries, ", "))
}

// Audit reports mutations that change data of a type they do not
// invalidate, and queries that provide no tags at all (and so could never
// be refreshed by a mutation). An empty result means every query reading
// data a mutation changes is refreshed after that mutation succeeds.
func (r *Registry) Audit() []Finding {
	endpoints := r.List()

	readers := make(map[tag.Type][]string)
	var findings []Finding
	for _, ep := range endpoints {
		if ep.Kind != KindQuery {
			continue
		}
		if len(ep.Provides) == 0 {
			findings = append(findings, Finding{Endpoint: ep.Name, Reason: "query provides no tags"})
		}
		for _, t := range ep.Provides {
			readers[t] = append(readers[t], ep.Name)
		}
	}

	for _, ep := range endpoints {
		if ep.Kind != KindMutation {
			continue
		}
		for _, t := range ep.Affects {
			if slices.Contains(ep.Invalidates, t) {
				continue
			}
			findings = append(findings, Finding{
				Endpoint: ep.Name,
				Type:     t,
				Queries:  readers[t],
				Reason:   fmt.Sprintf("affects %s but does not invalidate it", t),
			})
		}
	}
	return findings
}

// Conflict describes one clashing registration.
type Conflict struct {
	Kind     string // "name" or "path"
	Key      string
	Existing string
	New      string
}

func (c Conflict) Error() string {
	return fmt.Sprintf("%s %q claimed by %q and %q", c.Kind, c.Key, c.Existing, c.New)
}

// ConflictError represents one or more registration conflicts.
type ConflictError struct {
	Conflicts []Conflict
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	var msgs []string
	for _, c := range e.Conflicts {
		msgs = append(msgs, c.Error())
	}
	return fmt.Sprintf("endpoint conflicts detected:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasConflicts returns true if there are any conflicts.
func (e *ConflictError) HasConflicts() bool {
	return len(e.Conflicts) > 0
}
