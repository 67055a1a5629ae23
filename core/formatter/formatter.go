// Package formatter provides a pluggable output formatting system.
// Formatters render command results as aligned tables, JSON or YAML.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"
)

// TableFunc writes the human readable layout of a value. Columns are
// separated by tabs and aligned by the table formatter.
type TableFunc func(w *tabwriter.Writer)

// Formatter converts a command result to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Format writes v. Structured formatters encode v and ignore table;
	// the table formatter calls table and ignores v.
	Format(w io.Writer, v any, table TableFunc, opts FormatOptions) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Compact minimizes whitespace (for json).
	Compact bool
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter, or nil when none is registered.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.formatters[r.defaultFmt]
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}

	r.defaultFmt = name
	return nil
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves name, treating "" as the default formatter.
func (r *Registry) Lookup(name string) (Formatter, error) {
	if name == "" {
		if f := r.Default(); f != nil {
			return f, nil
		}
	}
	f, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", name, r.List())
	}
	return f, nil
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Lookup resolves name against the default registry.
func Lookup(name string) (Formatter, error) {
	return DefaultRegistry.Lookup(name)
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}
