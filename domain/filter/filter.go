// Package filter serializes optional filter objects into query strings and
// cache keys. Serialization is deterministic: the same filter always yields
// the same string.
package filter

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"
)

type pair struct {
	key   string
	value any
}

// Filter is an ordered set of optional query parameters.
// The zero value is an empty filter.
type Filter struct {
	pairs []pair
}

// New creates an empty filter.
func New() Filter {
	return Filter{}
}

// FromMap builds a filter from a map. Keys are sorted since maps carry no order.
func FromMap(m map[string]any) Filter {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := New()
	for _, k := range keys {
		f = f.Set(k, m[k])
	}
	return f
}

// Set returns a copy of the filter with key set to value.
// A key that is already present keeps its original position.
func (f Filter) Set(key string, value any) Filter {
	pairs := make([]pair, len(f.pairs), len(f.pairs)+1)
	copy(pairs, f.pairs)
	for i := range pairs {
		if pairs[i].key == key {
			pairs[i].value = value
			return Filter{pairs: pairs}
		}
	}
	return Filter{pairs: append(pairs, pair{key: key, value: value})}
}

// Get returns the raw value stored for key.
func (f Filter) Get(key string) (any, bool) {
	for _, p := range f.pairs {
		if p.key == key {
			return p.value, true
		}
	}
	return nil, false
}

// Len returns the number of keys that survive Encode.
func (f Filter) Len() int {
	n := 0
	for _, p := range f.pairs {
		if _, ok := stringify(p.value); ok {
			n++
		}
	}
	return n
}

// Encode returns "k1=v1&k2=v2" in insertion order, omitting nil and empty values.
func (f Filter) Encode() string {
	var b strings.Builder
	for _, p := range f.pairs {
		s, ok := stringify(p.value)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(s))
	}
	return b.String()
}

// CacheKey implements Keyer.
func (f Filter) CacheKey() string {
	return f.Encode()
}

// AppendTo appends the encoded filter to path with the right separator.
func (f Filter) AppendTo(path string) string {
	q := f.Encode()
	if q == "" {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&" + q
	}
	return path + "?" + q
}

// stringify renders a filter value. ok is false when the value must be omitted.
func stringify(v any) (string, bool) {
	if v == nil {
		return "", false
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	v = rv.Interface()

	switch val := v.(type) {
	case string:
		return val, val != ""
	case time.Time:
		if val.IsZero() {
			return "", false
		}
		return val.Format(time.RFC3339), true
	case fmt.Stringer:
		s := val.String()
		return s, s != ""
	default:
		return fmt.Sprint(val), true
	}
}

// Keyer is implemented by argument types that know their own cache key.
type Keyer interface {
	CacheKey() string
}

// Key serializes an endpoint name and its arguments into a cache key.
func Key(endpoint string, args any) string {
	if args == nil {
		return endpoint
	}

	var suffix string
	switch a := args.(type) {
	case Keyer:
		suffix = a.CacheKey()
	case string:
		suffix = a
	case int, int32, int64, uint, uint32, uint64, bool:
		suffix = fmt.Sprint(a)
	case struct{}:
		suffix = ""
	default:
		if b, err := json.Marshal(args); err == nil {
			suffix = string(b)
		} else {
			suffix = fmt.Sprintf("%#v", args)
		}
	}

	if suffix == "" {
		return endpoint
	}
	return endpoint + "(" + suffix + ")"
}
