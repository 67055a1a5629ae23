// Package tag provides the cache tag value type used to link cached queries
// to the mutations that make them stale.
// All functions are pure.
package tag

import (
	"fmt"
	"sort"
	"strings"
)

// Type names an entity domain whose cached reads can be invalidated together.
type Type string

const (
	Vehicle          Type = "Vehicle"
	Booking          Type = "Booking"
	Review           Type = "Review"
	UserDashboard    Type = "UserDashboard"
	AdminDashboard   Type = "AdminDashboard"
	Settings         Type = "Settings"
	SecuritySettings Type = "SecuritySettings"
	AdminUser        Type = "AdminUser"
	Payment          Type = "Payment"
	PaymentMethod    Type = "PaymentMethod"
)

// ListID is the reserved id of the collection tag of a type.
const ListID = "LIST"

// Tag is a label attached to cached query results and to mutations.
// An empty ID means the tag covers every tag of its type.
type Tag struct {
	Type Type
	ID   string
}

// List returns the collection tag for t.
func List(t Type) Tag {
	return Tag{Type: t, ID: ListID}
}

// ID returns the instance tag for one entity of type t.
func ID(t Type, id any) Tag {
	return Tag{Type: t, ID: fmt.Sprint(id)}
}

// Of returns a tag matching every tag of type t.
func Of(t Type) Tag {
	return Tag{Type: t}
}

// IsWildcard reports whether the tag matches every tag of its type.
func (t Tag) IsWildcard() bool {
	return t.ID == ""
}

// Matches reports whether t and o refer to the same cached data.
func (t Tag) Matches(o Tag) bool {
	if t.Type != o.Type {
		return false
	}
	return t.IsWildcard() || o.IsWildcard() || t.ID == o.ID
}

func (t Tag) String() string {
	if t.IsWildcard() {
		return string(t.Type) + ":*"
	}
	return string(t.Type) + ":" + t.ID
}

// Types lists every known tag type.
var Types = []Type{
	Vehicle, Booking, Review, UserDashboard, AdminDashboard,
	Settings, SecuritySettings, AdminUser, Payment, PaymentMethod,
}

// Parse reads the String form of a tag: "Type:ID", "Type:*" or a bare
// "Type" (both wildcards). The type must be known.
func Parse(s string) (Tag, error) {
	typ, id, _ := strings.Cut(strings.TrimSpace(s), ":")
	if id == "*" {
		id = ""
	}
	for _, known := range Types {
		if string(known) == typ {
			return Tag{Type: known, ID: id}, nil
		}
	}
	return Tag{}, fmt.Errorf("unknown tag type %q", typ)
}

// Set is an ordered, duplicate-free list of tags.
type Set []Tag

// Union merges tag lists, dropping duplicates while keeping first-seen order.
func Union(lists ...[]Tag) Set {
	seen := make(map[Tag]struct{})
	var out Set
	for _, list := range lists {
		for _, t := range list {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// Intersects reports whether any tag of a matches any tag of b.
func Intersects(a, b []Tag) bool {
	for _, x := range a {
		for _, y := range b {
			if x.Matches(y) {
				return true
			}
		}
	}
	return false
}

// Types returns the distinct tag types present in the set, sorted.
func (s Set) Types() []Type {
	seen := make(map[Type]struct{})
	var out []Type
	for _, t := range s {
		if _, ok := seen[t.Type]; ok {
			continue
		}
		seen[t.Type] = struct{}{}
		out = append(out, t.Type)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s Set) String() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

// ListAndIDs returns the collection tag of t followed by one instance tag per id.
// This is the tag set provided by every list query.
func ListAndIDs[K any](t Type, ids []K) Set {
	out := make(Set, 0, len(ids)+1)
	out = append(out, List(t))
	for _, id := range ids {
		out = append(out, ID(t, id))
	}
	return Union(out)
}
