// Package constraint models the validation constraints attached to entity
// fields, independently of their persistence mapping.
package constraint

import (
	"sort"
	"strings"
)

// Kind is a validation constraint kind.
type Kind uint8

// Constraint kinds. Only NotNull and NotBlank influence nullability; every
// other assertion is recorded as Other.
const (
	Other Kind = iota
	NotNull
	NotBlank
)

// String returns the constraint name.
func (k Kind) String() string {
	switch k {
	case NotNull:
		return "NotNull"
	case NotBlank:
		return "NotBlank"
	default:
		return "Other"
	}
}

// ParseKind maps a constraint name ("NotBlank", "Assert\NotNull",
// "Symfony\Component\Validator\Constraints\NotNull") to its kind.
func ParseKind(name string) Kind {
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		name = name[i+1:]
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "notnull":
		return NotNull
	case "notblank":
		return NotBlank
	}
	return Other
}

// Set is a set of constraint kinds. The zero value is an empty set.
type Set struct {
	kinds uint8
}

// NewSet returns a set holding the given kinds.
func NewSet(kinds ...Kind) Set {
	var s Set
	for _, k := range kinds {
		s = s.With(k)
	}
	return s
}

// With returns a copy of s including k.
func (s Set) With(k Kind) Set {
	s.kinds |= 1 << k
	return s
}

// Union returns the union of s and o.
func (s Set) Union(o Set) Set {
	s.kinds |= o.kinds
	return s
}

// Has reports if k is in the set.
func (s Set) Has(k Kind) bool {
	return s.kinds&(1<<k) != 0
}

// HasNonNull reports if the set asserts a value is present.
func (s Set) HasNonNull() bool {
	return s.Has(NotNull) || s.Has(NotBlank)
}

// Empty reports if the set holds no constraint.
func (s Set) Empty() bool {
	return s.kinds == 0
}

// Kinds returns the kinds of the set in declaration order.
func (s Set) Kinds() []Kind {
	var kinds []Kind
	for _, k := range []Kind{Other, NotNull, NotBlank} {
		if s.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// String implements fmt.Stringer.
func (s Set) String() string {
	kinds := s.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return "[" + strings.Join(names, " ") + "]"
}

// Provider supplies the constraint set of a (class, field) pair.
type Provider interface {
	Constraints(class, field string) Set
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(class, field string) Set

// Constraints implements Provider.
func (f ProviderFunc) Constraints(class, field string) Set {
	return f(class, field)
}

// Multi returns a provider answering with the union of all providers.
// Nil providers are skipped.
func Multi(providers ...Provider) Provider {
	var ps multi
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return ps
}

type multi []Provider

func (m multi) Constraints(class, field string) Set {
	var s Set
	for _, p := range m {
		s = s.Union(p.Constraints(class, field))
	}
	return s
}

// Static is a Provider backed by a map of class to field to set.
type Static map[string]map[string]Set

// Add records kinds for a (class, field) pair.
func (s Static) Add(class, field string, kinds ...Kind) {
	fields, ok := s[class]
	if !ok {
		fields = make(map[string]Set)
		s[class] = fields
	}
	fields[field] = fields[field].Union(NewSet(kinds...))
}

// Constraints implements Provider.
func (s Static) Constraints(class, field string) Set {
	return s[class][field]
}

// Classes returns the classes with recorded constraints, sorted.
func (s Static) Classes() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
