package edge

import "strings"

// Rel is the relationship kind of an association.
type Rel int

// Relation types.
const (
	Unk Rel = iota // Unknown.
	O2O            // One to one.
	O2M            // One to many.
	M2O            // Many to one.
	M2M            // Many to many.
)

// String returns the relation name.
func (r Rel) String() string {
	s := "Unknown"
	switch r {
	case O2O:
		s = "O2O"
	case O2M:
		s = "O2M"
	case M2O:
		s = "M2O"
	case M2M:
		s = "M2M"
	}
	return s
}

// Plural reports if the relation holds a collection on this side.
func (r Rel) Plural() bool { return r == O2M || r == M2M }

// Supported reports if r is one of the four known relation types.
func (r Rel) Supported() bool { return r >= O2O && r <= M2M }

// ParseRel returns the relation for a mapping section name such as
// "manyToOne" or "many_to_one". Unrecognized names yield Unk.
func ParseRel(s string) Rel {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "onetoone", "o2o":
		return O2O
	case "onetomany", "o2m":
		return O2M
	case "manytoone", "m2o":
		return M2O
	case "manytomany", "m2m":
		return M2M
	}
	return Unk
}

// Descriptor describes an association of an entity class.
type Descriptor struct {
	Name   string `msgpack:"name"`
	Kind   Rel    `msgpack:"kind"`
	Target string `msgpack:"target"`
	Owning bool   `msgpack:"owning"`
	// Inverse is inversedBy on the owning side and mappedBy otherwise.
	Inverse string `msgpack:"inverse,omitempty"`
	// JoinNullable is the nullable flag of the first join column, nil when
	// the mapping does not state it.
	JoinNullable *bool `msgpack:"join_nullable,omitempty"`
}

// JoinIsNullable reports the join-column nullability, true when absent.
func (d *Descriptor) JoinIsNullable() bool {
	if d.JoinNullable == nil {
		return true
	}
	return *d.JoinNullable
}

// TargetShortName returns the target class name without its namespace.
func (d *Descriptor) TargetShortName() string {
	if i := strings.LastIndexByte(d.Target, '\\'); i >= 0 {
		return d.Target[i+1:]
	}
	return d.Target
}

// Nullable returns a pointer to v, for building descriptors inline.
func Nullable(v bool) *bool { return &v }
