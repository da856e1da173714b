package gen

import (
	"github.com/syssam/traitgen/schema/field"
)

// DeclaredType is the language-neutral type of a scalar accessor.
type DeclaredType uint8

// Declared types.
const (
	Untyped DeclaredType = iota
	String
	Array
	Bool
	Int
	Float
	DateTime
	ImmutableDateTime
	Interval
)

// String returns the declared type name.
func (t DeclaredType) String() string {
	switch t {
	case String:
		return "string"
	case Array:
		return "array"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case DateTime:
		return "datetime"
	case ImmutableDateTime:
		return "datetime_immutable"
	case Interval:
		return "interval"
	}
	return "untyped"
}

// DeclaredTypeOf maps a storage type to its declared type.
func DeclaredTypeOf(t field.Type) DeclaredType {
	switch {
	case t.IsString():
		return String
	case t.IsArray():
		return Array
	case t == field.TypeBoolean:
		return Bool
	case t.IsInteger():
		return Int
	case t == field.TypeFloat:
		return Float
	case t.IsTime():
		return DateTime
	case t.IsImmutableTime():
		return ImmutableDateTime
	case t == field.TypeDateInterval:
		return Interval
	}
	return Untyped
}

// Resolution is the declared type and optionality of an accessor.
type Resolution struct {
	Type     DeclaredType
	Optional bool
}

// resolver combines mapping nullability and constraints for one class.
type resolver struct {
	class  string
	policy Policy
	// constrained reports a NotNull/NotBlank constraint, queried lazily.
	constrained func(field string) bool
}

// field resolves the setter type of f. The getter of an identifier is
// always optional, see getter.
func (r *resolver) field(f *field.Descriptor) (Resolution, error) {
	if !f.Type.Valid() {
		return Resolution{}, NewResolutionError(r.class, f.Name, "mapping declares no type")
	}
	res := Resolution{Type: DeclaredTypeOf(f.Type), Optional: f.Nullable}
	if f.Nullable {
		return res, nil
	}
	constrained := r.constrained(f.Name)
	switch r.policy {
	case PolicyStrict:
		if constrained {
			return Resolution{}, NewNullabilityError(r.class, f.Name)
		}
	default:
		res.Optional = !constrained
	}
	return res, nil
}

// getter resolves the getter type of f.
func (r *resolver) getter(f *field.Descriptor) (Resolution, error) {
	if f.Identifier {
		if !f.Type.Valid() {
			return Resolution{}, NewResolutionError(r.class, f.Name, "mapping declares no type")
		}
		return Resolution{Type: DeclaredTypeOf(f.Type), Optional: true}, nil
	}
	return r.field(f)
}

// relation resolves the optionality of a singular association: nullable
// join columns stay optional, and so do non-nullable ones that also carry
// a presence constraint.
func (r *resolver) relation(name string, joinNullable bool) bool {
	if joinNullable {
		return true
	}
	return r.constrained(name)
}
