package field

import "strings"

// Type is the storage type tag of a mapped field.
type Type uint8

// Storage types, grouped by the family they resolve to.
const (
	// TypeInvalid marks a field whose mapping carries no type at all.
	TypeInvalid Type = iota
	TypeString
	TypeASCIIString
	TypeText
	TypeGUID
	TypeArray
	TypeSimpleArray
	TypeJSON
	TypeBoolean
	TypeInteger
	TypeSmallInt
	TypeBigInt
	TypeFloat
	TypeDate
	TypeDateTime
	TypeDateTimeTZ
	TypeTime
	TypeDateImmutable
	TypeDateTimeImmutable
	TypeDateTimeTZImmutable
	TypeTimeImmutable
	TypeDateInterval
	TypeObject
	TypeDecimal
	TypeBinary
	TypeBlob
	// TypeUnknown is a type tag the generator does not recognize.
	TypeUnknown
	endTypes
)

var typeNames = [...]string{
	TypeInvalid:             "invalid",
	TypeString:              "string",
	TypeASCIIString:         "ascii_string",
	TypeText:                "text",
	TypeGUID:                "guid",
	TypeArray:               "array",
	TypeSimpleArray:         "simple_array",
	TypeJSON:                "json",
	TypeBoolean:             "boolean",
	TypeInteger:             "integer",
	TypeSmallInt:            "smallint",
	TypeBigInt:              "bigint",
	TypeFloat:               "float",
	TypeDate:                "date",
	TypeDateTime:            "datetime",
	TypeDateTimeTZ:          "datetimetz",
	TypeTime:                "time",
	TypeDateImmutable:       "date_immutable",
	TypeDateTimeImmutable:   "datetime_immutable",
	TypeDateTimeTZImmutable: "datetimetz_immutable",
	TypeTimeImmutable:       "time_immutable",
	TypeDateInterval:        "dateinterval",
	TypeObject:              "object",
	TypeDecimal:             "decimal",
	TypeBinary:              "binary",
	TypeBlob:                "blob",
	TypeUnknown:             "unknown",
}

// String returns the mapping name of the type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the type carries a usable tag.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// IsString reports if the type belongs to the string family.
func (t Type) IsString() bool {
	return t == TypeString || t == TypeASCIIString || t == TypeText || t == TypeGUID
}

// IsArray reports if the type belongs to the array family.
func (t Type) IsArray() bool {
	return t == TypeArray || t == TypeSimpleArray || t == TypeJSON
}

// IsInteger reports if the type belongs to the integer family.
func (t Type) IsInteger() bool {
	return t == TypeInteger || t == TypeSmallInt || t == TypeBigInt
}

// IsTime reports if the type belongs to the mutable date/time family.
func (t Type) IsTime() bool {
	return t >= TypeDate && t <= TypeTime
}

// IsImmutableTime reports if the type belongs to the immutable date/time family.
func (t Type) IsImmutableTime() bool {
	return t >= TypeDateImmutable && t <= TypeTimeImmutable
}

// ParseType returns the storage type for a mapping tag. An empty tag yields
// TypeInvalid; a tag that is not recognized yields TypeUnknown.
func ParseType(tag string) Type {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return TypeInvalid
	}
	// Deprecated aliases still found in older mappings.
	switch tag {
	case "json_array":
		return TypeJSON
	case "bool":
		return TypeBoolean
	case "int":
		return TypeInteger
	}
	for t := TypeString; t < TypeUnknown; t++ {
		if typeNames[t] == tag {
			return t
		}
	}
	return TypeUnknown
}

// Descriptor describes a mapped scalar field of an entity class.
type Descriptor struct {
	Name       string `msgpack:"name"`
	Type       Type   `msgpack:"type"`
	Nullable   bool   `msgpack:"nullable"`
	Identifier bool   `msgpack:"identifier,omitempty"`
	Column     string `msgpack:"column,omitempty"`
}

// ColumnName returns the column of the field, defaulting to its name.
func (d *Descriptor) ColumnName() string {
	if d.Column != "" {
		return d.Column
	}
	return d.Name
}
