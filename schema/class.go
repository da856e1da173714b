package schema

import (
	"strings"

	"github.com/syssam/traitgen/schema/edge"
	"github.com/syssam/traitgen/schema/field"
)

// NamespaceSeparator separates the segments of a class name.
const NamespaceSeparator = `\`

// Class describes the persistence mapping of one entity class. Fields and
// associations keep the order of the mapping.
type Class struct {
	Name         string              `msgpack:"name"`
	Fields       []*field.Descriptor `msgpack:"fields"`
	Associations []*edge.Descriptor  `msgpack:"associations"`
}

// ShortName returns the class name without its namespace.
func (c *Class) ShortName() string {
	if i := strings.LastIndex(c.Name, NamespaceSeparator); i >= 0 {
		return c.Name[i+1:]
	}
	return c.Name
}

// Namespace returns the namespace of the class, empty for the global one.
func (c *Class) Namespace() string {
	if i := strings.LastIndex(c.Name, NamespaceSeparator); i >= 0 {
		return c.Name[:i]
	}
	return ""
}

// Field returns the field with the given name, or nil.
func (c *Class) Field(name string) *field.Descriptor {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Association returns the association with the given name, or nil.
func (c *Class) Association(name string) *edge.Descriptor {
	for _, a := range c.Associations {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// NormalizeName trims a class or namespace name and converts slash
// separators to the canonical backslash.
func NormalizeName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "/", NamespaceSeparator))
	return strings.Trim(name, NamespaceSeparator)
}

// InNamespace reports if the class name lives in ns or one of its
// sub-namespaces.
func InNamespace(class, ns string) bool {
	ns = strings.TrimSuffix(ns, NamespaceSeparator)
	return ns == "" || strings.HasPrefix(class, ns+NamespaceSeparator)
}
