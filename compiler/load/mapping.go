package load

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/traitgen/schema"
	"github.com/syssam/traitgen/schema/edge"
	"github.com/syssam/traitgen/schema/field"
)

// ErrMapping indicates an unreadable mapping or validation file.
var ErrMapping = errors.New("load: invalid mapping")

// MappingError reports a malformed node of a mapping file.
type MappingError struct {
	Path    string
	Line    int
	Message string
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	var b strings.Builder
	b.WriteString("load: ")
	b.WriteString(e.Path)
	if e.Line > 0 {
		b.WriteString(":")
		b.WriteString(strconv.Itoa(e.Line))
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Is reports whether the target matches ErrMapping.
func (e *MappingError) Is(target error) bool {
	return target == ErrMapping
}

// IsMappingError returns true if the error is a MappingError.
func IsMappingError(err error) bool {
	var e *MappingError
	return errors.As(err, &e)
}

// mappingParser walks the nodes of one Doctrine YAML mapping file.
type mappingParser struct {
	path string
}

func (p *mappingParser) errorf(n *yaml.Node, format string, args ...any) error {
	line := 0
	if n != nil {
		line = n.Line
	}
	return &MappingError{Path: p.path, Line: line, Message: fmt.Sprintf(format, args...)}
}

// ParseMapping parses a Doctrine YAML mapping document. Only entities are
// returned: mapped superclasses and embeddables carry no accessors of
// their own. Fields and associations keep the document order.
//
//	Blog\Entity\Post:
//	  type: entity
//	  id:
//	    id: { type: integer }
//	  fields:
//	    title: { type: string }
//	  manyToOne:
//	    author:
//	      targetEntity: User
//	      inversedBy: posts
//	      joinColumn: { nullable: false }
func ParseMapping(path string, data []byte) ([]*schema.Class, error) {
	p := &mappingParser{path: path}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &MappingError{Path: path, Message: err.Error()}
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, p.errorf(root, "expected a mapping of class names")
	}
	var classes []*schema.Class
	for i := 0; i+1 < len(root.Content); i += 2 {
		c, err := p.class(root.Content[i], root.Content[i+1])
		if err != nil {
			return nil, err
		}
		if c != nil {
			classes = append(classes, c)
		}
	}
	return classes, nil
}

func (p *mappingParser) class(key, body *yaml.Node) (*schema.Class, error) {
	name := schema.NormalizeName(key.Value)
	if name == "" {
		return nil, p.errorf(key, "empty class name")
	}
	if body.Kind != yaml.MappingNode {
		return nil, p.errorf(body, "class %s: expected a mapping", name)
	}
	c := &schema.Class{Name: name}
	for i := 0; i+1 < len(body.Content); i += 2 {
		section, value := body.Content[i], body.Content[i+1]
		switch section.Value {
		case "type":
			if value.Value != "entity" {
				return nil, nil
			}
		case "id", "fields":
			fields, err := p.fields(c, value, section.Value == "id")
			if err != nil {
				return nil, err
			}
			c.Fields = append(c.Fields, fields...)
		case "oneToOne", "manyToOne", "oneToMany", "manyToMany":
			assocs, err := p.associations(c, edge.ParseRel(section.Value), value)
			if err != nil {
				return nil, err
			}
			c.Associations = append(c.Associations, assocs...)
		}
	}
	return c, nil
}

func (p *mappingParser) fields(c *schema.Class, n *yaml.Node, identifier bool) ([]*field.Descriptor, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, p.errorf(n, "class %s: expected a mapping of fields", c.Name)
	}
	var fields []*field.Descriptor
	for i := 0; i+1 < len(n.Content); i += 2 {
		name, body := n.Content[i].Value, n.Content[i+1]
		if c.Field(name) != nil {
			return nil, p.errorf(n.Content[i], "class %s: field %s mapped twice", c.Name, name)
		}
		// Doctrine defaults an absent type to string.
		f := &field.Descriptor{Name: name, Type: field.TypeString, Identifier: identifier}
		var m struct {
			Type     *string `yaml:"type"`
			Nullable bool    `yaml:"nullable"`
			Column   string  `yaml:"column"`
		}
		if err := body.Decode(&m); err != nil {
			return nil, p.errorf(body, "class %s: field %s: %v", c.Name, name, err)
		}
		if m.Type != nil {
			f.Type = field.ParseType(*m.Type)
		}
		f.Nullable, f.Column = m.Nullable, m.Column
		fields = append(fields, f)
	}
	return fields, nil
}

// joinColumn is the part of a join column definition that matters here.
type joinColumn struct {
	Nullable *bool `yaml:"nullable"`
}

func (p *mappingParser) associations(c *schema.Class, kind edge.Rel, n *yaml.Node) ([]*edge.Descriptor, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, p.errorf(n, "class %s: expected a mapping of associations", c.Name)
	}
	var assocs []*edge.Descriptor
	for i := 0; i+1 < len(n.Content); i += 2 {
		name, body := n.Content[i].Value, n.Content[i+1]
		var m struct {
			TargetEntity string    `yaml:"targetEntity"`
			InversedBy   string    `yaml:"inversedBy"`
			MappedBy     string    `yaml:"mappedBy"`
			JoinColumn   yaml.Node `yaml:"joinColumn"`
			JoinColumns  yaml.Node `yaml:"joinColumns"`
		}
		if err := body.Decode(&m); err != nil {
			return nil, p.errorf(body, "class %s: association %s: %v", c.Name, name, err)
		}
		if m.TargetEntity == "" {
			return nil, p.errorf(body, "class %s: association %s has no targetEntity", c.Name, name)
		}
		a := &edge.Descriptor{
			Name:   name,
			Kind:   kind,
			Target: qualify(c, m.TargetEntity),
		}
		switch kind {
		case edge.M2O:
			a.Owning = true
		case edge.O2O, edge.M2M:
			a.Owning = m.MappedBy == ""
		}
		if a.Owning {
			a.Inverse = m.InversedBy
		} else {
			a.Inverse = m.MappedBy
		}
		jc, err := p.joinColumn(&m.JoinColumn, &m.JoinColumns)
		if err != nil {
			return nil, err
		}
		a.JoinNullable = jc.Nullable
		assocs = append(assocs, a)
	}
	return assocs, nil
}

// joinColumn returns the single join column, or the first entry of the
// joinColumns mapping.
func (p *mappingParser) joinColumn(single, multiple *yaml.Node) (joinColumn, error) {
	var jc joinColumn
	switch {
	case single.Kind == yaml.MappingNode:
		if err := single.Decode(&jc); err != nil {
			return jc, p.errorf(single, "joinColumn: %v", err)
		}
	case multiple.Kind == yaml.MappingNode && len(multiple.Content) >= 2:
		if err := multiple.Content[1].Decode(&jc); err != nil {
			return jc, p.errorf(multiple, "joinColumns: %v", err)
		}
	case multiple.Kind == yaml.SequenceNode && len(multiple.Content) > 0:
		if err := multiple.Content[0].Decode(&jc); err != nil {
			return jc, p.errorf(multiple, "joinColumns: %v", err)
		}
	}
	return jc, nil
}

// qualify resolves a target entity relative to the namespace of c, as
// Doctrine does for names without a separator.
func qualify(c *schema.Class, target string) string {
	target = schema.NormalizeName(target)
	if strings.Contains(target, schema.NamespaceSeparator) || c.Namespace() == "" {
		return target
	}
	return c.Namespace() + schema.NamespaceSeparator + target
}
