package load

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/traitgen/schema"
	"github.com/syssam/traitgen/schema/constraint"
)

// ParseValidation parses a Symfony validation YAML document into static
// constraints. Property and getter constraints are both recorded on the
// property name; class constraints are ignored.
//
//	Blog\Entity\Post:
//	  properties:
//	    title:
//	      - NotBlank: ~
//	      - Length: { max: 255 }
func ParseValidation(path string, data []byte, into constraint.Static) error {
	p := &mappingParser{path: path}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &MappingError{Path: path, Message: err.Error()}
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return p.errorf(root, "expected a mapping of class names")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		class := schema.NormalizeName(root.Content[i].Value)
		body := root.Content[i+1]
		if body.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(body.Content); j += 2 {
			switch body.Content[j].Value {
			case "properties", "getters":
				if err := p.members(class, body.Content[j+1], into); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *mappingParser) members(class string, n *yaml.Node, into constraint.Static) error {
	if n.Kind != yaml.MappingNode {
		return p.errorf(n, "class %s: expected a mapping of members", class)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		member, list := n.Content[i].Value, n.Content[i+1]
		kinds, err := p.constraints(class, member, list)
		if err != nil {
			return err
		}
		into.Add(class, member, kinds...)
	}
	return nil
}

// constraints reads a constraint list. Entries are a bare name or a
// single-key mapping from name to options.
func (p *mappingParser) constraints(class, member string, n *yaml.Node) ([]constraint.Kind, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, p.errorf(n, "class %s: member %s: expected a list of constraints", class, member)
	}
	var kinds []constraint.Kind
	for _, item := range n.Content {
		switch {
		case item.Kind == yaml.ScalarNode:
			kinds = append(kinds, constraint.ParseKind(item.Value))
		case item.Kind == yaml.MappingNode && len(item.Content) >= 2:
			kinds = append(kinds, constraint.ParseKind(item.Content[0].Value))
		default:
			return nil, p.errorf(item, "class %s: member %s: malformed constraint", class, member)
		}
	}
	return kinds, nil
}

// LoadValidation reads the validation files at paths into one provider.
// Directories are searched for YAML files.
func LoadValidation(paths ...string) (constraint.Static, error) {
	files, err := Discover(paths, ".yml", ".yaml")
	if err != nil {
		return nil, err
	}
	s := constraint.Static{}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &MappingError{Path: path, Message: err.Error()}
		}
		if err := ParseValidation(path, data, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}
