package gen

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/syssam/traitgen/schema"
)

// testDialect renders one line per method: "<method> <type>".
type testDialect struct {
	sources    map[string]*Reflection
	companions map[string]MethodSet
	failOn     TemplateID
}

func newTestDialect() *testDialect {
	return &testDialect{
		sources:    make(map[string]*Reflection),
		companions: make(map[string]MethodSet),
	}
}

// class registers a class source declaring props, with existing methods.
func (d *testDialect) class(dir, name string, props []string, methods ...string) *Reflection {
	short := name[strings.LastIndex(name, `\`)+1:]
	r := &Reflection{
		Class:      name,
		SourcePath: filepath.Join(dir, short+".php"),
		Properties: make(map[string]bool),
		Methods:    NewMethodSet(true, methods...),
		OwnMethods: NewMethodSet(true, methods...),
	}
	for _, p := range props {
		r.Properties[p] = true
	}
	d.sources[name] = r
	return r
}

func (d *testDialect) Name() string { return "test" }

func (d *testDialect) FieldType(t DeclaredType, optional bool) string {
	if t == Untyped {
		return ""
	}
	if optional {
		return "?" + t.String()
	}
	return t.String()
}

func (d *testDialect) ClassType(class string, optional bool) string {
	short := class[strings.LastIndex(class, `\`)+1:]
	if optional {
		return "?" + short
	}
	return short
}

func (d *testDialect) CollectionType(string) string { return "Collection" }

func (d *testDialect) Render(id TemplateID, p Params) (string, error) {
	if id == d.failOn {
		return "", fmt.Errorf("render %s: boom", id)
	}
	switch id {
	case TemplateTop:
		return fmt.Sprintf("open %s %s\n", p["traitNamespace"], p["traitName"]), nil
	case TemplateBottom:
		return "close\n", nil
	case TemplateDoctrineConstruct:
		var fields []string
		for _, c := range p["collections"].([]Collection) {
			fields = append(fields, c.Field)
		}
		return fmt.Sprintf("%s [%s] parent=%v\n", p["method"], strings.Join(fields, ","), p["hasParent"]), nil
	}
	if typ, ok := p["type"].(string); ok {
		return fmt.Sprintf("%s %s\n", p["method"], typ), nil
	}
	return fmt.Sprintf("%s\n", p["method"]), nil
}

func (d *testDialect) Reflect(class string) (*Reflection, error) {
	r, ok := d.sources[class]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, class)
	}
	return r, nil
}

func (d *testDialect) CompanionMethods(path string) (MethodSet, error) {
	return d.companions[path], nil
}

func (d *testDialect) MethodName(verb Verb, field string) string {
	return string(verb) + Ucfirst(field)
}

func (d *testDialect) InitializerName() string { return "doctrineConstruct" }

func (d *testDialect) ConstructorName(string) string { return "__construct" }

func (d *testDialect) DefaultSuffix() string { return "Trait" }

// locatorDialect is a testDialect that lists its sources by namespace.
type locatorDialect struct {
	*testDialect
}

func (d locatorDialect) Classes(namespace string) ([]string, error) {
	var names []string
	for name := range d.sources {
		if schema.InNamespace(name, namespace) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// testProvider serves classes by name, ignoring case, or by namespace, in
// order.
type testProvider struct {
	classes []*schema.Class
	err     error
}

func (p *testProvider) Classes(_ context.Context, name string) ([]*schema.Class, error) {
	if p.err != nil {
		return nil, p.err
	}
	for _, c := range p.classes {
		if strings.EqualFold(c.Name, name) {
			return []*schema.Class{c}, nil
		}
	}
	var matched []*schema.Class
	for _, c := range p.classes {
		if schema.InNamespace(c.Name, name) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

var errProvider = errors.New("provider unavailable")
