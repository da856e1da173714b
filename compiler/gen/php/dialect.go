// Package php implements the PHP dialect: companions are traits placed
// next to the entity class, rendered from embedded templates.
//
// Usage:
//
//	loc, err := php.LoadComposer("composer.json")
//	d, err := php.NewDialect(loc, php.WithLogger(logger))
//	g, err := gen.NewGenerator(provider, d)
//
// Class structure is read from the sources themselves: the dialect scans
// declarations, used traits, properties and method names. Properties
// carrying Symfony NotNull or NotBlank constraints, as attributes or
// docblock annotations, are reported through constraint.Provider.
package php

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/syssam/traitgen/compiler/gen"
	"github.com/syssam/traitgen/schema"
	"github.com/syssam/traitgen/schema/constraint"
)

//go:embed templates
var templates embed.FS

// ValidatorNamespace is the namespace of the Symfony validation constraints.
const ValidatorNamespace = `Symfony\Component\Validator\Constraints`

// CollectionType is the declared type of collection-valued associations.
const CollectionType = `\Doctrine\Common\Collections\Collection`

// Dialect implements gen.Dialect for PHP traits.
type Dialect struct {
	loc       *Locator
	templates map[gen.TemplateID]*template.Template
	override  fs.FS
	log       *zap.Logger

	mu    sync.Mutex
	files map[string]*scanned
}

type scanned struct {
	mod  time.Time
	size int64
	file *File
}

// Option configures the dialect.
type Option func(*Dialect) error

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dialect) error {
		if l != nil {
			d.log = l
		}
		return nil
	}
}

// WithTemplateDir overrides the embedded templates with the files found in
// dir, laid out as template ids: "field/getter.php.tmpl" and so on.
func WithTemplateDir(dir string) Option {
	return func(d *Dialect) error {
		info, err := os.Stat(dir)
		if err != nil {
			return gen.NewConfigError("Templates", dir, err.Error())
		}
		if !info.IsDir() {
			return gen.NewConfigError("Templates", dir, "not a directory")
		}
		d.override = os.DirFS(dir)
		return nil
	}
}

// NewDialect returns a PHP dialect locating classes through loc.
func NewDialect(loc *Locator, opts ...Option) (*Dialect, error) {
	if loc == nil {
		return nil, gen.NewConfigError("Locator", nil, "locator cannot be nil")
	}
	d := &Dialect{
		loc:   loc,
		log:   zap.NewNop(),
		files: make(map[string]*scanned),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if err := d.parseTemplates(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dialect) parseTemplates() error {
	funcs := template.FuncMap{"ucfirst": gen.Ucfirst}
	d.templates = make(map[gen.TemplateID]*template.Template, len(gen.TemplateIDs))
	for _, id := range gen.TemplateIDs {
		name := string(id) + ".php.tmpl"
		src, err := d.templateSource(name)
		if err != nil {
			return fmt.Errorf("php: loading template %s: %w", id, err)
		}
		t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(src))
		if err != nil {
			return fmt.Errorf("php: parsing template %s: %w", id, err)
		}
		d.templates[id] = t
	}
	return nil
}

func (d *Dialect) templateSource(name string) ([]byte, error) {
	if d.override != nil {
		src, err := fs.ReadFile(d.override, name)
		if err == nil {
			d.log.Debug("using template override", zap.String("template", name))
			return src, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return templates.ReadFile(path.Join("templates", name))
}

// Name returns the dialect name.
func (d *Dialect) Name() string {
	return "php"
}

// =============================================================================
// TypeMapper
// =============================================================================

// FieldType returns the PHP type declaration of a scalar accessor.
func (d *Dialect) FieldType(t gen.DeclaredType, optional bool) string {
	var typ string
	switch t {
	case gen.String:
		typ = "string"
	case gen.Array:
		typ = "array"
	case gen.Bool:
		typ = "bool"
	case gen.Int:
		typ = "int"
	case gen.Float:
		typ = "float"
	case gen.DateTime:
		typ = `\DateTime`
	case gen.ImmutableDateTime:
		typ = `\DateTimeImmutable`
	case gen.Interval:
		typ = `\DateInterval`
	default:
		return ""
	}
	if optional {
		return "?" + typ
	}
	return typ
}

// ClassType returns the fully qualified type of an entity class.
func (d *Dialect) ClassType(class string, optional bool) string {
	typ := `\` + schema.NormalizeName(class)
	if optional {
		return "?" + typ
	}
	return typ
}

// CollectionType returns the Doctrine collection interface.
func (d *Dialect) CollectionType(string) string {
	return CollectionType
}

// =============================================================================
// Renderer
// =============================================================================

// Render executes the template of id.
func (d *Dialect) Render(id gen.TemplateID, params gen.Params) (string, error) {
	t, ok := d.templates[id]
	if !ok {
		return "", fmt.Errorf("php: unknown template %q", id)
	}
	var b bytes.Buffer
	if err := t.Execute(&b, params); err != nil {
		return "", fmt.Errorf("php: rendering %s: %w", id, err)
	}
	return b.String(), nil
}

// =============================================================================
// Naming
// =============================================================================

// MethodName joins a verb and a field name in camel case.
func (d *Dialect) MethodName(verb gen.Verb, field string) string {
	return string(verb) + gen.Ucfirst(field)
}

// InitializerName returns the collection initializer name.
func (d *Dialect) InitializerName() string {
	return "doctrineConstruct"
}

// ConstructorName returns the PHP constructor name.
func (d *Dialect) ConstructorName(string) string {
	return "__construct"
}

// DefaultSuffix returns the trait suffix.
func (d *Dialect) DefaultSuffix() string {
	return "Trait"
}

// =============================================================================
// Reflector
// =============================================================================

// Reflect scans the source of class.
func (d *Dialect) Reflect(class string) (*gen.Reflection, error) {
	decl, file, err := d.lookup(class)
	if err != nil {
		return nil, err
	}
	r := &gen.Reflection{
		Class:      decl.Name,
		SourcePath: file.Path,
		Properties: make(map[string]bool, len(decl.Properties)),
		Methods:    gen.NewMethodSet(true),
		OwnMethods: gen.NewMethodSet(true, decl.Methods...),
		HasParent:  decl.Parent != "",
	}
	for _, p := range decl.Properties {
		r.Properties[p.Name] = true
	}
	d.collect(decl, &r.Methods, make(map[string]bool))
	return r, nil
}

// collect adds the methods of decl, its traits and its ancestors. Classes
// outside the locator roots contribute nothing.
func (d *Dialect) collect(decl *Decl, methods *gen.MethodSet, seen map[string]bool) {
	key := strings.ToLower(decl.Name)
	if seen[key] {
		return
	}
	seen[key] = true
	for _, m := range decl.Methods {
		methods.Add(m)
	}
	related := append(append([]string(nil), decl.Traits...), decl.Parent)
	for _, name := range related {
		if name == "" {
			continue
		}
		other, _, err := d.lookup(name)
		if err != nil {
			d.log.Debug("skip unresolved class", zap.String("class", decl.Name), zap.String("related", name))
			continue
		}
		d.collect(other, methods, seen)
	}
}

// CompanionMethods returns the methods declared in a generated trait file.
func (d *Dialect) CompanionMethods(path string) (gen.MethodSet, error) {
	set := gen.NewMethodSet(true)
	f, err := d.scan(path)
	if errors.Is(err, fs.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return set, err
	}
	for _, decl := range f.Decls {
		for _, m := range decl.Methods {
			set.Add(m)
		}
	}
	return set, nil
}

// lookup finds the declaration of class.
func (d *Dialect) lookup(class string) (*Decl, *File, error) {
	class = schema.NormalizeName(class)
	path, ok := d.loc.Path(class)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", gen.ErrClassNotFound, class)
	}
	f, err := d.scan(path)
	if err != nil {
		return nil, nil, err
	}
	decl := f.Decl(class)
	if decl == nil {
		return nil, nil, fmt.Errorf("%w: %s is not declared in %s", gen.ErrClassNotFound, class, path)
	}
	return decl, f, nil
}

// scan parses path, reusing the previous result while the file is unchanged.
func (d *Dialect) scan(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.files[path]; ok && s.mod.Equal(info.ModTime()) && s.size == info.Size() {
		return s.file, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := Scan(path, src)
	d.files[path] = &scanned{mod: info.ModTime(), size: info.Size(), file: f}
	return f, nil
}

// =============================================================================
// Optional capabilities
// =============================================================================

// Classes lists the concrete classes declared under namespace, sorted.
func (d *Dialect) Classes(namespace string) ([]string, error) {
	namespace = schema.NormalizeName(namespace)
	var names []string
	err := d.loc.Files(namespace, func(path string) error {
		f, err := d.scan(path)
		if err != nil {
			return err
		}
		for _, decl := range f.Decls {
			if decl.Kind == KindClass && !decl.Abstract && schema.InNamespace(decl.Name, namespace) {
				names = append(names, decl.Name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("php: listing %s: %w", namespace, err)
	}
	sort.Strings(names)
	return names, nil
}

// Constraints reports the validation constraints declared on a property of
// class. Unknown classes and properties have none.
func (d *Dialect) Constraints(class, field string) constraint.Set {
	var set constraint.Set
	decl, _, err := d.lookup(class)
	if err != nil {
		return set
	}
	prop := decl.Property(field)
	if prop == nil {
		return set
	}
	for _, name := range prop.Annotations {
		if isValidatorConstraint(name) {
			set = set.With(constraint.ParseKind(name))
		}
	}
	return set
}

// isValidatorConstraint reports a Symfony constraint, imported or used
// through the conventional Assert alias without an import.
func isValidatorConstraint(name string) bool {
	i := strings.LastIndex(name, `\`)
	if i < 0 {
		return false
	}
	ns := name[:i]
	return strings.EqualFold(ns, ValidatorNamespace) ||
		strings.EqualFold(ns[strings.LastIndex(ns, `\`)+1:], "Assert")
}

var (
	_ gen.Dialect         = (*Dialect)(nil)
	_ gen.Locator         = (*Dialect)(nil)
	_ constraint.Provider = (*Dialect)(nil)
)
