// Package golang implements the Go dialect: companions are files of the
// entity package holding methods on the entity struct.
//
// A class name maps to a struct type: `Blog\entity\Post` is the type Post
// of the package in the "entity" directory below the root of the Blog
// prefix. Mapped fields are unexported struct fields; accessors are
// exported methods:
//
//	type Post struct {
//		id    *int
//		title string
//		tags  []*Tag `validate:"dive"`
//	}
//
// yields the getter Title and the setter SetTitle, plus Tags, AddTag and
// RemoveTag for the collection. Optional accessors use pointer types, so
// nullable fields are declared as pointers.
//
// Methods of a previous companion count as regenerable; methods in any
// other file, including promoted methods of embedded structs of the same
// package, are left alone. Companions are passed through goimports.
package golang

import (
	"bytes"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/tools/imports"

	"github.com/syssam/traitgen/compiler/gen"
	"github.com/syssam/traitgen/schema"
	"github.com/syssam/traitgen/schema/constraint"
)

// ValidateTag is the struct tag read for validation constraints.
const ValidateTag = "validate"

// Dialect implements gen.Dialect for Go companion files.
type Dialect struct {
	roots []Root
	log   *zap.Logger

	mu    sync.Mutex
	files map[string]*srcFile
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

// NewDialect returns a Go dialect resolving namespaces through roots.
func NewDialect(roots []Root, opts ...Option) (*Dialect, error) {
	if len(roots) == 0 {
		return nil, gen.NewConfigError("Sources", nil, "at least one source root is required")
	}
	d := &Dialect{
		roots: normalizeRoots(roots),
		log:   zap.NewNop(),
		files: make(map[string]*srcFile),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Name returns the dialect name.
func (d *Dialect) Name() string {
	return "go"
}

// PackageScoped keeps companions in the package of their struct.
func (d *Dialect) PackageScoped() bool {
	return true
}

// FieldType returns the Go type of a scalar accessor. Optional values are
// pointers.
func (d *Dialect) FieldType(t gen.DeclaredType, optional bool) string {
	var typ string
	switch t {
	case gen.String:
		typ = "string"
	case gen.Array:
		typ = "[]any"
	case gen.Bool:
		typ = "bool"
	case gen.Int:
		typ = "int"
	case gen.Float:
		typ = "float64"
	case gen.DateTime, gen.ImmutableDateTime:
		typ = "time.Time"
	case gen.Interval:
		typ = "time.Duration"
	default:
		return "any"
	}
	if optional {
		return "*" + typ
	}
	return typ
}

// ClassType returns a pointer to the struct of class. Pointers are
// nillable, so optional makes no difference.
func (d *Dialect) ClassType(class string, _ bool) string {
	_, short := splitClass(class)
	return "*" + short
}

// CollectionType returns a slice of pointers to the struct of class.
func (d *Dialect) CollectionType(class string) string {
	return "[]" + d.ClassType(class, false)
}

// Render builds the method of id with jennifer.
func (d *Dialect) Render(id gen.TemplateID, params gen.Params) (string, error) {
	return render(id, params)
}

// MethodName spells Go accessor names: getters carry no prefix.
func (d *Dialect) MethodName(verb gen.Verb, field string) string {
	if verb == gen.VerbGet {
		return gen.Ucfirst(field)
	}
	return gen.Ucfirst(string(verb)) + gen.Ucfirst(field)
}

// InitializerName returns the collection initializer name.
func (d *Dialect) InitializerName() string {
	return "initCollections"
}

// ConstructorName returns the constructor function of a struct.
func (d *Dialect) ConstructorName(short string) string {
	return "New" + short
}

// DefaultSuffix returns the companion file suffix.
func (d *Dialect) DefaultSuffix() string {
	return "_trait"
}

// Reflect parses the package of class and describes its struct.
func (d *Dialect) Reflect(class string) (*gen.Reflection, error) {
	pkg, t, err := d.lookup(class)
	if err != nil {
		return nil, err
	}
	r := &gen.Reflection{
		Class:      schema.NormalizeName(class),
		SourcePath: t.file.path,
		Properties: make(map[string]bool, len(t.fields)),
		Methods:    gen.NewMethodSet(false),
		OwnMethods: gen.NewMethodSet(false),
		HasParent:  len(t.embedded) > 0,
	}
	for _, fd := range t.fields {
		for _, id := range fd.Names {
			r.Properties[id.Name] = true
		}
	}
	for _, m := range pkg.methods[t.name] {
		if !m.generated {
			r.OwnMethods.Add(m.name)
		}
	}
	// Package functions name constructors.
	for _, fn := range pkg.funcs {
		if !fn.generated {
			r.OwnMethods.Add(fn.name)
		}
	}
	d.collect(pkg, t.name, &r.Methods, make(map[string]bool))
	return r, nil
}

// collect adds the methods of the named type and the methods promoted from
// its embedded structs of the same package.
func (d *Dialect) collect(pkg *pkgIndex, name string, methods *gen.MethodSet, seen map[string]bool) {
	if seen[name] {
		return
	}
	seen[name] = true
	for _, m := range pkg.methods[name] {
		methods.Add(m.name)
	}
	t, ok := pkg.types[name]
	if !ok {
		return
	}
	for _, e := range t.embedded {
		if _, ok := pkg.types[e]; !ok {
			d.log.Debug("skip embedded type outside the package", zap.String("type", name), zap.String("embedded", e))
			continue
		}
		d.collect(pkg, e, methods, seen)
	}
}

// CompanionMethods returns the methods and functions of a companion file.
func (d *Dialect) CompanionMethods(path string) (gen.MethodSet, error) {
	set := gen.NewMethodSet(false)
	f, err := d.parse(path)
	if errors.Is(err, fs.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return set, err
	}
	for _, m := range newPkgIndex(filepath.Dir(path), []*srcFile{f}).all() {
		set.Add(m)
	}
	return set, nil
}

func (p *pkgIndex) all() []string {
	var names []string
	for _, ms := range p.methods {
		for _, m := range ms {
			names = append(names, m.name)
		}
	}
	for _, fn := range p.funcs {
		names = append(names, fn.name)
	}
	return names
}

// lookup finds the package and the struct declaration of class.
func (d *Dialect) lookup(class string) (*pkgIndex, *typeDecl, error) {
	ns, short := splitClass(class)
	for _, dir := range packageDirs(d.roots, ns) {
		pkg, err := d.index(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if t, ok := pkg.types[short]; ok {
			return pkg, t, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s", gen.ErrClassNotFound, schema.NormalizeName(class))
}

// index parses the Go files of dir.
func (d *Dialect) index(dir string) (*pkgIndex, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []*srcFile
	for _, e := range entries {
		if e.IsDir() || !isSource(e.Name()) {
			continue
		}
		f, err := d.parse(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return newPkgIndex(dir, files), nil
}

// parse parses path, reusing the previous result while the file is
// unchanged.
func (d *Dialect) parse(path string) (*srcFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.files[path]; ok && f.mod.Equal(info.ModTime()) && f.size == info.Size() {
		return f, nil
	}
	f, err := parseFile(path, info)
	if err != nil {
		return nil, fmt.Errorf("golang: parsing %s: %w", path, err)
	}
	d.files[path] = f
	return f, nil
}

// Classes lists the struct types declared in the packages of namespace and
// below, sorted. Generated files are ignored.
func (d *Dialect) Classes(namespace string) ([]string, error) {
	namespace = schema.NormalizeName(namespace)
	seen := make(map[string]bool)
	var names []string
	for _, r := range d.roots {
		for _, dir := range packageDirs([]Root{r}, namespace) {
			err := filepath.WalkDir(dir, func(path string, e fs.DirEntry, err error) error {
				if err != nil {
					if errors.Is(err, fs.ErrNotExist) {
						return filepath.SkipDir
					}
					return err
				}
				if !e.IsDir() {
					return nil
				}
				if path != dir && (e.Name() == "testdata" || strings.HasPrefix(e.Name(), ".") || strings.HasPrefix(e.Name(), "_")) {
					return filepath.SkipDir
				}
				ns, ok := namespaceOf(r, path)
				if !ok {
					return nil
				}
				pkg, err := d.index(path)
				if err != nil {
					return err
				}
				for name, t := range pkg.types {
					class := ns + schema.NamespaceSeparator + name
					if ns == "" {
						class = name
					}
					if t.file.generated || seen[class] {
						continue
					}
					seen[class] = true
					names = append(names, class)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("golang: listing %s: %w", namespace, err)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// Constraints reads the validate struct tag of a field: "required" is
// NotNull, "notblank" is NotBlank, any other rule is Other.
func (d *Dialect) Constraints(class, field string) constraint.Set {
	var set constraint.Set
	_, t, err := d.lookup(class)
	if err != nil {
		return set
	}
	fd := t.field(field)
	if fd == nil || fd.Tag == nil {
		return set
	}
	tag := strings.Trim(fd.Tag.Value, "`")
	rules := reflect.StructTag(tag).Get(ValidateTag)
	for _, rule := range strings.Split(rules, ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(rule), "=")
		switch name {
		case "":
		case "required":
			set = set.With(constraint.NotNull)
		case "notblank":
			set = set.With(constraint.NotBlank)
		default:
			set = set.With(constraint.Other)
		}
	}
	return set
}

// Finalize sets the package clause to the package of the sibling files and
// formats the companion with goimports.
func (d *Dialect) Finalize(path string, src []byte) ([]byte, error) {
	if name := d.siblingPackage(path); name != "" {
		src = renamePackage(src, name)
	}
	out, err := imports.Process(path, src, nil)
	if err != nil {
		return nil, fmt.Errorf("golang: formatting %s: %w", path, err)
	}
	return out, nil
}

// siblingPackage returns the package name declared by the hand-written
// files of the directory of path.
func (d *Dialect) siblingPackage(path string) string {
	pkg, err := d.index(filepath.Dir(path))
	if err != nil {
		d.log.Debug("skip package name lookup", zap.String("path", path), zap.Error(err))
		return ""
	}
	return pkg.name
}

// renamePackage replaces the name of the first package clause of src.
func renamePackage(src []byte, name string) []byte {
	f, err := parser.ParseFile(token.NewFileSet(), "", src, parser.PackageClauseOnly)
	if err != nil || f.Name.Name == name {
		return src
	}
	start := int(f.Name.Pos()) - 1
	end := int(f.Name.End()) - 1
	var b bytes.Buffer
	b.Write(src[:start])
	b.WriteString(name)
	b.Write(src[end:])
	return b.Bytes()
}

var (
	_ gen.Dialect         = (*Dialect)(nil)
	_ gen.Finalizer       = (*Dialect)(nil)
	_ gen.Locator         = (*Dialect)(nil)
	_ gen.PackageScoped   = (*Dialect)(nil)
	_ constraint.Provider = (*Dialect)(nil)
)
