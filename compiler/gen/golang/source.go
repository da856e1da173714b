package golang

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/syssam/traitgen/schema"
)

// Root maps a namespace prefix to the directory of its packages. Each
// namespace segment below the prefix is one directory level.
type Root struct {
	Prefix string
	Dir    string
}

// srcFile is a parsed Go source file.
type srcFile struct {
	path      string
	mod       time.Time
	size      int64
	pkg       string
	generated bool
	ast       *ast.File
}

// typeDecl is a struct type declaration.
type typeDecl struct {
	name     string
	file     *srcFile
	fields   []*ast.Field
	embedded []string
}

// method is a function declaration, with or without receiver.
type method struct {
	name      string
	generated bool
}

// pkgIndex indexes the declarations of the files of one directory.
type pkgIndex struct {
	dir     string
	name    string
	types   map[string]*typeDecl
	methods map[string][]method
	funcs   []method
}

func newPkgIndex(dir string, files []*srcFile) *pkgIndex {
	p := &pkgIndex{
		dir:     dir,
		types:   make(map[string]*typeDecl),
		methods: make(map[string][]method),
	}
	for _, f := range files {
		if p.name == "" && !f.generated {
			p.name = f.pkg
		}
		for _, decl := range f.ast.Decls {
			switch decl := decl.(type) {
			case *ast.GenDecl:
				p.addTypes(f, decl)
			case *ast.FuncDecl:
				m := method{name: decl.Name.Name, generated: f.generated}
				if decl.Recv == nil || len(decl.Recv.List) == 0 {
					p.funcs = append(p.funcs, m)
					continue
				}
				if recv := baseName(decl.Recv.List[0].Type); recv != "" {
					p.methods[recv] = append(p.methods[recv], m)
				}
			}
		}
	}
	if p.name == "" && len(files) > 0 {
		p.name = files[0].pkg
	}
	return p
}

func (p *pkgIndex) addTypes(f *srcFile, decl *ast.GenDecl) {
	if decl.Tok != token.TYPE {
		return
	}
	for _, spec := range decl.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}
		st, ok := ts.Type.(*ast.StructType)
		if !ok {
			continue
		}
		t := &typeDecl{name: ts.Name.Name, file: f}
		for _, fd := range st.Fields.List {
			if len(fd.Names) == 0 {
				if name := baseName(fd.Type); name != "" {
					t.embedded = append(t.embedded, name)
				}
				continue
			}
			t.fields = append(t.fields, fd)
		}
		p.types[t.name] = t
	}
}

// field returns the declaration of the named struct field of t.
func (t *typeDecl) field(name string) *ast.Field {
	for _, fd := range t.fields {
		for _, id := range fd.Names {
			if id.Name == name {
				return fd
			}
		}
	}
	return nil
}

// baseName returns the type name of a receiver or embedded field: T, *T,
// T[P] and *T[P] yield T. Qualified names yield "".
func baseName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return baseName(e.X)
	case *ast.IndexExpr:
		return baseName(e.X)
	case *ast.IndexListExpr:
		return baseName(e.X)
	}
	return ""
}

// parseFile parses the declarations of a source file.
func parseFile(path string, info os.FileInfo) (*srcFile, error) {
	f, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	return &srcFile{
		path:      path,
		mod:       info.ModTime(),
		size:      info.Size(),
		pkg:       f.Name.Name,
		generated: ast.IsGenerated(f),
		ast:       f,
	}, nil
}

// isSource reports a non-test Go file name.
func isSource(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") && !strings.HasPrefix(name, ".")
}

// packageDirs returns the directories that hold the package of namespace.
func packageDirs(roots []Root, namespace string) []string {
	namespace = schema.NormalizeName(namespace)
	var dirs []string
	for _, r := range roots {
		rel, ok := trimPrefix(namespace, r.Prefix)
		if !ok {
			continue
		}
		dirs = append(dirs, filepath.Join(r.Dir, filepath.FromSlash(strings.ReplaceAll(rel, schema.NamespaceSeparator, "/"))))
	}
	return dirs
}

// namespaceOf returns the namespace of a package directory below root.
func namespaceOf(r Root, dir string) (string, bool) {
	rel, err := filepath.Rel(r.Dir, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	if rel == "." {
		return r.Prefix, true
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	if r.Prefix != "" {
		segments = append([]string{r.Prefix}, segments...)
	}
	return strings.Join(segments, schema.NamespaceSeparator), true
}

func normalizeRoots(roots []Root) []Root {
	out := make([]Root, 0, len(roots))
	for _, r := range roots {
		out = append(out, Root{Prefix: schema.NormalizeName(r.Prefix), Dir: filepath.Clean(r.Dir)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Prefix) > len(out[j].Prefix)
	})
	return out
}

// trimPrefix strips a namespace prefix at a separator boundary.
func trimPrefix(name, prefix string) (string, bool) {
	switch {
	case prefix == "":
		return name, true
	case name == prefix:
		return "", true
	case strings.HasPrefix(name, prefix+schema.NamespaceSeparator):
		return name[len(prefix)+1:], true
	}
	return "", false
}

// splitClass splits a class name into namespace and type name.
func splitClass(class string) (string, string) {
	class = schema.NormalizeName(class)
	if i := strings.LastIndex(class, schema.NamespaceSeparator); i >= 0 {
		return class[:i], class[i+1:]
	}
	return "", class
}
