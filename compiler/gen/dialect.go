package gen

// =============================================================================
// Interface Segregation: a dialect is composed of small, focused interfaces
// =============================================================================

// TypeMapper spells resolved types in the target language.
type TypeMapper interface {
	// FieldType returns the declared type of a scalar accessor. An empty
	// string means the accessor is untyped.
	FieldType(t DeclaredType, optional bool) string
	// ClassType returns the declared type referring to an entity class.
	ClassType(class string, optional bool) string
	// CollectionType returns the declared type of a collection of class.
	CollectionType(class string) string
}

// Renderer turns a template id and a flat parameter map into source text.
// Rendering must be a pure function of its inputs.
type Renderer interface {
	Render(id TemplateID, params Params) (string, error)
}

// Reflector inspects existing entity sources.
type Reflector interface {
	// Reflect returns the structure of a class. It returns an error
	// matching ErrClassNotFound when no source declares the class.
	Reflect(class string) (*Reflection, error)
	// CompanionMethods returns the methods of a previously generated
	// companion at path, and an empty set when the file does not exist.
	CompanionMethods(path string) (MethodSet, error)
}

// Naming spells method and constructor names.
type Naming interface {
	// MethodName joins an accessor verb and a field name.
	MethodName(verb Verb, field string) string
	// InitializerName is the reserved collection initializer name.
	InitializerName() string
	// ConstructorName is the plain constructor of a class.
	ConstructorName(short string) string
	// DefaultSuffix is the companion suffix used when none is configured.
	DefaultSuffix() string
}

// Dialect is the minimal interface a target language implements.
type Dialect interface {
	// Name returns the dialect name ("php", "go").
	Name() string
	TypeMapper
	Renderer
	Reflector
	Naming
}

// Finalizer is implemented by dialects that post-process assembled
// artifacts, for example to format them.
type Finalizer interface {
	Finalize(path string, src []byte) ([]byte, error)
}

// Locator is implemented by dialects that can list the classes declared
// under a namespace without mapping metadata.
type Locator interface {
	Classes(namespace string) ([]string, error)
}

// Reflection is the structure of an existing class source.
type Reflection struct {
	Class      string
	SourcePath string
	// Properties declared directly in the class body.
	Properties map[string]bool
	// Methods callable on the class: its own, inherited and trait methods.
	Methods MethodSet
	// OwnMethods declared in the class body.
	OwnMethods MethodSet
	HasParent  bool
}

// DeclaresProperty reports if the property is declared by the class itself.
func (r *Reflection) DeclaresProperty(name string) bool {
	return r.Properties[name]
}

// MethodSet is a set of method names. Lookups fold case when the set was
// created case-insensitive.
type MethodSet struct {
	fold  bool
	names map[string]struct{}
}

// NewMethodSet returns a set holding names.
func NewMethodSet(caseInsensitive bool, names ...string) MethodSet {
	s := MethodSet{fold: caseInsensitive, names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts a name.
func (s *MethodSet) Add(name string) {
	if s.names == nil {
		s.names = make(map[string]struct{})
	}
	s.names[s.key(name)] = struct{}{}
}

// Merge inserts all names of o.
func (s *MethodSet) Merge(o MethodSet) {
	for n := range o.names {
		s.Add(n)
	}
}

// Has reports if name is in the set.
func (s MethodSet) Has(name string) bool {
	_, ok := s.names[s.key(name)]
	return ok
}

// Len returns the number of names.
func (s MethodSet) Len() int {
	return len(s.names)
}

func (s MethodSet) key(name string) string {
	if s.fold {
		return foldASCII(name)
	}
	return name
}

func foldASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
