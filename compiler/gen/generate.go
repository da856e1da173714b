package gen

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/syssam/traitgen/schema"
	"github.com/syssam/traitgen/schema/constraint"
	"github.com/syssam/traitgen/schema/field"
)

// MetadataProvider supplies the mapping of one class, or of every class
// under a namespace. An empty result means nothing matched the name.
type MetadataProvider interface {
	Classes(ctx context.Context, name string) ([]*schema.Class, error)
}

// Phase is a step of the per-class generation pass.
type Phase uint8

// Generation phases, in execution order.
const (
	PhaseStart Phase = iota
	PhaseHeader
	PhaseFields
	PhaseAssociations
	PhaseConstructors
	PhaseFooter
	PhaseDone
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseHeader:
		return "header"
	case PhaseFields:
		return "fields"
	case PhaseAssociations:
		return "associations"
	case PhaseConstructors:
		return "constructors"
	case PhaseFooter:
		return "footer"
	case PhaseDone:
		return "done"
	}
	return "unknown"
}

// PackageScoped is implemented by dialects whose companions must live in
// the directory of the class source.
type PackageScoped interface {
	PackageScoped() bool
}

// Generator generates companion artifacts for mapped entity classes.
//
// Example:
//
//	g, err := gen.NewGenerator(provider, php.NewDialect(locator),
//		gen.WithConstraints(validation),
//		gen.WithPolicy(gen.PolicyStrict),
//	)
//	report, err := g.Generate(ctx, "Blog/Entity")
type Generator struct {
	cfg      *Config
	metadata MetadataProvider
	dialect  Dialect
	oracle   *Oracle
	writer   *Writer
	log      *zap.Logger

	// Optional capabilities detected at construction.
	finalizer   Finalizer
	locator     Locator
	constraints constraint.Provider
}

// NewGenerator creates a generator reading metadata from provider and
// emitting code in the given dialect.
func NewGenerator(metadata MetadataProvider, dialect Dialect, opts ...Option) (*Generator, error) {
	if metadata == nil {
		return nil, NewConfigError("Metadata", nil, "metadata provider cannot be nil")
	}
	if dialect == nil {
		return nil, NewConfigError("Dialect", nil, "dialect cannot be nil")
	}
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	if cfg.FileSuffix == "" {
		cfg.FileSuffix = dialect.DefaultSuffix()
	}
	if ps, ok := dialect.(PackageScoped); ok && ps.PackageScoped() && cfg.PathSegment != "" {
		return nil, NewConfigError("PathSegment", cfg.PathSegment, "the "+dialect.Name()+" dialect keeps companions next to their class")
	}
	g := &Generator{
		cfg:         cfg,
		metadata:    metadata,
		dialect:     dialect,
		oracle:      NewOracle(),
		writer:      NewWriter(cfg.Perm),
		log:         cfg.Logger.With(zap.String("dialect", dialect.Name())),
		constraints: cfg.Constraints,
	}
	// Detect optional capabilities via type assertion
	if f, ok := dialect.(Finalizer); ok {
		g.finalizer = f
	}
	if l, ok := dialect.(Locator); ok {
		g.locator = l
	}
	if p, ok := dialect.(constraint.Provider); ok {
		g.constraints = constraint.Multi(cfg.Constraints, p)
	}
	return g, nil
}

// Config returns the configuration of the generator.
func (g *Generator) Config() *Config {
	return g.cfg
}

// Generate resolves name to one class or to every class of a namespace and
// writes their companions. Slash separators and the Alias:Entity form are
// accepted.
//
// A single-class run returns the failure of that class. A namespace run
// records failures in the report and continues with the next class.
func (g *Generator) Generate(ctx context.Context, name string) (*Report, error) {
	name, err := g.cfg.ExpandAlias(name)
	if err != nil {
		return nil, err
	}
	classes, err := g.metadata.Classes(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return nil, g.lookupError(name)
	}
	// Providers match class names case-insensitively.
	single := len(classes) == 1 && strings.EqualFold(classes[0].Name, name)
	report := &Report{Name: name, Single: single}
	if single {
		report.Name = classes[0].Name
	}
	for _, c := range classes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := g.generate(c)
		report.Results = append(report.Results, res)
		if res.Err != nil {
			g.log.Warn("class generation failed", zap.String("class", c.Name), zap.Error(res.Err))
			if single {
				return report, res.Err
			}
		}
	}
	if !single && g.locator != nil {
		report.Unmapped = g.unmapped(name, classes)
	}
	return report, nil
}

// unmapped lists the classes the dialect finds under namespace that carry
// no mapping metadata.
func (g *Generator) unmapped(namespace string, mapped []*schema.Class) []string {
	names, err := g.locator.Classes(namespace)
	if err != nil {
		g.log.Debug("listing namespace classes", zap.String("namespace", namespace), zap.Error(err))
		return nil
	}
	known := make(map[string]bool, len(mapped))
	for _, c := range mapped {
		known[c.Name] = true
	}
	var unmapped []string
	for _, n := range names {
		if !known[n] {
			g.log.Info("class has no mapping metadata", zap.String("class", n))
			unmapped = append(unmapped, n)
		}
	}
	return unmapped
}

// lookupError tells an unmapped existing class apart from an unknown name.
func (g *Generator) lookupError(name string) error {
	if _, err := g.dialect.Reflect(name); err == nil {
		return NewNotAnEntityError(name)
	}
	return NewNotFoundError(name)
}

func (g *Generator) generate(c *schema.Class) Result {
	res := Result{Class: c.Name}
	art, err := g.Build(c)
	if err != nil {
		res.Err = err
		return res
	}
	res.Path = art.Path
	res.Methods = art.Methods()
	res.Skipped = art.Skipped
	src, err := g.Source(art)
	if err != nil {
		res.Err = &ClassError{Class: c.Name, Phase: PhaseDone, Cause: err}
		return res
	}
	switch {
	case g.cfg.DryRun:
		res.Status, res.Source = StatusPlanned, src
	case g.cfg.Check:
		res.Status, err = g.writer.Compare(art.Path, src)
	default:
		res.Status, err = g.writer.Write(art.Path, src)
	}
	if err != nil {
		res.Err = &ClassError{Class: c.Name, Phase: PhaseDone, Cause: err}
	}
	g.log.Debug("class generated",
		zap.String("class", c.Name),
		zap.String("path", art.Path),
		zap.Stringer("status", res.Status),
		zap.Int("methods", len(res.Methods)),
	)
	return res
}

// Source returns the final text of an artifact, finalized by the dialect
// when it supports it.
func (g *Generator) Source(a *Artifact) ([]byte, error) {
	src := a.Bytes()
	if g.finalizer == nil {
		return src, nil
	}
	return g.finalizer.Finalize(a.Path, src)
}

// Build runs the generation pass of one class and returns the artifact
// without writing it. A failure discards everything built for the class.
func (g *Generator) Build(c *schema.Class) (*Artifact, error) {
	p := &classPass{g: g, class: c}
	if err := p.run(); err != nil {
		return nil, &ClassError{Class: c.Name, Phase: p.phase, Cause: err}
	}
	return p.artifact, nil
}

// Resolve returns the declared type and optionality of the getter of a
// field of class.
func (g *Generator) Resolve(class string, f *field.Descriptor) (Resolution, error) {
	return g.resolver(class).getter(f)
}

// ArtifactPath returns the companion path of a class source path.
func (g *Generator) ArtifactPath(source string) string {
	return ArtifactPath(source, g.cfg.PathSegment, g.cfg.FileSuffix)
}

func (g *Generator) resolver(class string) *resolver {
	return &resolver{
		class:  class,
		policy: g.cfg.Policy,
		constrained: func(field string) bool {
			if g.constraints == nil {
				return false
			}
			return g.constraints.Constraints(class, field).HasNonNull()
		},
	}
}

// classPass is the state of one class generation pass.
type classPass struct {
	g           *Generator
	class       *schema.Class
	refl        *Reflection
	res         *resolver
	base        Params
	phase       Phase
	artifact    *Artifact
	emitted     MethodSet
	collections []Collection
}

func (p *classPass) run() error {
	g, c := p.g, p.class
	refl, err := g.dialect.Reflect(c.Name)
	if err != nil {
		return err
	}
	path := g.ArtifactPath(refl.SourcePath)
	companion, err := g.dialect.CompanionMethods(path)
	if err != nil {
		return err
	}
	g.oracle.Register(c.Name, refl.Methods, companion)

	p.refl = refl
	p.res = g.resolver(c.Name)
	p.emitted = NewMethodSet(refl.Methods.fold)
	p.artifact = &Artifact{Class: c.Name, Path: path}
	p.base = Params{
		"namespace":      c.Namespace(),
		"traitNamespace": companionNamespace(c.Namespace(), g.cfg.PathSegment),
		"className":      c.Name,
		"shortName":      c.ShortName(),
		"traitName":      c.ShortName() + g.cfg.FileSuffix,
		"visibility":     g.cfg.Visibility,
	}
	steps := []struct {
		phase Phase
		run   func() error
	}{
		{PhaseHeader, p.header},
		{PhaseFields, p.fields},
		{PhaseAssociations, p.associations},
		{PhaseConstructors, p.constructors},
		{PhaseFooter, p.footer},
	}
	for _, step := range steps {
		p.phase = step.phase
		if err := step.run(); err != nil {
			return err
		}
	}
	p.phase = PhaseDone
	return nil
}

func (p *classPass) header() (err error) {
	p.artifact.Header, err = p.render(TemplateTop, p.base)
	return err
}

func (p *classPass) footer() (err error) {
	p.artifact.Footer, err = p.render(TemplateBottom, p.base)
	return err
}

func (p *classPass) fields() error {
	d := p.g.dialect
	for _, f := range p.class.Fields {
		if !p.refl.DeclaresProperty(f.Name) {
			p.g.log.Debug("skip inherited field", zap.String("class", p.class.Name), zap.String("field", f.Name))
			continue
		}
		// Types are only resolved for accessors that will be generated.
		get, set := d.MethodName(VerbGet, f.Name), d.MethodName(VerbSet, f.Name)
		if p.exists(get) && p.exists(set) {
			p.skip(get, set)
			continue
		}
		candidates, err := p.fieldCandidates(f)
		if err != nil {
			return err
		}
		if err := p.emitAll(candidates); err != nil {
			return err
		}
	}
	return nil
}

func (p *classPass) associations() error {
	for _, a := range p.class.Associations {
		if !p.refl.DeclaresProperty(a.Name) {
			p.g.log.Debug("skip inherited association", zap.String("class", p.class.Name), zap.String("field", a.Name))
			continue
		}
		candidates, err := p.relationCandidates(a)
		if err != nil {
			return err
		}
		if err := p.emitAll(candidates); err != nil {
			return err
		}
	}
	return nil
}

func (p *classPass) constructors() error {
	d := p.g.dialect
	init := d.InitializerName()
	err := p.emit(MethodCandidate{
		Name:     init,
		Role:     RoleInitializer,
		Template: TemplateDoctrineConstruct,
		Params: Params{
			"method":      init,
			"collections": p.collections,
			"hasParent":   p.refl.HasParent,
		},
	})
	if err != nil {
		return err
	}
	ctor := d.ConstructorName(p.class.ShortName())
	if p.refl.OwnMethods.Has(ctor) {
		p.skip(ctor)
		return nil
	}
	return p.add(MethodCandidate{
		Name:     ctor,
		Role:     RoleConstructor,
		Template: TemplateConstruct,
		Params: Params{
			"method":      ctor,
			"initializer": init,
			"hasParent":   p.refl.HasParent,
		},
	})
}

func (p *classPass) emitAll(candidates []MethodCandidate) error {
	for _, c := range candidates {
		if err := p.emit(c); err != nil {
			return err
		}
	}
	return nil
}

// emit adds c unless the oracle reports the method as existing.
func (p *classPass) emit(c MethodCandidate) error {
	if p.exists(c.Name) {
		p.skip(c.Name)
		return nil
	}
	return p.add(c)
}

// add renders c into the artifact. A name already emitted for this class
// is skipped.
func (p *classPass) add(c MethodCandidate) error {
	if p.emitted.Has(c.Name) {
		p.skip(c.Name)
		return nil
	}
	text, err := p.render(c.Template, p.base.merge(c.Params))
	if err != nil {
		return err
	}
	p.emitted.Add(c.Name)
	p.artifact.Blocks = append(p.artifact.Blocks, Block{Method: c.Name, Role: c.Role, Text: text})
	return nil
}

func (p *classPass) exists(method string) bool {
	return p.g.oracle.Exists(p.class.Name, method)
}

func (p *classPass) skip(methods ...string) {
	for _, m := range methods {
		p.g.log.Debug("skip existing method", zap.String("class", p.class.Name), zap.String("method", m))
		p.artifact.Skipped = append(p.artifact.Skipped, m)
	}
}

func (p *classPass) render(id TemplateID, params Params) (string, error) {
	text, err := p.g.dialect.Render(id, params)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(text, "\n"), nil
}

func companionNamespace(ns, segment string) string {
	if segment == "" {
		return ns
	}
	segment = strings.ReplaceAll(segment, "/", schema.NamespaceSeparator)
	if ns == "" {
		return segment
	}
	return ns + schema.NamespaceSeparator + segment
}

// Block is one rendered method of an artifact.
type Block struct {
	Method string
	Role   Role
	Text   string
}

// Artifact is the companion source of one class, assembled in memory.
type Artifact struct {
	Class  string
	Path   string
	Header string
	Blocks []Block
	Footer string
	// Skipped lists the methods left out because they already exist.
	Skipped []string
}

// Bytes assembles the artifact: the header, each block preceded by a blank
// line, and the footer.
func (a *Artifact) Bytes() []byte {
	var b bytes.Buffer
	b.WriteString(a.Header)
	for _, blk := range a.Blocks {
		b.WriteString("\n\n")
		b.WriteString(blk.Text)
	}
	b.WriteString("\n")
	b.WriteString(a.Footer)
	b.WriteString("\n")
	return b.Bytes()
}

// Methods returns the emitted method names in artifact order.
func (a *Artifact) Methods() []string {
	names := make([]string, len(a.Blocks))
	for i, blk := range a.Blocks {
		names[i] = blk.Method
	}
	return names
}

// Result is the outcome of one class in a generation run.
type Result struct {
	Class   string
	Path    string
	Status  Status
	Methods []string
	Skipped []string
	// Source holds the artifact text of dry runs.
	Source []byte
	Err    error
}

// Report collects the results of a generation run.
type Report struct {
	Name string
	// Single is set when Name resolved to one class rather than a namespace.
	Single  bool
	Results []Result
	// Unmapped lists classes of a namespace run without mapping metadata.
	Unmapped []string
}

// Err joins the errors of all failed classes.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of results with the given status that did not
// fail.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil && res.Status == s {
			n++
		}
	}
	return n
}
