package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/syssam/traitgen/compiler/gen"
	"github.com/syssam/traitgen/compiler/gen/golang"
	"github.com/syssam/traitgen/compiler/gen/php"
	"github.com/syssam/traitgen/compiler/load"
	"github.com/syssam/traitgen/internal/config"
	"github.com/syssam/traitgen/internal/logging"
)

// runFlags are the per-run overrides of the configuration.
type runFlags struct {
	dryRun bool
	check  bool
	path   string
}

// session is one generator with the resources it holds.
type session struct {
	gen     *gen.Generator
	closers []io.Closer
}

func (s *session) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// session builds a generator from the configuration.
func (a *app) session(ctx context.Context, f runFlags) (*session, error) {
	s := &session{}
	metadata, err := a.metadata(ctx, s)
	if err != nil {
		return nil, err
	}
	dialect, err := a.dialect()
	if err != nil {
		s.Close()
		return nil, err
	}
	opts, err := a.options(f)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.gen, err = gen.NewGenerator(metadata, dialect, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (a *app) metadata(ctx context.Context, s *session) (gen.MetadataProvider, error) {
	if db := a.cfg.Database; db.Enabled() {
		a.log.Info("inspecting database",
			zap.String("driver", db.Driver),
			zap.String("dsn", logging.SanitizeDSN(db.DSN)),
			zap.String("schema", db.Schema),
		)
		src, err := load.OpenDatabase(ctx, load.DatabaseConfig{
			Driver:    db.Driver,
			DSN:       db.DSN,
			Schema:    db.Schema,
			Namespace: db.Namespace,
			Exclude:   db.Exclude,
			Logger:    a.log.Named("database"),
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, src)
		return src, nil
	}
	opts := []load.Option{load.WithLogger(a.log.Named("load"))}
	if a.cfg.Workers > 0 {
		opts = append(opts, load.WithWorkers(a.cfg.Workers))
	}
	if a.cfg.Cache != "" {
		opts = append(opts, load.WithCache(load.NewFileCache(a.cfg.Cache)))
	}
	return load.NewProvider(a.cfg.Mapping, opts...), nil
}

func (a *app) dialect() (gen.Dialect, error) {
	log := a.log.Named(a.cfg.Dialect)
	if a.cfg.Dialect == config.DialectGo {
		var roots []golang.Root
		for _, prefix := range sortedKeys(a.cfg.Sources) {
			roots = append(roots, golang.Root{Prefix: prefix, Dir: a.cfg.Sources[prefix]})
		}
		return golang.NewDialect(roots, golang.WithLogger(log))
	}
	loc, err := a.locator()
	if err != nil {
		return nil, err
	}
	opts := []php.Option{php.WithLogger(log)}
	if a.cfg.Templates != "" {
		opts = append(opts, php.WithTemplateDir(a.cfg.Templates))
	}
	return php.NewDialect(loc, opts...)
}

// locator joins the composer autoload entries and the configured sources.
func (a *app) locator() (*php.Locator, error) {
	var roots []php.Root
	if a.cfg.Composer != "" {
		loc, err := php.LoadComposer(a.cfg.Composer)
		if err != nil {
			return nil, err
		}
		roots = append(roots, loc.Roots()...)
	}
	for _, prefix := range sortedKeys(a.cfg.Sources) {
		roots = append(roots, php.Root{Prefix: prefix, Dir: a.cfg.Sources[prefix]})
	}
	return php.NewLocator(roots...), nil
}

func (a *app) options(f runFlags) ([]gen.Option, error) {
	perm, err := a.cfg.Output.Perm()
	if err != nil {
		return nil, err
	}
	policy, err := gen.ParsePolicy(a.cfg.Nullability)
	if err != nil {
		return nil, err
	}
	singular, err := gen.ParseSingularizer(a.cfg.Singularize)
	if err != nil {
		return nil, err
	}
	opts := []gen.Option{
		gen.WithPolicy(policy),
		gen.WithSingularizer(singular),
		gen.WithVisibility(a.cfg.Output.Visibility),
		gen.WithPerm(perm),
		gen.WithAliases(a.cfg.Aliases),
		gen.WithDryRun(f.dryRun),
		gen.WithCheck(f.check),
		gen.WithLogger(a.log.Named("gen")),
	}
	segment := a.cfg.Output.Segment
	if f.path != "" {
		segment = f.path
	}
	if segment != "" {
		opts = append(opts, gen.WithPathSegment(segment))
	}
	if a.cfg.Output.Suffix != "" {
		opts = append(opts, gen.WithFileSuffix(a.cfg.Output.Suffix))
	}
	if len(a.cfg.Validation) > 0 {
		constraints, err := load.LoadValidation(a.cfg.Validation...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, gen.WithConstraints(constraints))
	}
	return opts, nil
}

// watched returns the paths whose changes call for a new run.
func (a *app) watched() ([]string, error) {
	paths := append([]string(nil), a.cfg.Mapping...)
	paths = append(paths, a.cfg.Validation...)
	if a.cfg.Dialect == config.DialectGo {
		for _, prefix := range sortedKeys(a.cfg.Sources) {
			paths = append(paths, a.cfg.Sources[prefix])
		}
	} else {
		loc, err := a.locator()
		if err != nil {
			return nil, err
		}
		for _, r := range loc.Roots() {
			paths = append(paths, r.Dir)
		}
	}
	if a.cfg.Templates != "" {
		paths = append(paths, a.cfg.Templates)
	}
	var existing []string
	for _, p := range dedupe(paths) {
		if _, err := os.Stat(p); err != nil {
			a.log.Debug("not watching missing path", zap.String("path", p))
			continue
		}
		existing = append(existing, p)
	}
	return existing, nil
}

// companion reports if path is a generated companion with suffix.
func companion(path, suffix string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), suffix)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
