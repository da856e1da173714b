package gen

import (
	"errors"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/syssam/traitgen/schema"
	"github.com/syssam/traitgen/schema/constraint"
)

// DefaultPerm is the mode of written companion files.
const DefaultPerm os.FileMode = 0o664

// Policy decides how mapping nullability and presence constraints combine
// for scalar fields.
type Policy uint8

const (
	// PolicyLenient promotes a non-nullable field without a NotNull or
	// NotBlank constraint to optional.
	PolicyLenient Policy = iota
	// PolicyStrict rejects a non-nullable field that also carries a NotNull
	// or NotBlank constraint.
	PolicyStrict
)

// String returns the policy name.
func (p Policy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "lenient"
}

// ParsePolicy returns the policy for a name.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return PolicyLenient, nil
	case "strict":
		return PolicyStrict, nil
	}
	return PolicyLenient, NewConfigError("Policy", s, "unsupported policy; use lenient or strict")
}

// Config holds the generation settings. It is built with options and is
// read-only once a Generator holds it.
type Config struct {
	// PathSegment is inserted before the file name of companion paths.
	PathSegment string
	// FileSuffix is appended to the base name of companion paths and to
	// the companion type name. Empty selects the dialect default.
	FileSuffix string
	// Visibility of generated accessors.
	Visibility string
	// Perm is applied to written files.
	Perm os.FileMode
	// Policy for scalar field nullability.
	Policy Policy
	// Singularize derives collection element names.
	Singularize Singularizer
	// Constraints supplies validation constraints.
	Constraints constraint.Provider
	// Aliases maps short aliases to namespaces for Alias:Entity names.
	Aliases map[string]string
	// DryRun builds artifacts without writing them.
	DryRun bool
	// Check reports stale artifacts without writing them.
	Check bool
	// Logger receives debug and progress events.
	Logger *zap.Logger
}

// Option configures code generation.
type Option func(*Config) error

// WithPathSegment sets the directory inserted before companion file names.
func WithPathSegment(segment string) Option {
	return func(c *Config) error {
		segment = strings.Trim(segment, `/\`)
		if strings.Contains(segment, "..") {
			return NewConfigError("PathSegment", segment, "segment cannot leave the class directory")
		}
		c.PathSegment = segment
		return nil
	}
}

// WithFileSuffix sets the suffix of companion files and type names.
func WithFileSuffix(suffix string) Option {
	return func(c *Config) error {
		if strings.ContainsAny(suffix, `/\`) {
			return NewConfigError("FileSuffix", suffix, "suffix cannot contain path separators")
		}
		c.FileSuffix = suffix
		return nil
	}
}

// WithVisibility sets the visibility of generated accessors.
// Supported values: "public", "protected", "private".
func WithVisibility(v string) Option {
	return func(c *Config) error {
		switch v {
		case "public", "protected", "private":
			c.Visibility = v
			return nil
		}
		return NewConfigError("Visibility", v, "unsupported visibility; use public, protected, or private")
	}
}

// WithPerm sets the mode of written files.
func WithPerm(perm os.FileMode) Option {
	return func(c *Config) error {
		if perm == 0 || perm&^os.ModePerm != 0 {
			return NewConfigError("Perm", perm, "mode must be a non-zero permission mask")
		}
		c.Perm = perm
		return nil
	}
}

// WithPolicy sets the scalar nullability policy.
func WithPolicy(p Policy) Option {
	return func(c *Config) error {
		if p != PolicyLenient && p != PolicyStrict {
			return NewConfigError("Policy", p, "unsupported policy")
		}
		c.Policy = p
		return nil
	}
}

// WithSingularizer sets the function deriving collection element names.
func WithSingularizer(s Singularizer) Option {
	return func(c *Config) error {
		if s == nil {
			return NewConfigError("Singularize", nil, "singularizer cannot be nil")
		}
		c.Singularize = s
		return nil
	}
}

// WithConstraints sets the constraint provider.
func WithConstraints(p constraint.Provider) Option {
	return func(c *Config) error {
		c.Constraints = p
		return nil
	}
}

// WithAliases adds namespace aliases for the Alias:Entity form.
func WithAliases(aliases map[string]string) Option {
	return func(c *Config) error {
		if c.Aliases == nil {
			c.Aliases = make(map[string]string, len(aliases))
		}
		for alias, ns := range aliases {
			if alias == "" || strings.Contains(alias, ":") {
				return NewConfigError("Aliases", alias, "alias must be a non-empty name without a colon")
			}
			c.Aliases[alias] = schema.NormalizeName(ns)
		}
		return nil
	}
}

// WithDryRun builds artifacts without writing them.
func WithDryRun(on bool) Option {
	return func(c *Config) error {
		c.DryRun = on
		return nil
	}
}

// WithCheck reports artifacts that differ from disk without writing them.
func WithCheck(on bool) Option {
	return func(c *Config) error {
		c.Check = on
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) error {
		c.Logger = l
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a Config with defaults and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Visibility:  "public",
		Perm:        DefaultPerm,
		Singularize: NaiveSingular,
		Logger:      zap.NewNop(),
	}
	if err := c.ApplyAll(opts...); err != nil {
		return nil, err
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// ExpandAlias rewrites an Alias:Entity name to its namespaced class name.
// Names without a known alias are returned normalized.
func (c *Config) ExpandAlias(name string) (string, error) {
	alias, rest, ok := strings.Cut(name, ":")
	if !ok {
		return schema.NormalizeName(name), nil
	}
	ns, found := c.Aliases[alias]
	if !found {
		return "", NewConfigError("Aliases", alias, "unknown namespace alias")
	}
	rest = schema.NormalizeName(rest)
	if rest == "" {
		return ns, nil
	}
	return ns + schema.NamespaceSeparator + rest, nil
}
