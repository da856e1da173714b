// Package config loads the traitgen configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultFile is read when no configuration file is given and it exists
// in the working directory.
const DefaultFile = "traitgen.yaml"

// Supported dialects.
const (
	DialectPHP = "php"
	DialectGo  = "go"
)

// Config holds all configuration for traitgen.
// Environment variables override the values of the YAML file.
type Config struct {
	// Dialect of the generated companions: php or go.
	Dialect string `yaml:"dialect" env:"TRAITGEN_DIALECT" env-default:"php"`

	// Mapping lists Doctrine YAML mapping files or directories.
	Mapping []string `yaml:"mapping" env:"TRAITGEN_MAPPING"`
	// Validation lists Symfony validation files or directories.
	Validation []string `yaml:"validation" env:"TRAITGEN_VALIDATION"`

	// Composer is a composer.json whose PSR-4 entries locate PHP classes.
	Composer string `yaml:"composer" env:"TRAITGEN_COMPOSER"`
	// Sources maps namespace prefixes to source directories, in addition
	// to the composer entries.
	Sources map[string]string `yaml:"sources"`
	// Aliases maps short aliases to namespaces for the Alias:Entity form.
	Aliases map[string]string `yaml:"aliases"`
	// Templates overrides the embedded PHP templates.
	Templates string `yaml:"templates" env:"TRAITGEN_TEMPLATES"`

	Output OutputConfig `yaml:"output"`

	// Nullability is the scalar nullability policy: lenient or strict.
	Nullability string `yaml:"nullability" env:"TRAITGEN_NULLABILITY" env-default:"lenient"`
	// Singularize names the singularizer: naive, inflect or inflection.
	Singularize string `yaml:"singularize" env:"TRAITGEN_SINGULARIZE" env-default:"naive"`

	// Cache is the directory of the mapping metadata cache. Empty disables it.
	Cache string `yaml:"cache" env:"TRAITGEN_CACHE"`
	// Workers limits the mapping files parsed at once; 0 means GOMAXPROCS.
	Workers int `yaml:"workers" env:"TRAITGEN_WORKERS" env-default:"0"`

	// Database replaces the mapping files with a live schema when its
	// driver is set.
	Database DatabaseConfig `yaml:"database"`

	Log LogConfig `yaml:"log"`

	// Path is the file the configuration was read from, empty when none.
	Path string `yaml:"-"`
}

// OutputConfig holds the companion file settings.
type OutputConfig struct {
	Segment    string `yaml:"segment" env:"TRAITGEN_OUTPUT_SEGMENT"`
	Suffix     string `yaml:"suffix" env:"TRAITGEN_OUTPUT_SUFFIX"`
	Visibility string `yaml:"visibility" env:"TRAITGEN_OUTPUT_VISIBILITY" env-default:"public"`
	// Mode is the octal permission of written files.
	Mode string `yaml:"mode" env:"TRAITGEN_OUTPUT_MODE" env-default:"0664"`
}

// DatabaseConfig holds the introspection source settings.
type DatabaseConfig struct {
	Driver    string   `yaml:"driver" env:"TRAITGEN_DATABASE_DRIVER"`
	DSN       string   `yaml:"dsn" env:"TRAITGEN_DATABASE_DSN"`
	Schema    string   `yaml:"schema" env:"TRAITGEN_DATABASE_SCHEMA"`
	Namespace string   `yaml:"namespace" env:"TRAITGEN_DATABASE_NAMESPACE"`
	Exclude   []string `yaml:"exclude" env:"TRAITGEN_DATABASE_EXCLUDE"`
}

// Enabled reports if the database source is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.Driver != ""
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"TRAITGEN_LOG_LEVEL" env-default:"warn"`
	Format string `yaml:"format" env:"TRAITGEN_LOG_FORMAT" env-default:"console"`
}

// Load reads the configuration file at path with environment overrides.
// An empty path reads DefaultFile when it exists, and the environment
// alone otherwise. Relative paths of the file resolve against its
// directory.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config: reading environment: %w", err)
		}
	} else {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		cfg.Path = path
		cfg.resolve(filepath.Dir(path))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve makes the relative paths of the configuration relative to base.
func (c *Config) resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i, p := range c.Mapping {
		c.Mapping[i] = abs(p)
	}
	for i, p := range c.Validation {
		c.Validation[i] = abs(p)
	}
	for prefix, dir := range c.Sources {
		c.Sources[prefix] = abs(dir)
	}
	c.Composer = abs(c.Composer)
	c.Templates = abs(c.Templates)
	c.Cache = abs(c.Cache)
	if c.Database.Driver != "" && !strings.Contains(c.Database.DSN, "://") && strings.HasPrefix(strings.ToLower(c.Database.Driver), "sqlite") {
		c.Database.DSN = abs(c.Database.DSN)
	}
}

// Validate checks the values that cannot be checked by their consumers.
func (c *Config) Validate() error {
	switch c.Dialect {
	case DialectPHP, DialectGo:
	default:
		return fmt.Errorf("config: unsupported dialect %q; use php or go", c.Dialect)
	}
	if _, err := c.Output.Perm(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers cannot be negative")
	}
	if !c.Database.Enabled() && len(c.Mapping) == 0 {
		return fmt.Errorf("config: no metadata source; set mapping or database.driver")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: unsupported log format %q; use console or json", c.Log.Format)
	}
	return nil
}

// Perm parses the octal file mode.
func (o *OutputConfig) Perm() (os.FileMode, error) {
	v, err := strconv.ParseUint(o.Mode, 8, 32)
	if err != nil || v == 0 || v > 0o777 {
		return 0, fmt.Errorf("config: output.mode %q is not an octal permission", o.Mode)
	}
	return os.FileMode(v), nil
}
