package load

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/traitgen/schema"
)

// MappingSuffixes are the file name suffixes of Doctrine YAML mappings.
var MappingSuffixes = []string{".orm.yml", ".orm.yaml", ".dcm.yml", ".dcm.yaml"}

// Provider serves the classes of Doctrine YAML mapping files. Files are
// parsed once, concurrently, and kept until Reset.
type Provider struct {
	paths   []string
	workers int
	cache   Cache
	log     *zap.Logger

	mu      sync.Mutex
	classes []*schema.Class
	loaded  bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithWorkers limits the number of files parsed at once.
func WithWorkers(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithCache stores parsed classes in c, keyed by the fingerprint of the
// mapping files.
func WithCache(c Cache) Option {
	return func(p *Provider) {
		p.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

// NewProvider returns a provider reading the mapping files found at paths.
// A path is a mapping file or a directory searched recursively.
func NewProvider(paths []string, opts ...Option) *Provider {
	p := &Provider{
		paths:   paths,
		workers: runtime.GOMAXPROCS(0),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Classes returns the class named name, or every class of the namespace
// name when no class matches exactly.
func (p *Provider) Classes(ctx context.Context, name string) ([]*schema.Class, error) {
	all, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	return match(all, name), nil
}

// Reset drops the parsed classes; the next call reads the files again.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.classes, p.loaded = nil, false
}

// Load parses every mapping file, in file order.
func (p *Provider) Load(ctx context.Context) ([]*schema.Class, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.classes, nil
	}
	files, err := Discover(p.paths, MappingSuffixes...)
	if err != nil {
		return nil, err
	}
	classes, err := p.cached(ctx, files)
	if err != nil {
		return nil, err
	}
	p.classes, p.loaded = classes, true
	return classes, nil
}

// cached returns the classes of files from the cache, parsing and storing
// them on a miss. Cache failures only cost the parse.
func (p *Provider) cached(ctx context.Context, files []string) ([]*schema.Class, error) {
	if p.cache == nil {
		return p.parse(ctx, files)
	}
	key, err := Fingerprint(files)
	if err != nil {
		return nil, fmt.Errorf("load: fingerprinting mapping files: %w", err)
	}
	if data, err := p.cache.Get(ctx, key); err != nil {
		p.log.Warn("reading metadata cache", zap.String("key", key), zap.Error(err))
	} else if data != nil {
		classes, err := decodeClasses(data)
		if err == nil {
			p.log.Debug("metadata cache hit", zap.String("key", key), zap.Int("classes", len(classes)))
			return classes, nil
		}
		p.log.Warn("decoding metadata cache", zap.String("key", key), zap.Error(err))
	}
	classes, err := p.parse(ctx, files)
	if err != nil {
		return nil, err
	}
	data, err := encodeClasses(classes)
	if err == nil {
		err = p.cache.Set(ctx, key, data)
	}
	if err != nil {
		p.log.Warn("writing metadata cache", zap.String("key", key), zap.Error(err))
	}
	return classes, nil
}

// parse reads files concurrently and joins their classes in file order.
func (p *Provider) parse(ctx context.Context, files []string) ([]*schema.Class, error) {
	results := make([][]*schema.Class, len(files))
	errg, ctx := errgroup.WithContext(ctx)
	errg.SetLimit(p.workers)
	for i, path := range files {
		errg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return &MappingError{Path: path, Message: err.Error()}
			}
			classes, err := ParseMapping(path, data)
			if err != nil {
				return err
			}
			results[i] = classes
			return nil
		})
	}
	if err := errg.Wait(); err != nil {
		return nil, err
	}
	seen := make(map[string]string)
	var classes []*schema.Class
	for i, rs := range results {
		for _, c := range rs {
			if prev, ok := seen[strings.ToLower(c.Name)]; ok {
				return nil, &MappingError{Path: files[i], Message: fmt.Sprintf("class %s is already mapped in %s", c.Name, prev)}
			}
			seen[strings.ToLower(c.Name)] = files[i]
			classes = append(classes, c)
		}
	}
	p.log.Debug("mapping loaded", zap.Int("files", len(files)), zap.Int("classes", len(classes)))
	return classes, nil
}

// Discover lists the files at paths whose names end with one of suffixes.
// Directories are searched recursively in lexical order; explicit files
// are kept whatever their name.
func Discover(paths []string, suffixes ...string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		if !info.IsDir() {
			add(filepath.Clean(root))
			continue
		}
		err = filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if e.IsDir() || !hasSuffix(e.Name(), suffixes) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
	}
	return files, nil
}

func hasSuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
