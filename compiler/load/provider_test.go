package load

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/syssam/traitgen/schema"
)

var blogMapping = filepath.Join("testdata", "blog", "mapping")

func names(classes []*schema.Class) []string {
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = c.Name
	}
	return out
}

func TestDiscover(t *testing.T) {
	files, err := Discover([]string{blogMapping}, MappingSuffixes...)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(blogMapping, "Blog.Entity.Comment.dcm.yml"),
		filepath.Join(blogMapping, "Blog.Entity.Post.orm.yml"),
		filepath.Join(blogMapping, "Blog.Entity.Tag.orm.yml"),
		filepath.Join(blogMapping, "Blog.Entity.User.orm.yml"),
	}, files)

	t.Run("explicit files are kept once", func(t *testing.T) {
		readme := filepath.Join(blogMapping, "README.md")
		files, err := Discover([]string{readme, readme}, MappingSuffixes...)
		require.NoError(t, err)
		assert.Equal(t, []string{readme}, files)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := Discover([]string{filepath.Join(t.TempDir(), "missing")}, MappingSuffixes...)
		require.Error(t, err)
	})
}

func TestProviderClasses(t *testing.T) {
	ctx := context.Background()
	p := NewProvider([]string{blogMapping}, WithWorkers(2))

	all, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`Blog\Entity\Comment`,
		`Blog\Entity\Post`,
		`Blog\Entity\Tag`,
		`Blog\Entity\User`,
		`Blog\Entity\Profile`,
	}, names(all))

	t.Run("exact class", func(t *testing.T) {
		classes, err := p.Classes(ctx, `blog/entity/post`)
		require.NoError(t, err)
		assert.Equal(t, []string{`Blog\Entity\Post`}, names(classes))
	})

	t.Run("namespace", func(t *testing.T) {
		classes, err := p.Classes(ctx, `Blog\Entity\`)
		require.NoError(t, err)
		assert.Len(t, classes, 5)
	})

	t.Run("unknown", func(t *testing.T) {
		classes, err := p.Classes(ctx, `Shop`)
		require.NoError(t, err)
		assert.Empty(t, classes)
	})
}

func TestProviderReset(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	write := func(name, doc string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644))
	}
	write("a.orm.yml", "App\\A:\n  type: entity\n")
	p := NewProvider([]string{dir})

	all, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{`App\A`}, names(all))

	write("b.orm.yml", "App\\B:\n  type: entity\n")
	all, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "classes are kept until Reset")

	p.Reset()
	all, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{`App\A`, `App\B`}, names(all))
}

func TestProviderErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("class mapped twice", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.orm.yml"), []byte("App\\A:\n  type: entity\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.orm.yml"), []byte("app\\a:\n  type: entity\n"), 0o644))
		_, err := NewProvider([]string{dir}).Load(ctx)
		require.Error(t, err)
		assert.True(t, IsMappingError(err))
		assert.Contains(t, err.Error(), "already mapped in")
	})

	t.Run("malformed file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.orm.yml"), []byte("- A\n"), 0o644))
		_, err := NewProvider([]string{dir}).Classes(ctx, "A")
		assert.ErrorIs(t, err, ErrMapping)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewProvider([]string{blogMapping}).Load(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestProviderCache(t *testing.T) {
	ctx := context.Background()
	cache := NewFileCache(t.TempDir())
	core, logs := observer.New(zap.DebugLevel)

	first, err := NewProvider([]string{blogMapping}, WithCache(cache), WithLogger(zap.New(core))).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, logs.FilterMessage("metadata cache hit").Len())

	second, err := NewProvider([]string{blogMapping}, WithCache(cache), WithLogger(zap.New(core))).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("metadata cache hit").Len())
	assert.Equal(t, first, second)

	t.Run("corrupt entry is parsed again", func(t *testing.T) {
		files, err := Discover([]string{blogMapping}, MappingSuffixes...)
		require.NoError(t, err)
		key, err := Fingerprint(files)
		require.NoError(t, err)
		require.NoError(t, cache.Set(ctx, key, []byte{0xc1}))

		classes, err := NewProvider([]string{blogMapping}, WithCache(cache), WithLogger(zap.New(core))).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, classes)
		assert.Equal(t, 1, logs.FilterMessage("decoding metadata cache").Len())
	})
}
