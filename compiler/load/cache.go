package load

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/traitgen/schema"
)

// cacheVersion invalidates entries written by an incompatible encoding.
const cacheVersion = "v1"

// Cache stores encoded metadata by key.
// Implementations decide where entries live; FileCache keeps them on disk.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache.
	Set(ctx context.Context, key string, value []byte) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// FileCache is a Cache keeping one file per key in a directory.
type FileCache struct {
	dir string
}

// NewFileCache returns a cache in dir. The directory is created on the
// first write.
func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".msgpack")
}

// Get implements Cache.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Set implements Cache. Entries are replaced atomically.
func (c *FileCache) Set(_ context.Context, key string, value []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("load: creating cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, "."+key+".*")
	if err != nil {
		return fmt.Errorf("load: writing cache entry: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("load: writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("load: writing cache entry: %w", err)
	}
	return os.Rename(tmp.Name(), c.path(key))
}

// Clear implements Cache.
func (c *FileCache) Clear(context.Context) error {
	entries, err := filepath.Glob(filepath.Join(c.dir, "*.msgpack"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.Remove(e); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Fingerprint returns a cache key identifying the content state of files
// by path, size and modification time.
func Fingerprint(files []string) (string, error) {
	h := sha256.New()
	h.Write([]byte(cacheVersion))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return "", err
		}
		h.Write([]byte(strings.Join([]string{
			f,
			strconv.FormatInt(info.Size(), 10),
			strconv.FormatInt(info.ModTime().UnixNano(), 10),
		}, "\x00")))
		h.Write([]byte{'\n'})
	}
	return cacheVersion + "-" + hex.EncodeToString(h.Sum(nil))[:32], nil
}

// encodeClasses serializes classes for the cache.
func encodeClasses(classes []*schema.Class) ([]byte, error) {
	return msgpack.Marshal(classes)
}

// decodeClasses deserializes cached classes.
func decodeClasses(data []byte) ([]*schema.Class, error) {
	var classes []*schema.Class
	if err := msgpack.Unmarshal(data, &classes); err != nil {
		return nil, err
	}
	return classes, nil
}
