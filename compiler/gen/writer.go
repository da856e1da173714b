package gen

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Status is the outcome of writing one artifact.
type Status uint8

// Write statuses.
const (
	StatusNone Status = iota
	// StatusWritten means the file was created or replaced.
	StatusWritten
	// StatusUnchanged means the file already held the artifact.
	StatusUnchanged
	// StatusStale means the file differs from the artifact (check mode).
	StatusStale
	// StatusPlanned means the artifact was built but not written (dry run).
	StatusPlanned
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusUnchanged:
		return "unchanged"
	case StatusStale:
		return "stale"
	case StatusPlanned:
		return "planned"
	}
	return "none"
}

// ArtifactPath derives a companion path from a class source path by
// inserting segment before the file name and appending suffix to the base
// name: ("src/Entity/Post.php", "Generated", "Trait") yields
// "src/Entity/Generated/PostTrait.php".
func ArtifactPath(source, segment, suffix string) string {
	dir, file := filepath.Split(source)
	ext := filepath.Ext(file)
	base := strings.TrimSuffix(file, ext)
	if segment != "" {
		dir = filepath.Join(dir, filepath.FromSlash(segment))
	}
	return filepath.Join(dir, base+suffix+ext)
}

// Writer persists artifacts atomically.
type Writer struct {
	perm os.FileMode
}

// NewWriter returns a writer applying perm to written files.
func NewWriter(perm os.FileMode) *Writer {
	if perm == 0 {
		perm = DefaultPerm
	}
	return &Writer{perm: perm}
}

// Write replaces the file at path with data. The content goes to a
// temporary file in the same directory that is renamed over path, so
// readers never observe a partial artifact. Identical content is not
// rewritten, only brought to the writer's mode.
func (w *Writer) Write(path string, data []byte) (Status, error) {
	st, err := w.Compare(path, data)
	if err != nil {
		return st, err
	}
	if st == StatusUnchanged {
		if err := os.Chmod(path, w.perm); err != nil {
			return StatusNone, fmt.Errorf("chmod %s: %w", path, err)
		}
		return st, nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StatusNone, fmt.Errorf("create directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return StatusNone, fmt.Errorf("create temporary file for %s: %w", path, err)
	}
	// Remove is a no-op once the rename succeeded.
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return StatusNone, fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return StatusNone, fmt.Errorf("write %s: %w", path, err)
	}
	// CreateTemp opens with 0600 and chmod is not subject to the umask.
	if err := os.Chmod(tmp.Name(), w.perm); err != nil {
		return StatusNone, fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return StatusNone, fmt.Errorf("rename %s: %w", path, err)
	}
	return StatusWritten, nil
}

// Compare reports whether the file at path already holds data. A missing
// file is stale.
func (w *Writer) Compare(path string, data []byte) (Status, error) {
	current, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return StatusStale, nil
	case err != nil:
		return StatusNone, fmt.Errorf("read %s: %w", path, err)
	case bytes.Equal(current, data):
		return StatusUnchanged, nil
	}
	return StatusStale, nil
}
