package php

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/syssam/traitgen/schema"
)

// Root maps a namespace prefix to a source directory, as a PSR-4 autoload
// entry does.
type Root struct {
	Prefix string
	Dir    string
}

// Locator finds the source files of classes from PSR-4 roots.
type Locator struct {
	roots []Root
}

// NewLocator returns a locator over roots. Longer prefixes take precedence.
func NewLocator(roots ...Root) *Locator {
	l := &Locator{}
	for _, r := range roots {
		l.roots = append(l.roots, Root{Prefix: schema.NormalizeName(r.Prefix), Dir: filepath.Clean(r.Dir)})
	}
	sort.SliceStable(l.roots, func(i, j int) bool {
		return len(l.roots[i].Prefix) > len(l.roots[j].Prefix)
	})
	return l
}

// LoadComposer reads the autoload.psr-4 and autoload-dev.psr-4 sections of
// a composer.json file. Directories are relative to the file.
func LoadComposer(path string) (*Locator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("php: reading composer file: %w", err)
	}
	var manifest struct {
		Autoload    composerAutoload `json:"autoload"`
		AutoloadDev composerAutoload `json:"autoload-dev"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("php: parsing %s: %w", path, err)
	}
	base := filepath.Dir(path)
	var roots []Root
	for _, section := range []composerAutoload{manifest.Autoload, manifest.AutoloadDev} {
		prefixes := make([]string, 0, len(section.PSR4))
		for prefix := range section.PSR4 {
			prefixes = append(prefixes, prefix)
		}
		sort.Strings(prefixes)
		for _, prefix := range prefixes {
			for _, dir := range section.PSR4[prefix] {
				roots = append(roots, Root{Prefix: prefix, Dir: filepath.Join(base, filepath.FromSlash(dir))})
			}
		}
	}
	return NewLocator(roots...), nil
}

type composerAutoload struct {
	PSR4 map[string]composerDirs `json:"psr-4"`
}

// composerDirs accepts a single directory or a list of directories.
type composerDirs []string

func (d *composerDirs) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*d = composerDirs{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*d = many
	return nil
}

// Roots returns the roots in lookup order.
func (l *Locator) Roots() []Root {
	return l.roots
}

// Path returns the source file of class, and false when no root holds it.
func (l *Locator) Path(class string) (string, bool) {
	class = schema.NormalizeName(class)
	for _, r := range l.roots {
		rel, ok := trimPrefix(class, r.Prefix)
		if !ok || rel == "" {
			continue
		}
		path := filepath.Join(r.Dir, filepath.FromSlash(strings.ReplaceAll(rel, schema.NamespaceSeparator, "/"))+".php")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Dirs returns the directories that may hold classes of namespace.
func (l *Locator) Dirs(namespace string) []string {
	namespace = schema.NormalizeName(namespace)
	var dirs []string
	for _, r := range l.roots {
		if rel, ok := trimPrefix(namespace, r.Prefix); ok {
			dirs = append(dirs, filepath.Join(r.Dir, filepath.FromSlash(strings.ReplaceAll(rel, schema.NamespaceSeparator, "/"))))
			continue
		}
		// The root lives below the namespace.
		if _, ok := trimPrefix(r.Prefix, namespace); ok {
			dirs = append(dirs, r.Dir)
		}
	}
	return dirs
}

// Files walks the directories of namespace and calls fn for each PHP file.
func (l *Locator) Files(namespace string, fn func(path string) error) error {
	seen := make(map[string]bool)
	for _, dir := range l.Dirs(namespace) {
		err := filepath.WalkDir(dir, func(path string, e fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return filepath.SkipDir
				}
				return err
			}
			if e.IsDir() || filepath.Ext(path) != ".php" || seen[path] {
				return nil
			}
			seen[path] = true
			return fn(path)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// trimPrefix strips a namespace prefix at a separator boundary. An empty
// prefix matches every name.
func trimPrefix(name, prefix string) (string, bool) {
	switch {
	case prefix == "":
		return name, true
	case strings.EqualFold(name, prefix):
		return "", true
	case len(name) > len(prefix) && strings.EqualFold(name[:len(prefix)], prefix) && name[len(prefix):len(prefix)+1] == schema.NamespaceSeparator:
		return name[len(prefix)+1:], true
	}
	return "", false
}
