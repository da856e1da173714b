// Package watch reruns generation when the metadata or the class sources
// change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before a cycle starts.
const DefaultDebounce = 300 * time.Millisecond

// RunFunc runs one generation cycle. Its error is logged and does not stop
// the watcher.
type RunFunc func(ctx context.Context, cycle string) error

// Watcher runs a RunFunc once, then again after every burst of file
// changes under its paths.
type Watcher struct {
	paths    []string
	run      RunFunc
	debounce time.Duration
	ignore   func(path string) bool
	log      *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a cycle starts.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnore skips the events of paths for which ignore returns true, such
// as the written companions.
func WithIgnore(ignore func(path string) bool) Option {
	return func(w *Watcher) {
		w.ignore = ignore
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// New returns a watcher over paths, files or directories watched
// recursively.
func New(paths []string, run RunFunc, opts ...Option) *Watcher {
	w := &Watcher{
		paths:    paths,
		run:      run,
		debounce: DefaultDebounce,
		ignore:   func(string) bool { return false },
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fsw.Close()
	for _, p := range w.paths {
		if err := w.add(fsw, p); err != nil {
			return err
		}
	}
	w.cycle(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.add(fsw, ev.Name); err != nil {
						w.log.Warn("watching new directory", zap.String("path", ev.Name), zap.Error(err))
					}
				}
			}
			w.log.Debug("change detected", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		case <-timer.C:
			w.cycle(ctx)
		}
	}
}

func (w *Watcher) cycle(ctx context.Context) {
	id := uuid.NewString()
	log := w.log.With(zap.String("cycle", id))
	start := time.Now()
	log.Debug("cycle started")
	if err := w.run(ctx, id); err != nil {
		log.Error("cycle failed", zap.Error(err))
		return
	}
	log.Debug("cycle finished", zap.Duration("elapsed", time.Since(start)))
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod || hidden(filepath.Base(ev.Name)) {
		return false
	}
	return !w.ignore(ev.Name)
}

// add watches path, and every directory below it when it is a directory.
// Files are watched through their directory.
func (w *Watcher) add(fsw *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return fsw.Add(filepath.Dir(path))
	}
	return filepath.WalkDir(path, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !e.IsDir() {
			return nil
		}
		if p != path && (hidden(e.Name()) || e.Name() == "vendor" || e.Name() == "node_modules") {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			return fmt.Errorf("watch: %s: %w", p, err)
		}
		return nil
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
