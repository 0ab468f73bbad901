package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// #region types

// Reporter receives one line per file event.
type Reporter interface {
	Info(ctx context.Context, msg string)
	Debug(ctx context.Context, msg string)
}

// Config lists the trees to watch, relative to Root, and the ignored substrings.
type Config struct {
	Root   string
	Paths  []string
	Ignore []string
}

// #endregion types

// #region watcher

// Watcher reports add/change/unlink events under the configured trees.
type Watcher struct {
	cfg Config
	out Reporter
	fs  *fsnotify.Watcher
}

// New creates a watcher. Empty Paths and Ignore fall back to the usual
// source trees and build directories.
func New(cfg Config, out Reporter) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		cfg.Paths = []string{"server", "client", "shared"}
	}
	if cfg.Ignore == nil {
		cfg.Ignore = []string{"node_modules", "dist", ".git"}
	}
	if cfg.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getwd: %w", err)
		}
		cfg.Root = wd
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{cfg: cfg, out: out, fs: fw}, nil
}

// Run registers the trees and reports events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	var shown []string
	for _, p := range w.cfg.Paths {
		root := filepath.Join(w.cfg.Root, p)
		if err := w.addRecursive(root); err != nil {
			return err
		}
		shown = append(shown, w.rel(root))
	}
	w.out.Info(ctx, "watcher active on: "+strings.Join(shown, ", "))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.out.Debug(ctx, "watch error: "+err.Error())
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if w.ignored(ev.Name) {
		return
	}
	kind := Kind(ev.Op)
	if kind == "" {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(ev.Name)
		}
	}
	w.out.Debug(ctx, kind+": "+w.rel(ev.Name))
}

// Kind maps an fsnotify op to add, change or unlink. Chmod-only events map to "".
func Kind(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "add"
	case op.Has(fsnotify.Write):
		return "change"
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return "unlink"
	default:
		return ""
	}
}

// #endregion watcher

// #region helpers

// addRecursive watches root and its subdirectories. A missing root is skipped.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	for _, sub := range w.cfg.Ignore {
		if sub != "" && strings.Contains(path, sub) {
			return true
		}
	}
	return false
}

func (w *Watcher) rel(path string) string {
	if r, err := filepath.Rel(w.cfg.Root, path); err == nil && !strings.HasPrefix(r, "..") {
		return "./" + filepath.ToSlash(r)
	}
	return path
}

// #endregion helpers
