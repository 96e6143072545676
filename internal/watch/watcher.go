// Package watch delivers filesystem change events for workspace
// manifests. It registers every non-ignored directory under the root
// with fsnotify, filters events down to manifest paths, and hands each
// one to the invalidation layer; coalescing and scheduling are the
// consumer's concern.
package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/modwatch-dev/modwatch/internal/ignore"
)

// ManifestPattern selects which files produce events.
const ManifestPattern = "**/go.mod"

// Event is one filesystem notification for a manifest file.
type Event struct {
	// Path is the absolute path of the affected manifest.
	Path string
	// Removed is true for delete and rename-away notifications.
	Removed bool
}

// Config holds the parameters for a Watcher.
type Config struct {
	// Root is the workspace directory to watch recursively.
	Root string

	// Matcher prunes ignored directories from the watch set. Nil uses
	// the default exclusions.
	Matcher *ignore.Matcher

	// OnEvent receives every manifest event. Called from the watch
	// loop goroutine; it must not block for long.
	OnEvent func(Event)

	// Logger receives watch diagnostics. Nil discards them.
	Logger *log.Logger
}

// Watcher monitors a workspace for manifest changes. Run must be
// called exactly once.
type Watcher struct {
	cfg     Config
	fsw     *fsnotify.Watcher
	matcher *ignore.Matcher
	logger  *log.Logger
	root    string
	started atomic.Bool
}

// New builds a Watcher rooted at cfg.Root and registers all existing
// non-ignored directories.
func New(cfg Config) (*Watcher, error) {
	root := cfg.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		root = wd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}

	matcher := cfg.Matcher
	if matcher == nil {
		matcher = ignore.NewMatcher(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		matcher: matcher,
		logger:  logger,
		root:    absRoot,
	}
	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("close after init failure", "err", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is cancelled, dispatching manifest events to the
// configured callback. It returns nil on clean cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}
			w.handle(evt)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

func (w *Watcher) handle(evt fsnotify.Event) {
	rel, err := filepath.Rel(w.root, evt.Name)
	if err != nil {
		return
	}
	norm := filepath.ToSlash(rel)

	// Extend recursive coverage to directories created after startup.
	if evt.Has(fsnotify.Create) {
		w.maybeAddDir(evt.Name)
	}

	if ok, matchErr := doublestar.Match(ManifestPattern, norm); matchErr != nil || !ok {
		return
	}
	if w.matcher.ShouldIgnore(norm, false) {
		return
	}

	if w.cfg.OnEvent != nil {
		w.cfg.OnEvent(Event{
			Path:    evt.Name,
			Removed: evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename),
		})
	}
}

func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Skip unreadable subtrees rather than aborting; events
			// from them are simply unavailable.
			w.logger.Warn("skipping inaccessible path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		if rel != "." && w.isIgnoredDir(rel) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir registers a directory created after startup, walking it
// recursively because nested directories may appear in one burst before
// their parents are watched.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	_ = filepath.WalkDir(path, func(sub string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, sub)
		if relErr != nil {
			return nil
		}
		if w.isIgnoredDir(rel) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(sub); addErr != nil {
			w.logger.Warn("add new directory", "path", sub, "err", addErr)
		}
		return nil
	})
}

func (w *Watcher) isIgnoredDir(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	return w.matcher.ShouldIgnore(filepath.ToSlash(rel), true)
}
