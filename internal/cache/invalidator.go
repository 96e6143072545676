// Package cache keeps the module forest correct as manifests change on
// disk without recomputing everything from scratch. It owns the only
// write path into the forest: filesystem events are debounced and
// coalesced per file, reparses are serialized through a single
// consumer, and every publication is a whole-entry replacement.
package cache

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/modwatch-dev/modwatch/internal/fileutil"
	"github.com/modwatch-dev/modwatch/internal/forest"
	"github.com/modwatch-dev/modwatch/internal/manifest"
	"github.com/modwatch-dev/modwatch/internal/watch"
	"github.com/modwatch-dev/modwatch/internal/workspace"
)

const (
	defaultDebounce  = 300 * time.Millisecond
	defaultCacheSize = 256
	requestQueueSize = 128
)

// request is one scoped-reparse demand. gen is the file's change
// generation at enqueue time and epoch the refresh epoch; a mismatch on
// either marks the request stale.
type request struct {
	path  string
	gen   uint64
	epoch uint64
}

// Options tunes an Invalidator.
type Options struct {
	// Debounce is the quiet window that coalesces bursts of change
	// events for the same file into a single reparse.
	Debounce time.Duration

	// CacheSize bounds the fingerprint-to-record cache. Reverting a
	// manifest to recently seen content skips the parser entirely.
	CacheSize int

	// Logger receives invalidation diagnostics. Nil discards them.
	Logger *log.Logger
}

// Invalidator is the cache and invalidation layer. It is the single
// writer of its forest.
type Invalidator struct {
	scanner  *workspace.Scanner
	forest   *forest.Forest
	root     string
	logger   *log.Logger
	debounce time.Duration

	records *lru.Cache[string, *manifest.Record]

	requests  chan request
	refreshes chan chan error

	epoch atomic.Uint64

	mu     sync.Mutex
	gens   map[string]uint64
	timers map[string]*time.Timer
}

// New builds an Invalidator over an already-scanned forest.
func New(scanner *workspace.Scanner, f *forest.Forest, root string, opts Options) (*Invalidator, error) {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	records, err := lru.New[string, *manifest.Record](size)
	if err != nil {
		return nil, err
	}

	return &Invalidator{
		scanner:   scanner,
		forest:    f,
		root:      root,
		logger:    logger,
		debounce:  debounce,
		records:   records,
		requests:  make(chan request, requestQueueSize),
		refreshes: make(chan chan error, 1),
		gens:      make(map[string]uint64),
		timers:    make(map[string]*time.Timer),
	}, nil
}

// Forest exposes the maintained forest for read-only consumers.
func (i *Invalidator) Forest() *forest.Forest {
	return i.forest
}

// HandleEvent adapts watcher events onto the invalidation API.
func (i *Invalidator) HandleEvent(e watch.Event) {
	if e.Removed {
		i.FileRemoved(e.Path)
		return
	}
	i.FileChanged(e.Path)
}

// FileChanged schedules a scoped reparse of one manifest, coalescing
// further notifications for the same file within the debounce window.
func (i *Invalidator) FileChanged(path string) {
	path = filepath.Clean(path)

	i.mu.Lock()
	defer i.mu.Unlock()
	i.gens[path]++
	if t, ok := i.timers[path]; ok {
		t.Reset(i.debounce)
		return
	}
	i.timers[path] = time.AfterFunc(i.debounce, func() { i.enqueue(path) })
}

// FileRemoved records a disappearance. The entry stays in the forest as
// an errored placeholder; only a full refresh drops deleted manifests.
func (i *Invalidator) FileRemoved(path string) {
	path = filepath.Clean(path)
	if _, known := i.forest.Get(path); !known {
		return
	}
	i.forest.Put(forest.NewErrored(path, "",
		manifest.Errorf(manifest.FileSystem, "manifest removed from disk; refresh to drop it")))
	i.logger.Info("manifest removed", "path", path)
}

// Refresh discards the entire cache and re-runs the workspace scan.
// This is the only path that picks up newly created or deleted
// manifests. In-flight scoped reparses are invalidated by the epoch
// bump so a stale result can never clobber the refreshed forest.
func (i *Invalidator) Refresh(ctx context.Context) error {
	i.epoch.Add(1)

	ack := make(chan error, 1)
	select {
	case i.refreshes <- ack:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the request queue until ctx is cancelled. It is the single
// consumer; reparses for the same file are serialized by construction
// and stale generations are dropped rather than applied.
func (i *Invalidator) Run(ctx context.Context) error {
	defer i.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ack := <-i.refreshes:
			ack <- i.refresh(ctx)
		case req := <-i.requests:
			i.process(ctx, req)
		}
	}
}

func (i *Invalidator) enqueue(path string) {
	i.mu.Lock()
	delete(i.timers, path)
	gen := i.gens[path]
	i.mu.Unlock()

	req := request{path: path, gen: gen, epoch: i.epoch.Load()}
	select {
	case i.requests <- req:
	default:
		// Queue overflow under an event storm; a later event or an
		// explicit refresh recovers the file.
		i.logger.Warn("dropping reparse request, queue full", "path", path)
	}
}

func (i *Invalidator) refresh(ctx context.Context) error {
	i.stopTimers()
	i.records.Purge()
	i.logger.Info("full refresh", "root", i.root)
	return i.scanner.ScanInto(ctx, i.forest, i.root)
}

// process performs one scoped reparse: fingerprint no-op detection,
// state-machine transition to Unparsed, parse (or cache hit), and a
// whole-entry splice that leaves sibling entries untouched.
func (i *Invalidator) process(ctx context.Context, req request) {
	if req.epoch != i.epoch.Load() {
		return // invalidated by a full refresh
	}
	i.mu.Lock()
	latest := i.gens[req.path]
	i.mu.Unlock()
	if req.gen != latest {
		return // a newer notification supersedes this one
	}

	prev, known := i.forest.Get(req.path)
	if !known {
		// New manifests are picked up by full refresh only.
		i.logger.Debug("ignoring event for untracked manifest", "path", req.path)
		return
	}

	content, err := os.ReadFile(req.path)
	if err != nil {
		i.forest.Put(forest.NewErrored(req.path, "",
			manifest.Errorf(manifest.FileSystem, "read manifest: %v", err)))
		return
	}
	fingerprint := fileutil.HashContent(content)
	if fingerprint == prev.Fingerprint && prev.Status != forest.Unparsed {
		i.logger.Debug("fingerprint unchanged, skipping reparse", "path", req.path)
		return
	}

	i.forest.Put(prev.Invalidated())

	var entry *forest.Entry
	if rec, ok := i.records.Get(fingerprint); ok {
		entry = forest.NewParsed(req.path, fingerprint, rec)
	} else {
		entry = i.scanner.ParseContent(ctx, req.path, content)
		if entry.Status == forest.Parsed {
			i.records.Add(fingerprint, entry.Record)
		}
	}

	if req.epoch != i.epoch.Load() {
		return // refresh raced the parse; discard the stale result
	}
	i.forest.Put(entry)
	i.logger.Debug("reparsed manifest", "path", req.path, "status", entry.Status.String())
}

func (i *Invalidator) stopTimers() {
	i.mu.Lock()
	defer i.mu.Unlock()
	for path, t := range i.timers {
		t.Stop()
		delete(i.timers, path)
	}
}
