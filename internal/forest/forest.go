// Package forest holds the per-manifest parse results for a workspace.
// The store has a single-writer discipline: only the invalidation layer
// mutates it, always by whole-entry replacement, so concurrent readers
// observe complete, consistent entries.
package forest

import (
	"sort"
	"sync"
	"time"

	"github.com/modwatch-dev/modwatch/internal/manifest"
	"github.com/modwatch-dev/modwatch/internal/tree"
)

// Status is the per-entry parse state machine:
// Unparsed -> Parsed | Errored -> (file change) -> Unparsed -> ...
type Status int

const (
	Unparsed Status = iota
	Parsed
	Errored
)

func (s Status) String() string {
	switch s {
	case Unparsed:
		return "unparsed"
	case Parsed:
		return "parsed"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Entry is the forest's record for one manifest file. After a parse
// attempt exactly one of Record/Err is populated. Entries are treated
// as immutable once published; mutation happens by building a
// replacement entry.
type Entry struct {
	Path        string                `json:"path"`
	Status      Status                `json:"-"`
	Record      *manifest.Record      `json:"record,omitempty"`
	Tree        *tree.Node            `json:"-"`
	Err         *manifest.ParseError  `json:"-"`
	Fingerprint string                `json:"fingerprint"`
	Orphans     []string              `json:"orphans,omitempty"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewParsed builds a Parsed entry, deriving the tree and its orphan
// directives from the record.
func NewParsed(path, fingerprint string, rec *manifest.Record) *Entry {
	root := tree.Build(rec)
	return &Entry{
		Path:        path,
		Status:      Parsed,
		Record:      rec,
		Tree:        root,
		Fingerprint: fingerprint,
		Orphans:     tree.Orphans(root),
		UpdatedAt:   time.Now(),
	}
}

// NewErrored builds an Errored entry carrying the structured error.
func NewErrored(path, fingerprint string, perr *manifest.ParseError) *Entry {
	return &Entry{
		Path:        path,
		Status:      Errored,
		Err:         perr,
		Fingerprint: fingerprint,
		UpdatedAt:   time.Now(),
	}
}

// Invalidated returns a replacement entry in the Unparsed state. The
// previous tree is retained so readers stay navigable while the reparse
// is in flight.
func (e *Entry) Invalidated() *Entry {
	clone := *e
	clone.Status = Unparsed
	clone.UpdatedAt = time.Now()
	return &clone
}

// Match pairs a dependency path hit with its owning manifest entry.
type Match struct {
	Entry *Entry
	Node  *tree.Node
}

// Forest maps canonical manifest paths to their entries.
type Forest struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func New() *Forest {
	return &Forest{entries: make(map[string]*Entry)}
}

// Put publishes an entry, replacing any previous entry for its path.
func (f *Forest) Put(e *Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.Path] = e
}

// Remove drops the entry for path, if any.
func (f *Forest) Remove(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, path)
}

// ReplaceAll swaps the entire forest for the given entries. Used by
// full rescans, which replace rather than merge so stale entries for
// deleted manifests are dropped.
func (f *Forest) ReplaceAll(entries []*Entry) {
	next := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		next[e.Path] = e
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = next
}

// Get returns the published entry for path.
func (f *Forest) Get(path string) (*Entry, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.entries[path]
	return e, ok
}

// Len reports the number of entries.
func (f *Forest) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// Snapshot returns the entries sorted by manifest path. The slice is
// the caller's; the entries are shared immutable values.
func (f *Forest) Snapshot() []*Entry {
	f.mu.RLock()
	out := make([]*Entry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	f.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// FindDependency locates every tree node matching a dependency path
// across the forest, the reveal-at-path operation consumed by
// presentation layers.
func (f *Forest) FindDependency(depPath string) []Match {
	var matches []Match
	for _, e := range f.Snapshot() {
		if e.Tree == nil {
			continue
		}
		if node := tree.Find(e.Tree, depPath); node != nil {
			matches = append(matches, Match{Entry: e, Node: node})
		}
	}
	return matches
}
