// Package workspace discovers every manifest in a project tree and
// assembles the per-module forest.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/modwatch-dev/modwatch/internal/fileutil"
	"github.com/modwatch-dev/modwatch/internal/forest"
	"github.com/modwatch-dev/modwatch/internal/ignore"
	"github.com/modwatch-dev/modwatch/internal/manifest"
	"github.com/modwatch-dev/modwatch/internal/sandbox"
)

// ManifestName is the filename every module manifest carries.
const ManifestName = "go.mod"

// Scanner walks a workspace root, parses each discovered manifest
// through the sandbox bridge, and builds forest entries. A failure in
// one file never aborts discovery or parsing of the others.
type Scanner struct {
	parser  sandbox.Parser
	matcher *ignore.Matcher
}

func NewScanner(parser sandbox.Parser, matcher *ignore.Matcher) *Scanner {
	if matcher == nil {
		matcher = ignore.NewMatcher(nil)
	}
	return &Scanner{parser: parser, matcher: matcher}
}

// Scan performs a full workspace scan and returns a fresh forest.
// Only a root-level access failure is fatal; per-file problems are
// recorded as entry errors.
func (s *Scanner) Scan(ctx context.Context, root string) (*forest.Forest, error) {
	f := forest.New()
	if err := s.ScanInto(ctx, f, root); err != nil {
		return nil, err
	}
	return f, nil
}

// ScanInto rescans root and replaces the forest's contents wholesale,
// dropping entries for manifests that no longer exist. Safe to invoke
// repeatedly.
func (s *Scanner) ScanInto(ctx context.Context, f *forest.Forest, root string) error {
	paths, entries, err := s.Discover(root)
	if err != nil {
		return err
	}
	for _, path := range paths {
		entries = append(entries, s.ParseFile(ctx, path))
	}
	f.ReplaceAll(entries)
	return nil
}

// Discover returns the canonical paths of every manifest reachable from
// root, excluding vendored and cached dependency trees, plus errored
// entries for paths the walk could not read.
func (s *Scanner) Discover(root string) ([]string, []*forest.Entry, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, nil, fmt.Errorf("workspace root inaccessible: %w", err)
	}

	var paths []string
	var errored []*forest.Entry
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			// Unreadable subtree: record and continue with the rest.
			errored = append(errored, forest.NewErrored(path, "",
				manifest.Errorf(manifest.FileSystem, "walk: %v", err)))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		if rel != "." && s.matcher.ShouldIgnore(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && d.Name() == ManifestName {
			paths = append(paths, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("walk workspace: %w", walkErr)
	}

	sort.Strings(paths)
	return paths, errored, nil
}

// ParseFile reads and parses one manifest, returning its forest entry.
// Read failures, grammar errors, and sandbox failures all land in the
// entry rather than propagating.
func (s *Scanner) ParseFile(ctx context.Context, path string) *forest.Entry {
	content, err := os.ReadFile(path)
	if err != nil {
		return forest.NewErrored(path, "", manifest.Errorf(manifest.FileSystem, "read manifest: %v", err))
	}
	return s.ParseContent(ctx, path, content)
}

// ParseContent parses already-read manifest bytes into a forest entry.
func (s *Scanner) ParseContent(ctx context.Context, path string, content []byte) *forest.Entry {
	fingerprint := fileutil.HashContent(content)
	rec, err := s.parser.Parse(ctx, string(content))
	if err != nil {
		return forest.NewErrored(path, fingerprint, manifest.AsParseError(err, manifest.MalformedManifest))
	}
	return forest.NewParsed(path, fingerprint, rec)
}
