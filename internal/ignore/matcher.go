// Package ignore decides which workspace paths are excluded from
// manifest discovery and watching. Rules are gitignore-like with
// "last rule wins" semantics; the built-in defaults cover vendored and
// cached dependency trees whose nested manifests are not workspace
// modules.
package ignore

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type rule struct {
	pattern string
	negated bool
	dirOnly bool
}

// Matcher applies exclusion rules to workspace-relative paths.
type Matcher struct {
	rules []rule
}

// DefaultRules are always prepended; user rules may negate them.
func DefaultRules() []string {
	return []string{
		".git/",
		".modwatch/",
		"vendor/",
		"node_modules/",
		"testdata/",
	}
}

// NewMatcher builds a matcher from user-provided rules layered over the
// defaults.
func NewMatcher(userRules []string) *Matcher {
	all := append(DefaultRules(), userRules...)

	rules := make([]rule, 0, len(all))
	for _, line := range all {
		if parsed, ok := parseRule(line); ok {
			rules = append(rules, parsed)
		}
	}
	return &Matcher{rules: rules}
}

// ShouldIgnore returns true when relPath should be excluded.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = normalizePath(relPath)
	ignored := false
	for _, r := range m.rules {
		if ruleMatches(r, relPath, isDir) {
			ignored = !r.negated
		}
	}
	return ignored
}

func parseRule(line string) (rule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	parsed := rule{}
	if strings.HasPrefix(line, "!") {
		parsed.negated = true
		line = strings.TrimPrefix(line, "!")
	}
	if strings.HasSuffix(line, "/") {
		parsed.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	line = normalizePath(line)
	if line == "" {
		return rule{}, false
	}
	parsed.pattern = line
	return parsed, true
}

// ruleMatches checks a single rule against a path. Patterns without a
// separator match any path segment; directory rules also exclude
// everything beneath a matching directory.
func ruleMatches(r rule, relPath string, isDir bool) bool {
	if r.dirOnly {
		if strings.Contains(r.pattern, "/") {
			for _, prefix := range pathPrefixes(relPath) {
				if matchGlob(r.pattern, prefix) && (prefix != relPath || isDir) {
					return true
				}
			}
			return false
		}
		// Segment rules match a directory at any depth; a plain file
		// sharing the name is not excluded.
		parts := strings.Split(relPath, "/")
		for i, segment := range parts {
			if matchGlob(r.pattern, segment) && (i < len(parts)-1 || isDir) {
				return true
			}
		}
		return false
	}

	if strings.Contains(r.pattern, "/") {
		return matchGlob(r.pattern, relPath)
	}

	for _, segment := range strings.Split(relPath, "/") {
		if matchGlob(r.pattern, segment) {
			return true
		}
	}
	return false
}

func matchGlob(pattern, value string) bool {
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}

// pathPrefixes lists every ancestor prefix of a slash path, including
// the path itself: "a/b/c" -> ["a", "a/b", "a/b/c"].
func pathPrefixes(relPath string) []string {
	parts := strings.Split(relPath, "/")
	out := make([]string, 0, len(parts))
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], "/"))
	}
	return out
}

func normalizePath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")
	return path
}
