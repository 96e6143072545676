package tree

import (
	"reflect"
	"testing"

	"github.com/modwatch-dev/modwatch/internal/manifest"
)

func TestBuildMergesSharedNamespace(t *testing.T) {
	rec := &manifest.Record{
		Module: "example.com/app",
		Require: []manifest.DependencyRef{
			{Path: "example.com/lib", Version: "v1.0.0"},
			{Path: "example.com/dep", Version: "v2.0.0", Indirect: true},
		},
	}
	root := Build(rec)

	if len(root.Children) != 1 {
		t.Fatalf("expected one root child, got %d", len(root.Children))
	}
	ns := root.Children["example.com"]
	if ns == nil || ns.Kind != Namespace || ns.IsLeaf() {
		t.Fatalf("expected example.com namespace node, got %+v", ns)
	}

	lib := ns.Children["lib"]
	if lib == nil || lib.Kind != Direct || lib.Leaf.Version != "v1.0.0" {
		t.Fatalf("unexpected lib leaf: %+v", lib)
	}
	dep := ns.Children["dep"]
	if dep == nil || dep.Kind != Indirect || dep.Leaf.Version != "v2.0.0" {
		t.Fatalf("unexpected dep leaf: %+v", dep)
	}
}

func TestBuildReplaceOverwritesKindWithoutDuplicating(t *testing.T) {
	rec := &manifest.Record{
		Require: []manifest.DependencyRef{{Path: "example.com/lib", Version: "v1.0.0"}},
		Replace: []manifest.Replacement{{
			DependencyRef: manifest.DependencyRef{Path: "example.com/lib"},
			NewPath:       "example.com/fork",
			NewVersion:    "v1.2.0",
		}},
	}
	root := Build(rec)

	leaves := Leaves(root)
	if !reflect.DeepEqual(leaves, []string{"example.com/lib"}) {
		t.Fatalf("expected single lib leaf, got %v", leaves)
	}

	lib := Find(root, "example.com/lib")
	if lib.Kind != Replaced {
		t.Fatalf("expected Replaced kind, got %s", lib.Kind)
	}
	if lib.Orphan {
		t.Fatalf("matched replacement must not be an orphan")
	}
	eff := lib.Effective()
	if eff.Path != "example.com/fork" || eff.Version != "v1.2.0" {
		t.Fatalf("effective data does not reflect the replacement: %+v", eff)
	}
	if lib.Leaf.Path != "example.com/lib" {
		t.Fatalf("declared leaf path must stay the source path, got %q", lib.Leaf.Path)
	}
}

func TestBuildOrphanDirectivesBecomeSyntheticLeaves(t *testing.T) {
	rec := &manifest.Record{
		Require: []manifest.DependencyRef{{Path: "example.com/lib", Version: "v1.0.0"}},
		Replace: []manifest.Replacement{{
			DependencyRef: manifest.DependencyRef{Path: "example.com/ghost"},
			NewPath:       "../ghost",
		}},
		Exclude: []manifest.DependencyRef{{Path: "example.com/banned", Version: "v0.9.0"}},
	}
	root := Build(rec)

	orphans := Orphans(root)
	want := []string{"example.com/banned", "example.com/ghost"}
	if !reflect.DeepEqual(orphans, want) {
		t.Fatalf("expected orphans %v, got %v", want, orphans)
	}

	ghost := Find(root, "example.com/ghost")
	if ghost == nil || ghost.Kind != Replaced || !ghost.Orphan {
		t.Fatalf("unexpected ghost node: %+v", ghost)
	}
	banned := Find(root, "example.com/banned")
	if banned == nil || banned.Kind != Excluded || !banned.Orphan {
		t.Fatalf("unexpected banned node: %+v", banned)
	}
}

func TestBuildExcludeTakesPrecedenceOverRequireKind(t *testing.T) {
	rec := &manifest.Record{
		Require: []manifest.DependencyRef{{Path: "example.com/dep", Version: "v2.0.0", Indirect: true}},
		Exclude: []manifest.DependencyRef{{Path: "example.com/dep", Version: "v2.0.0"}},
	}
	root := Build(rec)
	dep := Find(root, "example.com/dep")
	if dep.Kind != Excluded {
		t.Fatalf("expected Excluded to overwrite Indirect, got %s", dep.Kind)
	}
}

func TestLeafPathsRoundTrip(t *testing.T) {
	rec := &manifest.Record{
		Require: []manifest.DependencyRef{
			{Path: "example.com/a/b/c", Version: "v1.0.0"},
			{Path: "example.com/a/b", Version: "v1.0.0"},
			{Path: "golang.org/x/sys", Version: "v0.1.0"},
		},
		Tool: []manifest.DependencyRef{{Path: "example.com/tools/stringer"}},
	}
	root := Build(rec)

	leaves := Leaves(root)
	if len(leaves) != rec.DeclaredPaths() {
		t.Fatalf("expected %d leaves, got %d (%v)", rec.DeclaredPaths(), len(leaves), leaves)
	}

	declared := map[string]bool{}
	for _, ref := range rec.Require {
		declared[ref.Path] = true
	}
	for _, ref := range rec.Tool {
		declared[ref.Path] = true
	}
	for _, path := range leaves {
		if !declared[path] {
			t.Fatalf("leaf path %q does not reconstruct a declared path", path)
		}
		node := Find(root, path)
		if node == nil || !node.IsLeaf() || node.Leaf.Path != path {
			t.Fatalf("leaf lookup mismatch for %q: %+v", path, node)
		}
	}

	// Prefix paths may be both leaf and namespace.
	ab := Find(root, "example.com/a/b")
	if !ab.IsLeaf() || len(ab.Children) != 1 {
		t.Fatalf("prefix leaf must keep its children: %+v", ab)
	}
}

func TestBuildInvariants(t *testing.T) {
	rec := &manifest.Record{
		Require: []manifest.DependencyRef{
			{Path: "example.com/a", Version: "v1.0.0"},
			{Path: "example.com/a/sub", Version: "v1.0.0"},
			{Path: "other.org/pkg", Version: "v3.0.0"},
		},
	}
	root := Build(rec)

	Walk(root, func(path string, n *Node) {
		seen := map[string]bool{}
		for segment, child := range n.Children {
			if seen[segment] {
				t.Fatalf("duplicate sibling segment %q under %q", segment, path)
			}
			seen[segment] = true
			if child.Segment != segment {
				t.Fatalf("child key %q disagrees with segment %q", segment, child.Segment)
			}
		}
		if !n.IsLeaf() && len(n.Children) == 0 {
			t.Fatalf("non-leaf node %q has no children", path)
		}
	})
}

func TestBuildIsPure(t *testing.T) {
	rec := &manifest.Record{
		Require: []manifest.DependencyRef{{Path: "example.com/lib", Version: "v1.0.0"}},
		Replace: []manifest.Replacement{{
			DependencyRef: manifest.DependencyRef{Path: "example.com/lib"},
			NewPath:       "example.com/fork",
		}},
	}
	first := Build(rec)
	second := Build(rec)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("build is not deterministic")
	}
	if !reflect.DeepEqual(Leaves(first), Leaves(second)) {
		t.Fatalf("leaf sets differ between identical builds")
	}
}

func TestFindMissingPath(t *testing.T) {
	root := Build(&manifest.Record{
		Require: []manifest.DependencyRef{{Path: "example.com/lib", Version: "v1.0.0"}},
	})
	if Find(root, "example.com/none") != nil {
		t.Fatalf("expected nil for unknown path")
	}
	if Find(root, "") != nil {
		t.Fatalf("expected nil for empty path")
	}
}
