package ignore

import "testing"

func TestDefaultExcludesVendorTrees(t *testing.T) {
	m := NewMatcher(nil)

	cases := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"go.mod", false, false},
		{"services/api/go.mod", false, false},
		{"vendor", true, true},
		{"vendor/example.com/lib/go.mod", false, true},
		{"services/api/vendor/dep/go.mod", false, true},
		{"node_modules/pkg/go.mod", false, true},
		{".git", true, true},
		{".modwatch/state.json", false, true},
		{"testdata/modfiles/go.mod", false, true},
		{"vendor", false, false}, // a file named vendor is not a vendor tree
	}
	for _, tc := range cases {
		if got := m.ShouldIgnore(tc.path, tc.isDir); got != tc.want {
			t.Fatalf("ShouldIgnore(%q, isDir=%v) = %v, want %v", tc.path, tc.isDir, got, tc.want)
		}
	}
}

func TestUserRulesAndNegation(t *testing.T) {
	m := NewMatcher([]string{"examples/", "!vendor/", "*.bak"})

	if !m.ShouldIgnore("examples/demo/go.mod", false) {
		t.Fatalf("user dir rule not applied")
	}
	if m.ShouldIgnore("vendor/lib/go.mod", false) {
		t.Fatalf("negation must override the default vendor rule")
	}
	if !m.ShouldIgnore("modules/old.bak", false) {
		t.Fatalf("glob rule not applied")
	}
}

func TestAnchoredAndCommentRules(t *testing.T) {
	m := NewMatcher([]string{"# comment", "", "tools/legacy/"})

	if !m.ShouldIgnore("tools/legacy/go.mod", false) {
		t.Fatalf("path rule not applied")
	}
	if m.ShouldIgnore("other/tools/legacy/go.mod", false) {
		t.Fatalf("path rule with separator must stay anchored to the root")
	}
}
