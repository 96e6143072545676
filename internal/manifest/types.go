package manifest

// DependencyRef is a single path reference declared by a manifest
// directive, with an optional version.
type DependencyRef struct {
	Path     string `json:"path"`
	Version  string `json:"version,omitempty"`
	Indirect bool   `json:"indirect,omitempty"`
}

// Replacement maps a required path (and optional version) to the path
// and version that override its resolution.
type Replacement struct {
	DependencyRef
	NewPath    string `json:"new_path"`
	NewVersion string `json:"new_version,omitempty"`
}

// Record is the parsed content of one manifest file. Directive order
// within each slice follows manifest order.
type Record struct {
	Module    string          `json:"module"`
	Go        string          `json:"go,omitempty"`
	Toolchain string          `json:"toolchain,omitempty"`
	Require   []DependencyRef `json:"require,omitempty"`
	Replace   []Replacement   `json:"replace,omitempty"`
	Exclude   []DependencyRef `json:"exclude,omitempty"`
	Tool      []DependencyRef `json:"tool,omitempty"`
}

// Unnamed reports whether the manifest declared no module identity.
// An unnamed module is a valid degenerate state, not a parse error.
func (r *Record) Unnamed() bool {
	return r.Module == ""
}

// DeclaredPaths returns the number of distinct dependency paths the
// record declares across require and tool directives.
func (r *Record) DeclaredPaths() int {
	seen := make(map[string]bool, len(r.Require)+len(r.Tool))
	for _, ref := range r.Require {
		seen[ref.Path] = true
	}
	for _, ref := range r.Tool {
		seen[ref.Path] = true
	}
	return len(seen)
}
