// Package snapshot persists the last-seen manifest fingerprints so a
// later run can report what changed without reparsing the workspace.
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/modwatch-dev/modwatch/internal/forest"
)

const (
	// Dir is the workspace-relative directory holding modwatch state.
	Dir = ".modwatch"
	// StateFile is the snapshot filename inside Dir.
	StateFile = "state.json"

	CurrentVersion = "1"
)

// ModuleState is the persisted summary of one manifest entry.
type ModuleState struct {
	Fingerprint string    `json:"fingerprint"`
	Module      string    `json:"module,omitempty"`
	Requires    int       `json:"requires,omitempty"`
	Errored     bool      `json:"errored,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// State tracks every manifest's fingerprint across runs.
type State struct {
	Version   string                 `json:"version"`
	UpdatedAt time.Time              `json:"updated_at"`
	Modules   map[string]ModuleState `json:"modules"`
}

func NewState() *State {
	return &State{Version: CurrentVersion, Modules: make(map[string]ModuleState)}
}

// FromForest captures the current forest into a fresh state.
func FromForest(entries []*forest.Entry) *State {
	s := NewState()
	for _, e := range entries {
		ms := ModuleState{
			Fingerprint: e.Fingerprint,
			Errored:     e.Err != nil,
			UpdatedAt:   e.UpdatedAt,
		}
		if e.Record != nil {
			ms.Module = e.Record.Module
			ms.Requires = len(e.Record.Require)
		}
		s.Modules[e.Path] = ms
	}
	return s
}

// Load reads the snapshot from a workspace root. A missing file yields
// an empty state.
func Load(root string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(root, Dir, StateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Modules == nil {
		s.Modules = make(map[string]ModuleState)
	}
	if s.Version == "" {
		s.Version = CurrentVersion
	}
	return &s, nil
}

// Save writes the snapshot under the workspace root.
func (s *State) Save(root string) error {
	if s.Version == "" {
		s.Version = CurrentVersion
	}
	s.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, StateFile), data, 0o644)
}

// Changed returns the manifest paths whose fingerprint differs from the
// stored one, including paths never seen before.
func (s *State) Changed(current map[string]string) []string {
	changed := make([]string, 0)
	for path, fingerprint := range current {
		stored, ok := s.Modules[path]
		if !ok || stored.Fingerprint != fingerprint {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}

// Deleted returns stored manifest paths that no longer exist.
func (s *State) Deleted(current map[string]string) []string {
	deleted := make([]string, 0)
	for path := range s.Modules {
		if _, ok := current[path]; !ok {
			deleted = append(deleted, path)
		}
	}
	sort.Strings(deleted)
	return deleted
}
