package cli

import (
	"fmt"
	"io"
	"strings"
)

type RunSummary struct {
	Mode         string   `json:"mode"`
	RootPath     string   `json:"root_path"`
	Modules      int      `json:"modules"`
	Parsed       int      `json:"parsed"`
	Errored      int      `json:"errored"`
	Dependencies int      `json:"dependencies"`
	Orphans      int      `json:"orphans"`
	DurationMS   int64    `json:"duration_ms"`
	ErroredFiles []string `json:"errored_files,omitempty"`
	OrphanPaths  []string `json:"orphan_paths,omitempty"`
}

type StatusSummary struct {
	Mode         string   `json:"mode"`
	RootPath     string   `json:"root_path"`
	Modules      int      `json:"modules"`
	Changed      int      `json:"changed"`
	Deleted      int      `json:"deleted"`
	ChangedFiles []string `json:"changed_files,omitempty"`
	DeletedFiles []string `json:"deleted_files,omitempty"`
}

type DoctorSummary struct {
	Mode     string          `json:"mode"`
	RootPath string          `json:"root_path"`
	Healthy  bool            `json:"healthy"`
	Modules  int             `json:"modules"`
	Errors   map[string]string `json:"errors,omitempty"`
	Orphans  map[string][]string `json:"orphans,omitempty"`
	Unnamed  []string        `json:"unnamed,omitempty"`
}

func PrintRunSummary(w io.Writer, summary RunSummary) {
	fmt.Fprintf(w, "%s: modules=%d parsed=%d errored=%d dependencies=%d orphans=%d duration=%dms\n",
		summary.Mode, summary.Modules, summary.Parsed, summary.Errored,
		summary.Dependencies, summary.Orphans, summary.DurationMS)
	if len(summary.ErroredFiles) > 0 {
		fmt.Fprintf(w, "errored manifests (%d): %s\n", len(summary.ErroredFiles), SummarizePaths(summary.ErroredFiles, 8))
	}
	if len(summary.OrphanPaths) > 0 {
		fmt.Fprintf(w, "orphan directives (%d): %s\n", len(summary.OrphanPaths), SummarizePaths(summary.OrphanPaths, 8))
	}
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}
