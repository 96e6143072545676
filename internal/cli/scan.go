package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/modwatch-dev/modwatch/internal/fileutil"
	"github.com/modwatch-dev/modwatch/internal/forest"
	"github.com/modwatch-dev/modwatch/internal/snapshot"
)

func RunScan(cmd *cobra.Command, args []string) error {
	start := time.Now()
	rootPath, err := resolveRoot(args)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	save, _ := cmd.Flags().GetBool("save")

	scanner, err := newScanner(cmd, rootPath)
	if err != nil {
		return err
	}
	f, err := scanner.Scan(cmd.Context(), rootPath)
	if err != nil {
		return err
	}
	entries := f.Snapshot()

	if save {
		if err := snapshot.FromForest(entries).Save(rootPath); err != nil {
			return err
		}
	}

	if asJSON {
		return fileutil.PrintJSON(cmd.OutOrStdout(), forestDump(rootPath, entries))
	}
	PrintRunSummary(cmd.OutOrStdout(), summarize("scan", rootPath, entries, start))
	return nil
}

func summarize(mode, rootPath string, entries []*forest.Entry, start time.Time) RunSummary {
	summary := RunSummary{
		Mode:       mode,
		RootPath:   rootPath,
		Modules:    len(entries),
		DurationMS: time.Since(start).Milliseconds(),
	}
	for _, e := range entries {
		switch e.Status {
		case forest.Parsed:
			summary.Parsed++
			summary.Dependencies += e.Record.DeclaredPaths()
		case forest.Errored:
			summary.Errored++
			summary.ErroredFiles = append(summary.ErroredFiles, relPath(rootPath, e.Path))
		}
		for _, orphan := range e.Orphans {
			summary.Orphans++
			summary.OrphanPaths = append(summary.OrphanPaths, orphan)
		}
	}
	return summary
}

// forestEntryDump is the read-only wire view of one forest entry.
type forestEntryDump struct {
	Path        string   `json:"path"`
	Status      string   `json:"status"`
	Module      string   `json:"module,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Error       string   `json:"error,omitempty"`
	Requires    int      `json:"requires,omitempty"`
	Orphans     []string `json:"orphans,omitempty"`
}

func forestDump(rootPath string, entries []*forest.Entry) []forestEntryDump {
	out := make([]forestEntryDump, 0, len(entries))
	for _, e := range entries {
		dump := forestEntryDump{
			Path:        relPath(rootPath, e.Path),
			Status:      e.Status.String(),
			Fingerprint: e.Fingerprint,
			Orphans:     e.Orphans,
		}
		if e.Record != nil {
			dump.Module = e.Record.Module
			dump.Requires = len(e.Record.Require)
		}
		if e.Err != nil {
			dump.Error = e.Err.Error()
		}
		out = append(out, dump)
	}
	return out
}
