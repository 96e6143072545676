package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modwatch-dev/modwatch/internal/fileutil"
	"github.com/modwatch-dev/modwatch/internal/forest"
)

// RunDoctor parses every workspace manifest and reports anything a
// maintainer should look at: parse failures, orphan replace/exclude
// directives, and unnamed modules.
func RunDoctor(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveRoot(args)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	scanner, err := newScanner(cmd, rootPath)
	if err != nil {
		return err
	}
	f, err := scanner.Scan(cmd.Context(), rootPath)
	if err != nil {
		return err
	}
	entries := f.Snapshot()

	summary := DoctorSummary{
		Mode:     "doctor",
		RootPath: rootPath,
		Modules:  len(entries),
		Errors:   make(map[string]string),
		Orphans:  make(map[string][]string),
	}
	for _, e := range entries {
		rel := relPath(rootPath, e.Path)
		if e.Status == forest.Errored {
			summary.Errors[rel] = e.Err.Error()
			continue
		}
		if len(e.Orphans) > 0 {
			summary.Orphans[rel] = e.Orphans
		}
		if e.Record != nil && e.Record.Unnamed() {
			summary.Unnamed = append(summary.Unnamed, rel)
		}
	}
	problems := len(summary.Errors) + len(summary.Orphans) + len(summary.Unnamed)
	summary.Healthy = problems == 0

	if asJSON {
		if err := fileutil.PrintJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	} else {
		printDoctorSummary(cmd, summary)
	}

	if !summary.Healthy {
		return fmt.Errorf("doctor found %d problem(s)", problems)
	}
	return nil
}

func printDoctorSummary(cmd *cobra.Command, summary DoctorSummary) {
	w := cmd.OutOrStdout()
	if summary.Healthy {
		fmt.Fprintf(w, "doctor: %d manifest(s), all healthy\n", summary.Modules)
		return
	}
	fmt.Fprintf(w, "doctor: %d manifest(s)\n", summary.Modules)
	for path, msg := range summary.Errors {
		fmt.Fprintf(w, "  error   %s: %s\n", path, msg)
	}
	for path, orphans := range summary.Orphans {
		fmt.Fprintf(w, "  orphan  %s: %s\n", path, SummarizePaths(orphans, 8))
	}
	for _, path := range summary.Unnamed {
		fmt.Fprintf(w, "  unnamed %s: module directive missing or empty\n", path)
	}
}
