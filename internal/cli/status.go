package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modwatch-dev/modwatch/internal/fileutil"
	"github.com/modwatch-dev/modwatch/internal/snapshot"
)

// RunStatus compares on-disk manifest fingerprints against the snapshot
// saved by the last scan. Manifests are hashed, not parsed.
func RunStatus(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveRoot(args)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	state, err := snapshot.Load(rootPath)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	scanner, err := newScanner(cmd, rootPath)
	if err != nil {
		return err
	}
	paths, _, err := scanner.Discover(rootPath)
	if err != nil {
		return err
	}

	current := make(map[string]string, len(paths))
	for _, path := range paths {
		fingerprint, err := fileutil.HashFile(path)
		if err != nil {
			// Treat an unreadable manifest as changed; a scan will
			// surface the real error.
			current[path] = ""
			continue
		}
		current[path] = fingerprint
	}

	changed := state.Changed(current)
	deleted := state.Deleted(current)

	summary := StatusSummary{
		Mode:     "status",
		RootPath: rootPath,
		Modules:  len(paths),
		Changed:  len(changed),
		Deleted:  len(deleted),
	}
	for _, path := range changed {
		summary.ChangedFiles = append(summary.ChangedFiles, relPath(rootPath, path))
	}
	for _, path := range deleted {
		summary.DeletedFiles = append(summary.DeletedFiles, relPath(rootPath, path))
	}

	if asJSON {
		return fileutil.PrintJSON(cmd.OutOrStdout(), summary)
	}

	w := cmd.OutOrStdout()
	if summary.Changed == 0 && summary.Deleted == 0 {
		fmt.Fprintf(w, "status: %d manifest(s), none changed since last scan\n", summary.Modules)
		return nil
	}
	fmt.Fprintf(w, "status: %d manifest(s), %d changed, %d deleted\n",
		summary.Modules, summary.Changed, summary.Deleted)
	if len(summary.ChangedFiles) > 0 {
		fmt.Fprintf(w, "changed: %s\n", SummarizePaths(summary.ChangedFiles, 8))
	}
	if len(summary.DeletedFiles) > 0 {
		fmt.Fprintf(w, "deleted: %s\n", SummarizePaths(summary.DeletedFiles, 8))
	}
	return nil
}
