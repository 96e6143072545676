package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modwatch-dev/modwatch/internal/fileutil"
	"github.com/modwatch-dev/modwatch/internal/tree"
)

// revealMatch is one located dependency, pinned to its owning manifest.
type revealMatch struct {
	Module   string `json:"module,omitempty"`
	Manifest string `json:"manifest"`
	Kind     string `json:"kind"`
	Version  string `json:"version,omitempty"`
	Target   string `json:"target,omitempty"`
	Orphan   bool   `json:"orphan,omitempty"`
}

func RunReveal(cmd *cobra.Command, args []string) error {
	depPath := args[0]
	rootPath, err := resolveRoot(args[1:])
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

	matches := f.FindDependency(depPath)
	if len(matches) == 0 {
		return fmt.Errorf("dependency %q not found in any manifest under %s", depPath, rootPath)
	}

	out := make([]revealMatch, 0, len(matches))
	for _, m := range matches {
		rm := revealMatch{
			Manifest: relPath(rootPath, m.Entry.Path),
			Kind:     m.Node.Kind.String(),
			Orphan:   m.Node.Orphan,
		}
		if m.Entry.Record != nil {
			rm.Module = m.Entry.Record.Module
		}
		if m.Node.Leaf != nil {
			rm.Version = m.Node.Leaf.Version
		}
		if m.Node.Kind == tree.Replaced && m.Node.Target != nil {
			rm.Target = m.Node.Target.Path
			if m.Node.Target.Version != "" {
				rm.Target += " " + m.Node.Target.Version
			}
		}
		out = append(out, rm)
	}

	if asJSON {
		return fileutil.PrintJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s: %d match(es)\n", depPath, len(out))
	for _, rm := range out {
		line := fmt.Sprintf("  %s  [%s", rm.Manifest, rm.Kind)
		if rm.Version != "" {
			line += " " + rm.Version
		}
		line += "]"
		if rm.Target != "" {
			line += " => " + rm.Target
		}
		if rm.Orphan {
			line += " (orphan)"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
