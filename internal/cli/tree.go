package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modwatch-dev/modwatch/internal/fileutil"
	"github.com/modwatch-dev/modwatch/internal/forest"
	"github.com/modwatch-dev/modwatch/internal/tree"
)

func RunTree(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveRoot(args)
	if err != nil {
		return err
	}
	modulePath, _ := cmd.Flags().GetString("module")
	asJSON, _ := cmd.Flags().GetBool("json")

	scanner, err := newScanner(cmd, rootPath)
	if err != nil {
		return err
	}
	f, err := scanner.Scan(cmd.Context(), rootPath)
	if err != nil {
		return err
	}

	entry, err := pickEntry(f, rootPath, modulePath)
	if err != nil {
		return err
	}
	if entry.Err != nil {
		return fmt.Errorf("%s: %w", relPath(rootPath, entry.Path), entry.Err)
	}

	if asJSON {
		return fileutil.PrintJSON(cmd.OutOrStdout(), entry.Record)
	}

	out := cmd.OutOrStdout()
	name := entry.Record.Module
	if entry.Record.Unnamed() {
		name = "(unnamed module)"
	}
	fmt.Fprintf(out, "%s  %s\n", name, relPath(rootPath, entry.Path))
	renderTree(out, entry.Tree, 0)
	return nil
}

// pickEntry selects the manifest to render: an explicit module path, a
// lone module, or the workspace root manifest.
func pickEntry(f *forest.Forest, rootPath, modulePath string) (*forest.Entry, error) {
	entries := f.Snapshot()
	if len(entries) == 0 {
		return nil, fmt.Errorf("no manifests found under %s", rootPath)
	}

	if modulePath != "" {
		for _, e := range entries {
			if e.Record != nil && e.Record.Module == modulePath {
				return e, nil
			}
		}
		return nil, fmt.Errorf("no module %q in the workspace", modulePath)
	}

	if len(entries) == 1 {
		return entries[0], nil
	}
	if e, ok := f.Get(filepath.Join(rootPath, "go.mod")); ok {
		return e, nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Record != nil {
			names = append(names, e.Record.Module)
		}
	}
	return nil, fmt.Errorf("workspace has %d modules, pick one with --module (%s)",
		len(entries), SummarizePaths(names, 8))
}

func renderTree(w io.Writer, root *tree.Node, depth int) {
	for _, child := range root.SortedChildren() {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth+1), describeNode(child))
		renderTree(w, child, depth+1)
	}
}

func describeNode(n *tree.Node) string {
	if !n.IsLeaf() {
		return n.Segment + "/"
	}

	var b strings.Builder
	b.WriteString(n.Segment)
	if n.Leaf.Version != "" {
		b.WriteString(" " + n.Leaf.Version)
	}
	if n.Kind == tree.Replaced && n.Target != nil {
		b.WriteString(" => " + n.Target.Path)
		if n.Target.Version != "" {
			b.WriteString(" " + n.Target.Version)
		}
	}
	if n.Kind != tree.Direct {
		b.WriteString(" [" + n.Kind.String() + "]")
	}
	if n.Orphan {
		b.WriteString(" [orphan]")
	}
	return b.String()
}
