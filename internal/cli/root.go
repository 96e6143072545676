package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modwatch-dev/modwatch/internal/sandbox"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modwatch",
		Short: "Live dependency forest for multi-module workspaces",
		Long: `Modwatch turns a workspace's go.mod files into a hierarchical
dependency forest: every module's requires, replaces, excludes, and
tools merged into navigable namespace trees, kept current as manifests
change on disk.`,
	}

	scanCmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan the workspace and build the module forest",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunScan,
	}
	scanCmd.Flags().Bool("json", false, "Print the machine-readable forest")
	scanCmd.Flags().Bool("save", true, "Save the fingerprint snapshot under .modwatch/")
	scanCmd.Flags().Bool("subprocess", false, "Parse through the subprocess sandbox instead of in-process")

	treeCmd := &cobra.Command{
		Use:   "tree [path]",
		Short: "Render one module's dependency tree",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunTree,
	}
	treeCmd.Flags().String("module", "", "Module path to render when the workspace has several")
	treeCmd.Flags().Bool("json", false, "Print the machine-readable record")

	revealCmd := &cobra.Command{
		Use:   "reveal <dependency-path> [workspace]",
		Short: "Locate a dependency path across the forest",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  RunReveal,
	}
	revealCmd.Flags().Bool("json", false, "Print machine-readable matches")

	watchCmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch the workspace and keep the forest current",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunWatch,
	}
	watchCmd.Flags().Duration("debounce", 0, "Quiet window for coalescing change bursts (default 300ms)")
	watchCmd.Flags().Duration("rescan-every", 0, "Also run a periodic full refresh (0 disables)")
	watchCmd.Flags().Bool("subprocess", false, "Parse through the subprocess sandbox instead of in-process")

	statusCmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Report manifests changed since the last saved scan",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunStatus,
	}
	statusCmd.Flags().Bool("json", false, "Print machine-readable status output")

	doctorCmd := &cobra.Command{
		Use:   "doctor [path]",
		Short: "Validate every workspace manifest and report anomalies",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunDoctor,
	}
	doctorCmd.Flags().Bool("json", false, "Print machine-readable doctor output")

	parseCmd := &cobra.Command{
		Use:    sandbox.ServeArg,
		Short:  "Parse one manifest from stdin (sandbox entry point)",
		Hidden: true,
		RunE:   RunParseSandbox,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("modwatch %s\n", version)
		},
	}

	rootCmd.AddCommand(
		scanCmd,
		treeCmd,
		revealCmd,
		watchCmd,
		statusCmd,
		doctorCmd,
		parseCmd,
		versionCmd,
	)

	return rootCmd
}
