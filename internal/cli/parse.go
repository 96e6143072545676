package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/modwatch-dev/modwatch/internal/sandbox"
)

// RunParseSandbox is the child side of the subprocess sandbox: manifest
// text on stdin, one JSON result object on stdout. Grammar failures are
// reported inside the result; the process itself exits clean.
func RunParseSandbox(cmd *cobra.Command, args []string) error {
	return sandbox.Serve(os.Stdin, os.Stdout)
}
