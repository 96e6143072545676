package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modwatch-dev/modwatch/internal/ignore"
	"github.com/modwatch-dev/modwatch/internal/sandbox"
	"github.com/modwatch-dev/modwatch/internal/workspace"
)

// IgnoreFile holds user exclusion rules layered over the defaults.
const IgnoreFile = ".modwatchignore"

func resolveRoot(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	rootPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	return rootPath, nil
}

func LoadIgnoreRules(rootPath string) ([]string, error) {
	f, err := os.Open(filepath.Join(rootPath, IgnoreFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", IgnoreFile, err)
	}
	defer f.Close()

	rules := make([]string, 0)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", IgnoreFile, err)
	}
	return rules, nil
}

// newParser picks the sandbox adapter: in-process by default, the
// subprocess bridge with bounded retry when --subprocess is set.
func newParser(cmd *cobra.Command) sandbox.Parser {
	if useSubprocess, _ := cmd.Flags().GetBool("subprocess"); useSubprocess {
		return &sandbox.Retrying{Parser: &sandbox.Subprocess{}}
	}
	return sandbox.InProcess{}
}

// newScanner wires the workspace scanner with the user's ignore rules
// and the requested sandbox adapter.
func newScanner(cmd *cobra.Command, rootPath string) (*workspace.Scanner, error) {
	rules, err := LoadIgnoreRules(rootPath)
	if err != nil {
		return nil, err
	}
	return workspace.NewScanner(newParser(cmd), ignore.NewMatcher(rules)), nil
}

func relPath(rootPath, path string) string {
	if rel, err := filepath.Rel(rootPath, path); err == nil {
		return rel
	}
	return path
}
