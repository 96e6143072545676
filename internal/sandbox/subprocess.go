package sandbox

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/modwatch-dev/modwatch/internal/manifest"
)

// ServeArg is the hidden subcommand that turns the binary into the
// sandboxed parser process.
const ServeArg = "__parse"

// Subprocess executes each parse in a fresh re-exec of the running
// binary, reading manifest text from the child's stdin and one JSON
// result from its stdout. Process-per-call keeps calls free of shared
// mutable state; any launch or transport failure is SandboxUnavailable.
type Subprocess struct {
	// Binary overrides the executable to spawn. Empty resolves to the
	// current executable.
	Binary string
}

func (s *Subprocess) Parse(ctx context.Context, text string) (*manifest.Record, error) {
	bin := s.Binary
	if bin == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, manifest.Errorf(manifest.SandboxUnavailable, "resolve executable: %v", err)
		}
		bin = exe
	}

	cmd := exec.CommandContext(ctx, bin, ServeArg)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// The parser process always exits zero and reports grammar
		// errors inside the JSON result; a non-zero exit means the
		// sandbox itself died.
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, manifest.Errorf(manifest.SandboxUnavailable, "parser process: %s", msg)
	}
	return DecodeResult(stdout.Bytes())
}

// Serve is the child side of the bridge: it reads one manifest from in,
// parses it, and writes one JSON result to out. It never returns a
// grammar error; only I/O failures on the pipe itself are errors.
func Serve(in io.Reader, out io.Writer) error {
	text, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	rec, perr := InProcess{}.Parse(context.Background(), string(text))
	data, err := EncodeResult(rec, perr)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = out.Write(data)
	return err
}
