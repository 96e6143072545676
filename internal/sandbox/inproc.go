package sandbox

import (
	"context"

	"github.com/modwatch-dev/modwatch/internal/manifest"
)

// InProcess runs the parser in the caller's process with a panic
// barrier, so a fault inside parsing surfaces as a structured error
// instead of crashing the host. It is the default adapter for tests
// and one-shot commands.
type InProcess struct{}

func (InProcess) Parse(_ context.Context, text string) (rec *manifest.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = manifest.Errorf(manifest.MalformedManifest, "parser fault: %v", r)
		}
	}()
	return manifest.Parse(text)
}
