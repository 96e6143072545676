package sandbox

import (
	"context"
	"errors"
	"time"

	"github.com/modwatch-dev/modwatch/internal/manifest"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 100 * time.Millisecond
)

// Retrying wraps a Parser with bounded retry and backoff for transport
// failures. Grammar errors pass through untouched: retrying a
// MalformedManifest can never succeed.
type Retrying struct {
	Parser Parser

	// Attempts is the total number of tries. Zero or negative falls
	// back to the default.
	Attempts int

	// Backoff is the initial delay between tries; it doubles per retry.
	Backoff time.Duration
}

func (r *Retrying) Parse(ctx context.Context, text string) (*manifest.Record, error) {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	var lastErr error
	for try := 0; try < attempts; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				return nil, manifest.Errorf(manifest.SandboxUnavailable, "retry cancelled: %v", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		rec, err := r.Parser.Parse(ctx, text)
		if err == nil {
			return rec, nil
		}
		var perr *manifest.ParseError
		if !errors.As(err, &perr) || !perr.Retryable() {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
