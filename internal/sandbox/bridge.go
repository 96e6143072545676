// Package sandbox isolates manifest parsing behind a narrow
// request/response boundary. Each call marshals exactly one input
// string and yields exactly one JSON result; success and failure are
// distinguished solely by the presence of the "error" field, never by
// exception propagation, because faults do not cross the boundary
// reliably.
package sandbox

import (
	"context"
	"encoding/json"

	"github.com/modwatch-dev/modwatch/internal/manifest"
)

// Parser is the capability consumed by the scanner and the
// invalidation layer. Implementations must be safe for concurrent use
// and must report failures as *manifest.ParseError.
type Parser interface {
	Parse(ctx context.Context, text string) (*manifest.Record, error)
}

// wireResult is the single JSON object exchanged per call. On success
// the record fields are inlined; on failure Error is the only populated
// field.
type wireResult struct {
	*manifest.Record
	Error string `json:"error,omitempty"`
}

// EncodeResult serializes a parse outcome into the wire format.
func EncodeResult(rec *manifest.Record, err error) ([]byte, error) {
	if err != nil {
		return json.Marshal(wireResult{Error: err.Error()})
	}
	return json.Marshal(wireResult{Record: rec})
}

// DecodeResult deserializes a wire result. Transport-level garbage
// (non-JSON output) is reported as SandboxUnavailable; a well-formed
// result with an error field is classified back into the parse
// taxonomy by its message prefix.
func DecodeResult(data []byte) (*manifest.Record, error) {
	var res wireResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, manifest.Errorf(manifest.SandboxUnavailable, "malformed sandbox response: %v", err)
	}
	if res.Error != "" {
		return nil, manifest.ClassifyMessage(res.Error)
	}
	if res.Record == nil {
		res.Record = &manifest.Record{}
	}
	return res.Record, nil
}
