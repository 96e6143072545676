package sandbox

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modwatch-dev/modwatch/internal/manifest"
)

func TestInProcessParse(t *testing.T) {
	rec, err := InProcess{}.Parse(context.Background(), "module example.com/app\nrequire example.com/lib v1.0.0\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Module != "example.com/app" || len(rec.Require) != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestWireResultDiscriminatesByErrorField(t *testing.T) {
	data, err := EncodeResult(&manifest.Record{Module: "example.com/app"}, nil)
	if err != nil {
		t.Fatalf("encode success: %v", err)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Fatalf("success result must not carry an error field: %s", data)
	}
	rec, perr := DecodeResult(data)
	if perr != nil || rec.Module != "example.com/app" {
		t.Fatalf("decode success: rec=%+v err=%v", rec, perr)
	}

	data, err = EncodeResult(nil, &manifest.ParseError{Kind: manifest.MalformedManifest, Message: "line 1: boom"})
	if err != nil {
		t.Fatalf("encode failure: %v", err)
	}
	_, perr = DecodeResult(data)
	expectKind(t, perr, manifest.MalformedManifest)
	var typed *manifest.ParseError
	if errors.As(perr, &typed) && typed.Message != "line 1: boom" {
		t.Fatalf("message lost across the wire: %q", typed.Message)
	}
}

func TestDecodeGarbageIsSandboxUnavailable(t *testing.T) {
	_, err := DecodeResult([]byte("segfault: core dumped"))
	expectKind(t, err, manifest.SandboxUnavailable)
}

func TestServeRoundTrip(t *testing.T) {
	var out bytes.Buffer
	if err := Serve(strings.NewReader("module example.com/app\n"), &out); err != nil {
		t.Fatalf("serve: %v", err)
	}
	rec, err := DecodeResult(out.Bytes())
	if err != nil {
		t.Fatalf("decode served result: %v", err)
	}
	if rec.Module != "example.com/app" {
		t.Fatalf("unexpected module %q", rec.Module)
	}

	out.Reset()
	if err := Serve(strings.NewReader(""), &out); err != nil {
		t.Fatalf("serve empty: %v", err)
	}
	_, err = DecodeResult(out.Bytes())
	expectKind(t, err, manifest.EmptyManifest)
}

func TestSubprocessLaunchFailureIsSandboxUnavailable(t *testing.T) {
	sub := &Subprocess{Binary: "/nonexistent/modwatch-parser"}
	_, err := sub.Parse(context.Background(), "module example.com/app\n")
	expectKind(t, err, manifest.SandboxUnavailable)
}

// countingParser fails with the configured error until the remaining
// failure budget is spent, then succeeds.
type countingParser struct {
	calls    int
	failures int
	err      *manifest.ParseError
}

func (p *countingParser) Parse(context.Context, string) (*manifest.Record, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	return &manifest.Record{Module: "example.com/ok"}, nil
}

func TestRetryingRetriesTransportErrors(t *testing.T) {
	stub := &countingParser{failures: 2, err: &manifest.ParseError{Kind: manifest.SandboxUnavailable}}
	r := &Retrying{Parser: stub, Attempts: 3, Backoff: time.Millisecond}

	rec, err := r.Parse(context.Background(), "x")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if rec.Module != "example.com/ok" || stub.calls != 3 {
		t.Fatalf("expected 3 calls, got %d (rec=%+v)", stub.calls, rec)
	}
}

func TestRetryingDoesNotRetryGrammarErrors(t *testing.T) {
	stub := &countingParser{failures: 5, err: &manifest.ParseError{Kind: manifest.MalformedManifest, Message: "boom"}}
	r := &Retrying{Parser: stub, Attempts: 3, Backoff: time.Millisecond}

	_, err := r.Parse(context.Background(), "x")
	expectKind(t, err, manifest.MalformedManifest)
	if stub.calls != 1 {
		t.Fatalf("grammar error retried: %d calls", stub.calls)
	}
}

func TestRetryingGivesUpAfterBudget(t *testing.T) {
	stub := &countingParser{failures: 10, err: &manifest.ParseError{Kind: manifest.SandboxUnavailable}}
	r := &Retrying{Parser: stub, Attempts: 2, Backoff: time.Millisecond}

	_, err := r.Parse(context.Background(), "x")
	expectKind(t, err, manifest.SandboxUnavailable)
	if stub.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", stub.calls)
	}
}

func expectKind(t *testing.T, err error, kind manifest.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	var perr *manifest.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *manifest.ParseError, got %T: %v", err, err)
	}
	if perr.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, perr.Kind, perr)
	}
}
