package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures across the parse pipeline.
type ErrorKind int

const (
	// EmptyManifest is reported for input with no content at all.
	EmptyManifest ErrorKind = iota
	// MalformedManifest is reported for non-empty input that violates
	// the directive grammar; the message carries the violation.
	MalformedManifest
	// SandboxUnavailable is a transport-level failure talking to the
	// parser sandbox. It is the only retryable kind.
	SandboxUnavailable
	// FileSystem covers read and enumeration failures during discovery.
	FileSystem
)

func (k ErrorKind) String() string {
	switch k {
	case EmptyManifest:
		return "empty manifest"
	case MalformedManifest:
		return "malformed manifest"
	case SandboxUnavailable:
		return "sandbox unavailable"
	case FileSystem:
		return "filesystem error"
	default:
		return "unknown error"
	}
}

// ParseError is the structured error produced anywhere in the parse
// pipeline. Exactly one of a parse attempt's record/error is populated.
type ParseError struct {
	Kind    ErrorKind
	Message string
}

func (e *ParseError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// Retryable reports whether the error is transient and a retry after
// reinitialization may succeed. Grammar errors are never retryable.
func (e *ParseError) Retryable() bool {
	return e.Kind == SandboxUnavailable
}

// Errorf builds a ParseError with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsParseError extracts a ParseError from err, converting foreign
// errors into the given fallback kind so callers always observe the
// structured taxonomy.
func AsParseError(err error, fallback ErrorKind) *ParseError {
	if err == nil {
		return nil
	}
	var perr *ParseError
	if errors.As(err, &perr) {
		return perr
	}
	return &ParseError{Kind: fallback, Message: err.Error()}
}

// ClassifyMessage recovers the error kind from a serialized error
// string. The sandbox wire format carries only the message, so the kind
// prefix written by Error is the round-trip channel.
func ClassifyMessage(msg string) *ParseError {
	for _, kind := range []ErrorKind{EmptyManifest, MalformedManifest, SandboxUnavailable, FileSystem} {
		prefix := kind.String()
		if msg == prefix {
			return &ParseError{Kind: kind}
		}
		if strings.HasPrefix(msg, prefix+": ") {
			return &ParseError{Kind: kind, Message: strings.TrimPrefix(msg, prefix+": ")}
		}
	}
	return &ParseError{Kind: MalformedManifest, Message: msg}
}
