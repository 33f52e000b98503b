package inference

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed call to the inference service.
type Kind string

const (
	// KindUnreachable means a connection to the service could not be established.
	KindUnreachable Kind = "unreachable"
	// KindTimeout means the service did not respond within the per-call timeout.
	KindTimeout Kind = "timeout"
	// KindInvalidResponse means a response arrived but did not conform to the
	// expected schema, including responses wrapped in extraneous text.
	KindInvalidResponse Kind = "invalid_response"
)

// Error is the typed failure returned by inference backends and agents.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference %s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("inference %s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a typed inference failure.
func NewError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the failure kind from an error chain. The second return is
// false when the error is not an inference failure.
func KindOf(err error) (Kind, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return "", false
}

// Generator sends a single prompt to the inference service and returns the
// generated text. Implementations perform no retries and hold no per-candidate
// state between calls; retry policy belongs to the caller.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// HealthChecker is implemented by backends that can be verified before any
// work is dispatched.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}
