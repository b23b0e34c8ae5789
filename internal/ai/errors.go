package ai

import (
	"errors"
	"fmt"
)

// UpstreamError marks a failed call to an external provider (embedding,
// generation, image). The pipeline never retries these; they propagate to
// the caller as a hard failure.
type UpstreamError struct {
	Provider string
	Op       string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

func upstream(op string, err error) error {
	return &UpstreamError{Provider: "gemini", Op: op, Err: err}
}
