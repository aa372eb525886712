package engine

import (
	"fmt"

	"github.com/analekt/epubcheck-mcp/internal/model"
)

// Reason classifies why an invocation did not produce a report.
type Reason string

const (
	ReasonExecutableNotFound Reason = "ExecutableNotFound"
	ReasonSpawnFailed        Reason = "SpawnFailed"
	ReasonNoOutputProduced   Reason = "NoOutputProduced"
	ReasonMalformedOutput    Reason = "MalformedOutput"
)

// InvocationError is the failure variant of an invocation. It matches the
// model.Err* sentinel of its Reason and the underlying cause via errors.Is.
type InvocationError struct {
	Reason     Reason
	Diagnostic string // stderr, exit code, native error text or searched paths
	Err        error  // underlying cause, may be nil
}

func (e *InvocationError) Error() string {
	if e.Diagnostic == "" {
		return e.sentinel().Error()
	}
	return fmt.Sprintf("%s: %s", e.sentinel(), e.Diagnostic)
}

func (e *InvocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.Err}
}

func (e *InvocationError) sentinel() error {
	switch e.Reason {
	case ReasonExecutableNotFound:
		return model.ErrExecutableNotFound
	case ReasonSpawnFailed:
		return model.ErrSpawnFailed
	case ReasonNoOutputProduced:
		return model.ErrNoOutputProduced
	default:
		return model.ErrMalformedOutput
	}
}
