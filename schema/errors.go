package schema

import (
	"errors"
	"fmt"
)

// FailureKind is the phase-level error taxonomy. Failures propagate as
// values attached to the evidence bundle; they are never raised past the
// controller, and the presentation layer only ever sees a degraded Answer.
type FailureKind string

const (
	FailRouting     FailureKind = "ROUTING_FAILURE"
	FailUnsafeQuery FailureKind = "UNSAFE_QUERY"
	FailExecution   FailureKind = "EXECUTION_FAILURE"
	FailRetrieval   FailureKind = "RETRIEVAL_FAILURE"
	FailComposition FailureKind = "COMPOSITION_FAILURE"
)

// PhaseFailure is a typed failure from one pipeline phase.
type PhaseFailure struct {
	Kind   FailureKind `json:"kind"`
	Detail string      `json:"detail,omitempty"`
	cause  error
}

func (f *PhaseFailure) Error() string {
	if f.Detail != "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	}
	return string(f.Kind)
}

func (f *PhaseFailure) Unwrap() error { return f.cause }

// NewFailure builds a PhaseFailure wrapping cause. cause may be nil.
func NewFailure(kind FailureKind, detail string, cause error) *PhaseFailure {
	return &PhaseFailure{Kind: kind, Detail: detail, cause: cause}
}

// FailureOf extracts a PhaseFailure from err, or wraps err as fallback.
func FailureOf(err error, fallback FailureKind) *PhaseFailure {
	var pf *PhaseFailure
	if errors.As(err, &pf) {
		return pf
	}
	return NewFailure(fallback, err.Error(), err)
}
