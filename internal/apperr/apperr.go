// Package apperr classifies errors per the taxonomy in spec.md §7 so callers
// across the pipeline can apply a uniform retry/surface policy instead of
// re-deriving it from error strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry and alerting policy.
type Kind string

const (
	// Transient covers timeouts, 5xx responses, and connection resets. Safe to retry
	// within the calling component's own backoff policy.
	Transient Kind = "transient"
	// Permanent covers malformed messages and unsupported formats. Not retried;
	// the affected unit of work is marked processed and skipped.
	Permanent Kind = "permanent"
	// Invariant covers data invariant violations (e.g. double-merge). The
	// operation is rejected and a warning alert is raised.
	Invariant Kind = "invariant"
	// Unavailable covers a dependency being down (scanner process, STT engine).
	// Surfaced as a system alert after N consecutive failures.
	Unavailable Kind = "unavailable"
	// Unexpected covers anything uncaught. Isolated to the failing task.
	Unexpected Kind = "unexpected"
)

// Error wraps an underlying error with a Kind and the entity id it concerns,
// so logs and alerts can reference "what failed" without re-parsing strings.
type Error struct {
	Kind   Kind
	Entity string // e.g. "segment:abc123", "call:492"
	Err    error
}

func (e *Error) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Kind, e.Entity, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given kind and entity reference.
func New(kind Kind, entity string, err error) *Error {
	return &Error{Kind: kind, Entity: entity, Err: err}
}

// Transientf builds a Transient error, entity-scoped.
func Transientf(entity, format string, args ...any) *Error {
	return &Error{Kind: Transient, Entity: entity, Err: fmt.Errorf(format, args...)}
}

// Permanentf builds a Permanent error, entity-scoped.
func Permanentf(entity, format string, args ...any) *Error {
	return &Error{Kind: Permanent, Entity: entity, Err: fmt.Errorf(format, args...)}
}

// Invariantf builds an Invariant error, entity-scoped.
func Invariantf(entity, format string, args ...any) *Error {
	return &Error{Kind: Invariant, Entity: entity, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, defaulting to Unexpected if err was not
// produced by this package.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Unexpected
}

// IsTransient reports whether err should be retried by the caller's policy.
func IsTransient(err error) bool { return KindOf(err) == Transient }
