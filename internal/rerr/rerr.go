// Package rerr defines the error taxonomy shared across the retrieval
// engine. Every subordinate package returns errors wrapping a Kind from
// this package rather than relying on sentinel package-local errors, so
// callers at any layer can classify failures with errors.As.
package rerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and operator-facing reporting.
type Kind string

const (
	// KindValidation marks malformed input: unknown filter key, out-of-range
	// score, bad identifier charset. Never retried.
	KindValidation Kind = "validation"
	// KindNotFound marks an identifier absent from the UnitStore.
	KindNotFound Kind = "not_found"
	// KindDegraded marks a backend circuit open; retrieval can still
	// proceed with reduced strategies.
	KindDegraded Kind = "degraded"
	// KindCircuitOpen marks a specific component temporarily unavailable.
	KindCircuitOpen Kind = "circuit_open"
	// KindCancelled marks deadline exceeded.
	KindCancelled Kind = "cancelled"
	// KindLockContention marks the pipeline lock held by another holder.
	KindLockContention Kind = "lock_contention"
	// KindCooldown marks a full run requested before the cooldown elapsed.
	KindCooldown Kind = "cooldown"
	// KindTransient marks retriable I/O, handled by the resilience layer.
	KindTransient Kind = "transient"
	// KindCorruption marks a checkpoint/manifest mismatch found by the
	// index validator.
	KindCorruption Kind = "corruption"
	// KindInternal marks an unexpected invariant violation.
	KindInternal Kind = "internal"
)

// Error is the concrete error type carried across package boundaries.
type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "search.vector"
	Err  error  // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind for the named operation.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Is reports whether err (or any error it wraps) carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to KindInternal when err
// does not wrap an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if err == nil {
		return ""
	}
	return KindInternal
}
