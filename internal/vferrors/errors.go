// Package vferrors defines the typed error kinds shared across the
// planner, compiler, task graph, and runtime. Every kind wraps an optional
// cause so error chains survive across component boundaries while still
// supporting errors.Is/errors.As.
package vferrors

import (
	"errors"
	"fmt"
)

// Kind classifies a vegafusion error per spec.md §7.
type Kind int

const (
	// KindParse covers malformed expression text or spec JSON.
	KindParse Kind = iota
	// KindCompilation covers type/shape mismatches lowering an expression.
	KindCompilation
	// KindSpecification covers structurally invalid transform parameters
	// or a variable that does not resolve within its task scope.
	KindSpecification
	// KindPreTransform covers a planner request to keep or extract a
	// variable that does not exist, or a contradictory configuration.
	KindPreTransform
	// KindInternal covers a violated invariant.
	KindInternal
	// KindExternal covers executor, I/O, or network failure.
	KindExternal
)

// String renders the kind the way it would appear in logs.
func (k Kind) String() string {
	switch k {
	case KindParse:
		return "Parse"
	case KindCompilation:
		return "Compilation"
	case KindSpecification:
		return "Specification"
	case KindPreTransform:
		return "PreTransform"
	case KindInternal:
		return "Internal"
	case KindExternal:
		return "External"
	default:
		return "Unknown"
	}
}

// Error is a structured vegafusion failure. It preserves a causal chain so
// a caller can unwrap back to the root cause via errors.Is/errors.As, while
// presenting a short, kind-tagged message.
type Error struct {
	Kind    Kind
	Message string
	Cause   *Error
}

// New constructs an Error of the given kind with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf formats a message and constructs an Error of the given kind.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that wraps cause. If cause is
// already a *Error, it becomes the Cause directly, preserving its kind for
// errors.As callers that look for the original one; otherwise cause is
// converted into a leaf *Error via FromError.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: FromError(cause)}
}

// FromError converts an arbitrary error into an *Error chain, preserving
// any existing *Error found via errors.As, and otherwise classifying it
// KindExternal (the most conservative kind for an opaque error).
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindExternal, Message: err.Error(), Cause: FromError(errors.Unwrap(err))}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap supports errors.Is/errors.As across the cause chain.
func (e *Error) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target has the same Kind, letting callers write
// errors.Is(err, vferrors.New(vferrors.KindCompilation, "")) style checks
// without caring about Message equality.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return e.Kind == t.Kind
}
