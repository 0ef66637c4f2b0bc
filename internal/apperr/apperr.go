// Package apperr defines the error taxonomy shared by the ledger engines,
// the repository layer and the HTTP handlers.  Every failure that a caller
// can react to carries a stable Kind, so handlers map errors to responses
// without inspecting message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories surfaced to callers.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindNotFound             Kind = "not_found"
	KindConflict             Kind = "conflict"
	KindInsufficientFunds    Kind = "insufficient_funds"
	KindReferentialIntegrity Kind = "referential_integrity"
	KindDomainConstraint     Kind = "domain_constraint"
	KindForbidden            Kind = "forbidden"
	KindInternal             Kind = "internal"
)

// Error is a classified error.  Msg is safe to show to API clients; Err
// holds the underlying cause, if any.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, apperr.ErrNotFound) matches every not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation           = &Error{Kind: KindValidation, Msg: "validation failed"}
	ErrNotFound             = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrConflict             = &Error{Kind: KindConflict, Msg: "conflict"}
	ErrInsufficientFunds    = &Error{Kind: KindInsufficientFunds, Msg: "insufficient funds"}
	ErrReferentialIntegrity = &Error{Kind: KindReferentialIntegrity, Msg: "referential integrity violation"}
	ErrDomainConstraint     = &Error{Kind: KindDomainConstraint, Msg: "domain constraint violation"}
	ErrForbidden            = &Error{Kind: KindForbidden, Msg: "forbidden"}
)

// New returns an Error of the given kind.
func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// Wrap returns an Error of the given kind that wraps cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

func InsufficientFunds(format string, args ...any) *Error {
	return New(KindInsufficientFunds, fmt.Sprintf(format, args...))
}

func DomainConstraint(format string, args ...any) *Error {
	return New(KindDomainConstraint, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-safe message for err.  Unclassified errors
// yield a generic message so internal details never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}
