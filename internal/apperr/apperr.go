// Package apperr defines the tagged error type shared by the core
// components. Every internal fault is translated into exactly one of
// these kinds before it crosses the handler boundary; nothing
// store-specific or stack-shaped is ever exposed to a caller.
package apperr

import "errors"

// Kind is a stable, machine-checkable error category.
type Kind string

const (
	KindConfig          Kind = "CONFIG"          // missing secret/store; surfaced as service unavailable
	KindValidation      Kind = "VALIDATION"      // bad or out-of-range input, user actionable
	KindUnauthenticated Kind = "UNAUTHENTICATED" // missing, invalid, expired or revoked credential
	KindForbidden       Kind = "FORBIDDEN"       // wrong role or suspended account
	KindNotFound        Kind = "NOT_FOUND"       // absent, or exists but not owned by the caller
	KindConflict        Kind = "CONFLICT"        // e.g. duplicate registration
	KindStorage         Kind = "STORAGE"         // transient backing-store fault, detail stays in logs
)

// Error carries a kind, a caller-safe message and an optional cause.
// The cause is for logs only and never serialized to responses.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error with the given kind and caller-safe message.
func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// Wrap attaches a cause to a new Error. The cause stays internal.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the kind from err. Unrecognized errors are treated
// as storage faults so unexpected failures always fail closed behind
// a generic message.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// MessageOf returns the caller-safe message for err. Unrecognized
// errors get a generic message; their detail belongs in logs.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "something went wrong, please try again"
}

// HTTPStatus maps a kind to the transport status code. This mapping
// is only consulted at the outermost boundary adapter.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return 400
	case KindUnauthenticated:
		return 401
	case KindForbidden:
		return 403
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindConfig:
		return 503
	default: // KindStorage and anything unknown
		return 500
	}
}
