// Package errs defines the typed error-kind sum type every engine
// (entity, index, relationship, backup, blob, page) returns across
// subsystem boundaries. It is split out from pkg/graphstore, which wires
// those same engines into a Store and so cannot be the package they
// import back — pkg/graphstore re-exports these names unchanged for
// existing callers.
package errs

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a graphstore error for transport-layer mapping
// (the HTTP status mapping itself lives in the external transport, per
// spec; graphstore only needs to name the kind).
type ErrorKind string

const (
	KindBadRequest       ErrorKind = "BadRequest"
	KindNotFound         ErrorKind = "NotFound"
	KindDeleteFailed     ErrorKind = "DeleteFailed"
	KindUnknownOperation ErrorKind = "UnknownOperation"
	KindUnexpected       ErrorKind = "Unexpected"
)

// Error is the sum-type error every handler returns instead of throwing
// across subsystem boundaries, mirroring the teacher's sentinel-error-plus-
// wrapping idiom (ErrNotFound, fmt.Errorf("...: %w", err)) but carrying an
// explicit Kind for the dispatch layer to classify.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

func BadRequest(msg string) error       { return newErr(KindBadRequest, msg, nil) }
func NotFound(msg string) error         { return newErr(KindNotFound, msg, nil) }
func DeleteFailed(msg string) error     { return newErr(KindDeleteFailed, msg, nil) }
func UnknownOperation(msg string) error { return newErr(KindUnknownOperation, msg, nil) }
func Unexpected(msg string, cause error) error {
	return newErr(KindUnexpected, msg, cause)
}

// KindOf extracts the ErrorKind from err, defaulting to Unexpected for any
// error that did not originate from this package — the "all other error
// shapes map to Unexpected" rule of spec.md §7.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnexpected
}

// IsNotFound reports whether err is (or wraps) a NotFound graphstore error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
