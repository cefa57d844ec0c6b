// Package nexuserrors defines the typed error taxonomy shared by every core
// package: validation failures, handshake/protocol failures, remote I/O
// failures, configuration failures, and crypto invariant violations.
package nexuserrors

import (
	"fmt"
	"net/http"
)

// Kind discriminates the broad category of a failure so that callers can
// decide on retry, abort, or user-facing messaging without string matching.
type Kind string

const (
	KindValidation Kind = "validation"
	KindProtocol   Kind = "protocol"
	KindRemote     Kind = "remote"
	KindConfig     Kind = "config"
	KindCrypto     Kind = "crypto"
	KindInternal   Kind = "internal"
)

// Error is the machine-readable error shape carried across the core. Reason
// is always human-readable; Code is populated where an HTTP status makes
// sense (§6.1/§7 of the nexus core specification).
type Error struct {
	Kind   Kind
	Reason string
	Code   int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind with no wrapped cause.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap adds context to err under the given kind. Returns nil if err is nil,
// mirroring the teacher's pkg/utils.Wrap contract.
func Wrap(kind Kind, err error, reason string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// WithCode attaches an HTTP status code to an existing Error and returns it
// for chaining, e.g. nexuserrors.New(...).WithCode(http.StatusUnprocessableEntity).
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

// Validation is shorthand for New(KindValidation, reason) with a 422 default.
func Validation(reason string) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Code: http.StatusUnprocessableEntity}
}

// Protocol is shorthand for New(KindProtocol, reason).
func Protocol(reason string) *Error {
	return &Error{Kind: KindProtocol, Reason: reason}
}

// Remote is shorthand for New(KindRemote, reason).
func Remote(reason string) *Error {
	return &Error{Kind: KindRemote, Reason: reason}
}

// Config is shorthand for New(KindConfig, reason).
func Config(reason string) *Error {
	return &Error{Kind: KindConfig, Reason: reason}
}

// Crypto is shorthand for New(KindCrypto, reason).
func Crypto(reason string) *Error {
	return &Error{Kind: KindCrypto, Reason: reason}
}

// Internal is shorthand for New(KindInternal, reason). Internal errors
// indicate a broken invariant and the caller must not continue to use the
// affected keys or state (§7).
func Internal(reason string) *Error {
	return &Error{Kind: KindInternal, Reason: reason}
}

// Is reports whether err is a *Error of the given kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		break
	}
	return false
}
