// Package dErrors provides coded domain errors shared across mintgate.
//
// Services return these so transport layers can translate them into stable
// wire-level error codes without string matching. Infrastructure facts
// (not found, already used, expired) originate as pkg/platform/sentinel
// errors and are wrapped into coded errors at the service boundary.
package dErrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error code.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal_error"
	CodeUnavailable  Code = "unavailable"

	// Policy kernel.
	CodeMalformedExpression Code = "malformed_expression"

	// One-time authorization handoff.
	CodeRequestExpired          Code = "request_expired"
	CodeRequestAlreadyProcessed Code = "request_already_processed"
	CodeInvalidProof            Code = "invalid_proof"

	// Issuance gating preconditions.
	CodeAssetNotFound  Code = "asset_not_found"
	CodeAssetNotActive Code = "asset_not_active"

	// Reconciliation and snapshotting.
	CodeLedgerUnavailable Code = "ledger_unavailable"
	CodeSnapshotFailed    Code = "snapshot_failed"
)

// Error is a domain error carrying a stable code and a human-readable
// description. The description is safe to surface to callers except for
// CodeInternal, which transports must redact.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message while preserving the chain for
// errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, wrapped: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.wrapped
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost domain error code, or CodeInternal when err
// carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
