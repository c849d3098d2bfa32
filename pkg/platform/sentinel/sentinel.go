// Package sentinel defines infrastructure-level sentinel errors.
//
// Stores and adapters return these (optionally wrapped) so services can
// translate them into coded domain errors. They describe factual states of a
// resource, not validation failures:
//   - ErrNotFound: record does not exist in the store
//   - ErrConflict: uniqueness or write-once constraint violated
//   - ErrExpired: one-time token or idempotency record past its expiry
//   - ErrAlreadyUsed: single-use resource (authorization request) consumed
//   - ErrInvalidState: record in the wrong state for the requested transition
//   - ErrUnavailable: backing service (ledger, storage) temporarily down
//
// For validation errors use pkg/domain-errors directly.
package sentinel

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
