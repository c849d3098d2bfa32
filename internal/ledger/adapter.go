// Package ledger defines the adapter contract the core depends on. The core
// never touches a specific ledger's wire format; concrete adapters live
// behind this interface.
package ledger

import (
	"context"
	"errors"
)

// ErrUnavailable wraps transport-level adapter failures. Callers translate
// it to the ledger_unavailable domain error.
var ErrUnavailable = errors.New("ledger unavailable")

// AccountLine is one holder-side opt-in line (e.g. an XRPL trustline) as the
// ledger currently reports it.
type AccountLine struct {
	// Currency is the token code of the line.
	Currency string
	// Account is the holder address on the other end of the line.
	Account string
	// Limit is the holder-side limit, as the ledger's decimal string.
	Limit string
	// Balance is the current holder balance on the line.
	Balance string
	// Authorized reports whether the issuer has authorized the line.
	Authorized bool
	// PeerAuthorized reports whether the holder has authorized the issuer
	// side of the line.
	PeerAuthorized bool
}

// TxResult reports a submitted ledger transaction.
type TxResult struct {
	TxHash string
}

//go:generate mockgen -destination=mock/adapter_mock.go -package=mock mintgate/internal/ledger Adapter

// Adapter is the ledger access contract. Implementations must return
// ErrUnavailable (wrapped or bare) on transport failure so callers can apply
// their own retry policy; no adapter retries internally.
type Adapter interface {
	// GetAccountLines returns the current opt-in lines of account, optionally
	// filtered to one peer. ledgerIndex "" means the latest validated ledger.
	GetAccountLines(ctx context.Context, account, peer, ledgerIndex string) ([]AccountLine, error)
	CreateTrustline(ctx context.Context, account, currency, issuer, limit string) (TxResult, error)
	AuthorizeTrustline(ctx context.Context, issuer, holder, currency string) (TxResult, error)
	// GetTransaction returns the raw transaction body for txHash.
	GetTransaction(ctx context.Context, txHash string) (map[string]any, error)
}
