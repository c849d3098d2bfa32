package domain

import (
	"fmt"
	"strings"
)

// LedgerKind names the family of distributed ledger an asset lives on.
// Invariant: the value must be one of the supported kinds.
//
// Usage: construct via ParseLedgerKind at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type LedgerKind string

const (
	LedgerKindXRPL LedgerKind = "xrpl"
	LedgerKindEVM  LedgerKind = "evm"
)

// ParseLedgerKind validates and returns a LedgerKind.
func ParseLedgerKind(s string) (LedgerKind, error) {
	k := LedgerKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case LedgerKindXRPL, LedgerKindEVM:
		return k, nil
	}
	return "", fmt.Errorf("unknown ledger kind: %q", s)
}

func (k LedgerKind) String() string { return string(k) }

// IsNil returns true when no ledger kind is set.
func (k LedgerKind) IsNil() bool { return k == "" }

// HolderAddress is a ledger account address of a token holder. The core
// treats it as opaque text; only non-emptiness is enforced here because
// address formats are ledger-specific.
type HolderAddress string

// ParseHolderAddress validates and returns a HolderAddress.
func ParseHolderAddress(s string) (HolderAddress, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", fmt.Errorf("holder address is required")
	}
	return HolderAddress(trimmed), nil
}

func (a HolderAddress) String() string { return string(a) }

// IsNil returns true when no address is set.
func (a HolderAddress) IsNil() bool { return a == "" }
