package handoff

import (
	"context"
	"strings"

	"mintgate/internal/asset"
	"mintgate/internal/ledger"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

// Proof is the externally supplied evidence that the holder signed the
// expected opt-in transaction. The signing mechanism itself lives with an
// external collaborator; the handoff only checks that the referenced
// transaction has the expected type and target.
type Proof struct {
	TxHash string `json:"tx_hash"`
}

// ProofVerifier checks a proof against the request it claims to complete.
type ProofVerifier interface {
	Verify(ctx context.Context, a *asset.Asset, req *AuthorizationRequest, proof Proof) error
}

// LedgerVerifier verifies proofs by fetching the referenced transaction
// through the asset's ledger adapter.
type LedgerVerifier struct {
	adapters map[id.LedgerKind]ledger.Adapter
}

func NewLedgerVerifier(adapters map[id.LedgerKind]ledger.Adapter) *LedgerVerifier {
	return &LedgerVerifier{adapters: adapters}
}

func (v *LedgerVerifier) Verify(ctx context.Context, a *asset.Asset, req *AuthorizationRequest, proof Proof) error {
	if proof.TxHash == "" {
		return dErrors.New(dErrors.CodeInvalidProof, "proof transaction hash is required")
	}
	adapter, ok := v.adapters[a.Ledger]
	if !ok {
		return dErrors.Newf(dErrors.CodeLedgerUnavailable, "no adapter registered for ledger %s", a.Ledger)
	}
	tx, err := adapter.GetTransaction(ctx, proof.TxHash)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, "failed to fetch proof transaction")
	}

	switch a.Ledger {
	case id.LedgerKindXRPL:
		return verifyTrustSet(tx, a, req)
	case id.LedgerKindEVM:
		return verifyOptInCall(tx, a, req)
	}
	return dErrors.Newf(dErrors.CodeInvalidProof, "unsupported ledger %s", a.Ledger)
}

// verifyTrustSet checks an XRPL TrustSet: signed by the invited holder,
// against the asset's issuer and currency.
func verifyTrustSet(tx map[string]any, a *asset.Asset, req *AuthorizationRequest) error {
	if txType, _ := tx["TransactionType"].(string); txType != "TrustSet" {
		return dErrors.Newf(dErrors.CodeInvalidProof, "expected a TrustSet transaction, got %q", txType)
	}
	if account, _ := tx["Account"].(string); account != req.Holder.String() {
		return dErrors.New(dErrors.CodeInvalidProof, "transaction was not signed by the invited holder")
	}
	limitAmount, _ := tx["LimitAmount"].(map[string]any)
	if currency, _ := limitAmount["currency"].(string); currency != a.Currency {
		return dErrors.New(dErrors.CodeInvalidProof, "transaction targets a different currency")
	}
	if issuer, _ := limitAmount["issuer"].(string); issuer != a.IssuingAddress {
		return dErrors.New(dErrors.CodeInvalidProof, "transaction targets a different issuer")
	}
	return nil
}

// verifyOptInCall checks an EVM opt-in: sent by the invited holder to the
// asset's token contract.
func verifyOptInCall(tx map[string]any, a *asset.Asset, req *AuthorizationRequest) error {
	from, _ := tx["from"].(string)
	if !strings.EqualFold(from, req.Holder.String()) {
		return dErrors.New(dErrors.CodeInvalidProof, "transaction was not sent by the invited holder")
	}
	to, _ := tx["to"].(string)
	if !strings.EqualFold(to, a.IssuingAddress) {
		return dErrors.New(dErrors.CodeInvalidProof, "transaction targets a different contract")
	}
	return nil
}
