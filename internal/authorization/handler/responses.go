package handler

import (
	"sort"
	"time"

	"mintgate/internal/authorization"
)

// AuthorizationResponse is the HTTP shape of one authorization row.
type AuthorizationResponse struct {
	ID             string    `json:"id"`
	AssetID        string    `json:"asset_id"`
	Ledger         string    `json:"ledger"`
	Currency       string    `json:"currency"`
	Holder         string    `json:"holder_address"`
	Limit          string    `json:"limit"`
	Status         string    `json:"status"`
	InitiatedBy    string    `json:"initiated_by"`
	TxHash         string    `json:"tx_hash,omitempty"`
	External       bool      `json:"external"`
	ExternalSource string    `json:"external_source,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// HolderErrorResponse is one per-holder failure from a reconciliation pass.
type HolderErrorResponse struct {
	Holder string `json:"holder_address,omitempty"`
	Error  string `json:"error"`
}

// ResultResponse is the HTTP shape of one reconciliation pass.
type ResultResponse struct {
	AssetID  string                   `json:"asset_id"`
	Appended []*AuthorizationResponse `json:"appended"`
	Errors   []HolderErrorResponse    `json:"errors"`
	// FailureReason is set when the whole pass failed.
	FailureReason string `json:"failure_reason,omitempty"`
}

// FromAuthorization converts a domain row to its HTTP shape.
func FromAuthorization(row *authorization.Authorization) *AuthorizationResponse {
	return &AuthorizationResponse{
		ID:             row.ID.String(),
		AssetID:        row.AssetID.String(),
		Ledger:         row.Ledger.String(),
		Currency:       row.Currency,
		Holder:         row.Holder.String(),
		Limit:          row.Limit,
		Status:         string(row.Status),
		InitiatedBy:    string(row.InitiatedBy),
		TxHash:         row.TxHash,
		External:       row.External,
		ExternalSource: row.ExternalSource,
		CreatedAt:      row.CreatedAt,
	}
}

// FromAuthorizations converts a slice of rows, preserving order.
func FromAuthorizations(rows []*authorization.Authorization) []*AuthorizationResponse {
	out := make([]*AuthorizationResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromAuthorization(row))
	}
	return out
}

// FromResult converts a reconciliation result to its HTTP shape.
func FromResult(res *authorization.Result) *ResultResponse {
	resp := &ResultResponse{
		AssetID:  res.AssetID.String(),
		Appended: FromAuthorizations(res.Appended),
		Errors:   make([]HolderErrorResponse, 0, len(res.Errors)),
	}
	for _, he := range res.Errors {
		resp.Errors = append(resp.Errors, HolderErrorResponse{
			Holder: he.Holder.String(),
			Error:  he.Err.Error(),
		})
	}
	if res.Err != nil {
		resp.FailureReason = res.Err.Error()
	}
	return resp
}

func sortBySeq(rows []*authorization.Authorization) []*authorization.Authorization {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })
	return rows
}
