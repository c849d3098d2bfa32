package handler

import (
	"time"

	"mintgate/internal/asset"
	"mintgate/internal/handoff"
)

// RequestResponse is the HTTP shape of one authorization request. The token
// hash stays internal; only creation returns the link.
type RequestResponse struct {
	ID            string     `json:"id"`
	AssetID       string     `json:"asset_id"`
	HolderAddress string     `json:"holder_address"`
	Limit         string     `json:"limit"`
	Status        string     `json:"status"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CreatedAt     time.Time  `json:"created_at"`
	ConsumedAt    *time.Time `json:"consumed_at,omitempty"`
	TxHash        string     `json:"tx_hash,omitempty"`
	// Link is only present on creation. It embeds the raw token and is
	// never recoverable afterwards.
	Link string `json:"link,omitempty"`
}

// FromRequest converts a domain request to its HTTP shape.
func FromRequest(req *handoff.AuthorizationRequest) *RequestResponse {
	return &RequestResponse{
		ID:            req.ID.String(),
		AssetID:       req.AssetID.String(),
		HolderAddress: req.Holder.String(),
		Limit:         req.Limit,
		Status:        string(req.Status),
		ExpiresAt:     req.ExpiresAt,
		CreatedAt:     req.CreatedAt,
		ConsumedAt:    req.ConsumedAt,
		TxHash:        req.TxHash,
	}
}

// FromRequestWithLink is FromRequest plus the one-time link.
func FromRequestWithLink(req *handoff.AuthorizationRequest, link string) *RequestResponse {
	resp := FromRequest(req)
	resp.Link = link
	return resp
}

// DescribeResponse is the page data behind GET /authorize/{token}.
type DescribeResponse struct {
	HolderAddress  string    `json:"holder_address"`
	Limit          string    `json:"limit"`
	ExpiresAt      time.Time `json:"expires_at"`
	AssetName      string    `json:"asset_name"`
	Ledger         string    `json:"ledger"`
	Currency       string    `json:"currency"`
	IssuingAddress string    `json:"issuing_address"`
}

// FromDescription joins the request with its asset context.
func FromDescription(req *handoff.AuthorizationRequest, a *asset.Asset) *DescribeResponse {
	return &DescribeResponse{
		HolderAddress:  req.Holder.String(),
		Limit:          req.Limit,
		ExpiresAt:      req.ExpiresAt,
		AssetName:      a.Name,
		Ledger:         a.Ledger.String(),
		Currency:       a.Currency,
		IssuingAddress: a.IssuingAddress,
	}
}

// CompletionResponse is the HTTP shape of a completed handoff.
type CompletionResponse struct {
	RequestID       string `json:"request_id"`
	AuthorizationID string `json:"authorization_id"`
	TxHash          string `json:"tx_hash"`
	Duplicate       bool   `json:"duplicate"`
}

// FromCompletion converts a completion result to its HTTP shape.
func FromCompletion(result *handoff.CompletionResult, duplicate bool) *CompletionResponse {
	return &CompletionResponse{
		RequestID:       result.RequestID.String(),
		AuthorizationID: result.AuthorizationID.String(),
		TxHash:          result.TxHash,
		Duplicate:       duplicate,
	}
}
