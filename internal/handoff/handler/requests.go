package handler

import (
	"strings"

	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

// CreateRequest is the HTTP request body for POST
// /assets/{assetID}/authorization-requests.
type CreateRequest struct {
	HolderAddress string `json:"holder_address"`
	Limit         string `json:"limit"`

	parsedHolder id.HolderAddress
}

// Validate validates and parses the request.
func (r *CreateRequest) Validate() error {
	holder, err := id.ParseHolderAddress(r.HolderAddress)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid holder_address")
	}
	r.parsedHolder = holder

	r.Limit = strings.TrimSpace(r.Limit)
	if r.Limit == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "limit is required")
	}
	return nil
}

// ParsedHolder returns the validated holder address.
func (r *CreateRequest) ParsedHolder() id.HolderAddress {
	return r.parsedHolder
}

// CompleteRequest is the HTTP request body for POST
// /authorize/{token}/complete.
type CompleteRequest struct {
	TxHash string `json:"tx_hash"`
}

// Validate checks the request.
func (r *CompleteRequest) Validate() error {
	r.TxHash = strings.TrimSpace(r.TxHash)
	if r.TxHash == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "tx_hash is required")
	}
	return nil
}
