package handler

import (
	dErrors "mintgate/pkg/domain-errors"
)

// CreateRequest is the body of POST /tenants.
type CreateRequest struct {
	Name string `json:"name"`
}

func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	return nil
}
