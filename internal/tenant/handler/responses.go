package handler

import (
	"time"

	"mintgate/internal/tenant"
)

// CreateResponse is returned from POST /tenants. APIKeySecret is shown once
// and never again.
type CreateResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	APIKeyID     string    `json:"api_key_id"`
	APIKeySecret string    `json:"api_key_secret"`
	CreatedAt    time.Time `json:"created_at"`
}

func FromTenant(t *tenant.Tenant, creds *tenant.Credentials) *CreateResponse {
	return &CreateResponse{
		ID:           t.ID.String(),
		Name:         t.Name,
		Status:       string(t.Status),
		APIKeyID:     creds.APIKeyID,
		APIKeySecret: creds.Secret,
		CreatedAt:    t.CreatedAt,
	}
}
