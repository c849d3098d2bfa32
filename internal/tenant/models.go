// Package tenant resolves API credentials to the issuing organization every
// request acts on behalf of. API key secrets are bcrypt-hashed; the plain
// secret exists only in the creation response.
package tenant

import (
	"time"

	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

// Status is the tenant lifecycle state.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// ParseStatus validates and returns a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusActive, StatusSuspended:
		return st, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown tenant status: %q", s)
}

// Tenant is one issuing organization.
type Tenant struct {
	ID   id.TenantID
	Name string
	// APIKeyID is the public half of the credential, sent in clear.
	APIKeyID string
	// APIKeyHash is the bcrypt hash of the secret half.
	APIKeyHash []byte
	Status     Status
	CreatedAt  time.Time
}

// Active reports whether the tenant may call the API.
func (t *Tenant) Active() bool { return t.Status == StatusActive }
