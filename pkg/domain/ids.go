// Package domain defines the typed identifiers shared across mintgate.
//
// IDs are uuid-backed and constructed via Parse* at trust boundaries so that
// malformed input is rejected before it reaches services. Direct casting of a
// uuid.UUID bypasses validation and is reserved for internal construction.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// TenantID identifies the organization a request acts on behalf of.
type TenantID uuid.UUID

// AssetID identifies one regulated digital asset.
type AssetID uuid.UUID

// IssuanceID identifies one issuance event of an asset.
type IssuanceID uuid.UUID

// RegimeID identifies a versioned regulatory framework.
type RegimeID uuid.UUID

// TemplateID identifies a requirement template lineage.
type TemplateID uuid.UUID

// InstanceID identifies one evaluated requirement instance.
type InstanceID uuid.UUID

// AuthorizationID identifies one authorization event row.
type AuthorizationID uuid.UUID

// RequestID identifies one single-use authorization request.
type RequestID uuid.UUID

func (id TenantID) String() string        { return uuid.UUID(id).String() }
func (id AssetID) String() string         { return uuid.UUID(id).String() }
func (id IssuanceID) String() string      { return uuid.UUID(id).String() }
func (id RegimeID) String() string        { return uuid.UUID(id).String() }
func (id TemplateID) String() string      { return uuid.UUID(id).String() }
func (id InstanceID) String() string      { return uuid.UUID(id).String() }
func (id AuthorizationID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string       { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id AssetID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id IssuanceID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id RegimeID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id TemplateID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id InstanceID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AuthorizationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }

// Defined types do not inherit uuid.UUID's marshaling, so each ID carries
// its own text codec; without these, encoding/json emits raw byte arrays.

func (id TenantID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id AssetID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id IssuanceID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id RegimeID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id TemplateID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id InstanceID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id AuthorizationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id RequestID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }

func (id *TenantID) UnmarshalText(b []byte) error {
	parsed, err := ParseTenantID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AssetID) UnmarshalText(b []byte) error {
	parsed, err := ParseAssetID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *IssuanceID) UnmarshalText(b []byte) error {
	parsed, err := ParseIssuanceID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RegimeID) UnmarshalText(b []byte) error {
	parsed, err := ParseRegimeID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TemplateID) UnmarshalText(b []byte) error {
	parsed, err := ParseTemplateID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *InstanceID) UnmarshalText(b []byte) error {
	parsed, err := ParseInstanceID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AuthorizationID) UnmarshalText(b []byte) error {
	parsed, err := ParseAuthorizationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RequestID) UnmarshalText(b []byte) error {
	parsed, err := ParseRequestID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewTenantID returns a fresh random tenant ID.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

// NewAssetID returns a fresh random asset ID.
func NewAssetID() AssetID { return AssetID(uuid.New()) }

// NewIssuanceID returns a fresh random issuance ID.
func NewIssuanceID() IssuanceID { return IssuanceID(uuid.New()) }

// NewRegimeID returns a fresh random regime ID.
func NewRegimeID() RegimeID { return RegimeID(uuid.New()) }

// NewTemplateID returns a fresh random template ID.
func NewTemplateID() TemplateID { return TemplateID(uuid.New()) }

// NewInstanceID returns a fresh random requirement instance ID.
func NewInstanceID() InstanceID { return InstanceID(uuid.New()) }

// NewAuthorizationID returns a fresh random authorization row ID.
func NewAuthorizationID() AuthorizationID { return AuthorizationID(uuid.New()) }

// NewRequestID returns a fresh random authorization request ID.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// ParseTenantID validates and returns a TenantID.
func ParseTenantID(s string) (TenantID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TenantID{}, fmt.Errorf("invalid tenant id: %w", err)
	}
	return TenantID(u), nil
}

// ParseAssetID validates and returns an AssetID.
func ParseAssetID(s string) (AssetID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AssetID{}, fmt.Errorf("invalid asset id: %w", err)
	}
	return AssetID(u), nil
}

// ParseIssuanceID validates and returns an IssuanceID.
func ParseIssuanceID(s string) (IssuanceID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return IssuanceID{}, fmt.Errorf("invalid issuance id: %w", err)
	}
	return IssuanceID(u), nil
}

// ParseRegimeID validates and returns a RegimeID.
func ParseRegimeID(s string) (RegimeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RegimeID{}, fmt.Errorf("invalid regime id: %w", err)
	}
	return RegimeID(u), nil
}

// ParseTemplateID validates and returns a TemplateID.
func ParseTemplateID(s string) (TemplateID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TemplateID{}, fmt.Errorf("invalid template id: %w", err)
	}
	return TemplateID(u), nil
}

// ParseInstanceID validates and returns an InstanceID.
func ParseInstanceID(s string) (InstanceID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return InstanceID{}, fmt.Errorf("invalid requirement instance id: %w", err)
	}
	return InstanceID(u), nil
}

// ParseAuthorizationID validates and returns an AuthorizationID.
func ParseAuthorizationID(s string) (AuthorizationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AuthorizationID{}, fmt.Errorf("invalid authorization id: %w", err)
	}
	return AuthorizationID(u), nil
}

// ParseRequestID validates and returns a RequestID.
func ParseRequestID(s string) (RequestID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RequestID{}, fmt.Errorf("invalid authorization request id: %w", err)
	}
	return RequestID(u), nil
}
