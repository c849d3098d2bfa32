package tenant

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/requestcontext"
	"mintgate/pkg/platform/sentinel"
)

type serviceConfig struct {
	logger *slog.Logger
	cost   int
}

// Option configures the Service.
type Option func(*serviceConfig)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = logger }
}

// WithBcryptCost overrides the hashing cost, mainly for tests.
func WithBcryptCost(cost int) Option {
	return func(c *serviceConfig) { c.cost = cost }
}

// Service manages tenants and authenticates their API keys.
type Service struct {
	store  Store
	logger *slog.Logger
	cost   int
}

// NewService returns a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	cfg := serviceConfig{
		logger: slog.Default(),
		cost:   bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Service{store: store, logger: cfg.logger, cost: cfg.cost}
}

// Credentials is the one-time view of a freshly minted API key. The secret
// is not recoverable afterwards.
type Credentials struct {
	APIKeyID string
	Secret   string
}

// Create registers a new tenant and mints its API key.
func (s *Service) Create(ctx context.Context, name string) (*Tenant, *Credentials, error) {
	if name == "" {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "tenant name is required")
	}

	keyID, secret, err := newAPIKey()
	if err != nil {
		return nil, nil, fmt.Errorf("generating api key: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return nil, nil, fmt.Errorf("hashing api key: %w", err)
	}

	t := &Tenant{
		ID:         id.NewTenantID(),
		Name:       name,
		APIKeyID:   keyID,
		APIKeyHash: hash,
		Status:     StatusActive,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, t); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, nil, dErrors.Newf(dErrors.CodeConflict, "tenant already exists: %s", name)
		}
		return nil, nil, fmt.Errorf("creating tenant: %w", err)
	}

	s.logger.InfoContext(ctx, "tenant created",
		"tenant_id", t.ID,
		"name", t.Name,
		"api_key_id", t.APIKeyID,
	)
	return t, &Credentials{APIKeyID: keyID, Secret: secret}, nil
}

// Authenticate resolves an API key pair to its tenant. Unknown key IDs and
// wrong secrets both come back as CodeUnauthorized so callers cannot probe
// which key IDs exist.
func (s *Service) Authenticate(ctx context.Context, apiKeyID, secret string) (*Tenant, error) {
	t, err := s.store.GetByAPIKeyID(ctx, apiKeyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid api credentials")
		}
		return nil, fmt.Errorf("looking up api key: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(t.APIKeyHash, []byte(secret)); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid api credentials")
	}
	if !t.Active() {
		return nil, dErrors.Newf(dErrors.CodeUnauthorized, "tenant is %s", t.Status)
	}
	return t, nil
}

// Suspend blocks all API access for the tenant.
func (s *Service) Suspend(ctx context.Context, tenantID id.TenantID) error {
	if err := s.store.UpdateStatus(ctx, tenantID, StatusSuspended); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "tenant not found: %s", tenantID)
		}
		return fmt.Errorf("suspending tenant: %w", err)
	}
	s.logger.InfoContext(ctx, "tenant suspended", "tenant_id", tenantID)
	return nil
}

// Reactivate restores API access for a suspended tenant.
func (s *Service) Reactivate(ctx context.Context, tenantID id.TenantID) error {
	if err := s.store.UpdateStatus(ctx, tenantID, StatusActive); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "tenant not found: %s", tenantID)
		}
		return fmt.Errorf("reactivating tenant: %w", err)
	}
	s.logger.InfoContext(ctx, "tenant reactivated", "tenant_id", tenantID)
	return nil
}

// newAPIKey mints a key ID and secret. The ID is short and indexable, the
// secret carries the entropy.
func newAPIKey() (keyID, secret string, err error) {
	buf := make([]byte, 40)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	keyID = "mg_" + base64.RawURLEncoding.EncodeToString(buf[:8])
	secret = base64.RawURLEncoding.EncodeToString(buf[8:])
	return keyID, secret, nil
}
