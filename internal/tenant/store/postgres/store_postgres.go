// Package postgres persists tenants and their API key credentials.
//
// Expected schema:
//
//	CREATE TABLE tenants (
//	    id           UUID PRIMARY KEY,
//	    name         TEXT NOT NULL,
//	    api_key_id   TEXT NOT NULL UNIQUE,
//	    api_key_hash BYTEA NOT NULL,
//	    status       TEXT NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL
//	);
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mintgate/internal/platform/postgres"
	"mintgate/internal/tenant"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const tenantColumns = `
	id, name, api_key_id, api_key_hash, status, created_at`

func (s *Store) Create(ctx context.Context, t *tenant.Tenant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID.String(), t.Name, t.APIKeyID, t.APIKeyHash, string(t.Status), t.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE id = $1`,
		tenantID.String(),
	)
	return scanTenant(row)
}

func (s *Store) GetByAPIKeyID(ctx context.Context, apiKeyID string) (*tenant.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE api_key_id = $1`,
		apiKeyID,
	)
	return scanTenant(row)
}

func (s *Store) UpdateStatus(ctx context.Context, tenantID id.TenantID, status tenant.Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tenants SET status = $2 WHERE id = $1`,
		tenantID.String(), string(status),
	)
	if err != nil {
		return fmt.Errorf("update tenant status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant status: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(row scanner) (*tenant.Tenant, error) {
	var (
		t         tenant.Tenant
		rawID     string
		rawStatus string
	)
	err := row.Scan(&rawID, &t.Name, &t.APIKeyID, &t.APIKeyHash, &rawStatus, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	if t.ID, err = id.ParseTenantID(rawID); err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	if t.Status, err = tenant.ParseStatus(rawStatus); err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	return &t, nil
}
