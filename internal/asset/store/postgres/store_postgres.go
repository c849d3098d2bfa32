// Package postgres persists the asset context table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mintgate/internal/asset"
	"mintgate/internal/platform/postgres"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const assetColumns = `
	id, tenant_id, product_id, organization_id, name, ledger, currency,
	issuing_address, status`

func (s *Store) GetByID(ctx context.Context, assetID id.AssetID) (*asset.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE id = $1`,
		assetID.String(),
	)
	return scanAsset(row)
}

func (s *Store) ListActive(ctx context.Context) ([]*asset.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE status = $1
		ORDER BY id ASC`,
		string(asset.StatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("list active assets: %w", err)
	}
	defer rows.Close()

	var assets []*asset.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *Store) Create(ctx context.Context, a *asset.Asset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID.String(), a.TenantID.String(), a.ProductID, a.OrganizationID,
		a.Name, a.Ledger.String(), a.Currency, a.IssuingAddress, string(a.Status),
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, assetID id.AssetID, status asset.Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE assets SET status = $2 WHERE id = $1`,
		assetID.String(), string(status),
	)
	if err != nil {
		return fmt.Errorf("update asset status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update asset status: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (*asset.Asset, error) {
	var (
		a         asset.Asset
		rawID     string
		rawTenant string
		rawLedger string
		rawStatus string
	)
	err := row.Scan(&rawID, &rawTenant, &a.ProductID, &a.OrganizationID,
		&a.Name, &rawLedger, &a.Currency, &a.IssuingAddress, &rawStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	if a.ID, err = id.ParseAssetID(rawID); err != nil {
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	if a.TenantID, err = id.ParseTenantID(rawTenant); err != nil {
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	if a.Ledger, err = id.ParseLedgerKind(rawLedger); err != nil {
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	if a.Status, err = asset.ParseStatus(rawStatus); err != nil {
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	return &a, nil
}
