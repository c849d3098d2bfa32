// Package postgres persists authorization rows. The authorizations table is
// append-only with a bigserial seq column; "current state" queries pick the
// highest seq per holder, which also breaks created_at ties within one
// reconciliation pass.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mintgate/internal/authorization"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
	txcontext "mintgate/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbHandle interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) handle(ctx context.Context) dbHandle {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const authColumns = `
	id, tenant_id, asset_id, ledger, currency, holder_address, lim, status,
	initiated_by, tx_hash, external, external_source, created_at, seq`

func (s *Store) Append(ctx context.Context, auth *authorization.Authorization) error {
	err := s.handle(ctx).QueryRowContext(ctx, `
		INSERT INTO authorizations
			(id, tenant_id, asset_id, ledger, currency, holder_address, lim,
			 status, initiated_by, tx_hash, external, external_source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING seq`,
		auth.ID.String(), auth.TenantID.String(), auth.AssetID.String(),
		auth.Ledger.String(), auth.Currency, auth.Holder.String(), auth.Limit,
		string(auth.Status), string(auth.InitiatedBy), auth.TxHash,
		auth.External, auth.ExternalSource, auth.CreatedAt,
	).Scan(&auth.Seq)
	if err != nil {
		return fmt.Errorf("append authorization: %w", err)
	}
	return nil
}

func (s *Store) LatestByAsset(ctx context.Context, assetID id.AssetID) (map[id.HolderAddress]*authorization.Authorization, error) {
	rows, err := s.handle(ctx).QueryContext(ctx, `
		SELECT DISTINCT ON (holder_address) `+authColumns+`
		FROM authorizations
		WHERE asset_id = $1
		ORDER BY holder_address, seq DESC`,
		assetID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("latest authorizations by asset: %w", err)
	}
	defer rows.Close()

	latest := make(map[id.HolderAddress]*authorization.Authorization)
	for rows.Next() {
		auth, err := scanAuthorization(rows)
		if err != nil {
			return nil, err
		}
		latest[auth.Holder] = auth
	}
	return latest, rows.Err()
}

func (s *Store) LatestForHolder(ctx context.Context, assetID id.AssetID, holder id.HolderAddress) (*authorization.Authorization, error) {
	row := s.handle(ctx).QueryRowContext(ctx, `
		SELECT `+authColumns+`
		FROM authorizations
		WHERE asset_id = $1 AND holder_address = $2
		ORDER BY seq DESC
		LIMIT 1`,
		assetID.String(), holder.String(),
	)
	return scanAuthorization(row)
}

func (s *Store) ListByHolder(ctx context.Context, assetID id.AssetID, holder id.HolderAddress) ([]*authorization.Authorization, error) {
	rows, err := s.handle(ctx).QueryContext(ctx, `
		SELECT `+authColumns+`
		FROM authorizations
		WHERE asset_id = $1 AND holder_address = $2
		ORDER BY seq ASC`,
		assetID.String(), holder.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list authorizations: %w", err)
	}
	defer rows.Close()

	var out []*authorization.Authorization
	for rows.Next() {
		auth, err := scanAuthorization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, auth)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAuthorization(row scanner) (*authorization.Authorization, error) {
	var (
		auth        authorization.Authorization
		rawID       string
		rawTenant   string
		rawAsset    string
		rawLedger   string
		rawHolder   string
		rawStatus   string
		rawInitiate string
	)
	err := row.Scan(&rawID, &rawTenant, &rawAsset, &rawLedger, &auth.Currency,
		&rawHolder, &auth.Limit, &rawStatus, &rawInitiate, &auth.TxHash,
		&auth.External, &auth.ExternalSource, &auth.CreatedAt, &auth.Seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan authorization: %w", err)
	}

	u, err := id.ParseAssetID(rawAsset)
	if err != nil {
		return nil, fmt.Errorf("scan authorization: %w", err)
	}
	auth.AssetID = u
	if auth.TenantID, err = id.ParseTenantID(rawTenant); err != nil {
		return nil, fmt.Errorf("scan authorization: %w", err)
	}
	if auth.ID, err = id.ParseAuthorizationID(rawID); err != nil {
		return nil, fmt.Errorf("scan authorization: %w", err)
	}
	if auth.Ledger, err = id.ParseLedgerKind(rawLedger); err != nil {
		return nil, fmt.Errorf("scan authorization: %w", err)
	}
	if auth.Holder, err = id.ParseHolderAddress(rawHolder); err != nil {
		return nil, fmt.Errorf("scan authorization: %w", err)
	}
	if auth.Status, err = authorization.ParseStatus(rawStatus); err != nil {
		return nil, fmt.Errorf("scan authorization: %w", err)
	}
	if auth.InitiatedBy, err = authorization.ParseInitiatedBy(rawInitiate); err != nil {
		return nil, fmt.Errorf("scan authorization: %w", err)
	}
	return &auth, nil
}
