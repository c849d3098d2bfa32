// Package postgres persists authorization requests.
//
// Schema expectations: an authorization_requests table with a unique index
// on token_hash and a partial unique index on (asset_id, holder_address)
// WHERE status = 'INVITED', enforcing at most one open invitation per
// holder per asset.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mintgate/internal/handoff"
	"mintgate/internal/platform/postgres"
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
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) handle(ctx context.Context) dbHandle {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const requestColumns = `
	id, tenant_id, asset_id, holder_address, lim, status, token_hash,
	expires_at, created_at, consumed_at, tx_hash`

func (s *Store) Create(ctx context.Context, req *handoff.AuthorizationRequest) error {
	_, err := s.handle(ctx).ExecContext(ctx, `
		INSERT INTO authorization_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.ID.String(), req.TenantID.String(), req.AssetID.String(),
		req.Holder.String(), req.Limit, string(req.Status), req.TokenHash,
		req.ExpiresAt, req.CreatedAt, req.ConsumedAt, req.TxHash,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create authorization request: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, requestID id.RequestID) (*handoff.AuthorizationRequest, error) {
	row := s.handle(ctx).QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM authorization_requests
		WHERE id = $1`,
		requestID.String(),
	)
	return scanRequest(row)
}

func (s *Store) GetByTokenHash(ctx context.Context, tokenHash string) (*handoff.AuthorizationRequest, error) {
	row := s.handle(ctx).QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM authorization_requests
		WHERE token_hash = $1`,
		tokenHash,
	)
	return scanRequest(row)
}

// Consume is a compare-and-set on status: the WHERE clause only matches
// INVITED rows, so a second completion attempt updates nothing.
func (s *Store) Consume(ctx context.Context, requestID id.RequestID, txHash string, at time.Time) (*handoff.AuthorizationRequest, error) {
	row := s.handle(ctx).QueryRowContext(ctx, `
		UPDATE authorization_requests
		SET status = $1, tx_hash = $2, consumed_at = $3
		WHERE id = $4 AND status = $5
		RETURNING `+requestColumns,
		string(handoff.StatusConsumed), txHash, at,
		requestID.String(), string(handoff.StatusInvited),
	)
	req, err := scanRequest(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.consumeMiss(ctx, requestID)
	}
	return req, err
}

// consumeMiss distinguishes "no such request" from "already processed".
func (s *Store) consumeMiss(ctx context.Context, requestID id.RequestID) error {
	if _, err := s.GetByID(ctx, requestID); err != nil {
		return err
	}
	return sentinel.ErrInvalidState
}

func (s *Store) Cancel(ctx context.Context, requestID id.RequestID) (*handoff.AuthorizationRequest, error) {
	row := s.handle(ctx).QueryRowContext(ctx, `
		UPDATE authorization_requests
		SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING `+requestColumns,
		string(handoff.StatusCancelled), requestID.String(), string(handoff.StatusInvited),
	)
	req, err := scanRequest(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.consumeMiss(ctx, requestID)
	}
	return req, err
}

func (s *Store) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	res, err := s.handle(ctx).ExecContext(ctx, `
		UPDATE authorization_requests
		SET status = $1
		WHERE status = $2 AND expires_at <= $3`,
		string(handoff.StatusExpired), string(handoff.StatusInvited), now,
	)
	if err != nil {
		return 0, fmt.Errorf("expire stale authorization requests: %w", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire stale authorization requests: %w", err)
	}
	return int(changed), nil
}

func (s *Store) ListByAsset(ctx context.Context, assetID id.AssetID) ([]*handoff.AuthorizationRequest, error) {
	rows, err := s.handle(ctx).QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM authorization_requests
		WHERE asset_id = $1
		ORDER BY created_at DESC, id DESC`,
		assetID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list authorization requests: %w", err)
	}
	defer rows.Close()

	var out []*handoff.AuthorizationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*handoff.AuthorizationRequest, error) {
	var (
		req       handoff.AuthorizationRequest
		rawID     string
		rawTenant string
		rawAsset  string
		rawHolder string
		rawStatus string
		txHash    sql.NullString
	)
	err := row.Scan(&rawID, &rawTenant, &rawAsset, &rawHolder, &req.Limit,
		&rawStatus, &req.TokenHash, &req.ExpiresAt, &req.CreatedAt,
		&req.ConsumedAt, &txHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan authorization request: %w", err)
	}
	req.TxHash = txHash.String

	if req.ID, err = id.ParseRequestID(rawID); err != nil {
		return nil, fmt.Errorf("scan authorization request: %w", err)
	}
	if req.TenantID, err = id.ParseTenantID(rawTenant); err != nil {
		return nil, fmt.Errorf("scan authorization request: %w", err)
	}
	if req.AssetID, err = id.ParseAssetID(rawAsset); err != nil {
		return nil, fmt.Errorf("scan authorization request: %w", err)
	}
	if req.Holder, err = id.ParseHolderAddress(rawHolder); err != nil {
		return nil, fmt.Errorf("scan authorization request: %w", err)
	}
	if req.Status, err = handoff.ParseRequestStatus(rawStatus); err != nil {
		return nil, fmt.Errorf("scan authorization request: %w", err)
	}
	return &req, nil
}
