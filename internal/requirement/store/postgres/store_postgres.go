// Package postgres persists requirement instances.
//
// Schema expectations: a requirement_instances table with a partial unique
// index on (asset_id, template_id) WHERE issuance_id IS NULL, enforcing the
// at-most-one-live-instance invariant in the database as well as in code.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"mintgate/internal/platform/postgres"
	"mintgate/internal/requirement"
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

const instanceColumns = `
	id, tenant_id, asset_id, template_id, issuance_id, status, rationale,
	evidence_refs, exception_reason, verifier_id, verified_at,
	platform_acknowledged, platform_ack_by, platform_ack_at, platform_ack_reason,
	created_at, updated_at`

func (s *Store) CreateLive(ctx context.Context, inst *requirement.Instance) error {
	if !inst.IsLive() {
		return sentinel.ErrInvalidState
	}
	if err := s.insert(ctx, inst); err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create live requirement instance: %w", err)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, inst *requirement.Instance) error {
	var issuanceID any
	if inst.IssuanceID != nil {
		issuanceID = inst.IssuanceID.String()
	}
	evidenceRefs, err := json.Marshal(inst.EvidenceRefs)
	if err != nil {
		return fmt.Errorf("encode evidence refs: %w", err)
	}
	_, err = s.handle(ctx).ExecContext(ctx, `
		INSERT INTO requirement_instances (`+instanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		inst.ID.String(), inst.TenantID.String(), inst.AssetID.String(),
		inst.TemplateID.String(), issuanceID, string(inst.Status), inst.Rationale,
		evidenceRefs, inst.ExceptionReason, inst.VerifierID, inst.VerifiedAt,
		inst.PlatformAcknowledged, inst.PlatformAckBy, inst.PlatformAckAt,
		inst.PlatformAckReason, inst.CreatedAt, inst.UpdatedAt,
	)
	return err
}

func (s *Store) GetLive(ctx context.Context, assetID id.AssetID, templateID id.TemplateID) (*requirement.Instance, error) {
	row := s.handle(ctx).QueryRowContext(ctx, `
		SELECT `+instanceColumns+`
		FROM requirement_instances
		WHERE asset_id = $1 AND template_id = $2 AND issuance_id IS NULL`,
		assetID.String(), templateID.String(),
	)
	return scanInstance(row)
}

func (s *Store) GetByID(ctx context.Context, instanceID id.InstanceID) (*requirement.Instance, error) {
	row := s.handle(ctx).QueryRowContext(ctx, `
		SELECT `+instanceColumns+`
		FROM requirement_instances
		WHERE id = $1`,
		instanceID.String(),
	)
	return scanInstance(row)
}

func (s *Store) ListLiveByAsset(ctx context.Context, assetID id.AssetID) ([]*requirement.Instance, error) {
	return s.list(ctx, `
		SELECT `+instanceColumns+`
		FROM requirement_instances
		WHERE asset_id = $1 AND issuance_id IS NULL
		ORDER BY created_at ASC, id ASC`,
		assetID.String())
}

func (s *Store) ListByIssuance(ctx context.Context, issuanceID id.IssuanceID) ([]*requirement.Instance, error) {
	return s.list(ctx, `
		SELECT `+instanceColumns+`
		FROM requirement_instances
		WHERE issuance_id = $1
		ORDER BY created_at ASC, id ASC`,
		issuanceID.String())
}

func (s *Store) UpdateLive(ctx context.Context, inst *requirement.Instance) error {
	if !inst.IsLive() {
		return sentinel.ErrInvalidState
	}
	evidenceRefs, err := json.Marshal(inst.EvidenceRefs)
	if err != nil {
		return fmt.Errorf("encode evidence refs: %w", err)
	}
	// The issuance_id IS NULL guard makes snapshots write-once at the query
	// level: an update aimed at a frozen row matches nothing.
	res, err := s.handle(ctx).ExecContext(ctx, `
		UPDATE requirement_instances
		SET status = $2, rationale = $3, evidence_refs = $4, exception_reason = $5,
		    verifier_id = $6, verified_at = $7, platform_acknowledged = $8,
		    platform_ack_by = $9, platform_ack_at = $10, platform_ack_reason = $11,
		    updated_at = $12
		WHERE id = $1 AND issuance_id IS NULL`,
		inst.ID.String(), string(inst.Status), inst.Rationale, evidenceRefs,
		inst.ExceptionReason, inst.VerifierID, inst.VerifiedAt,
		inst.PlatformAcknowledged, inst.PlatformAckBy, inst.PlatformAckAt,
		inst.PlatformAckReason, inst.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update requirement instance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update requirement instance: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) CreateSnapshotBatch(ctx context.Context, snapshots []*requirement.Instance) error {
	for _, snap := range snapshots {
		if snap.IsLive() {
			return sentinel.ErrInvalidState
		}
		if err := s.insert(ctx, snap); err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("create snapshot row: %w", err)
		}
	}
	return nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*requirement.Instance, error) {
	rows, err := s.handle(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requirement instances: %w", err)
	}
	defer rows.Close()

	var instances []*requirement.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstance(row scanner) (*requirement.Instance, error) {
	var (
		inst          requirement.Instance
		instID        string
		tenantID      string
		assetID       string
		templateID    string
		issuanceID    sql.NullString
		status        string
		evidenceRefs  []byte
		verifiedAt    sql.NullTime
		platformAckAt sql.NullTime
	)
	err := row.Scan(
		&instID, &tenantID, &assetID, &templateID, &issuanceID, &status,
		&inst.Rationale, &evidenceRefs, &inst.ExceptionReason,
		&inst.VerifierID, &verifiedAt, &inst.PlatformAcknowledged,
		&inst.PlatformAckBy, &platformAckAt, &inst.PlatformAckReason,
		&inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan requirement instance: %w", err)
	}
	if len(evidenceRefs) > 0 {
		if err := json.Unmarshal(evidenceRefs, &inst.EvidenceRefs); err != nil {
			return nil, fmt.Errorf("decode evidence refs: %w", err)
		}
	}

	if inst.ID, err = parseInstanceID(instID); err != nil {
		return nil, err
	}
	if inst.TenantID, err = id.ParseTenantID(tenantID); err != nil {
		return nil, fmt.Errorf("scan requirement instance: %w", err)
	}
	if inst.AssetID, err = id.ParseAssetID(assetID); err != nil {
		return nil, fmt.Errorf("scan requirement instance: %w", err)
	}
	if inst.TemplateID, err = id.ParseTemplateID(templateID); err != nil {
		return nil, fmt.Errorf("scan requirement instance: %w", err)
	}
	if issuanceID.Valid {
		iss, err := id.ParseIssuanceID(issuanceID.String)
		if err != nil {
			return nil, fmt.Errorf("scan requirement instance: %w", err)
		}
		inst.IssuanceID = &iss
	}
	if inst.Status, err = requirement.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("scan requirement instance: %w", err)
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		inst.VerifiedAt = &t
	}
	if platformAckAt.Valid {
		t := platformAckAt.Time
		inst.PlatformAckAt = &t
	}
	return &inst, nil
}

func parseInstanceID(s string) (id.InstanceID, error) {
	instID, err := id.ParseInstanceID(s)
	if err != nil {
		return id.InstanceID{}, fmt.Errorf("scan requirement instance: %w", err)
	}
	return instID, nil
}
