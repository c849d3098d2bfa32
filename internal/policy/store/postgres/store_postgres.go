// Package postgres persists regimes and requirement templates. Templates are
// reference data: inserts only, no updates or deletes, so historical
// evaluations stay reproducible.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mintgate/internal/platform/postgres"
	"mintgate/internal/policy"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListEffectiveTemplates(ctx context.Context, at time.Time) ([]*policy.RequirementTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, regime_id, name, description, applicability_expr,
		       data_points, enforcement_hints, version, effective_from, effective_to
		FROM requirement_templates
		WHERE effective_from <= $1
		  AND (effective_to IS NULL OR effective_to > $1)
		ORDER BY name ASC, id ASC`,
		at,
	)
	if err != nil {
		return nil, fmt.Errorf("list effective templates: %w", err)
	}
	defer rows.Close()

	var templates []*policy.RequirementTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

func (s *Store) GetTemplate(ctx context.Context, templateID id.TemplateID) (*policy.RequirementTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, regime_id, name, description, applicability_expr,
		       data_points, enforcement_hints, version, effective_from, effective_to
		FROM requirement_templates
		WHERE id = $1`,
		templateID.String(),
	)
	return scanTemplate(row)
}

func (s *Store) GetRegime(ctx context.Context, regimeID id.RegimeID) (*policy.Regime, error) {
	var (
		regime      policy.Regime
		rawID       string
		effectiveTo sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, version, effective_from, effective_to
		FROM regimes
		WHERE id = $1`,
		regimeID.String(),
	).Scan(&rawID, &regime.Name, &regime.Version, &regime.EffectiveFrom, &effectiveTo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get regime: %w", err)
	}
	regime.ID = regimeID
	if effectiveTo.Valid {
		t := effectiveTo.Time
		regime.EffectiveTo = &t
	}
	return &regime, nil
}

func (s *Store) CreateRegime(ctx context.Context, regime *policy.Regime) error {
	var effectiveTo any
	if regime.EffectiveTo != nil {
		effectiveTo = *regime.EffectiveTo
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO regimes (id, name, version, effective_from, effective_to)
		VALUES ($1, $2, $3, $4, $5)`,
		regime.ID.String(), regime.Name, regime.Version, regime.EffectiveFrom, effectiveTo,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create regime: %w", err)
	}
	return nil
}

func (s *Store) CreateTemplate(ctx context.Context, template *policy.RequirementTemplate) error {
	dataPoints, err := json.Marshal(template.DataPoints)
	if err != nil {
		return fmt.Errorf("encode data points: %w", err)
	}
	hints, err := json.Marshal(template.EnforcementHints)
	if err != nil {
		return fmt.Errorf("encode enforcement hints: %w", err)
	}
	var effectiveTo any
	if template.EffectiveTo != nil {
		effectiveTo = *template.EffectiveTo
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO requirement_templates
			(id, regime_id, name, description, applicability_expr,
			 data_points, enforcement_hints, version, effective_from, effective_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		template.ID.String(), template.RegimeID.String(), template.Name,
		template.Description, template.ApplicabilityExpr, dataPoints, hints,
		template.Version, template.EffectiveFrom, effectiveTo,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (*policy.RequirementTemplate, error) {
	var (
		tpl         policy.RequirementTemplate
		rawID       string
		rawRegimeID string
		dataPoints  []byte
		hints       []byte
		effectiveTo sql.NullTime
	)
	err := row.Scan(&rawID, &rawRegimeID, &tpl.Name, &tpl.Description,
		&tpl.ApplicabilityExpr, &dataPoints, &hints, &tpl.Version,
		&tpl.EffectiveFrom, &effectiveTo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan template: %w", err)
	}

	templateID, err := id.ParseTemplateID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	tpl.ID = templateID
	regimeID, err := id.ParseRegimeID(rawRegimeID)
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	tpl.RegimeID = regimeID
	if len(dataPoints) > 0 {
		if err := json.Unmarshal(dataPoints, &tpl.DataPoints); err != nil {
			return nil, fmt.Errorf("decode data points: %w", err)
		}
	}
	if len(hints) > 0 {
		if err := json.Unmarshal(hints, &tpl.EnforcementHints); err != nil {
			return nil, fmt.Errorf("decode enforcement hints: %w", err)
		}
	}
	if effectiveTo.Valid {
		t := effectiveTo.Time
		tpl.EffectiveTo = &t
	}
	return &tpl, nil
}
