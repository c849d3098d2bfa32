package requirement

import (
	"context"
	"errors"
	"log/slog"

	reqmetrics "mintgate/internal/requirement/metrics"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	audit "mintgate/pkg/platform/audit"
	"mintgate/pkg/platform/sentinel"
	"mintgate/pkg/requestcontext"
)

// TxRunner runs a function inside one storage transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditPublisher is the fail-closed compliance audit sink.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the requirement instance lifecycle: verification actions on
// live instances, the issuance gate, and immutable per-issuance snapshots.
type Service struct {
	store   Store
	tx      TxRunner
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *reqmetrics.Metrics
}

type serviceConfig struct {
	tx      TxRunner
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *reqmetrics.Metrics
}

// Option configures the Service.
type Option func(*serviceConfig)

// WithTxRunner sets the transaction runner used for snapshot batches.
func WithTxRunner(tx TxRunner) Option {
	return func(c *serviceConfig) { c.tx = tx }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = logger }
}

// WithAuditPublisher sets the fail-closed compliance audit publisher.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(c *serviceConfig) { c.auditor = p }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *reqmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

// NewService builds the requirement service.
func NewService(store Store, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = noopTx{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Service{
		store:   store,
		tx:      cfg.tx,
		logger:  cfg.logger,
		auditor: cfg.auditor,
		metrics: cfg.metrics,
	}
}

type noopTx struct{}

func (noopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ListLive returns the live requirement instances for an asset, oldest first.
func (s *Service) ListLive(ctx context.Context, assetID id.AssetID) ([]*Instance, error) {
	instances, err := s.store.ListLiveByAsset(ctx, assetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requirement instances")
	}
	return instances, nil
}

// MarkSatisfied records a successful verification on a live instance.
func (s *Service) MarkSatisfied(ctx context.Context, instanceID id.InstanceID, verifierID string, evidenceRefs []string) (*Instance, error) {
	return s.mutateLive(ctx, instanceID, "requirement_satisfied", func(inst *Instance) error {
		now := requestcontext.Now(ctx)
		inst.Status = StatusSatisfied
		inst.VerifierID = verifierID
		inst.VerifiedAt = &now
		if len(evidenceRefs) > 0 {
			inst.EvidenceRefs = append(inst.EvidenceRefs, evidenceRefs...)
		}
		return nil
	})
}

// RecordException records a documented exception on a live instance. The
// reason is mandatory: an exception without a reason is not auditable.
func (s *Service) RecordException(ctx context.Context, instanceID id.InstanceID, reason, verifierID string) (*Instance, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "exception reason is required")
	}
	return s.mutateLive(ctx, instanceID, "requirement_exception", func(inst *Instance) error {
		now := requestcontext.Now(ctx)
		inst.Status = StatusException
		inst.ExceptionReason = reason
		inst.VerifierID = verifierID
		inst.VerifiedAt = &now
		return nil
	})
}

// Acknowledge records the platform acknowledgement fields on a live instance.
func (s *Service) Acknowledge(ctx context.Context, instanceID id.InstanceID, by, reason string) (*Instance, error) {
	return s.mutateLive(ctx, instanceID, "requirement_acknowledged", func(inst *Instance) error {
		now := requestcontext.Now(ctx)
		inst.PlatformAcknowledged = true
		inst.PlatformAckBy = by
		inst.PlatformAckAt = &now
		inst.PlatformAckReason = reason
		return nil
	})
}

func (s *Service) mutateLive(ctx context.Context, instanceID id.InstanceID, action string, mutate func(*Instance) error) (*Instance, error) {
	inst, err := s.store.GetByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "requirement instance not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load requirement instance")
	}
	if !inst.IsLive() {
		return nil, dErrors.New(dErrors.CodeConflict, "issuance snapshots are immutable")
	}
	if err := mutate(inst); err != nil {
		return nil, err
	}
	inst.UpdatedAt = requestcontext.Now(ctx)

	var updated *Instance
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.UpdateLive(txCtx, inst); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update requirement instance")
		}
		if err := s.emit(txCtx, audit.Event{
			Subject: inst.AssetID.String(),
			Action:  action,
			Reason:  inst.ExceptionReason,
		}); err != nil {
			return err
		}
		updated = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncVerification(string(updated.Status))
	return updated, nil
}

// ValidateIssuanceRequirements is the issuance gate: valid iff no live
// instance is REQUIRED and unsatisfied. Blocked requirements are listed so a
// rejected issuance always names what blocks it.
func (s *Service) ValidateIssuanceRequirements(ctx context.Context, assetID id.AssetID) (Validation, error) {
	instances, err := s.store.ListLiveByAsset(ctx, assetID)
	if err != nil {
		return Validation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load live requirements")
	}

	validation := Validation{Valid: true, BlockedRequirements: []BlockedRequirement{}}
	for _, inst := range instances {
		if inst.Blocking() {
			validation.Valid = false
			validation.BlockedRequirements = append(validation.BlockedRequirements, BlockedRequirement{
				InstanceID: inst.ID,
				TemplateID: inst.TemplateID,
				Status:     inst.Status,
				Rationale:  inst.Rationale,
			})
		}
	}
	outcome := "valid"
	if !validation.Valid {
		outcome = "blocked"
	}
	s.metrics.IncGateCheck(outcome)
	return validation, nil
}

// CreateIssuanceSnapshot freezes the asset's live requirement state for one
// issuance. The batch is all-or-none; a partial snapshot must never exist.
func (s *Service) CreateIssuanceSnapshot(ctx context.Context, assetID id.AssetID, issuanceID id.IssuanceID) ([]*Instance, error) {
	live, err := s.store.ListLiveByAsset(ctx, assetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load live requirements")
	}
	if len(live) == 0 {
		s.logger.InfoContext(ctx, "no live requirements to snapshot",
			"asset_id", assetID,
			"issuance_id", issuanceID,
		)
		return nil, nil
	}

	now := requestcontext.Now(ctx)
	snapshots := make([]*Instance, 0, len(live))
	for _, inst := range live {
		snapshots = append(snapshots, inst.Snapshot(issuanceID, now))
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.CreateSnapshotBatch(txCtx, snapshots); err != nil {
			return err
		}
		return s.emit(txCtx, audit.Event{
			Subject: issuanceID.String(),
			Action:  "issuance_snapshot_created",
		})
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSnapshotFailed, "issuance snapshot creation failed")
	}

	s.metrics.IncSnapshot(len(snapshots))
	s.logger.InfoContext(ctx, "issuance snapshot created",
		"asset_id", assetID,
		"issuance_id", issuanceID,
		"rows", len(snapshots),
	)
	return snapshots, nil
}

// GetIssuanceSnapshot returns the frozen rows for one issuance, ordered by
// creation time. Read-only; consumed by the manifest builder.
func (s *Service) GetIssuanceSnapshot(ctx context.Context, issuanceID id.IssuanceID) ([]*Instance, error) {
	snapshots, err := s.store.ListByIssuance(ctx, issuanceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load issuance snapshot")
	}
	return snapshots, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, event)
}
