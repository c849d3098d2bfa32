package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"mintgate/internal/asset"
	"mintgate/internal/authorization"
	handoffmetrics "mintgate/internal/handoff/metrics"
	"mintgate/internal/idempotency"
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

// Notifier delivers the one-time link to the holder. Delivery failure does
// not fail request creation; the link can be re-read by the issuer.
type Notifier interface {
	Notify(ctx context.Context, req *AuthorizationRequest, link string) error
}

// CompletionResult is what a completed (or replayed) handoff returns.
type CompletionResult struct {
	RequestID       id.RequestID       `json:"request_id"`
	AuthorizationID id.AuthorizationID `json:"authorization_id"`
	TxHash          string             `json:"tx_hash"`
}

// Service owns the one-time authorization handoff lifecycle.
type Service struct {
	store    Store
	assets   asset.Store
	auths    authorization.Store
	verifier ProofVerifier
	guard    *idempotency.Guard

	tx       TxRunner
	logger   *slog.Logger
	auditor  AuditPublisher
	notifier Notifier
	metrics  *handoffmetrics.Metrics

	ttl    time.Duration
	origin string
}

type serviceConfig struct {
	tx       TxRunner
	logger   *slog.Logger
	auditor  AuditPublisher
	notifier Notifier
	metrics  *handoffmetrics.Metrics
	ttl      time.Duration
	origin   string
}

// Option configures the Service.
type Option func(*serviceConfig)

// WithTxRunner sets the transaction runner for consume-plus-append writes.
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

// WithNotifier sets the link delivery collaborator.
func WithNotifier(n Notifier) Option {
	return func(c *serviceConfig) { c.notifier = n }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *handoffmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

// WithRequestTTL overrides the invitation validity window.
func WithRequestTTL(ttl time.Duration) Option {
	return func(c *serviceConfig) { c.ttl = ttl }
}

// WithExternalOrigin sets the public base URL embedded in one-time links.
func WithExternalOrigin(origin string) Option {
	return func(c *serviceConfig) { c.origin = origin }
}

// NewService builds the handoff service.
func NewService(store Store, assets asset.Store, auths authorization.Store, verifier ProofVerifier, guard *idempotency.Guard, opts ...Option) *Service {
	cfg := &serviceConfig{ttl: 24 * time.Hour, origin: "http://localhost:8080"}
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
		store:    store,
		assets:   assets,
		auths:    auths,
		verifier: verifier,
		guard:    guard,
		tx:       cfg.tx,
		logger:   cfg.logger,
		auditor:  cfg.auditor,
		notifier: cfg.notifier,
		metrics:  cfg.metrics,
		ttl:      cfg.ttl,
		origin:   cfg.origin,
	}
}

type noopTx struct{}

func (noopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// CreateRequest issues a single-use invitation for holder to opt in to
// assetID. The returned link embeds the raw token; the service keeps only
// its hash.
func (s *Service) CreateRequest(ctx context.Context, assetID id.AssetID, holder id.HolderAddress, limit string) (*AuthorizationRequest, string, error) {
	a, err := s.activeAsset(ctx, assetID)
	if err != nil {
		return nil, "", err
	}
	if holder.IsNil() {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "holder address is required")
	}
	if limit == "" {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "limit is required")
	}

	raw, hash, err := NewToken()
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate token")
	}

	now := requestcontext.Now(ctx)
	req := &AuthorizationRequest{
		ID:        id.NewRequestID(),
		TenantID:  a.TenantID,
		AssetID:   a.ID,
		Holder:    holder,
		Limit:     limit,
		Status:    StatusInvited,
		TokenHash: hash,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, req); err != nil {
			return err
		}
		return s.audit(ctx, req, "authorization_request_created", "")
	})
	if errors.Is(err, sentinel.ErrConflict) {
		return nil, "", dErrors.Newf(dErrors.CodeConflict, "an open authorization request already exists for holder %s", holder)
	}
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create authorization request")
	}
	s.metrics.IncRequestCreated()

	link := s.origin + "/authorize/" + raw
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, req, link); err != nil {
			s.logger.WarnContext(ctx, "authorization link delivery failed",
				"request_id", req.ID.String(), "error", err)
		}
	}
	return req, link, nil
}

// Describe resolves a raw token to its request and asset for the external
// authorize page. Fails with request_expired or request_already_processed
// when the link can no longer be used.
func (s *Service) Describe(ctx context.Context, rawToken string) (*AuthorizationRequest, *asset.Asset, error) {
	req, err := s.openRequest(ctx, rawToken)
	if err != nil {
		return nil, nil, err
	}
	a, err := s.assets.GetByID(ctx, req.AssetID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset for request")
	}
	return req, a, nil
}

// Complete consumes the token and records the holder's opt-in: it verifies
// the proof, atomically transitions the request to CONSUMED and appends one
// HOLDER_REQUESTED authorization row. Retries with the same proof replay the
// first outcome instead of appending a second row.
func (s *Service) Complete(ctx context.Context, rawToken string, proof Proof) (*CompletionResult, bool, error) {
	// Keyed before the status check so a retry of an already-consumed
	// request replays the stored outcome instead of failing.
	key, err := idempotency.Key("handoff.complete", struct {
		TokenHash string `json:"token_hash"`
		TxHash    string `json:"tx_hash"`
	}{HashToken(rawToken), proof.TxHash})
	if err != nil {
		return nil, false, err
	}

	raw, duplicate, err := s.guard.Do(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		req, err := s.openRequest(ctx, rawToken)
		if err != nil {
			return nil, err
		}
		result, err := s.complete(ctx, req, proof)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	})
	if err != nil {
		s.metrics.IncCompletion("rejected")
		return nil, false, err
	}

	var result CompletionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode completion result")
	}
	if duplicate {
		s.metrics.IncCompletion("replayed")
		s.logger.InfoContext(ctx, "handoff completion replayed",
			"request_id", result.RequestID.String(), "tx_hash", proof.TxHash)
	} else {
		s.metrics.IncCompletion("completed")
	}
	return &result, duplicate, nil
}

func (s *Service) complete(ctx context.Context, req *AuthorizationRequest, proof Proof) (*CompletionResult, error) {
	a, err := s.activeAsset(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	if err := s.verifier.Verify(ctx, a, req, proof); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	row := &authorization.Authorization{
		ID:          id.NewAuthorizationID(),
		TenantID:    a.TenantID,
		AssetID:     a.ID,
		Ledger:      a.Ledger,
		Currency:    a.Currency,
		Holder:      req.Holder,
		Limit:       req.Limit,
		Status:      authorization.StatusHolderRequested,
		InitiatedBy: authorization.InitiatedByHolder,
		TxHash:      proof.TxHash,
		CreatedAt:   now,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.Consume(ctx, req.ID, proof.TxHash, now); err != nil {
			return err
		}
		if err := s.auths.Append(ctx, row); err != nil {
			return err
		}
		return s.audit(ctx, req, "authorization_request_consumed", proof.TxHash)
	})
	if errors.Is(err, sentinel.ErrInvalidState) {
		return nil, dErrors.Newf(dErrors.CodeRequestAlreadyProcessed, "request %s was already processed", req.ID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume authorization request")
	}
	return &CompletionResult{RequestID: req.ID, AuthorizationID: row.ID, TxHash: proof.TxHash}, nil
}

// Cancel withdraws an unused invitation.
func (s *Service) Cancel(ctx context.Context, requestID id.RequestID) (*AuthorizationRequest, error) {
	var cancelled *AuthorizationRequest
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		req, err := s.store.Cancel(ctx, requestID)
		if err != nil {
			return err
		}
		cancelled = req
		return s.audit(ctx, req, "authorization_request_cancelled", "")
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "authorization request %s not found", requestID)
	}
	if errors.Is(err, sentinel.ErrInvalidState) {
		return nil, dErrors.Newf(dErrors.CodeRequestAlreadyProcessed, "request %s was already processed", requestID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel authorization request")
	}
	return cancelled, nil
}

// ExpireStale marks invitations past their TTL as EXPIRED. Idempotent
// maintenance; safe to run on a schedule.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	changed, err := s.store.ExpireStale(ctx, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire stale requests")
	}
	if changed > 0 {
		s.metrics.AddExpirations(changed)
		s.logger.InfoContext(ctx, "stale authorization requests expired", "count", changed)
	}
	return changed, nil
}

// ListByAsset returns the request history for one asset, newest first.
func (s *Service) ListByAsset(ctx context.Context, assetID id.AssetID) ([]*AuthorizationRequest, error) {
	requests, err := s.store.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list authorization requests")
	}
	return requests, nil
}

func (s *Service) openRequest(ctx context.Context, rawToken string) (*AuthorizationRequest, error) {
	req, err := s.store.GetByTokenHash(ctx, HashToken(rawToken))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "authorization request not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up authorization request")
	}
	switch {
	case req.Status == StatusConsumed || req.Status == StatusCancelled:
		return nil, dErrors.Newf(dErrors.CodeRequestAlreadyProcessed, "request %s was already processed", req.ID)
	case req.Status == StatusExpired || req.Expired(requestcontext.Now(ctx)):
		return nil, dErrors.Newf(dErrors.CodeRequestExpired, "request %s has expired", req.ID)
	}
	return req, nil
}

func (s *Service) activeAsset(ctx context.Context, assetID id.AssetID) (*asset.Asset, error) {
	a, err := s.assets.GetByID(ctx, assetID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeAssetNotFound, "asset %s not found", assetID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
	}
	if !a.Active() {
		return nil, dErrors.Newf(dErrors.CodeAssetNotActive, "asset %s is %s, not ACTIVE", assetID, a.Status)
	}
	return a, nil
}

func (s *Service) audit(ctx context.Context, req *AuthorizationRequest, action, txHash string) error {
	if s.auditor == nil {
		return nil
	}
	reason := "holder=" + req.Holder.String()
	if txHash != "" {
		reason += " tx=" + txHash
	}
	return s.auditor.Emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Subject:  "authorization_request:" + req.ID.String(),
		Action:   action,
		Reason:   reason,
	})
}
