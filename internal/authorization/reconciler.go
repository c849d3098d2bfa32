package authorization

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mintgate/internal/asset"
	authmetrics "mintgate/internal/authorization/metrics"
	"mintgate/internal/ledger"
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

// HolderError is one per-holder failure collected during a pass. Holder
// failures never abort the rest of the batch.
type HolderError struct {
	Holder id.HolderAddress
	Err    error
}

// Result reports one per-asset reconciliation pass.
type Result struct {
	AssetID  id.AssetID
	Appended []*Authorization
	Errors   []HolderError
	// Err is set when the whole pass failed before any holder was processed,
	// e.g. the asset was not found or the ledger was unreachable. Only
	// populated by ReconcileAll; Reconcile returns it directly.
	Err error
}

// Reconciler diffs current ledger opt-in lines against the latest recorded
// authorization per holder and appends transition rows. Passes are
// append-only: past rows are never mutated, and at most one transition per
// (holder, dimension) is inferred per pass.
type Reconciler struct {
	assets      asset.Store
	store       Store
	adapters    map[id.LedgerKind]ledger.Adapter
	tx          TxRunner
	logger      *slog.Logger
	auditor     AuditPublisher
	metrics     *authmetrics.Metrics
	tracer      trace.Tracer
	parallelism int
}

type reconcilerConfig struct {
	tx          TxRunner
	logger      *slog.Logger
	auditor     AuditPublisher
	metrics     *authmetrics.Metrics
	parallelism int
}

// ReconcilerOption configures the Reconciler.
type ReconcilerOption func(*reconcilerConfig)

// WithTxRunner sets the transaction runner used for append-plus-audit writes.
func WithTxRunner(tx TxRunner) ReconcilerOption {
	return func(c *reconcilerConfig) { c.tx = tx }
}

// WithLogger sets the reconciler logger.
func WithLogger(logger *slog.Logger) ReconcilerOption {
	return func(c *reconcilerConfig) { c.logger = logger }
}

// WithAuditPublisher sets the fail-closed compliance audit publisher.
func WithAuditPublisher(p AuditPublisher) ReconcilerOption {
	return func(c *reconcilerConfig) { c.auditor = p }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *authmetrics.Metrics) ReconcilerOption {
	return func(c *reconcilerConfig) { c.metrics = m }
}

// WithParallelism caps how many assets ReconcileAll processes concurrently.
func WithParallelism(n int) ReconcilerOption {
	return func(c *reconcilerConfig) { c.parallelism = n }
}

// NewReconciler builds the reconciliation engine.
func NewReconciler(assets asset.Store, store Store, adapters map[id.LedgerKind]ledger.Adapter, opts ...ReconcilerOption) *Reconciler {
	cfg := &reconcilerConfig{parallelism: 4}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = noopTx{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Reconciler{
		assets:      assets,
		store:       store,
		adapters:    adapters,
		tx:          cfg.tx,
		logger:      cfg.logger,
		auditor:     cfg.auditor,
		metrics:     cfg.metrics,
		tracer:      otel.Tracer("mintgate/authorization"),
		parallelism: cfg.parallelism,
	}
}

type noopTx struct{}

func (noopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Reconcile runs one pass for a single asset. Holder lines are processed
// sequentially within the pass so that appended rows keep the order used to
// compute "current state"; per-holder failures are collected and do not stop
// the remaining holders.
func (r *Reconciler) Reconcile(ctx context.Context, assetID id.AssetID) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "reconciler.Reconcile",
		trace.WithAttributes(attribute.String("asset_id", assetID.String())))
	defer span.End()

	start := time.Now()

	a, err := r.assets.GetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeAssetNotFound, "asset %s not found", assetID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
	}
	if !a.Active() {
		return nil, dErrors.Newf(dErrors.CodeAssetNotActive, "asset %s is %s, not ACTIVE", assetID, a.Status)
	}

	adapter, ok := r.adapters[a.Ledger]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeLedgerUnavailable, "no adapter registered for ledger %s", a.Ledger)
	}

	lines, err := adapter.GetAccountLines(ctx, a.IssuingAddress, "", "")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, "failed to read account lines")
	}

	latest, err := r.store.LatestByAsset(ctx, assetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load authorization history")
	}

	res := &Result{AssetID: assetID}
	seen := make(map[id.HolderAddress]bool, len(lines))

	for _, line := range lines {
		if line.Currency != a.Currency {
			continue
		}
		holder, err := id.ParseHolderAddress(line.Account)
		if err != nil {
			res.Errors = append(res.Errors, HolderError{Err: err})
			continue
		}
		seen[holder] = true
		if err := r.reconcileLine(ctx, a, holder, line, latest[holder], res); err != nil {
			res.Errors = append(res.Errors, HolderError{Holder: holder, Err: err})
		}
	}

	// Closed-line sweep: a holder with live history that the ledger no longer
	// reports gets exactly one TRUSTLINE_CLOSED row this pass. Sorted so the
	// append order is deterministic.
	var vanished []id.HolderAddress
	for holder, prior := range latest {
		if !seen[holder] && !prior.Closed() {
			vanished = append(vanished, holder)
		}
	}
	sort.Slice(vanished, func(i, j int) bool { return vanished[i] < vanished[j] })
	for _, holder := range vanished {
		row := r.newTransition(ctx, a, holder, StatusTrustlineClosed, "0")
		if err := r.append(ctx, row, res); err != nil {
			res.Errors = append(res.Errors, HolderError{Holder: holder, Err: err})
		}
	}

	r.metrics.ObservePass(time.Since(start).Seconds(), len(res.Errors))
	r.logger.InfoContext(ctx, "reconciliation pass complete",
		"asset_id", assetID.String(),
		"ledger_lines", len(lines),
		"appended", len(res.Appended),
		"holder_errors", len(res.Errors),
	)
	return res, nil
}

// reconcileLine applies the transition rules for one currently-seen line.
func (r *Reconciler) reconcileLine(ctx context.Context, a *asset.Asset, holder id.HolderAddress, line ledger.AccountLine, prior *Authorization, res *Result) error {
	// No live history: the line either appeared for the first time or
	// reappeared after a close, which restarts the chain.
	if prior == nil || prior.Closed() {
		status := StatusExternal
		if line.Authorized {
			status = StatusIssuerAuthorized
		}
		row := r.newTransition(ctx, a, holder, status, line.Limit)
		row.External = true
		row.ExternalSource = "ledger"
		return r.append(ctx, row, res)
	}

	// Authorization and limit are independent dimensions; a pass may append
	// one row for each, never two for the same dimension.
	if line.Authorized && prior.Status != StatusIssuerAuthorized {
		row := r.newTransition(ctx, a, holder, StatusIssuerAuthorized, prior.Limit)
		if err := r.append(ctx, row, res); err != nil {
			return err
		}
	}
	if line.Limit != prior.Limit {
		row := r.newTransition(ctx, a, holder, StatusLimitUpdated, line.Limit)
		if err := r.append(ctx, row, res); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) newTransition(ctx context.Context, a *asset.Asset, holder id.HolderAddress, status Status, limit string) *Authorization {
	return &Authorization{
		ID:          id.NewAuthorizationID(),
		TenantID:    a.TenantID,
		AssetID:     a.ID,
		Ledger:      a.Ledger,
		Currency:    a.Currency,
		Holder:      holder,
		Limit:       limit,
		Status:      status,
		InitiatedBy: InitiatedBySystem,
		CreatedAt:   requestcontext.Now(ctx),
	}
}

// append persists one transition row with its audit event in one
// transaction. If the audit event cannot be recorded the row is not kept.
func (r *Reconciler) append(ctx context.Context, row *Authorization, res *Result) error {
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := r.store.Append(ctx, row); err != nil {
			return err
		}
		if r.auditor == nil {
			return nil
		}
		return r.auditor.Emit(ctx, audit.Event{
			Category: audit.CategoryCompliance,
			Subject:  "asset:" + row.AssetID.String(),
			Action:   "authorization_transition",
			Reason:   string(row.Status) + " holder=" + row.Holder.String(),
		})
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append authorization transition")
	}
	res.Appended = append(res.Appended, row)
	r.metrics.IncTransition(string(row.Status))
	return nil
}

// ReconcileAll runs one pass over every ACTIVE asset. Assets are independent
// units of work and run in parallel up to the configured limit; a failed
// asset is reported in its Result and never stops the others.
func (r *Reconciler) ReconcileAll(ctx context.Context) ([]*Result, error) {
	assets, err := r.assets.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active assets")
	}

	var (
		mu      sync.Mutex
		results []*Result
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, a := range assets {
		g.Go(func() error {
			res, err := r.Reconcile(ctx, a.ID)
			if err != nil {
				r.logger.ErrorContext(ctx, "reconciliation pass failed",
					"asset_id", a.ID.String(), "error", err)
				res = &Result{AssetID: a.ID, Err: err}
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
