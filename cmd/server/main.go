// main wires the stores, services, background workers and HTTP surface.
// Business logic lives in the internal services packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"mintgate/internal/asset"
	assetpg "mintgate/internal/asset/store/postgres"
	"mintgate/internal/authorization"
	authzhandler "mintgate/internal/authorization/handler"
	authzmetrics "mintgate/internal/authorization/metrics"
	authzpg "mintgate/internal/authorization/store/postgres"
	"mintgate/internal/handoff"
	handoffhandler "mintgate/internal/handoff/handler"
	handoffmetrics "mintgate/internal/handoff/metrics"
	handoffpg "mintgate/internal/handoff/store/postgres"
	"mintgate/internal/idempotency"
	idemredis "mintgate/internal/idempotency/store/redis"
	"mintgate/internal/jwttoken"
	"mintgate/internal/ledger"
	"mintgate/internal/manifest"
	manifesthandler "mintgate/internal/manifest/handler"
	"mintgate/internal/platform/config"
	"mintgate/internal/platform/httpserver"
	"mintgate/internal/platform/logger"
	"mintgate/internal/platform/postgres"
	platformredis "mintgate/internal/platform/redis"
	"mintgate/internal/policy"
	policyhandler "mintgate/internal/policy/handler"
	policymetrics "mintgate/internal/policy/metrics"
	policypg "mintgate/internal/policy/store/postgres"
	"mintgate/internal/requirement"
	requirementhandler "mintgate/internal/requirement/handler"
	reqmetrics "mintgate/internal/requirement/metrics"
	requirementpg "mintgate/internal/requirement/store/postgres"
	"mintgate/internal/tenant"
	tenanthandler "mintgate/internal/tenant/handler"
	tenantpg "mintgate/internal/tenant/store/postgres"
	httptransport "mintgate/internal/transport/http"
	"mintgate/pkg/platform/audit"
	auditmem "mintgate/pkg/platform/audit/store/memory"
	auditpg "mintgate/pkg/platform/audit/store/postgres"
	"mintgate/pkg/platform/audit/publisher"
	auditworker "mintgate/pkg/platform/audit/worker"
	"mintgate/pkg/platform/tx"

	id "mintgate/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// Persistence. An empty postgres URL selects the in-memory stores, which
	// is enough for local development and tests.
	var db *sql.DB
	if cfg.Postgres.URL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	var (
		templateStore    policy.TemplateStore
		requirementStore requirement.Store
		assetStore       asset.Store
		authStore        authorization.Store
		handoffStore     handoff.Store
		tenantStore      tenant.Store
		auditStore       audit.Store
		runner           interface {
			RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
		}
	)
	if db != nil {
		templateStore = policypg.New(db)
		requirementStore = requirementpg.New(db)
		assetStore = assetpg.New(db)
		authStore = authzpg.New(db)
		handoffStore = handoffpg.New(db)
		tenantStore = tenantpg.New(db)
		auditStore = auditpg.New(db)
		runner = tx.NewRunner(db)
	} else {
		log.Warn("postgres not configured, using in-memory stores")
		templateStore = policy.NewInMemoryTemplateStore()
		requirementStore = requirement.NewInMemoryStore()
		assetStore = asset.NewInMemoryStore()
		authStore = authorization.NewInMemoryStore()
		handoffStore = handoff.NewInMemoryStore()
		tenantStore = tenant.NewMemoryStore()
		auditStore = auditmem.New()
		runner = tx.NoopRunner{}
	}

	auditPub := publisher.New(auditStore, publisher.WithLogger(log))

	// Idempotency store: Redis when configured, memory otherwise.
	var idemStore idempotency.Store
	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		idemStore = idemredis.New(rdb.Client)
	} else {
		log.Warn("redis not configured, using in-memory idempotency store")
		idemStore = idempotency.NewInMemoryStore()
	}
	guard := idempotency.NewGuard(idemStore,
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(log),
	)

	// Audit outbox worker ships committed audit rows to Kafka. It needs both
	// the outbox table and a broker to talk to.
	if len(cfg.Kafka.Brokers) > 0 && db != nil {
		kafkaClient, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			return err
		}
		defer kafkaClient.Close()

		w := auditworker.New(db, kafkaClient, cfg.Kafka.AuditTopic, log)
		if err := w.EnsureTopic(ctx, 1, 1); err != nil {
			return err
		}
		go w.Run(ctx)
	}

	adapters := buildLedgerAdapters()
	if len(adapters) == 0 {
		log.Warn("no ledger adapters registered, reconciliation and proof verification will report ledger_unavailable")
	}

	// Services.
	kernel := policy.NewKernel(templateStore, requirementStore,
		policy.WithLogger(log),
		policy.WithMetrics(policymetrics.New()),
	)
	reqService := requirement.NewService(requirementStore,
		requirement.WithTxRunner(runner),
		requirement.WithLogger(log),
		requirement.WithAuditPublisher(auditPub),
		requirement.WithMetrics(reqmetrics.New()),
	)
	reconciler := authorization.NewReconciler(assetStore, authStore, adapters,
		authorization.WithTxRunner(runner),
		authorization.WithLogger(log),
		authorization.WithAuditPublisher(auditPub),
		authorization.WithMetrics(authzmetrics.New()),
		authorization.WithParallelism(cfg.Reconciler.MaxParallelAssets),
	)
	handoffService := handoff.NewService(handoffStore, assetStore, authStore,
		handoff.NewLedgerVerifier(adapters), guard,
		handoff.WithTxRunner(runner),
		handoff.WithLogger(log),
		handoff.WithAuditPublisher(auditPub),
		handoff.WithNotifier(logNotifier{logger: log}),
		handoff.WithMetrics(handoffmetrics.New()),
		handoff.WithRequestTTL(cfg.Handoff.RequestTTL),
		handoff.WithExternalOrigin(cfg.Server.ExternalOrigin),
	)
	builder := manifest.NewBuilder(reqService, assetStore, templateStore, log)
	tenantService := tenant.NewService(tenantStore, tenant.WithLogger(log))

	jwtService := jwttoken.NewService(cfg.Server.JWTSigningKey, "mintgate", "mintgate-ops")

	router := httptransport.NewRouter(httptransport.Deps{
		Policy:        policyhandler.New(kernel, templateStore, log),
		Requirement:   requirementhandler.New(reqService, log),
		Authorization: authzhandler.New(reconciler, authStore, log),
		Handoff:       handoffhandler.New(handoffService, log),
		Manifest:      manifesthandler.New(builder, log),
		TenantAdmin:   tenanthandler.New(tenantService, log),
		TenantAuth:    tenantService,
		OperatorAuth:  jwttoken.NewServiceAdapter(jwtService),
		Logger:        log,
	})

	go reconcileLoop(ctx, reconciler, cfg.Reconciler.Interval, log)
	go maintenanceLoop(ctx, handoffService, guard, log)

	srv := httpserver.New(cfg.Server.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting mintgate", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildLedgerAdapters registers the ledger adapters for this deployment.
// Adapter implementations are deployment-specific and register here; with
// none registered the reconciler and proof verifier degrade to
// ledger_unavailable.
func buildLedgerAdapters() map[id.LedgerKind]ledger.Adapter {
	return map[id.LedgerKind]ledger.Adapter{}
}

// reconcileLoop runs the periodic reconciliation pass over all active assets.
func reconcileLoop(ctx context.Context, r *authorization.Reconciler, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ReconcileAll(ctx); err != nil {
				log.ErrorContext(ctx, "scheduled reconciliation failed", "error", err)
			}
		}
	}
}

// maintenanceLoop sweeps expired handoff requests and idempotency records.
func maintenanceLoop(ctx context.Context, svc *handoff.Service, guard *idempotency.Guard, log *slog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := svc.ExpireStale(ctx); err != nil {
				log.ErrorContext(ctx, "handoff expiry sweep failed", "error", err)
			} else if n > 0 {
				log.InfoContext(ctx, "handoff requests expired", "count", n)
			}
			if n, err := guard.Cleanup(ctx); err != nil {
				log.ErrorContext(ctx, "idempotency cleanup failed", "error", err)
			} else if n > 0 {
				log.InfoContext(ctx, "idempotency records purged", "count", n)
			}
		}
	}
}

// logNotifier is the slog-backed stand-in for the email collaborator. The
// issuer can always re-read the link from the create response.
type logNotifier struct {
	logger *slog.Logger
}

// Notify logs that a link is ready. The link itself carries the raw token
// and is never logged.
func (n logNotifier) Notify(ctx context.Context, req *handoff.AuthorizationRequest, _ string) error {
	n.logger.InfoContext(ctx, "authorization link ready",
		"request_id", req.ID.String(),
		"holder", req.Holder.String(),
		"expires_at", req.ExpiresAt,
	)
	return nil
}
