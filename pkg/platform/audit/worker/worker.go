// Package worker ships persisted audit_outbox rows to Kafka. Kafka is the
// downstream source of truth for audit consumers; the outbox table is the
// durable buffer that makes audit writes transactional with business writes.
package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
)

// Worker polls the outbox and publishes unshipped rows.
type Worker struct {
	db        *sql.DB
	client    *kgo.Client
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// Option configures the Worker.
type Option func(*Worker)

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) { w.interval = d }
}

// WithBatchSize overrides rows shipped per poll.
func WithBatchSize(n int) Option {
	return func(w *Worker) { w.batchSize = n }
}

// New builds an outbox worker publishing to topic.
func New(db *sql.DB, client *kgo.Client, topic string, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		db:        db,
		client:    client,
		topic:     topic,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// EnsureTopic creates the audit topic when it does not exist yet.
func (w *Worker) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(w.client)
	_, err := adm.CreateTopic(ctx, partitions, replication, nil, w.topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic %q: %w", w.topic, err)
	}
	return nil
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := w.shipBatch(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit outbox ship failed", "error", err)
			} else if n > 0 {
				w.logger.DebugContext(ctx, "audit outbox shipped", "events", n)
			}
		}
	}
}

// shipBatch publishes one batch of unshipped rows. Rows are locked with
// SKIP LOCKED so multiple workers never double-publish.
func (w *Worker) shipBatch(ctx context.Context) (int, error) {
	sqlTx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	rows, err := sqlTx.QueryContext(ctx, `
		SELECT id, subject, payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		w.batchSize,
	)
	if err != nil {
		return 0, fmt.Errorf("select outbox rows: %w", err)
	}

	type outboxRow struct {
		id      string
		subject string
		payload []byte
	}
	var batch []outboxRow
	for rows.Next() {
		var r outboxRow
		if err := rows.Scan(&r.id, &r.subject, &r.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, sqlTx.Commit()
	}

	records := make([]*kgo.Record, 0, len(batch))
	for _, r := range batch {
		records = append(records, &kgo.Record{
			Topic: w.topic,
			// Key on the subject so all events for one asset/issuance land in
			// one partition, preserving order for consumers.
			Key:   []byte(r.subject),
			Value: r.payload,
		})
	}
	if err := w.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, fmt.Errorf("produce audit records: %w", err)
	}

	ids := make([]string, len(batch))
	for i, r := range batch {
		ids[i] = r.id
	}
	if _, err := sqlTx.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = NOW()
		WHERE id = ANY($1)`,
		ids,
	); err != nil {
		return 0, fmt.Errorf("mark outbox rows published: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}
	return len(batch), nil
}
