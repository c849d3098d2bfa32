// Package publisher provides the fail-closed compliance audit publisher.
//
// Emit blocks until the event is persisted. If persistence fails the caller
// MUST fail its operation: issuance snapshots, handoff consumptions, and
// authorization transitions are regulatory facts that may not happen
// unaudited.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "mintgate/pkg/platform/audit"
	"mintgate/pkg/requestcontext"
)

// Publisher emits compliance events with synchronous, fail-closed semantics.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New creates a compliance publisher over the given store. For durable
// delivery the store should be outbox-backed.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes a compliance event. Returns an error when
// persistence fails; the calling operation must then fail as well.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Subject == "" {
		return fmt.Errorf("compliance event requires Subject")
	}
	if event.Action == "" {
		return fmt.Errorf("compliance event requires Action")
	}
	event.Category = audit.CategoryCompliance
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Actor == "" {
		event.Actor = requestcontext.Actor(ctx)
	}
	if event.TenantID.IsNil() {
		event.TenantID = requestcontext.TenantID(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "compliance audit persist failed",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
		return fmt.Errorf("persist compliance audit event: %w", err)
	}
	return nil
}
