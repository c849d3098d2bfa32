// Package audit defines the append-only audit event model and store contract.
//
// Compliance-relevant operations (snapshot creation, handoff consumption,
// authorization transitions) emit events through the fail-closed compliance
// publisher; the outbox worker ships persisted events to Kafka.
package audit

import (
	"context"
	"time"

	id "mintgate/pkg/domain"
)

// Category partitions events by delivery guarantee.
type Category string

const (
	// CategoryCompliance events are regulatory facts. They are written
	// synchronously and fail-closed: the business operation must not proceed
	// if the event cannot be persisted.
	CategoryCompliance Category = "compliance"
	// CategoryOps events are operational telemetry and may be dropped under
	// pressure.
	CategoryOps Category = "ops"
)

// Event is one append-only audit record.
type Event struct {
	ID        string
	Category  Category
	Timestamp time.Time
	TenantID  id.TenantID
	// Subject identifies what the event is about, e.g. an asset, issuance,
	// or authorization request ID.
	Subject string
	Action  string
	Reason  string
	// Actor is the operator or system principal that triggered the action.
	Actor     string
	RequestID string
}

// Store persists audit events. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
