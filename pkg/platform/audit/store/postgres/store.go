// Package postgres implements audit.Store using the transactional outbox
// pattern. Events land in the audit_outbox table inside the caller's
// transaction when one is present, so a rolled-back business operation never
// leaves a stray audit row. The outbox worker ships rows to Kafka.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "mintgate/pkg/domain"
	audit "mintgate/pkg/platform/audit"
	txcontext "mintgate/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event for symmetric deserialization on the consumer side.
type outboxPayload struct {
	ID        string `json:"ID"`
	Category  string `json:"Category"`
	Timestamp string `json:"Timestamp"`
	TenantID  string `json:"TenantID,omitempty"`
	Subject   string `json:"Subject"`
	Action    string `json:"Action"`
	Reason    string `json:"Reason,omitempty"`
	Actor     string `json:"Actor,omitempty"`
	RequestID string `json:"RequestID,omitempty"`
}

// Append writes an audit event to the outbox table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := event.ID
	if eventID == "" {
		eventID = uuid.NewString()
	}
	payload, err := json.Marshal(outboxPayload{
		ID:        eventID,
		Category:  string(event.Category),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		TenantID:  event.TenantID.String(),
		Subject:   event.Subject,
		Action:    event.Action,
		Reason:    event.Reason,
		Actor:     event.Actor,
		RequestID: event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_outbox (id, category, subject, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		eventID, string(event.Category), event.Subject, payload, event.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListBySubject returns persisted events for one subject, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM audit_outbox
		WHERE subject = $1
		ORDER BY created_at ASC`,
		subject,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event, err := decodePayload(raw)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func decodePayload(raw []byte) (audit.Event, error) {
	var p outboxPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return audit.Event{}, fmt.Errorf("decode audit payload: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return audit.Event{}, fmt.Errorf("decode audit timestamp: %w", err)
	}
	event := audit.Event{
		ID:        p.ID,
		Category:  audit.Category(p.Category),
		Timestamp: ts,
		Subject:   p.Subject,
		Action:    p.Action,
		Reason:    p.Reason,
		Actor:     p.Actor,
		RequestID: p.RequestID,
	}
	if tenantID, err := id.ParseTenantID(p.TenantID); err == nil {
		event.TenantID = tenantID
	}
	return event, nil
}
