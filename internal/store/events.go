package store

import (
	"context"
	"fmt"

	"github.com/abaplay/outreach/internal/domain"
)

// RecordEmailEvent appends one delivery-feedback event to a log entry and
// returns its sequence id. Events are never updated or deleted; they cascade
// away with their log row.
func (s *Store) RecordEmailEvent(ctx context.Context, logID string, eventType domain.EventType, payload []byte) (int64, error) {
	if !eventType.Valid() {
		return 0, &ConstraintError{Kind: ConstraintCheck, Constraint: "email_events_event_type_check",
			Err: fmt.Errorf("invalid event type %q", eventType)}
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO email_events (email_log_id, event_type, payload)
		VALUES ($1, $2, $3)
		RETURNING id
	`, logID, eventType, nullableJSON(payload)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record email event: %w", classify(err))
	}
	return id, nil
}

// EventsByLog returns a log entry's events in arrival order.
func (s *Store) EventsByLog(ctx context.Context, logID string) ([]domain.EmailEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email_log_id, event_type, payload, created_at
		FROM email_events WHERE email_log_id = $1 ORDER BY id
	`, logID)
	if err != nil {
		return nil, fmt.Errorf("events by log: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailEvent
	for rows.Next() {
		var e domain.EmailEvent
		if err := rows.Scan(&e.ID, &e.EmailLogID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan email event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
