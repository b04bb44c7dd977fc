package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// outboxRepository implements domain.OutboxRepository
type outboxRepository struct {
	db *DB
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db *DB) domain.OutboxRepository {
	return &outboxRepository{db: db}
}

// Enqueue stores events in the caller's transaction
func (r *outboxRepository) Enqueue(ctx context.Context, events ...domain.Event) error {
	query := `
		INSERT INTO event_outbox (id, event_type, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	q := r.db.querier(ctx)
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", e.Type, err)
		}
		if _, err := q.ExecContext(ctx, query, e.ID, string(e.Type), e.AggregateID, string(payload), e.OccurredAt); err != nil {
			return fmt.Errorf("failed to enqueue event %s: %w", e.Type, err)
		}
	}
	return nil
}

// FetchPending returns unpublished records in insertion order, leaving out records
// that used up their attempts. Rows locked by another relay are skipped so several
// relays can run side by side.
func (r *outboxRepository) FetchPending(ctx context.Context, limit, maxAttempts int) ([]*domain.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.querier(ctx).QueryContext(ctx, `
		SELECT payload, attempts, last_error
		FROM event_outbox
		WHERE published_at IS NULL
		  AND ($2 <= 0 OR attempts < $2)
		ORDER BY position
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending events: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.OutboxRecord, 0)
	for rows.Next() {
		var rec domain.OutboxRecord
		var payload []byte
		if err := rows.Scan(&payload, &rec.Attempts, &rec.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan outbox record: %w", err)
		}
		if err := json.Unmarshal(payload, &rec.Event); err != nil {
			return nil, fmt.Errorf("failed to decode outbox payload: %w", err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox: %w", err)
	}
	return out, nil
}

// MarkPublished records a successful relay
func (r *outboxRepository) MarkPublished(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	return r.mark(ctx, `UPDATE event_outbox SET published_at = $2 WHERE id = $1`, eventID, at)
}

// MarkFailed records a failed relay attempt
func (r *outboxRepository) MarkFailed(ctx context.Context, eventID uuid.UUID, reason string) error {
	return r.mark(ctx, `UPDATE event_outbox SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, eventID, reason)
}

func (r *outboxRepository) mark(ctx context.Context, query string, eventID uuid.UUID, value any) error {
	res, err := r.db.querier(ctx).ExecContext(ctx, query, eventID, value)
	if err != nil {
		return fmt.Errorf("failed to update outbox event: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("outbox event not found")
	}
	return nil
}
