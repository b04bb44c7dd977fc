package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// timelineRepository implements domain.TimelineRepository
type timelineRepository struct {
	db *DB
}

// NewTimelineRepository creates a new timeline repository
func NewTimelineRepository(db *DB) domain.TimelineRepository {
	return &timelineRepository{db: db}
}

// Append inserts the entry with the next sequence number of its dispute.
// Callers hold the dispute row lock, so concurrent appends to one dispute are serialized.
func (r *timelineRepository) Append(ctx context.Context, entry *domain.TimelineEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode timeline metadata: %w", err)
	}

	query := `
		INSERT INTO dispute_timeline (id, dispute_id, seq, action, actor_id, occurred_at, metadata)
		VALUES ($1, $2, (SELECT COALESCE(MAX(seq), 0) + 1 FROM dispute_timeline WHERE dispute_id = $2), $3, $4, $5, $6)
		RETURNING seq
	`

	err = r.db.querier(ctx).QueryRowContext(ctx, query,
		entry.ID,
		entry.DisputeID,
		string(entry.Action),
		entry.ActorID,
		entry.Timestamp,
		string(metadata),
	).Scan(&entry.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("timeline sequence for dispute %s was taken concurrently", entry.DisputeID)
		}
		return fmt.Errorf("failed to append timeline entry: %w", err)
	}
	return nil
}

// ListByDispute returns the entries of a dispute ordered by seq
func (r *timelineRepository) ListByDispute(ctx context.Context, disputeID uuid.UUID) ([]*domain.TimelineEntry, error) {
	rows, err := r.db.querier(ctx).QueryContext(ctx, `
		SELECT id, dispute_id, seq, action, actor_id, occurred_at, metadata
		FROM dispute_timeline
		WHERE dispute_id = $1
		ORDER BY seq
	`, disputeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.TimelineEntry, 0)
	for rows.Next() {
		var e domain.TimelineEntry
		var action string
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.DisputeID, &e.Seq, &action, &e.ActorID, &e.Timestamp, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		e.Action = domain.TimelineAction(action)
		e.Timestamp = e.Timestamp.UTC()
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode timeline metadata: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timeline: %w", err)
	}
	return out, nil
}
