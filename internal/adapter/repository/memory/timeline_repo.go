package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// timelineRepository implements domain.TimelineRepository
type timelineRepository struct {
	s *Store
}

func (r *timelineRepository) Append(ctx context.Context, entry *domain.TimelineEntry) error {
	defer r.s.lock(ctx)()

	entries := r.s.timeline[entry.DisputeID]
	entry.Seq = int64(len(entries)) + 1

	stored := *entry
	stored.Metadata = copyMetadata(entry.Metadata)
	r.s.timeline[entry.DisputeID] = append(entries, stored)
	return nil
}

func (r *timelineRepository) ListByDispute(ctx context.Context, disputeID uuid.UUID) ([]*domain.TimelineEntry, error) {
	defer r.s.lock(ctx)()

	entries := r.s.timeline[disputeID]
	out := make([]*domain.TimelineEntry, 0, len(entries))
	for _, e := range entries {
		c := e
		c.Metadata = copyMetadata(e.Metadata)
		out = append(out, &c)
	}
	return out, nil
}
