package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// outboxRepository implements domain.OutboxRepository
type outboxRepository struct {
	s *Store
}

func (r *outboxRepository) Enqueue(ctx context.Context, events ...domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	defer r.s.lock(ctx)()

	for _, e := range events {
		e.Data = copyMetadata(e.Data)
		r.s.outbox = append(r.s.outbox, domain.OutboxRecord{Event: e})
	}
	return nil
}

func (r *outboxRepository) FetchPending(ctx context.Context, limit, maxAttempts int) ([]*domain.OutboxRecord, error) {
	defer r.s.lock(ctx)()

	out := make([]*domain.OutboxRecord, 0)
	for _, rec := range r.s.outbox {
		if rec.PublishedAt != nil {
			continue
		}
		if maxAttempts > 0 && rec.Attempts >= maxAttempts {
			continue
		}
		c := rec
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	defer r.s.lock(ctx)()

	for i := range r.s.outbox {
		if r.s.outbox[i].Event.ID == eventID {
			published := at
			r.s.outbox[i].PublishedAt = &published
			return nil
		}
	}
	return domain.NewNotFoundError("outbox event not found")
}

func (r *outboxRepository) MarkFailed(ctx context.Context, eventID uuid.UUID, reason string) error {
	defer r.s.lock(ctx)()

	for i := range r.s.outbox {
		if r.s.outbox[i].Event.ID == eventID {
			r.s.outbox[i].Attempts++
			r.s.outbox[i].LastError = reason
			return nil
		}
	}
	return domain.NewNotFoundError("outbox event not found")
}

// Events returns every event ever enqueued, in order
func (s *Store) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Event, 0, len(s.outbox))
	for _, rec := range s.outbox {
		out = append(out, rec.Event)
	}
	return out
}
