package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// disputeRepository implements domain.DisputeRepository
type disputeRepository struct {
	s *Store
}

func cloneDispute(d domain.Dispute) *domain.Dispute {
	d.EvidenceWorker = copyStrings(d.EvidenceWorker)
	d.EvidenceBusiness = copyStrings(d.EvidenceBusiness)
	return &d
}

func (r *disputeRepository) Create(ctx context.Context, d *domain.Dispute) error {
	defer r.s.lock(ctx)()

	if _, exists := r.s.disputes[d.ID]; exists {
		return domain.NewConflictError("dispute %s already exists", d.ID)
	}
	for _, existing := range r.s.disputes {
		if existing.TransactionID == d.TransactionID && !existing.Status.IsTerminal() {
			return domain.NewConflictError("An active dispute already exists for this transaction")
		}
	}

	d.Version = 1
	r.s.disputes[d.ID] = *cloneDispute(*d)
	return nil
}

func (r *disputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dispute, error) {
	defer r.s.lock(ctx)()

	d, ok := r.s.disputes[id]
	if !ok {
		return nil, domain.NewNotFoundError("dispute not found")
	}
	return cloneDispute(d), nil
}

func (r *disputeRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Dispute, error) {
	return r.GetByID(ctx, id)
}

func (r *disputeRepository) FindActiveByTransaction(ctx context.Context, transactionID uuid.UUID) (*domain.Dispute, error) {
	defer r.s.lock(ctx)()

	for _, d := range r.s.disputes {
		if d.TransactionID == transactionID && !d.Status.IsTerminal() {
			return cloneDispute(d), nil
		}
	}
	return nil, domain.NewNotFoundError("no active dispute for transaction")
}

func (r *disputeRepository) Update(ctx context.Context, d *domain.Dispute) error {
	defer r.s.lock(ctx)()

	stored, ok := r.s.disputes[d.ID]
	if !ok {
		return domain.NewNotFoundError("dispute not found")
	}
	if stored.Version != d.Version {
		return domain.NewConflictError("The dispute was modified by another request")
	}

	d.Version++
	r.s.disputes[d.ID] = *cloneDispute(*d)
	return nil
}

func (r *disputeRepository) ListStale(ctx context.Context, cutoff time.Time) ([]*domain.Dispute, error) {
	defer r.s.lock(ctx)()

	out := make([]*domain.Dispute, 0)
	for _, d := range r.sorted() {
		if d.Status.IsTerminal() || d.Status == domain.DisputeStatusMediation {
			continue
		}
		if d.UpdatedAt.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *disputeRepository) List(ctx context.Context, filter domain.DisputeFilter) ([]*domain.Dispute, error) {
	defer r.s.lock(ctx)()

	out := make([]*domain.Dispute, 0)
	for _, d := range r.sorted() {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.TransactionID != nil && d.TransactionID != *filter.TransactionID {
			continue
		}
		if filter.AssignedTo != nil && (d.AssignedTo == nil || *d.AssignedTo != *filter.AssignedTo) {
			continue
		}
		out = append(out, d)
	}
	return page(out, filter.Limit, filter.Offset), nil
}

func (r *disputeRepository) CountByStatus(ctx context.Context) (map[domain.DisputeStatus]int, error) {
	defer r.s.lock(ctx)()

	counts := make(map[domain.DisputeStatus]int)
	for _, d := range r.s.disputes {
		counts[d.Status]++
	}
	return counts, nil
}

func (r *disputeRepository) CountByType(ctx context.Context) (map[domain.DisputeType]int, error) {
	defer r.s.lock(ctx)()

	counts := make(map[domain.DisputeType]int)
	for _, d := range r.s.disputes {
		counts[d.Type]++
	}
	return counts, nil
}

// sorted returns copies ordered by creation time, oldest first
func (r *disputeRepository) sorted() []*domain.Dispute {
	out := make([]*domain.Dispute, 0, len(r.s.disputes))
	for _, d := range r.s.disputes {
		out = append(out, cloneDispute(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
