package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	s *Store
}

func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	defer r.s.lock(ctx)()

	if _, exists := r.s.transactions[tx.ID]; exists {
		return domain.NewConflictError("transaction %s already exists", tx.ID)
	}
	for _, existing := range r.s.transactions {
		if existing.AssignmentID == tx.AssignmentID && !existing.Status.IsTerminal() {
			return domain.NewConflictError("an active transaction already exists for assignment %s", tx.AssignmentID)
		}
	}

	tx.Version = 1
	r.s.transactions[tx.ID] = *tx
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	defer r.s.lock(ctx)()

	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, domain.NewNotFoundError("transaction not found")
	}
	return &tx, nil
}

func (r *transactionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.GetByID(ctx, id)
}

func (r *transactionRepository) FindActiveByAssignment(ctx context.Context, assignmentID uuid.UUID) (*domain.Transaction, error) {
	defer r.s.lock(ctx)()

	for _, tx := range r.s.transactions {
		if tx.AssignmentID == assignmentID && !tx.Status.IsTerminal() {
			found := tx
			return &found, nil
		}
	}
	return nil, domain.NewNotFoundError("no active transaction for assignment")
}

func (r *transactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	defer r.s.lock(ctx)()

	stored, ok := r.s.transactions[tx.ID]
	if !ok {
		return domain.NewNotFoundError("transaction not found")
	}
	if stored.Version != tx.Version {
		return domain.NewConflictError("The transaction was modified by another request")
	}

	tx.Version++
	r.s.transactions[tx.ID] = *tx
	return nil
}

func (r *transactionRepository) ListOverdueHolds(ctx context.Context, cutoff time.Time) ([]*domain.Transaction, error) {
	defer r.s.lock(ctx)()

	out := make([]*domain.Transaction, 0)
	for _, tx := range r.sorted() {
		if tx.Status != domain.TransactionStatusInEscrow || tx.FlaggedForReviewAt != nil {
			continue
		}
		if tx.EscrowHeldAt != nil && tx.EscrowHeldAt.Before(cutoff) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *transactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	defer r.s.lock(ctx)()

	out := make([]*domain.Transaction, 0)
	for _, tx := range r.sorted() {
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if filter.WorkerID != nil && tx.WorkerID != *filter.WorkerID {
			continue
		}
		if filter.BusinessID != nil && tx.BusinessID != *filter.BusinessID {
			continue
		}
		out = append(out, tx)
	}
	return page(out, filter.Limit, filter.Offset), nil
}

func (r *transactionRepository) CountByStatus(ctx context.Context) (map[domain.TransactionStatus]int, error) {
	defer r.s.lock(ctx)()

	counts := make(map[domain.TransactionStatus]int)
	for _, tx := range r.s.transactions {
		counts[tx.Status]++
	}
	return counts, nil
}

func (r *transactionRepository) HeldTotals(ctx context.Context) (map[domain.Currency]domain.Money, error) {
	defer r.s.lock(ctx)()

	totals := make(map[domain.Currency]domain.Money)
	for _, tx := range r.s.transactions {
		switch tx.Status {
		case domain.TransactionStatusInEscrow, domain.TransactionStatusReleased, domain.TransactionStatusDisputed:
		default:
			continue
		}
		c := tx.Currency()
		sum, ok := totals[c]
		if !ok {
			sum = domain.Zero(c)
		}
		totals[c] = sum.Add(tx.EscrowHold)
	}
	return totals, nil
}

// sorted returns copies ordered by creation time, newest first
func (r *transactionRepository) sorted() []*domain.Transaction {
	out := make([]*domain.Transaction, 0, len(r.s.transactions))
	for _, tx := range r.s.transactions {
		c := tx
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
