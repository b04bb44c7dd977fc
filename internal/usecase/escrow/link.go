package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// Outcome is the effect of a dispute resolution on the underlying transaction
type Outcome struct {
	Resolution       domain.Resolution
	WorkerAdjustment domain.Money // part of the disputed amount confirmed for the worker
	BusinessRefund   domain.Money // amount returned to the business
}

// DisputeLink is the only writer of the dispute linkage on a transaction.
// It is created together with the Ledger and handed only to the dispute service.
// Both methods join the caller's store transaction when one is open.
type DisputeLink struct {
	ledger *Ledger
}

// MarkDisputed freezes a transaction: in_escrow/released -> disputed
func (d *DisputeLink) MarkDisputed(ctx context.Context, actor domain.Actor, txID uuid.UUID) (*domain.Transaction, error) {
	return d.ledger.mutate(ctx, txID, func(ctx context.Context, tx *domain.Transaction, now time.Time) ([]domain.Event, error) {
		if !tx.CanBeDisputed() {
			return nil, domain.NewInvalidStateError("This transaction cannot be disputed")
		}
		if err := domain.ValidateTransactionTransition(tx.Status, domain.TransactionStatusDisputed); err != nil {
			return nil, err
		}
		tx.Status = domain.TransactionStatusDisputed
		tx.Disputed = true

		// DisputeOpened is emitted by the dispute service
		return []domain.Event{}, nil
	})
}

// ClearDispute applies a resolution outcome to a disputed transaction
// Logic:
//   - business_favor: disputed -> failed, the whole hold is refunded to the business
//   - any other outcome: disputed -> released with the worker adjustment and partial refund recorded
func (d *DisputeLink) ClearDispute(ctx context.Context, actor domain.Actor, txID uuid.UUID, outcome Outcome) (*domain.Transaction, error) {
	return d.ledger.mutate(ctx, txID, func(ctx context.Context, tx *domain.Transaction, now time.Time) ([]domain.Event, error) {
		if tx.Status != domain.TransactionStatusDisputed || !tx.Disputed {
			return nil, domain.NewInvalidStateError("Transaction is not disputed")
		}

		currency := tx.Currency()
		tx.Disputed = false
		tx.WorkerAdjustment = domain.Zero(currency)
		tx.BusinessRefund = domain.Zero(currency)

		if outcome.Resolution == domain.ResolutionBusinessFavor {
			if err := domain.ValidateTransactionTransition(tx.Status, domain.TransactionStatusFailed); err != nil {
				return nil, err
			}
			tx.Status = domain.TransactionStatusFailed
			tx.BusinessRefund = tx.EscrowHold
			return []domain.Event{}, nil
		}

		if outcome.WorkerAdjustment.Currency() == currency {
			tx.WorkerAdjustment = outcome.WorkerAdjustment
		}
		if outcome.BusinessRefund.Currency() == currency {
			if outcome.BusinessRefund.GreaterThan(tx.AmountGross) {
				return nil, domain.NewValidationError("Refund cannot exceed the transaction amount")
			}
			tx.BusinessRefund = outcome.BusinessRefund
		}

		if err := domain.ValidateTransactionTransition(tx.Status, domain.TransactionStatusReleased); err != nil {
			return nil, err
		}
		tx.Status = domain.TransactionStatusReleased
		if tx.ReleasedAt == nil {
			tx.ReleasedAt = &now
		}

		return []domain.Event{
			domain.NewEvent(domain.EventEscrowReleased, tx.ID, actor, now, tx.WorkerID, tx.BusinessID).
				With("resolution", string(outcome.Resolution)).
				With("business_refund", tx.BusinessRefund.String()),
		}, nil
	})
}
