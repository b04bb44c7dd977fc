package escrow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/fees"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/instruction"
)

// OpenEscrowInput represents the input for opening an escrow hold
type OpenEscrowInput struct {
	Assignment domain.ShiftAssignment
	Gross      domain.Money
	Rates      fees.RateConfig
}

// Ledger owns every mutation of escrow transaction state
type Ledger struct {
	TxManager       domain.TxManager
	TransactionRepo domain.TransactionRepository
	DisputeRepo     domain.DisputeRepository
	Outbox          domain.OutboxRepository

	now func() time.Time
}

// NewLedger creates a new Ledger and the DisputeLink bound to it.
// The DisputeLink must only be handed to the dispute service.
func NewLedger(
	txManager domain.TxManager,
	transactionRepo domain.TransactionRepository,
	disputeRepo domain.DisputeRepository,
	outbox domain.OutboxRepository,
	now func() time.Time,
) (*Ledger, *DisputeLink) {
	if now == nil {
		now = time.Now
	}
	l := &Ledger{
		TxManager:       txManager,
		TransactionRepo: transactionRepo,
		DisputeRepo:     disputeRepo,
		Outbox:          outbox,
		now:             now,
	}
	return l, &DisputeLink{ledger: l}
}

// OpenEscrow computes the hold for a completed assignment and records it in escrow
// Logic:
//  1. Only the business, an admin or the system may open the hold
//  2. The assignment must be completed
//  3. Fee breakdown and hold come from the fee calculator
//  4. At most one non-terminal transaction may exist per assignment
//  5. Transaction + EscrowOpened event are written in one store transaction
func (l *Ledger) OpenEscrow(ctx context.Context, actor domain.Actor, input OpenEscrowInput) (*domain.Transaction, error) {
	a := input.Assignment
	if actor.ID != a.BusinessID && !actor.IsAdmin() && !actor.IsSystem() {
		return nil, domain.NewAuthorizationError("Only the business can place funds in escrow")
	}
	if a.Status != domain.AssignmentStatusCompleted {
		return nil, domain.NewInvalidStateError("Escrow can only be opened for a completed shift assignment")
	}

	breakdown, err := fees.Calculate(input.Gross, input.Rates)
	if err != nil {
		return nil, err
	}
	hold, err := fees.EscrowHold(input.Gross, input.Rates)
	if err != nil {
		return nil, err
	}

	now := l.now()
	currency := input.Gross.Currency()
	tx := &domain.Transaction{
		ID:                uuid.New(),
		ShiftID:           a.ShiftID,
		AssignmentID:      a.ID,
		WorkerID:          a.WorkerID,
		BusinessID:        a.BusinessID,
		AgencyID:          a.AgencyID,
		AmountGross:       breakdown.Gross,
		PlatformFee:       breakdown.PlatformFee,
		AgencyFee:         breakdown.AgencyFee,
		AmountNet:         breakdown.WorkerPayout,
		ContingencyBuffer: hold.Buffer,
		EscrowHold:        hold.Total,
		WorkerAdjustment:  domain.Zero(currency),
		BusinessRefund:    domain.Zero(currency),
		Status:            domain.TransactionStatusInEscrow,
		EscrowHeldAt:      &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tx.Validate(); err != nil {
		return nil, domain.NewValidationError("%s", err.Error())
	}

	err = l.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := l.TransactionRepo.FindActiveByAssignment(ctx, a.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			return errActiveEscrow
		}

		if err := l.TransactionRepo.Create(ctx, tx); err != nil {
			// Lost a race with a concurrent open on the same assignment
			if errors.Is(err, domain.ErrConflict) {
				return errActiveEscrow
			}
			return err
		}

		event := domain.NewEvent(domain.EventEscrowOpened, tx.ID, actor, now, tx.WorkerID, tx.BusinessID).
			With("escrow_hold", tx.EscrowHold.String()).
			With("amount_gross", tx.AmountGross.String())
		return l.Outbox.Enqueue(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	return tx, nil
}

var errActiveEscrow = domain.NewInvalidStateError("An active escrow transaction already exists for this assignment")

// Release marks held funds as released to be paid out.
// Allowed only from in_escrow and only when no open dispute references the transaction.
func (l *Ledger) Release(ctx context.Context, actor domain.Actor, txID uuid.UUID) (*domain.Transaction, error) {
	return l.mutate(ctx, txID, func(ctx context.Context, tx *domain.Transaction, now time.Time) ([]domain.Event, error) {
		if actor.ID != tx.BusinessID && !actor.IsAdmin() && !actor.IsSystem() {
			return nil, domain.NewAuthorizationError("Only the business can release escrowed funds")
		}
		if tx.Disputed || tx.Status == domain.TransactionStatusDisputed {
			return nil, domain.NewInvalidStateError("Funds are frozen by an open dispute")
		}
		if tx.Status != domain.TransactionStatusInEscrow {
			return nil, domain.NewInvalidStateError("Only funds held in escrow can be released")
		}

		active, err := l.DisputeRepo.FindActiveByTransaction(ctx, tx.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if active != nil {
			return nil, domain.NewInvalidStateError("Funds are frozen by an open dispute")
		}

		if err := domain.ValidateTransactionTransition(tx.Status, domain.TransactionStatusReleased); err != nil {
			return nil, err
		}
		tx.Status = domain.TransactionStatusReleased
		tx.ReleasedAt = &now

		return []domain.Event{
			domain.NewEvent(domain.EventEscrowReleased, tx.ID, actor, now, tx.WorkerID, tx.BusinessID).
				With("amount_net", tx.AmountNet.String()),
		}, nil
	})
}

// InitiatePayout records that the payment rail has started paying out released funds.
// Repeated calls return the current state.
func (l *Ledger) InitiatePayout(ctx context.Context, actor domain.Actor, txID uuid.UUID) (*domain.Transaction, error) {
	if err := requireOperator(actor); err != nil {
		return nil, err
	}
	return l.mutate(ctx, txID, func(ctx context.Context, tx *domain.Transaction, now time.Time) ([]domain.Event, error) {
		if tx.Status == domain.TransactionStatusPaidOut {
			return nil, nil
		}
		if tx.Status == domain.TransactionStatusReleased && tx.PayoutInitiatedAt != nil {
			return nil, nil
		}
		if tx.Status != domain.TransactionStatusReleased || tx.Disputed {
			return nil, domain.NewInvalidStateError("Payout requires released funds without an open dispute")
		}

		tx.PayoutInitiatedAt = &now
		return []domain.Event{
			domain.NewEvent(domain.EventPayoutInitiated, tx.ID, actor, now, tx.WorkerID),
		}, nil
	})
}

// CompletePayout finalizes a payout: released -> paid_out.
// Repeated calls return the current state.
func (l *Ledger) CompletePayout(ctx context.Context, actor domain.Actor, txID uuid.UUID) (*domain.Transaction, error) {
	if err := requireOperator(actor); err != nil {
		return nil, err
	}
	return l.mutate(ctx, txID, func(ctx context.Context, tx *domain.Transaction, now time.Time) ([]domain.Event, error) {
		if tx.Status == domain.TransactionStatusPaidOut {
			return nil, nil
		}
		if tx.Status != domain.TransactionStatusReleased || tx.Disputed {
			return nil, domain.NewInvalidStateError("Payout requires released funds without an open dispute")
		}
		if tx.PayoutInitiatedAt == nil {
			return nil, domain.NewInvalidStateError("Payout has not been initiated")
		}

		if err := domain.ValidateTransactionTransition(tx.Status, domain.TransactionStatusPaidOut); err != nil {
			return nil, err
		}
		tx.Status = domain.TransactionStatusPaidOut
		tx.PayoutCompletedAt = &now

		return []domain.Event{
			domain.NewEvent(domain.EventPayoutCompleted, tx.ID, actor, now, tx.WorkerID).
				With("amount_net", tx.AmountNet.String()),
		}, nil
	})
}

// FailPayout records that the payment rail rejected an initiated payout: released -> failed.
// Repeated calls return the current state.
func (l *Ledger) FailPayout(ctx context.Context, actor domain.Actor, txID uuid.UUID, reason string) (*domain.Transaction, error) {
	if err := requireOperator(actor); err != nil {
		return nil, err
	}
	return l.mutate(ctx, txID, func(ctx context.Context, tx *domain.Transaction, now time.Time) ([]domain.Event, error) {
		if tx.Status == domain.TransactionStatusFailed {
			return nil, nil
		}
		if tx.Status != domain.TransactionStatusReleased || tx.PayoutInitiatedAt == nil || tx.Disputed {
			return nil, domain.NewInvalidStateError("Only an initiated payout can fail")
		}

		if err := domain.ValidateTransactionTransition(tx.Status, domain.TransactionStatusFailed); err != nil {
			return nil, err
		}
		tx.Status = domain.TransactionStatusFailed

		return []domain.Event{
			domain.NewEvent(domain.EventPayoutFailed, tx.ID, actor, now, tx.WorkerID, tx.BusinessID).
				With("reason", reason),
		}, nil
	})
}

// FlagForReview marks an over-long hold for manual review. Funds are never released automatically.
// Returns false when the transaction no longer needs flagging.
func (l *Ledger) FlagForReview(ctx context.Context, actor domain.Actor, txID uuid.UUID) (bool, error) {
	if err := requireOperator(actor); err != nil {
		return false, err
	}
	flagged := false
	_, err := l.mutate(ctx, txID, func(ctx context.Context, tx *domain.Transaction, now time.Time) ([]domain.Event, error) {
		if tx.Status != domain.TransactionStatusInEscrow || tx.FlaggedForReviewAt != nil {
			return nil, nil
		}
		tx.FlaggedForReviewAt = &now
		flagged = true

		held := ""
		if tx.EscrowHeldAt != nil {
			held = tx.EscrowHeldAt.UTC().Format(time.RFC3339)
		}
		return []domain.Event{
			domain.NewEvent(domain.EventEscrowFlaggedForReview, tx.ID, actor, now).
				With("escrow_held_at", held),
		}, nil
	})
	return flagged, err
}

// GetTransaction returns a transaction visible to the actor
func (l *Ledger) GetTransaction(ctx context.Context, actor domain.Actor, txID uuid.UUID) (*domain.Transaction, error) {
	tx, err := l.TransactionRepo.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, tx) {
		return nil, domain.NewAuthorizationError("You are not a party to this transaction")
	}
	return tx, nil
}

// PayoutInstructions returns the settlement instructions for a transaction
func (l *Ledger) PayoutInstructions(ctx context.Context, actor domain.Actor, txID uuid.UUID) ([]domain.PayoutInstruction, error) {
	tx, err := l.GetTransaction(ctx, actor, txID)
	if err != nil {
		return nil, err
	}
	return instruction.GenerateInstructions(*tx)
}

type mutation func(ctx context.Context, tx *domain.Transaction, now time.Time) ([]domain.Event, error)

// mutate loads the transaction under lock, applies fn and persists it with the version check.
// A nil event slice from fn means nothing changed and the current state is returned.
func (l *Ledger) mutate(ctx context.Context, txID uuid.UUID, fn mutation) (*domain.Transaction, error) {
	var result *domain.Transaction
	err := l.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		tx, err := l.TransactionRepo.GetForUpdate(ctx, txID)
		if err != nil {
			return err
		}

		now := l.now()
		events, err := fn(ctx, tx, now)
		if err != nil {
			return err
		}
		result = tx
		if events == nil {
			return nil
		}

		tx.UpdatedAt = now
		if err := l.TransactionRepo.Update(ctx, tx); err != nil {
			return err
		}
		return l.Outbox.Enqueue(ctx, events...)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func requireOperator(actor domain.Actor) error {
	if !actor.IsAdmin() && !actor.IsSystem() {
		return domain.NewAuthorizationError("Only the payment system can manage payouts")
	}
	return nil
}

func canView(actor domain.Actor, tx *domain.Transaction) bool {
	if actor.IsAdmin() || actor.IsSystem() {
		return true
	}
	if actor.ID == tx.WorkerID || actor.ID == tx.BusinessID {
		return true
	}
	return tx.AgencyID != nil && actor.ID == *tx.AgencyID
}
