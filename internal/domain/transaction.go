package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the escrow lifecycle state of a shift payment
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusInEscrow TransactionStatus = "in_escrow"
	TransactionStatusReleased TransactionStatus = "released"
	TransactionStatusPaidOut  TransactionStatus = "paid_out"
	TransactionStatusDisputed TransactionStatus = "disputed"
	TransactionStatusFailed   TransactionStatus = "failed"
)

// IsTerminal reports whether no further transition is possible
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusPaidOut || s == TransactionStatusFailed
}

var transactionTransitions = map[TransactionStatus]map[TransactionStatus]bool{
	TransactionStatusPending:  {TransactionStatusInEscrow: true, TransactionStatusFailed: true},
	TransactionStatusInEscrow: {TransactionStatusReleased: true, TransactionStatusDisputed: true},
	TransactionStatusReleased: {TransactionStatusPaidOut: true, TransactionStatusDisputed: true, TransactionStatusFailed: true},
	TransactionStatusDisputed: {TransactionStatusReleased: true, TransactionStatusFailed: true},
}

// ValidateTransactionTransition returns an InvalidStateError when from -> to is not allowed
func ValidateTransactionTransition(from, to TransactionStatus) error {
	if transactionTransitions[from][to] {
		return nil
	}
	return NewInvalidStateError("transaction cannot move from %s to %s", from, to)
}

// Transaction is the escrow record of one shift assignment's payment
type Transaction struct {
	ID           uuid.UUID
	ShiftID      uuid.UUID
	AssignmentID uuid.UUID
	WorkerID     uuid.UUID
	BusinessID   uuid.UUID
	AgencyID     *uuid.UUID

	AmountGross       Money
	PlatformFee       Money
	AgencyFee         Money
	AmountNet         Money // what the worker is paid
	ContingencyBuffer Money // held on top of gross + platform fee, returned to the business if unused
	EscrowHold        Money // gross + platform fee + buffer

	// Set when a dispute is resolved
	WorkerAdjustment Money
	BusinessRefund   Money

	Status   TransactionStatus
	Disputed bool

	EscrowHeldAt       *time.Time
	ReleasedAt         *time.Time
	PayoutInitiatedAt  *time.Time
	PayoutCompletedAt  *time.Time
	FlaggedForReviewAt *time.Time

	Version   int64 // optimistic concurrency token, bumped by every store update
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Currency returns the settlement currency of the transaction
func (t *Transaction) Currency() Currency {
	return t.AmountGross.Currency()
}

// CanBeDisputed reports whether a dispute may be opened against the transaction
func (t *Transaction) CanBeDisputed() bool {
	return !t.Disputed && (t.Status == TransactionStatusInEscrow || t.Status == TransactionStatusReleased)
}

// Validate ensures the transaction adheres to the fee invariant
// CRITICAL: gross must always equal net + platform fee + agency fee
func (t *Transaction) Validate() error {
	if t.AssignmentID == uuid.Nil || t.WorkerID == uuid.Nil || t.BusinessID == uuid.Nil {
		return errors.New("transaction must reference an assignment, a worker and a business")
	}

	currency := t.AmountGross.Currency()
	if !currency.Valid() {
		return errors.New("transaction must have a valid currency")
	}
	for _, m := range []Money{t.PlatformFee, t.AgencyFee, t.AmountNet, t.ContingencyBuffer, t.EscrowHold} {
		if m.Currency() != currency {
			return errors.New("transaction amounts must share one currency")
		}
	}

	if !t.AmountGross.IsPositive() {
		return errors.New("transaction gross amount must be positive")
	}
	if t.AmountNet.IsNegative() || t.PlatformFee.IsNegative() || t.AgencyFee.IsNegative() {
		return errors.New("transaction amounts cannot be negative")
	}

	sum := t.AmountNet.Add(t.PlatformFee).Add(t.AgencyFee)
	if !sum.Equal(t.AmountGross) {
		return errors.New("gross amount must equal net amount plus platform and agency fees")
	}

	return nil
}
