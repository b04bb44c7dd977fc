package instruction

import (
	"errors"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// GenerateInstructions analyzes a settled escrow transaction and returns the movements
// the payment rail must perform to empty the hold.
//
// Logic:
//   - released / paid_out: worker payout, agency commission, platform share, unused buffer back to the business
//   - A dispute refund is taken from the worker payout down to the awarded adjustment,
//     then from the agency commission, then from the platform share
//   - failed with a refund (business_favor): the whole refund goes back to the business
//   - Any other state has nothing to settle yet
//
// Instruction IDs are derived from the transaction ID and kind, so regenerating is idempotent.
// Returns an error if the instructions do not add up to the escrow hold.
func GenerateInstructions(tx domain.Transaction) ([]domain.PayoutInstruction, error) {
	currency := tx.Currency()
	zero := domain.Zero(currency)

	switch tx.Status {
	case domain.TransactionStatusReleased, domain.TransactionStatusPaidOut:
	case domain.TransactionStatusFailed:
		if tx.BusinessRefund.Currency() == "" || !tx.BusinessRefund.IsPositive() {
			return []domain.PayoutInstruction{}, nil
		}
		business := tx.BusinessID
		return []domain.PayoutInstruction{
			newInstruction(tx.ID, domain.InstructionBusinessRefund, &business, tx.BusinessRefund),
		}, nil
	default:
		return nil, domain.NewInvalidStateError("Payout instructions are only available once funds are released")
	}

	refund := zero
	if tx.BusinessRefund.Currency() != "" {
		refund = tx.BusinessRefund
	}

	// Platform share is everything in the hold base that is not owed to the worker or agency
	base := tx.EscrowHold.Sub(tx.ContingencyBuffer)
	shares := []domain.Money{tx.AmountNet, tx.AgencyFee, base.Sub(tx.AmountNet).Sub(tx.AgencyFee)}

	// The worker keeps at least the amount the mediator awarded
	floors := []domain.Money{zero, zero, zero}
	if tx.WorkerAdjustment.Currency() != "" && tx.WorkerAdjustment.IsPositive() {
		floors[0] = tx.WorkerAdjustment
		if tx.AmountNet.LessThan(floors[0]) {
			floors[0] = tx.AmountNet
		}
	}

	// Deduct the refund in order: worker down to the award, agency, platform
	remaining := refund
	for i := range shares {
		if !remaining.IsPositive() {
			break
		}
		take := shares[i].Sub(floors[i])
		if !take.IsPositive() {
			continue
		}
		if remaining.LessThan(take) {
			take = remaining
		}
		shares[i] = shares[i].Sub(take)
		remaining = remaining.Sub(take)
	}
	if remaining.IsPositive() {
		return nil, errors.New("dispute refund exceeds the escrow hold")
	}

	worker := tx.WorkerID
	business := tx.BusinessID

	instructions := make([]domain.PayoutInstruction, 0, 5)
	add := func(kind domain.InstructionKind, recipient *uuid.UUID, amount domain.Money) {
		if amount.IsPositive() {
			instructions = append(instructions, newInstruction(tx.ID, kind, recipient, amount))
		}
	}

	add(domain.InstructionWorkerPayout, &worker, shares[0])
	add(domain.InstructionAgencyCommission, tx.AgencyID, shares[1])
	add(domain.InstructionPlatformFee, nil, shares[2])
	add(domain.InstructionBufferReturn, &business, tx.ContingencyBuffer)
	add(domain.InstructionBusinessRefund, &business, refund)

	// Safety check: every minor unit of the hold must be accounted for
	total := zero
	for _, in := range instructions {
		total = total.Add(in.Amount)
	}
	if !total.Equal(tx.EscrowHold) {
		return nil, errors.New("payout instructions do not equal the escrow hold")
	}

	return instructions, nil
}

func newInstruction(txID uuid.UUID, kind domain.InstructionKind, recipient *uuid.UUID, amount domain.Money) domain.PayoutInstruction {
	return domain.PayoutInstruction{
		ID:            uuid.NewSHA1(txID, []byte(kind)),
		TransactionID: txID,
		Kind:          kind,
		RecipientID:   recipient,
		Amount:        amount,
	}
}
