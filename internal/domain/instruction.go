package domain

import (
	"github.com/google/uuid"
)

// InstructionKind is the purpose of a payout instruction
type InstructionKind string

const (
	InstructionWorkerPayout     InstructionKind = "worker_payout"
	InstructionAgencyCommission InstructionKind = "agency_commission"
	InstructionPlatformFee      InstructionKind = "platform_fee"
	InstructionBufferReturn     InstructionKind = "buffer_return"
	InstructionBusinessRefund   InstructionKind = "business_refund"
)

// PayoutInstruction represents one movement of held funds that the payment rail must settle.
// The engine only emits instructions; settlement happens outside of it.
type PayoutInstruction struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	Kind          InstructionKind
	RecipientID   *uuid.UUID // NULL for the platform itself
	Amount        Money
}
