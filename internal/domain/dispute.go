package domain

import (
	"time"

	"github.com/google/uuid"
)

// DisputeType is the category a worker picks when contesting a payment
type DisputeType string

const (
	DisputeTypePayment DisputeType = "payment"
	DisputeTypeQuality DisputeType = "quality"
	DisputeTypeNoShow  DisputeType = "no_show"
	DisputeTypeOther   DisputeType = "other"
)

func (t DisputeType) Valid() bool {
	switch t {
	case DisputeTypePayment, DisputeTypeQuality, DisputeTypeNoShow, DisputeTypeOther:
		return true
	default:
		return false
	}
}

// DisputeStatus is the lifecycle state of a dispute
type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusMediation   DisputeStatus = "mediation"
	DisputeStatusEscalated   DisputeStatus = "escalated"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusClosed      DisputeStatus = "closed"
)

// IsTerminal reports whether the dispute is final
func (s DisputeStatus) IsTerminal() bool {
	return s == DisputeStatusResolved || s == DisputeStatusClosed
}

// NonTerminalDisputeStatuses lists every status in which a dispute is still active
var NonTerminalDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusUnderReview,
	DisputeStatusMediation,
	DisputeStatusEscalated,
}

var disputeTransitions = map[DisputeStatus]map[DisputeStatus]bool{
	DisputeStatusOpen:        {DisputeStatusUnderReview: true, DisputeStatusMediation: true, DisputeStatusEscalated: true, DisputeStatusResolved: true, DisputeStatusClosed: true},
	DisputeStatusUnderReview: {DisputeStatusMediation: true, DisputeStatusEscalated: true, DisputeStatusResolved: true, DisputeStatusClosed: true},
	DisputeStatusMediation:   {DisputeStatusMediation: true, DisputeStatusEscalated: true, DisputeStatusResolved: true, DisputeStatusClosed: true},
	DisputeStatusEscalated:   {DisputeStatusMediation: true, DisputeStatusEscalated: true, DisputeStatusResolved: true, DisputeStatusClosed: true},
}

// ValidateDisputeTransition returns an InvalidStateError when from -> to is not allowed
func ValidateDisputeTransition(from, to DisputeStatus) error {
	if disputeTransitions[from][to] {
		return nil
	}
	return NewInvalidStateError("dispute cannot move from %s to %s", from, to)
}

// Resolution is the final outcome of a dispute
type Resolution string

const (
	ResolutionWorkerFavor   Resolution = "worker_favor"
	ResolutionBusinessFavor Resolution = "business_favor"
	ResolutionSplit         Resolution = "split"
	ResolutionWithdrawn     Resolution = "withdrawn"
	ResolutionExpired       Resolution = "expired"
)

// IsMediatorDecision reports whether a mediator may pick this resolution.
// withdrawn and expired are reached through their own operations only.
func (r Resolution) IsMediatorDecision() bool {
	switch r {
	case ResolutionWorkerFavor, ResolutionBusinessFavor, ResolutionSplit:
		return true
	default:
		return false
	}
}

// Dispute is a contest over one escrow transaction
type Dispute struct {
	ID            uuid.UUID
	ShiftID       uuid.UUID
	WorkerID      uuid.UUID
	BusinessID    uuid.UUID
	TransactionID uuid.UUID

	Type              DisputeType
	DisputedAmount    Money
	WorkerDescription string
	BusinessResponse  *string // NULL until the business responds
	EvidenceWorker    []string
	EvidenceBusiness  []string

	Status           DisputeStatus
	Resolution       Resolution // empty until the dispute is final
	ResolutionAmount *Money
	ResolutionNotes  string
	AssignedTo       *uuid.UUID

	EvidenceDeadline time.Time
	ResolvedAt       *time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PartyRole returns the role the user plays on this dispute
func (d *Dispute) PartyRole(userID uuid.UUID) (Role, bool) {
	switch userID {
	case d.WorkerID:
		return RoleWorker, true
	case d.BusinessID:
		return RoleBusiness, true
	default:
		return "", false
	}
}

// HasResponded reports whether the business has already answered
func (d *Dispute) HasResponded() bool {
	return d.BusinessResponse != nil
}

// Validate checks the resolution invariants
func (d *Dispute) Validate() error {
	if !d.Type.Valid() {
		return NewValidationError("unknown dispute type %q", string(d.Type))
	}
	if !d.DisputedAmount.IsPositive() {
		return NewValidationError("Disputed amount must be positive")
	}
	if d.ResolutionAmount != nil {
		if d.ResolutionAmount.IsNegative() || d.ResolutionAmount.GreaterThan(d.DisputedAmount) {
			return NewValidationError("Resolution amount must be between %s and %s",
				Zero(d.DisputedAmount.Currency()).Format(), d.DisputedAmount.Format())
		}
	}
	if d.Status == DisputeStatusResolved && (d.Resolution == "" || d.ResolvedAt == nil) {
		return NewInvalidStateError("resolved dispute must carry a resolution and a resolution time")
	}
	return nil
}
