package dispute

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/escrow"
)

// Policy holds the configurable limits of the dispute process
type Policy struct {
	MinimumAmount  decimal.Decimal // in major units of the transaction currency
	EvidenceWindow time.Duration
	StaleThreshold time.Duration
}

// DefaultPolicy returns the limits used when nothing is configured
func DefaultPolicy() Policy {
	return Policy{
		MinimumAmount:  decimal.NewFromInt(10),
		EvidenceWindow: 72 * time.Hour,
		StaleThreshold: 30 * 24 * time.Hour,
	}
}

// OpenDisputeInput represents the input for opening a dispute
type OpenDisputeInput struct {
	TransactionID  uuid.UUID
	Type           domain.DisputeType
	DisputedAmount domain.Money
	Description    string
	Evidence       []string // optional initial attachment references
}

// ResolveInput represents a mediator's decision
type ResolveInput struct {
	Resolution domain.Resolution
	Amount     *domain.Money // amount of the disputed sum awarded to the worker
	Notes      string
}

// DisputeService owns every mutation of dispute state
type DisputeService struct {
	TxManager       domain.TxManager
	DisputeRepo     domain.DisputeRepository
	TransactionRepo domain.TransactionRepository
	TimelineRepo    domain.TimelineRepository
	Outbox          domain.OutboxRepository

	link   *escrow.DisputeLink
	policy Policy
	now    func() time.Time
}

// NewDisputeService creates a new DisputeService instance
func NewDisputeService(
	txManager domain.TxManager,
	disputeRepo domain.DisputeRepository,
	transactionRepo domain.TransactionRepository,
	timelineRepo domain.TimelineRepository,
	outbox domain.OutboxRepository,
	link *escrow.DisputeLink,
	policy Policy,
	now func() time.Time,
) *DisputeService {
	if now == nil {
		now = time.Now
	}
	return &DisputeService{
		TxManager:       txManager,
		DisputeRepo:     disputeRepo,
		TransactionRepo: transactionRepo,
		TimelineRepo:    timelineRepo,
		Outbox:          outbox,
		link:            link,
		policy:          policy,
		now:             now,
	}
}

// Policy returns the limits the service enforces
func (s *DisputeService) Policy() Policy {
	return s.policy
}

// OpenDispute lets the worker contest the payment of a shift
// Logic:
//  1. Only the worker on the transaction may open a dispute
//  2. Validate type, description and disputedAmount in [minimum, gross]
//  3. Reject a second non-terminal dispute on the same transaction (ConflictError)
//  4. Create the dispute with evidenceDeadline = now + evidence window
//  5. Freeze the transaction through the DisputeLink
//  6. Write the "opened" timeline entry and notify the business
//
// Steps 3-6 run in one store transaction.
func (s *DisputeService) OpenDispute(ctx context.Context, actor domain.Actor, input OpenDisputeInput) (*domain.Dispute, error) {
	if !input.Type.Valid() {
		return nil, domain.NewValidationError("Unknown dispute type %q", string(input.Type))
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, domain.NewValidationError("A description of the dispute is required")
	}
	evidence, err := cleanReferences(input.Evidence, true)
	if err != nil {
		return nil, err
	}

	var created *domain.Dispute
	err = s.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		tx, err := s.TransactionRepo.GetForUpdate(ctx, input.TransactionID)
		if err != nil {
			return err
		}
		if actor.Role != domain.RoleWorker || actor.ID != tx.WorkerID {
			return domain.NewAuthorizationError("Only the worker on this shift can open a dispute")
		}
		if err := s.validateAmount(tx, input.DisputedAmount); err != nil {
			return err
		}

		active, err := s.DisputeRepo.FindActiveByTransaction(ctx, tx.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if active != nil {
			return errActiveDispute
		}

		now := s.now()
		d := &domain.Dispute{
			ID:                uuid.New(),
			ShiftID:           tx.ShiftID,
			WorkerID:          tx.WorkerID,
			BusinessID:        tx.BusinessID,
			TransactionID:     tx.ID,
			Type:              input.Type,
			DisputedAmount:    input.DisputedAmount,
			WorkerDescription: description,
			EvidenceWorker:    evidence,
			Status:            domain.DisputeStatusOpen,
			EvidenceDeadline:  now.Add(s.policy.EvidenceWindow),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := d.Validate(); err != nil {
			return err
		}

		if err := s.DisputeRepo.Create(ctx, d); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return errActiveDispute
			}
			return err
		}
		if _, err := s.link.MarkDisputed(ctx, actor, tx.ID); err != nil {
			return err
		}

		event := domain.NewEvent(domain.EventDisputeOpened, d.ID, actor, now, d.BusinessID).
			With("transaction_id", tx.ID.String()).
			With("type", string(d.Type)).
			With("disputed_amount", d.DisputedAmount.String())
		if err := s.record(ctx, d, domain.TimelineOpened, actor, now, map[string]string{
			"type":            string(d.Type),
			"disputed_amount": d.DisputedAmount.String(),
		}, event); err != nil {
			return err
		}

		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

var errActiveDispute = domain.NewConflictError("An active dispute already exists for this transaction")

func (s *DisputeService) validateAmount(tx *domain.Transaction, amount domain.Money) error {
	if amount.Currency() != tx.Currency() {
		return domain.NewValidationError("Disputed amount must be in %s", string(tx.Currency()))
	}
	minimum := domain.FromDecimal(s.policy.MinimumAmount, tx.Currency())
	if amount.LessThan(minimum) {
		return domain.NewValidationError("Disputed amount must be at least %s", minimum.Format())
	}
	if amount.GreaterThan(tx.AmountGross) {
		return domain.NewValidationError("Disputed amount cannot exceed the transaction amount")
	}
	return nil
}

// SubmitBusinessResponse records the business's answer. Allowed once; moves open -> under_review.
func (s *DisputeService) SubmitBusinessResponse(ctx context.Context, actor domain.Actor, disputeID uuid.UUID, response string) (*domain.Dispute, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, domain.NewValidationError("A response is required")
	}

	return s.mutate(ctx, disputeID, func(ctx context.Context, d *domain.Dispute, now time.Time) error {
		if actor.ID != d.BusinessID {
			return domain.NewAuthorizationError("Only the business on this shift can respond to the dispute")
		}
		if d.Status.IsTerminal() {
			return domain.NewInvalidStateError("This dispute is already closed")
		}
		if d.HasResponded() {
			return domain.NewConflictError("You have already responded to this dispute")
		}

		d.BusinessResponse = &response
		if d.Status == domain.DisputeStatusOpen {
			d.Status = domain.DisputeStatusUnderReview
		}

		event := domain.NewEvent(domain.EventDisputeResponseSubmitted, d.ID, actor, now, d.WorkerID)
		return s.record(ctx, d, domain.TimelineBusinessResponded, actor, now, nil, event)
	})
}

// SubmitEvidence appends attachment references to the caller's side of the dispute.
// The side is derived from the caller's identity on the dispute, never from input.
func (s *DisputeService) SubmitEvidence(ctx context.Context, actor domain.Actor, disputeID uuid.UUID, references []string) (*domain.Dispute, error) {
	refs, err := cleanReferences(references, false)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, disputeID, func(ctx context.Context, d *domain.Dispute, now time.Time) error {
		role, ok := d.PartyRole(actor.ID)
		if !ok {
			return domain.NewAuthorizationError("You are not a party to this dispute")
		}
		if d.Status.IsTerminal() {
			return domain.NewInvalidStateError("This dispute is already closed")
		}
		if !now.Before(d.EvidenceDeadline) {
			return domain.NewDeadlineExceededError("The evidence deadline has passed")
		}

		action := domain.TimelineWorkerEvidence
		notify := d.BusinessID
		if role == domain.RoleWorker {
			d.EvidenceWorker = append(d.EvidenceWorker, refs...)
		} else {
			d.EvidenceBusiness = append(d.EvidenceBusiness, refs...)
			action = domain.TimelineBusinessEvidence
			notify = d.WorkerID
		}

		event := domain.NewEvent(domain.EventDisputeEvidenceSubmitted, d.ID, actor, now, notify).
			With("party", string(role))
		return s.record(ctx, d, action, actor, now, map[string]string{
			"files": strings.Join(refs, ","),
		}, event)
	})
}

// AssignMediator assigns the calling administrator as mediator and moves the dispute to mediation
func (s *DisputeService) AssignMediator(ctx context.Context, actor domain.Actor, disputeID uuid.UUID) (*domain.Dispute, error) {
	if !actor.IsAdmin() {
		return nil, domain.NewAuthorizationError("Only administrators can mediate disputes")
	}

	return s.mutate(ctx, disputeID, func(ctx context.Context, d *domain.Dispute, now time.Time) error {
		if err := domain.ValidateDisputeTransition(d.Status, domain.DisputeStatusMediation); err != nil {
			return err
		}
		mediator := actor.ID
		d.AssignedTo = &mediator
		d.Status = domain.DisputeStatusMediation

		event := domain.NewEvent(domain.EventDisputeMediatorAssigned, d.ID, actor, now, d.WorkerID, d.BusinessID).
			With("mediator_id", mediator.String())
		return s.record(ctx, d, domain.TimelineAssigned, actor, now, map[string]string{
			"mediator_id": mediator.String(),
		}, event)
	})
}

// ResolveDispute records the mediator's decision and applies it to the transaction
// Logic:
//  1. Only administrators may resolve, and only non-final disputes
//  2. resolutionAmount must be within [0, disputedAmount]
//     (worker_favor defaults to the full disputed amount, business_favor to zero)
//  3. The transaction leaves disputed through the DisputeLink:
//     worker_favor/split -> released with the unawarded part refunded, business_favor -> failed
func (s *DisputeService) ResolveDispute(ctx context.Context, actor domain.Actor, disputeID uuid.UUID, input ResolveInput) (*domain.Dispute, error) {
	if !actor.IsAdmin() {
		return nil, domain.NewAuthorizationError("Only administrators can resolve disputes")
	}
	if !input.Resolution.IsMediatorDecision() {
		return nil, domain.NewValidationError("Resolution must be worker_favor, business_favor or split")
	}

	return s.mutate(ctx, disputeID, func(ctx context.Context, d *domain.Dispute, now time.Time) error {
		if d.Status.IsTerminal() {
			return domain.NewInvalidStateError("This dispute has already been resolved")
		}

		amount, err := resolutionAmount(d, input)
		if err != nil {
			return err
		}

		d.Status = domain.DisputeStatusResolved
		d.Resolution = input.Resolution
		d.ResolutionAmount = &amount
		d.ResolutionNotes = strings.TrimSpace(input.Notes)
		d.ResolvedAt = &now
		if err := d.Validate(); err != nil {
			return err
		}

		if _, err := s.link.ClearDispute(ctx, actor, d.TransactionID, escrow.Outcome{
			Resolution:       input.Resolution,
			WorkerAdjustment: amount,
			BusinessRefund:   d.DisputedAmount.Sub(amount),
		}); err != nil {
			return err
		}

		event := domain.NewEvent(domain.EventDisputeResolved, d.ID, actor, now, d.WorkerID, d.BusinessID).
			With("resolution", string(d.Resolution)).
			With("resolution_amount", amount.String())
		return s.record(ctx, d, domain.TimelineResolved, actor, now, map[string]string{
			"resolution":        string(d.Resolution),
			"resolution_amount": amount.String(),
		}, event)
	})
}

func resolutionAmount(d *domain.Dispute, input ResolveInput) (domain.Money, error) {
	currency := d.DisputedAmount.Currency()

	var amount domain.Money
	switch {
	case input.Amount != nil:
		amount = *input.Amount
	case input.Resolution == domain.ResolutionWorkerFavor:
		amount = d.DisputedAmount
	case input.Resolution == domain.ResolutionBusinessFavor:
		amount = domain.Zero(currency)
	default:
		return domain.Money{}, domain.NewValidationError("A split resolution requires an amount")
	}

	if amount.Currency() != currency {
		return domain.Money{}, domain.NewValidationError("Resolution amount must be in %s", string(currency))
	}
	if amount.IsNegative() {
		return domain.Money{}, domain.NewValidationError("Resolution amount cannot be negative")
	}
	if amount.GreaterThan(d.DisputedAmount) {
		return domain.Money{}, domain.NewValidationError("Resolution amount cannot exceed the disputed amount")
	}
	return amount, nil
}

// EscalateDispute moves a non-final dispute to escalated. Either party or an administrator may escalate.
func (s *DisputeService) EscalateDispute(ctx context.Context, actor domain.Actor, disputeID uuid.UUID, reason string) (*domain.Dispute, error) {
	return s.mutate(ctx, disputeID, func(ctx context.Context, d *domain.Dispute, now time.Time) error {
		if _, ok := d.PartyRole(actor.ID); !ok && !actor.IsAdmin() {
			return domain.NewAuthorizationError("You are not a party to this dispute")
		}
		if err := domain.ValidateDisputeTransition(d.Status, domain.DisputeStatusEscalated); err != nil {
			return domain.NewInvalidStateError("This dispute cannot be escalated")
		}
		d.Status = domain.DisputeStatusEscalated

		event := domain.NewEvent(domain.EventDisputeEscalated, d.ID, actor, now, d.WorkerID, d.BusinessID)
		return s.record(ctx, d, domain.TimelineEscalated, actor, now, map[string]string{
			"reason": strings.TrimSpace(reason),
		}, event)
	})
}

// WithdrawDispute lets the worker drop a non-final dispute; the transaction is released unchanged
func (s *DisputeService) WithdrawDispute(ctx context.Context, actor domain.Actor, disputeID uuid.UUID) (*domain.Dispute, error) {
	return s.mutate(ctx, disputeID, func(ctx context.Context, d *domain.Dispute, now time.Time) error {
		if actor.ID != d.WorkerID {
			return domain.NewAuthorizationError("Only the worker who opened the dispute can withdraw it")
		}
		if err := domain.ValidateDisputeTransition(d.Status, domain.DisputeStatusClosed); err != nil {
			return domain.NewInvalidStateError("This dispute can no longer be withdrawn")
		}

		d.Status = domain.DisputeStatusClosed
		d.Resolution = domain.ResolutionWithdrawn
		d.ResolvedAt = &now

		if _, err := s.link.ClearDispute(ctx, actor, d.TransactionID, escrow.Outcome{
			Resolution: domain.ResolutionWithdrawn,
		}); err != nil {
			return err
		}

		event := domain.NewEvent(domain.EventDisputeWithdrawn, d.ID, actor, now, d.BusinessID)
		return s.record(ctx, d, domain.TimelineWithdrawn, actor, now, nil, event)
	})
}

// GetDispute returns a dispute visible to the actor
func (s *DisputeService) GetDispute(ctx context.Context, actor domain.Actor, disputeID uuid.UUID) (*domain.Dispute, error) {
	d, err := s.DisputeRepo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, d); err != nil {
		return nil, err
	}
	return d, nil
}

func canView(actor domain.Actor, d *domain.Dispute) error {
	if actor.IsAdmin() || actor.IsSystem() {
		return nil
	}
	if _, ok := d.PartyRole(actor.ID); ok {
		return nil
	}
	return domain.NewAuthorizationError("You are not a party to this dispute")
}

type mutation func(ctx context.Context, d *domain.Dispute, now time.Time) error

// mutate loads the dispute under lock, applies fn and persists it with the version check
func (s *DisputeService) mutate(ctx context.Context, disputeID uuid.UUID, fn mutation) (*domain.Dispute, error) {
	var result *domain.Dispute
	err := s.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.DisputeRepo.GetForUpdate(ctx, disputeID)
		if err != nil {
			return err
		}

		now := s.now()
		if err := fn(ctx, d, now); err != nil {
			return err
		}

		d.UpdatedAt = now
		if err := s.DisputeRepo.Update(ctx, d); err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// record appends a timeline entry and enqueues the events in the current store transaction
func (s *DisputeService) record(ctx context.Context, d *domain.Dispute, action domain.TimelineAction, actor domain.Actor, now time.Time, metadata map[string]string, events ...domain.Event) error {
	entry := domain.NewTimelineEntry(d.ID, action, actor, now, metadata)
	if err := s.TimelineRepo.Append(ctx, entry); err != nil {
		return err
	}
	return s.Outbox.Enqueue(ctx, events...)
}

func cleanReferences(refs []string, allowEmpty bool) ([]string, error) {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return nil, domain.NewValidationError("Evidence references cannot be blank")
		}
		out = append(out, ref)
	}
	if len(out) == 0 && !allowEmpty {
		return nil, domain.NewValidationError("At least one evidence file is required")
	}
	return out, nil
}
