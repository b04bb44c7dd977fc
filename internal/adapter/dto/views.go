// Package dto holds the JSON shapes shared by the gRPC and HTTP transports
package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/dashboard"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/dispute"
)

// Money is an amount as a fixed-point decimal string plus currency
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// NewMoney renders m with exactly the currency's minor-unit digits
func NewMoney(m domain.Money) Money {
	return Money{
		Amount:   m.Decimal().StringFixed(m.Currency().Exponent()),
		Currency: string(m.Currency()),
	}
}

// Parse converts the wire form back to domain Money
func (m Money) Parse() (domain.Money, error) {
	currency, err := domain.ParseCurrency(m.Currency)
	if err != nil {
		return domain.Money{}, err
	}
	return domain.ParseMoney(m.Amount, currency)
}

type Transaction struct {
	ID                 string     `json:"id"`
	ShiftID            string     `json:"shift_id"`
	AssignmentID       string     `json:"assignment_id"`
	WorkerID           string     `json:"worker_id"`
	BusinessID         string     `json:"business_id"`
	AgencyID           string     `json:"agency_id,omitempty"`
	AmountGross        Money      `json:"amount_gross"`
	PlatformFee        Money      `json:"platform_fee"`
	AgencyFee          Money      `json:"agency_fee"`
	AmountNet          Money      `json:"amount_net"`
	ContingencyBuffer  Money      `json:"contingency_buffer"`
	EscrowHold         Money      `json:"escrow_hold"`
	WorkerAdjustment   Money      `json:"worker_adjustment"`
	BusinessRefund     Money      `json:"business_refund"`
	Status             string     `json:"status"`
	Disputed           bool       `json:"disputed"`
	EscrowHeldAt       *time.Time `json:"escrow_held_at,omitempty"`
	ReleasedAt         *time.Time `json:"released_at,omitempty"`
	PayoutInitiatedAt  *time.Time `json:"payout_initiated_at,omitempty"`
	PayoutCompletedAt  *time.Time `json:"payout_completed_at,omitempty"`
	FlaggedForReviewAt *time.Time `json:"flagged_for_review_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func NewTransaction(tx *domain.Transaction) *Transaction {
	return &Transaction{
		ID:                 tx.ID.String(),
		ShiftID:            tx.ShiftID.String(),
		AssignmentID:       tx.AssignmentID.String(),
		WorkerID:           tx.WorkerID.String(),
		BusinessID:         tx.BusinessID.String(),
		AgencyID:           optionalID(tx.AgencyID),
		AmountGross:        NewMoney(tx.AmountGross),
		PlatformFee:        NewMoney(tx.PlatformFee),
		AgencyFee:          NewMoney(tx.AgencyFee),
		AmountNet:          NewMoney(tx.AmountNet),
		ContingencyBuffer:  NewMoney(tx.ContingencyBuffer),
		EscrowHold:         NewMoney(tx.EscrowHold),
		WorkerAdjustment:   NewMoney(tx.WorkerAdjustment),
		BusinessRefund:     NewMoney(tx.BusinessRefund),
		Status:             string(tx.Status),
		Disputed:           tx.Disputed,
		EscrowHeldAt:       tx.EscrowHeldAt,
		ReleasedAt:         tx.ReleasedAt,
		PayoutInitiatedAt:  tx.PayoutInitiatedAt,
		PayoutCompletedAt:  tx.PayoutCompletedAt,
		FlaggedForReviewAt: tx.FlaggedForReviewAt,
		CreatedAt:          tx.CreatedAt,
		UpdatedAt:          tx.UpdatedAt,
	}
}

type Dispute struct {
	ID                string     `json:"id"`
	ShiftID           string     `json:"shift_id"`
	WorkerID          string     `json:"worker_id"`
	BusinessID        string     `json:"business_id"`
	TransactionID     string     `json:"transaction_id"`
	Type              string     `json:"type"`
	DisputedAmount    Money      `json:"disputed_amount"`
	WorkerDescription string     `json:"worker_description"`
	BusinessResponse  *string    `json:"business_response,omitempty"`
	EvidenceWorker    []string   `json:"evidence_worker"`
	EvidenceBusiness  []string   `json:"evidence_business"`
	Status            string     `json:"status"`
	Resolution        string     `json:"resolution,omitempty"`
	ResolutionAmount  *Money     `json:"resolution_amount,omitempty"`
	ResolutionNotes   string     `json:"resolution_notes,omitempty"`
	AssignedTo        string     `json:"assigned_to,omitempty"`
	EvidenceDeadline  time.Time  `json:"evidence_deadline"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func NewDispute(d *domain.Dispute) *Dispute {
	view := &Dispute{
		ID:                d.ID.String(),
		ShiftID:           d.ShiftID.String(),
		WorkerID:          d.WorkerID.String(),
		BusinessID:        d.BusinessID.String(),
		TransactionID:     d.TransactionID.String(),
		Type:              string(d.Type),
		DisputedAmount:    NewMoney(d.DisputedAmount),
		WorkerDescription: d.WorkerDescription,
		BusinessResponse:  d.BusinessResponse,
		EvidenceWorker:    nonNil(d.EvidenceWorker),
		EvidenceBusiness:  nonNil(d.EvidenceBusiness),
		Status:            string(d.Status),
		Resolution:        string(d.Resolution),
		ResolutionNotes:   d.ResolutionNotes,
		AssignedTo:        optionalID(d.AssignedTo),
		EvidenceDeadline:  d.EvidenceDeadline,
		ResolvedAt:        d.ResolvedAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	if d.ResolutionAmount != nil {
		m := NewMoney(*d.ResolutionAmount)
		view.ResolutionAmount = &m
	}
	return view
}

type TimelineEntry struct {
	Seq       int64             `json:"seq"`
	Action    string            `json:"action"`
	ActorID   string            `json:"actor_id"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func NewTimeline(entries []*domain.TimelineEntry) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, TimelineEntry{
			Seq:       e.Seq,
			Action:    string(e.Action),
			ActorID:   e.ActorID.String(),
			Timestamp: e.Timestamp,
			Metadata:  e.Metadata,
		})
	}
	return out
}

type PayoutInstruction struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	RecipientID string `json:"recipient_id,omitempty"`
	Amount      Money  `json:"amount"`
}

func NewInstructions(instructions []domain.PayoutInstruction) []PayoutInstruction {
	out := make([]PayoutInstruction, 0, len(instructions))
	for _, in := range instructions {
		out = append(out, PayoutInstruction{
			ID:          in.ID.String(),
			Kind:        string(in.Kind),
			RecipientID: optionalID(in.RecipientID),
			Amount:      NewMoney(in.Amount),
		})
	}
	return out
}

type Recommendation struct {
	DisputeID       string `json:"dispute_id"`
	WorkerPercent   int64  `json:"worker_percent"`
	BusinessPercent int64  `json:"business_percent"`
	WorkerAmount    Money  `json:"worker_amount"`
	BusinessAmount  Money  `json:"business_amount"`
	Basis           string `json:"basis"`
}

func NewRecommendation(r *dispute.Recommendation) *Recommendation {
	return &Recommendation{
		DisputeID:       r.DisputeID.String(),
		WorkerPercent:   r.WorkerPercent,
		BusinessPercent: r.BusinessPercent,
		WorkerAmount:    NewMoney(r.WorkerAmount),
		BusinessAmount:  NewMoney(r.BusinessAmount),
		Basis:           r.Basis,
	}
}

type Stats struct {
	Disputes struct {
		Total    int            `json:"total"`
		Active   int            `json:"active"`
		Resolved int            `json:"resolved"`
		ByStatus map[string]int `json:"by_status"`
		ByType   map[string]int `json:"by_type"`
	} `json:"disputes"`
	Escrow struct {
		Total    int              `json:"total"`
		ByStatus map[string]int   `json:"by_status"`
		Held     map[string]Money `json:"held"`
	} `json:"escrow"`
}

func NewStats(s *dashboard.Stats) *Stats {
	view := &Stats{}
	view.Disputes.Total = s.Disputes.Total
	view.Disputes.Active = s.Disputes.Active
	view.Disputes.Resolved = s.Disputes.Resolved
	view.Disputes.ByStatus = make(map[string]int, len(s.Disputes.ByStatus))
	for k, v := range s.Disputes.ByStatus {
		view.Disputes.ByStatus[string(k)] = v
	}
	view.Disputes.ByType = make(map[string]int, len(s.Disputes.ByType))
	for k, v := range s.Disputes.ByType {
		view.Disputes.ByType[string(k)] = v
	}

	view.Escrow.Total = s.Escrow.Total
	view.Escrow.ByStatus = make(map[string]int, len(s.Escrow.ByStatus))
	for k, v := range s.Escrow.ByStatus {
		view.Escrow.ByStatus[string(k)] = v
	}
	view.Escrow.Held = make(map[string]Money, len(s.Escrow.HeldByCurrency))
	for k, v := range s.Escrow.HeldByCurrency {
		view.Escrow.Held[string(k)] = NewMoney(v)
	}
	return view
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
