package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a state-change event emitted for notification dispatch
type EventType string

const (
	EventDisputeOpened            EventType = "dispute.opened"
	EventDisputeResponseSubmitted EventType = "dispute.response_submitted"
	EventDisputeEvidenceSubmitted EventType = "dispute.evidence_submitted"
	EventDisputeMediatorAssigned  EventType = "dispute.mediator_assigned"
	EventDisputeResolved          EventType = "dispute.resolved"
	EventDisputeEscalated         EventType = "dispute.escalated"
	EventDisputeWithdrawn         EventType = "dispute.withdrawn"
	EventDisputeAutoClosed        EventType = "dispute.auto_closed"

	EventEscrowOpened           EventType = "escrow.opened"
	EventEscrowReleased         EventType = "escrow.released"
	EventEscrowFlaggedForReview EventType = "escrow.flagged_for_review"
	EventPayoutInitiated        EventType = "escrow.payout_initiated"
	EventPayoutCompleted        EventType = "escrow.payout_completed"
	EventPayoutFailed           EventType = "escrow.payout_failed"
)

// Event carries the minimal payload a notification collaborator needs.
// It never contains rendered text.
type Event struct {
	ID          uuid.UUID         `json:"id"`
	Type        EventType         `json:"type"`
	AggregateID uuid.UUID         `json:"aggregate_id"`
	ActorID     uuid.UUID         `json:"actor_id"`
	Recipients  []uuid.UUID       `json:"recipients,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// NewEvent builds an event for the given aggregate
func NewEvent(eventType EventType, aggregateID uuid.UUID, actor Actor, at time.Time, recipients ...uuid.UUID) Event {
	return Event{
		ID:          uuid.New(),
		Type:        eventType,
		AggregateID: aggregateID,
		ActorID:     actor.ID,
		Recipients:  recipients,
		Data:        map[string]string{},
		OccurredAt:  at,
	}
}

// With adds a payload field and returns the event for chaining
func (e Event) With(key, value string) Event {
	if e.Data == nil {
		e.Data = map[string]string{}
	}
	e.Data[key] = value
	return e
}

// OutboxRecord is an event waiting to be relayed to the broker
type OutboxRecord struct {
	Event       Event
	Attempts    int
	LastError   string
	PublishedAt *time.Time
}
