package domain

import (
	"time"

	"github.com/google/uuid"
)

// TimelineAction names a state change recorded on a dispute's timeline
type TimelineAction string

const (
	TimelineOpened            TimelineAction = "opened"
	TimelineBusinessResponded TimelineAction = "business_responded"
	TimelineWorkerEvidence    TimelineAction = "worker_evidence"
	TimelineBusinessEvidence  TimelineAction = "business_evidence"
	TimelineAssigned          TimelineAction = "assigned"
	TimelineResolved          TimelineAction = "resolved"
	TimelineEscalated         TimelineAction = "escalated"
	TimelineAutoClosed        TimelineAction = "auto_closed"
	TimelineWithdrawn         TimelineAction = "withdrawn"
)

// TimelineEntry is an immutable audit record of a dispute transition.
// Seq is assigned by the store and orders entries of one dispute regardless of clock skew.
type TimelineEntry struct {
	ID        uuid.UUID
	DisputeID uuid.UUID
	Seq       int64
	Action    TimelineAction
	ActorID   uuid.UUID
	Timestamp time.Time
	Metadata  map[string]string
}

// NewTimelineEntry builds an entry ready to be appended
func NewTimelineEntry(disputeID uuid.UUID, action TimelineAction, actor Actor, at time.Time, metadata map[string]string) *TimelineEntry {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &TimelineEntry{
		ID:        uuid.New(),
		DisputeID: disputeID,
		Action:    action,
		ActorID:   actor.ID,
		Timestamp: at,
		Metadata:  metadata,
	}
}
