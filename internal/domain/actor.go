package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the role a user holds on the marketplace
type Role string

const (
	RoleWorker   Role = "worker"
	RoleBusiness Role = "business"
	RoleAgency   Role = "agency"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system"
)

// Valid reports whether the role is known
func (r Role) Valid() bool {
	switch r {
	case RoleWorker, RoleBusiness, RoleAgency, RoleAdmin, RoleSystem:
		return true
	default:
		return false
	}
}

// Actor is the user performing an operation
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// SystemActor is used for background jobs such as the sweeper
func SystemActor() Actor {
	return Actor{ID: uuid.Nil, Role: RoleSystem}
}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsSystem() bool { return a.Role == RoleSystem }

// AssignmentStatus is the status of a shift assignment as reported by the shift service
type AssignmentStatus string

const (
	AssignmentStatusAssigned  AssignmentStatus = "assigned"
	AssignmentStatusCompleted AssignmentStatus = "completed"
	AssignmentStatusCancelled AssignmentStatus = "cancelled"
)

// ShiftAssignment is the read-only view of a worker's assignment to a shift.
// It is owned by the shift service; the engine never mutates it.
type ShiftAssignment struct {
	ID          uuid.UUID
	ShiftID     uuid.UUID
	WorkerID    uuid.UUID
	BusinessID  uuid.UUID
	AgencyID    *uuid.UUID // NULL when the worker is not represented by an agency
	Status      AssignmentStatus
	CompletedAt *time.Time
}
