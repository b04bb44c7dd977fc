package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TxManager runs a unit of work inside one store transaction.
// Repositories called with the ctx passed to fn join that transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransactionFilter narrows escrow transaction listings
type TransactionFilter struct {
	Status     TransactionStatus // empty means any
	WorkerID   *uuid.UUID
	BusinessID *uuid.UUID
	Limit      int
	Offset     int
}

// TransactionRepository defines the interface for escrow transaction persistence operations
type TransactionRepository interface {
	// Create inserts a new transaction.
	// Returns a ConflictError when a non-terminal transaction already exists for the assignment.
	Create(ctx context.Context, tx *Transaction) error

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// GetForUpdate retrieves a transaction and locks it until the surrounding store transaction ends
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindActiveByAssignment returns the non-terminal transaction of an assignment, or a NotFoundError
	FindActiveByAssignment(ctx context.Context, assignmentID uuid.UUID) (*Transaction, error)

	// Update persists tx if its Version still matches the stored one, then bumps tx.Version.
	// Returns a ConflictError when another writer got there first.
	Update(ctx context.Context, tx *Transaction) error

	// ListOverdueHolds returns in_escrow transactions held since before cutoff that are not yet flagged
	ListOverdueHolds(ctx context.Context, cutoff time.Time) ([]*Transaction, error)

	// List retrieves a paginated list of transactions
	List(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)

	// CountByStatus returns the number of transactions per status
	CountByStatus(ctx context.Context) (map[TransactionStatus]int, error)

	// HeldTotals returns the sum of escrow holds still in custody per currency
	HeldTotals(ctx context.Context) (map[Currency]Money, error)
}

// DisputeFilter narrows dispute listings
type DisputeFilter struct {
	Status        DisputeStatus // empty means any
	TransactionID *uuid.UUID
	AssignedTo    *uuid.UUID
	Limit         int
	Offset        int
}

// DisputeRepository defines the interface for dispute persistence operations
type DisputeRepository interface {
	// Create inserts a new dispute.
	// Returns a ConflictError when a non-terminal dispute already references the transaction.
	Create(ctx context.Context, d *Dispute) error

	// GetByID retrieves a dispute by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Dispute, error)

	// GetForUpdate retrieves a dispute and locks it until the surrounding store transaction ends
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Dispute, error)

	// FindActiveByTransaction returns the non-terminal dispute of a transaction, or a NotFoundError
	FindActiveByTransaction(ctx context.Context, transactionID uuid.UUID) (*Dispute, error)

	// Update persists d with the same version check as TransactionRepository.Update
	Update(ctx context.Context, d *Dispute) error

	// ListStale returns non-terminal disputes outside mediation whose last update is before cutoff
	ListStale(ctx context.Context, cutoff time.Time) ([]*Dispute, error)

	// List retrieves a paginated list of disputes
	List(ctx context.Context, filter DisputeFilter) ([]*Dispute, error)

	// CountByStatus returns the number of disputes per status
	CountByStatus(ctx context.Context) (map[DisputeStatus]int, error)

	// CountByType returns the number of disputes per type
	CountByType(ctx context.Context) (map[DisputeType]int, error)
}

// TimelineRepository defines the append-only dispute audit log
type TimelineRepository interface {
	// Append stores the entry and sets entry.Seq to the next sequence of its dispute
	Append(ctx context.Context, entry *TimelineEntry) error

	// ListByDispute returns the entries of a dispute ordered by Seq
	ListByDispute(ctx context.Context, disputeID uuid.UUID) ([]*TimelineEntry, error)
}

// OutboxRepository stores events until they are relayed to the broker
type OutboxRepository interface {
	// Enqueue stores events as part of the current store transaction
	Enqueue(ctx context.Context, events ...Event) error

	// FetchPending returns up to limit unpublished records with fewer than maxAttempts
	// failed deliveries, oldest first. maxAttempts <= 0 disables the attempt filter.
	FetchPending(ctx context.Context, limit, maxAttempts int) ([]*OutboxRecord, error)

	// MarkPublished records a successful relay
	MarkPublished(ctx context.Context, eventID uuid.UUID, at time.Time) error

	// MarkFailed records a failed relay attempt
	MarkFailed(ctx context.Context, eventID uuid.UUID, reason string) error
}
