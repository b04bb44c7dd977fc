package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

type txKey struct{}

// Store is an in-process implementation of every repository.
// WithinTx holds the store lock for the whole unit of work and rolls back to a snapshot on error,
// which gives the same serialization guarantees as row locks in Postgres.
type Store struct {
	mu sync.Mutex

	transactions map[uuid.UUID]domain.Transaction
	disputes     map[uuid.UUID]domain.Dispute
	timeline     map[uuid.UUID][]domain.TimelineEntry
	outbox       []domain.OutboxRecord
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		transactions: make(map[uuid.UUID]domain.Transaction),
		disputes:     make(map[uuid.UUID]domain.Dispute),
		timeline:     make(map[uuid.UUID][]domain.TimelineEntry),
	}
}

// WithinTx implements domain.TxManager. Nested calls join the outer unit of work.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// lock acquires the store lock unless ctx already runs inside WithinTx
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	transactions map[uuid.UUID]domain.Transaction
	disputes     map[uuid.UUID]domain.Dispute
	timeline     map[uuid.UUID][]domain.TimelineEntry
	outbox       []domain.OutboxRecord
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		transactions: make(map[uuid.UUID]domain.Transaction, len(s.transactions)),
		disputes:     make(map[uuid.UUID]domain.Dispute, len(s.disputes)),
		timeline:     make(map[uuid.UUID][]domain.TimelineEntry, len(s.timeline)),
		outbox:       append([]domain.OutboxRecord(nil), s.outbox...),
	}
	for id, tx := range s.transactions {
		snap.transactions[id] = tx
	}
	for id, d := range s.disputes {
		snap.disputes[id] = d
	}
	for id, entries := range s.timeline {
		snap.timeline[id] = append([]domain.TimelineEntry(nil), entries...)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.transactions = snap.transactions
	s.disputes = snap.disputes
	s.timeline = snap.timeline
	s.outbox = snap.outbox
}

// Transactions returns the TransactionRepository view of the store
func (s *Store) Transactions() domain.TransactionRepository { return &transactionRepository{s: s} }

// Disputes returns the DisputeRepository view of the store
func (s *Store) Disputes() domain.DisputeRepository { return &disputeRepository{s: s} }

// Timeline returns the TimelineRepository view of the store
func (s *Store) Timeline() domain.TimelineRepository { return &timelineRepository{s: s} }

// Outbox returns the OutboxRepository view of the store
func (s *Store) Outbox() domain.OutboxRepository { return &outboxRepository{s: s} }

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
