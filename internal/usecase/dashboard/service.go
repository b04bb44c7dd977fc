package dashboard

import (
	"context"
	"fmt"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// DisputeStats represents dispute counts for admin dashboards
type DisputeStats struct {
	Total    int
	Active   int
	Resolved int // resolved or closed
	ByStatus map[domain.DisputeStatus]int
	ByType   map[domain.DisputeType]int
}

// EscrowStats represents escrow counts and funds in custody
type EscrowStats struct {
	Total          int
	ByStatus       map[domain.TransactionStatus]int
	HeldByCurrency map[domain.Currency]domain.Money
}

// Stats is the combined dashboard summary
type Stats struct {
	Disputes DisputeStats
	Escrow   EscrowStats
}

// DashboardService handles read-only dashboard queries
type DashboardService struct {
	DisputeRepo     domain.DisputeRepository
	TransactionRepo domain.TransactionRepository
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(disputeRepo domain.DisputeRepository, transactionRepo domain.TransactionRepository) *DashboardService {
	return &DashboardService{
		DisputeRepo:     disputeRepo,
		TransactionRepo: transactionRepo,
	}
}

// GetStats calculates the dashboard summary
// Logic:
//   - Disputes: counts by status and type; Active = non-terminal, Resolved = resolved + closed
//   - Escrow: counts by status; held totals cover in_escrow, released and disputed funds per currency
func (s *DashboardService) GetStats(ctx context.Context, actor domain.Actor) (*Stats, error) {
	if !actor.IsAdmin() && !actor.IsSystem() {
		return nil, domain.NewAuthorizationError("Only administrators can view platform statistics")
	}

	// 1. Dispute counts
	byStatus, err := s.DisputeRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count disputes by status: %w", err)
	}
	byType, err := s.DisputeRepo.CountByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count disputes by type: %w", err)
	}

	disputes := DisputeStats{ByStatus: byStatus, ByType: byType}
	for status, n := range byStatus {
		disputes.Total += n
		if status.IsTerminal() {
			disputes.Resolved += n
		} else {
			disputes.Active += n
		}
	}

	// 2. Escrow counts and held funds
	txByStatus, err := s.TransactionRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions by status: %w", err)
	}
	held, err := s.TransactionRepo.HeldTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum escrow holds: %w", err)
	}

	escrow := EscrowStats{ByStatus: txByStatus, HeldByCurrency: held}
	for _, n := range txByStatus {
		escrow.Total += n
	}

	return &Stats{Disputes: disputes, Escrow: escrow}, nil
}

// ListDisputes returns a page of disputes for the mediation queue
func (s *DashboardService) ListDisputes(ctx context.Context, actor domain.Actor, filter domain.DisputeFilter) ([]*domain.Dispute, error) {
	if !actor.IsAdmin() {
		return nil, domain.NewAuthorizationError("Only administrators can list disputes")
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		return nil, domain.NewValidationError("offset must be non-negative")
	}
	return s.DisputeRepo.List(ctx, filter)
}

// ListTransactions returns a page of escrow transactions
func (s *DashboardService) ListTransactions(ctx context.Context, actor domain.Actor, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if !actor.IsAdmin() {
		return nil, domain.NewAuthorizationError("Only administrators can list transactions")
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		return nil, domain.NewValidationError("offset must be non-negative")
	}
	return s.TransactionRepo.List(ctx, filter)
}
