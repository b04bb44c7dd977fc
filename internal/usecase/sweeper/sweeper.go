package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

const lockKey = "shiftescrow:sweeper"

// DisputeCloser expires stale disputes
type DisputeCloser interface {
	AutoCloseStaleDisputes(ctx context.Context) (int, error)
}

// HoldFlagger flags over-long escrow holds for manual review
type HoldFlagger interface {
	FlagForReview(ctx context.Context, actor domain.Actor, txID uuid.UUID) (bool, error)
}

// Locker grants a lease so that only one sweeper instance runs at a time.
// ok is false when another holder owns the lease.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// Report summarizes one sweep
type Report struct {
	DisputesClosed      int
	TransactionsFlagged int
	Failures            int
	Skipped             bool // another instance held the lease
}

// Sweeper enforces the deadlines that interactive calls cannot enforce on their own.
// Every step re-evaluates current state, so overlapping or repeated runs are safe.
type Sweeper struct {
	logger          *slog.Logger
	disputes        DisputeCloser
	ledger          HoldFlagger
	transactionRepo domain.TransactionRepository
	locker          Locker
	maxHold         time.Duration
	interval        time.Duration
	leaseTTL        time.Duration
	now             func() time.Time
}

// NewSweeper constructs the sweeper with sane defaults
func NewSweeper(
	logger *slog.Logger,
	disputes DisputeCloser,
	ledger HoldFlagger,
	transactionRepo domain.TransactionRepository,
	locker Locker,
	maxHold time.Duration,
	interval time.Duration,
	leaseTTL time.Duration,
	now func() time.Time,
) *Sweeper {
	if maxHold <= 0 {
		maxHold = 14 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	// The lease must outlive the slowest sweep, independent of how often sweeps start
	if leaseTTL <= 0 {
		leaseTTL = time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		logger:          logger,
		disputes:        disputes,
		ledger:          ledger,
		transactionRepo: transactionRepo,
		locker:          locker,
		maxHold:         maxHold,
		interval:        interval,
		leaseTTL:        leaseTTL,
		now:             now,
	}
}

// Run executes the periodic sweep until context cancellation
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.ErrorContext(ctx, "sweep failed",
				"module", "usecase.sweeper",
				"operation", "run_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs a full sweep
// Logic:
//  1. Acquire the lease; if another instance holds it, skip
//  2. Auto-close stale disputes
//  3. Flag in_escrow transactions held longer than the maximum hold (never auto-release)
//
// Per-item failures are logged and counted without stopping the scan.
func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	var report Report

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, lockKey, s.leaseTTL)
		if err != nil {
			return report, fmt.Errorf("failed to acquire sweeper lease: %w", err)
		}
		if !ok {
			report.Skipped = true
			s.logger.InfoContext(ctx, "sweep skipped; lease held elsewhere",
				"module", "usecase.sweeper",
				"operation", "run_once",
				"outcome", "skipped",
			)
			return report, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.WarnContext(ctx, "failed to release sweeper lease",
					"module", "usecase.sweeper",
					"operation", "release_lease",
					"outcome", "failure",
					"error", err,
				)
			}
		}()
	}

	closed, err := s.disputes.AutoCloseStaleDisputes(ctx)
	report.DisputesClosed = closed
	for _, itemErr := range unjoin(err) {
		report.Failures++
		s.logger.ErrorContext(ctx, "failed to auto-close dispute",
			"module", "usecase.sweeper",
			"operation", "auto_close_stale_disputes",
			"outcome", "failure",
			"error", itemErr,
		)
	}

	flagged, failures, err := s.flagOverdueHolds(ctx)
	report.TransactionsFlagged = flagged
	report.Failures += failures
	if err != nil {
		return report, err
	}

	s.logger.InfoContext(ctx, "sweep completed",
		"module", "usecase.sweeper",
		"operation", "run_once",
		"outcome", "success",
		"disputes_closed", report.DisputesClosed,
		"transactions_flagged", report.TransactionsFlagged,
		"failure_count", report.Failures,
	)
	return report, nil
}

func (s *Sweeper) flagOverdueHolds(ctx context.Context) (int, int, error) {
	cutoff := s.now().Add(-s.maxHold)
	overdue, err := s.transactionRepo.ListOverdueHolds(ctx, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list overdue holds: %w", err)
	}

	flagged, failures := 0, 0
	for _, tx := range overdue {
		ok, err := s.ledger.FlagForReview(ctx, domain.SystemActor(), tx.ID)
		if err != nil {
			failures++
			s.logger.ErrorContext(ctx, "failed to flag escrow hold",
				"module", "usecase.sweeper",
				"operation", "flag_for_review",
				"outcome", "failure",
				"transaction_id", tx.ID,
				"error", err,
			)
			continue
		}
		if ok {
			flagged++
		}
	}
	return flagged, failures, nil
}

// unjoin splits an errors.Join result back into its parts
func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return joined.Unwrap()
	}
	return []error{err}
}
