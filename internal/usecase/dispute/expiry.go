package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/escrow"
)

// AutoCloseStaleDisputes closes every non-terminal dispute outside mediation that has not been
// updated within the stale threshold, with resolution expired. It returns the number closed.
// Each dispute is closed in its own store transaction; per-item failures do not stop the scan
// and are returned joined together.
func (s *DisputeService) AutoCloseStaleDisputes(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.policy.StaleThreshold)

	stale, err := s.DisputeRepo.ListStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale disputes: %w", err)
	}

	closed := 0
	var failures []error
	for _, d := range stale {
		ok, err := s.closeStale(ctx, d.ID, cutoff)
		if err != nil {
			failures = append(failures, fmt.Errorf("dispute %s: %w", d.ID, err))
			continue
		}
		if ok {
			closed++
		}
	}
	return closed, errors.Join(failures...)
}

// closeStale re-checks staleness under lock, so a dispute touched since the scan is left alone
func (s *DisputeService) closeStale(ctx context.Context, disputeID uuid.UUID, cutoff time.Time) (bool, error) {
	closed := false
	system := domain.SystemActor()

	err := s.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.DisputeRepo.GetForUpdate(ctx, disputeID)
		if err != nil {
			return err
		}
		if d.Status.IsTerminal() || d.Status == domain.DisputeStatusMediation || !d.UpdatedAt.Before(cutoff) {
			return nil
		}

		now := s.now()
		lastActivity := d.UpdatedAt
		d.Status = domain.DisputeStatusClosed
		d.Resolution = domain.ResolutionExpired
		d.ResolvedAt = &now
		d.UpdatedAt = now
		if err := s.DisputeRepo.Update(ctx, d); err != nil {
			return err
		}

		if _, err := s.link.ClearDispute(ctx, system, d.TransactionID, escrow.Outcome{
			Resolution: domain.ResolutionExpired,
		}); err != nil {
			return err
		}

		event := domain.NewEvent(domain.EventDisputeAutoClosed, d.ID, system, now, d.WorkerID, d.BusinessID)
		if err := s.record(ctx, d, domain.TimelineAutoClosed, system, now, map[string]string{
			"last_activity": lastActivity.UTC().Format(time.RFC3339),
		}, event); err != nil {
			return err
		}

		closed = true
		return nil
	})
	return closed, err
}
