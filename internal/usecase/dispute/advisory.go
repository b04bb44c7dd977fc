package dispute

import (
	"context"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/fees"
)

// Recommendation is an advisory split of the disputed amount surfaced to the mediator.
// It never resolves anything by itself.
type Recommendation struct {
	DisputeID       uuid.UUID
	WorkerPercent   int64
	BusinessPercent int64
	WorkerAmount    domain.Money
	BusinessAmount  domain.Money
	Basis           string
}

const (
	BasisWorkerEvidenceOnly   = "worker_evidence_only"
	BasisBusinessEvidenceOnly = "business_evidence_only"
	BasisBalanced             = "balanced"
)

// CalculateResolutionSplit recommends a split based on which side submitted evidence
// Logic:
//   - Evidence from only one side: 70/30 in that side's favor
//   - Evidence from both sides or neither: 50/50
func (s *DisputeService) CalculateResolutionSplit(ctx context.Context, actor domain.Actor, disputeID uuid.UUID) (*Recommendation, error) {
	d, err := s.GetDispute(ctx, actor, disputeID)
	if err != nil {
		return nil, err
	}
	return Recommend(d), nil
}

// Recommend applies the evidence-presence heuristic to a dispute
func Recommend(d *domain.Dispute) *Recommendation {
	workerHas := len(d.EvidenceWorker) > 0
	businessHas := len(d.EvidenceBusiness) > 0

	workerPercent, basis := int64(50), BasisBalanced
	switch {
	case workerHas && !businessHas:
		workerPercent, basis = 70, BasisWorkerEvidenceOnly
	case businessHas && !workerHas:
		workerPercent, basis = 30, BasisBusinessEvidenceOnly
	}

	workerAmount := fees.PercentOf(d.DisputedAmount, workerPercent)
	return &Recommendation{
		DisputeID:       d.ID,
		WorkerPercent:   workerPercent,
		BusinessPercent: 100 - workerPercent,
		WorkerAmount:    workerAmount,
		BusinessAmount:  d.DisputedAmount.Sub(workerAmount),
		Basis:           basis,
	}
}
