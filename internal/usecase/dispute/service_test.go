package dispute

import (
	"bytes"
	"context"
	"encoding/csv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/shiftescrow-backend/internal/adapter/repository/memory"
	"github.com/simaogato/shiftescrow-backend/internal/domain"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/escrow"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/fees"
)

var t0 = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memory.Store
	ledger  *escrow.Ledger
	service *DisputeService
	now     time.Time
	mu      sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore(), now: t0}
	clock := func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}

	var link *escrow.DisputeLink
	f.ledger, link = escrow.NewLedger(f.store, f.store.Transactions(), f.store.Disputes(), f.store.Outbox(), clock)
	f.service = NewDisputeService(
		f.store,
		f.store.Disputes(),
		f.store.Transactions(),
		f.store.Timeline(),
		f.store.Outbox(),
		link,
		DefaultPolicy(),
		clock,
	)
	return f
}

func (f *fixture) setNow(at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = at
}

func usd(minor int64) domain.Money {
	return domain.FromMinorUnits(minor, domain.CurrencyUSD)
}

type parties struct {
	tx       *domain.Transaction
	worker   domain.Actor
	business domain.Actor
}

// escrowed opens a $100.00 escrow for a fresh completed assignment
func (f *fixture) escrowed(t *testing.T) parties {
	t.Helper()
	a := domain.ShiftAssignment{
		ID:         uuid.New(),
		ShiftID:    uuid.New(),
		WorkerID:   uuid.New(),
		BusinessID: uuid.New(),
		Status:     domain.AssignmentStatusCompleted,
	}
	tx, err := f.ledger.OpenEscrow(context.Background(), domain.SystemActor(), escrow.OpenEscrowInput{
		Assignment: a,
		Gross:      usd(10000),
		Rates: fees.RateConfig{
			PlatformFeePercent:       decimal.NewFromInt(10),
			ContingencyBufferPercent: decimal.NewFromInt(5),
		},
	})
	require.NoError(t, err)
	return parties{
		tx:       tx,
		worker:   domain.Actor{ID: a.WorkerID, Role: domain.RoleWorker},
		business: domain.Actor{ID: a.BusinessID, Role: domain.RoleBusiness},
	}
}

func (f *fixture) openDispute(t *testing.T, p parties, amount int64) *domain.Dispute {
	t.Helper()
	d, err := f.service.OpenDispute(context.Background(), p.worker, OpenDisputeInput{
		TransactionID:  p.tx.ID,
		Type:           domain.DisputeTypePayment,
		DisputedAmount: usd(amount),
		Description:    "Two hours of overtime were not paid",
	})
	require.NoError(t, err)
	return d
}

func admin() domain.Actor {
	return domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
}

func (f *fixture) transaction(t *testing.T, id uuid.UUID) *domain.Transaction {
	t.Helper()
	tx, err := f.store.Transactions().GetByID(context.Background(), id)
	require.NoError(t, err)
	return tx
}

func TestOpenDispute_FreezesTransaction(t *testing.T) {
	f := newFixture(t)
	p := f.escrowed(t)

	d := f.openDispute(t, p, 5000)

	assert.Equal(t, domain.DisputeStatusOpen, d.Status)
	assert.Equal(t, t0.Add(72*time.Hour), d.EvidenceDeadline)
	assert.Equal(t, p.tx.BusinessID, d.BusinessID)
	assert.Equal(t, p.tx.ShiftID, d.ShiftID)

	tx := f.transaction(t, p.tx.ID)
	assert.Equal(t, domain.TransactionStatusDisputed, tx.Status)
	assert.True(t, tx.Disputed)

	entries, err := f.service.Timeline(context.Background(), p.worker, d.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.TimelineOpened, entries[0].Action)
	assert.Equal(t, int64(1), entries[0].Seq)

	events := f.store.Events()
	last := events[len(events)-1]
	assert.Equal(t, domain.EventDisputeOpened, last.Type)
	assert.Equal(t, []uuid.UUID{p.tx.BusinessID}, last.Recipients)

	_, err = f.ledger.Release(context.Background(), p.business, p.tx.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestOpenDispute_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.escrowed(t)

	tests := []struct {
		name    string
		actor   domain.Actor
		input   OpenDisputeInput
		wantErr error
		reason  string
	}{
		{
			name:    "Below minimum",
			actor:   p.worker,
			input:   OpenDisputeInput{TransactionID: p.tx.ID, Type: domain.DisputeTypePayment, DisputedAmount: usd(999), Description: "short"},
			wantErr: domain.ErrValidation,
			reason:  "Disputed amount must be at least $10.00",
		},
		{
			name:    "Above gross",
			actor:   p.worker,
			input:   OpenDisputeInput{TransactionID: p.tx.ID, Type: domain.DisputeTypePayment, DisputedAmount: usd(10001), Description: "too much"},
			wantErr: domain.ErrValidation,
			reason:  "Disputed amount cannot exceed the transaction amount",
		},
		{
			name:    "Unknown type",
			actor:   p.worker,
			input:   OpenDisputeInput{TransactionID: p.tx.ID, Type: "fraud", DisputedAmount: usd(5000), Description: "x"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "Missing description",
			actor:   p.worker,
			input:   OpenDisputeInput{TransactionID: p.tx.ID, Type: domain.DisputeTypeQuality, DisputedAmount: usd(5000), Description: "  "},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "Business cannot open",
			actor:   p.business,
			input:   OpenDisputeInput{TransactionID: p.tx.ID, Type: domain.DisputeTypePayment, DisputedAmount: usd(5000), Description: "x"},
			wantErr: domain.ErrAuthorization,
		},
		{
			name:    "Unknown transaction",
			actor:   p.worker,
			input:   OpenDisputeInput{TransactionID: uuid.New(), Type: domain.DisputeTypePayment, DisputedAmount: usd(5000), Description: "x"},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.OpenDispute(context.Background(), tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, err.Error())
			}
		})
	}

	assert.Equal(t, domain.TransactionStatusInEscrow, f.transaction(t, p.tx.ID).Status, "failed opens leave the transaction alone")
}

func TestOpenDispute_SecondActiveDisputeConflicts(t *testing.T) {
	f := newFixture(t)
	p := f.escrowed(t)
	f.openDispute(t, p, 5000)

	_, err := f.service.OpenDispute(context.Background(), p.worker, OpenDisputeInput{
		TransactionID:  p.tx.ID,
		Type:           domain.DisputeTypeOther,
		DisputedAmount: usd(2000),
		Description:    "again",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "An active dispute already exists for this transaction", err.Error())
}

func TestOpenDispute_ConcurrentOpensOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	p := f.escrowed(t)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.OpenDispute(context.Background(), p.worker, OpenDisputeInput{
				TransactionID:  p.tx.ID,
				Type:           domain.DisputeTypePayment,
				DisputedAmount: usd(5000),
				Description:    "race",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConflict)
	}
	assert.Equal(t, 1, succeeded)

	disputes, err := f.store.Disputes().List(context.Background(), domain.DisputeFilter{TransactionID: &p.tx.ID})
	require.NoError(t, err)
	assert.Len(t, disputes, 1)
}

func TestSubmitBusinessResponse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.escrowed(t)
	d := f.openDispute(t, p, 5000)

	_, err := f.service.SubmitBusinessResponse(ctx, p.worker, d.ID, "not me")
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	updated, err := f.service.SubmitBusinessResponse(ctx, p.business, d.ID, "Worker left early")
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusUnderReview, updated.Status)
	require.NotNil(t, updated.BusinessResponse)
	assert.Equal(t, "Worker left early", *updated.BusinessResponse)

	_, err = f.service.SubmitBusinessResponse(ctx, p.business, d.ID, "Once more")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "You have already responded to this dispute", err.Error())
}

func TestSubmitEvidence_Deadline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.escrowed(t)
	d := f.openDispute(t, p, 5000)

	f.setNow(d.EvidenceDeadline.Add(-time.Second))
	updated, err := f.service.SubmitEvidence(ctx, p.worker, d.ID, []string{"s3://evidence/timesheet.pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s3://evidence/timesheet.pdf"}, updated.EvidenceWorker)
	assert.Empty(t, updated.EvidenceBusiness)

	updated, err = f.service.SubmitEvidence(ctx, p.business, d.ID, []string{"s3://evidence/cctv.mp4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s3://evidence/cctv.mp4"}, updated.EvidenceBusiness)

	f.setNow(d.EvidenceDeadline.Add(time.Second))
	_, err = f.service.SubmitEvidence(ctx, p.worker, d.ID, []string{"s3://evidence/late.pdf"})
	assert.ErrorIs(t, err, domain.ErrDeadlineExceeded)
	assert.Equal(t, "The evidence deadline has passed", err.Error())

	entries, err := f.service.Timeline(ctx, p.worker, d.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.TimelineWorkerEvidence, entries[1].Action)
	assert.Equal(t, domain.TimelineBusinessEvidence, entries[2].Action)
	assert.Equal(t, int64(3), entries[2].Seq)
}

func TestSubmitEvidence_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.escrowed(t)
	d := f.openDispute(t, p, 5000)

	_, err := f.service.SubmitEvidence(ctx, domain.Actor{ID: uuid.New(), Role: domain.RoleWorker}, d.ID, []string{"x"})
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	_, err = f.service.SubmitEvidence(ctx, p.worker, d.ID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.service.SubmitEvidence(ctx, p.worker, d.ID, []string{" "})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAssignMediator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.escrowed(t)
	d := f.openDispute(t, p, 5000)

	_, err := f.service.AssignMediator(ctx, p.business, d.ID)
	assert.ErrorIs(t, err, domain.ErrAuthorization)
	assert.Equal(t, "Only administrators can mediate disputes", err.Error())

	mediator := admin()
	updated, err := f.service.AssignMediator(ctx, mediator, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusMediation, updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, mediator.ID, *updated.AssignedTo)
}

func TestResolveDispute(t *testing.T) {
	ctx := context.Background()

	t.Run("Amount above disputed amount fails", func(t *testing.T) {
		f := newFixture(t)
		p := f.escrowed(t)
		d := f.openDispute(t, p, 5000)
		tooMuch := usd(5001)

		_, err := f.service.ResolveDispute(ctx, admin(), d.ID, ResolveInput{Resolution: domain.ResolutionSplit, Amount: &tooMuch})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, domain.TransactionStatusDisputed, f.transaction(t, p.tx.ID).Status)
	})

	t.Run("Split at 50 percent releases the transaction", func(t *testing.T) {
		f := newFixture(t)
		p := f.escrowed(t)
		d := f.openDispute(t, p, 5000)
		half := usd(2500)

		f.setNow(t0.Add(48 * time.Hour))
		resolved, err := f.service.ResolveDispute(ctx, admin(), d.ID, ResolveInput{
			Resolution: domain.ResolutionSplit,
			Amount:     &half,
			Notes:      "Both sides partially right",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.DisputeStatusResolved, resolved.Status)
		assert.Equal(t, domain.ResolutionSplit, resolved.Resolution)
		require.NotNil(t, resolved.ResolvedAt)
		assert.Equal(t, t0.Add(48*time.Hour), *resolved.ResolvedAt)

		tx := f.transaction(t, p.tx.ID)
		assert.Equal(t, domain.TransactionStatusReleased, tx.Status)
		assert.False(t, tx.Disputed)
		assert.Equal(t, "25.00 USD", tx.WorkerAdjustment.String())
		assert.Equal(t, "25.00 USD", tx.BusinessRefund.String())

		_, err = f.service.ResolveDispute(ctx, admin(), d.ID, ResolveInput{Resolution: domain.ResolutionWorkerFavor})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("Worker favor defaults to the full amount", func(t *testing.T) {
		f := newFixture(t)
		p := f.escrowed(t)
		d := f.openDispute(t, p, 5000)

		resolved, err := f.service.ResolveDispute(ctx, admin(), d.ID, ResolveInput{Resolution: domain.ResolutionWorkerFavor})
		require.NoError(t, err)
		assert.True(t, resolved.ResolutionAmount.Equal(usd(5000)))
		assert.True(t, f.transaction(t, p.tx.ID).BusinessRefund.IsZero())
	})

	t.Run("Business favor fails the transaction", func(t *testing.T) {
		f := newFixture(t)
		p := f.escrowed(t)
		d := f.openDispute(t, p, 5000)

		_, err := f.service.ResolveDispute(ctx, admin(), d.ID, ResolveInput{Resolution: domain.ResolutionBusinessFavor})
		require.NoError(t, err)

		tx := f.transaction(t, p.tx.ID)
		assert.Equal(t, domain.TransactionStatusFailed, tx.Status)
		assert.True(t, tx.BusinessRefund.Equal(tx.EscrowHold))
	})

	t.Run("Split requires an amount and only admins resolve", func(t *testing.T) {
		f := newFixture(t)
		p := f.escrowed(t)
		d := f.openDispute(t, p, 5000)

		_, err := f.service.ResolveDispute(ctx, admin(), d.ID, ResolveInput{Resolution: domain.ResolutionSplit})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = f.service.ResolveDispute(ctx, admin(), d.ID, ResolveInput{Resolution: domain.ResolutionExpired})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = f.service.ResolveDispute(ctx, p.worker, d.ID, ResolveInput{Resolution: domain.ResolutionWorkerFavor})
		assert.ErrorIs(t, err, domain.ErrAuthorization)
	})
}

func TestResolveDispute_SplitOfWholeGrossPaysAwardToWorker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.escrowed(t)
	d := f.openDispute(t, p, 10000)
	half := usd(5000)

	_, err := f.service.ResolveDispute(ctx, admin(), d.ID, ResolveInput{Resolution: domain.ResolutionSplit, Amount: &half})
	require.NoError(t, err)

	instructions, err := f.ledger.PayoutInstructions(ctx, admin(), p.tx.ID)
	require.NoError(t, err)

	got := make(map[domain.InstructionKind]string, len(instructions))
	for _, in := range instructions {
		got[in.Kind] = in.Amount.String()
	}
	assert.Equal(t, "50.00 USD", got[domain.InstructionWorkerPayout])
	assert.Equal(t, "50.00 USD", got[domain.InstructionBusinessRefund])
	assert.Equal(t, "10.00 USD", got[domain.InstructionPlatformFee])
	assert.Equal(t, "5.50 USD", got[domain.InstructionBufferReturn])
}

func TestResolveDispute_ConcurrentResolutionsOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	p := f.escrowed(t)
	d := f.openDispute(t, p, 5000)

	const attempts = 6
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.ResolveDispute(context.Background(), admin(), d.ID, ResolveInput{Resolution: domain.ResolutionWorkerFavor})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestEscalateDispute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.escrowed(t)
	d := f.openDispute(t, p, 5000)

	_, err := f.service.SubmitBusinessResponse(ctx, p.business, d.ID, "disagree")
	require.NoError(t, err)

	_, err = f.service.EscalateDispute(ctx, domain.Actor{ID: uuid.New(), Role: domain.RoleBusiness}, d.ID, "")
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	escalated, err := f.service.EscalateDispute(ctx, p.worker, d.ID, "No progress")
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusEscalated, escalated.Status)

	// The other party may escalate an already escalated dispute
	escalated, err = f.service.EscalateDispute(ctx, p.business, d.ID, "Also no progress")
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusEscalated, escalated.Status)

	entries, err := f.service.Timeline(ctx, admin(), d.ID)
	require.NoError(t, err)
	escalations := 0
	for _, e := range entries {
		if e.Action == domain.TimelineEscalated {
			escalations++
		}
	}
	assert.Equal(t, 2, escalations)

	_, err = f.service.ResolveDispute(ctx, admin(), d.ID, ResolveInput{Resolution: domain.ResolutionWorkerFavor})
	require.NoError(t, err)

	_, err = f.service.EscalateDispute(ctx, p.worker, d.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, "This dispute cannot be escalated", err.Error())
}

func TestWithdrawDispute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.escrowed(t)
	d := f.openDispute(t, p, 5000)

	_, err := f.service.WithdrawDispute(ctx, p.business, d.ID)
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	withdrawn, err := f.service.WithdrawDispute(ctx, p.worker, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusClosed, withdrawn.Status)
	assert.Equal(t, domain.ResolutionWithdrawn, withdrawn.Resolution)

	tx := f.transaction(t, p.tx.ID)
	assert.Equal(t, domain.TransactionStatusReleased, tx.Status)
	assert.True(t, tx.BusinessRefund.IsZero())

	// A new dispute may be opened once the previous one is final
	f.openDispute(t, p, 1500)
}

func TestCalculateResolutionSplit(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		workerFiles    []string
		businessFiles  []string
		wantWorker     string
		wantBusiness   string
		wantPercentage int64
	}{
		{name: "Worker evidence only", workerFiles: []string{"a"}, wantWorker: "35.00 USD", wantBusiness: "15.00 USD", wantPercentage: 70},
		{name: "Business evidence only", businessFiles: []string{"b"}, wantWorker: "15.00 USD", wantBusiness: "35.00 USD", wantPercentage: 30},
		{name: "Both sides", workerFiles: []string{"a"}, businessFiles: []string{"b"}, wantWorker: "25.00 USD", wantBusiness: "25.00 USD", wantPercentage: 50},
		{name: "Neither side", wantWorker: "25.00 USD", wantBusiness: "25.00 USD", wantPercentage: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.escrowed(t)
			d := f.openDispute(t, p, 5000)

			if len(tt.workerFiles) > 0 {
				_, err := f.service.SubmitEvidence(ctx, p.worker, d.ID, tt.workerFiles)
				require.NoError(t, err)
			}
			if len(tt.businessFiles) > 0 {
				_, err := f.service.SubmitEvidence(ctx, p.business, d.ID, tt.businessFiles)
				require.NoError(t, err)
			}

			rec, err := f.service.CalculateResolutionSplit(ctx, admin(), d.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPercentage, rec.WorkerPercent)
			assert.Equal(t, 100-tt.wantPercentage, rec.BusinessPercent)
			assert.Equal(t, tt.wantWorker, rec.WorkerAmount.String())
			assert.Equal(t, tt.wantBusiness, rec.BusinessAmount.String())

			stored, err := f.service.GetDispute(ctx, admin(), d.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.DisputeStatusOpen, stored.Status, "advisory never resolves")
		})
	}
}

func TestAutoCloseStaleDisputes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Dispute A: opened at t0 and never touched again
	pa := f.escrowed(t)
	a := f.openDispute(t, pa, 5000)

	// Dispute C: in mediation since t0, must never expire
	pc := f.escrowed(t)
	c := f.openDispute(t, pc, 5000)
	_, err := f.service.AssignMediator(ctx, admin(), c.ID)
	require.NoError(t, err)

	// Dispute B: under review, last touched 5 days before the sweep
	f.setNow(t0.Add(30 * 24 * time.Hour))
	pb := f.escrowed(t)
	b := f.openDispute(t, pb, 5000)
	_, err = f.service.SubmitBusinessResponse(ctx, pb.business, b.ID, "disagree")
	require.NoError(t, err)

	f.setNow(t0.Add(35 * 24 * time.Hour))
	closed, err := f.service.AutoCloseStaleDisputes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	stored, err := f.service.GetDispute(ctx, admin(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusClosed, stored.Status)
	assert.Equal(t, domain.ResolutionExpired, stored.Resolution)
	assert.Equal(t, domain.TransactionStatusReleased, f.transaction(t, pa.tx.ID).Status)

	stored, err = f.service.GetDispute(ctx, admin(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusUnderReview, stored.Status)

	stored, err = f.service.GetDispute(ctx, admin(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusMediation, stored.Status)

	entries, err := f.service.Timeline(ctx, admin(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TimelineAutoClosed, entries[len(entries)-1].Action)
	assert.Equal(t, uuid.Nil, entries[len(entries)-1].ActorID)

	closed, err = f.service.AutoCloseStaleDisputes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, closed, "second run is a no-op")
}

func TestExportTimelineCSV(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.escrowed(t)
	d := f.openDispute(t, p, 5000)
	_, err := f.service.SubmitBusinessResponse(ctx, p.business, d.ID, "disagree")
	require.NoError(t, err)

	var buf bytes.Buffer
	err = f.service.ExportTimelineCSV(ctx, p.worker, d.ID, &buf)
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	require.NoError(t, f.service.ExportTimelineCSV(ctx, admin(), d.ID, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "opened", records[1][2])
	assert.Equal(t, "disputed_amount=50.00 USD;type=payment", records[1][5])
	assert.Equal(t, "business_responded", records[2][2])
}
