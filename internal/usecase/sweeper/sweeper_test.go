package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/shiftescrow-backend/internal/adapter/repository/memory"
	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// MockDisputeCloser is a mock implementation of DisputeCloser for testing
type MockDisputeCloser struct {
	mock.Mock
}

func (m *MockDisputeCloser) AutoCloseStaleDisputes(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockHoldFlagger is a mock implementation of HoldFlagger for testing
type MockHoldFlagger struct {
	mock.Mock
}

func (m *MockHoldFlagger) FlagForReview(ctx context.Context, actor domain.Actor, txID uuid.UUID) (bool, error) {
	args := m.Called(ctx, actor, txID)
	return args.Bool(0), args.Error(1)
}

// MockLocker is a mock implementation of Locker for testing
type MockLocker struct {
	mock.Mock
	released int
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	args := m.Called(ctx, key, ttl)
	release := func(context.Context) error {
		m.released++
		return nil
	}
	return release, args.Bool(0), args.Error(1)
}

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedHold(t *testing.T, store *memory.Store, heldAt time.Time) *domain.Transaction {
	t.Helper()
	held := heldAt
	tx := &domain.Transaction{
		ID:                uuid.New(),
		ShiftID:           uuid.New(),
		AssignmentID:      uuid.New(),
		WorkerID:          uuid.New(),
		BusinessID:        uuid.New(),
		AmountGross:       domain.FromMinorUnits(10000, domain.CurrencyUSD),
		PlatformFee:       domain.FromMinorUnits(1000, domain.CurrencyUSD),
		AgencyFee:         domain.Zero(domain.CurrencyUSD),
		AmountNet:         domain.FromMinorUnits(9000, domain.CurrencyUSD),
		ContingencyBuffer: domain.FromMinorUnits(550, domain.CurrencyUSD),
		EscrowHold:        domain.FromMinorUnits(11550, domain.CurrencyUSD),
		Status:            domain.TransactionStatusInEscrow,
		EscrowHeldAt:      &held,
		CreatedAt:         heldAt,
		UpdatedAt:         heldAt,
	}
	require.NoError(t, store.Transactions().Create(context.Background(), tx))
	return tx
}

func TestRunOnce_FlagsOnlyOverdueHolds(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	overdue := seedHold(t, store, now.Add(-15*24*time.Hour))
	seedHold(t, store, now.Add(-2*24*time.Hour))

	closer := new(MockDisputeCloser)
	closer.On("AutoCloseStaleDisputes", ctx).Return(2, nil)
	flagger := new(MockHoldFlagger)
	flagger.On("FlagForReview", ctx, domain.SystemActor(), overdue.ID).Return(true, nil)

	s := NewSweeper(discardLogger(), closer, flagger, store.Transactions(), nil, 14*24*time.Hour, time.Minute, 0, func() time.Time { return now })

	report, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{DisputesClosed: 2, TransactionsFlagged: 1}, report)
	flagger.AssertExpectations(t)
	closer.AssertExpectations(t)
}

func TestRunOnce_CountsFailuresWithoutStopping(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	first := seedHold(t, store, now.Add(-20*24*time.Hour))
	second := seedHold(t, store, now.Add(-30*24*time.Hour))

	closer := new(MockDisputeCloser)
	closer.On("AutoCloseStaleDisputes", ctx).Return(1, errors.Join(errors.New("dispute a: boom"), errors.New("dispute b: boom")))
	flagger := new(MockHoldFlagger)
	flagger.On("FlagForReview", ctx, domain.SystemActor(), first.ID).Return(false, errors.New("db down"))
	flagger.On("FlagForReview", ctx, domain.SystemActor(), second.ID).Return(true, nil)

	s := NewSweeper(discardLogger(), closer, flagger, store.Transactions(), nil, 14*24*time.Hour, time.Minute, 0, func() time.Time { return now })

	report, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DisputesClosed)
	assert.Equal(t, 1, report.TransactionsFlagged)
	assert.Equal(t, 3, report.Failures)
	flagger.AssertNumberOfCalls(t, "FlagForReview", 2)
}

func TestRunOnce_SkipsWhenLeaseHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	closer := new(MockDisputeCloser)
	flagger := new(MockHoldFlagger)
	locker := new(MockLocker)
	locker.On("TryLock", ctx, lockKey, time.Hour).Return(false, nil)

	s := NewSweeper(discardLogger(), closer, flagger, memory.NewStore().Transactions(), locker, 0, time.Minute, 0, nil)

	report, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	closer.AssertNotCalled(t, "AutoCloseStaleDisputes", mock.Anything)
	assert.Equal(t, 0, locker.released)
}

func TestRunOnce_ReleasesLease(t *testing.T) {
	ctx := context.Background()
	closer := new(MockDisputeCloser)
	closer.On("AutoCloseStaleDisputes", ctx).Return(0, nil)
	locker := new(MockLocker)
	locker.On("TryLock", ctx, lockKey, 45*time.Minute).Return(true, nil)

	s := NewSweeper(discardLogger(), closer, new(MockHoldFlagger), memory.NewStore().Transactions(), locker, 0, time.Minute, 45*time.Minute, nil)

	_, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.released)
	locker.AssertCalled(t, "TryLock", ctx, lockKey, 45*time.Minute)
	locker.AssertNotCalled(t, "TryLock", ctx, lockKey, time.Minute)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	closer := new(MockDisputeCloser)
	closer.On("AutoCloseStaleDisputes", mock.Anything).Return(0, nil).Run(func(mock.Arguments) { cancel() })

	s := NewSweeper(discardLogger(), closer, new(MockHoldFlagger), memory.NewStore().Transactions(), nil, 0, time.Hour, 0, nil)

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
