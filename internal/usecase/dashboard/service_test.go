package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// MockDisputeRepository is a mock implementation of DisputeRepository for testing
type MockDisputeRepository struct {
	mock.Mock
	domain.DisputeRepository
}

func (m *MockDisputeRepository) CountByStatus(ctx context.Context) (map[domain.DisputeStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.DisputeStatus]int), args.Error(1)
}

func (m *MockDisputeRepository) CountByType(ctx context.Context) (map[domain.DisputeType]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[domain.DisputeType]int), args.Error(1)
}

func (m *MockDisputeRepository) List(ctx context.Context, filter domain.DisputeFilter) ([]*domain.Dispute, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*domain.Dispute), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository for testing
type MockTransactionRepository struct {
	mock.Mock
	domain.TransactionRepository
}

func (m *MockTransactionRepository) CountByStatus(ctx context.Context) (map[domain.TransactionStatus]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[domain.TransactionStatus]int), args.Error(1)
}

func (m *MockTransactionRepository) HeldTotals(ctx context.Context) (map[domain.Currency]domain.Money, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[domain.Currency]domain.Money), args.Error(1)
}

func (m *MockTransactionRepository) ListOverdueHolds(ctx context.Context, cutoff time.Time) ([]*domain.Transaction, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func adminActor() domain.Actor {
	return domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	disputeRepo := new(MockDisputeRepository)
	txRepo := new(MockTransactionRepository)
	service := NewDashboardService(disputeRepo, txRepo)

	disputeRepo.On("CountByStatus", ctx).Return(map[domain.DisputeStatus]int{
		domain.DisputeStatusOpen:      3,
		domain.DisputeStatusMediation: 1,
		domain.DisputeStatusResolved:  4,
		domain.DisputeStatusClosed:    2,
	}, nil)
	disputeRepo.On("CountByType", ctx).Return(map[domain.DisputeType]int{
		domain.DisputeTypePayment: 7,
		domain.DisputeTypeNoShow:  3,
	}, nil)
	txRepo.On("CountByStatus", ctx).Return(map[domain.TransactionStatus]int{
		domain.TransactionStatusInEscrow: 5,
		domain.TransactionStatusPaidOut:  9,
	}, nil)
	txRepo.On("HeldTotals", ctx).Return(map[domain.Currency]domain.Money{
		domain.CurrencyUSD: domain.FromMinorUnits(57750, domain.CurrencyUSD),
	}, nil)

	stats, err := service.GetStats(ctx, adminActor())
	require.NoError(t, err)

	assert.Equal(t, 10, stats.Disputes.Total)
	assert.Equal(t, 4, stats.Disputes.Active)
	assert.Equal(t, 6, stats.Disputes.Resolved)
	assert.Equal(t, 3, stats.Disputes.ByType[domain.DisputeTypeNoShow])
	assert.Equal(t, 14, stats.Escrow.Total)
	assert.Equal(t, "$577.50", stats.Escrow.HeldByCurrency[domain.CurrencyUSD].Format())
}

func TestGetStats_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewDashboardService(nil, nil).GetStats(ctx, domain.Actor{ID: uuid.New(), Role: domain.RoleWorker})
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	disputeRepo := new(MockDisputeRepository)
	disputeRepo.On("CountByStatus", ctx).Return(nil, errors.New("connection refused"))

	_, err = NewDashboardService(disputeRepo, new(MockTransactionRepository)).GetStats(ctx, adminActor())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count disputes by status")
}

func TestListDisputes_DefaultsLimit(t *testing.T) {
	ctx := context.Background()
	disputeRepo := new(MockDisputeRepository)
	service := NewDashboardService(disputeRepo, new(MockTransactionRepository))

	disputeRepo.On("List", ctx, domain.DisputeFilter{Status: domain.DisputeStatusOpen, Limit: 50}).Return([]*domain.Dispute{}, nil)

	_, err := service.ListDisputes(ctx, adminActor(), domain.DisputeFilter{Status: domain.DisputeStatusOpen})
	require.NoError(t, err)
	disputeRepo.AssertExpectations(t)

	_, err = service.ListDisputes(ctx, adminActor(), domain.DisputeFilter{Offset: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
