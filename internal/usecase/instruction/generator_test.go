package instruction

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

func cents(v int64) domain.Money {
	return domain.FromMinorUnits(v, domain.CurrencyUSD)
}

// releasedTransaction is the $100.00 shift with 10% platform fee, 15% agency commission and 5% buffer
func releasedTransaction() domain.Transaction {
	agency := uuid.New()
	return domain.Transaction{
		ID:                uuid.New(),
		WorkerID:          uuid.New(),
		BusinessID:        uuid.New(),
		AgencyID:          &agency,
		AmountGross:       cents(10000),
		PlatformFee:       cents(1000),
		AgencyFee:         cents(1350),
		AmountNet:         cents(7650),
		ContingencyBuffer: cents(550),
		EscrowHold:        cents(11550),
		WorkerAdjustment:  cents(0),
		BusinessRefund:    cents(0),
		Status:            domain.TransactionStatusReleased,
	}
}

func byKind(instructions []domain.PayoutInstruction) map[domain.InstructionKind]domain.Money {
	out := make(map[domain.InstructionKind]domain.Money, len(instructions))
	for _, in := range instructions {
		out[in.Kind] = in.Amount
	}
	return out
}

func TestGenerateInstructions_ReleasedWithoutDispute(t *testing.T) {
	tx := releasedTransaction()

	instructions, err := GenerateInstructions(tx)
	require.NoError(t, err)

	got := byKind(instructions)
	assert.Len(t, got, 4)
	assert.Equal(t, "76.50 USD", got[domain.InstructionWorkerPayout].String())
	assert.Equal(t, "13.50 USD", got[domain.InstructionAgencyCommission].String())
	assert.Equal(t, "20.00 USD", got[domain.InstructionPlatformFee].String())
	assert.Equal(t, "5.50 USD", got[domain.InstructionBufferReturn].String())

	for _, in := range instructions {
		if in.Kind == domain.InstructionAgencyCommission {
			assert.Equal(t, tx.AgencyID, in.RecipientID)
		}
		if in.Kind == domain.InstructionPlatformFee {
			assert.Nil(t, in.RecipientID)
		}
	}
}

func TestGenerateInstructions_SplitRefundLeavesAwardWithWorker(t *testing.T) {
	tests := []struct {
		name         string
		disputed     int64
		award        int64
		wantWorker   string
		wantAgency   string
		wantPlatform string
	}{
		{"Refund fits above the award", 5000, 2500, "51.50 USD", "13.50 USD", "20.00 USD"},
		{"Whole gross disputed", 10000, 5000, "50.00 USD", "", "10.00 USD"},
		{"Whole gross awarded to worker", 10000, 10000, "76.50 USD", "13.50 USD", "20.00 USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := releasedTransaction()
			tx.WorkerAdjustment = cents(tt.award)
			tx.BusinessRefund = cents(tt.disputed - tt.award)

			instructions, err := GenerateInstructions(tx)
			require.NoError(t, err)

			got := byKind(instructions)
			assert.Equal(t, tt.wantWorker, got[domain.InstructionWorkerPayout].String())
			if tt.wantAgency == "" {
				_, ok := got[domain.InstructionAgencyCommission]
				assert.False(t, ok)
			} else {
				assert.Equal(t, tt.wantAgency, got[domain.InstructionAgencyCommission].String())
			}
			assert.Equal(t, tt.wantPlatform, got[domain.InstructionPlatformFee].String())
			assert.GreaterOrEqual(t, got[domain.InstructionWorkerPayout].MinorUnits(), min(tt.award, tx.AmountNet.MinorUnits()))
		})
	}
}

func TestGenerateInstructions_RefundLargerThanWorkerPayout(t *testing.T) {
	tx := releasedTransaction()
	tx.BusinessRefund = cents(9000)

	instructions, err := GenerateInstructions(tx)
	require.NoError(t, err)

	got := byKind(instructions)
	_, hasWorker := got[domain.InstructionWorkerPayout]
	_, hasAgency := got[domain.InstructionAgencyCommission]
	assert.False(t, hasWorker)
	assert.False(t, hasAgency)
	assert.Equal(t, "20.00 USD", got[domain.InstructionPlatformFee].String())
	assert.Equal(t, "5.50 USD", got[domain.InstructionBufferReturn].String())
	assert.Equal(t, "90.00 USD", got[domain.InstructionBusinessRefund].String())
}

func TestGenerateInstructions_BusinessFavorRefundsWholeHold(t *testing.T) {
	tx := releasedTransaction()
	tx.Status = domain.TransactionStatusFailed
	tx.BusinessRefund = tx.EscrowHold

	instructions, err := GenerateInstructions(tx)
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	assert.Equal(t, domain.InstructionBusinessRefund, instructions[0].Kind)
	assert.Equal(t, tx.BusinessID, *instructions[0].RecipientID)
	assert.True(t, instructions[0].Amount.Equal(tx.EscrowHold))
}

func TestGenerateInstructions_IsDeterministic(t *testing.T) {
	tx := releasedTransaction()

	first, err := GenerateInstructions(tx)
	require.NoError(t, err)
	second, err := GenerateInstructions(tx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateInstructions_NotYetReleased(t *testing.T) {
	for _, status := range []domain.TransactionStatus{
		domain.TransactionStatusPending,
		domain.TransactionStatusInEscrow,
		domain.TransactionStatusDisputed,
	} {
		tx := releasedTransaction()
		tx.Status = status

		_, err := GenerateInstructions(tx)
		assert.ErrorIs(t, err, domain.ErrInvalidState, string(status))
	}
}
