package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func validTransaction() Transaction {
	return Transaction{
		ID:                uuid.New(),
		ShiftID:           uuid.New(),
		AssignmentID:      uuid.New(),
		WorkerID:          uuid.New(),
		BusinessID:        uuid.New(),
		AmountGross:       FromMinorUnits(10000, CurrencyUSD),
		PlatformFee:       FromMinorUnits(1000, CurrencyUSD),
		AgencyFee:         FromMinorUnits(1350, CurrencyUSD),
		AmountNet:         FromMinorUnits(7650, CurrencyUSD),
		ContingencyBuffer: FromMinorUnits(550, CurrencyUSD),
		EscrowHold:        FromMinorUnits(11550, CurrencyUSD),
		Status:            TransactionStatusInEscrow,
	}
}

func TestTransaction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(tx *Transaction)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "Balanced transaction should pass",
			mutate:  func(tx *Transaction) {},
			wantErr: false,
		},
		{
			name: "Gross not equal to parts should fail",
			mutate: func(tx *Transaction) {
				tx.AmountNet = FromMinorUnits(7651, CurrencyUSD)
			},
			wantErr: true,
			errMsg:  "gross amount must equal net amount plus platform and agency fees",
		},
		{
			name: "Mixed currencies should fail",
			mutate: func(tx *Transaction) {
				tx.AgencyFee = FromMinorUnits(1350, CurrencyEUR)
			},
			wantErr: true,
			errMsg:  "transaction amounts must share one currency",
		},
		{
			name: "Zero gross should fail",
			mutate: func(tx *Transaction) {
				tx.AmountGross = Zero(CurrencyUSD)
				tx.PlatformFee = Zero(CurrencyUSD)
				tx.AgencyFee = Zero(CurrencyUSD)
				tx.AmountNet = Zero(CurrencyUSD)
			},
			wantErr: true,
			errMsg:  "transaction gross amount must be positive",
		},
		{
			name: "Missing worker should fail",
			mutate: func(tx *Transaction) {
				tx.WorkerID = uuid.Nil
			},
			wantErr: true,
			errMsg:  "transaction must reference an assignment, a worker and a business",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)

			err := tx.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTransactionTransition(t *testing.T) {
	tests := []struct {
		from, to TransactionStatus
		allowed  bool
	}{
		{TransactionStatusPending, TransactionStatusInEscrow, true},
		{TransactionStatusInEscrow, TransactionStatusReleased, true},
		{TransactionStatusInEscrow, TransactionStatusDisputed, true},
		{TransactionStatusReleased, TransactionStatusDisputed, true},
		{TransactionStatusReleased, TransactionStatusPaidOut, true},
		{TransactionStatusDisputed, TransactionStatusReleased, true},
		{TransactionStatusDisputed, TransactionStatusFailed, true},
		{TransactionStatusPaidOut, TransactionStatusDisputed, false},
		{TransactionStatusFailed, TransactionStatusDisputed, false},
		{TransactionStatusInEscrow, TransactionStatusPaidOut, false},
		{TransactionStatusDisputed, TransactionStatusPaidOut, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := ValidateTransactionTransition(tt.from, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidState)
			}
		})
	}
}

func TestTransaction_CanBeDisputed(t *testing.T) {
	tx := validTransaction()
	assert.True(t, tx.CanBeDisputed())

	tx.Status = TransactionStatusReleased
	assert.True(t, tx.CanBeDisputed())

	tx.Disputed = true
	assert.False(t, tx.CanBeDisputed())

	tx.Disputed = false
	tx.Status = TransactionStatusPaidOut
	assert.False(t, tx.CanBeDisputed())
}
