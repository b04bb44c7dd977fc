package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateDisputeTransition(t *testing.T) {
	assert.NoError(t, ValidateDisputeTransition(DisputeStatusOpen, DisputeStatusUnderReview))
	assert.NoError(t, ValidateDisputeTransition(DisputeStatusUnderReview, DisputeStatusEscalated))
	assert.NoError(t, ValidateDisputeTransition(DisputeStatusMediation, DisputeStatusMediation))
	assert.NoError(t, ValidateDisputeTransition(DisputeStatusEscalated, DisputeStatusResolved))
	assert.NoError(t, ValidateDisputeTransition(DisputeStatusEscalated, DisputeStatusEscalated))

	assert.ErrorIs(t, ValidateDisputeTransition(DisputeStatusResolved, DisputeStatusEscalated), ErrInvalidState)
	assert.ErrorIs(t, ValidateDisputeTransition(DisputeStatusClosed, DisputeStatusOpen), ErrInvalidState)
	assert.ErrorIs(t, ValidateDisputeTransition(DisputeStatusUnderReview, DisputeStatusOpen), ErrInvalidState)
}

func TestDispute_PartyRole(t *testing.T) {
	d := Dispute{WorkerID: uuid.New(), BusinessID: uuid.New()}

	role, ok := d.PartyRole(d.WorkerID)
	assert.True(t, ok)
	assert.Equal(t, RoleWorker, role)

	role, ok = d.PartyRole(d.BusinessID)
	assert.True(t, ok)
	assert.Equal(t, RoleBusiness, role)

	_, ok = d.PartyRole(uuid.New())
	assert.False(t, ok)
}

func TestDispute_Validate(t *testing.T) {
	now := time.Now()
	half := FromMinorUnits(2500, CurrencyUSD)
	tooMuch := FromMinorUnits(5001, CurrencyUSD)
	negative := FromMinorUnits(-1, CurrencyUSD)

	tests := []struct {
		name    string
		mutate  func(d *Dispute)
		wantErr error
	}{
		{name: "open dispute", mutate: func(d *Dispute) {}},
		{name: "resolution within bounds", mutate: func(d *Dispute) { d.ResolutionAmount = &half }},
		{name: "resolution above disputed amount", mutate: func(d *Dispute) { d.ResolutionAmount = &tooMuch }, wantErr: ErrValidation},
		{name: "negative resolution", mutate: func(d *Dispute) { d.ResolutionAmount = &negative }, wantErr: ErrValidation},
		{name: "unknown type", mutate: func(d *Dispute) { d.Type = "fraud" }, wantErr: ErrValidation},
		{
			name:    "resolved without resolution",
			mutate:  func(d *Dispute) { d.Status = DisputeStatusResolved; d.ResolvedAt = &now },
			wantErr: ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Dispute{
				Type:           DisputeTypePayment,
				DisputedAmount: FromMinorUnits(5000, CurrencyUSD),
				Status:         DisputeStatusOpen,
			}
			tt.mutate(&d)

			err := d.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := NewConflictError("You have already responded to this dispute")

	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "You have already responded to this dispute", err.Error())
}
