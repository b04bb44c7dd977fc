package fees

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// RateConfig holds the percentages applied to a shift payment.
// AgencyCommissionPercent is nil when the worker has no agency.
type RateConfig struct {
	PlatformFeePercent       decimal.Decimal
	AgencyCommissionPercent  *decimal.Decimal
	ContingencyBufferPercent decimal.Decimal
}

// Validate ensures every percentage is within [0, 100]
func (r RateConfig) Validate() error {
	if err := validatePercent("platform fee", r.PlatformFeePercent); err != nil {
		return err
	}
	if r.AgencyCommissionPercent != nil {
		if err := validatePercent("agency commission", *r.AgencyCommissionPercent); err != nil {
			return err
		}
	}
	return validatePercent("contingency buffer", r.ContingencyBufferPercent)
}

func validatePercent(name string, p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return domain.NewValidationError("%s percentage must be between 0 and 100", name)
	}
	return nil
}

// Breakdown is the split of a gross shift payment
type Breakdown struct {
	Gross        domain.Money
	PlatformFee  domain.Money
	AgencyFee    domain.Money
	WorkerPayout domain.Money
}

// Calculate splits a gross amount between platform, agency and worker
// Logic:
//  1. Platform fee is taken from the gross first
//  2. Agency commission is computed on the *Remainder* (Gross - Platform fee), NOT on the gross
//  3. The worker receives whatever is left
//
// Safety: Ensures the three parts sum to the gross exactly (no penny lost)
func Calculate(gross domain.Money, rates RateConfig) (Breakdown, error) {
	if !gross.IsPositive() {
		return Breakdown{}, domain.NewValidationError("gross amount must be positive")
	}
	if err := rates.Validate(); err != nil {
		return Breakdown{}, err
	}

	platformFee := gross.Percent(rates.PlatformFeePercent)
	remainder := gross.Sub(platformFee)

	agencyFee := domain.Zero(gross.Currency())
	if rates.AgencyCommissionPercent != nil {
		agencyFee = remainder.Percent(*rates.AgencyCommissionPercent)
	}

	workerPayout := remainder.Sub(agencyFee)

	// Safety check: rounding happens per fee, the worker absorbs the difference
	if !workerPayout.Add(platformFee).Add(agencyFee).Equal(gross) {
		return Breakdown{}, errors.New("fee breakdown does not equal gross amount")
	}

	return Breakdown{
		Gross:        gross,
		PlatformFee:  platformFee,
		AgencyFee:    agencyFee,
		WorkerPayout: workerPayout,
	}, nil
}

// Hold is the amount kept in custody for a shift
type Hold struct {
	Base   domain.Money // gross + platform fee
	Buffer domain.Money
	Total  domain.Money
}

// EscrowHold computes (gross + platform fee) * (1 + buffer%).
// The buffer is rounded once; it is never paid to the worker.
func EscrowHold(gross domain.Money, rates RateConfig) (Hold, error) {
	breakdown, err := Calculate(gross, rates)
	if err != nil {
		return Hold{}, err
	}

	base := gross.Add(breakdown.PlatformFee)
	buffer := base.Percent(rates.ContingencyBufferPercent)

	return Hold{
		Base:   base,
		Buffer: buffer,
		Total:  base.Add(buffer),
	}, nil
}

// Split is the outcome of a partial resolution
type Split struct {
	WorkerAward    domain.Money
	BusinessRefund domain.Money
}

// SplitResolution divides a disputed amount into the worker award and the business refund
func SplitResolution(disputed, workerAward domain.Money) (Split, error) {
	if workerAward.IsNegative() || workerAward.GreaterThan(disputed) {
		return Split{}, domain.NewValidationError(
			"Resolution amount must be between %s and %s",
			domain.Zero(disputed.Currency()).Format(), disputed.Format())
	}
	return Split{
		WorkerAward:    workerAward,
		BusinessRefund: disputed.Sub(workerAward),
	}, nil
}

// PercentOf returns percent% of amount, used by the resolution advisory
func PercentOf(amount domain.Money, percent int64) domain.Money {
	if percent < 0 || percent > 100 {
		panic(fmt.Sprintf("fees: percent %d out of range", percent))
	}
	return amount.Percent(decimal.NewFromInt(percent))
}
