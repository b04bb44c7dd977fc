package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency code supported by the engine
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
)

type currencyInfo struct {
	exponent int32 // number of minor-unit digits
	symbol   string
}

var currencies = map[Currency]currencyInfo{
	CurrencyUSD: {exponent: 2, symbol: "$"},
	CurrencyEUR: {exponent: 2, symbol: "€"},
	CurrencyGBP: {exponent: 2, symbol: "£"},
	CurrencyJPY: {exponent: 0, symbol: "¥"},
}

// ParseCurrency normalizes and validates a currency code
func ParseCurrency(raw string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", NewValidationError("unsupported currency %q", raw)
	}
	return c, nil
}

// Valid reports whether the currency is supported
func (c Currency) Valid() bool {
	_, ok := currencies[c]
	return ok
}

// Exponent returns the number of minor-unit digits of the currency
func (c Currency) Exponent() int32 {
	return c.info().exponent
}

func (c Currency) info() currencyInfo {
	info, ok := currencies[c]
	if !ok {
		panic(fmt.Sprintf("money: unsupported currency %q", string(c)))
	}
	return info
}

// RemainderPolicy decides which shares receive the minor units left over by Divide
type RemainderPolicy int

const (
	// RemainderUnspecified is the zero value and is rejected by Divide
	RemainderUnspecified RemainderPolicy = iota
	// RemainderToFirst gives the whole remainder to the first share
	RemainderToFirst
	// RemainderSpread gives one minor unit to each of the first r shares
	RemainderSpread
)

// Money is an immutable amount held as integer minor units of a single currency.
// Mixing currencies or dividing without a remainder policy is a caller defect and panics.
type Money struct {
	minor    int64
	currency Currency
}

// Zero returns a zero amount in the given currency
func Zero(currency Currency) Money {
	return FromMinorUnits(0, currency)
}

// FromMinorUnits builds a Money value from an integer count of minor units (e.g. cents)
func FromMinorUnits(minor int64, currency Currency) Money {
	currency.info()
	return Money{minor: minor, currency: currency}
}

// FromDecimal rounds a decimal amount to the currency's minor unit using round-half-to-even
func FromDecimal(amount decimal.Decimal, currency Currency) Money {
	m, err := fromDecimal(amount, currency)
	if err != nil {
		panic(err.Error())
	}
	return m
}

// ParseMoney parses a decimal string such as "100.25" into Money
func ParseMoney(raw string, currency Currency) (Money, error) {
	if !currency.Valid() {
		return Money{}, NewValidationError("unsupported currency %q", string(currency))
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Money{}, NewValidationError("invalid amount %q", raw)
	}
	m, err := fromDecimal(amount, currency)
	if err != nil {
		return Money{}, NewValidationError("%s", err.Error())
	}
	return m, nil
}

func fromDecimal(amount decimal.Decimal, currency Currency) (Money, error) {
	exp := currency.Exponent()
	minor := amount.RoundBank(exp).Shift(exp)
	big := minor.BigInt()
	if !big.IsInt64() {
		return Money{}, fmt.Errorf("money: amount %s overflows %s minor units", amount.String(), currency)
	}
	return Money{minor: big.Int64(), currency: currency}, nil
}

// Currency returns the currency of the amount
func (m Money) Currency() Currency {
	return m.currency
}

// MinorUnits returns the amount as an integer count of minor units
func (m Money) MinorUnits() int64 {
	return m.minor
}

// Decimal returns the exact decimal value of the amount
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.minor, -m.currency.Exponent())
}

// Add returns m + other
func (m Money) Add(other Money) Money {
	m.mustMatch(other)
	sum := m.minor + other.minor
	if (other.minor > 0 && sum < m.minor) || (other.minor < 0 && sum > m.minor) {
		panic("money: addition overflows int64")
	}
	return Money{minor: sum, currency: m.currency}
}

// Sub returns m - other
func (m Money) Sub(other Money) Money {
	m.mustMatch(other)
	if other.minor == math.MinInt64 {
		panic("money: subtraction overflows int64")
	}
	return m.Add(Money{minor: -other.minor, currency: other.currency})
}

// MultiplyByRate multiplies by an exact decimal rate.
// The product is kept at full precision and rounded half-to-even only once.
func (m Money) MultiplyByRate(rate decimal.Decimal) Money {
	return FromDecimal(m.Decimal().Mul(rate), m.currency)
}

// Percent returns percent% of the amount, e.g. Percent(15) for 15%
func (m Money) Percent(percent decimal.Decimal) Money {
	return m.MultiplyByRate(percent.Shift(-2))
}

// Divide splits the amount into n shares whose sum is exactly m
func (m Money) Divide(n int, policy RemainderPolicy) []Money {
	if n <= 0 {
		panic(fmt.Sprintf("money: cannot divide into %d shares", n))
	}
	if policy != RemainderToFirst && policy != RemainderSpread {
		panic("money: divide requires an explicit remainder policy")
	}

	quotient := m.minor / int64(n)
	remainder := m.minor % int64(n)
	unit := int64(1)
	if remainder < 0 {
		unit = -1
		remainder = -remainder
	}

	shares := make([]Money, n)
	for i := range shares {
		shares[i] = Money{minor: quotient, currency: m.currency}
	}

	switch policy {
	case RemainderToFirst:
		shares[0].minor += remainder * unit
	case RemainderSpread:
		for i := int64(0); i < remainder; i++ {
			shares[i].minor += unit
		}
	}
	return shares
}

// Compare returns -1, 0 or 1 when m is less than, equal to or greater than other
func (m Money) Compare(other Money) int {
	m.mustMatch(other)
	switch {
	case m.minor < other.minor:
		return -1
	case m.minor > other.minor:
		return 1
	default:
		return 0
	}
}

// Equal reports whether both amounts have the same currency and value
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.minor == other.minor
}

func (m Money) LessThan(other Money) bool    { return m.Compare(other) < 0 }
func (m Money) GreaterThan(other Money) bool { return m.Compare(other) > 0 }

func (m Money) IsZero() bool     { return m.minor == 0 }
func (m Money) IsNegative() bool { return m.minor < 0 }
func (m Money) IsPositive() bool { return m.minor > 0 }

// String renders the amount with its currency code, e.g. "100.00 USD"
func (m Money) String() string {
	if m.currency == "" {
		return "0"
	}
	return m.Decimal().StringFixed(m.currency.Exponent()) + " " + string(m.currency)
}

// Format renders the amount with its currency symbol, e.g. "$100.00"
func (m Money) Format() string {
	info := m.currency.info()
	abs := m.Decimal().Abs().StringFixed(info.exponent)
	if m.minor < 0 {
		return "-" + info.symbol + abs
	}
	return info.symbol + abs
}

func (m Money) mustMatch(other Money) {
	if m.currency != other.currency {
		panic(fmt.Sprintf("money: currency mismatch %q vs %q", string(m.currency), string(other.currency)))
	}
}
