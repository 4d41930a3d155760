// Package amount provides the fixed-point value type used for every SOL,
// token, and percent quantity in the trading core.
package amount

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// SolDecimals is the lamport resolution of native SOL.
	SolDecimals int32 = 9
	// PercentDecimals is the resolution used for percent values.
	PercentDecimals int32 = 2
)

// Amount is an immutable fixed-point value: a scaled integer plus the number
// of decimal places it carries. Arithmetic returns a new Amount, so values
// can be stored in orders and ledgers without aliasing concerns.
type Amount struct {
	value    decimal.Decimal // scaled integer units
	decimals int32
}

// FromUI builds an Amount from a display value at the given resolution.
// Precision beyond the declared decimals is rounded away.
func FromUI(ui decimal.Decimal, decimals int32) Amount {
	return Amount{value: ui.Shift(decimals).Round(0), decimals: decimals}
}

// FromScaled builds an Amount directly from scaled integer units.
func FromScaled(scaled decimal.Decimal, decimals int32) Amount {
	return Amount{value: scaled.Round(0), decimals: decimals}
}

// SolUI builds a SOL amount from a display value.
func SolUI(ui float64) Amount {
	return FromUI(decimal.NewFromFloat(ui), SolDecimals)
}

// SolScaled builds a SOL amount from lamports.
func SolScaled(lamports int64) Amount {
	return FromScaled(decimal.NewFromInt(lamports), SolDecimals)
}

// TokensUI builds a token amount from a display value at the token's resolution.
func TokensUI(ui float64, decimals int32) Amount {
	return FromUI(decimal.NewFromFloat(ui), decimals)
}

// TokensScaled builds a token amount from base units.
func TokensScaled(scaled int64, decimals int32) Amount {
	return FromScaled(decimal.NewFromInt(scaled), decimals)
}

// PercentUI builds a percent value (100 == 100%).
func PercentUI(ui float64) Amount {
	return FromUI(decimal.NewFromFloat(ui), PercentDecimals)
}

// Zero returns a zero amount at the given resolution.
func Zero(decimals int32) Amount {
	return Amount{value: decimal.Zero, decimals: decimals}
}

// UIDecimal returns the display value, exactly value / 10^decimals.
func (a Amount) UIDecimal() decimal.Decimal {
	return a.value.Shift(-a.decimals)
}

// UI returns the display value as a float64 for logging and reporting.
func (a Amount) UI() float64 {
	f, _ := a.UIDecimal().Float64()
	return f
}

// Scaled returns the integer-valued scaled representation.
func (a Amount) Scaled() decimal.Decimal {
	return a.value
}

// Decimals returns the declared resolution.
func (a Amount) Decimals() int32 {
	return a.decimals
}

// Add returns a + b at a's resolution. Mixed resolutions are reconciled
// through the display value, then re-rounded.
func (a Amount) Add(b Amount) Amount {
	if a.decimals == b.decimals {
		return Amount{value: a.value.Add(b.value), decimals: a.decimals}
	}
	return FromUI(a.UIDecimal().Add(b.UIDecimal()), a.decimals)
}

// AddUI returns a plus a display-value delta.
func (a Amount) AddUI(ui decimal.Decimal) Amount {
	return FromUI(a.UIDecimal().Add(ui), a.decimals)
}

// AddScaled returns a plus a scaled-unit delta.
func (a Amount) AddScaled(scaled decimal.Decimal) Amount {
	return Amount{value: a.value.Add(scaled.Round(0)), decimals: a.decimals}
}

// Sub returns a - b at a's resolution.
func (a Amount) Sub(b Amount) Amount {
	return a.Add(b.Neg())
}

// Neg returns the negated amount.
func (a Amount) Neg() Amount {
	return Amount{value: a.value.Neg(), decimals: a.decimals}
}

// Abs returns the magnitude of the amount.
func (a Amount) Abs() Amount {
	return Amount{value: a.value.Abs(), decimals: a.decimals}
}

// WithUI returns an amount at a's resolution holding the given display value.
func (a Amount) WithUI(ui decimal.Decimal) Amount {
	return FromUI(ui, a.decimals)
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool {
	return a.value.IsPositive()
}

// IsNegative reports whether the amount is less than zero.
func (a Amount) IsNegative() bool {
	return a.value.IsNegative()
}

// Cmp compares display values: -1 if a<b, 0 if equal, 1 if a>b.
func (a Amount) Cmp(b Amount) int {
	return a.UIDecimal().Cmp(b.UIDecimal())
}

// MarshalJSON emits the display value as a JSON number, so amounts embedded
// in event payloads survive serialization despite the unexported fields.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.UIDecimal().String()), nil
}

func (a Amount) String() string {
	return fmt.Sprintf("%s(%dd)", a.UIDecimal().String(), a.decimals)
}
