// Package tax implements the simplified two-rate capital gains model. Three
// brackets, each a (short-term, long-term) rate pair; long-term rates are
// uniformly lower. This is a game approximation, not a tax-filing engine.
package tax

import (
	"github.com/shopspring/decimal"

	"github.com/timevest/engine/internal/model"
)

// LongTermDays is the real wall-clock holding period, in days, at which a
// gain qualifies for the long-term rate.
const LongTermDays = 365

// Rates is a bracket's short-term and long-term capital gains rate pair.
type Rates struct {
	ShortTerm decimal.Decimal
	LongTerm  decimal.Decimal
}

var brackets = map[string]Rates{
	model.BracketBudget: {ShortTerm: decimal.NewFromFloat(0.12), LongTerm: decimal.Zero},
	model.BracketMiddle: {ShortTerm: decimal.NewFromFloat(0.22), LongTerm: decimal.NewFromFloat(0.15)},
	model.BracketHigh:   {ShortTerm: decimal.NewFromFloat(0.32), LongTerm: decimal.NewFromFloat(0.20)},
}

// BracketRates returns the rate pair for a bracket. Unknown brackets fall
// back to middle, the store's load-time validation being the real gate.
func BracketRates(bracket string) Rates {
	if r, ok := brackets[bracket]; ok {
		return r
	}
	return brackets[model.BracketMiddle]
}

// IsLongTerm reports whether a holding period qualifies for long-term rates.
func IsLongTerm(daysHeld int) bool {
	return daysHeld >= LongTermDays
}

// CapitalGains returns the tax owed on a gain. Losses confer no rebate in
// this model: gain <= 0 always taxes at zero.
func CapitalGains(gain decimal.Decimal, daysHeld int, bracket string) decimal.Decimal {
	if !gain.IsPositive() {
		return decimal.Zero
	}
	rates := BracketRates(bracket)
	if IsLongTerm(daysHeld) {
		return gain.Mul(rates.LongTerm)
	}
	return gain.Mul(rates.ShortTerm)
}
