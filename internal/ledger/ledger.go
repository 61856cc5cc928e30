// Package ledger owns the buy/sell accounting over a session's lots: strict
// rejection on buys, FIFO consumption with clamping on sells, and the
// realized/unrealized portfolio split.
//
// All operations mutate the session they are handed and either fully apply
// or leave it untouched. Callers are expected to serialize access; the
// ledger itself holds no locks.
package ledger

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/timevest/engine/internal/model"
	"github.com/timevest/engine/internal/pricing"
	"github.com/timevest/engine/internal/tax"
)

var (
	// ErrInsufficientFunds is returned when a buy's cost exceeds cash.
	// Buys are rejected outright, never clamped to available cash.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrNonPositiveShares is returned for a buy of zero or negative shares.
	ErrNonPositiveShares = errors.New("ledger: shares must be positive")
)

// Ledger executes portfolio operations against the valuation resolver.
type Ledger struct {
	resolver *pricing.Resolver
}

// New creates a ledger backed by the given resolver.
func New(resolver *pricing.Resolver) *Ledger {
	return &Ledger{resolver: resolver}
}

// Buy appends a new lot for the symbol at the given per-share price. The
// lot's purchase year is captured from the session's current simulated year
// and never recomputed from the wall-clock date.
func (l *Ledger) Buy(s *model.Session, symbol string, shares, price decimal.Decimal) (model.Lot, error) {
	if !shares.IsPositive() {
		return model.Lot{}, ErrNonPositiveShares
	}
	cost := shares.Mul(price)
	if cost.GreaterThan(s.Cash) {
		return model.Lot{}, ErrInsufficientFunds
	}

	lot := model.Lot{
		ID:           uuid.New().String(),
		Shares:       shares,
		CostBasis:    price,
		PurchaseDate: time.Now().UTC(),
		PurchaseYear: s.CurrentYear,
	}
	if s.Holdings == nil {
		s.Holdings = make(map[string][]model.Lot)
	}
	s.Holdings[symbol] = append(s.Holdings[symbol], lot)
	s.Cash = s.Cash.Sub(cost)
	return lot, nil
}

// SellResult reports the outcome of a sell: gross proceeds credited to cash
// and the deltas added to the tax accumulators. SharesSold may be less than
// requested when holdings ran out.
type SellResult struct {
	Proceeds           decimal.Decimal `json:"proceeds"`
	SharesSold         decimal.Decimal `json:"shares_sold"`
	ShortTermGainDelta decimal.Decimal `json:"short_term_gain_delta"`
	LongTermGainDelta  decimal.Decimal `json:"long_term_gain_delta"`
}

// Sell consumes lots for the symbol in FIFO order until the requested share
// count is satisfied or holdings are exhausted — requesting more than held
// silently sells only what exists. Each lot is priced individually through
// the resolver at the session's current simulated year, so a lot frozen by a
// pre-listing year sells at its own cost basis. Gains and losses both land
// in the year-to-date accumulators, classified by real elapsed days held;
// proceeds are credited gross, tax is tracked but never withheld.
//
// Selling a symbol with no lots is a no-op returning a zero result.
func (l *Ledger) Sell(s *model.Session, symbol string, shares decimal.Decimal) SellResult {
	var res SellResult
	res.Proceeds = decimal.Zero
	res.SharesSold = decimal.Zero
	res.ShortTermGainDelta = decimal.Zero
	res.LongTermGainDelta = decimal.Zero

	lots := s.Holdings[symbol]
	if len(lots) == 0 || !shares.IsPositive() {
		return res
	}

	now := time.Now().UTC()
	remaining := shares
	var kept []model.Lot

	for i, lot := range lots {
		if !remaining.IsPositive() {
			kept = append(kept, lots[i:]...)
			break
		}

		consumed := decimal.Min(remaining, lot.Shares)
		salePrice := l.resolver.PriceAt(symbol, s.CurrentYear, lot.CostBasis, lot.PurchaseYear)

		res.Proceeds = res.Proceeds.Add(consumed.Mul(salePrice))
		res.SharesSold = res.SharesSold.Add(consumed)

		gain := salePrice.Sub(lot.CostBasis).Mul(consumed)
		daysHeld := int(now.Sub(lot.PurchaseDate).Hours() / 24)
		if tax.IsLongTerm(daysHeld) {
			res.LongTermGainDelta = res.LongTermGainDelta.Add(gain)
		} else {
			res.ShortTermGainDelta = res.ShortTermGainDelta.Add(gain)
		}

		if consumed.LessThan(lot.Shares) {
			lot.Shares = lot.Shares.Sub(consumed) // cost basis untouched
			kept = append(kept, lot)
		}
		remaining = remaining.Sub(consumed)
	}

	if len(kept) == 0 {
		delete(s.Holdings, symbol) // never leave an empty lot list behind
	} else {
		s.Holdings[symbol] = kept
	}

	s.Cash = s.Cash.Add(res.Proceeds)
	s.Tax.YTDShortTermGains = s.Tax.YTDShortTermGains.Add(res.ShortTermGainDelta)
	s.Tax.YTDLongTermGains = s.Tax.YTDLongTermGains.Add(res.LongTermGainDelta)
	return res
}

// Analysis is the realized/unrealized/total valuation split. Realized means
// marketable at the current simulated year; unrealized covers lots whose
// instrument is not yet listed there, valued frozen at cost. The split — not
// the raw total — feeds the terminal status tiers.
type Analysis struct {
	Realized   decimal.Decimal `json:"realized"`
	Unrealized decimal.Decimal `json:"unrealized"`
	Total      decimal.Decimal `json:"total"`
}

// Analyze values every lot at the given simulated year. Cash is always
// realized.
func (l *Ledger) Analyze(s *model.Session, year int) Analysis {
	realized := s.Cash
	unrealized := decimal.Zero

	for symbol, lots := range s.Holdings {
		available := l.resolver.IsAvailable(symbol, year)
		for _, lot := range lots {
			value := lot.Shares.Mul(l.resolver.PriceAt(symbol, year, lot.CostBasis, lot.PurchaseYear))
			if available {
				realized = realized.Add(value)
			} else {
				unrealized = unrealized.Add(value)
			}
		}
	}

	return Analysis{
		Realized:   realized,
		Unrealized: unrealized,
		Total:      realized.Add(unrealized),
	}
}

// PendingListings returns the held symbols that are not yet listed at the
// given year, sorted for stable output. The travel handler surfaces these as
// a pre-listing notification after a jump into the past.
func (l *Ledger) PendingListings(s *model.Session, year int) []string {
	var pending []string
	for symbol := range s.Holdings {
		if !l.resolver.IsAvailable(symbol, year) {
			pending = append(pending, symbol)
		}
	}
	sort.Strings(pending)
	return pending
}
