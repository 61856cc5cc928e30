// Package pricing implements the year-indexed valuation resolver. Instrument
// prices are driven by pre-recorded annual return tables: the price at a
// target year is a fixed base price compounded forward year by year from the
// instrument's listing year. Years absent from a series leave the running
// price unchanged — a gap is not a zero return that resets compounding.
//
// All monetary values use shopspring/decimal — never float64 for money.
package pricing

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/timevest/engine/internal/instrument"
)

// BasePrice is the price every instrument starts at in its listing year,
// before that year's return is applied.
var BasePrice = decimal.NewFromInt(100)

//go:embed returns.json
var returnsJSON []byte

// Resolver answers price and availability queries against the return tables.
// It is stateless apart from the immutable tables; lot data is passed as
// arguments, not stored.
type Resolver struct {
	returns map[string]map[int]decimal.Decimal
}

// NewResolver builds a resolver over the given return tables.
func NewResolver(returns map[string]map[int]decimal.Decimal) *Resolver {
	return &Resolver{returns: returns}
}

// Load parses the embedded annual return tables and returns a resolver over
// them. The tables are read once at startup.
func Load() (*Resolver, error) {
	var raw map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(returnsJSON, &raw); err != nil {
		return nil, fmt.Errorf("pricing: parse return tables: %w", err)
	}

	returns := make(map[string]map[int]decimal.Decimal, len(raw))
	for symbol, series := range raw {
		byYear := make(map[int]decimal.Decimal, len(series))
		for yearStr, r := range series {
			year, err := strconv.Atoi(yearStr)
			if err != nil {
				return nil, fmt.Errorf("pricing: bad year %q for %s: %w", yearStr, symbol, err)
			}
			byYear[year] = r
		}
		returns[symbol] = byYear
	}
	return &Resolver{returns: returns}, nil
}

// IsAvailable reports whether the instrument is listed — and therefore
// marketable — at the given simulated year. It gates purchase eligibility
// and the realized/unrealized split in portfolio analysis.
func (r *Resolver) IsAvailable(symbol string, year int) bool {
	return instrument.IsListed(symbol, year)
}

// PriceAt computes the simulated price of one share at targetYear for a lot
// purchased at costBasis in purchaseYear.
//
// If targetYear precedes the instrument's listing year, the instrument does
// not yet exist from the traveler's vantage point and the lot's value is
// frozen at what the holder paid — no windfall, no penalty. Otherwise the
// full trajectory is recomputed: BasePrice compounded by (1 + return) for
// every year from the listing year through targetYear that appears in the
// series. The lot's purchase price plays no part in the compounding path.
func (r *Resolver) PriceAt(symbol string, targetYear int, costBasis decimal.Decimal, purchaseYear int) decimal.Decimal {
	inst, err := instrument.Lookup(symbol)
	if err != nil {
		return costBasis
	}
	if targetYear < inst.ListingYear {
		return costBasis
	}

	series := r.returns[symbol]
	price := BasePrice
	one := decimal.NewFromInt(1)
	for year := inst.ListingYear; year <= targetYear; year++ {
		if ret, ok := series[year]; ok {
			price = price.Mul(one.Add(ret))
		}
	}
	return price
}

// PricesForYear returns the compounded price of every instrument listed at
// the given year. Unlisted instruments are omitted, not zeroed.
func (r *Resolver) PricesForYear(year int) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal)
	for _, inst := range instrument.All() {
		if year < inst.ListingYear {
			continue
		}
		prices[inst.Symbol] = r.PriceAt(inst.Symbol, year, BasePrice, inst.ListingYear)
	}
	return prices
}
