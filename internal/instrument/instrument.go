// Package instrument holds the static catalog of tradable instruments:
// symbols, display names, categories, listing years, and the premium flag
// that hides an instrument until an achievement unlocks it.
package instrument

import (
	"errors"
	"fmt"
	"sort"

	"github.com/timevest/engine/internal/model"
)

// Instrument categories.
const (
	CategoryEquity         = "equity"
	CategoryIndexFund      = "index-fund"
	CategoryCashEquivalent = "cash-equivalent"
	CategoryDebt           = "debt"
)

// ErrUnknownSymbol is returned when a symbol is not in the catalog.
var ErrUnknownSymbol = errors.New("instrument: unknown symbol")

// catalog is loaded once at startup and never mutated.
var catalog = []model.Instrument{
	{Symbol: "AAPL", Name: "Apple", Category: CategoryEquity, ListingYear: 1981},
	{Symbol: "AMZN", Name: "Amazon", Category: CategoryEquity, ListingYear: 1997},
	{Symbol: "MSFT", Name: "Microsoft", Category: CategoryEquity, ListingYear: 1986},
	{Symbol: "INTC", Name: "Intel", Category: CategoryEquity, ListingYear: 1981},
	{Symbol: "F", Name: "Ford", Category: CategoryEquity, ListingYear: 1981},
	{Symbol: "KO", Name: "Coca-Cola", Category: CategoryEquity, ListingYear: 1981},
	{Symbol: "VFINX", Name: "Vanguard 500 Index", Category: CategoryIndexFund, ListingYear: 1981},
	{Symbol: "CD", Name: "Certificate of Deposit", Category: CategoryCashEquivalent, ListingYear: 1981},
	{Symbol: "DEBT", Name: "Bond Fund", Category: CategoryDebt, ListingYear: 1981},

	{Symbol: "FB", Name: "Facebook", Category: CategoryEquity, ListingYear: 2012, Premium: true},
	{Symbol: "GOOGL", Name: "Google", Category: CategoryEquity, ListingYear: 2004, Premium: true},
	{Symbol: "TSLA", Name: "Tesla", Category: CategoryEquity, ListingYear: 2010, Premium: true},
	{Symbol: "NFLX", Name: "Netflix", Category: CategoryEquity, ListingYear: 2002, Premium: true},
}

var bySymbol = func() map[string]model.Instrument {
	m := make(map[string]model.Instrument, len(catalog))
	for _, inst := range catalog {
		m[inst.Symbol] = inst
	}
	return m
}()

// Lookup returns the instrument for a symbol.
func Lookup(symbol string) (model.Instrument, error) {
	inst, ok := bySymbol[symbol]
	if !ok {
		return model.Instrument{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return inst, nil
}

// All returns the full catalog sorted by symbol.
func All() []model.Instrument {
	out := make([]model.Instrument, len(catalog))
	copy(out, catalog)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// FreeTier returns the baseline set of symbols every new session can trade.
// Premium symbols join it only through achievement unlocks.
func FreeTier() []string {
	var out []string
	for _, inst := range catalog {
		if !inst.Premium {
			out = append(out, inst.Symbol)
		}
	}
	sort.Strings(out)
	return out
}

// IsListed reports whether the instrument exists in the simulated world at
// the given year. Pre-listing years freeze a held lot at its cost basis.
func IsListed(symbol string, year int) bool {
	inst, ok := bySymbol[symbol]
	return ok && year >= inst.ListingYear
}
