// Package achievement evaluates the unlock rules over session state. The
// evaluator is a pure function: same state in, same set out, and the
// achievement set only ever grows within a session. Some achievements carry
// instrument unlock lists that open premium symbols for trading.
package achievement

import (
	"sort"
	"time"

	"github.com/timevest/engine/internal/instrument"
	"github.com/timevest/engine/internal/model"
	"github.com/timevest/engine/internal/tax"
)

// Achievement identifiers.
const (
	FirstTrade       = "first_trade"
	Complete1980s    = "complete_1980s"
	Complete1990s    = "complete_1990s"
	Complete2000s    = "complete_2000s"
	LongTermInvestor = "long_term_investor"
	Diversified      = "diversified"
	IndexFun         = "index_fun"
)

// Achievement describes one unlockable with the premium symbols it opens.
type Achievement struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Unlocks     []string `json:"unlocks,omitempty"`
}

// Catalog lists every achievement the engine can award.
var Catalog = []Achievement{
	{ID: FirstTrade, Name: "First Steps", Description: "Make your first purchase"},
	{ID: Complete1980s, Name: "The Decade of Excess", Description: "Invest through 8 simulated years",
		Unlocks: []string{"FB", "GOOGL", "TSLA"}},
	{ID: Complete1990s, Name: "Dot-Com Era", Description: "Invest through 16 simulated years",
		Unlocks: []string{"NFLX"}},
	{ID: Complete2000s, Name: "New Millennium", Description: "Invest through 24 simulated years"},
	{ID: LongTermInvestor, Name: "Patient Investor", Description: "Hold a position for over a year"},
	{ID: Diversified, Name: "Diversified Portfolio", Description: "Hold at least 5 different instruments"},
	{ID: IndexFun, Name: "Index Enthusiast", Description: "Invest in VFINX"},
}

// indexFundSymbol is the specific holding that awards IndexFun.
const indexFundSymbol = "VFINX"

// Thresholds for the decade-completion achievements, in cumulative simulated
// years — not calendar alignment.
const (
	decade1Years = 8
	decade2Years = 16
	decade3Years = 24
)

// Evaluate returns the session's achievement set after applying every rule
// to the current state. The result is the monotonic union with the existing
// set: rules are idempotent and achievements are never removed. The session
// is not mutated.
func Evaluate(s *model.Session) []string {
	awarded := make(map[string]bool, len(s.Achievements))
	for _, id := range s.Achievements {
		awarded[id] = true
	}

	if len(s.Holdings) > 0 {
		awarded[FirstTrade] = true
	}
	if s.YearsInvested >= decade1Years {
		awarded[Complete1980s] = true
	}
	if s.YearsInvested >= decade2Years {
		awarded[Complete1990s] = true
	}
	if s.YearsInvested >= decade3Years {
		awarded[Complete2000s] = true
	}
	if hasLongTermLot(s, time.Now().UTC()) {
		awarded[LongTermInvestor] = true
	}
	if len(s.Holdings) >= 5 {
		awarded[Diversified] = true
	}
	if len(s.Holdings[indexFundSymbol]) > 0 {
		awarded[IndexFun] = true
	}

	out := make([]string, 0, len(awarded))
	for id := range awarded {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// UnlockedInstruments derives the tradable symbol set from scratch: the
// baseline free tier plus the unlock lists of every held achievement.
// Recomputing instead of accumulating keeps the set fully derivable from the
// achievement set.
func UnlockedInstruments(achievements []string) []string {
	held := make(map[string]bool, len(achievements))
	for _, id := range achievements {
		held[id] = true
	}

	unlocked := make(map[string]bool)
	for _, symbol := range instrument.FreeTier() {
		unlocked[symbol] = true
	}
	for _, ach := range Catalog {
		if !held[ach.ID] {
			continue
		}
		for _, symbol := range ach.Unlocks {
			unlocked[symbol] = true
		}
	}

	out := make([]string, 0, len(unlocked))
	for symbol := range unlocked {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

func hasLongTermLot(s *model.Session, now time.Time) bool {
	for _, lots := range s.Holdings {
		for _, lot := range lots {
			daysHeld := int(now.Sub(lot.PurchaseDate).Hours() / 24)
			if tax.IsLongTerm(daysHeld) {
				return true
			}
		}
	}
	return false
}
