// Package model defines the core domain types shared across the portfolio
// engine. All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Time-travel modes. A session picks one mode before its first year is set
// and keeps it for the rest of the game.
const (
	ModeSequential = "sequential"
	ModeChaotic    = "chaotic"
)

// Tax brackets. Each selects a (short-term, long-term) capital gains rate
// pair in the tax package.
const (
	BracketBudget = "budget"
	BracketMiddle = "middle"
	BracketHigh   = "high"
)

var validBrackets = map[string]bool{
	BracketBudget: true,
	BracketMiddle: true,
	BracketHigh:   true,
}

// ErrInvalidSnapshot is returned when a persisted session fails structural
// validation at load time. Callers fall back to a fresh session rather than
// hydrating partial state.
var ErrInvalidSnapshot = errors.New("model: invalid session snapshot")

// Instrument is immutable reference data for one tradable symbol.
// Loaded once at startup, never mutated.
type Instrument struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Category    string `json:"category"`     // equity, index-fund, cash-equivalent, debt
	ListingYear int    `json:"listing_year"` // first simulated year the instrument exists
	Premium     bool   `json:"premium"`      // hidden until unlocked by achievements
}

// Lot is a single purchase event. CostBasis is fixed at purchase time and
// never retroactively altered. PurchaseYear is the simulated year at the
// moment of purchase and is authoritative for valuation; PurchaseDate is the
// wall-clock timestamp used only for holding-period tax classification.
type Lot struct {
	ID           string          `json:"id"`
	Shares       decimal.Decimal `json:"shares"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	PurchaseDate time.Time       `json:"purchase_date"`
	PurchaseYear int             `json:"purchase_year"`
}

// TaxState carries the running year-to-date gain accumulators and the
// session's bracket. CarryforwardLoss is persisted but not consumed by the
// current gain formula.
type TaxState struct {
	YTDShortTermGains decimal.Decimal `json:"ytd_short_term_gains"`
	YTDLongTermGains  decimal.Decimal `json:"ytd_long_term_gains"`
	CarryforwardLoss  decimal.Decimal `json:"carryforward_loss"`
	Bracket           string          `json:"bracket"`
}

// Session is the complete state of one game. It doubles as the persisted
// snapshot: every field here is authoritative, and anything derivable
// (valuations, notifications) is recomputed on load, never stored.
type Session struct {
	ID   string          `json:"id"`
	Cash decimal.Decimal `json:"cash"`

	// Holdings maps symbol → lots in purchase order (FIFO order). A symbol
	// key is either absent or maps to a non-empty slice.
	Holdings map[string][]Lot `json:"holdings"`

	Tax TaxState `json:"tax"`

	// Achievements grows monotonically within a session; never revoked.
	Achievements []string `json:"achievements"`

	// UnlockedInstruments is re-derived from achievements on every
	// evaluation, not incrementally accumulated.
	UnlockedInstruments []string `json:"unlocked_instruments"`

	Mode              string `json:"mode,omitempty"`
	CurrentYear       int    `json:"current_year,omitempty"`
	SequentialCursor  int    `json:"sequential_cursor,omitempty"`
	TravelCreditsUsed int    `json:"travel_credits_used"`
	YearsInvested     int    `json:"years_invested"`
	GameOver          bool   `json:"game_over"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAchievement reports whether the session already holds the identifier.
func (s *Session) HasAchievement(id string) bool {
	for _, a := range s.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// IsUnlocked reports whether the symbol is purchasable in this session.
func (s *Session) IsUnlocked(symbol string) bool {
	for _, u := range s.UnlockedInstruments {
		if u == symbol {
			return true
		}
	}
	return false
}

// TotalShares sums the shares across all lots of a symbol.
func (s *Session) TotalShares(symbol string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range s.Holdings[symbol] {
		total = total.Add(lot.Shares)
	}
	return total
}

// Validate checks the structural invariants of a session snapshot. It runs
// on every load path; a snapshot that fails here must be discarded, never
// repaired in place.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSnapshot)
	}
	if s.Cash.IsNegative() {
		return fmt.Errorf("%w: negative cash %s", ErrInvalidSnapshot, s.Cash)
	}
	if !validBrackets[s.Tax.Bracket] {
		return fmt.Errorf("%w: unknown tax bracket %q", ErrInvalidSnapshot, s.Tax.Bracket)
	}
	if s.Mode != "" && s.Mode != ModeSequential && s.Mode != ModeChaotic {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidSnapshot, s.Mode)
	}
	if s.TravelCreditsUsed < 0 || s.YearsInvested < 0 {
		return fmt.Errorf("%w: negative counters", ErrInvalidSnapshot)
	}
	for symbol, lots := range s.Holdings {
		if len(lots) == 0 {
			return fmt.Errorf("%w: empty lot list for %s", ErrInvalidSnapshot, symbol)
		}
		for _, lot := range lots {
			if lot.ID == "" {
				return fmt.Errorf("%w: lot without id for %s", ErrInvalidSnapshot, symbol)
			}
			if !lot.Shares.IsPositive() {
				return fmt.Errorf("%w: non-positive shares in %s lot %s", ErrInvalidSnapshot, symbol, lot.ID)
			}
			if lot.CostBasis.IsNegative() {
				return fmt.Errorf("%w: negative cost basis in %s lot %s", ErrInvalidSnapshot, symbol, lot.ID)
			}
		}
	}
	return nil
}

// Clone returns a deep copy. Engine operations work on a clone and commit it
// back to the store, so a failed operation never leaves the stored session
// half-modified.
func (s *Session) Clone() *Session {
	out := *s
	out.Holdings = make(map[string][]Lot, len(s.Holdings))
	for symbol, lots := range s.Holdings {
		copied := make([]Lot, len(lots))
		copy(copied, lots)
		out.Holdings[symbol] = copied
	}
	out.Achievements = append([]string(nil), s.Achievements...)
	out.UnlockedInstruments = append([]string(nil), s.UnlockedInstruments...)
	return &out
}
