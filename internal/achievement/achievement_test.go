package achievement_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/timevest/engine/internal/achievement"
	"github.com/timevest/engine/internal/model"
)

func sessionWithHoldings(symbols ...string) *model.Session {
	s := &model.Session{
		Cash:     decimal.NewFromInt(100),
		Holdings: make(map[string][]model.Lot),
		Tax:      model.TaxState{Bracket: model.BracketMiddle},
	}
	for i, sym := range symbols {
		s.Holdings[sym] = []model.Lot{{
			ID:           sym + "-lot",
			Shares:       decimal.NewFromInt(1),
			CostBasis:    decimal.NewFromInt(100),
			PurchaseDate: time.Now().UTC(),
			PurchaseYear: 1990 + i,
		}}
	}
	return s
}

func has(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

func TestEvaluate_FirstTrade(t *testing.T) {
	empty := sessionWithHoldings()
	if got := achievement.Evaluate(empty); len(got) != 0 {
		t.Errorf("fresh session should earn nothing, got %v", got)
	}

	s := sessionWithHoldings("AAPL")
	if got := achievement.Evaluate(s); !has(got, achievement.FirstTrade) {
		t.Errorf("first purchase should award first_trade, got %v", got)
	}
}

func TestEvaluate_DecadeThresholds(t *testing.T) {
	cases := []struct {
		years int
		want  []string
	}{
		{7, nil},
		{8, []string{achievement.Complete1980s}},
		{16, []string{achievement.Complete1980s, achievement.Complete1990s}},
		{24, []string{achievement.Complete1980s, achievement.Complete1990s, achievement.Complete2000s}},
	}

	for _, tc := range cases {
		s := sessionWithHoldings()
		s.YearsInvested = tc.years
		got := achievement.Evaluate(s)
		for _, id := range tc.want {
			if !has(got, id) {
				t.Errorf("years=%d: missing %s in %v", tc.years, id, got)
			}
		}
		if len(got) != len(tc.want) {
			t.Errorf("years=%d: got %v, want exactly %v", tc.years, got, tc.want)
		}
	}
}

func TestEvaluate_LongTermInvestor(t *testing.T) {
	s := sessionWithHoldings("AAPL")
	if got := achievement.Evaluate(s); has(got, achievement.LongTermInvestor) {
		t.Error("fresh lot should not award long_term_investor")
	}

	s.Holdings["AAPL"][0].PurchaseDate = time.Now().UTC().AddDate(0, 0, -366)
	if got := achievement.Evaluate(s); !has(got, achievement.LongTermInvestor) {
		t.Errorf("lot held over a year should award long_term_investor, got %v", got)
	}
}

func TestEvaluate_Diversified(t *testing.T) {
	s := sessionWithHoldings("AAPL", "MSFT", "INTC", "KO")
	if got := achievement.Evaluate(s); has(got, achievement.Diversified) {
		t.Error("4 symbols should not award diversified")
	}

	s = sessionWithHoldings("AAPL", "MSFT", "INTC", "KO", "F")
	if got := achievement.Evaluate(s); !has(got, achievement.Diversified) {
		t.Errorf("5 symbols should award diversified, got %v", got)
	}
}

func TestEvaluate_IndexFun(t *testing.T) {
	s := sessionWithHoldings("VFINX")
	if got := achievement.Evaluate(s); !has(got, achievement.IndexFun) {
		t.Errorf("holding VFINX should award index_fun, got %v", got)
	}
}

func TestEvaluate_MonotonicAfterConditionsLapse(t *testing.T) {
	s := sessionWithHoldings("AAPL")
	s.Achievements = achievement.Evaluate(s)
	if !has(s.Achievements, achievement.FirstTrade) {
		t.Fatal("setup: first_trade not awarded")
	}

	// Sell everything: the triggering condition no longer holds, but the
	// achievement must survive.
	s.Holdings = make(map[string][]model.Lot)
	got := achievement.Evaluate(s)
	if !has(got, achievement.FirstTrade) {
		t.Errorf("achievements must never be removed, got %v", got)
	}
}

func TestEvaluate_IdempotentAndSorted(t *testing.T) {
	s := sessionWithHoldings("AAPL", "VFINX")
	s.YearsInvested = 10

	first := achievement.Evaluate(s)
	s.Achievements = first
	second := achievement.Evaluate(s)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-evaluation drifted: %v then %v", first, second)
	}
	for i := 1; i < len(first); i++ {
		if first[i-1] >= first[i] {
			t.Errorf("result not sorted: %v", first)
		}
	}
}

func TestUnlockedInstruments(t *testing.T) {
	base := achievement.UnlockedInstruments(nil)
	if has(base, "FB") || has(base, "NFLX") {
		t.Errorf("premium symbols in the baseline set: %v", base)
	}
	if !has(base, "AAPL") || !has(base, "VFINX") {
		t.Errorf("free tier missing from baseline set: %v", base)
	}

	with80s := achievement.UnlockedInstruments([]string{achievement.Complete1980s})
	for _, sym := range []string{"FB", "GOOGL", "TSLA"} {
		if !has(with80s, sym) {
			t.Errorf("complete_1980s should unlock %s, got %v", sym, with80s)
		}
	}
	if has(with80s, "NFLX") {
		t.Error("NFLX needs complete_1990s, not complete_1980s")
	}

	with90s := achievement.UnlockedInstruments([]string{achievement.Complete1980s, achievement.Complete1990s})
	if !has(with90s, "NFLX") {
		t.Errorf("complete_1990s should unlock NFLX, got %v", with90s)
	}
}
