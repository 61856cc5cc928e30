package model_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/timevest/engine/internal/model"
)

func baseSession() *model.Session {
	return &model.Session{
		ID:       "s1",
		Cash:     decimal.NewFromInt(100),
		Holdings: make(map[string][]model.Lot),
		Tax: model.TaxState{
			YTDShortTermGains: decimal.Zero,
			YTDLongTermGains:  decimal.Zero,
			CarryforwardLoss:  decimal.Zero,
			Bracket:           model.BracketMiddle,
		},
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.Session)
		ok     bool
	}{
		{"valid empty", func(s *model.Session) {}, true},
		{"valid with mode", func(s *model.Session) {
			s.Mode = model.ModeSequential
			s.CurrentYear = 1981
		}, true},
		{"missing id", func(s *model.Session) { s.ID = "" }, false},
		{"negative cash", func(s *model.Session) { s.Cash = decimal.NewFromInt(-1) }, false},
		{"unknown bracket", func(s *model.Session) { s.Tax.Bracket = "royal" }, false},
		{"unknown mode", func(s *model.Session) { s.Mode = "warp" }, false},
		{"negative counters", func(s *model.Session) { s.TravelCreditsUsed = -1 }, false},
		{"empty lot list", func(s *model.Session) {
			s.Holdings["AAPL"] = []model.Lot{}
		}, false},
		{"lot without id", func(s *model.Session) {
			s.Holdings["AAPL"] = []model.Lot{{Shares: decimal.NewFromInt(1), CostBasis: decimal.NewFromInt(100)}}
		}, false},
		{"non-positive lot shares", func(s *model.Session) {
			s.Holdings["AAPL"] = []model.Lot{{ID: "a", Shares: decimal.Zero, CostBasis: decimal.NewFromInt(100)}}
		}, false},
		{"negative cost basis", func(s *model.Session) {
			s.Holdings["AAPL"] = []model.Lot{{ID: "a", Shares: decimal.NewFromInt(1), CostBasis: decimal.NewFromInt(-1)}}
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := baseSession()
			tc.mutate(s)
			err := s.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatal("expected validation failure")
				}
				if !errors.Is(err, model.ErrInvalidSnapshot) {
					t.Errorf("error should wrap ErrInvalidSnapshot, got %v", err)
				}
			}
		})
	}
}

func TestClone_DeepCopiesHoldings(t *testing.T) {
	s := baseSession()
	s.Holdings["AAPL"] = []model.Lot{{
		ID:        "a",
		Shares:    decimal.NewFromInt(2),
		CostBasis: decimal.NewFromInt(100),
	}}
	s.Achievements = []string{"first_trade"}

	c := s.Clone()
	c.Holdings["AAPL"][0].Shares = decimal.NewFromInt(999)
	c.Holdings["MSFT"] = []model.Lot{{ID: "b", Shares: decimal.NewFromInt(1)}}
	c.Achievements[0] = "mutated"

	if !s.Holdings["AAPL"][0].Shares.Equal(decimal.NewFromInt(2)) {
		t.Error("clone shares mutation leaked into the original")
	}
	if _, ok := s.Holdings["MSFT"]; ok {
		t.Error("clone map insertion leaked into the original")
	}
	if s.Achievements[0] != "first_trade" {
		t.Error("clone achievements mutation leaked into the original")
	}
}

func TestTotalShares(t *testing.T) {
	s := baseSession()
	s.Holdings["AAPL"] = []model.Lot{
		{ID: "a", Shares: decimal.NewFromFloat(1.5), CostBasis: decimal.NewFromInt(100)},
		{ID: "b", Shares: decimal.NewFromFloat(0.5), CostBasis: decimal.NewFromInt(120)},
	}

	if got := s.TotalShares("AAPL"); !got.Equal(decimal.NewFromInt(2)) {
		t.Errorf("TotalShares = %s, want 2", got)
	}
	if got := s.TotalShares("MSFT"); !got.IsZero() {
		t.Errorf("unheld TotalShares = %s, want 0", got)
	}
}
