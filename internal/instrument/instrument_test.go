package instrument_test

import (
	"errors"
	"testing"

	"github.com/timevest/engine/internal/instrument"
)

func TestLookup(t *testing.T) {
	inst, err := instrument.Lookup("AAPL")
	if err != nil {
		t.Fatalf("Lookup(AAPL): %v", err)
	}
	if inst.ListingYear != 1981 || inst.Premium {
		t.Errorf("AAPL = %+v, want non-premium listed 1981", inst)
	}

	if _, err := instrument.Lookup("ENRON"); !errors.Is(err, instrument.ErrUnknownSymbol) {
		t.Errorf("unknown symbol: got %v, want ErrUnknownSymbol", err)
	}
}

func TestFreeTier_ExcludesPremium(t *testing.T) {
	free := make(map[string]bool)
	for _, sym := range instrument.FreeTier() {
		free[sym] = true
	}

	for _, sym := range []string{"FB", "GOOGL", "TSLA", "NFLX"} {
		if free[sym] {
			t.Errorf("%s is premium and must not be in the free tier", sym)
		}
	}
	for _, sym := range []string{"AAPL", "VFINX", "CD", "DEBT"} {
		if !free[sym] {
			t.Errorf("%s missing from the free tier", sym)
		}
	}
}

func TestIsListed(t *testing.T) {
	cases := []struct {
		symbol string
		year   int
		want   bool
	}{
		{"AAPL", 1981, true},
		{"AMZN", 1996, false},
		{"AMZN", 1997, true},
		{"FB", 2011, false},
		{"FB", 2012, true},
		{"ENRON", 2000, false},
	}
	for _, tc := range cases {
		if got := instrument.IsListed(tc.symbol, tc.year); got != tc.want {
			t.Errorf("IsListed(%s, %d) = %v, want %v", tc.symbol, tc.year, got, tc.want)
		}
	}
}

func TestAll_SortedAndComplete(t *testing.T) {
	all := instrument.All()
	if len(all) == 0 {
		t.Fatal("empty catalog")
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Symbol >= all[i].Symbol {
			t.Fatalf("catalog not sorted at %d: %s >= %s", i, all[i-1].Symbol, all[i].Symbol)
		}
	}
	for _, inst := range all {
		if inst.Name == "" || inst.Category == "" || inst.ListingYear == 0 {
			t.Errorf("incomplete catalog entry: %+v", inst)
		}
	}
}
