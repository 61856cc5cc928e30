// Package travel implements the year/mode driver: how the simulated year
// advances, how travel credits are spent, and when a session reaches its
// terminal state. The counters here — not wall-clock time — are the
// authoritative clock for achievement thresholds and game over.
package travel

import (
	"errors"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/timevest/engine/internal/model"
)

// Historical range and the travel-credit cap.
const (
	MinYear        = 1981
	MaxYear        = 2020
	MaxTravelUsage = 39
)

var (
	// ErrModeAlreadySet is returned when a session tries to change mode
	// after its first year has been set. Mode is chosen once per session.
	ErrModeAlreadySet = errors.New("travel: mode already selected")

	// ErrUnknownMode is returned for a mode outside sequential/chaotic.
	ErrUnknownMode = errors.New("travel: unknown mode")

	// ErrGameOver is returned when advancing a finished session.
	ErrGameOver = errors.New("travel: session is over")
)

// SelectMode fixes the session's time-travel mode and sets its first year:
// sequential starts at the minimum of the historical range, chaotic draws
// uniformly from the full range. The first year counts as a year invested
// but spends no travel credit.
func SelectMode(s *model.Session, mode string, rng *rand.Rand) error {
	if s.CurrentYear != 0 {
		return ErrModeAlreadySet
	}
	switch mode {
	case model.ModeSequential:
		s.Mode = mode
		s.CurrentYear = MinYear
		s.SequentialCursor = MinYear + 1
	case model.ModeChaotic:
		s.Mode = mode
		s.CurrentYear = randomYear(rng)
	default:
		return ErrUnknownMode
	}
	s.YearsInvested = 1
	return nil
}

// Advance moves the session to its next simulated year and spends one travel
// credit. Sequential mode walks the cursor forward one year at a time and
// ends the game on arrival at the maximum year — no wrap-around back to the
// minimum. Chaotic mode draws independently from the full range; repeats and
// backwards jumps are expected.
//
// The session also ends when the travel-credit cap is exhausted.
func Advance(s *model.Session, rng *rand.Rand) (int, error) {
	if s.GameOver {
		return 0, ErrGameOver
	}
	if s.TravelCreditsUsed >= MaxTravelUsage {
		s.GameOver = true
		return 0, ErrGameOver
	}

	s.TravelCreditsUsed++
	s.YearsInvested++

	switch s.Mode {
	case model.ModeSequential:
		s.CurrentYear = s.SequentialCursor
		s.SequentialCursor++
		if s.CurrentYear >= MaxYear {
			s.GameOver = true
		}
	case model.ModeChaotic:
		s.CurrentYear = randomYear(rng)
	default:
		return 0, ErrUnknownMode
	}

	if s.TravelCreditsUsed >= MaxTravelUsage {
		s.GameOver = true
	}
	return s.CurrentYear, nil
}

// Status tiers, computed from realized value only — holdings stranded behind
// a pre-listing year don't count toward the final score.
const (
	StatusStruggling  = "struggling"
	StatusWinner      = "winner"
	StatusSkilled     = "skilled"
	StatusWealthy     = "wealthy"
	StatusMillionaire = "millionaire"
	StatusGoat        = "goat"
)

var statusThresholds = []struct {
	min    decimal.Decimal
	status string
}{
	{decimal.NewFromInt(500000), StatusGoat},
	{decimal.NewFromInt(50000), StatusMillionaire},
	{decimal.NewFromInt(5000), StatusWealthy},
	{decimal.NewFromInt(1000), StatusSkilled},
	{decimal.NewFromInt(100), StatusWinner},
}

// StatusFor maps a realized value to its terminal status tier.
func StatusFor(realized decimal.Decimal) string {
	for _, tier := range statusThresholds {
		if realized.GreaterThanOrEqual(tier.min) {
			return tier.status
		}
	}
	return StatusStruggling
}

func randomYear(rng *rand.Rand) int {
	return MinYear + rng.Intn(MaxYear-MinYear+1)
}
