package scoring

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decay bands. Banded rather than continuous: deterministic, easy to
// reason about and immune to floating-point drift between runs.
var (
	decayFresh  = decimal.NewFromInt(1)
	decayRecent = decimal.RequireFromString("0.7")
	decayAging  = decimal.RequireFromString("0.4")
	decayStale  = decimal.RequireFromString("0.1")
)

// ElapsedDays counts whole days between publish time and now. A publish
// time in the future (possible under a skewed or virtual clock) counts
// as zero days.
func ElapsedDays(publishedAt, now time.Time) int {
	if !publishedAt.Before(now) {
		return 0
	}
	return int(now.Sub(publishedAt) / (24 * time.Hour))
}

// DecayMultiplier maps whole elapsed days to the recency band weight:
// up to 30 days full weight, then 0.7, 0.4 and 0.1. It must be
// re-evaluated every run because elapsed time keeps growing.
func DecayMultiplier(elapsedDays int) decimal.Decimal {
	switch {
	case elapsedDays <= 30:
		return decayFresh
	case elapsedDays <= 90:
		return decayRecent
	case elapsedDays <= 180:
		return decayAging
	default:
		return decayStale
	}
}
