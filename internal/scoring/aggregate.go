package scoring

import "github.com/shopspring/decimal"

// WeightedScore pairs one content item's influence score with its decay
// multiplier for aggregation.
type WeightedScore struct {
	Score decimal.Decimal
	Decay decimal.Decimal
}

// Aggregate sums decay-weighted influence scores into the domain
// expertise score, rounded half-up to four decimal places.
func Aggregate(items []WeightedScore) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Score.Mul(item.Decay))
	}
	return total.Round(storedScale)
}
