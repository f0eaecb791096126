package scoring

import (
	"testing"

	"github.com/shopspring/decimal"
)

func referenceCounters() Counters {
	return Counters{
		Reads:      100,
		Likes:      50,
		Comments:   20,
		Shares:     10,
		Collects:   5,
		Dislikes:   2,
		LengthTier: 3,
	}
}

func TestInfluenceScoreReferenceExample(t *testing.T) {
	calc := NewCalculator(DefaultWeights())

	score := calc.InfluenceScore(referenceCounters())

	expected := decimal.RequireFromString("6.9004")
	if !score.Equal(expected) {
		t.Fatalf("expected reference score %s, got %s", expected, score)
	}
	rounded := score.Round(2)
	if !rounded.Equal(decimal.RequireFromString("6.90")) {
		t.Fatalf("expected score to round to 6.90, got %s", rounded)
	}
}

func TestInfluenceScoreZeroCountersIsZero(t *testing.T) {
	calc := NewCalculator(DefaultWeights())

	tests := []struct {
		name string
		tier int
	}{
		{name: "tier-1", tier: 1},
		{name: "tier-2", tier: 2},
		{name: "tier-3", tier: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := calc.InfluenceScore(Counters{LengthTier: tt.tier})
			if !score.IsZero() {
				t.Fatalf("expected zero score for all-zero counters, got %s", score)
			}
		})
	}
}

func TestInfluenceScoreHeavyDislikesGoesNegative(t *testing.T) {
	calc := NewCalculator(DefaultWeights())

	counters := referenceCounters()
	counters.Dislikes = 50
	score := calc.InfluenceScore(counters)
	if !score.IsNegative() {
		t.Fatalf("expected heavily disliked content to score negative, got %s", score)
	}
}

func TestInfluenceScoreMonotonicity(t *testing.T) {
	calc := NewCalculator(DefaultWeights())
	base := referenceCounters()

	bump := func(c Counters, field string) Counters {
		switch field {
		case "reads":
			c.Reads += 25
		case "likes":
			c.Likes += 25
		case "comments":
			c.Comments += 25
		case "shares":
			c.Shares += 25
		case "collects":
			c.Collects += 25
		}
		return c
	}

	for _, field := range []string{"reads", "likes", "comments", "shares", "collects"} {
		t.Run(field, func(t *testing.T) {
			before := calc.InfluenceScore(base)
			after := calc.InfluenceScore(bump(base, field))
			if after.LessThan(before) {
				t.Fatalf("score decreased when %s increased: %s -> %s", field, before, after)
			}
		})
	}

	t.Run("dislikes", func(t *testing.T) {
		before := calc.InfluenceScore(base)
		withMoreDislikes := base
		withMoreDislikes.Dislikes += 25
		after := calc.InfluenceScore(withMoreDislikes)
		if after.GreaterThan(before) {
			t.Fatalf("score increased when dislikes increased: %s -> %s", before, after)
		}
	})
}

func TestShareBoostSaturates(t *testing.T) {
	calc := NewCalculator(DefaultWeights())

	if !calc.shareBoost(0).Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected no boost at zero shares, got %s", calc.shareBoost(0))
	}

	// The marginal boost of going from 1000 to 2000 shares must be far
	// smaller than going from 0 to 1000.
	firstJump := calc.shareBoost(1000).Sub(calc.shareBoost(0))
	secondJump := calc.shareBoost(2000).Sub(calc.shareBoost(1000))
	if secondJump.GreaterThanOrEqual(firstJump) {
		t.Fatalf("expected diminishing share boost, jumps were %s then %s", firstJump, secondJump)
	}
}
