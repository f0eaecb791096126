// Package scoring holds the pure score math: the per-content influence
// score, the recency decay bands, the per-domain aggregate and its
// rating-level classification. Stored results are fixed-point decimals
// rounded to four places with ties away from zero, so a negative tie
// rounds more negative. Signed scores keep that symmetry; do not switch
// to banker's rounding without migrating stored history.
package scoring

import (
	"math"

	"github.com/shopspring/decimal"
)

// storedScale is the scale of every persisted score column.
const storedScale = 4

// Counters is one content item's raw engagement snapshot.
type Counters struct {
	Reads      int64
	Likes      int64
	Comments   int64
	Shares     int64
	Collects   int64
	Dislikes   int64
	LengthTier int
}

// Weights parameterizes the influence-score formula.
//
//	base       = Read·reads + Like·likes + Comment·comments + Share·shares
//	quality    = sigmoid(Steepness·(QualityCollect·collects + QualityLength·tier
//	                               + QualityLike·likes − QualityDislike·dislikes + QualityOffset))
//	shareBoost = 1 + ShareBoostGamma·ln(1+shares)
//	score      = base·quality·shareBoost − DislikePenalty·dislikes
type Weights struct {
	Read    decimal.Decimal
	Like    decimal.Decimal
	Comment decimal.Decimal
	Share   decimal.Decimal

	QualityCollect decimal.Decimal
	QualityLength  decimal.Decimal
	QualityLike    decimal.Decimal
	QualityDislike decimal.Decimal
	QualityOffset  decimal.Decimal
	Steepness      decimal.Decimal

	ShareBoostGamma decimal.Decimal
	DislikePenalty  decimal.Decimal
}

// DefaultWeights is the documented weight set. Base weights grow with the
// cost of the engagement action (a share is dearer than a read).
func DefaultWeights() Weights {
	return Weights{
		Read:    decimal.RequireFromString("0.05"),
		Like:    decimal.RequireFromString("0.1"),
		Comment: decimal.RequireFromString("0.3"),
		Share:   decimal.RequireFromString("0.5"),

		QualityCollect: decimal.RequireFromString("1.0"),
		QualityLength:  decimal.RequireFromString("0.3"),
		QualityLike:    decimal.RequireFromString("0.1"),
		QualityDislike: decimal.RequireFromString("0.2"),
		QualityOffset:  decimal.Zero,
		Steepness:      decimal.RequireFromString("0.5"),

		ShareBoostGamma: decimal.RequireFromString("0.1"),
		DislikePenalty:  decimal.RequireFromString("9.5"),
	}
}

// Calculator computes influence scores under a fixed weight set.
type Calculator struct {
	weights Weights
}

// NewCalculator returns a Calculator using the provided weights.
func NewCalculator(weights Weights) *Calculator {
	return &Calculator{weights: weights}
}

// InfluenceScore maps one snapshot's counters to its influence score,
// rounded half-up to four decimal places. All-zero counters yield exactly
// zero regardless of length tier.
func (c *Calculator) InfluenceScore(counters Counters) decimal.Decimal {
	w := c.weights

	base := decimal.NewFromInt(counters.Reads).Mul(w.Read).
		Add(decimal.NewFromInt(counters.Likes).Mul(w.Like)).
		Add(decimal.NewFromInt(counters.Comments).Mul(w.Comment)).
		Add(decimal.NewFromInt(counters.Shares).Mul(w.Share))

	quality := c.qualityFactor(counters)
	shareBoost := c.shareBoost(counters.Shares)
	penalty := decimal.NewFromInt(counters.Dislikes).Mul(w.DislikePenalty)

	return base.Mul(quality).Mul(shareBoost).Sub(penalty).Round(storedScale)
}

// qualityFactor squashes a linear combination of the quality signals into
// (0, 1). The linear part stays in decimal; only the logistic itself runs
// in float64.
func (c *Calculator) qualityFactor(counters Counters) decimal.Decimal {
	w := c.weights
	linear := decimal.NewFromInt(counters.Collects).Mul(w.QualityCollect).
		Add(decimal.NewFromInt(int64(counters.LengthTier)).Mul(w.QualityLength)).
		Add(decimal.NewFromInt(counters.Likes).Mul(w.QualityLike)).
		Sub(decimal.NewFromInt(counters.Dislikes).Mul(w.QualityDislike)).
		Add(w.QualityOffset)

	x := w.Steepness.Mul(linear).InexactFloat64()
	sigmoid := 1.0 / (1.0 + math.Exp(-x))
	return decimal.NewFromFloat(sigmoid).Round(storedScale)
}

// shareBoost saturates logarithmically so viral share counts cannot
// dominate the score unboundedly.
func (c *Calculator) shareBoost(shares int64) decimal.Decimal {
	gamma := c.weights.ShareBoostGamma.InexactFloat64()
	boost := 1.0 + gamma*math.Log1p(float64(shares))
	return decimal.NewFromFloat(boost).Round(storedScale)
}
