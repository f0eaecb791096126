package scoring

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Level is the ordinal rating classification of a domain expertise score.
type Level int

// Rating levels. L0 signals net-negative contribution in a domain.
const (
	LevelNegative Level = iota
	LevelNewcomer
	LevelExplorer
	LevelContributor
	LevelExpert
	LevelMaster
)

var errThresholdOrder = errors.New("scoring: thresholds must be strictly ascending")

// String renders the persisted form, L0 through L5.
func (l Level) String() string {
	return fmt.Sprintf("L%d", int(l))
}

// ParseLevel reads a persisted rating level; anything unreadable maps to
// LevelNegative, matching how rule evaluation treats unknown levels.
func ParseLevel(value string) Level {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return LevelNegative
	}
	if trimmed[0] == 'L' || trimmed[0] == 'l' {
		trimmed = trimmed[1:]
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < int(LevelNegative) || parsed > int(LevelMaster) {
		return LevelNegative
	}
	return Level(parsed)
}

// Thresholds are the four ascending cut points classifying an aggregate
// score. They are deployment configuration, tuned against the observed
// score distribution rather than hard-coded business law.
type Thresholds struct {
	C1 decimal.Decimal
	C2 decimal.Decimal
	C3 decimal.Decimal
	C4 decimal.Decimal
}

// DefaultThresholds returns the reference cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{
		C1: decimal.NewFromInt(100),
		C2: decimal.NewFromInt(320),
		C3: decimal.NewFromInt(700),
		C4: decimal.NewFromInt(1300),
	}
}

// Validate rejects thresholds that are not strictly ascending.
func (t Thresholds) Validate() error {
	ordered := t.C1.LessThan(t.C2) && t.C2.LessThan(t.C3) && t.C3.LessThan(t.C4)
	if !ordered {
		return errThresholdOrder
	}
	return nil
}

// Classify maps an aggregate score to its rating level: negative scores
// are L0, then each band between the cut points steps the level up.
func (t Thresholds) Classify(score decimal.Decimal) Level {
	switch {
	case score.IsNegative():
		return LevelNegative
	case score.GreaterThanOrEqual(t.C4):
		return LevelMaster
	case score.GreaterThanOrEqual(t.C3):
		return LevelExpert
	case score.GreaterThanOrEqual(t.C2):
		return LevelContributor
	case score.GreaterThanOrEqual(t.C1):
		return LevelExplorer
	default:
		return LevelNewcomer
	}
}
