package achievement

import (
	"context"
	"errors"

	"github.com/communitylab/rating-engine/internal/clock"
	"github.com/communitylab/rating-engine/internal/store"
	"go.uber.org/zap"
)

var (
	errMissingStore = errors.New("achievement: store is required")
	errMissingClock = errors.New("achievement: clock is required")
)

// EngineConfig describes the dependencies of the rule engine.
type EngineConfig struct {
	Store  *store.Store
	Clock  clock.Clock
	Rules  []Rule
	Logger *zap.Logger
}

// Engine runs every registered rule, deduplicates candidates against
// prior awards and persists exactly the not-yet-awarded subset. A rule
// error skips that rule only; a persistence error fails the run.
type Engine struct {
	store  *store.Store
	clock  clock.Clock
	rules  []Rule
	logger *zap.Logger
}

// NewEngine constructs the rule engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Clock == nil {
		return nil, errMissingClock
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  cfg.Store,
		clock:  cfg.Clock,
		rules:  cfg.Rules,
		logger: logger,
	}, nil
}

// Run executes one detection pass and returns how many new awards were
// granted. Re-running without new underlying data grants nothing.
func (e *Engine) Run(ctx context.Context) (int, error) {
	granted := 0
	for _, rule := range e.rules {
		key := rule.Key()

		candidates, err := rule.Detect(ctx)
		if err != nil {
			e.logger.Warn("achievement rule failed, skipping",
				zap.String("achievement_key", key),
				zap.Error(err))
			continue
		}
		candidates = dedupeMemberIDs(candidates)
		if len(candidates) == 0 {
			continue
		}

		alreadyAwarded, err := e.store.AwardedMemberSet(ctx, key, candidates)
		if err != nil {
			return granted, err
		}

		grantedAt := e.clock.Now()
		newAwards := make([]store.AchievementAward, 0, len(candidates))
		for _, memberID := range candidates {
			if _, ok := alreadyAwarded[memberID]; ok {
				continue
			}
			newAwards = append(newAwards, store.AchievementAward{
				MemberID:       memberID,
				AchievementKey: key,
				GrantedAt:      grantedAt,
			})
		}
		if len(newAwards) == 0 {
			continue
		}

		if err := e.store.CreateAwards(ctx, newAwards); err != nil {
			return granted, err
		}
		granted += len(newAwards)
		e.logger.Info("achievements granted",
			zap.String("achievement_key", key),
			zap.Int("count", len(newAwards)))
	}
	return granted, nil
}
