// Package pipeline drives the periodic rating run: pull raw engagement
// data, recompute per-content influence scores, roll them up into
// per-domain expertise records and detect newly earned achievements.
// Runs are single-flight; a run that is still going makes the next
// trigger bounce instead of queueing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/communitylab/rating-engine/internal/catalog"
	"github.com/communitylab/rating-engine/internal/clock"
	"github.com/communitylab/rating-engine/internal/config"
	"github.com/communitylab/rating-engine/internal/scoring"
	"github.com/communitylab/rating-engine/internal/source"
	"github.com/communitylab/rating-engine/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrRunInProgress signals that a trigger arrived while a run was still
// executing. The trigger is dropped, not queued.
var ErrRunInProgress = errors.New("pipeline: run already in progress")

var (
	errMissingStore      = errors.New("pipeline: store is required")
	errMissingSource     = errors.New("pipeline: engagement source is required")
	errMissingClock      = errors.New("pipeline: clock is required")
	errMissingCalculator = errors.New("pipeline: calculator is required")
	errMissingDetector   = errors.New("pipeline: award detector is required")
)

// AwardDetector evaluates achievement rules and grants new awards,
// returning how many were granted.
type AwardDetector interface {
	Run(ctx context.Context) (int, error)
}

// Config wires an Orchestrator.
type Config struct {
	Store      *store.Store
	Source     source.EngagementSource
	Clock      clock.Clock
	Calculator *scoring.Calculator
	Thresholds scoring.Thresholds
	Detector   AwardDetector
	Logger     *zap.Logger

	ClampNegative bool
	HistoryMode   string
}

// Orchestrator executes the four-stage rating run.
type Orchestrator struct {
	store      *store.Store
	source     source.EngagementSource
	clock      clock.Clock
	calculator *scoring.Calculator
	thresholds scoring.Thresholds
	detector   AwardDetector
	logger     *zap.Logger

	clampNegative bool
	historyMode   string

	inProgress atomic.Bool

	mu            sync.Mutex
	lastReport    *RunReport
	lastProcessed time.Time
}

// New validates the wiring and returns an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Source == nil {
		return nil, errMissingSource
	}
	if cfg.Clock == nil {
		return nil, errMissingClock
	}
	if cfg.Calculator == nil {
		return nil, errMissingCalculator
	}
	if cfg.Detector == nil {
		return nil, errMissingDetector
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	historyMode := cfg.HistoryMode
	if historyMode == "" {
		historyMode = config.HistoryModeAppend
	}
	if historyMode != config.HistoryModeAppend && historyMode != config.HistoryModeUpsert {
		return nil, fmt.Errorf("pipeline: unknown history mode %q", historyMode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:         cfg.Store,
		source:        cfg.Source,
		clock:         cfg.Clock,
		calculator:    cfg.Calculator,
		thresholds:    cfg.Thresholds,
		detector:      cfg.Detector,
		logger:        logger,
		clampNegative: cfg.ClampNegative,
		historyMode:   historyMode,
	}, nil
}

// InProgress reports whether a run is currently executing.
func (o *Orchestrator) InProgress() bool {
	return o.inProgress.Load()
}

// LastProcessedDate returns the effective calendar day of the last
// successful run. The second return is false before the first success.
func (o *Orchestrator) LastProcessedDate() (time.Time, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastProcessed, !o.lastProcessed.IsZero()
}

// LastReport returns the report of the most recent run, successful or
// not. The second return is false before the first run completes.
func (o *Orchestrator) LastReport() (RunReport, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastReport == nil {
		return RunReport{}, false
	}
	return *o.lastReport, true
}

// runState carries data between stages of one run.
type runState struct {
	now       time.Time
	snapshots []store.ContentSnapshot
}

// Execute performs one full run. A second caller while a run is active
// receives ErrRunInProgress immediately. Achievement detection failures
// are logged but do not fail the run; any earlier stage failure aborts
// it.
func (o *Orchestrator) Execute(ctx context.Context) (RunReport, error) {
	if !o.inProgress.CompareAndSwap(false, true) {
		return RunReport{}, ErrRunInProgress
	}
	defer o.inProgress.Store(false)

	state := &runState{now: o.clock.Now()}
	report := RunReport{RunID: uuid.NewString(), StartedAt: state.now}
	runLogger := o.logger.With(zap.String("run_id", report.RunID))
	runLogger.Info("rating run starting", zap.Time("effective_time", state.now))
	wallStart := time.Now()

	stages := []struct {
		name string
		fn   func(context.Context, *zap.Logger, *runState, *RunReport) error
	}{
		{"sync", o.syncStage},
		{"score", o.scoreStage},
		{"aggregate", o.aggregateStage},
		{"detect", o.detectStage},
	}
	for _, stage := range stages {
		stageStart := time.Now()
		err := stage.fn(ctx, runLogger, state, &report)
		took := time.Since(stageStart)
		report.Stages = append(report.Stages, StageTiming{Stage: stage.name, Duration: took})
		if err != nil {
			report.Error = err.Error()
			report.Total = time.Since(wallStart)
			o.record(report, time.Time{})
			runLogger.Error("rating run failed",
				zap.String("stage", stage.name),
				zap.Duration("took", took),
				zap.Error(err))
			return report, fmt.Errorf("pipeline: %s stage: %w", stage.name, err)
		}
		runLogger.Info("stage complete", zap.String("stage", stage.name), zap.Duration("took", took))
	}

	report.Total = time.Since(wallStart)
	o.record(report, dateOf(state.now))
	runLogger.Info("rating run complete",
		zap.Duration("total", report.Total),
		zap.Int("scored_content", report.ScoredContent),
		zap.Int("aggregated_pairs", report.AggregatedPairs),
		zap.Int("new_awards", report.NewAwards))
	return report, nil
}

func (o *Orchestrator) record(report RunReport, processedDate time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastReport = &report
	if !processedDate.IsZero() {
		o.lastProcessed = processedDate
	}
}

// syncStage pulls the member and content snapshots and lands them in the
// store. Content whose domain tag or author is unknown is dropped with a
// warning to keep the relations intact.
func (o *Orchestrator) syncStage(ctx context.Context, logger *zap.Logger, state *runState, report *RunReport) error {
	known, err := o.store.MemberIDSet(ctx)
	if err != nil {
		return err
	}

	memberRecords, err := o.source.MemberSnapshot(ctx)
	if err != nil {
		return err
	}
	var newMembers []store.Member
	for _, record := range memberRecords {
		if _, ok := known[record.MemberID]; ok {
			continue
		}
		joined := record.JoinedAt
		if joined.IsZero() {
			joined = state.now
		}
		newMembers = append(newMembers, store.Member{
			MemberID: record.MemberID,
			Name:     record.Name,
			JoinedAt: joined,
		})
		known[record.MemberID] = struct{}{}
	}
	if err := o.store.CreateMembers(ctx, newMembers); err != nil {
		return err
	}
	report.SyncedMembers = len(newMembers)

	contentRecords, err := o.source.ContentSnapshot(ctx)
	if err != nil {
		return err
	}
	resolver, err := catalog.LoadResolver(ctx, o.store)
	if err != nil {
		return err
	}

	var snapshots []store.ContentSnapshot
	for _, record := range contentRecords {
		domainID, ok := resolver.Resolve(record.DomainTag)
		if !ok {
			logger.Warn("dropping content with unknown domain tag",
				zap.Int64("content_id", record.ContentID),
				zap.String("domain_tag", record.DomainTag))
			continue
		}
		if _, ok := known[record.MemberID]; !ok {
			logger.Warn("dropping content from unknown author",
				zap.Int64("content_id", record.ContentID),
				zap.Int64("member_id", record.MemberID))
			continue
		}
		snapshots = append(snapshots, store.ContentSnapshot{
			ContentID:      record.ContentID,
			MemberID:       record.MemberID,
			DomainID:       domainID,
			PublishedAt:    record.PublishedAt,
			LengthTier:     record.LengthTier,
			ReadCount:      record.Reads,
			LikeCount:      record.Likes,
			CommentCount:   record.Comments,
			ShareCount:     record.Shares,
			CollectCount:   record.Collects,
			DislikeCount:   record.Dislikes,
			InfluenceScore: decimal.Zero,
		})
	}
	if err := o.store.UpsertContentSnapshots(ctx, snapshots); err != nil {
		return err
	}
	report.SyncedContent = len(snapshots)
	return nil
}

// scoreStage recomputes the influence score of every stored content
// item and persists the batch atomically. The clamp applies here, per
// item at storage time, so a floored item cannot drag down aggregates.
func (o *Orchestrator) scoreStage(ctx context.Context, _ *zap.Logger, state *runState, report *RunReport) error {
	snapshots, err := o.store.ListContentSnapshots(ctx)
	if err != nil {
		return err
	}
	for i := range snapshots {
		score := o.calculator.InfluenceScore(scoring.Counters{
			Reads:      snapshots[i].ReadCount,
			Likes:      snapshots[i].LikeCount,
			Comments:   snapshots[i].CommentCount,
			Shares:     snapshots[i].ShareCount,
			Collects:   snapshots[i].CollectCount,
			Dislikes:   snapshots[i].DislikeCount,
			LengthTier: snapshots[i].LengthTier,
		})
		if o.clampNegative && score.IsNegative() {
			score = decimal.Zero
		}
		snapshots[i].InfluenceScore = score
	}
	if err := o.store.UpdateContentScores(ctx, snapshots); err != nil {
		return err
	}
	state.snapshots = snapshots
	report.ScoredContent = len(snapshots)
	return nil
}

type pairKey struct {
	memberID int64
	domainID int
}

// aggregateStage rolls the scored snapshots up into one decay-weighted
// expertise record per (member, domain) pair, classifies it and writes
// the history rows.
func (o *Orchestrator) aggregateStage(ctx context.Context, _ *zap.Logger, state *runState, report *RunReport) error {
	groups := make(map[pairKey][]scoring.WeightedScore)
	for _, snapshot := range state.snapshots {
		key := pairKey{memberID: snapshot.MemberID, domainID: snapshot.DomainID}
		days := scoring.ElapsedDays(snapshot.PublishedAt, state.now)
		groups[key] = append(groups[key], scoring.WeightedScore{
			Score: snapshot.InfluenceScore,
			Decay: scoring.DecayMultiplier(days),
		})
	}

	records := make([]store.ScoreRecord, 0, len(groups))
	for key, items := range groups {
		total := scoring.Aggregate(items)
		records = append(records, store.ScoreRecord{
			MemberID:   key.memberID,
			DomainID:   key.domainID,
			Score:      total,
			Level:      o.thresholds.Classify(total).String(),
			ComputedAt: state.now,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].MemberID != records[j].MemberID {
			return records[i].MemberID < records[j].MemberID
		}
		return records[i].DomainID < records[j].DomainID
	})

	write := o.store.AppendScoreRecords
	if o.historyMode == config.HistoryModeUpsert {
		write = o.store.UpsertScoreRecords
	}
	if err := write(ctx, records); err != nil {
		return err
	}
	report.AggregatedPairs = len(records)
	return nil
}

// detectStage runs achievement detection. Detection failures only cost
// this run's awards; the rating results already committed stand.
func (o *Orchestrator) detectStage(ctx context.Context, logger *zap.Logger, _ *runState, report *RunReport) error {
	granted, err := o.detector.Run(ctx)
	if err != nil {
		logger.Warn("achievement detection failed", zap.Error(err))
		return nil
	}
	report.NewAwards = granted
	return nil
}

// dateOf truncates a timestamp to its UTC calendar day.
func dateOf(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
