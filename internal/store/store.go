package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Batch size for bulk inserts; keeps sqlite parameter counts bounded.
const insertBatchSize = 200

var errMissingDatabase = errors.New("store: database handle is required")

// Store wraps the shared database handle with the bulk operations the
// pipeline stages use. Each method is one atomic batch.
type Store struct {
	db *gorm.DB
}

// New constructs a Store over an opened database.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for callers issuing their own
// queries (the achievement rules).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// MemberIDSet returns the ids of all known members.
func (s *Store) MemberIDSet(ctx context.Context) (map[int64]struct{}, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&Member{}).Pluck("member_id", &ids).Error; err != nil {
		return nil, err
	}
	known := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	return known, nil
}

// CreateMembers inserts new members in one batch, ignoring ids that
// already exist (the pull interface is at-least-once).
func (s *Store) CreateMembers(ctx context.Context, members []Member) error {
	if len(members) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(members, insertBatchSize).Error
}

// ListDomains returns the full domain catalog.
func (s *Store) ListDomains(ctx context.Context) ([]Domain, error) {
	var domains []Domain
	if err := s.db.WithContext(ctx).Order("domain_id").Find(&domains).Error; err != nil {
		return nil, err
	}
	return domains, nil
}

// UpsertContentSnapshots writes pulled content rows in one batch. On
// conflict the counter columns are refreshed (a newer observation of the
// same item supersedes the old counters) while the stored influence
// score is left for the Score stage to recompute.
func (s *Store) UpsertContentSnapshots(ctx context.Context, snapshots []ContentSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "content_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"read_count", "like_count", "comment_count",
				"share_count", "collect_count", "dislike_count",
				"length_tier", "publish_time",
			}),
		}).
		CreateInBatches(snapshots, insertBatchSize).Error
}

// ListContentSnapshots loads every stored content item. The Score stage
// recomputes all of them each run because decay depends on elapsed time.
func (s *Store) ListContentSnapshots(ctx context.Context) ([]ContentSnapshot, error) {
	var snapshots []ContentSnapshot
	if err := s.db.WithContext(ctx).Order("content_id").Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// UpdateContentScores persists recomputed influence scores as one atomic
// batch: either every row's score commits or none does.
func (s *Store) UpdateContentScores(ctx context.Context, snapshots []ContentSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, snapshot := range snapshots {
			err := tx.Model(&ContentSnapshot{}).
				Where("content_id = ?", snapshot.ContentID).
				Update("influence_score", snapshot.InfluenceScore).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendScoreRecords inserts one history row per (member, domain) group
// in a single batch. Existing rows are never touched.
func (s *Store) AppendScoreRecords(ctx context.Context, records []ScoreRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(records, insertBatchSize).Error
}

// UpsertScoreRecords is the legacy overwrite-latest mode: each (member,
// domain) pair keeps a single row updated in place.
func (s *Store) UpsertScoreRecords(ctx context.Context, records []ScoreRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, record := range records {
			var existing ScoreRecord
			err := tx.Where("member_id = ? AND domain_id = ?", record.MemberID, record.DomainID).
				Take(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
			err = tx.Model(&ScoreRecord{}).
				Where("record_id = ?", existing.RecordID).
				Updates(map[string]any{
					"des_score":    record.Score,
					"rating_level": record.Level,
					"computed_at":  record.ComputedAt,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListScoreRecords returns the full history ordered so that the latest
// row per (member, domain) comes last.
func (s *Store) ListScoreRecords(ctx context.Context) ([]ScoreRecord, error) {
	var records []ScoreRecord
	err := s.db.WithContext(ctx).
		Order("member_id, domain_id, computed_at, record_id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SeedAchievementDefinitions upserts the static catalog entries.
func (s *Store) SeedAchievementDefinitions(ctx context.Context, definitions []AchievementDefinition) error {
	if len(definitions) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "achievement_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "category", "trigger_description"}),
		}).
		CreateInBatches(definitions, insertBatchSize).Error
}

// AwardedMemberSet returns which of the candidate members already hold
// the given achievement.
func (s *Store) AwardedMemberSet(ctx context.Context, achievementKey string, memberIDs []int64) (map[int64]struct{}, error) {
	awarded := make(map[int64]struct{}, len(memberIDs))
	if len(memberIDs) == 0 {
		return awarded, nil
	}
	var existing []int64
	err := s.db.WithContext(ctx).Model(&AchievementAward{}).
		Where("achievement_key = ? AND member_id IN ?", achievementKey, memberIDs).
		Pluck("member_id", &existing).Error
	if err != nil {
		return nil, err
	}
	for _, id := range existing {
		awarded[id] = struct{}{}
	}
	return awarded, nil
}

// CreateAwards inserts new award rows in one batch. The unique index on
// (member, key) backstops the dedup query under overlapping writers.
func (s *Store) CreateAwards(ctx context.Context, awards []AchievementAward) error {
	if len(awards) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(awards, insertBatchSize).Error
}

// ListAwards returns every granted award, mainly for tests and the
// status surface.
func (s *Store) ListAwards(ctx context.Context) ([]AchievementAward, error) {
	var awards []AchievementAward
	if err := s.db.WithContext(ctx).Order("award_id").Find(&awards).Error; err != nil {
		return nil, err
	}
	return awards, nil
}
