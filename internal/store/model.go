// Package store holds the persisted shapes of the rating pipeline and
// the bulk read/write helpers the orchestrator and rule engine share.
package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Member is a community member known to the pipeline. Rows come from
// member snapshot pulls; content by authors with no row here is dropped.
type Member struct {
	MemberID int64     `gorm:"column:member_id;primaryKey"`
	Name     string    `gorm:"column:name;size:100;not null"`
	JoinedAt time.Time `gorm:"column:join_date;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Member) TableName() string {
	return "members"
}

// Domain is one knowledge domain of the community. The catalog is
// maintained out of band; this module only resolves names to ids.
type Domain struct {
	DomainID int    `gorm:"column:domain_id;primaryKey"`
	Name     string `gorm:"column:domain_name;size:50;not null;uniqueIndex"`
	SubTags  string `gorm:"column:sub_tags;type:text"`
}

// TableName provides the explicit table binding for GORM.
func (Domain) TableName() string {
	return "domains"
}

// ContentSnapshot is one content item with its engagement counters at the
// latest observation, plus the derived influence score. Counters are
// owned by the source; the score is recomputed every pipeline run.
type ContentSnapshot struct {
	ContentID      int64           `gorm:"column:content_id;primaryKey"`
	MemberID       int64           `gorm:"column:member_id;not null;index:idx_content_member_domain,priority:1"`
	DomainID       int             `gorm:"column:domain_id;not null;index:idx_content_member_domain,priority:2"`
	PublishedAt    time.Time       `gorm:"column:publish_time;not null"`
	LengthTier     int             `gorm:"column:length_tier;not null;default:1"`
	ReadCount      int64           `gorm:"column:read_count;not null;default:0"`
	LikeCount      int64           `gorm:"column:like_count;not null;default:0"`
	CommentCount   int64           `gorm:"column:comment_count;not null;default:0"`
	ShareCount     int64           `gorm:"column:share_count;not null;default:0"`
	CollectCount   int64           `gorm:"column:collect_count;not null;default:0"`
	DislikeCount   int64           `gorm:"column:dislike_count;not null;default:0"`
	InfluenceScore decimal.Decimal `gorm:"column:influence_score;type:decimal(12,4);not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (ContentSnapshot) TableName() string {
	return "content_snapshots"
}

// ScoreRecord is one aggregate observation for a (member, domain) pair.
// Append-only in the reference mode: every successful run inserts a new
// row, and the full sequence per pair is the trend history.
type ScoreRecord struct {
	RecordID   int64           `gorm:"column:record_id;primaryKey;autoIncrement"`
	MemberID   int64           `gorm:"column:member_id;not null;index:idx_score_member_domain,priority:1"`
	DomainID   int             `gorm:"column:domain_id;not null;index:idx_score_member_domain,priority:2"`
	Score      decimal.Decimal `gorm:"column:des_score;type:decimal(12,4);not null"`
	Level      string          `gorm:"column:rating_level;size:4;not null"`
	ComputedAt time.Time       `gorm:"column:computed_at;not null;index:idx_score_member_domain,priority:3"`
}

// TableName provides the explicit table binding for GORM.
func (ScoreRecord) TableName() string {
	return "score_records"
}

// AchievementDefinition is a static catalog entry, seeded from the
// definition file and read-only afterwards.
type AchievementDefinition struct {
	Key         string `gorm:"column:achievement_key;primaryKey;size:50"`
	Name        string `gorm:"column:name;size:100;not null"`
	Category    string `gorm:"column:category;size:50;not null"`
	Description string `gorm:"column:trigger_description;type:text"`
}

// TableName provides the explicit table binding for GORM.
func (AchievementDefinition) TableName() string {
	return "achievement_definitions"
}

// AchievementAward records that a member holds an achievement. At most
// one row per (member, key); awards are never revoked.
type AchievementAward struct {
	AwardID        int64     `gorm:"column:award_id;primaryKey;autoIncrement"`
	MemberID       int64     `gorm:"column:member_id;not null;uniqueIndex:idx_award_member_key,priority:1"`
	AchievementKey string    `gorm:"column:achievement_key;size:50;not null;uniqueIndex:idx_award_member_key,priority:2"`
	GrantedAt      time.Time `gorm:"column:granted_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (AchievementAward) TableName() string {
	return "achievement_awards"
}

// Models lists every persisted shape for schema migration.
func Models() []any {
	return []any{
		&Member{},
		&Domain{},
		&ContentSnapshot{},
		&ScoreRecord{},
		&AchievementDefinition{},
		&AchievementAward{},
	}
}
