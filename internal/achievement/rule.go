// Package achievement detects threshold conditions over the aggregated
// rating data and raw engagement snapshots, and grants each member a
// given achievement at most once.
package achievement

import (
	"context"

	"github.com/communitylab/rating-engine/internal/clock"
	"gorm.io/gorm"
)

// Achievement keys. Each must have a matching row in the definition
// catalog.
const (
	KeyFirstPost           = "FIRST_POST"
	KeyContentLover        = "CONTENT_LOVER"
	KeyContentMaster       = "CONTENT_MASTER"
	KeyProlificAuthor      = "PROLIFIC_AUTHOR"
	KeyHundredLikesSingle  = "HUNDRED_LIKES_SINGLE"
	KeyThousandLikesSingle = "THOUSAND_LIKES_SINGLE"
	KeySharePioneer        = "SHARE_PIONEER"
	KeyContentSharer       = "CONTENT_SHARER"
	KeyPopularAuthor       = "POPULAR_AUTHOR"
	KeyEngagementExpert    = "ENGAGEMENT_EXPERT"
	KeyCommunityRisingStar = "COMMUNITY_RISING_STAR"
	KeyCommunityStar       = "COMMUNITY_STAR"
	KeyCommentExpert       = "COMMENT_EXPERT"
	KeyDomainExpert        = "DOMAIN_EXPERT"
	KeyAllRoundContributor = "ALL_ROUND_CONTRIBUTOR"
	KeyVersatileMember     = "VERSATILE_MEMBER"
	KeyConsistentCreator   = "CONSISTENT_CREATOR"
	KeyCommunityVeteran    = "COMMUNITY_VETERAN"
	KeyFastGrowth          = "FAST_GROWTH"
)

// Rule detects one achievement condition. Detect returns every member
// currently satisfying the condition; it must be idempotent and free of
// side effects. The engine handles deduplication against prior awards.
type Rule interface {
	Key() string
	Detect(ctx context.Context) ([]int64, error)
}

// DefaultRules assembles the standard rule registry. Rules are plain
// values in a slice; adding an achievement means appending here.
func DefaultRules(db *gorm.DB, clk clock.Clock) []Rule {
	return []Rule{
		&postCountRule{db: db, key: KeyFirstPost, threshold: 1},
		&postCountRule{db: db, key: KeyContentLover, threshold: 10},
		&postCountRule{db: db, key: KeyContentMaster, threshold: 100},
		&dailyBurstRule{db: db, key: KeyProlificAuthor, threshold: 5},
		&singleItemRule{db: db, key: KeyHundredLikesSingle, column: "like_count", threshold: 100},
		&singleItemRule{db: db, key: KeyThousandLikesSingle, column: "like_count", threshold: 1000},
		&singleItemRule{db: db, key: KeySharePioneer, column: "share_count", threshold: 100},
		&singleItemRule{db: db, key: KeyContentSharer, column: "share_count", threshold: 30},
		&singleItemRule{db: db, key: KeyPopularAuthor, column: "comment_count", threshold: 50},
		&engagementSumRule{db: db, key: KeyEngagementExpert, threshold: 200},
		&cumulativeSumRule{db: db, key: KeyCommunityRisingStar, column: "like_count", threshold: 500},
		&cumulativeSumRule{db: db, key: KeyCommunityStar, column: "like_count", threshold: 5000},
		&cumulativeSumRule{db: db, key: KeyCommentExpert, column: "comment_count", threshold: 200},
		&domainLevelRule{db: db, key: KeyDomainExpert, minLevel: 4},
		&breadthRule{db: db, key: KeyAllRoundContributor, minLevel: 3, minDomains: 3},
		&breadthRule{db: db, key: KeyVersatileMember, minLevel: 2, minDomains: 3},
		&consecutiveDaysRule{db: db, key: KeyConsistentCreator, windowDays: 7},
		&veteranRule{db: db, clk: clk, key: KeyCommunityVeteran, minDays: 365},
		&fastGrowthRule{db: db, clk: clk, key: KeyFastGrowth, withinDays: 30, minLevel: 3},
	}
}

func dedupeMemberIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
