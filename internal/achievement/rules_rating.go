package achievement

import (
	"context"

	"github.com/communitylab/rating-engine/internal/scoring"
	"github.com/communitylab/rating-engine/internal/store"
	"gorm.io/gorm"
)

// latestLevels reads the score history and keeps the most recent rating
// level per (member, domain) pair. The history is append-only, so the
// last row in (computed_at, record_id) order wins.
func latestLevels(ctx context.Context, db *gorm.DB) (map[int64]map[int]scoring.Level, error) {
	var records []store.ScoreRecord
	err := db.WithContext(ctx).
		Order("member_id, domain_id, computed_at, record_id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	levels := make(map[int64]map[int]scoring.Level)
	for _, record := range records {
		byDomain, ok := levels[record.MemberID]
		if !ok {
			byDomain = make(map[int]scoring.Level)
			levels[record.MemberID] = byDomain
		}
		byDomain[record.DomainID] = scoring.ParseLevel(record.Level)
	}
	return levels, nil
}

// domainLevelRule grants when a member holds at least the given rating
// level in any single domain.
type domainLevelRule struct {
	db       *gorm.DB
	key      string
	minLevel int
}

func (r *domainLevelRule) Key() string {
	return r.key
}

func (r *domainLevelRule) Detect(ctx context.Context) ([]int64, error) {
	levels, err := latestLevels(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var memberIDs []int64
	for memberID, byDomain := range levels {
		for _, level := range byDomain {
			if int(level) >= r.minLevel {
				memberIDs = append(memberIDs, memberID)
				break
			}
		}
	}
	return memberIDs, nil
}

// breadthRule grants when a member holds at least minLevel in at least
// minDomains distinct domains.
type breadthRule struct {
	db         *gorm.DB
	key        string
	minLevel   int
	minDomains int
}

func (r *breadthRule) Key() string {
	return r.key
}

func (r *breadthRule) Detect(ctx context.Context) ([]int64, error) {
	levels, err := latestLevels(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var memberIDs []int64
	for memberID, byDomain := range levels {
		qualified := 0
		for _, level := range byDomain {
			if int(level) >= r.minLevel {
				qualified++
			}
		}
		if qualified >= r.minDomains {
			memberIDs = append(memberIDs, memberID)
		}
	}
	return memberIDs, nil
}
