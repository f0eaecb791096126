package achievement

import (
	"context"
	"time"

	"github.com/communitylab/rating-engine/internal/clock"
	"github.com/communitylab/rating-engine/internal/store"
	"gorm.io/gorm"
)

// consecutiveDaysRule grants when a member published at least one item
// on each of windowDays consecutive calendar days, anywhere in their
// history.
type consecutiveDaysRule struct {
	db         *gorm.DB
	key        string
	windowDays int
}

func (r *consecutiveDaysRule) Key() string {
	return r.key
}

func (r *consecutiveDaysRule) Detect(ctx context.Context) ([]int64, error) {
	var rows []struct {
		MemberID    int64
		PublishTime time.Time
	}
	err := r.db.WithContext(ctx).Model(&store.ContentSnapshot{}).
		Select("member_id", "publish_time").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	publishDates := make(map[int64]map[time.Time]struct{})
	for _, row := range rows {
		if row.PublishTime.IsZero() {
			continue
		}
		day := row.PublishTime.UTC().Truncate(24 * time.Hour)
		days, ok := publishDates[row.MemberID]
		if !ok {
			days = make(map[time.Time]struct{})
			publishDates[row.MemberID] = days
		}
		days[day] = struct{}{}
	}

	var memberIDs []int64
	for memberID, days := range publishDates {
		if hasConsecutiveRun(days, r.windowDays) {
			memberIDs = append(memberIDs, memberID)
		}
	}
	return memberIDs, nil
}

// hasConsecutiveRun reports whether any start date in the set begins a
// fully covered run of windowDays calendar days.
func hasConsecutiveRun(days map[time.Time]struct{}, windowDays int) bool {
	if len(days) < windowDays {
		return false
	}
	for start := range days {
		covered := true
		for offset := 1; offset < windowDays; offset++ {
			if _, ok := days[start.AddDate(0, 0, offset)]; !ok {
				covered = false
				break
			}
		}
		if covered {
			return true
		}
	}
	return false
}

// veteranRule grants when a member's join date is older than minDays.
type veteranRule struct {
	db      *gorm.DB
	clk     clock.Clock
	key     string
	minDays int
}

func (r *veteranRule) Key() string {
	return r.key
}

func (r *veteranRule) Detect(ctx context.Context) ([]int64, error) {
	cutoff := r.clk.Now().AddDate(0, 0, -r.minDays)
	var memberIDs []int64
	err := r.db.WithContext(ctx).Model(&store.Member{}).
		Where("join_date < ?", cutoff).
		Pluck("member_id", &memberIDs).Error
	if err != nil {
		return nil, err
	}
	return memberIDs, nil
}

// fastGrowthRule grants when a member who joined within withinDays
// already holds at least minLevel in some domain.
type fastGrowthRule struct {
	db         *gorm.DB
	clk        clock.Clock
	key        string
	withinDays int
	minLevel   int
}

func (r *fastGrowthRule) Key() string {
	return r.key
}

func (r *fastGrowthRule) Detect(ctx context.Context) ([]int64, error) {
	cutoff := r.clk.Now().AddDate(0, 0, -r.withinDays)
	var recentIDs []int64
	err := r.db.WithContext(ctx).Model(&store.Member{}).
		Where("join_date >= ?", cutoff).
		Pluck("member_id", &recentIDs).Error
	if err != nil {
		return nil, err
	}
	if len(recentIDs) == 0 {
		return nil, nil
	}

	levels, err := latestLevels(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var memberIDs []int64
	for _, memberID := range recentIDs {
		for _, level := range levels[memberID] {
			if int(level) >= r.minLevel {
				memberIDs = append(memberIDs, memberID)
				break
			}
		}
	}
	return memberIDs, nil
}
