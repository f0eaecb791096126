package achievement

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
)

const contentTable = "content_snapshots"

// postCountRule grants when a member's cumulative published item count
// reaches the threshold.
type postCountRule struct {
	db        *gorm.DB
	key       string
	threshold int64
}

func (r *postCountRule) Key() string {
	return r.key
}

func (r *postCountRule) Detect(ctx context.Context) ([]int64, error) {
	query := sq.Select("member_id").
		From(contentTable).
		GroupBy("member_id").
		Having("COUNT(*) >= ?", r.threshold)
	return scanMemberIDs(ctx, r.db, query)
}

// singleItemRule grants when any single item's counter column reaches
// the threshold.
type singleItemRule struct {
	db        *gorm.DB
	key       string
	column    string
	threshold int64
}

func (r *singleItemRule) Key() string {
	return r.key
}

func (r *singleItemRule) Detect(ctx context.Context) ([]int64, error) {
	query := sq.Select("DISTINCT member_id").
		From(contentTable).
		Where(sq.GtOrEq{r.column: r.threshold})
	return scanMemberIDs(ctx, r.db, query)
}

// cumulativeSumRule grants when a member's counter column, summed over
// all their items, reaches the threshold.
type cumulativeSumRule struct {
	db        *gorm.DB
	key       string
	column    string
	threshold int64
}

func (r *cumulativeSumRule) Key() string {
	return r.key
}

func (r *cumulativeSumRule) Detect(ctx context.Context) ([]int64, error) {
	query := sq.Select("member_id").
		From(contentTable).
		GroupBy("member_id").
		Having(fmt.Sprintf("SUM(%s) >= ?", r.column), r.threshold)
	return scanMemberIDs(ctx, r.db, query)
}

// engagementSumRule grants when any single item's combined likes,
// comments and shares reach the threshold.
type engagementSumRule struct {
	db        *gorm.DB
	key       string
	threshold int64
}

func (r *engagementSumRule) Key() string {
	return r.key
}

func (r *engagementSumRule) Detect(ctx context.Context) ([]int64, error) {
	query := sq.Select("DISTINCT member_id").
		From(contentTable).
		Where("like_count + comment_count + share_count >= ?", r.threshold)
	return scanMemberIDs(ctx, r.db, query)
}

// dailyBurstRule grants when a member published at least the threshold
// number of items within one calendar day.
type dailyBurstRule struct {
	db        *gorm.DB
	key       string
	threshold int64
}

func (r *dailyBurstRule) Key() string {
	return r.key
}

func (r *dailyBurstRule) Detect(ctx context.Context) ([]int64, error) {
	query := sq.Select("member_id").
		From(contentTable).
		GroupBy("member_id", "date(publish_time)").
		Having("COUNT(*) >= ?", r.threshold)
	ids, err := scanMemberIDs(ctx, r.db, query)
	if err != nil {
		return nil, err
	}
	// A member can hit the threshold on several days.
	return dedupeMemberIDs(ids), nil
}

func scanMemberIDs(ctx context.Context, db *gorm.DB, query sq.SelectBuilder) ([]int64, error) {
	sqlText, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	var memberIDs []int64
	if err := db.WithContext(ctx).Raw(sqlText, args...).Scan(&memberIDs).Error; err != nil {
		return nil, err
	}
	return memberIDs, nil
}
