// Package source defines the inbound pull interface for raw engagement
// data and a file-backed implementation of it. The contract is
// incremental and at-least-once: records handed out by a pull may be
// cleared from the source's buffer and are not replayable.
package source

import (
	"context"
	"time"
)

// MemberRecord is one member row in a snapshot pull.
type MemberRecord struct {
	MemberID int64
	Name     string
	JoinedAt time.Time
}

// ContentRecord is one content item with its engagement counters at
// observation time. DomainTag is the human-readable domain label the
// pipeline resolves to an internal id.
type ContentRecord struct {
	ContentID   int64
	MemberID    int64
	DomainTag   string
	LengthTier  int
	Reads       int64
	Likes       int64
	Comments    int64
	Shares      int64
	Collects    int64
	Dislikes    int64
	PublishedAt time.Time
}

// EngagementSource is the external collaborator the Sync stage pulls
// from once per run.
type EngagementSource interface {
	MemberSnapshot(ctx context.Context) ([]MemberRecord, error)
	ContentSnapshot(ctx context.Context) ([]ContentRecord, error)
}
