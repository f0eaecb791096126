package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const (
	memberFilePattern  = "members-*.jsonl"
	contentFilePattern = "content-*.jsonl"
	consumedSuffix     = ".done"
)

var errMissingSnapshotDir = errors.New("source: snapshot directory is required")

// FileSource pulls snapshots from newline-delimited JSON drop files in a
// directory. Consumed files are renamed aside so a later pull does not
// re-deliver them, matching the incremental contract.
type FileSource struct {
	dir    string
	logger *zap.Logger
}

// NewFileSource constructs a FileSource over the given drop directory.
func NewFileSource(dir string, logger *zap.Logger) (*FileSource, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errMissingSnapshotDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{dir: dir, logger: logger}, nil
}

// MemberSnapshot reads and consumes all pending member drop files.
func (s *FileSource) MemberSnapshot(ctx context.Context) ([]MemberRecord, error) {
	var records []MemberRecord
	err := s.consumeFiles(ctx, memberFilePattern, func(raw map[string]any) {
		memberID, ok := asInt64(raw["member_id"])
		if !ok || memberID <= 0 {
			s.logger.Warn("dropping member record with invalid id", zap.Any("record", raw))
			return
		}
		joinedAt, ok := asTimestamp(raw["join_date"])
		if !ok {
			s.logger.Warn("member record has malformed join date",
				zap.Int64("member_id", memberID))
		}
		records = append(records, MemberRecord{
			MemberID: memberID,
			Name:     asString(raw["name"]),
			JoinedAt: joinedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ContentSnapshot reads and consumes all pending content drop files.
func (s *FileSource) ContentSnapshot(ctx context.Context) ([]ContentRecord, error) {
	var records []ContentRecord
	err := s.consumeFiles(ctx, contentFilePattern, func(raw map[string]any) {
		contentID, okContent := asInt64(raw["content_id"])
		memberID, okMember := asInt64(raw["member_id"])
		if !okContent || contentID <= 0 || !okMember || memberID <= 0 {
			s.logger.Warn("dropping content record with invalid identifiers", zap.Any("record", raw))
			return
		}

		record := ContentRecord{
			ContentID: contentID,
			MemberID:  memberID,
			DomainTag: asString(raw["domain_tag"]),
		}

		counters := []struct {
			field  string
			target *int64
		}{
			{field: "read_count", target: &record.Reads},
			{field: "like_count", target: &record.Likes},
			{field: "comment_count", target: &record.Comments},
			{field: "share_count", target: &record.Shares},
			{field: "collect_count", target: &record.Collects},
			{field: "dislike_count", target: &record.Dislikes},
		}
		for _, counter := range counters {
			value, ok := asCount(raw[counter.field])
			if !ok && raw[counter.field] != nil {
				s.logger.Warn("content counter malformed, treating as zero",
					zap.Int64("content_id", contentID),
					zap.String("field", counter.field),
					zap.Any("value", raw[counter.field]))
			}
			*counter.target = value
		}

		tier, ok := asInt64(raw["post_length_level"])
		if !ok {
			tier = 1
		}
		record.LengthTier = clampTier(int(tier))

		publishedAt, ok := asTimestamp(raw["publish_time"])
		if !ok {
			s.logger.Warn("content record has malformed publish time",
				zap.Int64("content_id", contentID),
				zap.Any("value", raw["publish_time"]))
		}
		record.PublishedAt = publishedAt

		records = append(records, record)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// consumeFiles parses each pending drop file line by line and renames it
// aside afterwards. A line that is not valid JSON is logged and skipped.
func (s *FileSource) consumeFiles(ctx context.Context, pattern string, handle func(map[string]any)) error {
	paths, err := filepath.Glob(filepath.Join(s.dir, pattern))
	if err != nil {
		return err
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.consumeFile(path, handle); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSource) consumeFile(path string, handle func(map[string]any)) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(line))
		decoder.UseNumber()
		var raw map[string]any
		if err := decoder.Decode(&raw); err != nil {
			s.logger.Warn("skipping unparseable snapshot line",
				zap.String("file", filepath.Base(path)),
				zap.Int("line", lineNumber),
				zap.Error(err))
			continue
		}
		handle(raw)
	}
	scanErr := scanner.Err()
	closeErr := file.Close()
	if scanErr != nil {
		return scanErr
	}
	if closeErr != nil {
		return closeErr
	}

	return os.Rename(path, path+consumedSuffix)
}

func clampTier(tier int) int {
	if tier < 1 {
		return 1
	}
	if tier > 3 {
		return 3
	}
	return tier
}
