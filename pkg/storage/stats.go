package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	// DefaultTopLimit is the number of entries returned by the top-N queries
	// when the caller does not ask for a specific amount.
	DefaultTopLimit = 10
	// MaxTopLimit bounds every top-N query.
	MaxTopLimit = 100
)

// BasicStats summarizes the whole table.
type BasicStats struct {
	TotalStories  int   `json:"total_stories"`
	UniqueAuthors int   `json:"unique_authors"`
	TotalWords    int64 `json:"total_words"`
	AvgWords      int   `json:"avg_words"`
}

// NameCount is one bucket of a distribution.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AuthorStats aggregates the stories of one author.
type AuthorStats struct {
	Name       string `json:"name"`
	StoryCount int    `json:"story_count"`
	AvgWords   int    `json:"avg_words"`
	TotalWords int64  `json:"total_words"`
}

// ClampLimit bounds a top-N limit to [1, MaxTopLimit], using def for values
// below 1.
func ClampLimit(limit, def int) int {
	if limit < 1 {
		return def
	}
	if limit > MaxTopLimit {
		return MaxTopLimit
	}
	return limit
}

// BasicStats returns the totals shown on the dashboard.
func (s *Store) BasicStats(ctx context.Context) (BasicStats, error) {
	var stats BasicStats
	var totalWords sql.NullInt64
	var avgWords sql.NullFloat64

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT CASE WHEN Author IS NOT NULL AND Author != '' THEN Author END),
			SUM(word_count),
			AVG(CASE WHEN word_count > 0 THEN word_count END)
		FROM `+TableName).Scan(&stats.TotalStories, &stats.UniqueAuthors, &totalWords, &avgWords)
	if err != nil {
		return BasicStats{}, unavailable("computing basic stats", err)
	}

	stats.TotalWords = totalWords.Int64
	stats.AvgWords = int(avgWords.Float64)
	return stats, nil
}

// TopFandoms returns the categories with the most stories.
func (s *Store) TopFandoms(ctx context.Context, limit int) ([]NameCount, error) {
	return s.distribution(ctx, "Category", ClampLimit(limit, DefaultTopLimit))
}

// LanguageStats returns the ten most common languages.
func (s *Store) LanguageStats(ctx context.Context) ([]NameCount, error) {
	return s.distribution(ctx, "Language", 10)
}

// RatingStats returns the story count per rating.
func (s *Store) RatingStats(ctx context.Context) ([]NameCount, error) {
	return s.distribution(ctx, "Rating", -1)
}

// StatusStats returns the story count per completion status.
func (s *Store) StatusStats(ctx context.Context) ([]NameCount, error) {
	return s.distribution(ctx, "Status", -1)
}

// distribution counts stories per distinct non-empty value of column. column
// is always a constant chosen by this package. A negative limit returns
// every bucket.
func (s *Store) distribution(ctx context.Context, column string, limit int) ([]NameCount, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) AS n
		FROM %[2]s
		WHERE %[1]s IS NOT NULL AND %[1]s != ''
		GROUP BY %[1]s
		ORDER BY n DESC, %[1]s ASC
		LIMIT ?`, column, TableName)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, unavailable("counting by "+column, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warnf("failed to close rows: %v", err)
		}
	}()

	buckets := []NameCount{}
	for rows.Next() {
		var b NameCount
		if err := rows.Scan(&b.Name, &b.Count); err != nil {
			return nil, unavailable("scanning "+column+" bucket", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating "+column+" buckets", err)
	}
	return buckets, nil
}

// TopAuthors returns the authors with the most stories.
func (s *Store) TopAuthors(ctx context.Context, limit int) ([]AuthorStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT Author, COUNT(*) AS story_count, AVG(word_count), SUM(word_count)
		FROM `+TableName+`
		WHERE Author IS NOT NULL AND Author != ''
		GROUP BY Author
		ORDER BY story_count DESC, Author ASC
		LIMIT ?`, ClampLimit(limit, DefaultTopLimit))
	if err != nil {
		return nil, unavailable("querying top authors", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warnf("failed to close rows: %v", err)
		}
	}()

	authors := []AuthorStats{}
	for rows.Next() {
		var a AuthorStats
		var avg sql.NullFloat64
		var total sql.NullInt64
		if err := rows.Scan(&a.Name, &a.StoryCount, &avg, &total); err != nil {
			return nil, unavailable("scanning author", err)
		}
		a.AvgWords = int(avg.Float64)
		a.TotalWords = total.Int64
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating authors", err)
	}
	return authors, nil
}

// LongestStories returns the stories with the highest word count.
func (s *Store) LongestStories(ctx context.Context, limit int) ([]Story, error) {
	return queryStories(ctx, s.db, Query{
		Text: "SELECT " + storyColumns + " FROM " + TableName +
			" WHERE word_count > 0 ORDER BY word_count DESC, rowid ASC LIMIT ?",
		Args: []any{ClampLimit(limit, DefaultTopLimit)},
	})
}
