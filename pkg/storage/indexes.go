package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Index is one of the secondary indexes backing the search predicates.
type Index struct {
	Name        string
	SQL         string
	Description string
}

// Indexes is the fixed set of indexes managed by Admin.
var Indexes = []Index{
	{"idx_author", "CREATE INDEX IF NOT EXISTS idx_author ON metadata_full(Author COLLATE NOCASE)", "Author searches and author pages"},
	{"idx_category", "CREATE INDEX IF NOT EXISTS idx_category ON metadata_full(Category COLLATE NOCASE)", "Fandom/category filtering"},
	{"idx_language", "CREATE INDEX IF NOT EXISTS idx_language ON metadata_full(Language)", "Language filtering"},
	{"idx_status", "CREATE INDEX IF NOT EXISTS idx_status ON metadata_full(Status)", "Completion status filtering"},
	{"idx_rating", "CREATE INDEX IF NOT EXISTS idx_rating ON metadata_full(Rating)", "Rating filtering"},
	{"idx_word_count", "CREATE INDEX IF NOT EXISTS idx_word_count ON metadata_full(word_count)", "Word count ranges"},
	{"idx_chapter_count", "CREATE INDEX IF NOT EXISTS idx_chapter_count ON metadata_full(chapter_count)", "Chapter count ordering"},
	{"idx_updated", "CREATE INDEX IF NOT EXISTS idx_updated ON metadata_full(Updated DESC)", "Newest first ordering"},
	{"idx_published", "CREATE INDEX IF NOT EXISTS idx_published ON metadata_full(Published DESC)", "Ordering by publication date"},
	{"idx_title_text", "CREATE INDEX IF NOT EXISTS idx_title_text ON metadata_full(Title COLLATE NOCASE)", "Case-insensitive title lookups"},
	{"idx_genre_text", "CREATE INDEX IF NOT EXISTS idx_genre_text ON metadata_full(Genre COLLATE NOCASE)", "Genre filtering"},
	{"idx_category_status", "CREATE INDEX IF NOT EXISTS idx_category_status ON metadata_full(Category, Status)", "Fandom + status searches"},
	{"idx_author_updated", "CREATE INDEX IF NOT EXISTS idx_author_updated ON metadata_full(Author, Updated DESC)", "Author searches ordered by update"},
	{"idx_category_wordcount", "CREATE INDEX IF NOT EXISTS idx_category_wordcount ON metadata_full(Category, word_count DESC)", "Fandom searches ordered by length"},
	{"idx_language_status", "CREATE INDEX IF NOT EXISTS idx_language_status ON metadata_full(Language, Status)", "Language + status searches"},
	{"idx_rating_wordcount", "CREATE INDEX IF NOT EXISTS idx_rating_wordcount ON metadata_full(Rating, word_count)", "Rating + word count searches"},
	{"idx_author_count", "CREATE INDEX IF NOT EXISTS idx_author_count ON metadata_full(Author) WHERE Author IS NOT NULL AND Author != ''", "Top author statistics"},
	{"idx_category_count", "CREATE INDEX IF NOT EXISTS idx_category_count ON metadata_full(Category) WHERE Category IS NOT NULL AND Category != ''", "Top fandom statistics"},
	{"idx_search_filter", "CREATE INDEX IF NOT EXISTS idx_search_filter ON metadata_full(Language, Status, Rating, word_count)", "Multi-filter searches"},
}

// Admin owns a writable connection used for index maintenance. The web
// server never uses it.
type Admin struct {
	db   *sql.DB
	path string
}

// IndexTiming records how long one index operation took.
type IndexTiming struct {
	Name     string
	Duration time.Duration
}

// IndexReport is the outcome of CreateIndexes or RemoveIndexes. A failure on
// one index does not stop the others.
type IndexReport struct {
	Created []IndexTiming
	Skipped []string
	Removed []string
	Errors  []error
}

// Err joins every per-index error, or returns nil.
func (r *IndexReport) Err() error {
	return errors.Join(r.Errors...)
}

// IndexDetail describes an index present in the database.
type IndexDetail struct {
	Name string
	SQL  string
	Kind string
}

// IndexInfo lists the current indexes and the database size.
type IndexInfo struct {
	Indexes      []IndexDetail
	DatabaseSize int64
}

// BenchmarkResult is the time one representative query took.
type BenchmarkResult struct {
	Name     string
	Query    string
	Duration time.Duration
}

// benchmarkQueries exercise the predicates the indexes are meant to serve.
var benchmarkQueries = []struct{ name, query string }{
	{"Author search", "SELECT COUNT(*) FROM metadata_full WHERE Author LIKE 'J%'"},
	{"Category search", "SELECT COUNT(*) FROM metadata_full WHERE Category LIKE 'Harry Potter%'"},
	{"Word count range", "SELECT COUNT(*) FROM metadata_full WHERE word_count BETWEEN 50000 AND 100000"},
	{"Multi-filter", "SELECT COUNT(*) FROM metadata_full WHERE Language = 'English' AND Status = 'Complete' AND word_count > 10000"},
	{"Top authors", "SELECT Author, COUNT(*) FROM metadata_full WHERE Author != '' GROUP BY Author ORDER BY COUNT(*) DESC LIMIT 10"},
}

// OpenAdmin opens the database at path for writing. The file must already
// exist.
func OpenAdmin(ctx context.Context, path string) (*Admin, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	db, err := sql.Open("sqlite3", dsn(path, "mode=rw",
		"busy_timeout(30000)",
		"cache_size(-64000)",
		"temp_store(memory)",
	))
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", ErrStoreUnavailable, err)
	}

	a := &Admin{db: db, path: path}
	var n int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", TableName).Scan(&n)
	if err == nil && n == 0 {
		err = ErrSchema
	}
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			logger.Warnf("failed to close database: %v", cerr)
		}
		return nil, unavailable("checking schema", err)
	}
	return a, nil
}

// Close releases the connection.
func (a *Admin) Close() error {
	return a.db.Close()
}

// ExistingIndexes returns the names of the user created indexes on the
// metadata table.
func (a *Admin) ExistingIndexes(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'index' AND tbl_name = ? AND name NOT LIKE 'sqlite_%'
		ORDER BY name`, TableName)
	if err != nil {
		return nil, unavailable("listing indexes", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warnf("failed to close rows: %v", err)
		}
	}()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, unavailable("scanning index name", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CreateIndexes creates every index of Indexes. Existing ones are skipped
// unless force is set, in which case they are dropped and rebuilt. Table
// statistics are refreshed afterwards.
func (a *Admin) CreateIndexes(ctx context.Context, force bool) (*IndexReport, error) {
	existing, err := a.ExistingIndexes(ctx)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	report := &IndexReport{}
	for _, idx := range Indexes {
		if present[idx.Name] && !force {
			report.Skipped = append(report.Skipped, idx.Name)
			continue
		}

		start := time.Now()
		if present[idx.Name] {
			if _, err := a.db.ExecContext(ctx, "DROP INDEX IF EXISTS "+quoteIdent(idx.Name)); err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("dropping %s: %w", idx.Name, err))
				continue
			}
		}
		if _, err := a.db.ExecContext(ctx, idx.SQL); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("creating %s: %w", idx.Name, err))
			continue
		}
		report.Created = append(report.Created, IndexTiming{Name: idx.Name, Duration: time.Since(start)})
		logger.Debugf("created %s", idx.Name)
	}

	if err := a.Analyze(ctx); err != nil {
		return report, err
	}
	return report, nil
}

// RemoveIndexes drops every user created index on the metadata table.
func (a *Admin) RemoveIndexes(ctx context.Context) (*IndexReport, error) {
	existing, err := a.ExistingIndexes(ctx)
	if err != nil {
		return nil, err
	}

	report := &IndexReport{}
	for _, name := range existing {
		if _, err := a.db.ExecContext(ctx, "DROP INDEX IF EXISTS "+quoteIdent(name)); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("removing %s: %w", name, err))
			continue
		}
		report.Removed = append(report.Removed, name)
	}
	return report, nil
}

// Analyze refreshes the query planner statistics for the metadata table.
func (a *Admin) Analyze(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, "ANALYZE "+TableName); err != nil {
		return unavailable("analyzing table", err)
	}
	return nil
}

// IndexInfo describes the indexes currently present and the database size.
func (a *Admin) IndexInfo(ctx context.Context) (*IndexInfo, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT name, COALESCE(sql, '') FROM sqlite_master
		WHERE type = 'index' AND tbl_name = ? AND name NOT LIKE 'sqlite_%'
		ORDER BY name`, TableName)
	if err != nil {
		return nil, unavailable("listing indexes", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warnf("failed to close rows: %v", err)
		}
	}()

	info := &IndexInfo{Indexes: []IndexDetail{}}
	for rows.Next() {
		var d IndexDetail
		if err := rows.Scan(&d.Name, &d.SQL); err != nil {
			return nil, unavailable("scanning index", err)
		}
		d.Kind = indexKind(d.SQL)
		info.Indexes = append(info.Indexes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating indexes", err)
	}

	err = a.db.QueryRowContext(ctx,
		"SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&info.DatabaseSize)
	if err != nil {
		return nil, unavailable("reading database size", err)
	}
	return info, nil
}

// Benchmark times the representative queries used to judge whether the
// indexes are in place.
func (a *Admin) Benchmark(ctx context.Context) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(benchmarkQueries))
	for _, bq := range benchmarkQueries {
		start := time.Now()
		if err := drain(ctx, a.db, bq.query); err != nil {
			return results, unavailable("running "+bq.name, err)
		}
		results = append(results, BenchmarkResult{Name: bq.name, Query: bq.query, Duration: time.Since(start)})
	}
	return results, nil
}

// drain runs query and reads every row.
func drain(ctx context.Context, db *sql.DB, query string) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warnf("failed to close rows: %v", err)
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = new(any)
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return err
		}
	}
	return rows.Err()
}

func indexKind(stmt string) string {
	upper := strings.ToUpper(stmt)
	switch {
	case strings.Contains(upper, "UNIQUE"):
		return "UNIQUE"
	case strings.Contains(columnList(upper), ","):
		return "COMPOSITE"
	default:
		return "SINGLE"
	}
}

// columnList returns the text between the first pair of parentheses.
func columnList(stmt string) string {
	start := strings.Index(stmt, "(")
	end := strings.Index(stmt, ")")
	if start < 0 || end < start {
		return ""
	}
	return stmt[start+1 : end]
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
