// Package storage provides read access to the story metadata database.
//
// SearchFilter captures the optional constraints of one request,
// BuildSearchQuery and BuildCountQuery translate it into parameterized SQL and
// Store executes those queries against a read-only SQLite connection. Admin
// owns a separate writable connection for index maintenance.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rubiojr/fanfic/pkg/log"
)

var (
	// ErrStoreUnavailable wraps every failure caused by the database itself:
	// a missing, locked or corrupted file.
	ErrStoreUnavailable = errors.New("story store unavailable")

	// ErrSchema is returned when the database does not contain the metadata table.
	ErrSchema = errors.New("metadata table not found")
)

var logger = log.ForService("storage")

// Store runs read-only queries against the metadata database.
type Store struct {
	db   *sql.DB
	path string
}

// SearchResults is one page of stories plus the total number of matches for
// the same filter.
type SearchResults struct {
	Stories    []Story `json:"data"`
	TotalCount int     `json:"total_count"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
}

// Pagination returns the navigation data for the page.
func (r *SearchResults) Pagination() Pagination {
	return NewPagination(r.Page, r.PageSize, r.TotalCount)
}

// Open opens the database at path in read-only mode and checks that the
// metadata table exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	db, err := sql.Open("sqlite3", dsn(path, "mode=ro",
		"busy_timeout(10000)",
		"query_only(1)",
		"cache_size(-64000)",
		"temp_store(memory)",
		"mmap_size(268435456)",
	))
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", ErrStoreUnavailable, err)
	}

	s := &Store{db: db, path: path}
	if err := s.checkSchema(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			logger.Warnf("failed to close database: %v", cerr)
		}
		return nil, err
	}

	logger.Debugf("opened %s read-only", path)
	return s, nil
}

// Path returns the database file the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) checkSchema(ctx context.Context) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", TableName).Scan(&n)
	if err != nil {
		return unavailable("checking schema", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %w in %s", ErrStoreUnavailable, ErrSchema, s.path)
	}
	return nil
}

// Search returns the page of stories selected by f and the total number of
// matching stories. Both statements run inside one read transaction so the
// count always agrees with the rows.
func (s *Store) Search(ctx context.Context, f SearchFilter) (*SearchResults, error) {
	f = f.Normalize()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, unavailable("beginning read transaction", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.Warnf("failed to end read transaction: %v", err)
		}
	}()

	count := BuildCountQuery(f)
	var total int
	if err := tx.QueryRowContext(ctx, count.Text, count.Args...).Scan(&total); err != nil {
		return nil, unavailable("counting stories", err)
	}

	q := BuildSearchQuery(f)
	logger.Debugf("search: %s %v", q.Text, q.Args)
	stories, err := queryStories(ctx, tx, q)
	if err != nil {
		return nil, err
	}

	return &SearchResults{
		Stories:    stories,
		TotalCount: total,
		Page:       f.Page,
		PageSize:   f.PageSize,
	}, nil
}

// Count returns the number of stories matching f, ignoring pagination.
func (s *Store) Count(ctx context.Context, f SearchFilter) (int, error) {
	q := BuildCountQuery(f)
	var total int
	if err := s.db.QueryRowContext(ctx, q.Text, q.Args...).Scan(&total); err != nil {
		return 0, unavailable("counting stories", err)
	}
	return total, nil
}

// GetStory looks a story up by id. The boolean is false when no row has
// that id.
func (s *Store) GetStory(ctx context.Context, id int64) (Story, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+storyColumns+" FROM "+TableName+" WHERE rowid = ?", id)

	story, err := scanStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Story{}, false, nil
	}
	if err != nil {
		return Story{}, false, unavailable("loading story", err)
	}
	return story, true, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryStories executes q and adapts every row to a Story.
func queryStories(ctx context.Context, db queryer, q Query) ([]Story, error) {
	rows, err := db.QueryContext(ctx, q.Text, q.Args...)
	if err != nil {
		return nil, unavailable("querying stories", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warnf("failed to close rows: %v", err)
		}
	}()

	stories := []Story{}
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, unavailable("scanning story", err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating stories", err)
	}
	return stories, nil
}

// unavailable marks err as a store failure. Context errors are returned as
// they are since they describe the caller, not the database.
func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// dsn builds a SQLite URI filename for path with the given mode and pragmas.
func dsn(path, mode string, pragmas ...string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	params := url.Values{}
	if mode != "" {
		k, v, _ := strings.Cut(mode, "=")
		params.Set(k, v)
	}
	for _, p := range pragmas {
		params.Add("_pragma", p)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: params.Encode()}
	return u.String()
}
