// Package storagetest builds throwaway metadata databases for tests.
package storagetest

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Schema is the layout of the metadata table as produced by the scraper that
// fills it. Every column is nullable.
const Schema = `CREATE TABLE metadata_full (
	Title TEXT,
	Author TEXT,
	Category TEXT,
	Genre TEXT,
	Language TEXT,
	Status TEXT,
	Rating TEXT,
	word_count INTEGER,
	chapter_count INTEGER,
	Published TEXT,
	Updated TEXT,
	Summary TEXT,
	story_url TEXT,
	author_url TEXT
)`

// Row is one story to insert. Rows get consecutive rowids starting at 1 in
// the order they are passed.
type Row struct {
	Title     string
	Author    string
	Category  string
	Genre     string
	Language  string
	Status    string
	Rating    string
	Words     int
	Chapters  int
	Published string
	Updated   string
	Summary   string
	StoryURL  string
	AuthorURL string
}

// NewDB creates a database file in a temporary directory holding rows and
// returns its path.
func NewDB(t testing.TB, rows ...Row) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "metadata.sqlite")
	db := open(t, path)
	defer func() {
		if err := db.Close(); err != nil {
			t.Errorf("closing fixture database: %v", err)
		}
	}()

	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	Insert(t, db, rows...)
	return path
}

// NewEmptyDB creates a database file without the metadata table.
func NewEmptyDB(t testing.TB) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "empty.sqlite")
	db := open(t, path)
	defer func() {
		if err := db.Close(); err != nil {
			t.Errorf("closing fixture database: %v", err)
		}
	}()

	if _, err := db.Exec("CREATE TABLE other (id INTEGER)"); err != nil {
		t.Fatalf("creating table: %v", err)
	}
	return path
}

// Exec runs a statement against the database at path, for fixtures Row
// cannot express such as NULL columns.
func Exec(t testing.TB, path, stmt string, args ...any) {
	t.Helper()

	db := open(t, path)
	defer func() {
		if err := db.Close(); err != nil {
			t.Errorf("closing fixture database: %v", err)
		}
	}()

	if _, err := db.Exec(stmt, args...); err != nil {
		t.Fatalf("exec %q: %v", stmt, err)
	}
}

// Insert adds rows through an open connection.
func Insert(t testing.TB, db *sql.DB, rows ...Row) {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO metadata_full (
		Title, Author, Category, Genre, Language, Status, Rating,
		word_count, chapter_count, Published, Updated, Summary, story_url, author_url
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		t.Fatalf("prepare insert: %v", err)
	}
	for _, r := range rows {
		_, err := stmt.Exec(r.Title, r.Author, r.Category, r.Genre, r.Language, r.Status, r.Rating,
			r.Words, r.Chapters, r.Published, r.Updated, r.Summary, r.StoryURL, r.AuthorURL)
		if err != nil {
			t.Fatalf("inserting %q: %v", r.Title, err)
		}
	}
	if err := stmt.Close(); err != nil {
		t.Fatalf("closing statement: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func open(t testing.TB, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.ToSlash(path))
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	return db
}
