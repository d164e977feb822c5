package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rubiojr/fanfic/pkg/storage/storagetest"
)

func openTestStore(t *testing.T, rows ...storagetest.Row) *Store {
	t.Helper()
	s, err := Open(context.Background(), storagetest.NewDB(t, rows...))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func titles(stories []Story) []string {
	out := make([]string, len(stories))
	for i, s := range stories {
		out[i] = s.Title
	}
	return out
}

func search(t *testing.T, s *Store, query string) *SearchResults {
	t.Helper()
	values, err := url.ParseQuery(query)
	if err != nil {
		t.Fatalf("parsing %q: %v", query, err)
	}
	res, err := s.Search(context.Background(), ParseSearchFilter(values))
	if err != nil {
		t.Fatalf("Search(%q): %v", query, err)
	}
	return res
}

func TestSearchCategoryAndMinWords(t *testing.T) {
	s := openTestStore(t,
		storagetest.Row{Title: "Short", Category: "Harry Potter", Words: 10000, Updated: "2020-01-01"},
		storagetest.Row{Title: "Medium", Category: "Harry Potter", Words: 60000, Updated: "2021-01-01"},
		storagetest.Row{Title: "Long", Category: "Harry Potter", Words: 120000, Updated: "2022-01-01"},
		storagetest.Row{Title: "Other", Category: "Naruto", Words: 90000, Updated: "2023-01-01"},
	)

	res := search(t, s, "category=Harry+Potter&min_words=50000&page_size=10&page=1")
	if res.TotalCount != 2 {
		t.Fatalf("TotalCount = %d, want 2", res.TotalCount)
	}
	if diff := cmp.Diff([]string{"Long", "Medium"}, titles(res.Stories)); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
	if res.Page != 1 || res.PageSize != 10 {
		t.Errorf("page = %d size = %d", res.Page, res.PageSize)
	}
}

func TestSearchWordCountBoundsAreInclusive(t *testing.T) {
	s := openTestStore(t,
		storagetest.Row{Title: "A", Words: 999},
		storagetest.Row{Title: "B", Words: 1000},
		storagetest.Row{Title: "C", Words: 2000},
		storagetest.Row{Title: "D", Words: 2001},
	)

	res := search(t, s, "min_words=1000&max_words=2000&sort=words&order=asc")
	if diff := cmp.Diff([]string{"B", "C"}, titles(res.Stories)); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}

	res = search(t, s, "min_words=3000&max_words=10")
	if res.TotalCount != 0 || len(res.Stories) != 0 {
		t.Errorf("min > max should match nothing, got %d", res.TotalCount)
	}
}

func TestSearchSubstringIsCaseInsensitiveAndLiteral(t *testing.T) {
	s := openTestStore(t,
		storagetest.Row{Title: "The Ring Bearer", Author: "Frodo"},
		storagetest.Row{Title: "100% Canon", Author: "pct"},
		storagetest.Row{Title: "1000 Canon", Author: "digits"},
		storagetest.Row{Title: "snake_case", Author: "under"},
		storagetest.Row{Title: "snakeXcase", Author: "x"},
		storagetest.Row{Title: "It's ' OR '1'='1 time", Author: "quote"},
	)

	tests := []struct {
		query string
		want  []string
	}{
		{"title=ring", []string{"The Ring Bearer"}},
		{"title=RING&sort=title", []string{"The Ring Bearer"}},
		{"author=FRO", []string{"The Ring Bearer"}},
		{"title=100%25&sort=title", []string{"100% Canon"}},
		{"title=e_c&sort=title", []string{"snake_case"}},
		{"title=%27+OR+%271%27%3D%271", []string{"It's ' OR '1'='1 time"}},
		{"title=x'%3B+DROP+TABLE+metadata_full%3B+--", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := search(t, s, tt.query)
			if diff := cmp.Diff(tt.want, titles(res.Stories)); diff != "" {
				t.Errorf("titles mismatch (-want +got):\n%s", diff)
			}
		})
	}

	// The table survived the injection attempt.
	if res := search(t, s, ""); res.TotalCount != 6 {
		t.Fatalf("TotalCount after injection attempt = %d, want 6", res.TotalCount)
	}
}

func TestSearchEqualityCaseRules(t *testing.T) {
	s := openTestStore(t,
		storagetest.Row{Title: "A", Category: "Harry Potter", Language: "English", Status: "Complete"},
		storagetest.Row{Title: "B", Category: "harry potter", Language: "english", Status: "complete"},
	)

	if res := search(t, s, "category=HARRY+POTTER"); res.TotalCount != 2 {
		t.Errorf("category match should ignore case, got %d", res.TotalCount)
	}
	if res := search(t, s, "language=English"); res.TotalCount != 1 {
		t.Errorf("language match should be exact, got %d", res.TotalCount)
	}
	if res := search(t, s, "status=complete"); res.TotalCount != 1 {
		t.Errorf("status match should be exact, got %d", res.TotalCount)
	}
}

func TestSearchPagination(t *testing.T) {
	var rows []storagetest.Row
	for i := 0; i < 60; i++ {
		// Every story shares the same update date so ordering relies on the
		// rowid tie-breaker.
		rows = append(rows, storagetest.Row{Title: fmt.Sprintf("story-%02d", i), Updated: "2024-05-01"})
	}
	s := openTestStore(t, rows...)

	first := search(t, s, "")
	if first.TotalCount != 60 || len(first.Stories) != DefaultPageSize {
		t.Fatalf("first page: total=%d rows=%d", first.TotalCount, len(first.Stories))
	}
	if first.Stories[0].Title != "story-00" {
		t.Errorf("first row = %q, want story-00", first.Stories[0].Title)
	}

	second := search(t, s, "page=2")
	if second.Stories[0].Title != "story-25" {
		t.Errorf("page 2 starts at %q, want story-25", second.Stories[0].Title)
	}

	last := search(t, s, "page=3")
	if len(last.Stories) != 10 {
		t.Errorf("last page rows = %d, want 10", len(last.Stories))
	}
	if p := last.Pagination(); p.TotalPages != 3 || p.HasNext || !p.HasPrev {
		t.Errorf("last page pagination = %+v", p)
	}

	beyond := search(t, s, "page=9")
	if len(beyond.Stories) != 0 || beyond.TotalCount != 60 {
		t.Errorf("page past the end: rows=%d total=%d", len(beyond.Stories), beyond.TotalCount)
	}

	huge := search(t, s, "page=368934881474191035")
	if len(huge.Stories) != 0 || huge.TotalCount != 60 {
		t.Errorf("huge page: rows=%d total=%d, want 0 rows", len(huge.Stories), huge.TotalCount)
	}

	zero := search(t, s, "page=0")
	if diff := cmp.Diff(titles(first.Stories), titles(zero.Stories)); diff != "" {
		t.Errorf("page=0 should equal page=1 (-want +got):\n%s", diff)
	}

	seen := map[int64]bool{}
	for page := 1; page <= 3; page++ {
		res := search(t, s, fmt.Sprintf("page=%d", page))
		for _, st := range res.Stories {
			if seen[st.ID] {
				t.Fatalf("story %d appears on more than one page", st.ID)
			}
			seen[st.ID] = true
		}
	}
	if len(seen) != 60 {
		t.Errorf("pages covered %d stories, want 60", len(seen))
	}
}

func TestSearchSortKeys(t *testing.T) {
	s := openTestStore(t,
		storagetest.Row{Title: "beta", Author: "Zed", Words: 300, Chapters: 1, Published: "2019-01-01", Updated: "2021-01-01"},
		storagetest.Row{Title: "Alpha", Author: "amy", Words: 100, Chapters: 9, Published: "2020-01-01", Updated: "2020-01-01"},
		storagetest.Row{Title: "gamma", Author: "Bob", Words: 200, Chapters: 5, Published: "2018-01-01", Updated: "2022-01-01"},
	)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"gamma", "beta", "Alpha"}},
		{"sort=bogus", []string{"gamma", "beta", "Alpha"}},
		{"sort=published", []string{"Alpha", "beta", "gamma"}},
		{"sort=words", []string{"beta", "gamma", "Alpha"}},
		{"sort=chapters", []string{"Alpha", "gamma", "beta"}},
		{"sort=title", []string{"Alpha", "beta", "gamma"}},
		{"sort=author", []string{"Alpha", "gamma", "beta"}},
		{"sort=title&order=desc", []string{"gamma", "beta", "Alpha"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, titles(search(t, s, tt.query).Stories)); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCountMatchesSearch(t *testing.T) {
	s := openTestStore(t,
		storagetest.Row{Title: "a", Rating: "T"},
		storagetest.Row{Title: "b", Rating: "T"},
		storagetest.Row{Title: "c", Rating: "M"},
	)

	f := ParseSearchFilter(url.Values{"rating": {"T"}})
	n, err := s.Count(context.Background(), f)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("Count = %d, want 2", n)
	}
}

func TestGetStory(t *testing.T) {
	s := openTestStore(t,
		storagetest.Row{Title: "First", Author: "Ann", Words: 1234, Chapters: 3, StoryURL: "https://example.org/s/1"},
		storagetest.Row{Title: "Second"},
	)

	story, found, err := s.GetStory(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetStory: %v", err)
	}
	if !found {
		t.Fatalf("story 1 not found")
	}
	want := Story{ID: 1, Title: "First", Author: "Ann", WordCount: 1234, ChapterCount: 3, StoryURL: "https://example.org/s/1"}
	if diff := cmp.Diff(want, story); diff != "" {
		t.Errorf("story mismatch (-want +got):\n%s", diff)
	}

	_, found, err = s.GetStory(context.Background(), 99)
	if err != nil {
		t.Fatalf("GetStory(99): %v", err)
	}
	if found {
		t.Fatalf("story 99 should not exist")
	}
}

func TestNullColumnsScanAsZeroValues(t *testing.T) {
	path := storagetest.NewDB(t)
	storagetest.Exec(t, path, "INSERT INTO metadata_full (Title) VALUES (?)", "Only a title")

	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	story, found, err := s.GetStory(context.Background(), 1)
	if err != nil || !found {
		t.Fatalf("GetStory: found=%v err=%v", found, err)
	}
	if diff := cmp.Diff(Story{ID: 1, Title: "Only a title"}, story); diff != "" {
		t.Errorf("story mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenUnavailable(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantSchema bool
	}{
		{name: "missing file", path: filepath.Join(t.TempDir(), "missing.sqlite")},
		{name: "missing table", path: storagetest.NewEmptyDB(t), wantSchema: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.path)
			if !errors.Is(err, ErrStoreUnavailable) {
				t.Fatalf("Open error = %v, want ErrStoreUnavailable", err)
			}
			if tt.wantSchema && !errors.Is(err, ErrSchema) {
				t.Fatalf("Open error = %v, want ErrSchema", err)
			}
		})
	}
}

func TestSearchOnClosedStoreIsUnavailable(t *testing.T) {
	s, err := Open(context.Background(), storagetest.NewDB(t, storagetest.Row{Title: "x"}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err = s.Search(context.Background(), NewSearchFilter())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Search error = %v, want ErrStoreUnavailable", err)
	}
}

func TestSearchCanceledContext(t *testing.T) {
	s := openTestStore(t, storagetest.Row{Title: "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Search(ctx, NewSearchFilter())
	if err == nil {
		t.Fatalf("expected error for canceled context")
	}
	if errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("canceled request should not be reported as store failure: %v", err)
	}
}

func TestStoreIsReadOnly(t *testing.T) {
	s := openTestStore(t, storagetest.Row{Title: "x"})
	if _, err := s.db.ExecContext(context.Background(), "DELETE FROM metadata_full"); err == nil {
		t.Fatalf("write through the read-only store succeeded")
	}
}

func TestDSN(t *testing.T) {
	got := dsn("/data/my db.sqlite", "mode=ro", "busy_timeout(1000)")
	want := "file:///data/my%20db.sqlite?_pragma=busy_timeout%281000%29&mode=ro"
	if got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
}
