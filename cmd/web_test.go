package cmd

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rubiojr/fanfic/pkg/api"
	"github.com/rubiojr/fanfic/pkg/storage"
	"github.com/rubiojr/fanfic/pkg/storage/storagetest"
)

func setupTestWebServer(t *testing.T) (http.Handler, *storage.Store) {
	t.Helper()

	path := storagetest.NewDB(t,
		storagetest.Row{Title: "Short", Author: "Ann", Category: "Harry Potter", Language: "English", Rating: "T", Status: "Complete", Words: 10000, Updated: "2020-01-01"},
		storagetest.Row{Title: "Medium", Author: "Ann", Category: "Harry Potter", Language: "English", Rating: "T", Status: "Complete", Words: 60000, Updated: "2021-01-01"},
		storagetest.Row{Title: "Long", Author: "Bob", Category: "Harry Potter", Language: "English", Rating: "M", Status: "In-Progress", Words: 120000, Updated: "2022-01-01"},
		storagetest.Row{Title: "Ninja", Author: "Cid", Category: "Naruto", Language: "Spanish", Rating: "K", Status: "Complete", Words: 5000, Updated: "2023-01-01", Summary: "A <i>ninja</i> story"},
	)
	store, err := storage.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return NewWebServer(store).Handler(), store
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebPages(t *testing.T) {
	h, _ := setupTestWebServer(t)

	tests := []struct {
		path     string
		status   int
		contains []string
	}{
		{"/", http.StatusOK, []string{"Top fandoms", "Harry Potter", "195,000"}},
		{"/search", http.StatusOK, []string{`name="title"`}},
		{"/search?category=Harry+Potter&min_words=50000", http.StatusOK, []string{"2 stories found", "Medium", "Long"}},
		{"/search?show_all=1", http.StatusOK, []string{"4 stories found"}},
		{"/browse", http.StatusOK, []string{"Ninja", "Short"}},
		{"/story/4", http.StatusOK, []string{"Ninja", "<i>ninja</i>", "Naruto"}},
		{"/story/999", http.StatusNotFound, []string{"Page not found"}},
		{"/story/abc", http.StatusNotFound, []string{"Page not found"}},
		{"/top/fandoms", http.StatusOK, []string{"Harry Potter", "Naruto"}},
		{"/top/authors", http.StatusOK, []string{"Ann", "Bob", "Cid"}},
		{"/top/longest", http.StatusOK, []string{"Long", "120,000"}},
		{"/no/such/page", http.StatusNotFound, []string{"Page not found"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
			body := rec.Body.String()
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q", want)
				}
			}
		})
	}
}

func TestSearchPageWithoutFilterListsNothing(t *testing.T) {
	h, _ := setupTestWebServer(t)

	body := get(t, h, "/search?sort=words").Body.String()
	if strings.Contains(body, "stories found") {
		t.Errorf("search without filter should only show the form")
	}
}

func TestAPISearch(t *testing.T) {
	h, _ := setupTestWebServer(t)

	rec := get(t, h, "/api/search?category=Harry+Potter&min_words=50000&page_size=10&page=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp api.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if !resp.Success || resp.TotalCount != 2 || len(resp.Data) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Data[0].Title != "Long" || resp.Data[1].Title != "Medium" {
		t.Errorf("order = %s, %s", resp.Data[0].Title, resp.Data[1].Title)
	}
	if resp.PageSize != 10 || resp.TotalPages != 1 {
		t.Errorf("page_size=%d total_pages=%d", resp.PageSize, resp.TotalPages)
	}
}

func TestAPIStoryAndNotFound(t *testing.T) {
	h, _ := setupTestWebServer(t)

	if rec := get(t, h, "/api/story/1"); rec.Code != http.StatusOK {
		t.Errorf("/api/story/1 status = %d", rec.Code)
	}

	for _, path := range []string{"/api/story/999", "/api/story/x", "/api/nope"} {
		rec := get(t, h, path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
		}
		var resp api.ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Errorf("%s: body is not JSON: %v", path, err)
		}
		if resp.Success {
			t.Errorf("%s: success should be false", path)
		}
	}
}

func TestStoreUnavailable(t *testing.T) {
	h, store := setupTestWebServer(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if rec := get(t, h, "/api/search"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/api/search status = %d, want 503", rec.Code)
	}
	rec := get(t, h, "/search?show_all=1")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/search status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Database unavailable") {
		t.Errorf("error page missing message")
	}
}

func TestStaticAssets(t *testing.T) {
	h, _ := setupTestWebServer(t)

	rec := get(t, h, "/static/style.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestRequestIDAndCORS(t *testing.T) {
	h, _ := setupTestWebServer(t)

	rec := get(t, h, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get(api.RequestIDHeader) == "" {
		t.Errorf("missing request id")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(api.RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(api.RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want the client's", got)
	}
}

func TestGzipResponses(t *testing.T) {
	h, _ := setupTestWebServer(t)

	req := httptest.NewRequest(http.MethodGet, "/search?show_all=1", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("response not compressed")
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("reading gzip body: %v", err)
	}
	if !strings.Contains(string(body), "4 stories found") {
		t.Errorf("decompressed body missing results")
	}
}
