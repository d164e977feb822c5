package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rubiojr/fanfic/pkg/log"
	"github.com/rubiojr/fanfic/pkg/storage"
)

var logger = log.ForService("api")

// Stories is the read side of the metadata store the handlers need.
// *storage.Store and *storage.Live both implement it.
type Stories interface {
	Search(ctx context.Context, f storage.SearchFilter) (*storage.SearchResults, error)
	GetStory(ctx context.Context, id int64) (storage.Story, bool, error)
	BasicStats(ctx context.Context) (storage.BasicStats, error)
	TopFandoms(ctx context.Context, limit int) ([]storage.NameCount, error)
	TopAuthors(ctx context.Context, limit int) ([]storage.AuthorStats, error)
	LanguageStats(ctx context.Context) ([]storage.NameCount, error)
	RatingStats(ctx context.Context) ([]storage.NameCount, error)
	StatusStats(ctx context.Context) ([]storage.NameCount, error)
	LongestStories(ctx context.Context, limit int) ([]storage.Story, error)
}

type Server struct {
	stories Stories
}

func NewServer(stories Stories) *Server {
	return &Server{stories: stories}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Success: false, Error: message})
}

// writeStoreError maps a store failure to a response. The cause is logged,
// clients only get a generic message.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrStoreUnavailable):
		logger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		s.writeError(w, http.StatusServiceUnavailable, "Database unavailable")
	case errors.Is(err, context.Canceled):
		logger.Debugf("%s %s: client went away", r.Method, r.URL.Path)
	default:
		logger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequestIDHeader carries the id RequestLogger assigns to every request.
const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// RequestLogger tags each request with an id, echoed in the response, and
// logs one line per request once it is served.
func RequestLogger(next http.Handler) http.Handler {
	access := log.ForService("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		access.Infof("%s %s %d %s id=%s", r.Method, r.URL.RequestURI(), rec.status,
			time.Since(start).Round(time.Microsecond), id)
	})
}
