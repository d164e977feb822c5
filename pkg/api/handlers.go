package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rubiojr/fanfic/pkg/storage"
	"github.com/rubiojr/fanfic/pkg/version"
)

// statsCacheControl is sent with aggregate responses. The table only changes
// when the database file is replaced.
const statsCacheControl = "public, max-age=300"

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	filter := storage.ParseSearchFilter(r.URL.Query())

	results, err := s.stories.Search(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	response := SearchResponse{
		Success:    true,
		Data:       results.Stories,
		TotalCount: results.TotalCount,
		Page:       results.Page,
		PageSize:   results.PageSize,
		TotalPages: results.Pagination().TotalPages,
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) HandleStory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Story not found")
		return
	}

	story, found, err := s.stories.GetStory(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !found {
		s.writeError(w, http.StatusNotFound, "Story not found")
		return
	}

	s.writeJSON(w, http.StatusOK, DataResponse{Success: true, Data: story})
}

func (s *Server) HandleBasicStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stories.BasicStats(r.Context())
	s.writeStats(w, r, stats, err)
}

func (s *Server) HandleTopFandoms(w http.ResponseWriter, r *http.Request) {
	fandoms, err := s.stories.TopFandoms(r.Context(), limitParam(r))
	s.writeStats(w, r, fandomCounts(fandoms), err)
}

func fandomCounts(buckets []storage.NameCount) []FandomCount {
	out := make([]FandomCount, len(buckets))
	for i, b := range buckets {
		out[i] = FandomCount{Name: b.Name, StoryCount: b.Count}
	}
	return out
}

func (s *Server) HandleTopAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := s.stories.TopAuthors(r.Context(), limitParam(r))
	s.writeStats(w, r, authors, err)
}

func (s *Server) HandleLanguageStats(w http.ResponseWriter, r *http.Request) {
	languages, err := s.stories.LanguageStats(r.Context())
	s.writeStats(w, r, languages, err)
}

func (s *Server) HandleRatingStats(w http.ResponseWriter, r *http.Request) {
	ratings, err := s.stories.RatingStats(r.Context())
	s.writeStats(w, r, ratings, err)
}

func (s *Server) HandleStatusStats(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.stories.StatusStats(r.Context())
	s.writeStats(w, r, statuses, err)
}

func (s *Server) HandleLongestStories(w http.ResponseWriter, r *http.Request) {
	stories, err := s.stories.LongestStories(r.Context(), limitParam(r))
	s.writeStats(w, r, stories, err)
}

func (s *Server) writeStats(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", statsCacheControl)
	s.writeJSON(w, http.StatusOK, DataResponse{Success: true, Data: data})
}

func (s *Server) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "Endpoint not found")
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}

// limitParam reads the limit query parameter. Malformed values fall back to
// the default and large ones are capped.
func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = 0
	}
	return storage.ClampLimit(limit, storage.DefaultTopLimit)
}
