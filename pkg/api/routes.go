package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/search", s.HandleSearch)
	mux.HandleFunc("GET /api/story/{id}", s.HandleStory)
	mux.HandleFunc("GET /api/stats/basic", s.HandleBasicStats)
	mux.HandleFunc("GET /api/stats/fandoms", s.HandleTopFandoms)
	mux.HandleFunc("GET /api/stats/authors", s.HandleTopAuthors)
	mux.HandleFunc("GET /api/stats/languages", s.HandleLanguageStats)
	mux.HandleFunc("GET /api/stats/ratings", s.HandleRatingStats)
	mux.HandleFunc("GET /api/stats/status", s.HandleStatusStats)
	mux.HandleFunc("GET /api/top/longest", s.HandleLongestStories)
	mux.HandleFunc("/api/", s.HandleNotFound)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
