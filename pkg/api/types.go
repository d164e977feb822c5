package api

import (
	"time"

	"github.com/rubiojr/fanfic/pkg/storage"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type DataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type SearchResponse struct {
	Success    bool            `json:"success"`
	Data       []storage.Story `json:"data"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// FandomCount is one entry of /api/stats/fandoms.
type FandomCount struct {
	Name       string `json:"name"`
	StoryCount int    `json:"story_count"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
