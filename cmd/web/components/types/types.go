package types

import (
	"net/url"

	"github.com/rubiojr/fanfic/pkg/storage"
)

// PageData represents data passed to templates
type PageData struct {
	Title   string
	Version string
	Error   string
	// Path is the page the pagination links point back to.
	Path string

	// Query holds the raw request parameters, used to fill in the search form
	// and to build pagination links.
	Query url.Values
	// Searched is false when the search page only shows the form.
	Searched bool
	SortKeys []string

	Stats      storage.BasicStats
	Fandoms    []storage.NameCount
	Authors    []storage.AuthorStats
	Stories    []storage.Story
	Story      storage.Story
	Pagination storage.Pagination
	// PageOffset is the number of rows before the current page, for ranking
	// columns.
	PageOffset int
}
