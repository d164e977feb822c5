package storage

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is used when the request does not ask for a page size.
	DefaultPageSize = 25
	// MaxPageSize bounds the number of rows a single query may return.
	MaxPageSize = 100
)

// SearchFilter holds the recognized, optional search constraints for one
// request. A nil field imposes no constraint.
type SearchFilter struct {
	TitleContains  *string
	AuthorContains *string
	CategoryEquals *string
	GenreEquals    *string
	LanguageEquals *string
	StatusEquals   *string
	RatingEquals   *string
	WordCountMin   *int
	WordCountMax   *int

	// Page is 1-based.
	Page     int
	PageSize int

	// Sort is a key of the sort allow-list, Order is "asc" or "desc". Both are
	// validated by the query builder, not here.
	Sort  string
	Order string
}

// NewSearchFilter returns a filter with no constraints on the first page.
func NewSearchFilter() SearchFilter {
	return SearchFilter{Page: 1, PageSize: DefaultPageSize}
}

// ParseSearchFilter builds a SearchFilter from raw query parameters.
//
// Supported parameters:
//   - title, author: substring match
//   - category, genre, language, status, rating: equality
//   - min_words, max_words: inclusive word count range
//   - page, page_size (alias per_page)
//   - sort, order
//
// It never fails. Unknown keys are ignored, empty values are treated as
// absent, integers that do not parse are dropped and pagination is clamped.
func ParseSearchFilter(values url.Values) SearchFilter {
	f := NewSearchFilter()

	f.TitleContains = stringParam(values, "title")
	f.AuthorContains = stringParam(values, "author")
	f.CategoryEquals = stringParam(values, "category")
	f.GenreEquals = stringParam(values, "genre")
	f.LanguageEquals = stringParam(values, "language")
	f.StatusEquals = stringParam(values, "status")
	f.RatingEquals = stringParam(values, "rating")
	f.WordCountMin = intParam(values, "min_words")
	f.WordCountMax = intParam(values, "max_words")

	if page := intParam(values, "page"); page != nil {
		f.Page = *page
	}

	if size := intParam(values, "page_size"); size != nil {
		f.PageSize = *size
	} else if size := intParam(values, "per_page"); size != nil {
		f.PageSize = *size
	}

	if s := stringParam(values, "sort"); s != nil {
		f.Sort = strings.ToLower(*s)
	}
	if o := stringParam(values, "order"); o != nil {
		f.Order = strings.ToLower(*o)
	}

	return f.Normalize()
}

// Normalize clamps pagination into its valid range. Page is capped so that
// Offset never overflows.
func (f SearchFilter) Normalize() SearchFilter {
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if maxPage := math.MaxInt / f.PageSize; f.Page > maxPage {
		f.Page = maxPage
	}
	return f
}

// Offset returns the number of rows skipped before the current page.
func (f SearchFilter) Offset() int {
	f = f.Normalize()
	return (f.Page - 1) * f.PageSize
}

// IsEmpty reports whether no predicate field is set. Pagination and sorting
// are not predicates.
func (f SearchFilter) IsEmpty() bool {
	return f.TitleContains == nil && f.AuthorContains == nil &&
		f.CategoryEquals == nil && f.GenreEquals == nil &&
		f.LanguageEquals == nil && f.StatusEquals == nil &&
		f.RatingEquals == nil && f.WordCountMin == nil && f.WordCountMax == nil
}

// WithPage returns a copy of the filter pointing at another page.
func (f SearchFilter) WithPage(page int) SearchFilter {
	f.Page = page
	return f.Normalize()
}

func stringParam(values url.Values, key string) *string {
	v := strings.TrimSpace(values.Get(key))
	if v == "" {
		return nil
	}
	return &v
}

func intParam(values url.Values, key string) *int {
	v := strings.TrimSpace(values.Get(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}
