package components

import (
	"html/template"
	"net/url"
	"strconv"
)

// PageURL returns path with query, pointing at page. Other parameters are
// kept so the filter survives navigation.
func PageURL(path string, query url.Values, page int) string {
	q := url.Values{}
	for k, v := range query {
		if k == "page" {
			continue
		}
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	return path + "?" + q.Encode()
}

// SearchURL links to the search page filtered by a single field.
func SearchURL(field, value string) string {
	return "/search?" + url.Values{field: {value}}.Encode()
}

// Selected marks an <option> as selected when the current value of key is
// value.
func Selected(query url.Values, key, value string) template.HTMLAttr {
	if query.Get(key) == value {
		return "selected"
	}
	return ""
}
