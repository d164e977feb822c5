// Package components renders the HTML pages of the web interface.
package components

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"
	"github.com/rubiojr/fanfic/cmd/web/components/types"
	"github.com/rubiojr/fanfic/pkg/render"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[string]*template.Template{}

func init() {
	funcs := render.TemplateFuncs()
	funcs["pageURL"] = PageURL
	funcs["searchURL"] = SearchURL
	funcs["selected"] = Selected

	for _, name := range []string{"index", "search", "browse", "story", "fandoms", "authors", "longest"} {
		pages[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/pagination.html",
			"templates/stories.html",
			"templates/"+name+".html",
		))
	}
}

// page renders the "content" block of the named template inside Layout.
func page(name string, data types.PageData) templ.Component {
	return Layout(data, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := pages[name]
		if !ok {
			return fmt.Errorf("unknown page %q", name)
		}
		return t.ExecuteTemplate(w, "content", data)
	}))
}

// Index is the dashboard with the table totals and the biggest fandoms.
func Index(data types.PageData) templ.Component { return page("index", data) }

// Search is the search form and, once a filter is given, its results.
func Search(data types.PageData) templ.Component { return page("search", data) }

func Browse(data types.PageData) templ.Component { return page("browse", data) }

func Story(data types.PageData) templ.Component { return page("story", data) }

func TopFandoms(data types.PageData) templ.Component { return page("fandoms", data) }

func TopAuthors(data types.PageData) templ.Component { return page("authors", data) }

func Longest(data types.PageData) templ.Component { return page("longest", data) }

// Error renders data.Title and data.Error. Used for 404 and 5xx pages.
func Error(data types.PageData) templ.Component { return Layout(data, errorContent(data)) }
