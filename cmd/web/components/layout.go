package components

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/rubiojr/fanfic/cmd/web/components/types"
)

var navLinks = []struct {
	href  templ.SafeURL
	label string
}{
	{"/search", "Search"},
	{"/browse", "Browse"},
	{"/top/fandoms", "Fandoms"},
	{"/top/authors", "Authors"},
	{"/top/longest", "Longest"},
}

// Layout wraps content with the document head, the navigation bar and the
// footer. data.Error, when set, is shown above the content.
func Layout(data types.PageData, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		pw := &pageWriter{w: w}
		pw.raw(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>`)
		pw.text(data.Title)
		pw.raw(`</title>
  <link rel="stylesheet" href="/static/style.css">
</head>
<body>
  <header>
    <nav>
      <a class="brand" href="/">Fanfic Explorer</a>
`)
		for _, link := range navLinks {
			pw.raw(`      <a href="`)
			pw.text(string(link.href))
			pw.raw(`">`)
			pw.text(link.label)
			pw.raw("</a>\n")
		}
		pw.raw(`    </nav>
  </header>
  <main>
    `)
		if data.Error != "" {
			pw.raw(`<div class="error">`)
			pw.text(data.Error)
			pw.raw(`</div>`)
		}
		if pw.err != nil {
			return pw.err
		}
		if err := content.Render(ctx, w); err != nil {
			return err
		}
		pw.raw(`
  </main>
  <footer>fanfic `)
		pw.text(data.Version)
		pw.raw(`</footer>
</body>
</html>
`)
		return pw.err
	})
}

// errorContent is the body of the 404 and 5xx pages.
func errorContent(data types.PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		pw := &pageWriter{w: w}
		pw.raw("\n<h1>")
		pw.text(data.Title)
		pw.raw("</h1>\n<p><a href=\"/\">Back to the dashboard</a></p>\n")
		return pw.err
	})
}

// pageWriter keeps the first write error so markup can be emitted without
// checking every call.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *pageWriter) text(s string) {
	p.raw(templ.EscapeString(s))
}
