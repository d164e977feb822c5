// Package render holds the presentation helpers shared by the HTML pages and
// the terminal commands.
package render

import (
	"html"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Missing is printed in place of absent values.
const Missing = "N/A"

var (
	printer   = message.NewPrinter(language.English)
	titleCase = cases.Title(language.English)
	policy    = bluemonday.UGCPolicy()
)

// FormatNumber prints n with thousands separators. Unsupported types and nil
// pointers render as Missing.
func FormatNumber(n any) string {
	switch v := n.(type) {
	case int:
		return printer.Sprintf("%d", v)
	case int64:
		return printer.Sprintf("%d", v)
	case *int:
		if v == nil {
			return Missing
		}
		return printer.Sprintf("%d", *v)
	case float64:
		return printer.Sprintf("%.0f", v)
	default:
		return Missing
	}
}

// Truncate shortens text to at most max runes, ending with "..." when cut.
// Empty text renders as Missing.
func Truncate(text string, max int) string {
	if text == "" {
		return Missing
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	if max <= 3 {
		return string([]rune(text)[:max])
	}
	return string([]rune(text)[:max-3]) + "..."
}

// Summary returns a story summary as HTML safe to embed in a page. Markup
// coming from the source sites is sanitized; plain text keeps its line breaks.
func Summary(text string) template.HTML {
	text = strings.TrimSpace(text)
	if text == "" {
		return template.HTML(Missing)
	}
	if !strings.Contains(text, "<") {
		escaped := html.EscapeString(text)
		return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
	}
	return template.HTML(policy.Sanitize(text))
}

// Title capitalizes every word of s.
func Title(s string) string {
	return titleCase.String(s)
}

// OrMissing returns s, or Missing when s is empty.
func OrMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return Missing
	}
	return s
}

// FormatBytes prints a size in the largest unit that keeps it above one.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return printer.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return printer.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// TemplateFuncs returns the helpers available to every page template.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"number":   FormatNumber,
		"truncate": Truncate,
		"summary":  Summary,
		"title":    Title,
		"orNA":     OrMissing,
		"bytes":    FormatBytes,
		"add":      func(a, b int) int { return a + b },
	}
}
