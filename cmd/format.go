package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rubiojr/fanfic/pkg/render"
	"github.com/rubiojr/fanfic/pkg/storage"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			Margin(1, 0, 0, 0)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)

	slowStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	fastStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))

	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Headers(headers...)
}

// printStories writes one page of search results.
func printStories(w io.Writer, res *storage.SearchResults) {
	p := res.Pagination()
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s stories found", render.FormatNumber(res.TotalCount))))

	if len(res.Stories) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No stories match the filter."))
		return
	}

	t := newTable("ID", "Title", "Author", "Fandom", "Rating", "Words", "Status", "Updated")
	for _, s := range res.Stories {
		t.Row(
			strconv.FormatInt(s.ID, 10),
			render.Truncate(s.Title, 50),
			render.Truncate(s.Author, 24),
			render.Truncate(s.Category, 30),
			render.OrMissing(s.Rating),
			render.FormatNumber(s.WordCount),
			render.OrMissing(s.Status),
			render.OrMissing(s.Updated),
		)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("Page %d of %d", p.Page, p.TotalPages)))
}

// printStory writes every field of a single story.
func printStory(w io.Writer, s storage.Story) {
	fmt.Fprintln(w, titleStyle.Render(render.OrMissing(s.Title)))
	rows := [][2]string{
		{"Author", render.OrMissing(s.Author)},
		{"Fandom", render.OrMissing(s.Category)},
		{"Genre", render.OrMissing(s.Genre)},
		{"Language", render.OrMissing(s.Language)},
		{"Rating", render.OrMissing(s.Rating)},
		{"Status", render.OrMissing(s.Status)},
		{"Words", render.FormatNumber(s.WordCount)},
		{"Chapters", render.FormatNumber(s.ChapterCount)},
		{"Published", render.OrMissing(s.Published)},
		{"Updated", render.OrMissing(s.Updated)},
		{"URL", render.OrMissing(s.StoryURL)},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s %s\n", metaStyle.Render(fmt.Sprintf("%-10s", r[0])), r[1])
	}
	fmt.Fprintln(w, headerStyle.Render("Summary"))
	fmt.Fprintln(w, render.OrMissing(s.Summary))
}

// printNameCounts writes a ranked distribution.
func printNameCounts(w io.Writer, heading, column string, buckets []storage.NameCount) {
	fmt.Fprintln(w, headerStyle.Render(heading))
	if len(buckets) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No data."))
		return
	}
	t := newTable("#", column, "Stories")
	for i, b := range buckets {
		t.Row(strconv.Itoa(i+1), b.Name, render.FormatNumber(b.Count))
	}
	fmt.Fprintln(w, t.Render())
}

// speedLabel classifies a benchmark timing.
func speedLabel(d time.Duration) string {
	switch {
	case d > time.Second:
		return slowStyle.Render("SLOW")
	case d < 100*time.Millisecond:
		return fastStyle.Render("FAST")
	default:
		return okStyle.Render("OK")
	}
}

// formatDuration prints d in milliseconds with two decimals.
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}
