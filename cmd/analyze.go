package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rubiojr/fanfic/pkg/storage"
	"github.com/urfave/cli/v3"
)

// AnalyzeCommand creates the analyze command
func AnalyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Benchmark representative queries and report the existing indexes",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withAdmin(ctx, c, func(a *storage.Admin) error {
				return analyze(ctx, os.Stdout, a)
			})
		},
	}
}

func analyze(ctx context.Context, w io.Writer, a *storage.Admin) error {
	fmt.Fprintln(w, titleStyle.Render("Query performance"))

	results, err := a.Benchmark(ctx)
	if err != nil {
		return fmt.Errorf("benchmarking: %w", err)
	}
	t := newTable("Query", "Time", "")
	for _, r := range results {
		t.Row(r.Name, formatDuration(r.Duration), speedLabel(r.Duration))
	}
	fmt.Fprintln(w, t.Render())

	existing, err := a.ExistingIndexes(ctx)
	if err != nil {
		return fmt.Errorf("listing indexes: %w", err)
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Indexes (%d of %d)", len(existing), len(storage.Indexes))))
	present := map[string]bool{}
	for _, name := range existing {
		present[name] = true
		fmt.Fprintf(w, "  %s\n", name)
	}

	var missing int
	for _, idx := range storage.Indexes {
		if !present[idx.Name] {
			missing++
		}
	}
	if missing > 0 {
		fmt.Fprintln(w, noDataStyle.Render(fmt.Sprintf("%d indexes missing. Run `fanfic indexes create` to add them.", missing)))
	}
	return nil
}
