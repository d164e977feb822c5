package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rubiojr/fanfic/pkg/render"
	"github.com/rubiojr/fanfic/pkg/storage"
	"github.com/urfave/cli/v3"
)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show database statistics",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of fandoms and authors to list",
				Value: storage.DefaultTopLimit,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeWithWarning("store", store)

			return showStats(ctx, os.Stdout, store, c.Int("limit"))
		},
	}
}

func showStats(ctx context.Context, w io.Writer, store *storage.Store, limit int) error {
	basic, err := store.BasicStats(ctx)
	if err != nil {
		return fmt.Errorf("computing stats: %w", err)
	}

	fmt.Fprintln(w, titleStyle.Render("Fanfiction metadata"))
	fmt.Fprintf(w, "Stories:         %s\n", render.FormatNumber(basic.TotalStories))
	fmt.Fprintf(w, "Authors:         %s\n", render.FormatNumber(basic.UniqueAuthors))
	fmt.Fprintf(w, "Total words:     %s\n", render.FormatNumber(basic.TotalWords))
	fmt.Fprintf(w, "Words per story: %s\n", render.FormatNumber(basic.AvgWords))

	fandoms, err := store.TopFandoms(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing fandoms: %w", err)
	}
	printNameCounts(w, "Top fandoms", "Fandom", fandoms)

	authors, err := store.TopAuthors(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing authors: %w", err)
	}
	fmt.Fprintln(w, headerStyle.Render("Top authors"))
	if len(authors) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No data."))
	} else {
		t := newTable("#", "Author", "Stories", "Avg words", "Total words")
		for i, a := range authors {
			t.Row(strconv.Itoa(i+1), a.Name, render.FormatNumber(a.StoryCount),
				render.FormatNumber(a.AvgWords), render.FormatNumber(a.TotalWords))
		}
		fmt.Fprintln(w, t.Render())
	}

	distributions := []struct {
		heading, column string
		load            func(context.Context) ([]storage.NameCount, error)
	}{
		{"Languages", "Language", store.LanguageStats},
		{"Ratings", "Rating", store.RatingStats},
		{"Status", "Status", store.StatusStats},
	}
	for _, d := range distributions {
		buckets, err := d.load(ctx)
		if err != nil {
			return fmt.Errorf("listing %s: %w", d.column, err)
		}
		printNameCounts(w, d.heading, d.column, buckets)
	}
	return nil
}
