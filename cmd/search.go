package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/rubiojr/fanfic/pkg/storage"
	"github.com/urfave/cli/v3"
)

// searchFlags maps command line flags to the query parameters understood by
// storage.ParseSearchFilter, so the terminal and the web share one parser.
var searchFlags = []struct {
	flag, param, usage string
}{
	{"title", "title", "Title contains (case-insensitive)"},
	{"author", "author", "Author contains (case-insensitive)"},
	{"category", "category", "Fandom equals"},
	{"genre", "genre", "Genre equals"},
	{"language", "language", "Language equals"},
	{"status", "status", "Status equals"},
	{"rating", "rating", "Rating equals"},
	{"sort", "sort", "Sort key: updated, published, words, chapters, title, author"},
	{"order", "order", "Sort order: asc or desc"},
}

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	flags := []cli.Flag{}
	for _, f := range searchFlags {
		flags = append(flags, &cli.StringFlag{Name: f.flag, Usage: f.usage})
	}
	flags = append(flags,
		&cli.IntFlag{Name: "min-words", Usage: "Minimum word count (inclusive)"},
		&cli.IntFlag{Name: "max-words", Usage: "Maximum word count (inclusive)"},
		&cli.IntFlag{Name: "page", Usage: "Page number", Value: 1},
		&cli.IntFlag{Name: "page-size", Usage: "Results per page", Value: storage.DefaultPageSize},
		&cli.Int64Flag{Name: "id", Usage: "Show a single story by id"},
		&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"},
	)

	return &cli.Command{
		Name:  "search",
		Usage: "Search story metadata",
		Flags: flags,
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

			if c.IsSet("id") {
				return showStory(ctx, os.Stdout, store, c.Int64("id"), c.Bool("json"))
			}
			return searchStories(ctx, os.Stdout, store, searchValues(c), c.Bool("json"))
		},
	}
}

// searchValues collects the set flags as query parameters.
func searchValues(c *cli.Command) url.Values {
	values := url.Values{}
	for _, f := range searchFlags {
		if c.IsSet(f.flag) {
			values.Set(f.param, c.String(f.flag))
		}
	}
	if c.IsSet("min-words") {
		values.Set("min_words", strconv.Itoa(c.Int("min-words")))
	}
	if c.IsSet("max-words") {
		values.Set("max_words", strconv.Itoa(c.Int("max-words")))
	}
	values.Set("page", strconv.Itoa(c.Int("page")))
	values.Set("page_size", strconv.Itoa(c.Int("page-size")))
	return values
}

func searchStories(ctx context.Context, w io.Writer, store *storage.Store, values url.Values, asJSON bool) error {
	results, err := store.Search(ctx, storage.ParseSearchFilter(values))
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printStories(w, results)
	return nil
}

func showStory(ctx context.Context, w io.Writer, store *storage.Store, id int64, asJSON bool) error {
	story, found, err := store.GetStory(ctx, id)
	if err != nil {
		return fmt.Errorf("loading story %d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("story %d not found", id)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(story)
	}
	printStory(w, story)
	return nil
}
