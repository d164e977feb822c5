package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rubiojr/fanfic/pkg/render"
	"github.com/rubiojr/fanfic/pkg/storage"
	"github.com/urfave/cli/v3"
)

// IndexesCommand creates the indexes command and its subcommands
func IndexesCommand() *cli.Command {
	return &cli.Command{
		Name:  "indexes",
		Usage: "Manage the search indexes of the metadata table",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create the search indexes and refresh table statistics",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Drop and rebuild indexes that already exist",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withAdmin(ctx, c, func(a *storage.Admin) error {
						return createIndexes(ctx, os.Stdout, a, c.Bool("force"))
					})
				},
			},
			{
				Name:  "remove",
				Usage: "Drop every index on the metadata table",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Do not ask for confirmation",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					if !c.Bool("yes") && !confirm(os.Stdin, os.Stdout, "Remove all indexes from the metadata table?") {
						fmt.Println("Aborted.")
						return nil
					}
					return withAdmin(ctx, c, func(a *storage.Admin) error {
						return removeIndexes(ctx, os.Stdout, a)
					})
				},
			},
			{
				Name:  "list",
				Usage: "List the indexes present in the database",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withAdmin(ctx, c, func(a *storage.Admin) error {
						return listIndexes(ctx, os.Stdout, a)
					})
				},
			},
		},
	}
}

func withAdmin(ctx context.Context, c *cli.Command, fn func(*storage.Admin) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	admin, err := openAdmin(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeWithWarning("database", admin)
	return fn(admin)
}

func createIndexes(ctx context.Context, w io.Writer, a *storage.Admin, force bool) error {
	fmt.Fprintln(w, titleStyle.Render("Creating indexes"))

	report, err := a.CreateIndexes(ctx, force)
	if err != nil && report == nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	t := newTable("Index", "Result")
	for _, c := range report.Created {
		t.Row(c.Name, "created in "+formatDuration(c.Duration))
	}
	for _, name := range report.Skipped {
		t.Row(name, "exists")
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("%d created, %d skipped, %d failed",
		len(report.Created), len(report.Skipped), len(report.Errors))))

	if err != nil {
		return fmt.Errorf("analyzing table: %w", err)
	}
	return report.Err()
}

func removeIndexes(ctx context.Context, w io.Writer, a *storage.Admin) error {
	report, err := a.RemoveIndexes(ctx)
	if err != nil {
		return fmt.Errorf("removing indexes: %w", err)
	}
	for _, name := range report.Removed {
		fmt.Fprintf(w, "removed %s\n", name)
	}
	fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("%d indexes removed", len(report.Removed))))
	return report.Err()
}

func listIndexes(ctx context.Context, w io.Writer, a *storage.Admin) error {
	info, err := a.IndexInfo(ctx)
	if err != nil {
		return fmt.Errorf("reading index info: %w", err)
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d indexes", len(info.Indexes))))
	if len(info.Indexes) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No indexes. Run `fanfic indexes create` to add them."))
	} else {
		t := newTable("Index", "Kind")
		for _, idx := range info.Indexes {
			t.Row(idx.Name, idx.Kind)
		}
		fmt.Fprintln(w, t.Render())
	}
	fmt.Fprintf(w, "Database size: %s\n", render.FormatBytes(info.DatabaseSize))
	return nil
}
