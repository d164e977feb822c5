package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/fanfic/pkg/mirror"
	"github.com/urfave/cli/v3"
)

// MirrorCommand creates the mirror command
func MirrorCommand() *cli.Command {
	return &cli.Command{
		Name:  "mirror",
		Usage: "Copy the database from the mirror source to the local path",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "source",
				Usage: "Source database (overrides mirror.source)",
			},
			&cli.StringFlag{
				Name:  "destination",
				Usage: "Local copy (overrides mirror.destination)",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep running and re-sync whenever the source changes",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			source, destination := cfg.Mirror.Source, cfg.Mirror.Destination
			if c.IsSet("source") {
				source = c.String("source")
			}
			if c.IsSet("destination") {
				destination = c.String("destination")
			}
			if destination == "" {
				destination = cfg.DatabasePath
			}
			if source == "" {
				return fmt.Errorf("no mirror source configured")
			}

			m := mirror.New(source, destination)
			copied, err := m.Sync()
			if err != nil {
				return err
			}
			if !copied {
				fmt.Printf("%s is up to date\n", destination)
			}

			if c.Bool("watch") || cfg.Mirror.Watch {
				return m.Watch(ctx, nil)
			}
			return nil
		},
	}
}
