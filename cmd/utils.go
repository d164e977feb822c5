package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rubiojr/fanfic/pkg/config"
	"github.com/rubiojr/fanfic/pkg/log"
	"github.com/rubiojr/fanfic/pkg/storage"
	"github.com/urfave/cli/v3"
)

var logger = log.ForService("cmd")

// loadConfig reads the configuration named by the global --config flag and
// applies the global --debug flag.
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	log.SetGlobalDebug(cfg.Debug)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured database read-only.
func openStore(ctx context.Context, cfg *config.Config) (*storage.Store, error) {
	store, err := storage.Open(ctx, cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.StorePath(), err)
	}
	return store, nil
}

// openAdmin opens the configured database for index maintenance.
func openAdmin(ctx context.Context, cfg *config.Config) (*storage.Admin, error) {
	admin, err := storage.OpenAdmin(ctx, cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.StorePath(), err)
	}
	return admin, nil
}

func closeWithWarning(name string, closer io.Closer) {
	if err := closer.Close(); err != nil {
		logger.Warnf("failed to close %s: %v", name, err)
	}
}

// confirm asks a yes/no question on out and reads the answer from in.
// Anything but "y" or "yes" is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
