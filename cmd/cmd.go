package cmd

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/stupside/veil/internal/app"
	"github.com/stupside/veil/internal/version"
)

// Root returns the root CLI command.
func Root() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "veil",
		Usage:   "Deterministic per-session noise against browser fingerprinting",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to configuration file",
				Value:       "config.yaml",
				Destination: &configPath,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := loadConfig(cmd, configPath)
			if err != nil {
				return ctx, err
			}
			cmd.Metadata["config"] = cfg
			return ctx, nil
		},
		Commands: []*cli.Command{
			scriptCommand(),
			auditCommand(),
			probeCommand(),
			{
				Name:  "info",
				Usage: "Print build information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					slog.Info("build",
						"version", version.Version,
						"commit", version.Commit,
						"build_time", version.BuildTime,
					)
					return nil
				},
			},
		},
		Metadata: map[string]any{},
	}
}

// loadConfig loads path, falling back to defaults when the default file is
// absent. An explicitly given file must exist.
func loadConfig(cmd *cli.Command, path string) (*app.Config, error) {
	if !cmd.IsSet("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no config file, using defaults", "path", path)
			return app.Default(), nil
		}
	}
	return app.Load(path)
}
