package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/veil/internal/app"
	"github.com/stupside/veil/internal/browser"
	"github.com/stupside/veil/internal/inpage"
	"github.com/stupside/veil/internal/noise"
	"github.com/stupside/veil/internal/probe"
)

func probeCommand() *cli.Command {
	var (
		driver string
		url    string
	)

	return &cli.Command{
		Name:  "probe",
		Usage: "Probe protected sessions in a real Chrome",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "driver",
				Usage:       "Browser driver: chromedp or rod (overrides config)",
				Destination: &driver,
			},
			&cli.StringFlag{
				Name:        "url",
				Usage:       "Page to probe (overrides config)",
				Destination: &url,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}
			if driver != "" {
				cfg.Browser.Driver = driver
			}
			if url != "" {
				cfg.Probe.URL = url
			}
			if err := app.Validate(cfg); err != nil {
				return err
			}

			d, err := browser.New(cfg.Browser, slog.Default())
			if err != nil {
				return err
			}

			open := func(ctx context.Context, session int) (probe.Evaluator, func() error, error) {
				seed := noise.NewSeed()
				slog.DebugContext(ctx, "opening browser", "session", session, "driver", d.Name(), "seed", uint32(seed))

				page, err := d.Open(ctx, inpage.Render(seed))
				if err != nil {
					return nil, nil, err
				}
				if err := page.Navigate(ctx, cfg.Probe.URL); err != nil {
					return nil, nil, errors.Join(err, page.Close())
				}
				return page, page.Close, nil
			}

			return report(ctx, cfg.Probe, open)
		},
	}
}
