package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/stupside/veil/internal/app"
	"github.com/stupside/veil/internal/noise"
	"github.com/stupside/veil/internal/platform"
	"github.com/stupside/veil/internal/probe"
)

func auditCommand() *cli.Command {
	var host string

	return &cli.Command{
		Name:  "audit",
		Usage: "Probe protected sessions on the embedded software page",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "host",
				Usage:       "Protection to audit: " + strings.Join(probe.Hosts, ", "),
				Value:       probe.HostShield,
				Destination: &host,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			open := func(ctx context.Context, session int) (probe.Evaluator, func() error, error) {
				seed := noise.NewSeed()
				logger := slog.Default().With("session", session)
				logger.DebugContext(ctx, "opening embedded page", "host", host, "seed", uint32(seed))

				p, err := probe.Embedded(host, seed, platform.DefaultOptions(), logger)
				if err != nil {
					return nil, nil, err
				}
				return p, func() error { return nil }, nil
			}

			return report(ctx, cfg.Probe, open)
		},
	}
}

// report probes the configured sessions and logs the verdict. It fails when
// any available surface is trackable.
func report(ctx context.Context, cfg app.ProbeConfig, open probe.Opener) error {
	results, err := probe.Sessions(ctx, open, cfg.Sessions, cfg.ReadsPerSession, cfg.Concurrency)
	if err != nil {
		return fmt.Errorf("probing sessions: %w", err)
	}

	rep := probe.Assess(results)
	rep.Log(ctx, slog.Default())
	if !rep.OK() {
		return fmt.Errorf("fingerprint is trackable: failing surfaces %v, native %t, navigator %t",
			rep.Failing(), rep.Native, rep.Navigator)
	}
	return nil
}
