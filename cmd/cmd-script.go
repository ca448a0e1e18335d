package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/stupside/veil/internal/inpage"
	"github.com/stupside/veil/internal/noise"
)

func scriptCommand() *cli.Command {
	var (
		seed    uint64
		outPath string
	)

	return &cli.Command{
		Name:  "script",
		Usage: "Print the in-page protection script for one session",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:        "seed",
				Usage:       "Session seed in 1..4294967295 (random when unset)",
				Destination: &seed,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "Write the script to a file instead of stdout",
				Destination: &outPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s := noise.NewSeed()
			if cmd.IsSet("seed") {
				var err error
				if s, err = parseSeed(seed); err != nil {
					return err
				}
			}

			script := inpage.Render(s)
			if outPath == "" {
				fmt.Print(script)
				return nil
			}

			if err := os.WriteFile(outPath, []byte(script), 0o644); err != nil {
				return fmt.Errorf("writing script: %w", err)
			}
			slog.Info("script written", "path", outPath, "seed", uint32(s), "bytes", len(script))
			return nil
		},
	}
}

// parseSeed accepts a non-zero 32-bit seed.
func parseSeed(v uint64) (noise.Seed, error) {
	if v == 0 || v > math.MaxUint32 {
		return 0, fmt.Errorf("seed must be in 1..%d, got %d", uint64(math.MaxUint32), v)
	}
	return noise.Seed(v), nil
}
