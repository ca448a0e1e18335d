package probe

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Opener opens the page for one session. The returned function releases it.
type Opener func(ctx context.Context, session int) (Evaluator, func() error, error)

// Sessions probes n independent sessions, at most limit at a time, reading
// each one reads times. Every session must succeed.
func Sessions(ctx context.Context, open Opener, n, reads, limit int) ([][]Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	results := make([][]Result, n)

	for i := range n {
		g.Go(func() (err error) {
			page, release, err := open(ctx, i)
			if err != nil {
				return fmt.Errorf("session %d: opening page: %w", i, err)
			}
			defer func() {
				err = errors.Join(err, release())
			}()

			got, err := Collect(ctx, page, reads)
			if err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			results[i] = got
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
