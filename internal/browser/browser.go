// Package browser opens real Chrome pages with a script registered to run
// before any page script. Two CDP drivers are available: chromedp and rod.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stupside/veil/internal/app"
)

// ErrUnknownDriver is returned by New for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown browser driver")

// Page is a browser tab owned by the caller. Closing it tears down the
// browser process it was opened in.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// Evaluate runs a JS expression, awaits it if it is a promise and
	// decodes its JSON value into out.
	Evaluate(ctx context.Context, expr string, out any) error
	Close() error
}

// Driver launches browsers.
type Driver interface {
	// Open starts a fresh browser and returns a blank page on which script
	// runs before every document.
	Open(ctx context.Context, script string) (Page, error)
	Name() string
}

// New returns the driver selected by cfg.Driver.
func New(cfg app.BrowserConfig, logger *slog.Logger) (Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case app.DriverChromedp:
		return &chromedpDriver{cfg: cfg, logger: logger}, nil
	case app.DriverRod:
		return &rodDriver{cfg: cfg, logger: logger}, nil
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Driver, ErrUnknownDriver)
	}
}
