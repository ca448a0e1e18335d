package probe

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/stupside/veil/internal/inpage"
	"github.com/stupside/veil/internal/noise"
	"github.com/stupside/veil/internal/platform"
	"github.com/stupside/veil/internal/shield"
)

// Embedded hosts.
const (
	// HostBare runs the page without protection.
	HostBare = "bare"
	// HostShield protects the page with the Go interceptor.
	HostShield = "shield"
	// HostScript protects the page with the rendered in-page script.
	HostScript = "script"
)

// Hosts lists every embedded host.
var Hosts = []string{HostBare, HostShield, HostScript}

// ErrUnknownHost is returned for a host name outside Hosts.
var ErrUnknownHost = errors.New("unknown host")

// Embedded returns a software page for one session, protected according to
// host with seed.
func Embedded(host string, seed noise.Seed, opts platform.Options, logger *slog.Logger) (*platform.Page, error) {
	if logger == nil {
		logger = slog.Default()
	}

	p, err := platform.New(opts)
	if err != nil {
		return nil, err
	}

	switch host {
	case HostBare:
	case HostShield:
		if _, err := shield.NewSession(seed, shield.WithLogger(logger)).Install(p.VM()); err != nil {
			return nil, fmt.Errorf("installing shield: %w", err)
		}
	case HostScript:
		if err := bridgeConsole(p.VM(), logger); err != nil {
			return nil, err
		}
		if _, err := p.Run(inpage.Render(seed)); err != nil {
			return nil, fmt.Errorf("evaluating script: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHost, host)
	}
	return p, nil
}

// bridgeConsole routes console.debug output to logger.
func bridgeConsole(vm *goja.Runtime, logger *slog.Logger) error {
	console := vm.NewObject()
	err := console.Set("debug", func(call goja.FunctionCall) goja.Value {
		logger.Debug("page console", "message", call.Argument(0).String())
		return goja.Undefined()
	})
	if err != nil {
		return err
	}
	return vm.Set("console", console)
}
