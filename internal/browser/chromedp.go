package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/stupside/veil/internal/app"
)

type chromedpDriver struct {
	cfg    app.BrowserConfig
	logger *slog.Logger
}

func (d *chromedpDriver) Name() string {
	return app.DriverChromedp
}

func (d *chromedpDriver) Open(ctx context.Context, script string) (Page, error) {
	profile := NewProfile()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOpts(d.cfg, profile)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	err := runWithin(ctx, tabCtx, d.cfg.Timeout,
		runtime.Enable(),
		injectScript(script),
		injectOverrides(profile),
	)
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("preparing tab: %w", err)
	}

	d.logger.DebugContext(ctx, "browser opened", "driver", d.Name(), "user_agent", profile.UserAgent)
	return &chromedpPage{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		timeout:     d.cfg.Timeout,
	}, nil
}

type chromedpPage struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
}

func (p *chromedpPage) Navigate(ctx context.Context, url string) error {
	if err := runWithin(ctx, p.ctx, p.timeout, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (p *chromedpPage) Evaluate(ctx context.Context, expr string, out any) error {
	awaitPromise := func(params *runtime.EvaluateParams) *runtime.EvaluateParams {
		return params.WithAwaitPromise(true)
	}
	if err := runWithin(ctx, p.ctx, p.timeout, chromedp.Evaluate(expr, out, awaitPromise)); err != nil {
		return fmt.Errorf("evaluating script: %w", err)
	}
	return nil
}

func (p *chromedpPage) Close() error {
	p.cancel()
	p.allocCancel()
	return nil
}

// runWithin runs actions on the tab context until they finish, the
// timeout elapses or ctx is done. A child context cannot be used here:
// cancelling a child of the chromedp task context breaks the target in
// chromedp v0.14.
func runWithin(ctx, tabCtx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(tabCtx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// allocatorOpts returns chromedp exec-allocator options that avoid common
// headless-detection flags.
func allocatorOpts(cfg app.BrowserConfig, profile *Profile) []chromedp.ExecAllocatorOption {
	var headlessVal string
	if cfg.Headless {
		headlessVal = "new"
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,

		chromedp.Flag("headless", headlessVal),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),

		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("webrtc-ip-handling-policy", "disable_non_proxied_udp"),

		chromedp.WindowSize(profile.ScreenWidth, profile.ScreenHeight),
		chromedp.UserAgent(profile.UserAgent),
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	return opts
}

// injectScript registers script to run before any page script in every
// document the tab loads.
func injectScript(script string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
		return err
	}
}

// injectOverrides masks automation signals at the CDP level and keeps the
// user agent, Client Hints and hardware concurrency consistent with the
// in-page values.
func injectOverrides(profile *Profile) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := emulation.SetAutomationOverride(false).Do(ctx); err != nil {
			return err
		}

		if err := emulation.SetHardwareConcurrencyOverride(profile.HardwareConcurrency).Do(ctx); err != nil {
			return err
		}

		if err := emulation.SetTimezoneOverride(profile.TimezoneID).Do(ctx); err != nil {
			return err
		}

		if err := emulation.SetLocaleOverride().WithLocale(profile.Languages[0]).Do(ctx); err != nil {
			return err
		}

		ua := emulation.SetUserAgentOverride(profile.UserAgent)
		ua.AcceptLanguage = profile.AcceptLanguage
		ua.Platform = profile.NavigatorPlatform

		ua.UserAgentMetadata = &emulation.UserAgentMetadata{
			Brands:          brandList(profile.Brands),
			FullVersionList: brandList(profile.FullVersionList),
			Platform:        profile.Platform,
			PlatformVersion: profile.PlatformVersion,
			Architecture:    profile.Architecture,
			Bitness:         profile.Bitness,
		}
		return ua.Do(ctx)
	}
}

func brandList(pairs [][2]string) []*emulation.UserAgentBrandVersion {
	out := make([]*emulation.UserAgentBrandVersion, len(pairs))
	for i, b := range pairs {
		out[i] = &emulation.UserAgentBrandVersion{Brand: b[0], Version: b[1]}
	}
	return out
}
