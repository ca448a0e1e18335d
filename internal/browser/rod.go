package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/stupside/veil/internal/app"
)

type rodDriver struct {
	cfg    app.BrowserConfig
	logger *slog.Logger
}

func (d *rodDriver) Name() string {
	return app.DriverRod
}

func (d *rodDriver) Open(ctx context.Context, script string) (Page, error) {
	profile := NewProfile()

	l := launcher.New().
		Context(ctx).
		Headless(d.cfg.Headless).
		NoSandbox(d.cfg.NoSandbox).
		Set("disable-blink-features", "AutomationControlled").
		Set("webrtc-ip-handling-policy", "disable_non_proxied_udp").
		Set("window-size", fmt.Sprintf("%d,%d", profile.ScreenWidth, profile.ScreenHeight))
	if d.cfg.ChromePath != "" {
		l = l.Bin(d.cfg.ChromePath)
	}

	wsURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching chrome: %w", err)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to chrome: %w", err)
	}

	p, err := stealth.Page(b)
	if err != nil {
		return nil, closeRod(b, l, fmt.Errorf("creating stealth page: %w", err))
	}

	if _, err := p.EvalOnNewDocument(script); err != nil {
		return nil, closeRod(b, l, fmt.Errorf("registering script: %w", err))
	}

	if err := overrideRod(p, profile); err != nil {
		return nil, closeRod(b, l, err)
	}

	d.logger.DebugContext(ctx, "browser opened", "driver", d.Name(), "user_agent", profile.UserAgent)
	return &rodPage{page: p, browser: b, launcher: l, timeout: d.cfg.Timeout}, nil
}

// overrideRod applies the same CDP-level identity as the chromedp driver.
func overrideRod(p *rod.Page, profile *Profile) error {
	brands := func(pairs [][2]string) []*proto.EmulationUserAgentBrandVersion {
		out := make([]*proto.EmulationUserAgentBrandVersion, len(pairs))
		for i, b := range pairs {
			out[i] = &proto.EmulationUserAgentBrandVersion{Brand: b[0], Version: b[1]}
		}
		return out
	}

	err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      profile.UserAgent,
		AcceptLanguage: profile.AcceptLanguage,
		Platform:       profile.NavigatorPlatform,
		UserAgentMetadata: &proto.EmulationUserAgentMetadata{
			Brands:          brands(profile.Brands),
			FullVersionList: brands(profile.FullVersionList),
			Platform:        profile.Platform,
			PlatformVersion: profile.PlatformVersion,
			Architecture:    profile.Architecture,
			Bitness:         profile.Bitness,
		},
	})
	if err != nil {
		return fmt.Errorf("overriding user agent: %w", err)
	}

	err = proto.EmulationSetHardwareConcurrencyOverride{
		HardwareConcurrency: int(profile.HardwareConcurrency),
	}.Call(p)
	if err != nil {
		return fmt.Errorf("overriding hardware concurrency: %w", err)
	}

	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: profile.TimezoneID}).Call(p); err != nil {
		return fmt.Errorf("overriding timezone: %w", err)
	}
	return nil
}

type rodPage struct {
	page     *rod.Page
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx).Timeout(p.timeout)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("waiting for %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) Evaluate(ctx context.Context, expr string, out any) error {
	res, err := p.page.Context(ctx).Timeout(p.timeout).Eval("() => (" + expr + ")")
	if err != nil {
		return fmt.Errorf("evaluating script: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := res.Value.Unmarshal(out); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}

func (p *rodPage) Close() error {
	return closeRod(p.browser, p.launcher, nil)
}

func closeRod(b *rod.Browser, l *launcher.Launcher, cause error) error {
	err := b.Close()
	l.Kill()
	return errors.Join(cause, err)
}
