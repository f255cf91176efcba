package retrieve

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

type BrowserOptions struct {
	// Landmark is the selector whose appearance means the page has
	// rendered past the interactive challenge.
	Landmark string
	// UserAgent spoofed at the CDP level. Empty keeps Chrome's own.
	UserAgent string
	// LaunchTimeout bounds starting Chrome. Default: 30s.
	LaunchTimeout time.Duration
	// NavigateTimeout bounds navigation + load. Default: 30s.
	NavigateTimeout time.Duration
	// LandmarkTimeout bounds the wait for Landmark. Default: 20s.
	LandmarkTimeout time.Duration
	// OverallTimeout is a hard deadline on the whole session, covering
	// the stages between the staged timeouts (connect, page creation,
	// html capture). Default: the three stage budgets plus 15s slack.
	OverallTimeout time.Duration
	// ViewportWidth/Height fix the window size. Default: 1920x1080.
	ViewportWidth  int
	ViewportHeight int
}

func (o *BrowserOptions) defaults() {
	if o.LaunchTimeout <= 0 {
		o.LaunchTimeout = 30 * time.Second
	}
	if o.NavigateTimeout <= 0 {
		o.NavigateTimeout = 30 * time.Second
	}
	if o.LandmarkTimeout <= 0 {
		o.LandmarkTimeout = 20 * time.Second
	}
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = 1920
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = 1080
	}
	if o.OverallTimeout <= 0 {
		o.OverallTimeout = o.LaunchTimeout + o.NavigateTimeout + o.LandmarkTimeout + 15*time.Second
	}
}

// Browser renders the page in an isolated headless Chrome so the
// source's javascript bot check runs in a real engine. Each fetch
// launches its own instance and tears it down on every exit path.
type Browser struct {
	opts BrowserOptions
}

func NewBrowser(opts BrowserOptions) *Browser {
	opts.defaults()
	return &Browser{opts: opts}
}

func (b *Browser) Name() string {
	return "browser"
}

// sessionContext derives the hard deadline every stage of a fetch
// runs under. A CDP session that stalls between the staged timeouts
// must still end, or the single in-flight fetch would hang forever
// and take every joined caller with it.
func (b *Browser) sessionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.opts.OverallTimeout)
}

func (b *Browser) Fetch(ctx context.Context, url string) (out Outcome, err error) {
	ctx, span := tracer.Start(ctx, "Browser.Fetch")
	defer span.End()

	ctx, cancelAll := b.sessionContext(ctx)
	defer cancelAll()

	// rod panics on CDP failures unless told otherwise; convert every
	// one of them into a normal failure outcome
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{}
			err = fmt.Errorf("browser session panicked: %v", r)
		}
	}()

	launchCtx, cancelLaunch := context.WithTimeout(ctx, b.opts.LaunchTimeout)
	defer cancelLaunch()

	// sandboxing is disabled so the browser can run inside the
	// unprivileged containers this service deploys to
	l := launcher.New().
		Context(launchCtx).
		Headless(true).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-gpu")
	defer l.Cleanup()

	wsURL, err := l.Launch()
	if err != nil {
		return Outcome{}, fmt.Errorf("launch chrome: %w", err)
	}

	br := rod.New().ControlURL(wsURL).Context(ctx)
	if err := br.Connect(); err != nil {
		return Outcome{}, fmt.Errorf("connect chrome: %w", err)
	}
	defer br.Close()

	page, err := stealth.Page(br)
	if err != nil {
		return Outcome{}, fmt.Errorf("create stealth page: %w", err)
	}
	defer page.Close()

	if b.opts.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: b.opts.UserAgent,
		})
		if err != nil {
			return Outcome{}, fmt.Errorf("set user agent: %w", err)
		}
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.opts.ViewportWidth,
		Height:            b.opts.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("set viewport: %w", err)
	}

	navCtx, cancelNav := context.WithTimeout(ctx, b.opts.NavigateTimeout)
	defer cancelNav()
	if err := page.Context(navCtx).Navigate(url); err != nil {
		return Outcome{}, fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		return Outcome{}, fmt.Errorf("wait load: %w", err)
	}

	if b.opts.Landmark != "" {
		waitCtx, cancelWait := context.WithTimeout(ctx, b.opts.LandmarkTimeout)
		defer cancelWait()
		if _, err := page.Context(waitCtx).Element(b.opts.Landmark); err != nil {
			return Outcome{}, fmt.Errorf("landmark %q never appeared: %w", b.opts.Landmark, err)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return Outcome{}, fmt.Errorf("capture html: %w", err)
	}
	return Outcome{HTML: html}, nil
}
