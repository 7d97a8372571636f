package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// snapshotEvery is how often RecordSession persists the storage state while the user is logging in.
const snapshotEvery = 5 * time.Second

var launchArgs = []string{
	"--no-first-run",
	"--no-default-browser-check",
	"--disable-session-crashed-bubble",
}

type PlaywrightManager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	log     *slog.Logger
	shots   *ScreenshotDebugger
}

// Launch is the LaunchFunc backed by playwright's bundled Chromium.
func Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	pm, err := NewPlaywright(ctx, opts)
	if err != nil {
		return nil, err
	}
	return pm, nil
}

func NewPlaywright(ctx context.Context, opts LaunchOptions) (*PlaywrightManager, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless:          playwright.Bool(opts.Headless),
		Args:              launchArgs,
		IgnoreDefaultArgs: []string{"--enable-automation"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch chromium: %w", err)
	}

	pm := &PlaywrightManager{
		pw:      pw,
		browser: b,
		log:     log,
	}
	if opts.ScreenshotDir != "" {
		pm.shots = NewScreenshotDebugger(opts.ScreenshotDir, log)
	}
	log.Debug("Browser launched", slog.Bool("headless", opts.Headless))
	return pm, nil
}

func (pm *PlaywrightManager) NewContext(opts ContextOptions) (Context, error) {
	ctxOpts := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(defaultUserAgent),
		Locale:    playwright.String("en-US"),
		Viewport:  &playwright.Size{Width: 1366, Height: 900},
	}
	if opts.StorageStatePath != "" {
		ctxOpts.StorageStatePath = playwright.String(opts.StorageStatePath)
	}

	bctx, err := pm.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}
	return &pwContext{bctx: bctx, log: pm.log, shots: pm.shots}, nil
}

func (pm *PlaywrightManager) RecordSession(ctx context.Context, startURL, statePath string) error {
	bctx, err := pm.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(defaultUserAgent),
		Locale:    playwright.String("en-US"),
	})
	if err != nil {
		return fmt.Errorf("could not create browser context: %w", err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return fmt.Errorf("could not create page: %w", err)
	}

	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }
	page.OnClose(func(playwright.Page) { finish() })
	pm.browser.OnDisconnected(func(playwright.Browser) { finish() })

	if _, err := page.Goto(startURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(60000),
	}); err != nil {
		return fmt.Errorf("could not open %s: %w", startURL, err)
	}
	pm.log.Info("🔐 Log in inside the browser window, then close it to save the session")

	save := func() error {
		state, err := bctx.StorageState()
		if err != nil {
			return err
		}
		return WriteStorageState(statePath, state)
	}

	ticker := time.NewTicker(snapshotEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := save(); err != nil {
				pm.log.Debug("Session snapshot skipped", slog.String("error", err.Error()))
			}
		case <-done:
			//the context survives a closed tab, so a final snapshot is usually possible;
			//if the whole browser went away the last periodic snapshot stands
			if err := save(); err != nil {
				pm.log.Debug("Final session snapshot skipped", slog.String("error", err.Error()))
			}
			return nil
		case <-ctx.Done():
			if err := save(); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			return ctx.Err()
		}
	}
}

func (pm *PlaywrightManager) Close() error {
	var errs []error
	if pm.browser != nil {
		if err := pm.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if pm.pw != nil {
		if err := pm.pw.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type pwContext struct {
	bctx  playwright.BrowserContext
	log   *slog.Logger
	shots *ScreenshotDebugger
}

func (c *pwContext) Open(ctx context.Context, url string, wait WaitSpec, timeout time.Duration) (*Snapshot, error) {
	deadline := time.Now().Add(timeout)

	page, err := c.bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	defer page.Close()

	//closing the tab unblocks any pending playwright call
	stop := context.AfterFunc(ctx, func() { page.Close() })
	defer stop()

	snap := &Snapshot{RequestedURL: url}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(remainingMs(deadline)),
	}); err != nil {
		snap.FinalURL = page.URL()
		return snap, classify(ctx, "goto", err)
	}

	dismissPopups(page)

	markers := append(append([]string{}, wait.Content...), wait.Login...)
	if len(markers) > 0 {
		_, err := page.WaitForSelector(strings.Join(markers, ", "), playwright.PageWaitForSelectorOptions{
			State:   playwright.WaitForSelectorStateAttached,
			Timeout: playwright.Float(remainingMs(deadline)),
		})
		if err != nil {
			snap.FinalURL = page.URL()
			snap.Title, _ = page.Title()
			c.capture(page, "marker-timeout")
			return snap, classify(ctx, "wait for content", err)
		}
	}

	snap.Marker = matchMarker(page, wait)
	if snap.Marker == MarkerContent {
		expand(page, wait.Expand)
		Settle(page)
	} else if snap.Marker == MarkerLogin {
		c.capture(page, "login-wall")
	}

	snap.FinalURL = page.URL()
	snap.Title, _ = page.Title()
	html, err := page.Content()
	if err != nil {
		return snap, classify(ctx, "read content", err)
	}
	snap.HTML = html
	return snap, nil
}

func (c *pwContext) Close() error {
	return c.bctx.Close()
}

func (c *pwContext) capture(page playwright.Page, name string) {
	if c.shots == nil {
		return
	}
	_ = c.shots.CaptureAndLog(page, name, "Captured page state for "+page.URL())
}

func matchMarker(page playwright.Page, wait WaitSpec) Marker {
	return pickMarker(wait, func(selector string) int {
		n, _ := page.Locator(selector).Count()
		return n
	})
}

// dismissPopups closes the sign-in modal first; it blocks the cookie banner otherwise.
func dismissPopups(page playwright.Page) {
	_ = page.Keyboard().Press("Escape")
	for _, sel := range []string{`button:has-text("Accept")`, `button:has-text("Accepteren")`} {
		btn := page.Locator(sel).First()
		if visible, _ := btn.IsVisible(); visible {
			_ = btn.Click(playwright.LocatorClickOptions{
				Force:   playwright.Bool(true),
				Timeout: playwright.Float(1000),
			})
			return
		}
	}
}

func expand(page playwright.Page, selectors []string) {
	for _, sel := range selectors {
		btn := page.Locator(sel).First()
		if visible, _ := btn.IsVisible(); !visible {
			continue
		}
		if err := btn.Click(playwright.LocatorClickOptions{
			Force:   playwright.Bool(true),
			Timeout: playwright.Float(1000),
		}); err == nil {
			time.Sleep(300 * time.Millisecond)
			return
		}
	}
}

func classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, playwright.ErrTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func remainingMs(deadline time.Time) float64 {
	left := time.Until(deadline)
	if left < 100*time.Millisecond {
		left = 100 * time.Millisecond
	}
	return float64(left.Milliseconds())
}
