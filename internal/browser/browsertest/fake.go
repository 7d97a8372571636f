// Package browsertest provides a scripted in-memory browser for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-linkedin-scraper/internal/browser"
)

// Step is one scripted response to Open.
type Step struct {
	Snapshot *browser.Snapshot
	Err      error
	Delay    time.Duration
}

// Page answers with a loaded job page whose content marker matched.
func Page(url, html string) Step {
	return Step{Snapshot: &browser.Snapshot{
		RequestedURL: url,
		FinalURL:     url,
		HTML:         html,
		Marker:       browser.MarkerContent,
	}}
}

// Rendered answers with html and the marker a live page would resolve for wait.
func Rendered(url, html string, wait browser.WaitSpec) Step {
	return Step{Snapshot: &browser.Snapshot{
		RequestedURL: url,
		FinalURL:     url,
		HTML:         html,
		Marker:       browser.DetectMarker(html, wait),
	}}
}

// LoginWall answers with an authentication prompt in place of the posting.
func LoginWall(url string) Step {
	return Step{Snapshot: &browser.Snapshot{
		RequestedURL: url,
		FinalURL:     url,
		HTML:         `<html><body><form class="login__form"><input id="session_key"></form></body></html>`,
		Marker:       browser.MarkerLogin,
	}}
}

// Timeout answers like a page whose markers never appeared.
func Timeout(url string) Step {
	return Step{
		Snapshot: &browser.Snapshot{RequestedURL: url, FinalURL: url},
		Err:      fmt.Errorf("%w: wait for content", browser.ErrTimeout),
	}
}

// NavFailure answers with a generic navigation error.
func NavFailure(reason string) Step {
	return Step{Err: errors.New(reason)}
}

// Browser replays scripted steps per URL. The last step of a script repeats.
type Browser struct {
	mu sync.Mutex

	script map[string][]Step
	calls  map[string]int

	NewContextErr error
	RecordErr     error
	RecordState   []byte

	contexts     []*Context
	statePaths   []string
	closed       bool
	launchOpts   []browser.LaunchOptions
	recordedURLs []string
}

func New() *Browser {
	return &Browser{
		script: make(map[string][]Step),
		calls:  make(map[string]int),
	}
}

// On scripts the responses for url, consumed one per Open call.
func (b *Browser) On(url string, steps ...Step) *Browser {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.script[url] = append(b.script[url], steps...)
	return b
}

// Launcher returns a LaunchFunc handing out this browser, or failing with err.
func (b *Browser) Launcher(err error) browser.LaunchFunc {
	return func(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
		b.mu.Lock()
		b.launchOpts = append(b.launchOpts, opts)
		b.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

func (b *Browser) NewContext(opts browser.ContextOptions) (browser.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.NewContextErr != nil {
		return nil, b.NewContextErr
	}
	c := &Context{b: b, StorageStatePath: opts.StorageStatePath}
	b.contexts = append(b.contexts, c)
	b.statePaths = append(b.statePaths, opts.StorageStatePath)
	return c, nil
}

func (b *Browser) RecordSession(ctx context.Context, startURL, statePath string) error {
	b.mu.Lock()
	b.recordedURLs = append(b.recordedURLs, startURL)
	state := b.RecordState
	recordErr := b.RecordErr
	b.mu.Unlock()

	if recordErr != nil {
		return recordErr
	}
	if state == nil {
		state = []byte(`{"cookies":[{"name":"li_at","value":"token","domain":".linkedin.com","path":"/","expires":-1,"httpOnly":true,"secure":true}],"origins":[]}`)
	}
	return writeFile(statePath, state)
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Calls reports how many times url was opened.
func (b *Browser) Calls(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[url]
}

func (b *Browser) Contexts() []*Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Context(nil), b.contexts...)
}

func (b *Browser) StatePaths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.statePaths...)
}

func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Browser) LaunchOptions() []browser.LaunchOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]browser.LaunchOptions(nil), b.launchOpts...)
}

func (b *Browser) RecordedURLs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.recordedURLs...)
}

func (b *Browser) next(url string) (Step, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	steps, ok := b.script[url]
	n := b.calls[url]
	b.calls[url] = n + 1
	if !ok || len(steps) == 0 {
		return Step{}, false
	}
	if n >= len(steps) {
		n = len(steps) - 1
	}
	return steps[n], true
}

// Context is a fake browser context; it records the URLs it opened.
type Context struct {
	b                *Browser
	StorageStatePath string

	mu     sync.Mutex
	opened []string
	closed bool
}

func (c *Context) Open(ctx context.Context, url string, wait browser.WaitSpec, timeout time.Duration) (*browser.Snapshot, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("context closed")
	}
	c.opened = append(c.opened, url)
	c.mu.Unlock()

	step, ok := c.b.next(url)
	if !ok {
		return nil, fmt.Errorf("no route for %s", url)
	}
	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if step.Snapshot == nil {
		return nil, step.Err
	}
	snap := *step.Snapshot
	return &snap, step.Err
}

func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Context) Opened() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.opened...)
}

func (c *Context) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
