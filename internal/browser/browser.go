// Browser capability used by the scraper.
// Any automation backend can sit behind these interfaces; playwright is the default one.

package browser

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrTimeout marks navigation or marker waits that ran out of time.
var ErrTimeout = errors.New("browser: timeout")

// Marker tells which of the awaited selectors showed up on the page.
type Marker string

const (
	MarkerNone    Marker = ""
	MarkerContent Marker = "content"
	MarkerLogin   Marker = "login"
)

// WaitSpec lists the selectors Open waits for after navigation.
type WaitSpec struct {
	//Content selectors signal the job posting rendered
	Content []string
	//Login selectors signal an authentication prompt instead of the posting
	Login []string
	//Expand buttons ("Show more") are clicked once content is present
	Expand []string
}

// Snapshot is the rendered DOM of one page, taken right after the markers resolved.
type Snapshot struct {
	RequestedURL string
	FinalURL     string
	Title        string
	HTML         string
	Marker       Marker
}

// Context is one isolated browser session (cookies, storage). Not shared between goroutines.
type Context interface {
	// Open navigates a fresh tab to url and returns its DOM snapshot.
	// Errors wrapping ErrTimeout mean the page or markers did not show up in time;
	// a partial snapshot (final URL, title) may accompany them.
	Open(ctx context.Context, url string, wait WaitSpec, timeout time.Duration) (*Snapshot, error)
	Close() error
}

type ContextOptions struct {
	//StorageStatePath preloads cookies/localStorage; empty means anonymous
	StorageStatePath string
}

// Browser is one launched browser process.
type Browser interface {
	NewContext(opts ContextOptions) (Context, error)
	// RecordSession opens startURL in a visible tab and keeps writing the session
	// storage state to statePath until the user closes the tab or ctx ends.
	RecordSession(ctx context.Context, startURL, statePath string) error
	Close() error
}

type LaunchOptions struct {
	Headless      bool
	ScreenshotDir string
	Logger        *slog.Logger
}

// LaunchFunc starts a browser. Injected so tests can substitute a fake backend.
type LaunchFunc func(ctx context.Context, opts LaunchOptions) (Browser, error)
