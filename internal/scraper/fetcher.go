package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go-linkedin-scraper/internal/browser"
)

// Outcome is the classification of one fetch.
type Outcome int

const (
	Loaded Outcome = iota
	LoginWall
	Timeout
	NavigationError
)

func (o Outcome) String() string {
	switch o {
	case Loaded:
		return "loaded"
	case LoginWall:
		return "login_wall"
	case Timeout:
		return "timeout"
	default:
		return "navigation_error"
	}
}

// FetchResult carries exactly one outcome; Snapshot is set only when Loaded.
type FetchResult struct {
	Outcome  Outcome
	Snapshot *browser.Snapshot
	Reason   string
}

// Err converts a non-loaded outcome into the per-URL error recorded by the batch.
func (r FetchResult) Err(rawURL string) error {
	switch r.Outcome {
	case Loaded:
		return nil
	case LoginWall:
		return NewError(KindAuthRequired, rawURL, ErrLoginWall)
	case Timeout:
		return NewError(KindTimeout, rawURL, errors.New(r.Reason))
	default:
		if r.Reason == ErrListingUnavailable.Error() {
			return NewError(KindNavigation, rawURL, ErrListingUnavailable)
		}
		return NewError(KindNavigation, rawURL, errors.New(r.Reason))
	}
}

type Fetcher struct {
	site Site
	log  *slog.Logger
}

func NewFetcher(site Site, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{site: site, log: log}
}

// Fetch navigates bctx to rawURL and classifies what came back.
// It never mutates session state; the only side effect is browser network activity.
func (f *Fetcher) Fetch(ctx context.Context, bctx browser.Context, rawURL string, timeout time.Duration) FetchResult {
	openCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	snap, err := bctx.Open(openCtx, rawURL, f.site.Wait, timeout)
	res := f.classify(snap, err)

	f.log.Debug("Fetched page",
		slog.String("url", rawURL),
		slog.String("outcome", res.Outcome.String()),
		slog.Duration("took", time.Since(start)),
	)
	return res
}

func (f *Fetcher) classify(snap *browser.Snapshot, err error) FetchResult {
	if snap != nil && f.isAuthURL(snap.FinalURL) {
		return FetchResult{Outcome: LoginWall, Reason: "redirected to " + snap.FinalURL}
	}

	if err != nil {
		if errors.Is(err, browser.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return FetchResult{Outcome: Timeout, Reason: err.Error()}
		}
		return FetchResult{Outcome: NavigationError, Reason: err.Error()}
	}
	if snap == nil {
		return FetchResult{Outcome: NavigationError, Reason: "no page snapshot"}
	}

	if snap.Marker == browser.MarkerLogin {
		return FetchResult{Outcome: LoginWall, Reason: "authentication prompt shown"}
	}
	if !f.onListing(snap) {
		return FetchResult{Outcome: NavigationError, Reason: ErrListingUnavailable.Error()}
	}
	if strings.TrimSpace(snap.HTML) == "" {
		return FetchResult{Outcome: NavigationError, Reason: "empty page"}
	}
	return FetchResult{Outcome: Loaded, Snapshot: snap}
}

func (f *Fetcher) isAuthURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, p := range f.site.AuthPaths {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// onListing detects redirects away from the posting, which is how expired jobs surface.
func (f *Fetcher) onListing(snap *browser.Snapshot) bool {
	if f.site.ListingPath == "" || snap.FinalURL == "" {
		return true
	}
	if !strings.Contains(strings.ToLower(snap.RequestedURL), f.site.ListingPath) {
		return true
	}
	final := strings.ToLower(snap.FinalURL)
	return strings.Contains(final, f.site.ListingPath) && !strings.Contains(final, "expired")
}
