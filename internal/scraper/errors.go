package scraper

import (
	"errors"
	"fmt"
)

// Fatal conditions; they stop a run or the profile setup.
var (
	ErrLaunch       = errors.New("browser launch failed")
	ErrProfileSetup = errors.New("profile setup failed")
)

// Per-URL causes.
var (
	ErrLoginWall          = errors.New("page requires authentication")
	ErrTitleMissing       = errors.New("job title not found")
	ErrListingUnavailable = errors.New("listing expired or unavailable")
	ErrInvalidURL         = errors.New("invalid job url")
)

// Kind classifies a per-URL failure.
type Kind string

const (
	KindNavigation   Kind = "NavigationError"
	KindTimeout      Kind = "Timeout"
	KindAuthRequired Kind = "AuthRequiredError"
	KindExtraction   Kind = "ExtractionError"
	KindCanceled     Kind = "Canceled"
)

// Retryable reports whether a failure of this kind is worth another attempt.
func (k Kind) Retryable() bool {
	return k == KindNavigation || k == KindTimeout
}

// Error is a per-URL failure. It never aborts a batch.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, url string, err error) *Error {
	return &Error{Kind: kind, URL: url, Err: err}
}

// KindOf extracts the failure kind, or "" when err is not a per-URL error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether err is a per-URL failure that may succeed on retry.
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}
