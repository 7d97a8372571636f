package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-linkedin-scraper/internal/browser"
	"go-linkedin-scraper/internal/browser/browsertest"
	"go-linkedin-scraper/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobURL = "https://www.linkedin.com/jobs/view/4281659372/"

var testSite = Site{
	Wait:        browser.WaitSpec{Content: []string{"h1"}, Login: []string{"form.login__form"}},
	AuthPaths:   []string{"/authwall", "/login", "/checkpoint"},
	ListingPath: "/jobs/view/",
}

func fetchOnce(t *testing.T, step browsertest.Step) FetchResult {
	t.Helper()
	fb := browsertest.New().On(jobURL, step)
	bctx, err := fb.NewContext(browser.ContextOptions{})
	require.NoError(t, err)

	f := NewFetcher(testSite, logger.Discard())
	return f.Fetch(context.Background(), bctx, jobURL, time.Second)
}

func TestFetcher_Classify(t *testing.T) {
	redirected := browsertest.Page(jobURL, "<html><body>sign in</body></html>")
	redirected.Snapshot.FinalURL = "https://www.linkedin.com/authwall?trk=x"

	expired := browsertest.Page(jobURL, "<html><body>search</body></html>")
	expired.Snapshot.FinalURL = "https://www.linkedin.com/jobs/search/?expired=true"

	timeoutOnAuth := browsertest.Timeout(jobURL)
	timeoutOnAuth.Snapshot.FinalURL = "https://www.linkedin.com/uas/login?session_redirect=x"

	tests := []struct {
		name    string
		step    browsertest.Step
		outcome Outcome
		kind    Kind
	}{
		{name: "loaded", step: browsertest.Page(jobURL, "<html><h1>Go Dev</h1></html>"), outcome: Loaded},
		{name: "login marker", step: browsertest.LoginWall(jobURL), outcome: LoginWall, kind: KindAuthRequired},
		{name: "auth wall redirect", step: redirected, outcome: LoginWall, kind: KindAuthRequired},
		{name: "timeout while on login page", step: timeoutOnAuth, outcome: LoginWall, kind: KindAuthRequired},
		{name: "marker timeout", step: browsertest.Timeout(jobURL), outcome: Timeout, kind: KindTimeout},
		{name: "navigation failure", step: browsertest.NavFailure("net::ERR_NAME_NOT_RESOLVED"), outcome: NavigationError, kind: KindNavigation},
		{name: "expired listing", step: expired, outcome: NavigationError, kind: KindNavigation},
		{name: "empty page", step: browsertest.Page(jobURL, "   "), outcome: NavigationError, kind: KindNavigation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := fetchOnce(t, tt.step)
			assert.Equal(t, tt.outcome, res.Outcome)

			err := res.Err(jobURL)
			if tt.outcome == Loaded {
				assert.NoError(t, err)
				require.NotNil(t, res.Snapshot)
				return
			}
			require.Error(t, err)
			assert.Nil(t, res.Snapshot)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestFetcher_ContextDeadlineIsTimeout(t *testing.T) {
	fb := browsertest.New().On(jobURL, browsertest.Step{Delay: time.Second})
	bctx, err := fb.NewContext(browser.ContextOptions{})
	require.NoError(t, err)

	res := NewFetcher(testSite, logger.Discard()).Fetch(context.Background(), bctx, jobURL, 20*time.Millisecond)
	assert.Equal(t, Timeout, res.Outcome)
}

func TestKind_Retryable(t *testing.T) {
	assert.True(t, KindTimeout.Retryable())
	assert.True(t, KindNavigation.Retryable())
	assert.False(t, KindAuthRequired.Retryable())
	assert.False(t, KindExtraction.Retryable())

	wrapped := errors.Join(errors.New("ctx"), NewError(KindTimeout, jobURL, errors.New("slow")))
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestFetchResult_ListingUnavailableUnwraps(t *testing.T) {
	res := FetchResult{Outcome: NavigationError, Reason: ErrListingUnavailable.Error()}
	assert.ErrorIs(t, res.Err(jobURL), ErrListingUnavailable)

	res = FetchResult{Outcome: LoginWall}
	assert.ErrorIs(t, res.Err(jobURL), ErrLoginWall)
}
