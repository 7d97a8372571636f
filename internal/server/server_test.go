package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go-linkedin-scraper/internal/app"
	"go-linkedin-scraper/internal/batch"
	"go-linkedin-scraper/internal/config"
	"go-linkedin-scraper/internal/logger"
	"go-linkedin-scraper/internal/scraper"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeScraper succeeds on every URL unless block is set, in which case it waits for
// cancellation and reports the remaining URLs as canceled.
type fakeScraper struct {
	mu    sync.Mutex
	got   []config.RunOptions
	block bool
	ready chan struct{}
}

func (f *fakeScraper) Run(ctx context.Context, ro config.RunOptions, progress batch.ProgressFunc) (*app.Outcome, error) {
	f.mu.Lock()
	f.got = append(f.got, ro)
	f.mu.Unlock()

	report := &batch.Report{RunID: "run-1", Results: make([]batch.Result, len(ro.URLs))}
	if f.block {
		close(f.ready)
		<-ctx.Done()
		for i, u := range ro.URLs {
			report.Results[i] = batch.Result{Index: i, URL: u, Status: batch.StatusPending, Err: scraper.NewError(scraper.KindCanceled, u, ctx.Err())}
		}
		report.Canceled = true
		return &app.Outcome{Report: report}, nil
	}

	for i, u := range ro.URLs {
		progress(batch.Event{RunID: "run-1", Index: i, URL: u, Status: batch.StatusRunning, Attempt: 1})
		job := &scraper.JobPosting{ID: u, Title: "Job", CompanyName: "Acme"}
		report.Results[i] = batch.Result{Index: i, URL: u, Status: batch.StatusSucceeded, Attempts: 1, Job: job}
		progress(batch.Event{RunID: "run-1", Index: i, URL: u, Status: batch.StatusSucceeded, Attempt: 1})
	}
	return &app.Outcome{Report: report, JSONPath: ro.JobsFile()}, nil
}

func newTestServer(f *fakeScraper) *Server {
	cfg := config.Default()
	cfg.OutputDir = "/data/out"
	return New(f, cfg, logger.Discard())
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func getStatus(t *testing.T, h http.Handler) Status {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeScraper{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestIndexPage(t *testing.T) {
	h := newTestServer(&fakeScraper{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/api/start")
}

func TestStatus_IdleBeforeFirstRun(t *testing.T) {
	st := getStatus(t, newTestServer(&fakeScraper{}).Handler())
	assert.False(t, st.Running)
	assert.Equal(t, 0, st.Total)
	assert.NotNil(t, st.Results)
}

func TestStart_RejectsEmptyURLs(t *testing.T) {
	f := &fakeScraper{}
	h := newTestServer(f).Handler()

	for _, body := range []string{`{"urls":[]}`, `{"urls":["", "# comment"]}`, `{}`} {
		rec := postJSON(t, h, "/api/start", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, f.got)
}

func TestStart_RejectsMalformedBody(t *testing.T) {
	rec := postJSON(t, newTestServer(&fakeScraper{}).Handler(), "/api/start", `{"urls":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStart_RunsBatchAndRecordsResults(t *testing.T) {
	f := &fakeScraper{}
	s := newTestServer(f)
	h := s.Handler()

	body := `{"urls":["https://www.linkedin.com/jobs/view/4100000001/\nhttps://www.linkedin.com/jobs/view/4100000002/"],"mdDir":"/data/md","createMarkdown":true,"headless":false}`
	rec := postJSON(t, h, "/api/start", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))

	require.Len(t, f.got, 1)
	ro := f.got[0]
	assert.Len(t, ro.URLs, 2)
	assert.Equal(t, "/data/out", ro.OutputDir)
	assert.Equal(t, "/data/md", ro.MarkdownDir)
	assert.True(t, ro.Markdown)
	assert.False(t, ro.Headless)

	st := getStatus(t, h)
	assert.False(t, st.Running)
	assert.Equal(t, "run-1", st.RunID)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 2, st.Succeeded)
	assert.Equal(t, 0, st.Failed)
	assert.NotNil(t, st.FinishedAt)
	assert.Equal(t, "Job", st.Results[1].Title)
	assert.Equal(t, "/data/out/jobs.json", st.JSONPath)
}

func TestStart_ConflictWhileRunningAndStop(t *testing.T) {
	f := &fakeScraper{block: true, ready: make(chan struct{})}
	s := newTestServer(f)
	h := s.Handler()

	body := `{"urls":["https://www.linkedin.com/jobs/view/4100000001/"]}`
	require.Equal(t, http.StatusAccepted, postJSON(t, h, "/api/start", body).Code)
	<-f.ready

	assert.Equal(t, http.StatusConflict, postJSON(t, h, "/api/start", body).Code)
	assert.True(t, getStatus(t, h).Running)

	assert.Equal(t, http.StatusAccepted, postJSON(t, h, "/api/stop", "").Code)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))

	st := getStatus(t, h)
	assert.False(t, st.Running)
	assert.False(t, st.Stopping)
	assert.Equal(t, batch.StatusPending, st.Results[0].Status)
	assert.Equal(t, string(scraper.KindCanceled), st.Results[0].Kind)
	assert.Len(t, f.got, 1)
}

func TestStop_NothingRunning(t *testing.T) {
	rec := postJSON(t, newTestServer(&fakeScraper{}).Handler(), "/api/stop", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEvents_StreamsProgressAndDone(t *testing.T) {
	f := &fakeScraper{}
	s := newTestServer(f)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "event: connected\n", line)

	require.NoError(t, s.Start(config.RunOptions{URLs: []string{"https://www.linkedin.com/jobs/view/4100000001/"}, OutputDir: "/tmp/out"}))

	var events []string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			name = strings.TrimSpace(name)
			events = append(events, name)
			if name == "done" {
				break
			}
		}
	}
	assert.Equal(t, []string{"progress", "progress", "done"}, events)
}

func TestHub_DropsForSlowClients(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	for i := 0; i < 100; i++ {
		require.NoError(t, h.Publish("progress", i))
	}
	assert.Len(t, ch, cap(ch))

	h.Unsubscribe(ch)
	h.Unsubscribe(ch)
	assert.Equal(t, 0, h.Clients())

	drained := 0
	for range ch {
		drained++
	}
	assert.Equal(t, 64, drained)
}

func TestHub_CloseEndsStreams(t *testing.T) {
	h := NewHub()
	a, b := h.Subscribe(), h.Subscribe()
	h.Close()

	_, okA := <-a
	_, okB := <-b
	assert.False(t, okA)
	assert.False(t, okB)
	assert.Equal(t, 0, h.Clients())
	h.Unsubscribe(a)
}
