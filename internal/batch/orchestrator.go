// Package batch runs a list of job URLs through one shared browser.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go-linkedin-scraper/internal/browser"
	"go-linkedin-scraper/internal/scraper"
	"go-linkedin-scraper/internal/session"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type Options struct {
	Concurrency int
	Retries     int
	UseProfile  bool
	Headless    bool
	//Timeout bounds one navigation plus its marker wait
	Timeout    time.Duration
	Backoff    time.Duration
	MaxBackoff time.Duration
	//RatePerSec paces navigations across all workers; 0 disables pacing
	RatePerSec    float64
	ScreenshotDir string
}

func (o Options) withDefaults() Options {
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.MaxBackoff < o.Backoff {
		o.MaxBackoff = o.Backoff
	}
	return o
}

// backoff is Backoff doubled per failed attempt, capped at MaxBackoff.
func (o Options) backoff(attempt int) time.Duration {
	d := o.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= o.MaxBackoff {
			return o.MaxBackoff
		}
	}
	return d
}

type Orchestrator struct {
	launch    browser.LaunchFunc
	sessions  *session.Manager
	fetcher   *scraper.Fetcher
	extractor scraper.Extractor
	log       *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(launch browser.LaunchFunc, sessions *session.Manager, fetcher *scraper.Fetcher, extractor scraper.Extractor, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		launch:    launch,
		sessions:  sessions,
		fetcher:   fetcher,
		extractor: extractor,
		log:       log,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// run is the state of one Run call.
type run struct {
	o       *Orchestrator
	opts    Options
	report  *Report
	limiter *rate.Limiter

	mu       sync.Mutex
	progress ProgressFunc
}

// Run scrapes urls and returns one result per URL in input order.
// Blank and comment lines are skipped and get no result.
// Per-URL failures are recorded in the report; only a browser that cannot be
// launched (scraper.ErrLaunch) fails the whole run. When ctx is canceled, in-flight
// fetches finish or time out, nothing new is dispatched and the report is marked Canceled.
func (o *Orchestrator) Run(ctx context.Context, urls []string, opts Options, progress ProgressFunc) (*Report, error) {
	opts = opts.withDefaults()
	urls = FilterURLs(urls)
	report := &Report{
		RunID:     uuid.NewString(),
		Results:   make([]Result, len(urls)),
		StartedAt: o.now(),
	}
	for i, u := range urls {
		report.Results[i] = Result{Index: i, URL: u, Status: StatusPending}
	}
	if len(urls) == 0 {
		report.FinishedAt = o.now()
		return report, nil
	}

	b, err := o.launch(ctx, browser.LaunchOptions{
		Headless:      opts.Headless,
		ScreenshotDir: opts.ScreenshotDir,
		Logger:        o.log,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrLaunch, err)
	}
	defer b.Close()

	workers := min(opts.Concurrency, len(urls))
	contexts := make([]browser.Context, 0, workers)
	defer func() {
		for _, c := range contexts {
			c.Close()
		}
	}()
	for range workers {
		bctx, err := o.sessions.AcquireContext(b, opts.UseProfile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", scraper.ErrLaunch, err)
		}
		contexts = append(contexts, bctx)
	}

	r := &run{o: o, opts: opts, report: report, progress: progress}
	if opts.RatePerSec > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}

	o.log.Info("🚀 Starting batch",
		slog.String("run_id", report.RunID),
		slog.Int("urls", len(urls)),
		slog.Int("workers", workers),
		slog.Int("retries", opts.Retries),
	)

	queue := make(chan int)
	var g errgroup.Group
	g.Go(func() error {
		defer close(queue)
		for i := range urls {
			select {
			case <-ctx.Done():
				return nil
			case queue <- i:
			}
		}
		return nil
	})
	for _, bctx := range contexts {
		g.Go(func() error {
			for i := range queue {
				if ctx.Err() != nil {
					continue
				}
				r.process(ctx, bctx, i)
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		report.Canceled = true
		for i := range report.Results {
			res := &report.Results[i]
			if res.Status == StatusPending {
				res.Err = scraper.NewError(scraper.KindCanceled, res.URL, ctx.Err())
			}
		}
		o.log.Warn("🛑 Batch canceled, unprocessed urls left pending", slog.Int("pending", report.Pending()))
	}

	report.FinishedAt = o.now()
	o.log.Info("🏁 Batch finished",
		slog.String("run_id", report.RunID),
		slog.Int("succeeded", report.Succeeded()),
		slog.Int("failed", report.Failed()),
	)
	return report, nil
}

// process owns report.Results[i]; no other goroutine touches that slot.
func (r *run) process(ctx context.Context, bctx browser.Context, i int) {
	res := &r.report.Results[i]
	log := r.o.log.With(slog.Int("index", i), slog.String("url", res.URL))

	if err := validateURL(res.URL); err != nil {
		res.Attempts = 1
		r.fail(res, scraper.NewError(scraper.KindNavigation, res.URL, err))
		log.Warn("⚠️ Skipping invalid url", slog.Any("error", err))
		return
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				if lastErr != nil {
					r.fail(res, lastErr)
				}
				return
			}
		}

		res.Attempts = attempt
		res.Status = StatusRunning
		r.emit(res, nil)

		//an in-flight fetch is never cut short by cancellation, only by its own timeout
		fr := r.o.fetcher.Fetch(context.WithoutCancel(ctx), bctx, res.URL, r.opts.Timeout)
		err := fr.Err(res.URL)
		if err == nil {
			job, xerr := r.o.extractor.Extract(fr.Snapshot, res.URL, r.o.now())
			if xerr == nil {
				res.Job = job
				res.Status = StatusSucceeded
				res.Err = nil
				r.emit(res, nil)
				log.Info("✅ Scraped", slog.String("title", job.Title), slog.String("company", job.CompanyName), slog.Int("attempt", attempt))
				return
			}
			err = xerr
			if scraper.KindOf(err) == "" {
				err = scraper.NewError(scraper.KindExtraction, res.URL, err)
			}
		}
		lastErr = err

		if !scraper.IsRetryable(err) || attempt > r.opts.Retries || ctx.Err() != nil {
			r.fail(res, err)
			log.Warn("❌ Failed", slog.String("kind", string(scraper.KindOf(err))), slog.Int("attempts", attempt), slog.Any("error", err))
			return
		}

		delay := r.opts.backoff(attempt)
		res.Status = StatusRetrying
		r.emit(res, err)
		log.Info("🔁 Retrying", slog.Int("attempt", attempt), slog.Duration("backoff", delay), slog.Any("error", err))
		if err := r.o.sleep(ctx, delay); err != nil {
			r.fail(res, lastErr)
			return
		}
	}
}

func (r *run) fail(res *Result, err error) {
	res.Status = StatusFailed
	res.Err = err
	r.emit(res, err)
}

func (r *run) emit(res *Result, err error) {
	if r.progress == nil {
		return
	}
	ev := Event{
		RunID:   r.report.RunID,
		Index:   res.Index,
		URL:     res.URL,
		Status:  res.Status,
		Attempt: res.Attempts,
	}
	if err != nil {
		ev.Error = err.Error()
		ev.Kind = scraper.KindOf(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress(ev)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
