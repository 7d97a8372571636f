// Package app wires the scraping pipeline: batch run, JSON and Markdown export, summary.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go-linkedin-scraper/internal/batch"
	"go-linkedin-scraper/internal/browser"
	"go-linkedin-scraper/internal/config"
	"go-linkedin-scraper/internal/export"
	"go-linkedin-scraper/internal/scraper"
	"go-linkedin-scraper/internal/scraper/linkedin"
	"go-linkedin-scraper/internal/session"
)

var ErrNoURLs = errors.New("no urls to scrape")

// Notifier receives the summary of a finished run.
type Notifier interface {
	SendReport(r *batch.Report) error
	SendError(err error) error
}

// Outcome is what one run produced.
type Outcome struct {
	Report        *batch.Report
	JSONPath      string
	Merge         export.MergeStats
	MarkdownFiles []string
}

type Runner struct {
	cfg      *config.Config
	sessions *session.Manager
	orch     *batch.Orchestrator
	notifier Notifier
	log      *slog.Logger
}

type Option func(*Runner)

func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

func NewRunner(cfg *config.Config, launch browser.LaunchFunc, log *slog.Logger, opts ...Option) *Runner {
	if log == nil {
		log = slog.Default()
	}
	sessions := session.New(cfg.ProfilePath, linkedin.LoginURL, launch, log)
	fetcher := scraper.NewFetcher(linkedin.Site(), log)
	extractor := linkedin.NewExtractor(log)

	r := &Runner{
		cfg:      cfg,
		sessions: sessions,
		orch:     batch.New(launch, sessions, fetcher, extractor, log),
		log:      log,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Runner) Sessions() *session.Manager {
	return r.sessions
}

// URLs collects the single url, the batch file lines and any explicit list, in that order.
func URLs(ro config.RunOptions) ([]string, error) {
	var urls []string
	if ro.URL != "" {
		urls = append(urls, ro.URL)
	}
	if ro.BatchFile != "" {
		fromFile, err := batch.ReadURLFile(ro.BatchFile)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	}
	urls = batch.FilterURLs(append(urls, ro.URLs...))
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	return urls, nil
}

// Run scrapes, exports whatever succeeded and sends the summary.
// The returned error is fatal (launch, export); per-URL failures live in the report.
func (r *Runner) Run(ctx context.Context, ro config.RunOptions, progress batch.ProgressFunc) (*Outcome, error) {
	urls, err := URLs(ro)
	if err != nil {
		return nil, err
	}

	report, err := r.orch.Run(ctx, urls, r.batchOptions(ro), progress)
	if err != nil {
		r.notifyError(err)
		return nil, err
	}

	out := &Outcome{Report: report, JSONPath: ro.JobsFile()}
	jobs := report.Postings()
	if len(jobs) > 0 {
		store := export.NewJSONStore(out.JSONPath, r.log)
		if out.Merge, err = store.Merge(jobs); err != nil {
			return out, fmt.Errorf("export json: %w", err)
		}
		if ro.Markdown {
			md := export.NewMarkdownWriter(ro.MarkdownTarget(), r.log)
			if out.MarkdownFiles, err = md.WriteAll(jobs); err != nil {
				return out, fmt.Errorf("export markdown: %w", err)
			}
		}
	} else {
		r.log.Warn("⚠️ Nothing scraped, output left untouched", slog.String("file", out.JSONPath))
	}

	if r.notifier != nil {
		if err := r.notifier.SendReport(report); err != nil {
			r.log.Error("❌ Failed to send summary", slog.Any("error", err))
		}
	}
	return out, nil
}

func (r *Runner) notifyError(err error) {
	if r.notifier == nil {
		return
	}
	if sendErr := r.notifier.SendError(err); sendErr != nil {
		r.log.Error("❌ Failed to send error notification", slog.Any("error", sendErr))
	}
}

func (r *Runner) batchOptions(ro config.RunOptions) batch.Options {
	return batch.Options{
		Concurrency:   r.cfg.Concurrency,
		Retries:       r.cfg.Retries,
		UseProfile:    r.cfg.UseProfile,
		Headless:      ro.Headless,
		Timeout:       r.cfg.Timeout,
		Backoff:       r.cfg.Backoff,
		MaxBackoff:    r.cfg.MaxBackoff,
		RatePerSec:    r.cfg.RatePerSec,
		ScreenshotDir: r.cfg.ScreenshotDir,
	}
}
