package batch

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go-linkedin-scraper/internal/scraper"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Result is the outcome for the URL at position Index of the input.
type Result struct {
	Index    int
	URL      string
	Status   Status
	Attempts int
	Job      *scraper.JobPosting
	Err      error
}

func (r Result) Kind() scraper.Kind {
	return scraper.KindOf(r.Err)
}

// Event is a progress notification for one URL.
type Event struct {
	RunID   string       `json:"runId"`
	Index   int          `json:"urlIndex"`
	URL     string       `json:"url"`
	Status  Status       `json:"status"`
	Attempt int          `json:"attempt"`
	Error   string       `json:"error,omitempty"`
	Kind    scraper.Kind `json:"kind,omitempty"`
}

type ProgressFunc func(Event)

// Report holds one result per input URL, in input order.
type Report struct {
	RunID      string
	Results    []Result
	StartedAt  time.Time
	FinishedAt time.Time
	Canceled   bool
}

func (r *Report) count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

func (r *Report) Succeeded() int { return r.count(StatusSucceeded) }
func (r *Report) Failed() int    { return r.count(StatusFailed) }
func (r *Report) Pending() int   { return r.count(StatusPending) }

// AllFailed is true when there was work and none of it succeeded.
func (r *Report) AllFailed() bool {
	return len(r.Results) > 0 && r.Succeeded() == 0
}

// Postings returns the extracted records in input order.
func (r *Report) Postings() []*scraper.JobPosting {
	var jobs []*scraper.JobPosting
	for _, res := range r.Results {
		if res.Status == StatusSucceeded && res.Job != nil {
			jobs = append(jobs, res.Job)
		}
	}
	return jobs
}

func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status != StatusSucceeded {
			out = append(out, res)
		}
	}
	return out
}

// Summary prints the succeeded/failed counts and every failure with its kind.
func (r *Report) Summary(w io.Writer) {
	fmt.Fprintf(w, "\n📊 Run %s finished in %s\n", r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "   ✅ Succeeded: %d\n", r.Succeeded())
	fmt.Fprintf(w, "   ❌ Failed: %d\n", r.Failed())
	if p := r.Pending(); p > 0 {
		fmt.Fprintf(w, "   ⏸️ Not processed: %d\n", p)
	}
	for _, f := range r.Failures() {
		kind := f.Kind()
		if kind == "" {
			kind = scraper.KindCanceled
		}
		fmt.Fprintf(w, "   - [%d] %s: %s", f.Index+1, kind, f.URL)
		if f.Err != nil {
			fmt.Fprintf(w, " (%v)", errorCause(f.Err))
		}
		fmt.Fprintln(w)
	}
}

// errorCause drops the "Kind: url:" prefix already printed by Summary.
func errorCause(err error) error {
	var e *scraper.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err
	}
	return err
}
