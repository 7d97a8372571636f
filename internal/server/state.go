package server

import (
	"time"

	"go-linkedin-scraper/internal/app"
	"go-linkedin-scraper/internal/batch"
)

// ResultView is one URL's row in the status payload.
type ResultView struct {
	Index    int          `json:"urlIndex"`
	URL      string       `json:"url"`
	Status   batch.Status `json:"status"`
	Attempts int          `json:"attempts"`
	Title    string       `json:"title,omitempty"`
	Company  string       `json:"company,omitempty"`
	Kind     string       `json:"kind,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Status is the state of the current or last run.
type Status struct {
	Running       bool         `json:"running"`
	Stopping      bool         `json:"stopping,omitempty"`
	RunID         string       `json:"runId,omitempty"`
	Total         int          `json:"total"`
	Succeeded     int          `json:"succeeded"`
	Failed        int          `json:"failed"`
	StartedAt     *time.Time   `json:"startedAt,omitempty"`
	FinishedAt    *time.Time   `json:"finishedAt,omitempty"`
	Error         string       `json:"error,omitempty"`
	JSONPath      string       `json:"jsonPath,omitempty"`
	MarkdownFiles []string     `json:"markdownFiles,omitempty"`
	Results       []ResultView `json:"results"`
}

func newStatus(urls []string, at time.Time) Status {
	st := Status{Running: true, Total: len(urls), StartedAt: &at, Results: make([]ResultView, len(urls))}
	for i, u := range urls {
		st.Results[i] = ResultView{Index: i, URL: u, Status: batch.StatusPending}
	}
	return st
}

func (s *Status) apply(ev batch.Event) {
	if s.RunID == "" {
		s.RunID = ev.RunID
	}
	if ev.Index < 0 || ev.Index >= len(s.Results) {
		return
	}
	r := &s.Results[ev.Index]
	r.Status = ev.Status
	r.Attempts = ev.Attempt
	r.Kind = string(ev.Kind)
	r.Error = ev.Error
	s.recount()
}

func (s *Status) finish(out *app.Outcome, err error, at time.Time) {
	s.Running = false
	s.Stopping = false
	s.FinishedAt = &at
	if err != nil {
		s.Error = err.Error()
	}
	if out == nil || out.Report == nil {
		return
	}
	s.RunID = out.Report.RunID
	s.JSONPath = out.JSONPath
	s.MarkdownFiles = out.MarkdownFiles
	for _, res := range out.Report.Results {
		if res.Index >= len(s.Results) {
			continue
		}
		v := ResultView{Index: res.Index, URL: res.URL, Status: res.Status, Attempts: res.Attempts, Kind: string(res.Kind())}
		if res.Err != nil {
			v.Error = res.Err.Error()
		}
		if res.Job != nil {
			v.Title = res.Job.Title
			v.Company = res.Job.CompanyName
		}
		s.Results[res.Index] = v
	}
	s.recount()
}

func (s *Status) recount() {
	s.Succeeded, s.Failed = 0, 0
	for _, r := range s.Results {
		switch r.Status {
		case batch.StatusSucceeded:
			s.Succeeded++
		case batch.StatusFailed:
			s.Failed++
		}
	}
}

// clone copies the slices so handlers can encode without holding the lock.
func (s Status) clone() Status {
	s.Results = append(make([]ResultView, 0, len(s.Results)), s.Results...)
	s.MarkdownFiles = append([]string(nil), s.MarkdownFiles...)
	return s
}
