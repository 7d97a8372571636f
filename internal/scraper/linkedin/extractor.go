package linkedin

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go-linkedin-scraper/internal/browser"
	"go-linkedin-scraper/internal/markdown"
	"go-linkedin-scraper/internal/scraper"

	"github.com/PuerkitoBio/goquery"
)

var (
	errNoMatch     = errors.New("no selector matched")
	errUnparsable  = errors.New("unparsable value")
	infoLineTimeRe = regexp.MustCompile(`(?i)\d+\s+(second|minute|hour|day|week|month|year)s?\s+ago`)
	personNameRe   = regexp.MustCompile(`^[\p{L}\s.'-]+$`)
	notPersonRe    = regexp.MustCompile(`(?i)notification|message|sign in|job poster`)
	noiseRe        = regexp.MustCompile(`\s*(Show more|Show less)\s*`)
)

// FieldResult is the outcome of extracting a single field.
type FieldResult struct {
	Value string
	Err   error
}

func found(v string) FieldResult {
	v = strings.TrimSpace(v)
	if v == "" {
		return FieldResult{Err: errNoMatch}
	}
	return FieldResult{Value: v}
}

func missing(err error) FieldResult {
	return FieldResult{Err: err}
}

// Converter renders description HTML as Markdown.
type Converter func(html string) (string, error)

// field couples one selector chain with the record attribute it fills.
// Fields run in table order, so derived fields may read earlier ones from the record.
type field struct {
	name string
	find func(p *page, j *scraper.JobPosting) FieldResult
	set  func(j *scraper.JobPosting, v string)
}

type Extractor struct {
	log     *slog.Logger
	convert Converter
	fields  []field
}

type Option func(*Extractor)

// WithConverter swaps the HTML to Markdown converter.
func WithConverter(c Converter) Option {
	return func(e *Extractor) { e.convert = c }
}

func NewExtractor(log *slog.Logger, opts ...Option) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	e := &Extractor{log: log, convert: markdown.Convert}
	for _, o := range opts {
		o(e)
	}
	e.fields = e.fieldTable()
	return e
}

// Extract maps a loaded job page into a record. Every field is attempted independently;
// only a missing title fails the record.
func (e *Extractor) Extract(snap *browser.Snapshot, rawURL string, fetchedAt time.Time) (*scraper.JobPosting, error) {
	if snap == nil {
		return nil, scraper.NewError(scraper.KindExtraction, rawURL, errors.New("no page snapshot"))
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return nil, scraper.NewError(scraper.KindExtraction, rawURL, fmt.Errorf("parse page: %w", err))
	}

	p := newPage(doc, snap, fetchedAt)
	job := &scraper.JobPosting{
		ID:        JobID(rawURL),
		URL:       CanonicalURL(rawURL),
		ApplyType: scraper.ApplyExternal,
	}

	var misses []string
	for _, f := range e.fields {
		res := f.find(p, job)
		if res.Err != nil {
			misses = append(misses, f.name)
			e.log.Debug("Field not extracted", slog.String("field", f.name), slog.String("url", rawURL), slog.Any("error", res.Err))
			continue
		}
		f.set(job, res.Value)
	}

	if job.Title == "" {
		return nil, scraper.NewError(scraper.KindExtraction, rawURL, scraper.ErrTitleMissing)
	}
	if job.ApplyURL == "" {
		job.ApplyURL = job.URL
	}
	if len(misses) > 0 {
		e.log.Debug("Record extracted with gaps", slog.String("id", job.ID), slog.Any("missing", misses))
	}
	return job, nil
}

func (e *Extractor) fieldTable() []field {
	return []field{
		{
			name: "title",
			find: func(p *page, _ *scraper.JobPosting) FieldResult {
				if r := p.textFirst(titleSelectors...); r.Err == nil {
					return r
				}
				return found(p.titleFromDocument())
			},
			set: func(j *scraper.JobPosting, v string) { j.Title = v },
		},
		{
			name: "companyName",
			find: func(p *page, _ *scraper.JobPosting) FieldResult {
				if r := p.textFirst(
					".topcard__org-name-link",
					".job-details-jobs-unified-top-card__company-name a",
					".job-details-jobs-unified-top-card__company-name",
				); r.Err == nil {
					return r
				}
				return found(p.firstCompanyLinkText())
			},
			set: func(j *scraper.JobPosting, v string) { j.CompanyName = v },
		},
		{
			name: "companyUrl",
			find: func(p *page, _ *scraper.JobPosting) FieldResult {
				r := p.attrFirst("href",
					".topcard__org-name-link",
					".job-details-jobs-unified-top-card__company-name a",
					`a[href*="/company/"]`,
				)
				if r.Err != nil {
					return r
				}
				return found(absURL(r.Value))
			},
			set: func(j *scraper.JobPosting, v string) { j.CompanyURL = v },
		},
		{
			name: "companyId",
			find: func(_ *page, j *scraper.JobPosting) FieldResult {
				return found(CompanyID(j.CompanyURL))
			},
			set: func(j *scraper.JobPosting, v string) { j.CompanyID = v },
		},
		{
			name: "companyLogoUrl",
			find: func(p *page, _ *scraper.JobPosting) FieldResult { return p.logo() },
			set:  func(j *scraper.JobPosting, v string) { j.CompanyLogoURL = v },
		},
		{
			name: "location",
			find: func(p *page, _ *scraper.JobPosting) FieldResult {
				if r := p.textFirst(".topcard__flavor--bullet", ".job-details-jobs-unified-top-card__bullet"); r.Err == nil {
					return r
				}
				return p.infoPart(0)
			},
			set: func(j *scraper.JobPosting, v string) { j.Location = v },
		},
		{
			name: "postedTimeRaw",
			find: func(p *page, _ *scraper.JobPosting) FieldResult {
				if r := p.textFirst(".posted-time-ago__text", ".jobs-unified-top-card__posted-date"); r.Err == nil {
					return r
				}
				return p.infoPart(1)
			},
			set: func(j *scraper.JobPosting, v string) { j.PostedTimeRaw = v },
		},
		{
			name: "publishDate",
			find: func(p *page, j *scraper.JobPosting) FieldResult {
				if j.PostedTimeRaw == "" {
					return missing(errNoMatch)
				}
				d, ok := PublishDate(j.PostedTimeRaw, p.fetchedAt)
				if !ok {
					return missing(fmt.Errorf("%w: %q", errUnparsable, j.PostedTimeRaw))
				}
				return found(d)
			},
			set: func(j *scraper.JobPosting, v string) { j.PublishDate = &v },
		},
		{
			name: "applicantsCount",
			find: func(p *page, _ *scraper.JobPosting) FieldResult {
				r := p.textFirst(".num-applicants__caption", ".num-applicants__figure")
				if r.Err != nil {
					r = p.infoPart(2)
				}
				if r.Err != nil {
					return r
				}
				n, ok := ParseApplicants(r.Value)
				if !ok {
					return missing(fmt.Errorf("%w: %q", errUnparsable, r.Value))
				}
				return found(strconv.Itoa(n))
			},
			set: func(j *scraper.JobPosting, v string) {
				n, _ := strconv.Atoi(v)
				j.ApplicantsCount = &n
			},
		},
		{
			name: "descriptionHtml",
			find: func(p *page, _ *scraper.JobPosting) FieldResult {
				return p.htmlFirst(
					".description__text .show-more-less-html__markup",
					".description__text",
					"#job-details",
					`[data-testid="expandable-text-box"]`,
					".jobs-description__content",
					".jobs-description",
				)
			},
			set: func(j *scraper.JobPosting, v string) { j.DescriptionHTML = v },
		},
		{
			name: "descriptionText",
			find: func(_ *page, j *scraper.JobPosting) FieldResult {
				if j.DescriptionHTML == "" {
					return missing(errNoMatch)
				}
				return found(e.describe(j.DescriptionHTML))
			},
			set: func(j *scraper.JobPosting, v string) { j.DescriptionText = v },
		},
		criterion("contractType", "Employment type", func(j *scraper.JobPosting, v string) { j.ContractType = v }),
		criterion("experienceLevel", "Seniority level", func(j *scraper.JobPosting, v string) { j.ExperienceLevel = v }),
		criterion("jobFunction", "Job function", func(j *scraper.JobPosting, v string) { j.JobFunction = v }),
		criterion("industry", "Industries", func(j *scraper.JobPosting, v string) { j.Industry = v }),
		{
			name: "applyType",
			find: func(p *page, _ *scraper.JobPosting) FieldResult {
				if p.easyApply() {
					return found(string(scraper.ApplyEasy))
				}
				return found(string(scraper.ApplyExternal))
			},
			set: func(j *scraper.JobPosting, v string) { j.ApplyType = scraper.ApplyType(v) },
		},
		{
			name: "applyUrl",
			find: func(p *page, j *scraper.JobPosting) FieldResult {
				if j.ApplyType == scraper.ApplyEasy {
					return found(j.URL)
				}
				return p.externalApplyURL()
			},
			set: func(j *scraper.JobPosting, v string) { j.ApplyURL = v },
		},
		{
			name: "posterName",
			find: func(p *page, _ *scraper.JobPosting) FieldResult { return found(p.poster().name) },
			set:  func(j *scraper.JobPosting, v string) { j.PosterName = v },
		},
		{
			name: "posterProfileUrl",
			find: func(p *page, _ *scraper.JobPosting) FieldResult { return found(p.poster().url) },
			set:  func(j *scraper.JobPosting, v string) { j.PosterProfileURL = v },
		},
	}
}

func criterion(name, header string, set func(*scraper.JobPosting, string)) field {
	return field{
		name: name,
		find: func(p *page, _ *scraper.JobPosting) FieldResult {
			return found(p.criteria()[header])
		},
		set: set,
	}
}

// describe converts the description to Markdown, falling back to its plain text
// when conversion fails or yields nothing.
func (e *Extractor) describe(html string) string {
	md, err := e.convert(html)
	if err == nil && strings.TrimSpace(md) != "" {
		return md
	}
	if err != nil {
		e.log.Warn("⚠️ Description conversion failed, using plain text", slog.Any("error", err))
	}
	return PlainText(html)
}

// PlainText strips tags and collapses whitespace.
func PlainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	doc.Find("script, style, button").Remove()
	return clean(doc.Text())
}

func clean(s string) string {
	s = noiseRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
