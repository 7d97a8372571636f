package export

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go-linkedin-scraper/internal/markdown"
	"go-linkedin-scraper/internal/scraper"

	"gopkg.in/yaml.v3"
)

// frontmatter lists every scalar field of a posting; the two description fields make up the body.
type frontmatter struct {
	ID               string  `yaml:"id"`
	Title            string  `yaml:"title"`
	CompanyName      string  `yaml:"companyName"`
	CompanyURL       string  `yaml:"companyUrl"`
	CompanyID        string  `yaml:"companyId"`
	CompanyLogoURL   string  `yaml:"companyLogoUrl"`
	Location         string  `yaml:"location"`
	URL              string  `yaml:"url"`
	PostedTimeRaw    string  `yaml:"postedTimeRaw"`
	PublishDate      *string `yaml:"publishDate"`
	ApplicantsCount  *int    `yaml:"applicantsCount"`
	ContractType     string  `yaml:"contractType"`
	ExperienceLevel  string  `yaml:"experienceLevel"`
	JobFunction      string  `yaml:"jobFunction"`
	Industry         string  `yaml:"industry"`
	ApplyType        string  `yaml:"applyType"`
	ApplyURL         string  `yaml:"applyUrl"`
	PosterName       string  `yaml:"posterName"`
	PosterProfileURL string  `yaml:"posterProfileUrl"`
}

func newFrontmatter(j *scraper.JobPosting) frontmatter {
	return frontmatter{
		ID:               j.ID,
		Title:            j.Title,
		CompanyName:      j.CompanyName,
		CompanyURL:       j.CompanyURL,
		CompanyID:        j.CompanyID,
		CompanyLogoURL:   j.CompanyLogoURL,
		Location:         j.Location,
		URL:              j.URL,
		PostedTimeRaw:    j.PostedTimeRaw,
		PublishDate:      j.PublishDate,
		ApplicantsCount:  j.ApplicantsCount,
		ContractType:     j.ContractType,
		ExperienceLevel:  j.ExperienceLevel,
		JobFunction:      j.JobFunction,
		Industry:         j.Industry,
		ApplyType:        string(j.ApplyType),
		ApplyURL:         j.ApplyURL,
		PosterName:       j.PosterName,
		PosterProfileURL: j.PosterProfileURL,
	}
}

// MarkdownWriter writes one Markdown file per posting.
type MarkdownWriter struct {
	dir     string
	log     *slog.Logger
	convert func(string) (string, error)
}

func NewMarkdownWriter(dir string, log *slog.Logger) *MarkdownWriter {
	if log == nil {
		log = slog.Default()
	}
	return &MarkdownWriter{dir: dir, log: log, convert: markdown.Convert}
}

// WriteAll writes every posting, continuing past individual failures.
func (w *MarkdownWriter) WriteAll(jobs []*scraper.JobPosting) ([]string, error) {
	var (
		paths []string
		errs  []error
	)
	for _, j := range jobs {
		p, err := w.Write(j)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) > 0 {
		w.log.Info("📝 Wrote markdown files", slog.String("dir", w.dir), slog.Int("files", len(paths)))
	}
	return paths, errors.Join(errs...)
}

// Write renders job into the directory. Any file of the same derived name is overwritten.
func (w *MarkdownWriter) Write(job *scraper.JobPosting) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create markdown dir: %w", err)
	}
	data, err := w.Render(job)
	if err != nil {
		return "", err
	}

	path := filepath.Join(w.dir, MarkdownName(job))

	if err := writeFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	w.log.Debug("Markdown written", slog.String("file", path))
	return path, nil
}

// logoBlock lets Obsidian's Dataview plugin show the logo named in the frontmatter.
const logoBlock = "```dataviewjs\n" +
	"let url = dv.current().companyLogoUrl;\n" +
	"if (url) {\n" +
	"    dv.el(\"img\", \"\", { attr: { src: url, style: \"width:100px;\" } });\n" +
	"}\n" +
	"```\n"

// Render produces the frontmatter block, the title heading, the logo block when a logo
// is known and the description body.
func (w *MarkdownWriter) Render(job *scraper.JobPosting) ([]byte, error) {
	var fm bytes.Buffer
	enc := yaml.NewEncoder(&fm)
	enc.SetIndent(2)
	if err := enc.Encode(newFrontmatter(job)); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(fm.Bytes())
	b.WriteString("---\n\n")
	b.WriteString("# " + strings.TrimSpace(job.Title) + "\n")
	if job.CompanyLogoURL != "" {
		b.WriteString("\n" + logoBlock)
	}
	if body := w.body(job); body != "" {
		b.WriteString("\n" + body + "\n")
	}
	return b.Bytes(), nil
}

func (w *MarkdownWriter) body(job *scraper.JobPosting) string {
	if strings.TrimSpace(job.DescriptionHTML) != "" {
		md, err := w.convert(job.DescriptionHTML)
		if err == nil && strings.TrimSpace(md) != "" {
			return strings.TrimSpace(md)
		}
		if err != nil {
			w.log.Warn("⚠️ Description conversion failed, using text", slog.String("id", job.ID), slog.Any("error", err))
		}
	}
	return strings.TrimSpace(job.DescriptionText)
}
