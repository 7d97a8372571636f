package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode"

	"go-linkedin-scraper/internal/logger"
	"go-linkedin-scraper/internal/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func posting(id, title string) *scraper.JobPosting {
	date := "2026-03-01"
	applicants := 42
	return &scraper.JobPosting{
		ID:              id,
		Title:           title,
		CompanyName:     "Acme",
		URL:             "https://www.linkedin.com/jobs/view/" + id + "/",
		PostedTimeRaw:   "2 weeks ago",
		PublishDate:     &date,
		ApplicantsCount: &applicants,
		DescriptionText: "**Go** & friends",
		DescriptionHTML: "<p><strong>Go</strong> &amp; friends</p>",
		ApplyType:       scraper.ApplyEasy,
	}
}

func storeIn(t *testing.T) *JSONStore {
	t.Helper()
	return NewJSONStore(filepath.Join(t.TempDir(), "out", JSONFile), logger.Discard())
}

func TestJSONStore_MergeIsIdempotent(t *testing.T) {
	s := storeIn(t)
	jobs := []*scraper.JobPosting{posting("1", "A"), posting("2", "B")}

	stats, err := s.Merge(jobs)
	require.NoError(t, err)
	assert.Equal(t, MergeStats{Added: 2, Total: 2}, stats)
	first, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	stats, err = s.Merge(jobs)
	require.NoError(t, err)
	assert.Equal(t, MergeStats{Updated: 2, Total: 2}, stats)
	second, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(first), "<p><strong>Go</strong>", "html is not escaped")
	assert.True(t, strings.HasPrefix(string(first), "[\n  {\n    \"id\": \"1\""))
}

func TestJSONStore_UpdatesOneRecordInPlace(t *testing.T) {
	s := storeIn(t)
	_, err := s.Merge([]*scraper.JobPosting{posting("1", "A"), posting("2", "B"), posting("3", "C")})
	require.NoError(t, err)

	//the source renamed job 2
	_, err = s.Merge([]*scraper.JobPosting{posting("1", "A"), posting("2", "B v2"), posting("3", "C")})
	require.NoError(t, err)

	jobs, err := s.Load()
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"A", "B v2", "C"}, []string{jobs[0].Title, jobs[1].Title, jobs[2].Title})
}

func TestJSONStore_KeepsUnrelatedRecordsVerbatim(t *testing.T) {
	s := storeIn(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(`[{"id":"old","title":"Old","note":"added by hand"}]`), 0644))

	stats, err := s.Merge([]*scraper.JobPosting{posting("1", "A"), posting("1", "A again")})
	require.NoError(t, err)
	assert.Equal(t, MergeStats{Added: 1, Updated: 1, Total: 2}, stats, "duplicate ids in one batch collapse")

	var raw []map[string]any
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, "added by hand", raw[0]["note"])
	assert.Equal(t, "A again", raw[1]["title"])
}

func TestJSONStore_AcceptsSingleObject(t *testing.T) {
	s := storeIn(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"id":"1","title":"Old"}`), 0644))

	stats, err := s.Merge([]*scraper.JobPosting{posting("1", "New"), posting("2", "Other")})
	require.NoError(t, err)
	assert.Equal(t, MergeStats{Added: 1, Updated: 1, Total: 2}, stats)
}

func TestJSONStore_MovesCorruptFileAside(t *testing.T) {
	s := storeIn(t)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(`[{"id": "1",`), 0644))

	stats, err := s.Merge([]*scraper.JobPosting{posting("2", "B")})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	backup, err := os.ReadFile(s.Path() + ".corrupt-1700000000")
	require.NoError(t, err)
	assert.Equal(t, `[{"id": "1",`, string(backup))
}

func TestJSONStore_EmptyMergeWritesArray(t *testing.T) {
	s := storeIn(t)
	_, err := s.Merge(nil)
	require.NoError(t, err)
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestMarkdownName(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		company string
		id      string
		want    string
	}{
		{name: "plain", title: "Go Engineer", company: "Acme", want: "Go Engineer - Acme.md"},
		{name: "unsafe characters", title: `Dev/Ops: "Lead" <Remote>?`, company: `A|B\C*`, want: `Dev_Ops_ _Lead_ _Remote__ - A_B_C_.md`},
		{name: "control and whitespace", title: "Line\none\t\ttwo", company: "  Acme  ", want: "Line one two - Acme.md"},
		{name: "no company", title: "Solo", want: "Solo.md"},
		{name: "no title", company: "Acme", want: "Acme.md"},
		{name: "nothing but id", id: "4281659372", want: "4281659372.md"},
		{name: "dots only", title: "...", id: "", want: "job.md"},
		{name: "nfc", title: "Cafe\u0301", company: "Zürich", want: "Caf\u00e9 - Zürich.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MarkdownName(&scraper.JobPosting{ID: tt.id, Title: tt.title, CompanyName: tt.company})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarkdownName_NeverUnsafe(t *testing.T) {
	nasty := []string{"../../etc/passwd", `C:\Windows\system32`, "a\x00b\x1fc", strings.Repeat("é", 500), "tab\there", "?*?*"}
	for _, title := range nasty {
		name := MarkdownName(&scraper.JobPosting{ID: "1", Title: title, CompanyName: title})
		assert.NotContains(t, name, "/")
		assert.NotContains(t, name, `\`)
		assert.False(t, strings.ContainsAny(strings.TrimSuffix(name, ".md"), `<>:"|?*`), name)
		for _, r := range name {
			assert.False(t, unicode.IsControl(r), name)
		}
		assert.LessOrEqual(t, len([]rune(name)), maxNameRunes+len(".md"))
		assert.Equal(t, name, filepath.Base(name))
	}
}

func TestMarkdownWriter_Write(t *testing.T) {
	dir := t.TempDir()
	w := NewMarkdownWriter(dir, logger.Discard())
	job := posting("4281659372", "Senior Go Engineer")

	path, err := w.Write(job)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Senior Go Engineer - Acme.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	require.True(t, strings.HasPrefix(content, "---\n"))

	block, body, ok := strings.Cut(strings.TrimPrefix(content, "---\n"), "\n---\n")
	require.True(t, ok)

	var fm map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(block), &fm))
	var typed frontmatter
	require.NoError(t, yaml.Unmarshal([]byte(block), &typed))
	assert.Equal(t, "4281659372", typed.ID)
	assert.Equal(t, "Senior Go Engineer", typed.Title)
	require.NotNil(t, typed.PublishDate)
	assert.Equal(t, "2026-03-01", *typed.PublishDate)
	require.NotNil(t, typed.ApplicantsCount)
	assert.Equal(t, 42, *typed.ApplicantsCount)
	assert.Equal(t, "easy_apply", typed.ApplyType)
	assert.Contains(t, fm, "posterName")
	assert.NotContains(t, fm, "descriptionText")
	assert.NotContains(t, fm, "descriptionHtml")

	assert.Equal(t, "\n# Senior Go Engineer\n\n**Go** & friends\n", body)

	//overwriting keeps a single file
	job.Location = "Berlin"
	_, err = w.Write(job)
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMarkdownWriter_NullsAndFallback(t *testing.T) {
	w := NewMarkdownWriter(t.TempDir(), logger.Discard())
	w.convert = func(string) (string, error) { return "", errors.New("broken") }

	job := &scraper.JobPosting{ID: "1", Title: "T", DescriptionText: "plain body", DescriptionHTML: "<p>plain body</p>"}
	data, err := w.Render(job)
	require.NoError(t, err)
	assert.Contains(t, string(data), "publishDate: null\n")
	assert.Contains(t, string(data), "applicantsCount: null\n")
	assert.True(t, strings.HasSuffix(string(data), "# T\n\nplain body\n"))
}

func TestMarkdownWriter_SameNameOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := NewMarkdownWriter(dir, logger.Discard())

	first := posting("111111111", "Go Dev")
	second := posting("222222222", "Go Dev")
	second.Location = "Remote"

	a, err := w.Write(first)
	require.NoError(t, err)
	b, err := w.Write(second)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Go Dev - Acme.md"), a)
	assert.Equal(t, a, b)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id: \"222222222\"\n")
	assert.Contains(t, string(data), "location: Remote\n")
}

func TestMarkdownWriter_LogoBlock(t *testing.T) {
	w := NewMarkdownWriter(t.TempDir(), logger.Discard())

	job := posting("1", "T")
	job.CompanyLogoURL = "https://media.licdn.com/logo.png"
	data, err := w.Render(job)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# T\n\n```dataviewjs\nlet url = dv.current().companyLogoUrl;\n")
	assert.True(t, strings.HasSuffix(string(data), "}\n```\n\n**Go** & friends\n"))

	job.CompanyLogoURL = ""
	data, err = w.Render(job)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dataviewjs")
}

func TestMarkdownWriter_WriteAll(t *testing.T) {
	dir := t.TempDir()
	w := NewMarkdownWriter(dir, logger.Discard())
	paths, err := w.WriteAll([]*scraper.JobPosting{posting("1", "A"), posting("2", "B")})
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}
