package export

import (
	"strings"
	"unicode"

	"go-linkedin-scraper/internal/scraper"

	"golang.org/x/text/unicode/norm"
)

const maxNameRunes = 200

// MarkdownName derives "<Title> - <Company>.md", safe on every common filesystem.
func MarkdownName(job *scraper.JobPosting) string {
	title := sanitize(job.Title)
	company := sanitize(job.CompanyName)

	base := title
	switch {
	case title == "" && company == "":
		base = sanitize(job.ID)
	case company != "" && title != "":
		base = title + " - " + company
	case title == "":
		base = company
	}
	if base == "" {
		base = "job"
	}
	return truncate(base, maxNameRunes) + ".md"
}

func sanitize(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case strings.ContainsRune(`<>:"/\|?*`, r), unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	//collapse whitespace; trailing dots and spaces are invalid on Windows
	out := strings.Join(strings.Fields(b.String()), " ")
	return strings.Trim(out, ". ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n]), ". ")
}
