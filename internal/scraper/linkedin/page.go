package linkedin

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"go-linkedin-scraper/internal/browser"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var unreadTitleRe = regexp.MustCompile(`^\(\d+\)\s*`)

var logoSelectors = []string{
	"img.top-card-layout__entity-image",
	".top-card-layout__entity-image img",
	".topcard__org-name-link img",
	`img[alt*="logo"]`,
	"img.EntityPhoto-square-2",
	"img.EntityPhoto-square-3",
	"img.EntityPhoto-square-4",
	"img.ivm-view-attr__img--centered",
	"img.artdeco-entity-image",
}

var imageAttrs = []string{"src", "data-delayed-url", "data-src", "data-ghost-url"}

type person struct {
	name, url string
}

// page is one parsed snapshot plus lazily computed fallbacks shared by several fields.
type page struct {
	doc       *goquery.Document
	snap      *browser.Snapshot
	fetchedAt time.Time

	info       []string
	infoDone   bool
	crit       map[string]string
	posterInfo *person
}

func newPage(doc *goquery.Document, snap *browser.Snapshot, fetchedAt time.Time) *page {
	return &page{doc: doc, snap: snap, fetchedAt: fetchedAt}
}

func (p *page) textFirst(selectors ...string) FieldResult {
	for _, sel := range selectors {
		if t := clean(p.doc.Find(sel).First().Text()); t != "" {
			return FieldResult{Value: t}
		}
	}
	return missing(errNoMatch)
}

func (p *page) attrFirst(attr string, selectors ...string) FieldResult {
	for _, sel := range selectors {
		if v, ok := p.doc.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return FieldResult{Value: strings.TrimSpace(v)}
		}
	}
	return missing(errNoMatch)
}

func (p *page) htmlFirst(selectors ...string) FieldResult {
	for _, sel := range selectors {
		s := p.doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		h, err := s.Html()
		if err != nil {
			continue
		}
		if strings.TrimSpace(h) != "" {
			return FieldResult{Value: strings.TrimSpace(h)}
		}
	}
	return missing(errNoMatch)
}

// titleFromDocument reads "(3) Job Title | Company | LinkedIn".
func (p *page) titleFromDocument() string {
	t := p.snap.Title
	if t == "" {
		t = p.doc.Find("title").First().Text()
	}
	t = unreadTitleRe.ReplaceAllString(strings.TrimSpace(t), "")
	parts := strings.Split(t, "|")
	if len(parts) < 2 {
		return ""
	}
	title := strings.TrimSpace(parts[0])
	if len([]rune(title)) >= 150 {
		return ""
	}
	return title
}

func (p *page) root() *goquery.Selection {
	for _, sel := range []string{`[data-view-name="job-detail-page"]`, "main", "body"} {
		if s := p.doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return p.doc.Selection
}

func (p *page) firstCompanyLinkText() string {
	var name string
	p.root().Find(`a[href*="/company/"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := clean(s.Text())
		if t != "" && len([]rune(t)) < 120 && !strings.Contains(t, "•") {
			name = t
			return false
		}
		return true
	})
	return name
}

func (p *page) logo() FieldResult {
	for _, sel := range logoSelectors {
		img := p.doc.Find(sel).First()
		if img.Length() == 0 {
			continue
		}
		for _, attr := range imageAttrs {
			if v, ok := img.Attr(attr); ok && strings.HasPrefix(v, "http") {
				return FieldResult{Value: v}
			}
		}
	}
	return missing(errNoMatch)
}

// infoPart reads the "Location · 2 weeks ago · 65 applicants" line of the logged-in layout.
func (p *page) infoPart(i int) FieldResult {
	if !p.infoDone {
		p.info = p.infoLine()
		p.infoDone = true
	}
	if i >= len(p.info) {
		return missing(errNoMatch)
	}
	return found(p.info[i])
}

func (p *page) infoLine() []string {
	var line string
	candidates := p.doc.Find(".job-details-jobs-unified-top-card__primary-description-container").AddSelection(p.root().Find("p"))
	candidates.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := clean(s.Text())
		if strings.Contains(t, "·") && infoLineTimeRe.MatchString(t) {
			line = t
			return false
		}
		return true
	})
	if line == "" {
		return nil
	}
	parts := strings.Split(line, "·")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// criteria maps headers like "Seniority level" to their values.
func (p *page) criteria() map[string]string {
	if p.crit != nil {
		return p.crit
	}
	p.crit = map[string]string{}
	items := p.doc.Find(".description__job-criteria-item")
	if items.Length() == 0 {
		items = p.doc.Find(".job-criteria-item, [class*='job-criteria'] li")
	}
	items.Each(func(_ int, s *goquery.Selection) {
		header := clean(s.Find("h3, .job-criteria-subheader").First().Text())
		value := clean(s.Find(".description__job-criteria-text, .job-criteria-text, span").First().Text())
		if header != "" && value != "" {
			p.crit[header] = value
		}
	})
	return p.crit
}

func (p *page) easyApply() bool {
	easy := false
	p.doc.Find(".jobs-apply-button--top-card, .jobs-apply-button, button[aria-label*='Easy Apply']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Attr("aria-label")
		if strings.Contains(s.Text(), "Easy Apply") || strings.Contains(label, "Easy Apply") {
			easy = true
			return false
		}
		return true
	})
	return easy
}

// externalApplyURL reads the offsite link that the logged-out page keeps in an HTML
// comment inside <code id="applyUrl">, unwrapping LinkedIn's redirect.
func (p *page) externalApplyURL() FieldResult {
	var raw string
	p.doc.Find("code#applyUrl").Contents().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if n := s.Get(0); n.Type == html.CommentNode {
			raw = strings.Trim(strings.TrimSpace(n.Data), `"`)
			return false
		}
		return true
	})
	if raw == "" {
		return missing(errNoMatch)
	}
	if u, err := url.Parse(raw); err == nil {
		if target := u.Query().Get("url"); target != "" {
			return FieldResult{Value: target}
		}
	}
	return FieldResult{Value: raw}
}

// poster finds who posted the job: the recruiter card when logged out, otherwise the
// innermost /in/ profile link in the hiring team section that reads like a person's name.
func (p *page) poster() person {
	if p.posterInfo != nil {
		return *p.posterInfo
	}
	p.posterInfo = &person{}

	link := p.doc.Find(".message-the-recruiter a, .hirer-card__hirer-information a").First()
	if href, ok := link.Attr("href"); ok && clean(link.Text()) != "" {
		*p.posterInfo = person{name: clean(link.Text()), url: absURL(href)}
		return *p.posterInfo
	}

	p.root().Find(`a[href*="/in/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if a.Find(`a[href*="/in/"]`).Length() > 0 {
			return true
		}
		name := strings.TrimSpace(directText(a))
		if name == "" {
			name = strings.TrimSpace(strings.Split(strings.TrimSpace(a.Text()), "\n")[0])
		}
		n := len([]rune(name))
		if n < 3 || n > 60 || notPersonRe.MatchString(name) || !personNameRe.MatchString(name) {
			return true
		}
		href, _ := a.Attr("href")
		*p.posterInfo = person{name: name, url: absURL(href)}
		return false
	})
	return *p.posterInfo
}

func directText(s *goquery.Selection) string {
	var b strings.Builder
	for c := s.Get(0).FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
