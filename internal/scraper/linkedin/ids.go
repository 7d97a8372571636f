package linkedin

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	jobIDRe      = regexp.MustCompile(`(\d{8,})`)
	companyRe    = regexp.MustCompile(`/company/([^/?#]+)`)
	numberRe     = regexp.MustCompile(`\d[\d,.]*`)
	applicantsRe = regexp.MustCompile(`(?i)applicant|clicked apply|applied`)
)

// JobID returns the numeric posting id of rawURL's canonical form, so search URLs yield
// their currentJobId rather than geoId or other numeric params. Slugs end with the id,
// hence the last digit run wins. URLs without one get a stable hash of the canonical URL.
func JobID(rawURL string) string {
	canonical := CanonicalURL(rawURL)
	if ids := jobIDRe.FindAllString(canonical, -1); len(ids) > 0 {
		return ids[len(ids)-1]
	}
	sum := sha256.Sum256([]byte(canonical))
	return "url-" + hex.EncodeToString(sum[:8])
}

// CanonicalURL strips tracking query params and fragments.
// Search URLs carrying currentJobId are rewritten to the posting's own view URL.
func CanonicalURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(rawURL)
	}
	if id := u.Query().Get("currentJobId"); id != "" && jobIDRe.MatchString(id) && !strings.Contains(u.Path, "/jobs/view/") {
		return BaseURL + "/jobs/view/" + id + "/"
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + u.Host + u.Path
}

// CompanyID takes the slug or numeric id after /company/ in a company URL.
func CompanyID(companyURL string) string {
	if m := companyRe.FindStringSubmatch(companyURL); m != nil {
		return m[1]
	}
	return ""
}

// ParseApplicants reads counts like "Over 200 applicants" or "1,234 people clicked apply".
func ParseApplicants(s string) (int, bool) {
	if !applicantsRe.MatchString(s) {
		return 0, false
	}
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	m = strings.NewReplacer(",", "", ".", "").Replace(m)
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// absURL resolves LinkedIn-relative links and drops their query strings.
func absURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, _ := url.Parse(BaseURL)
	u, err := base.Parse(href)
	if err != nil {
		return href
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
