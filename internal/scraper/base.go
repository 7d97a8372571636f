// Shared job record and the contracts between fetching and extraction.

package scraper

import (
	"time"

	"go-linkedin-scraper/internal/browser"
)

type ApplyType string

const (
	ApplyEasy     ApplyType = "easy_apply"
	ApplyExternal ApplyType = "external"
)

// JobPosting is one normalized job listing.
type JobPosting struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	CompanyName      string    `json:"companyName"`
	CompanyURL       string    `json:"companyUrl"`
	CompanyID        string    `json:"companyId"`
	CompanyLogoURL   string    `json:"companyLogoUrl"`
	Location         string    `json:"location"`
	URL              string    `json:"url"`
	PostedTimeRaw    string    `json:"postedTimeRaw"`
	PublishDate      *string   `json:"publishDate"`
	ApplicantsCount  *int      `json:"applicantsCount"`
	DescriptionText  string    `json:"descriptionText"`
	DescriptionHTML  string    `json:"descriptionHtml"`
	ContractType     string    `json:"contractType"`
	ExperienceLevel  string    `json:"experienceLevel"`
	JobFunction      string    `json:"jobFunction"`
	Industry         string    `json:"industry"`
	ApplyType        ApplyType `json:"applyType"`
	ApplyURL         string    `json:"applyUrl"`
	PosterName       string    `json:"posterName"`
	PosterProfileURL string    `json:"posterProfileUrl"`
}

// Extractor maps a loaded page into a record. Implementations are site specific.
type Extractor interface {
	Extract(snap *browser.Snapshot, url string, fetchedAt time.Time) (*JobPosting, error)
}

// Site tells the fetcher how a target site signals readiness and login walls.
type Site struct {
	Wait browser.WaitSpec
	//AuthPaths are final-URL fragments of login/auth-wall pages
	AuthPaths []string
	//ListingPath is the path prefix a live posting keeps after redirects; empty disables the check
	ListingPath string
}
