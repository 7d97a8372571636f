package linkedin

import (
	"go-linkedin-scraper/internal/browser"
	"go-linkedin-scraper/internal/scraper"
)

const (
	BaseURL  = "https://www.linkedin.com"
	LoginURL = BaseURL + "/login"
)

// contentSelectors only match on a rendered posting, never on the auth wall
var contentSelectors = []string{
	".top-card-layout__title",
	".topcard__title",
	".job-details-jobs-unified-top-card__job-title",
	`[data-view-name="job-detail-page"]`,
}

// h1 is a title fallback only; the auth wall has its own h1
var titleSelectors = []string{
	".top-card-layout__title",
	".topcard__title",
	".job-details-jobs-unified-top-card__job-title",
	"h1",
}

// Site describes how LinkedIn job pages signal readiness and login walls.
func Site() scraper.Site {
	return scraper.Site{
		Wait: browser.WaitSpec{
			Content: contentSelectors,
			Login: []string{
				"form.login__form",
				"#session_key",
				".authwall-join-form",
				"#username",
			},
			Expand: []string{
				"button.show-more-less-html__button--more",
				`button[data-testid="expandable-text-button"]`,
				"button.jobs-description__footer-button",
			},
		},
		AuthPaths:   []string{"/authwall", "/login", "/checkpoint", "/uas/login", "/signup"},
		ListingPath: "/jobs/view/",
	}
}
