package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pickMarker prefers content: public job pages render the posting and a sign-in modal together.
// Content selectors must be posting-specific, a bare heading also shows up on the auth wall.
func pickMarker(wait WaitSpec, count func(selector string) int) Marker {
	if len(wait.Content) > 0 && count(strings.Join(wait.Content, ", ")) > 0 {
		return MarkerContent
	}
	if len(wait.Login) > 0 && count(strings.Join(wait.Login, ", ")) > 0 {
		return MarkerLogin
	}
	return MarkerNone
}

// DetectMarker resolves the marker of already rendered HTML the same way Open does on a live page.
func DetectMarker(html string, wait WaitSpec) Marker {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return MarkerNone
	}
	return pickMarker(wait, func(selector string) int {
		return doc.Find(selector).Length()
	})
}
