package linkedin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishDate(t *testing.T) {
	at := time.Date(2026, 3, 31, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "just now", want: "2026-03-31", ok: true},
		{raw: "Today", want: "2026-03-31", ok: true},
		{raw: "yesterday", want: "2026-03-30", ok: true},
		{raw: "2 days ago", want: "2026-03-29", ok: true},
		{raw: "1 day ago", want: "2026-03-30", ok: true},
		{raw: "3 weeks ago", want: "2026-03-10", ok: true},
		{raw: "an hour ago", want: "2026-03-31", ok: true},
		{raw: "45 minutes ago", want: "2026-03-31", ok: true},
		{raw: "a month ago", want: "2026-03-03", ok: true},
		{raw: "1 month ago", want: "2026-03-03", ok: true},
		{raw: "2 years ago", want: "2024-03-31", ok: true},
		{raw: "Reposted 1 week ago", want: "2026-03-24", ok: true},
		{raw: "Posted 5 days ago", want: "2026-03-26", ok: true},
		{raw: "30+ days ago", want: "2026-03-01", ok: true},
		{raw: "  4   hours   ago ", want: "2026-03-31", ok: true},
		{raw: "25 hours ago", want: "2026-03-30", ok: true},
		{raw: "3mo", want: "2025-12-31", ok: true},
		{raw: "2w", want: "2026-03-17", ok: true},
		{raw: "5d", want: "2026-03-26", ok: true},
		{raw: "1y", want: "2025-03-31", ok: true},
		{raw: "30m", want: "2026-03-31", ok: true},
		{raw: "", ok: false},
		{raw: "recently", ok: false},
		{raw: "2 fortnights ago", ok: false},
		{raw: "Be an early applicant", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := PublishDate(tt.raw, at)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPublishDate_Deterministic(t *testing.T) {
	at := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	a, _ := PublishDate("2 weeks ago", at)
	b, _ := PublishDate("2 weeks ago", at)
	assert.Equal(t, a, b)
	assert.Equal(t, "2025-12-27", a)
}
