package linkedin

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	postedPrefixRe = regexp.MustCompile(`^(re)?posted\s+`)
	agoRe          = regexp.MustCompile(`^(\d+|an?)\+?\s+([a-z]+)\s+ago$`)
	shortRe        = regexp.MustCompile(`^(\d+)\s*(mo|yr|hr|min|w|d|h|y|m|s)\+?$`)
)

type unit int

const (
	second unit = iota
	minute
	hour
	day
	week
	month
	year
)

var units = map[string]unit{
	"second": second, "seconds": second, "sec": second, "secs": second, "s": second,
	"minute": minute, "minutes": minute, "min": minute, "mins": minute, "m": minute,
	"hour": hour, "hours": hour, "hr": hour, "hrs": hour, "h": hour,
	"day": day, "days": day, "d": day,
	"week": week, "weeks": week, "w": week,
	"month": month, "months": month, "mo": month,
	"year": year, "years": year, "yr": year, "yrs": year, "y": year,
}

// PublishDate turns a relative "posted" phrase into a YYYY-MM-DD date counted back
// from fetchedAt. ok is false for phrases it does not understand; nothing is guessed.
func PublishDate(raw string, fetchedAt time.Time) (string, bool) {
	s := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	s = postedPrefixRe.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return "", false
	}

	switch s {
	case "just now", "now", "today", "moments ago":
		return fetchedAt.Format(dateLayout), true
	case "yesterday":
		return fetchedAt.AddDate(0, 0, -1).Format(dateLayout), true
	}

	var (
		count string
		name  string
	)
	if m := agoRe.FindStringSubmatch(s); m != nil {
		count, name = m[1], m[2]
	} else if m := shortRe.FindStringSubmatch(s); m != nil {
		count, name = m[1], m[2]
	} else {
		return "", false
	}

	u, ok := units[name]
	if !ok {
		return "", false
	}
	n := 1
	if count != "a" && count != "an" {
		v, err := strconv.Atoi(count)
		if err != nil {
			return "", false
		}
		n = v
	}
	return shift(fetchedAt, u, n).Format(dateLayout), true
}

func shift(t time.Time, u unit, n int) time.Time {
	switch u {
	case second:
		return t.Add(-time.Duration(n) * time.Second)
	case minute:
		return t.Add(-time.Duration(n) * time.Minute)
	case hour:
		return t.Add(-time.Duration(n) * time.Hour)
	case day:
		return t.AddDate(0, 0, -n)
	case week:
		return t.AddDate(0, 0, -7*n)
	case month:
		return t.AddDate(0, -n, 0)
	default:
		return t.AddDate(-n, 0, 0)
	}
}
