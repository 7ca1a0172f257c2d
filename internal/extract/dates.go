package extract

import (
	"regexp"
	"strings"
	"time"
)

// MinBirthYear is the earliest year accepted for a date of birth.
const MinBirthYear = 1900

// dateLayouts are tried in order; the first layout that parses wins.
var dateLayouts = []string{
	"1/2/2006",
	"1-2-2006",
	"2006-1-2",
	"2006/1/2",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"1/2/06",
	"1-2-06",
}

var (
	reDateCandidate = regexp.MustCompile(`(?i)\b(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}[/-]\d{1,2}[/-]\d{1,2}|[a-z]{3,9}\.?\s+\d{1,2},?\s+\d{4}|\d{1,2}\s+[a-z]{3,9}\.?\s+\d{4})\b`)
	reSpaces        = regexp.MustCompile(`\s+`)
)

// ParseDate parses a single date value against the accepted layouts. Dates
// after today's date are rejected; a two-digit year that would land after
// today is taken from the previous century.
func ParseDate(s string, today time.Time) (time.Time, bool) {
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
	s = strings.TrimRight(s, ".,;")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		limit := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		if !strings.Contains(layout, "2006") && t.After(limit) {
			t = t.AddDate(-100, 0, 0)
		}
		if t.Year() < MinBirthYear || t.After(limit) {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// FindDate parses value as a whole, then each date-shaped substring in order.
func FindDate(value string, today time.Time) (time.Time, bool) {
	if t, ok := ParseDate(value, today); ok {
		return t, true
	}
	for _, c := range reDateCandidate.FindAllString(value, -1) {
		if t, ok := ParseDate(c, today); ok {
			return t, true
		}
	}
	return time.Time{}, false
}
