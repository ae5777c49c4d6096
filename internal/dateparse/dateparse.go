// Package dateparse converts free-form date/time text into absolute
// timestamps. Parsing is pure: the reference instant is always passed in, and
// no locale or network state is consulted.
package dateparse

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnrecognized is returned when no recognized form matches the input.
var ErrUnrecognized = errors.New("dateparse: unrecognized date/time")

// Explicit formats tried before the fuzzy fallback, in order.
var layouts = []string{
	"2006-01-02 15:04",
	"2006-01-02",
	"2/1/2006 3:04 PM",
	"2/1/2006 15:04",
	"2/1/2006",
}

// Parse resolves text against the reference instant now. Recognized forms,
// first match wins: "now"/"today", "yesterday" with an optional time of day,
// "<N> days ago", a fixed list of explicit formats, and finally a fuzzy pass
// that extracts a date and/or time of day from free text while ignoring
// everything else.
func Parse(text string, now time.Time) (time.Time, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return time.Time{}, ErrUnrecognized
	}

	if text == "now" || text == "today" {
		return now, nil
	}

	if strings.HasPrefix(text, "yesterday") {
		rest := strings.TrimSpace(strings.TrimPrefix(text, "yesterday"))
		base := now.AddDate(0, 0, -1)
		if rest != "" {
			if hour, min, ok := findTime(rest); ok {
				return atTime(base, hour, min, now.Location()), nil
			}
		}
		return atTime(base, 0, 0, now.Location()), nil
	}

	if rest, found := strings.CutSuffix(text, "days ago"); found {
		days, err := strconv.Atoi(strings.TrimSpace(rest))
		if err == nil {
			return now.AddDate(0, 0, -days), nil
		}
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, strings.ToUpper(text), now.Location()); err == nil {
			return t, nil
		}
	}

	return fuzzyParse(text, now)
}

var (
	timeRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})(?::\d{2})?\s*(am|pm)?\b`)
	isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dmyDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	// "5 jan", "5th january 2026", "jan 5", "january 5, 2026"
	dayMonthRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+([a-z]{3,9})\.?(?:\s+(\d{4}))?\b`)
	monthDayRe = regexp.MustCompile(`\b([a-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

func monthByName(name string) (time.Month, bool) {
	if len(name) < 3 {
		return 0, false
	}
	m, ok := months[name[:3]]
	if !ok {
		return 0, false
	}
	// Reject non-month words that happen to start with a month prefix.
	full := strings.ToLower(m.String())
	if len(name) > 3 && !strings.HasPrefix(full, name) {
		return 0, false
	}
	return m, true
}

// fuzzyParse scans text for any date fragment and any time-of-day fragment.
// A date without a time lands on midnight; a time without a date lands on
// the current day. If neither is present the input is unrecognized.
func fuzzyParse(text string, now time.Time) (time.Time, error) {
	year, month, day, haveDate := findDate(text, now)
	hour, min, haveTime := findTime(text)

	if !haveDate && !haveTime {
		return time.Time{}, ErrUnrecognized
	}
	if !haveDate {
		year, month, day = now.Date()
	}
	return time.Date(year, month, day, hour, min, 0, 0, now.Location()), nil
}

func findDate(text string, now time.Time) (int, time.Month, int, bool) {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if validDate(year, month, day) {
			return year, time.Month(month), day, true
		}
	}
	if m := dmyDateRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if validDate(year, month, day) {
			return year, time.Month(month), day, true
		}
	}
	if m := dayMonthRe.FindStringSubmatch(text); m != nil {
		if month, ok := monthByName(m[2]); ok {
			day, _ := strconv.Atoi(m[1])
			year := yearOrDefault(m[3], now)
			if validDate(year, int(month), day) {
				return year, month, day, true
			}
		}
	}
	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		if month, ok := monthByName(m[1]); ok {
			day, _ := strconv.Atoi(m[2])
			year := yearOrDefault(m[3], now)
			if validDate(year, int(month), day) {
				return year, month, day, true
			}
		}
	}
	return 0, 0, 0, false
}

func findTime(text string) (int, int, bool) {
	m := timeRe.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	hour, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	if min > 59 {
		return 0, 0, false
	}
	switch m[3] {
	case "pm":
		if hour > 12 {
			return 0, 0, false
		}
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour > 12 {
			return 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	default:
		if hour > 23 {
			return 0, 0, false
		}
	}
	return hour, min, true
}

func yearOrDefault(s string, now time.Time) int {
	if s == "" {
		return now.Year()
	}
	year, _ := strconv.Atoi(s)
	return year
}

func validDate(year, month, day int) bool {
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day && int(t.Month()) == month
}

func atTime(t time.Time, hour, min int, loc *time.Location) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}
