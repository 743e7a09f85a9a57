// Package dates normalizes date expressions found in scheduling speech into
// the canonical YYYY-MM-DD form. Natural scheduling speech rarely sticks to a
// single format, so normalization is a layered cascade: explicit relative
// keywords first, then direct layout parsing, then ordinal day + month name
// scanning, then delimited numerics. Order matters only because the cheaper
// and less ambiguous checks run first.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparseable is returned when no layer of the cascade recognizes the
// input. Callers must surface it, never guess a date.
var ErrUnparseable = errors.New("date expression not recognized")

// Canonical is the output layout for every normalized date.
const Canonical = "2006-01-02"

// layouts are the direct-parse candidates for layer (b), tried in order.
// D/M ordering for the delimited forms matches layer (d) below.
var layouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	// "10th march 2025", "3rd of July 2024"
	ordinalPattern = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-zA-Z]+)\s+(\d{4})\b`)
	// "10/3/2025", "10-3-2025" (day first)
	numericPattern = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
)

// Normalize converts a date expression into canonical form using the wall
// clock for relative keywords.
func Normalize(text string) (string, error) {
	return NormalizeAt(text, time.Now())
}

// NormalizeAt is Normalize with an explicit reference time, which keeps
// relative keywords deterministic under test.
func NormalizeAt(text string, now time.Time) (string, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return "", ErrUnparseable
	}

	// Layer (a): relative keywords.
	switch s {
	case "today":
		return now.Format(Canonical), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(Canonical), nil
	case "next week":
		return now.AddDate(0, 0, 7).Format(Canonical), nil
	}

	// Layer (b): direct layout parsing.
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(Canonical), nil
		}
	}

	// Layer (c): ordinal day + month name + year.
	if m := ordinalPattern.FindStringSubmatch(s); m != nil {
		if d, err := fromParts(m[1], m[2], m[3]); err == nil {
			return d, nil
		}
	}

	// Layer (d): delimited numeric D/M/YYYY or D-M-YYYY.
	if m := numericPattern.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if d, err := build(year, time.Month(month), day); err == nil {
			return d, nil
		}
	}

	return "", ErrUnparseable
}

// fromParts assembles a canonical date from ordinal-pattern captures.
func fromParts(dayText, monthName, yearText string) (string, error) {
	month, ok := months[strings.ToLower(monthName)]
	if !ok {
		return "", fmt.Errorf("unknown month %q: %w", monthName, ErrUnparseable)
	}
	day, err := strconv.Atoi(dayText)
	if err != nil {
		return "", ErrUnparseable
	}
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return "", ErrUnparseable
	}
	return build(year, month, day)
}

// build validates the calendar date and formats it. time.Date normalizes
// overflow (Feb 30 -> Mar 2), so a round-trip check rejects impossible days.
func build(year int, month time.Month, day int) (string, error) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return "", ErrUnparseable
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return "", ErrUnparseable
	}
	return t.Format(Canonical), nil
}
