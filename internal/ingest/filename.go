package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var monthAbbrevs = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseFilename extracts the month and year from a water export named
// "<Label> For <Mon> <Year>.csv". The month token only needs to start with a
// three-letter abbreviation, so "January" is accepted too. Directory components
// separated by either '/' or '\' are ignored.
func ParseFilename(path string) (time.Month, int, error) {
	name := path
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	stem := name
	if i := strings.LastIndex(stem, "."); i > 0 {
		stem = stem[:i]
	}

	parts := strings.Fields(stem)
	if len(parts) < 2 {
		return 0, 0, &MalformedFilenameError{Name: name, Reason: "missing month and year"}
	}

	monthStr := parts[len(parts)-2]
	yearStr := parts[len(parts)-1]

	if len(monthStr) < 3 {
		return 0, 0, &MalformedFilenameError{Name: name, Reason: fmt.Sprintf("no month abbreviation in %q", monthStr)}
	}
	month, ok := monthAbbrevs[strings.ToLower(monthStr[:3])]
	if !ok {
		return 0, 0, &MalformedFilenameError{Name: name, Reason: fmt.Sprintf("no month abbreviation in %q", monthStr)}
	}

	if len(yearStr) != 4 {
		return 0, 0, &MalformedFilenameError{Name: name, Reason: fmt.Sprintf("invalid year %q", yearStr)}
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || year <= 0 {
		return 0, 0, &MalformedFilenameError{Name: name, Reason: fmt.Sprintf("invalid year %q", yearStr)}
	}

	return month, year, nil
}

// ParseDay reduces a "Day of Month" cell to a day number. The cell may embed a
// month name ("April 1"), a weekday suffix ("5-Monday") or an ordinal suffix
// ("3rd"); only the last word up to the first '-' is considered.
func ParseDay(token string) (int, error) {
	fields := strings.Fields(token)
	if len(fields) == 0 {
		return 0, &MalformedDayError{Token: token}
	}

	dayStr := fields[len(fields)-1]
	if i := strings.Index(dayStr, "-"); i >= 0 {
		dayStr = dayStr[:i]
	}
	lower := strings.ToLower(dayStr)
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if strings.HasSuffix(lower, suffix) {
			dayStr = dayStr[:len(dayStr)-len(suffix)]
			break
		}
	}

	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return 0, &MalformedDayError{Token: token}
	}
	return day, nil
}

// dateFromParts builds the calendar date, rejecting days the month does not have
func dateFromParts(year int, month time.Month, day int, token string) (time.Time, error) {
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Month() != month {
		return time.Time{}, &MalformedDayError{Token: token}
	}
	return date, nil
}
