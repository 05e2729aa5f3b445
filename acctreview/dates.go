package acctreview

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the layout of report dates given on the command line and to fetchers.
	DateLayout = "2006-01-02"

	isoLayout     = "2006-01-02T15:04:05"
	displayLayout = "01/02/06 15:04"
)

// ParseDate parses a YYYY-MM-DD report date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// MonthBounds returns the first instant of date's calendar month and of the next month.
func MonthBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// ReformatDate turns an ISO-8601 timestamp into MM/DD/YY HH:MM. Only the first
// 19 characters are read, so fractional seconds and zone suffixes are ignored.
func ReformatDate(s string) (string, error) {
	if len(s) < len(isoLayout) {
		return "", fmt.Errorf("invalid timestamp %q", s)
	}
	t, err := time.Parse(isoLayout, s[:len(isoLayout)])
	if err != nil {
		return "", fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.Format(displayLayout), nil
}
