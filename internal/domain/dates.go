package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the stored form of every date and timestamp: UTC RFC 3339
// with second precision. Fixed width, so string order is time order.
const TimeLayout = "2006-01-02T15:04:05Z"

// ParseDate accepts RFC 3339 timestamps (any offset, optional fraction) and
// bare calendar dates, which are taken as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("date %q is neither RFC 3339 nor YYYY-MM-DD", s)
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NormalizeDate parses and re-renders a date in TimeLayout.
func NormalizeDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return FormatTime(t), nil
}
