// Package values parses untyped text into the canonical forms used in storage,
// filter parameters and the engine's non-throwing casts.
package values

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Canonical layouts written to storage and bound as parameters.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
	fracLayout      = "2006-01-02 15:04:05.999999999"
)

// dateLayouts are accepted date formats without a time component.
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"20060102",
}

// timestampLayouts are accepted formats carrying a time component.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	TimestampLayout,
	fracLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006/01/02 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05 -0700",
}

// timeLayouts are times of day, stored as timestamps on the zero date.
var timeLayouts = []string{"15:04:05", "15:04"}

// ParseNumber parses a finite decimal or scientific-notation number.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IsInt reports whether s is a base-10 integer that fits in int64.
func IsInt(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

// ParseDate parses a calendar date and returns it as YYYY-MM-DD.
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}

// ParseTimestamp parses a timestamp, a bare date (midnight) or a time of day
// and returns it as "YYYY-MM-DD HH:MM:SS[.fraction]" in UTC.
func ParseTimestamp(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return formatTimestamp(t), true
		}
	}
	if d, ok := ParseDate(s); ok {
		return d + " 00:00:00", true
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return formatTimestamp(t), true
		}
	}
	return "", false
}

// HasTime reports whether s only parses as a timestamp, not as a plain date.
func HasTime(s string) bool {
	if _, ok := ParseDate(s); ok {
		return false
	}
	_, ok := ParseTimestamp(s)
	return ok
}

func formatTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond() == 0 {
		return t.Format(TimestampLayout)
	}
	return t.Format(fracLayout)
}

// ParseBool accepts true/false, t/f, 1/0 and yes/no in any case.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes":
		return true, true
	case "false", "f", "0", "no":
		return false, true
	}
	return false, false
}

// ParseLooseBool also accepts y/n, which shows up in raw data but is too
// ambiguous to accept as a filter literal.
func ParseLooseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y":
		return true, true
	case "n":
		return false, true
	}
	return ParseBool(s)
}
