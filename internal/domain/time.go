package domain

import (
	"fmt"
	"time"
)

// TimeLayout is the single timestamp format used everywhere: database
// columns, archive files, and the manifest.
//
// The layout is fixed-width RFC 3339 with exactly nine fractional digits
// and a literal Z. Fixed width matters twice over:
//  1. Lexicographic order equals chronological order, so SQL ORDER BY on
//     a TEXT column sorts historical records correctly.
//  2. Formatting is total and unambiguous, so a timestamp written once
//     re-exports byte-identically. Variable-precision layouts (Go's
//     default trims trailing zeros) would break both properties.
//
// Archive code treats stored timestamps as opaque strings and never
// routes them through time.Time.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in TimeLayout, normalized to UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout string. It rejects anything that is not
// exactly in layout (wrong width, missing Z, non-UTC offset).
func ParseTime(s string) (time.Time, error) {
	if len(s) != len(TimeLayout) {
		return time.Time{}, fmt.Errorf("timestamp %q: want fixed-width layout %s", s, TimeLayout)
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return t, nil
}

// ValidTime reports whether s is a well-formed TimeLayout timestamp.
func ValidTime(s string) bool {
	_, err := ParseTime(s)
	return err == nil
}
