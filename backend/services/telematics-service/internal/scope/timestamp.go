package scope

import (
	"errors"
	"strings"
	"time"
)

// ErrTimestamp is returned for strings that match none of the accepted layouts.
var ErrTimestamp = errors.New("unrecognised timestamp")

// Zoned layouts keep their offset; naive layouts are read as UTC.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// ParseTimestamp accepts ISO-8601-like strings and normalises them to UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrTimestamp
	}
	for _, layout := range zonedLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, ErrTimestamp
}
