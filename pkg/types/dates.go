package types

import (
	"fmt"
	"strings"
	"time"
)

// zoned layouts carry an explicit offset; naive layouts are read as UTC
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		time.RFC1123,
		time.RFC1123Z,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05.999999Z07:00",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		DayLayout,
	}
)

// ParseTradeDate parses a trade timestamp and normalizes it to UTC.
// Timestamps without an offset are interpreted as UTC.
func ParseTradeDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range zonedLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if layout == time.RFC1123 && !knownZone(t) {
			name, _ := t.Zone()
			return time.Time{}, fmt.Errorf("unknown time zone abbreviation %q in %q", name, s)
		}
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}

// knownZone reports whether a zone abbreviation was resolved to a real
// offset. time.Parse records unknown abbreviations with a zero offset.
func knownZone(t time.Time) bool {
	name, offset := t.Zone()
	return offset != 0 || name == "UTC" || name == "GMT"
}
