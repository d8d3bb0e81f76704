package harmonize

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp layouts, tried in order: ISO-8601 first, then US 12-hour
// formats, then bare time-of-day (combined with the reference date).
// Zone-less layouts are interpreted as UTC.
var (
	isoLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
	}

	usLayouts = []string{
		"01/02/2006 03:04:05 PM",
		"01/02/2006 03:04 PM",
		"01/02/06 03:04:05 PM",
		"01/02/06 03:04 PM",
	}

	timeOnlyLayouts = []string{
		"15:04:05",
		"15:04",
		"03:04:05 PM",
		"03:04 PM",
		"3:04 PM",
	}
)

// ParseTimestamp parses a source-native timestamp string and normalizes it
// to UTC. ref supplies the date for time-only values (Weather Underground
// rows carry only a clock time; the date comes from the file being
// processed). Returns an error when no known layout matches.
func ParseTimestamp(raw string, ref time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range isoLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	for _, layout := range usLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	for _, layout := range timeOnlyLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			r := ref.UTC()
			return time.Date(r.Year(), r.Month(), r.Day(),
				ts.Hour(), ts.Minute(), ts.Second(), 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("no known timestamp layout matches %q", s)
}
