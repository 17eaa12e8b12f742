package declaration

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Layouts accepted for metering period starts, most specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// NormalizeTimestamp parses a metering period start and maps it onto the
// reference representation: UTC, truncated to the whole hour. Timestamps
// without a zone are read as UTC.
func NormalizeTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
}

// ResolveOffset returns the timeline index of the first period start.
// The timeline must be ascending and unique.
func ResolveOffset(periodStarts []time.Time, timeline []time.Time) (int, error) {
	if len(periodStarts) == 0 {
		return 0, ErrEmptyPeriod
	}
	start := periodStarts[0].UTC().Truncate(time.Hour)
	i := sort.Search(len(timeline), func(i int) bool {
		return !timeline[i].Before(start)
	})
	if i < len(timeline) && timeline[i].Equal(start) {
		return i, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrTimeslotNotFound, start.Format(time.RFC3339))
}

// ResolveOffsetRaw normalises raw period starts and resolves the offset.
func ResolveOffsetRaw(periodStarts []string, timeline []time.Time) (int, error) {
	if len(periodStarts) == 0 {
		return 0, ErrEmptyPeriod
	}
	start, err := NormalizeTimestamp(periodStarts[0])
	if err != nil {
		return 0, err
	}
	return ResolveOffset([]time.Time{start}, timeline)
}
