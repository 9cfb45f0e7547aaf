package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

// FilterByDateRange returns the points with from <= date <= to. The input must
// be ascending; the result shares its backing array.
func FilterByDateRange(s Series, from, to time.Time) Series {
	if len(s) == 0 || to.Before(from) {
		return Series{}
	}

	lo := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(from) })
	hi := sort.Search(len(s), func(i int) bool { return s[i].Date.After(to) })
	if lo >= hi {
		return Series{}
	}
	return s[lo:hi]
}

// FilterByPeriod filters a series to the trailing period ending at its last point
func FilterByPeriod(s Series, period time.Duration) Series {
	if period <= 0 || len(s) == 0 {
		return s
	}
	latest := s[len(s)-1].Date
	return FilterByDateRange(s, latest.Add(-period), latest)
}

// LatestInRange returns the most recent value in [from, to]
func LatestInRange(s Series, from, to time.Time) (float64, bool) {
	window := FilterByDateRange(s, from, to)
	if p, ok := window.Last(); ok {
		return p.Value, true
	}
	return 0, false
}

// SortByDate returns an ascending copy of s
func SortByDate(s Series) Series {
	sorted := make(Series, len(s))
	copy(sorted, s)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	return sorted
}

// RemoveDuplicates removes repeated timestamps from an ascending series,
// keeping the last occurrence
func RemoveDuplicates(s Series) Series {
	if len(s) <= 1 {
		return s
	}

	out := make(Series, 0, len(s))
	for _, p := range s {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

// ValidateTimeSequence ensures a series is strictly ascending
func ValidateTimeSequence(s Series) error {
	for i := 1; i < len(s); i++ {
		if s[i].Date.Before(s[i-1].Date) {
			return fmt.Errorf("data not in chronological order at index %d: %s comes after %s",
				i, s[i].Date.Format(time.RFC3339), s[i-1].Date.Format(time.RFC3339))
		}
		if s[i].Date.Equal(s[i-1].Date) {
			return fmt.Errorf("duplicate timestamp at index %d: %s", i, s[i].Date.Format(time.RFC3339))
		}
	}
	return nil
}

// normalize sorts, dedupes and moves every timestamp to UTC
func normalize(points []types.PricePoint) Series {
	s := make(Series, len(points))
	for i, p := range points {
		s[i] = types.PricePoint{Date: p.Date.UTC(), Value: p.Value}
	}
	return RemoveDuplicates(SortByDate(s))
}
