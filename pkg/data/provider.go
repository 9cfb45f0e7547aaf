package data

import (
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

// TrailingWindow returns [asOf - period, asOf] with the upper bound moved to
// the end of asOf's day so same-day rows are included
func TrailingWindow(asOf time.Time, period time.Duration) (time.Time, time.Time) {
	to := types.EndOfDay(asOf)
	return types.StartOfDay(asOf.Add(-period)), to
}

// ParseTrailingPeriod parses period strings like "7d", "30d", "365days" or a
// raw duration such as "168h"
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "days") {
		s = strings.TrimSuffix(s, "days") + "d"
	}
	if strings.HasSuffix(s, "d") {
		nStr := strings.TrimSuffix(s, "d")
		if nStr == "" {
			return 0, false
		}
		n, err := strconv.Atoi(nStr)
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}
