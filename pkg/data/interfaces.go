package data

import (
	"context"
	"time"

	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

// Series is an ascending sequence of dated values for one (symbol, metric)
type Series []types.PricePoint

// Values returns the bare values in date order
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Last returns the most recent point
func (s Series) Last() (types.PricePoint, bool) {
	if len(s) == 0 {
		return types.PricePoint{}, false
	}
	return s[len(s)-1], true
}

// ByDay indexes the series by calendar day; a later point on the same day wins
func (s Series) ByDay() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, p := range s {
		out[types.DayKey(p.Date)] = p.Value
	}
	return out
}

// HistoryProvider is a read-only accessor for dated metric values keyed by
// (symbol, metric, date). Implementations must be safe for concurrent reads.
type HistoryProvider interface {
	// PointValue returns the latest value recorded in [from, to]; ok is false
	// when nothing matches
	PointValue(ctx context.Context, symbol, metric string, from, to time.Time) (value float64, ok bool, err error)

	// Series returns every value recorded in [from, to], ascending by date.
	// An unknown symbol yields an empty series, not an error.
	Series(ctx context.Context, symbol, metric string, from, to time.Time) (Series, error)

	// Name returns the name of the data provider
	Name() string
}

// SeriesCache interface for caching loaded series
type SeriesCache interface {
	// Get retrieves a series from cache if available
	Get(key string) (Series, bool)

	// Set stores a series in cache
	Set(key string, data Series)

	// Clear removes all cached data
	Clear()

	// Size returns the number of cached entries
	Size() int
}

// CSVColumnMapping defines the column positions for different CSV formats
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// Predefined CSV formats
var (
	DefaultCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02 15:04:05",
	}

	// Daily exports carrying only the calendar day
	DailyCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   types.DayLayout,
	}
)

// FileLocator interface for finding per-symbol history files
type FileLocator interface {
	// FindSymbolFile returns the history file for symbol under dataRoot, or ""
	FindSymbolFile(dataRoot, symbol string) string
}
