package data

import (
	"context"
	"sync"
	"time"

	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

// MemoryProvider implements HistoryProvider over in-memory rows
type MemoryProvider struct {
	name  string
	rows  map[string]Series
	mutex sync.RWMutex
}

// NewMemoryProvider creates an empty in-memory provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		name: "Memory Provider",
		rows: make(map[string]Series),
	}
}

func seriesKey(symbol, metric string) string {
	return symbol + "|" + metric
}

// Add records a single value
func (p *MemoryProvider) Add(symbol, metric string, date time.Time, value float64) {
	p.AddSeries(symbol, metric, []types.PricePoint{{Date: date, Value: value}})
}

// AddSeries merges points into the stored series for (symbol, metric).
// A point on an existing timestamp replaces the stored value.
func (p *MemoryProvider) AddSeries(symbol, metric string, points []types.PricePoint) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	key := seriesKey(symbol, metric)
	merged := make([]types.PricePoint, 0, len(p.rows[key])+len(points))
	merged = append(merged, p.rows[key]...)
	merged = append(merged, points...)
	p.rows[key] = normalize(merged)
}

// Size returns the number of stored (symbol, metric) series
func (p *MemoryProvider) Size() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.rows)
}

// Name returns the name of the data provider
func (p *MemoryProvider) Name() string {
	return p.name
}

// PointValue returns the latest value in [from, to]
func (p *MemoryProvider) PointValue(ctx context.Context, symbol, metric string, from, to time.Time) (float64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	p.mutex.RLock()
	defer p.mutex.RUnlock()

	v, ok := LatestInRange(p.rows[seriesKey(symbol, metric)], from.UTC(), to.UTC())
	return v, ok, nil
}

// Series returns a copy of the points in [from, to]
func (p *MemoryProvider) Series(ctx context.Context, symbol, metric string, from, to time.Time) (Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mutex.RLock()
	defer p.mutex.RUnlock()

	window := FilterByDateRange(p.rows[seriesKey(symbol, metric)], from.UTC(), to.UTC())
	out := make(Series, len(window))
	copy(out, window)
	return out, nil
}
