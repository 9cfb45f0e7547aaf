package data

import (
	"context"
	"time"

	apperrors "github.com/ducminhle1904/portfolio-analytics/internal/errors"
	"github.com/ducminhle1904/portfolio-analytics/internal/exchange/bybit"
	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

// KlineSource downloads candles for a symbol over a time range
type KlineSource interface {
	GetKlineHistory(ctx context.Context, category, symbol string, interval bybit.KlineInterval, start, end time.Time) ([]bybit.Kline, error)
}

// BybitProvider implements HistoryProvider over Bybit daily klines
type BybitProvider struct {
	source   KlineSource
	category string
	interval bybit.KlineInterval
}

// NewBybitProvider creates a provider reading daily candles for category
// ("spot", "linear" or "inverse")
func NewBybitProvider(source KlineSource, category string) *BybitProvider {
	if category == "" {
		category = "spot"
	}
	return &BybitProvider{
		source:   source,
		category: category,
		interval: bybit.Interval1d,
	}
}

// Name returns the name of the data provider
func (p *BybitProvider) Name() string {
	return "Bybit Provider"
}

// PointValue returns the latest candle value in [from, to]
func (p *BybitProvider) PointValue(ctx context.Context, symbol, metric string, from, to time.Time) (float64, bool, error) {
	s, err := p.Series(ctx, symbol, metric, from, to)
	if err != nil {
		return 0, false, err
	}
	if last, ok := s.Last(); ok {
		return last.Value, true, nil
	}
	return 0, false, nil
}

// Series returns one point per candle in [from, to]. A symbol the exchange
// does not list yields an empty series.
func (p *BybitProvider) Series(ctx context.Context, symbol, metric string, from, to time.Time) (Series, error) {
	klines, err := p.source.GetKlineHistory(ctx, p.category, symbol, p.interval, from.UTC(), to.UTC())
	if err != nil {
		if bybit.IsSymbolNotFound(err) {
			return Series{}, nil
		}
		return nil, apperrors.NewNetworkError("bybit", "series", err).
			WithContext("symbol", symbol).
			WithContext("category", p.category)
	}

	points := make([]types.PricePoint, 0, len(klines))
	for _, k := range klines {
		v, ok := klineMetric(k, metric)
		if !ok {
			return Series{}, nil
		}
		points = append(points, types.PricePoint{Date: k.StartTime, Value: v})
	}
	return FilterByDateRange(normalize(points), from.UTC(), to.UTC()), nil
}

func klineMetric(k bybit.Kline, metric string) (float64, bool) {
	switch metric {
	case types.MetricOpen:
		return k.OpenPrice, true
	case types.MetricHigh:
		return k.HighPrice, true
	case types.MetricLow:
		return k.LowPrice, true
	case types.MetricClose:
		return k.ClosePrice, true
	case types.MetricVolume:
		return k.Volume, true
	default:
		return 0, false
	}
}
