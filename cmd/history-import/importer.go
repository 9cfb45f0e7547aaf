package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ducminhle1904/portfolio-analytics/internal/exchange/bybit"
	"github.com/ducminhle1904/portfolio-analytics/internal/logger"
	"github.com/ducminhle1904/portfolio-analytics/pkg/data"
	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

// importedMetrics are the candle fields stored per day
var importedMetrics = []string{
	types.MetricOpen,
	types.MetricHigh,
	types.MetricLow,
	types.MetricClose,
	types.MetricVolume,
}

type seriesWriter interface {
	WriteSeries(ctx context.Context, symbol, metric string, points []types.PricePoint) error
}

type importer struct {
	source   data.KlineSource
	writer   seriesWriter
	category string
	log      *logger.Logger
}

// importSymbol downloads daily candles in [start, end] and writes one series
// per metric. It returns the number of days written.
func (im *importer) importSymbol(ctx context.Context, symbol string, start, end time.Time) (int, error) {
	klines, err := im.source.GetKlineHistory(ctx, im.category, symbol, bybit.Interval1d, start, end)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", symbol, err)
	}
	if len(klines) == 0 {
		im.log.Warning("No candles for %s between %s and %s", symbol, types.DayKey(start), types.DayKey(end))
		return 0, nil
	}

	series := make(map[string][]types.PricePoint, len(importedMetrics))
	for _, k := range klines {
		day := types.StartOfDay(k.StartTime)
		for _, m := range importedMetrics {
			series[m] = append(series[m], types.PricePoint{Date: day, Value: klineValue(k, m)})
		}
	}

	for _, m := range importedMetrics {
		if err := im.writer.WriteSeries(ctx, symbol, m, series[m]); err != nil {
			return 0, fmt.Errorf("write %s %s: %w", symbol, m, err)
		}
	}
	im.log.Info("Imported %d candles for %s", len(klines), symbol)
	return len(klines), nil
}

func klineValue(k bybit.Kline, metric string) float64 {
	switch metric {
	case types.MetricOpen:
		return k.OpenPrice
	case types.MetricHigh:
		return k.HighPrice
	case types.MetricLow:
		return k.LowPrice
	case types.MetricVolume:
		return k.Volume
	default:
		return k.ClosePrice
	}
}

// parseRange resolves the -start/-end flags. The default range is the year
// ending today.
func parseRange(startRaw, endRaw string, now time.Time) (time.Time, time.Time, error) {
	end := types.EndOfDay(now)
	if endRaw != "" {
		d, err := time.Parse(types.DayLayout, endRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", endRaw, err)
		}
		end = types.EndOfDay(d)
	}

	start := types.StartOfDay(end.AddDate(-1, 0, 0))
	if startRaw != "" {
		d, err := time.Parse(types.DayLayout, startRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", startRaw, err)
		}
		start = types.StartOfDay(d)
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is not before end %s", types.DayKey(start), types.DayKey(end))
	}
	return start, end, nil
}
