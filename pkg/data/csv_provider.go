package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/ducminhle1904/portfolio-analytics/internal/errors"
	"github.com/ducminhle1904/portfolio-analytics/internal/logger"
	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

// CSVProvider implements HistoryProvider over one OHLCV file per symbol.
// Files are parsed on first use and kept in memory.
type CSVProvider struct {
	dataRoot string
	format   CSVColumnMapping
	locator  FileLocator
	log      *logger.Logger

	mem    *MemoryProvider
	mu     sync.Mutex
	loaded map[string]error
}

// NewCSVProvider creates a CSV provider reading from dataRoot
func NewCSVProvider(dataRoot string, log *logger.Logger) *CSVProvider {
	return NewCSVProviderWithFormat(dataRoot, DefaultCSVFormat, log)
}

// NewCSVProviderWithFormat creates a CSV provider with a custom column layout
func NewCSVProviderWithFormat(dataRoot string, format CSVColumnMapping, log *logger.Logger) *CSVProvider {
	return &CSVProvider{
		dataRoot: dataRoot,
		format:   format,
		locator:  NewDefaultFileLocator(),
		log:      log,
		mem:      NewMemoryProvider(),
		loaded:   make(map[string]error),
	}
}

// Name returns the name of the data provider
func (p *CSVProvider) Name() string {
	return "CSV Provider"
}

// PointValue returns the latest value in [from, to]
func (p *CSVProvider) PointValue(ctx context.Context, symbol, metric string, from, to time.Time) (float64, bool, error) {
	if err := p.ensureLoaded(symbol); err != nil {
		return 0, false, err
	}
	return p.mem.PointValue(ctx, symbol, metric, from, to)
}

// Series returns the points in [from, to]
func (p *CSVProvider) Series(ctx context.Context, symbol, metric string, from, to time.Time) (Series, error) {
	if err := p.ensureLoaded(symbol); err != nil {
		return nil, err
	}
	return p.mem.Series(ctx, symbol, metric, from, to)
}

func (p *CSVProvider) ensureLoaded(symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err, done := p.loaded[symbol]; done {
		return err
	}

	path := p.locator.FindSymbolFile(p.dataRoot, symbol)
	if path == "" {
		p.log.Debug("no history file for %s under %s", symbol, p.dataRoot)
		p.loaded[symbol] = nil
		return nil
	}

	metrics, err := p.LoadFile(path)
	if err != nil {
		p.loaded[symbol] = err
		return err
	}
	for metric, series := range metrics {
		p.mem.AddSeries(symbol, metric, series)
	}
	p.log.Debug("loaded %s from %s (%d rows)", symbol, path, len(metrics[types.MetricClose]))
	p.loaded[symbol] = nil
	return nil
}

// LoadFile parses one OHLCV file into a series per metric. Rows that fail to
// parse or carry inconsistent prices are skipped with a warning.
func (p *CSVProvider) LoadFile(path string) (map[string]Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return map[string]Series{}, nil
		}
		return nil, err
	}

	format := p.format
	var opens, highs, lows, closes, volumes []types.PricePoint

	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, apperrors.NewDataError("csv", "load_file", fmt.Sprintf("error reading CSV at line %d: %v", lineNum, err)).
				WithContext("path", path)
		}
		lineNum++

		if len(record) < format.MinColumns {
			p.log.Warning("insufficient columns at line %d of %s (expected %d, got %d), skipping", lineNum, path, format.MinColumns, len(record))
			continue
		}

		timestamp, err := parseTimestamp(record[format.TimestampCol], format.DateFormat)
		if err != nil {
			p.log.Warning("invalid timestamp %q at line %d of %s, skipping", record[format.TimestampCol], lineNum, path)
			continue
		}

		values := make([]float64, 5)
		cols := []int{format.OpenCol, format.HighCol, format.LowCol, format.CloseCol, format.VolumeCol}
		valid := true
		for i, col := range cols {
			v, err := strconv.ParseFloat(record[col], 64)
			if err != nil {
				p.log.Warning("invalid number %q at line %d of %s, skipping", record[col], lineNum, path)
				valid = false
				break
			}
			values[i] = v
		}
		if !valid {
			continue
		}

		open, high, low, closePrice, volume := values[0], values[1], values[2], values[3], values[4]
		if open <= 0 || high <= 0 || low <= 0 || closePrice <= 0 {
			p.log.Warning("non-positive price at line %d of %s, skipping", lineNum, path)
			continue
		}
		if high < low || high < open || high < closePrice || low > open || low > closePrice {
			p.log.Warning("inconsistent high/low at line %d of %s, skipping", lineNum, path)
			continue
		}

		opens = append(opens, types.PricePoint{Date: timestamp, Value: open})
		highs = append(highs, types.PricePoint{Date: timestamp, Value: high})
		lows = append(lows, types.PricePoint{Date: timestamp, Value: low})
		closes = append(closes, types.PricePoint{Date: timestamp, Value: closePrice})
		volumes = append(volumes, types.PricePoint{Date: timestamp, Value: volume})
	}

	if err := ValidateTimeSequence(closes); err != nil {
		p.log.Warning("%s: %v, reordering", path, err)
	}
	return map[string]Series{
		types.MetricOpen:   normalize(opens),
		types.MetricHigh:   normalize(highs),
		types.MetricLow:    normalize(lows),
		types.MetricClose:  normalize(closes),
		types.MetricVolume: normalize(volumes),
	}, nil
}

func parseTimestamp(raw, layout string) (time.Time, error) {
	if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
		return t, nil
	}
	return types.ParseTradeDate(raw)
}
