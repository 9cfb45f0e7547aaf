package report

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ducminhle1904/portfolio-analytics/internal/currency"
	"github.com/ducminhle1904/portfolio-analytics/internal/ledger"
	"github.com/ducminhle1904/portfolio-analytics/internal/logger"
	"github.com/ducminhle1904/portfolio-analytics/internal/monitoring"
	"github.com/ducminhle1904/portfolio-analytics/internal/optimizer"
	"github.com/ducminhle1904/portfolio-analytics/internal/risk"
	"github.com/ducminhle1904/portfolio-analytics/pkg/data"
	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

// Default request parameters used when the caller asks for every method
const (
	DefaultTargetReturn = 0.0005
	DefaultRiskAversion = 2.0
	DefaultCash         = 100000.0
)

// Config holds the assembler parameters
type Config struct {
	Risk      risk.Config
	Optimizer optimizer.Config
	// Workers bounds both the history prefetch and the optimizer pool
	Workers int
	// Lookback is the trailing valuation window
	Lookback time.Duration
	// Country selects the exchange-rate row for stored prices
	Country string
	// FrontierSamples random portfolios are included for charting; 0 disables
	FrontierSamples int
}

// DefaultConfig returns the standard assembler parameters
func DefaultConfig() Config {
	return Config{
		Risk:            risk.DefaultConfig(),
		Optimizer:       optimizer.DefaultConfig(),
		Workers:         4,
		Lookback:        ledger.DefaultLookback,
		Country:         "USA",
		FrontierSamples: 1000,
	}
}

// Option configures an Assembler
type Option func(*Assembler)

// WithLogger attaches a logger
func WithLogger(log *logger.Logger) Option {
	return func(a *Assembler) { a.log = log }
}

// WithClock sets the clock used for "today"
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithRates replaces the exchange-rate table
func WithRates(t *currency.Table) Option {
	return func(a *Assembler) { a.rates = t }
}

// WithHealth reports outcomes to a health checker
func WithHealth(h *monitoring.HealthChecker) Option {
	return func(a *Assembler) { a.health = h }
}

// Assembler builds portfolio reports from a history provider
type Assembler struct {
	provider *data.CachedProvider
	engine   *risk.Engine
	rates    *currency.Table
	cfg      Config
	log      *logger.Logger
	health   *monitoring.HealthChecker
	now      func() time.Time
}

// NewAssembler creates an assembler. The provider is wrapped in a
// CachedProvider unless it already is one, so the ledger, the valuation and
// the optimizer share one fetch per symbol. The cache is dropped at the start
// of every report.
func NewAssembler(provider data.HistoryProvider, cfg Config, opts ...Option) *Assembler {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.Country == "" {
		cfg.Country = def.Country
	}

	a := &Assembler{
		cfg:   cfg,
		rates: currency.DefaultTable(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	cached, ok := provider.(*data.CachedProvider)
	if !ok {
		cached = data.NewCachedProvider(provider, a.log)
	}
	a.provider = cached
	a.engine = risk.NewEngine(cfg.Risk)
	if a.cfg.Optimizer.Logger == nil {
		a.cfg.Optimizer.Logger = a.log
	}
	return a
}

// DefaultRequests asks for every method with the standard parameters
func DefaultRequests() []optimizer.Request {
	target := DefaultTargetReturn
	aversion := DefaultRiskAversion

	out := make([]optimizer.Request, 0, len(optimizer.Methods))
	for _, m := range optimizer.Methods {
		req := optimizer.Request{Method: string(m)}
		switch m {
		case optimizer.MethodTargetReturn:
			req.TargetReturn = &target
		case optimizer.MethodUtility:
			req.RiskAversion = &aversion
		}
		out = append(out, req)
	}
	return out
}

// ComputePortfolioReport values the trades over the trailing window, computes
// risk statistics on that series and runs every requested optimization.
// Malformed trades, an unknown currency or an unknown method are returned as
// validation errors; missing prices only reduce what the report contains.
func (a *Assembler) ComputePortfolioReport(ctx context.Context, trades []types.TradeInput, currencyCode string, cash float64, requests []optimizer.Request) (*Bundle, error) {
	bundle, err := a.compute(ctx, trades, currencyCode, cash, requests)
	switch {
	case err != nil:
		a.log.LogError("report failed", err)
		monitoring.RecordReport("error")
		if a.health != nil {
			a.health.RecordError(err)
		}
	case bundle.IsEmpty():
		monitoring.RecordReport("empty")
	default:
		monitoring.RecordReport("ok")
		if a.health != nil {
			a.health.MarkReport(bundle.GeneratedAt)
		}
	}
	return bundle, err
}

func (a *Assembler) compute(ctx context.Context, trades []types.TradeInput, currencyCode string, cash float64, requests []optimizer.Request) (*Bundle, error) {
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	if err := currency.Validate(currencyCode); err != nil {
		return nil, err
	}
	if requests == nil {
		requests = DefaultRequests()
	}
	objectives := make([]optimizer.Objective, 0, len(requests))
	for _, req := range requests {
		obj, err := optimizer.ParseObjective(req)
		if err != nil {
			return nil, err
		}
		objectives = append(objectives, obj)
	}

	a.provider.ClearCache()

	now := a.now()
	led := ledger.New(a.provider,
		ledger.WithClock(func() time.Time { return now }),
		ledger.WithLookback(a.cfg.Lookback),
		ledger.WithLogger(a.log),
	)
	if err := led.AddTrades(trades); err != nil {
		return nil, err
	}

	symbols := led.Symbols()
	from, to := led.Window()

	history, err := a.prefetch(ctx, symbols, from, to)
	if err != nil {
		return nil, err
	}

	positions, err := led.Aggregate(ctx)
	if err != nil {
		return nil, err
	}
	if !hasCost(positions) {
		a.log.Info("portfolio is empty, skipping valuation")
		return emptyBundle(currencyCode, now, objectives), nil
	}

	country := a.cfg.Country
	convert := func(d decimal.Decimal) float64 {
		return a.rates.Convert(d, country, currencyCode).InexactFloat64()
	}

	tradeDateValues, err := led.TradeDateValues(ctx)
	if err != nil {
		return nil, err
	}

	series, err := led.ValueAtDates(ctx, led.HoldingsOverWindow(from, to), types.MetricClose)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		Currency:      currencyCode,
		GeneratedAt:   now,
		Dates:         make([]string, 0, len(series)),
		Values:        make([]float64, 0, len(series)),
		Positions:     make([]Consolidated, 0, len(symbols)),
		Optimizations: make(map[string]optimizer.Result, len(objectives)),
	}
	for _, p := range series {
		b.Dates = append(b.Dates, types.DayKey(p.Date))
		b.Values = append(b.Values, a.rates.ConvertFloat(p.Value, country, currencyCode))
	}

	quantities := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		pos := positions[symbol]
		quantities[symbol] = pos.NetQuantity.InexactFloat64()
		b.Positions = append(b.Positions, Consolidated{
			Symbol:         symbol,
			Quantity:       quantities[symbol],
			NetCost:        convert(pos.NetCost),
			AverageCost:    convert(pos.AverageCost),
			CurrentValue:   convert(pos.CurrentValue),
			TradeDateValue: convert(tradeDateValues[symbol]),
			Priced:         pos.Priced,
		})
	}
	b.PortfolioValue = convert(ledger.TotalCurrentValue(positions))
	b.RiskMetrics = a.engine.Calculate(b.Values, b.PortfolioValue)

	days, priced, matrix := priceMatrix(symbols, history, from, to, a.rates.Rate(country, currencyCode))
	b.PriceHistory = priceHistory(days, priced, matrix)

	session, err := optimizer.NewSession(priced, dayTimes(days), matrix, quantities, a.cfg.Optimizer)
	if err != nil {
		return nil, err
	}
	results, err := optimizer.OptimizeAll(ctx, session, objectives, cash, a.cfg.Workers)
	if err != nil {
		return nil, err
	}
	for m, r := range results {
		b.Optimizations[string(m)] = r
	}

	b.Frontier = session.FrontierSample(a.cfg.FrontierSamples, a.cfg.Risk.Seed)
	b.CurrentPoint = session.CurrentPoint()

	a.log.Info("report built: %d positions, %d valued days, value %.2f %s, %d cached series",
		len(b.Positions), len(b.Dates), b.PortfolioValue, currencyCode, a.provider.GetCacheSize())
	return b, nil
}

// prefetch loads each symbol's close history concurrently. A failed symbol is
// logged and left out; only cancellation aborts.
func (a *Assembler) prefetch(ctx context.Context, symbols []string, from, to time.Time) (map[string]data.Series, error) {
	var mu sync.Mutex
	history := make(map[string]data.Series, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for _, symbol := range symbols {
		g.Go(func() error {
			s, err := a.provider.Series(gctx, symbol, types.MetricClose, from, to)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				a.log.Warning("history for %s unavailable: %v", symbol, err)
				if a.health != nil {
					a.health.RecordError(err)
				}
				return nil
			}
			mu.Lock()
			history[symbol] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return history, nil
}

func hasCost(positions map[string]ledger.Position) bool {
	for _, p := range positions {
		if !p.NetCost.IsZero() {
			return true
		}
	}
	return false
}

// priceMatrix lays the histories out one row per calendar day in the window,
// NaN where a day has no close. Symbols without any history are omitted.
func priceMatrix(symbols []string, history map[string]data.Series, from, to time.Time, rate float64) ([]string, []string, [][]float64) {
	var days []string
	for d := types.StartOfDay(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, types.DayKey(d))
	}

	var priced []string
	var byDay []map[string]float64
	for _, symbol := range symbols {
		if len(history[symbol]) == 0 {
			continue
		}
		priced = append(priced, symbol)
		byDay = append(byDay, history[symbol].ByDay())
	}

	matrix := make([][]float64, len(days))
	for i, day := range days {
		row := make([]float64, len(priced))
		for j := range priced {
			if v, ok := byDay[j][day]; ok {
				row[j] = v * rate
			} else {
				row[j] = math.NaN()
			}
		}
		matrix[i] = row
	}
	return days, priced, matrix
}

// priceHistory forward-fills the matrix into day -> symbol -> price, leaving
// out symbols before their first price
func priceHistory(days, symbols []string, matrix [][]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(days))
	last := make([]float64, len(symbols))
	for j := range last {
		last[j] = math.NaN()
	}
	for i, day := range days {
		row := make(map[string]float64, len(symbols))
		for j, symbol := range symbols {
			if v := matrix[i][j]; !math.IsNaN(v) {
				last[j] = v
			}
			if !math.IsNaN(last[j]) {
				row[symbol] = last[j]
			}
		}
		out[day] = row
	}
	return out
}

func dayTimes(days []string) []time.Time {
	out := make([]time.Time, len(days))
	for i, d := range days {
		out[i], _ = time.Parse(types.DayLayout, d)
	}
	return out
}
