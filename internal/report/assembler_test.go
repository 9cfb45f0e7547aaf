package report

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ducminhle1904/portfolio-analytics/internal/errors"
	"github.com/ducminhle1904/portfolio-analytics/internal/logger"
	"github.com/ducminhle1904/portfolio-analytics/internal/optimizer"
	"github.com/ducminhle1904/portfolio-analytics/pkg/data"
	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

var asOf = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }

func trade(symbol string, qty, price float64, date string) types.TradeInput {
	return types.TradeInput{Symbol: symbol, Quantity: f(qty), PurchasePrice: f(price), Date: date}
}

func aaplClose(i int) float64 { return 150 + 10*math.Sin(float64(i)/5) + float64(i)*0.1 }
func msftClose(i int) float64 { return 300 + 15*math.Cos(float64(i)/7) + float64(i)*0.2 }

// seededProvider holds daily closes from 2024-01-01 through asOf
func seededProvider() *data.MemoryProvider {
	mem := data.NewMemoryProvider()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; !start.AddDate(0, 0, i).After(asOf); i++ {
		d := start.AddDate(0, 0, i)
		mem.Add("AAPL", types.MetricClose, d, aaplClose(i))
		mem.Add("MSFT", types.MetricClose, d, msftClose(i))
	}
	return mem
}

// lastIndex is the day offset of asOf from 2024-01-01
const lastIndex = 90

// seriesCounter counts Series calls per symbol for windows ending today
type seriesCounter struct {
	data.HistoryProvider
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func (c *seriesCounter) Series(ctx context.Context, symbol, metric string, from, to time.Time) (data.Series, error) {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	if to.Equal(types.EndOfDay(asOf)) {
		c.calls[symbol]++
	}
	failing := c.fail[symbol]
	c.mu.Unlock()

	if failing {
		return nil, errors.New("store unavailable")
	}
	return c.HistoryProvider.Series(ctx, symbol, metric, from, to)
}

func newAssembler(provider data.HistoryProvider) *Assembler {
	cfg := DefaultConfig()
	cfg.Risk.Seed = 11
	cfg.FrontierSamples = 25
	return NewAssembler(provider, cfg, WithClock(func() time.Time { return asOf }))
}

func TestComputePortfolioReport_FullFlow(t *testing.T) {
	counter := &seriesCounter{HistoryProvider: seededProvider()}
	a := newAssembler(counter)

	trades := []types.TradeInput{
		trade("AAPL", 10, 150, "2024-02-01"),
		trade("MSFT", 5, 300, "2024-03-01T09:30:00Z"),
	}
	b, err := a.ComputePortfolioReport(context.Background(), trades, "usd", DefaultCash, nil)
	require.NoError(t, err)

	assert.Equal(t, "USD", b.Currency)
	require.Len(t, b.Positions, 2)
	assert.Equal(t, "AAPL", b.Positions[0].Symbol)
	assert.Equal(t, 1500.0, b.Positions[0].NetCost)
	assert.Equal(t, 150.0, b.Positions[0].AverageCost)
	assert.InDelta(t, 10*aaplClose(lastIndex), b.Positions[0].CurrentValue, 1e-9)
	assert.True(t, b.Positions[0].Priced)
	assert.InDelta(t, 10*aaplClose(31), b.Positions[0].TradeDateValue, 1e-9)

	// valued from the first trade day through today, both inclusive
	require.Len(t, b.Dates, 60)
	assert.Equal(t, "2024-02-01", b.Dates[0])
	assert.Equal(t, "2024-03-31", b.Dates[len(b.Dates)-1])
	require.Len(t, b.Values, len(b.Dates))
	assert.InDelta(t, 10*aaplClose(31), b.Values[0], 1e-9)
	assert.InDelta(t, 10*aaplClose(lastIndex)+5*msftClose(lastIndex), b.Values[len(b.Values)-1], 1e-9)

	assert.InDelta(t, b.Positions[0].CurrentValue+b.Positions[1].CurrentValue, b.PortfolioValue, 1e-9)
	assert.Greater(t, b.RiskMetrics.Mean, 0.0)
	assert.Len(t, b.RiskMetrics.RollingStdDev, len(b.Values)-1-30+1)

	assert.InDelta(t, aaplClose(lastIndex), b.PriceHistory["2024-03-31"]["AAPL"], 1e-9)
	assert.InDelta(t, msftClose(0), b.PriceHistory["2024-01-01"]["MSFT"], 1e-9)

	require.Len(t, b.Optimizations, len(optimizer.Methods))
	assert.Equal(t, len(optimizer.Methods), len(b.SortedMethods()))
	for _, m := range b.SortedMethods() {
		res := b.Optimizations[m]
		assert.Equal(t, []string{"AAPL", "MSFT"}, res.Symbols, m)
		if !res.Success {
			continue
		}
		sum := 0.0
		for _, w := range res.OptimalWeights {
			assert.GreaterOrEqual(t, w, 0.0)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-6, m)
	}
	assert.True(t, b.Optimizations["min_variance"].Success)
	assert.Len(t, b.Frontier, 25)

	// the ledger, valuation and optimizer all read the same cached window
	assert.Equal(t, 1, counter.calls["AAPL"])
	assert.Equal(t, 1, counter.calls["MSFT"])
}

func TestComputePortfolioReport_ConvertsCurrency(t *testing.T) {
	a := newAssembler(seededProvider())

	trades := []types.TradeInput{trade("AAPL", 10, 150, "2024-02-01")}
	usd, err := a.ComputePortfolioReport(context.Background(), trades, "USD", 1000, []optimizer.Request{{Method: "min_variance"}})
	require.NoError(t, err)
	inr, err := a.ComputePortfolioReport(context.Background(), trades, "INR", 1000, []optimizer.Request{{Method: "min_variance"}})
	require.NoError(t, err)

	assert.Equal(t, 1500.0*75, inr.Positions[0].NetCost)
	assert.InDelta(t, usd.PortfolioValue*75, inr.PortfolioValue, 1e-6)
	assert.InDelta(t, usd.Values[0]*75, inr.Values[0], 1e-6)
	assert.InDelta(t, usd.RiskMetrics.SharpeRatio, inr.RiskMetrics.SharpeRatio, 1e-9)
	require.Len(t, inr.Optimizations, 1)
}

// TestComputePortfolioReport_FreshCachePerReport tests that a reused assembler
// refetches history and logs how much it cached
func TestComputePortfolioReport_FreshCachePerReport(t *testing.T) {
	var buf bytes.Buffer
	counter := &seriesCounter{HistoryProvider: seededProvider()}
	cfg := DefaultConfig()
	cfg.Risk.Seed = 11
	a := NewAssembler(counter, cfg,
		WithClock(func() time.Time { return asOf }),
		WithLogger(logger.New(&buf, "report", logger.LogLevelInfo)))

	trades := []types.TradeInput{trade("AAPL", 10, 150, "2024-02-01")}
	requests := []optimizer.Request{{Method: "min_variance"}}
	for i := 0; i < 2; i++ {
		_, err := a.ComputePortfolioReport(context.Background(), trades, "USD", 1000, requests)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, counter.calls["AAPL"])
	assert.Contains(t, buf.String(), "cached series")

	_, err := a.ComputePortfolioReport(context.Background(), trades, "XQQ", 1000, requests)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "report failed")
}

func TestComputePortfolioReport_EmptyPortfolio(t *testing.T) {
	a := newAssembler(seededProvider())

	b, err := a.ComputePortfolioReport(context.Background(), nil, "USD", DefaultCash, nil)
	require.NoError(t, err)

	assert.True(t, b.IsEmpty())
	assert.Empty(t, b.Dates)
	assert.Empty(t, b.Values)
	assert.Zero(t, b.RiskMetrics.Mean)
	assert.Empty(t, b.RiskMetrics.MonteCarloSimulatedReturns)
	require.Len(t, b.Optimizations, len(optimizer.Methods))
	for m, res := range b.Optimizations {
		assert.False(t, res.Success, m)
		assert.Equal(t, optimizer.MessageNoAssets, res.Message)
	}
}

func TestComputePortfolioReport_UnpricedSymbolDegrades(t *testing.T) {
	counter := &seriesCounter{HistoryProvider: seededProvider(), fail: map[string]bool{"MSFT": true}}
	a := newAssembler(counter)

	trades := []types.TradeInput{
		trade("ZZZ", 3, 20, "2024-03-01"),
		trade("MSFT", 1, 300, "2024-03-01"),
	}
	b, err := a.ComputePortfolioReport(context.Background(), trades, "USD", DefaultCash, nil)
	require.NoError(t, err)

	require.Len(t, b.Positions, 2)
	for _, p := range b.Positions {
		assert.False(t, p.Priced, p.Symbol)
		assert.Zero(t, p.CurrentValue)
	}
	assert.Empty(t, b.Values)
	assert.Zero(t, b.PortfolioValue)
	for _, res := range b.Optimizations {
		assert.False(t, res.Success)
		assert.Equal(t, optimizer.MessageNoAssets, res.Message)
	}
}

func TestComputePortfolioReport_ValidationErrors(t *testing.T) {
	a := newAssembler(seededProvider())
	ctx := context.Background()
	good := []types.TradeInput{trade("AAPL", 1, 150, "2024-02-01")}

	_, err := a.ComputePortfolioReport(ctx, good, "XQQ", 1, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = a.ComputePortfolioReport(ctx, good, "USD", 1, []optimizer.Request{{Method: "momentum"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimizer.ErrUnknownMethod))

	bad := []types.TradeInput{{Symbol: "AAPL", Quantity: f(1), Date: "2024-02-01"}}
	_, err = a.ComputePortfolioReport(ctx, bad, "USD", 1, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestComputePortfolioReport_Cancelled(t *testing.T) {
	a := newAssembler(seededProvider())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.ComputePortfolioReport(ctx, []types.TradeInput{trade("AAPL", 1, 150, "2024-02-01")}, "USD", 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultRequests(t *testing.T) {
	reqs := DefaultRequests()
	require.Len(t, reqs, 10)

	for _, r := range reqs {
		switch optimizer.Method(r.Method) {
		case optimizer.MethodTargetReturn:
			require.NotNil(t, r.TargetReturn)
			assert.Equal(t, DefaultTargetReturn, *r.TargetReturn)
		case optimizer.MethodUtility:
			require.NotNil(t, r.RiskAversion)
			assert.Equal(t, DefaultRiskAversion, *r.RiskAversion)
		default:
			assert.Nil(t, r.TargetReturn)
			assert.Nil(t, r.RiskAversion)
		}
	}
}
