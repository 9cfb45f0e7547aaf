package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ducminhle1904/portfolio-analytics/internal/errors"
	"github.com/ducminhle1904/portfolio-analytics/pkg/data"
	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

func f(v float64) *float64 { return &v }

func trade(symbol string, qty, price float64, date string) types.TradeInput {
	return types.TradeInput{Symbol: symbol, Quantity: f(qty), PurchasePrice: f(price), Date: date}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

// countingProvider wraps a provider and counts PointValue calls
type countingProvider struct {
	data.HistoryProvider
	points int
	err    error
}

func (c *countingProvider) PointValue(ctx context.Context, symbol, metric string, from, to time.Time) (float64, bool, error) {
	c.points++
	if c.err != nil {
		return 0, false, c.err
	}
	return c.HistoryProvider.PointValue(ctx, symbol, metric, from, to)
}

// TestAggregate_RoundTrip tests a single trade valued at the latest close
func TestAggregate_RoundTrip(t *testing.T) {
	mem := data.NewMemoryProvider()
	mem.Add("AAPL", types.MetricClose, day(2024, 3, 1), 160)

	l := New(mem, fixedClock(day(2024, 3, 1)))
	require.NoError(t, l.AddTrades([]types.TradeInput{trade("AAPL", 10, 150, "2024-03-01")}))

	positions, err := l.Aggregate(context.Background())
	require.NoError(t, err)
	require.Contains(t, positions, "AAPL")

	p := positions["AAPL"]
	assert.True(t, p.NetCost.Equal(decimal.NewFromInt(1500)), p.NetCost.String())
	assert.True(t, p.NetQuantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, p.AverageCost.Equal(decimal.NewFromInt(150)))
	assert.True(t, p.CurrentValue.Equal(decimal.NewFromInt(1600)))
	assert.True(t, p.Priced)
}

// TestAggregate_MultipleTrades tests accumulation across trades of one symbol
func TestAggregate_MultipleTrades(t *testing.T) {
	mem := data.NewMemoryProvider()
	mem.Add("MSFT", types.MetricClose, day(2024, 2, 10), 400)

	l := New(mem, fixedClock(day(2024, 3, 1)))
	require.NoError(t, l.AddTrades([]types.TradeInput{
		trade("MSFT", 2, 300, "2024-01-02"),
		trade("MSFT", 6, 380, "2024-02-01"),
		trade("TSLA", 1, 200, "2024-02-01"),
	}))

	positions, err := l.Aggregate(context.Background())
	require.NoError(t, err)

	msft := positions["MSFT"]
	assert.Equal(t, "2880", msft.NetCost.String())
	assert.Equal(t, "8", msft.NetQuantity.String())
	assert.Equal(t, "360", msft.AverageCost.String())
	assert.Equal(t, "3200", msft.CurrentValue.String())

	// no close for TSLA: valued at zero, not an error
	tsla := positions["TSLA"]
	assert.True(t, tsla.CurrentValue.IsZero())
	assert.False(t, tsla.Priced)

	assert.Equal(t, "3200", TotalCurrentValue(positions).String())
	assert.Equal(t, []string{"MSFT", "TSLA"}, l.Symbols())
}

// TestAggregate_Idempotent tests that a second call returns the memoized result
func TestAggregate_Idempotent(t *testing.T) {
	mem := data.NewMemoryProvider()
	mem.Add("AAPL", types.MetricClose, day(2024, 3, 1), 160.37)
	counting := &countingProvider{HistoryProvider: mem}

	l := New(counting, fixedClock(day(2024, 3, 2)))
	require.NoError(t, l.AddTrades([]types.TradeInput{
		trade("AAPL", 3.3, 151.17, "2024-01-05"),
		trade("AAPL", 1.1, 149.9, "2024-02-05"),
	}))

	first, err := l.Aggregate(context.Background())
	require.NoError(t, err)
	second, err := l.Aggregate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, counting.points)
}

// TestAggregate_InvalidatedByAddTrades tests that new trades are reflected
func TestAggregate_InvalidatedByAddTrades(t *testing.T) {
	mem := data.NewMemoryProvider()
	mem.Add("AAPL", types.MetricClose, day(2024, 3, 1), 100)

	l := New(mem, fixedClock(day(2024, 3, 2)))
	require.NoError(t, l.AddTrades([]types.TradeInput{trade("AAPL", 1, 90, "2024-01-01")}))
	before, err := l.Aggregate(context.Background())
	require.NoError(t, err)

	require.NoError(t, l.AddTrades([]types.TradeInput{trade("AAPL", 1, 110, "2024-02-01")}))
	after, err := l.Aggregate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "1", before["AAPL"].NetQuantity.String())
	assert.Equal(t, "2", after["AAPL"].NetQuantity.String())
	assert.Equal(t, "100", after["AAPL"].AverageCost.String())
}

// TestAggregate_ProviderErrorDegrades tests that a failing lookup values the position at zero
func TestAggregate_ProviderErrorDegrades(t *testing.T) {
	counting := &countingProvider{HistoryProvider: data.NewMemoryProvider(), err: errors.New("database is locked")}

	l := New(counting, fixedClock(day(2024, 3, 2)))
	require.NoError(t, l.AddTrades([]types.TradeInput{trade("AAPL", 1, 90, "2024-01-01")}))

	positions, err := l.Aggregate(context.Background())
	require.NoError(t, err)
	assert.True(t, positions["AAPL"].CurrentValue.IsZero())
}

// TestAddTrades_Validation tests that malformed records are rejected as a batch
func TestAddTrades_Validation(t *testing.T) {
	// zone abbreviations resolve against the host zone
	saved := time.Local
	time.Local = time.UTC
	t.Cleanup(func() { time.Local = saved })

	tests := []struct {
		name  string
		input types.TradeInput
	}{
		{"missing symbol", trade(" ", 1, 1, "2024-01-01")},
		{"missing quantity", types.TradeInput{Symbol: "AAPL", PurchasePrice: f(1), Date: "2024-01-01"}},
		{"missing price", types.TradeInput{Symbol: "AAPL", Quantity: f(1), Date: "2024-01-01"}},
		{"zero quantity", trade("AAPL", 0, 1, "2024-01-01")},
		{"negative price", trade("AAPL", 1, -1, "2024-01-01")},
		{"bad date", trade("AAPL", 1, 1, "yesterday")},
		{"empty date", trade("AAPL", 1, 1, "")},
		{"unknown zone abbreviation", trade("AAPL", 1, 1, "Fri, 05 Jan 2024 22:00:00 EST")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(data.NewMemoryProvider())
			err := l.AddTrades([]types.TradeInput{trade("GOOD", 1, 1, "2024-01-01"), tt.input})
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Empty(t, l.Trades(), "no trade may be appended when one is invalid")
		})
	}
}

// TestAddTrades_AssignsIDs tests that missing IDs are generated and given IDs kept
func TestAddTrades_AssignsIDs(t *testing.T) {
	l := New(data.NewMemoryProvider())
	in := trade("AAPL", 1, 1, "2024-01-01")
	kept := trade("AAPL", 1, 1, "2024-01-02")
	kept.ID = "t-42"
	require.NoError(t, l.AddTrades([]types.TradeInput{in, kept}))

	trades := l.Trades()
	assert.NotEmpty(t, trades[0].ID)
	assert.Equal(t, "t-42", trades[1].ID)
}

// TestTradeDateValues tests valuation of each trade at its own trade date
func TestTradeDateValues(t *testing.T) {
	mem := data.NewMemoryProvider()
	mem.Add("AAPL", types.MetricClose, day(2024, 1, 1), 100)
	mem.Add("AAPL", types.MetricClose, day(2024, 2, 1), 120)

	l := New(mem)
	require.NoError(t, l.AddTrades([]types.TradeInput{
		trade("AAPL", 2, 95, "2024-01-15"),
		trade("AAPL", 1, 118, "2024-02-01T10:00:00Z"),
		trade("NOPE", 1, 1, "2024-02-01"),
	}))

	values, err := l.TradeDateValues(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "320", values["AAPL"].String())
	assert.NotContains(t, values, "NOPE")
}
