package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_Empty(t *testing.T) {
	m := NewEngine(DefaultConfig()).Calculate(nil, 1000)

	assert.Zero(t, m.Mean)
	assert.Zero(t, m.Variance)
	assert.Zero(t, m.Max)
	assert.Zero(t, m.Min)
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.ValueAtRiskDollar)
	assert.Empty(t, m.MonteCarloSimulatedReturns)
	assert.Empty(t, m.RollingStdDev)
}

func TestCalculate_SinglePrice(t *testing.T) {
	m := NewEngine(DefaultConfig()).Calculate([]float64{100}, 1000)

	assert.Equal(t, 100.0, m.Mean)
	assert.Equal(t, 100.0, m.Max)
	assert.Equal(t, 100.0, m.Min)
	assert.Zero(t, m.StdDev)
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.SortinoRatio)
	assert.Zero(t, m.ValueAtRisk)
	assert.Zero(t, m.MonteCarloVaRDollar)
	assert.Empty(t, m.RollingStdDev)
}

func TestCalculate_HistoricalVaR(t *testing.T) {
	prices := []float64{100, 105, 95, 110, 90, 95, 100}
	m := NewEngine(DefaultConfig()).Calculate(prices, 1000)

	assert.InDelta(t, -37.0/231.0, m.ValueAtRisk, 1e-12)
	assert.InDelta(t, -1000*37.0/231.0, m.ValueAtRiskDollar, 1e-9)
	assert.Equal(t, 110.0, m.Max)
	assert.Equal(t, 90.0, m.Min)
	assert.InDelta(t, 695.0/7.0, m.Mean, 1e-12)
	assert.InDelta(t, m.Variance, m.StdDev*m.StdDev, 1e-9)
	assert.Equal(t, 0.95, m.Confidence)

	assert.False(t, math.IsNaN(m.SharpeRatio))
	assert.False(t, math.IsNaN(m.SortinoRatio))
	// every return sits well below the 2% hurdle on average
	assert.Less(t, m.SharpeRatio, 0.0)
	assert.Less(t, m.SortinoRatio, 0.0)
}

func TestCalculate_ReportsConfiguredConfidence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Confidence = 0.99
	m := NewEngine(cfg).Calculate([]float64{100, 105, 95}, 1000)

	assert.Equal(t, 0.99, m.Confidence)
}

func TestCalculate_ZeroPriceShortCircuits(t *testing.T) {
	m := NewEngine(DefaultConfig()).Calculate([]float64{0, 10, 20}, 500)

	assert.Equal(t, 10.0, m.Mean)
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.ValueAtRisk)
	assert.Empty(t, m.MonteCarloSimulatedReturns)
	assert.Empty(t, m.RollingStdDev)
}

func TestCalculate_SingleDownsideReturn(t *testing.T) {
	m := NewEngine(DefaultConfig()).Calculate([]float64{100, 110, 105, 120}, 1000)
	assert.Zero(t, m.SortinoRatio)
}

func TestCalculate_NoDownsideReturns(t *testing.T) {
	m := NewEngine(DefaultConfig()).Calculate([]float64{100, 101, 103, 107}, 1000)
	assert.Zero(t, m.SortinoRatio)
}

func TestCalculate_SeededMonteCarloIsReproducible(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.Simulations = 200
	engine := NewEngine(cfg)

	prices := []float64{100, 102, 99, 104, 101, 107, 103}
	first := engine.Calculate(prices, 10000)
	second := engine.Calculate(prices, 10000)

	require.Len(t, first.MonteCarloSimulatedReturns, 200)
	assert.Equal(t, first.MonteCarloSimulatedReturns, second.MonteCarloSimulatedReturns)
	assert.Equal(t, first.MonteCarloVaRDollar, second.MonteCarloVaRDollar)
	assert.InDelta(t, 10000*Percentile(first.MonteCarloSimulatedReturns, 5), first.MonteCarloVaRDollar, 1e-9)
}

func TestCalculate_MonteCarloZeroVolatility(t *testing.T) {
	m := NewEngine(DefaultConfig()).Calculate([]float64{100, 200, 400}, 10)

	for _, r := range m.MonteCarloSimulatedReturns {
		assert.Equal(t, 1.0, r)
	}
	assert.InDelta(t, 10.0, m.MonteCarloVaRDollar, 1e-12)
}

func TestCalculate_RollingWindowLength(t *testing.T) {
	tests := []struct {
		name   string
		prices int
		want   int
	}{
		{"shorter than window", 30, 0},
		{"exactly window plus one", 31, 1},
		{"longer", 40, 10},
	}

	engine := NewEngine(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prices := make([]float64, tt.prices)
			for i := range prices {
				prices[i] = 100 + float64(i%7)
			}
			m := engine.Calculate(prices, 1)
			assert.Len(t, m.RollingStdDev, tt.want)
			for _, v := range m.RollingStdDev {
				assert.GreaterOrEqual(t, v, 0.0)
			}
		})
	}
}

func TestNewEngine_FillsDefaults(t *testing.T) {
	cfg := NewEngine(Config{RiskFreeRate: 0.01}).Config()

	assert.Equal(t, 0.01, cfg.RiskFreeRate)
	assert.Equal(t, 0.95, cfg.Confidence)
	assert.Equal(t, 1000, cfg.Simulations)
	assert.Equal(t, 30, cfg.RollingWindow)
}

func TestReturns(t *testing.T) {
	assert.Nil(t, Returns([]float64{5}))
	assert.Nil(t, Returns([]float64{5, 0, 3}))
	assert.Equal(t, []float64{1, -0.5}, Returns([]float64{2, 4, 2}))
}

func TestRollingStdDev(t *testing.T) {
	out := RollingStdDev([]float64{1, 3, 1, 3}, 2)
	assert.Equal(t, []float64{1, 1, 1}, out)
	assert.Empty(t, RollingStdDev([]float64{1}, 2))
}
