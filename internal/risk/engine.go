package risk

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Config holds the parameters of the risk statistics
type Config struct {
	// RiskFreeRate is subtracted from every per-period return as is
	RiskFreeRate float64
	// Confidence is the VaR confidence level, e.g. 0.95
	Confidence float64
	// Simulations is the Monte Carlo sample size
	Simulations int
	// RollingWindow is the number of returns per rolling volatility window
	RollingWindow int
	// Seed makes Monte Carlo draws reproducible; 0 seeds from the clock
	Seed uint64
}

// DefaultConfig returns the standard risk parameters
func DefaultConfig() Config {
	return Config{
		RiskFreeRate:  0.02,
		Confidence:    0.95,
		Simulations:   1000,
		RollingWindow: 30,
	}
}

// Metrics is the bundle of statistics for one value series
type Metrics struct {
	Confidence                 float64   `json:"confidence"`
	Mean                       float64   `json:"mean"`
	Variance                   float64   `json:"variance"`
	StdDev                     float64   `json:"std_dev"`
	Max                        float64   `json:"max"`
	Min                        float64   `json:"min"`
	SharpeRatio                float64   `json:"sharpe_ratio"`
	SortinoRatio               float64   `json:"sortino_ratio"`
	ValueAtRisk                float64   `json:"value_at_risk"`
	ValueAtRiskDollar          float64   `json:"value_at_risk_dollar"`
	MonteCarloVaRDollar        float64   `json:"monte_carlo_var"`
	MonteCarloSimulatedReturns []float64 `json:"monte_carlo_simulated_returns"`
	RollingStdDev              []float64 `json:"rolling_std_dev"`
}

// Engine computes Metrics. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine, filling unset parameters from DefaultConfig
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Confidence <= 0 || cfg.Confidence >= 1 {
		cfg.Confidence = def.Confidence
	}
	if cfg.Simulations <= 0 {
		cfg.Simulations = def.Simulations
	}
	if cfg.RollingWindow <= 0 {
		cfg.RollingWindow = def.RollingWindow
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Calculate computes every statistic for a chronological value series.
// Return-based statistics are zero (or empty) when fewer than two values are
// given or any value used as a divisor is zero.
func (e *Engine) Calculate(prices []float64, portfolioValue float64) Metrics {
	m := Metrics{
		Confidence:                 e.cfg.Confidence,
		MonteCarloSimulatedReturns: []float64{},
		RollingStdDev:              []float64{},
	}
	if len(prices) == 0 {
		return m
	}

	m.Mean = stat.Mean(prices, nil)
	m.Variance = stat.PopVariance(prices, nil)
	m.StdDev = math.Sqrt(m.Variance)
	m.Max = floats.Max(prices)
	m.Min = floats.Min(prices)

	returns := Returns(prices)
	if len(returns) == 0 {
		return m
	}

	m.SharpeRatio = e.sharpe(returns)
	m.SortinoRatio = e.sortino(returns)
	m.ValueAtRisk = Percentile(returns, e.tailPercent())
	m.ValueAtRiskDollar = portfolioValue * m.ValueAtRisk
	m.MonteCarloVaRDollar, m.MonteCarloSimulatedReturns = e.monteCarlo(returns, portfolioValue)
	m.RollingStdDev = RollingStdDev(returns, e.cfg.RollingWindow)

	return sanitize(m)
}

// Returns computes simple period returns diff(p)/p[:-1]. It returns nil when
// fewer than two prices are given or any divisor is zero.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			return nil
		}
		out[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
	}
	return out
}

func (e *Engine) tailPercent() float64 {
	return (1 - e.cfg.Confidence) * 100
}

func (e *Engine) excess(returns []float64) []float64 {
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = r - e.cfg.RiskFreeRate
	}
	return out
}

func (e *Engine) sharpe(returns []float64) float64 {
	excess := e.excess(returns)
	std := stat.PopStdDev(excess, nil)
	if std == 0 {
		return 0
	}
	return stat.Mean(excess, nil) / std
}

func (e *Engine) sortino(returns []float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return 0
	}

	// a single downside return has zero dispersion
	std := stat.PopStdDev(downside, nil)
	if std == 0 {
		return 0
	}
	return stat.Mean(e.excess(returns), nil) / std
}

func (e *Engine) monteCarlo(returns []float64, portfolioValue float64) (float64, []float64) {
	mean := stat.Mean(returns, nil)
	std := stat.PopStdDev(returns, nil)

	rng := e.newRand()
	simulated := make([]float64, e.cfg.Simulations)
	for i := range simulated {
		simulated[i] = mean + std*rng.NormFloat64()
	}

	return portfolioValue * Percentile(simulated, e.tailPercent()), simulated
}

// newRand returns a fresh source per call so a seeded engine repeats its draws
func (e *Engine) newRand() *rand.Rand {
	seed := e.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RollingStdDev returns the population standard deviation of every contiguous
// window of the returns, advancing one step at a time
func RollingStdDev(returns []float64, window int) []float64 {
	if window <= 0 || len(returns) < window {
		return []float64{}
	}
	out := make([]float64, 0, len(returns)-window+1)
	for i := 0; i+window <= len(returns); i++ {
		out = append(out, stat.PopStdDev(returns[i:i+window], nil))
	}
	return out
}

// sanitize replaces non-finite ratios with zero
func sanitize(m Metrics) Metrics {
	for _, f := range []*float64{&m.SharpeRatio, &m.SortinoRatio, &m.ValueAtRisk, &m.ValueAtRiskDollar, &m.MonteCarloVaRDollar} {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
		}
	}
	return m
}
