package optimizer

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "github.com/ducminhle1904/portfolio-analytics/internal/errors"
	"github.com/ducminhle1904/portfolio-analytics/internal/logger"
)

// Config holds the optimizer parameters
type Config struct {
	// RiskFreeRate is annual; objectives use RiskFreeRate / TradingDays per day
	RiskFreeRate float64
	TradingDays  int
	// Confidence sets the tail used by the cvar objective
	Confidence float64
	Logger     *logger.Logger
}

// DefaultConfig returns the standard optimizer parameters
func DefaultConfig() Config {
	return Config{
		RiskFreeRate: 0.02,
		TradingDays:  252,
		Confidence:   0.95,
	}
}

// Session holds the read-only matrices for one set of holdings. Optimize may
// be called from several goroutines at once.
type Session struct {
	symbols []string
	dates   []time.Time

	// returns is rows(dates) x cols(symbols)
	returns   *mat.Dense
	mean      []float64
	cov       *mat.SymDense
	benchmark []float64
	current   []float64

	rfDaily    float64
	confidence float64
	log        *logger.Logger
}

// NewSession builds a session from a price matrix of len(dates) rows by
// len(symbols) columns. NaN marks a missing price; gaps are forward-filled and
// rows with any undefined return are dropped. Symbols that never have a price
// are excluded.
func NewSession(symbols []string, dates []time.Time, prices [][]float64, quantities map[string]float64, cfg Config) (*Session, error) {
	if len(prices) != len(dates) {
		return nil, apperrors.NewValidationError("optimizer", "new_session",
			fmt.Sprintf("%d price rows for %d dates", len(prices), len(dates)))
	}
	for i, row := range prices {
		if len(row) != len(symbols) {
			return nil, apperrors.NewValidationError("optimizer", "new_session",
				fmt.Sprintf("row %d has %d prices for %d symbols", i, len(row), len(symbols)))
		}
	}

	def := DefaultConfig()
	if cfg.TradingDays <= 0 {
		cfg.TradingDays = def.TradingDays
	}
	if cfg.Confidence <= 0 || cfg.Confidence >= 1 {
		cfg.Confidence = def.Confidence
	}

	filled := forwardFill(prices, len(symbols))
	keep := pricedColumns(filled, len(symbols))

	s := &Session{
		rfDaily:    cfg.RiskFreeRate / float64(cfg.TradingDays),
		confidence: cfg.Confidence,
		log:        cfg.Logger,
	}
	for _, j := range keep {
		s.symbols = append(s.symbols, symbols[j])
	}

	n := len(s.symbols)
	if n == 0 {
		return s, nil
	}

	var rows [][]float64
	for t := 1; t < len(filled); t++ {
		row := make([]float64, n)
		valid := true
		for k, j := range keep {
			prev, cur := filled[t-1][j], filled[t][j]
			if math.IsNaN(prev) || math.IsNaN(cur) || prev == 0 {
				valid = false
				break
			}
			row[k] = (cur - prev) / prev
		}
		if valid {
			rows = append(rows, row)
			s.dates = append(s.dates, dates[t])
		}
	}

	s.mean = make([]float64, n)
	s.current = currentWeights(filled, keep, s.symbols, quantities)

	if len(rows) == 0 {
		s.returns = nil
		s.cov = mat.NewSymDense(n, nil)
		return s, nil
	}

	s.returns = mat.NewDense(len(rows), n, nil)
	for i, row := range rows {
		s.returns.SetRow(i, row)
	}
	for j := 0; j < n; j++ {
		s.mean[j] = stat.Mean(mat.Col(nil, j, s.returns), nil)
	}

	s.cov = mat.NewSymDense(n, nil)
	if len(rows) > 1 {
		stat.CovarianceMatrix(s.cov, s.returns, nil)
	}

	s.benchmark = make([]float64, len(rows))
	for i, row := range rows {
		s.benchmark[i] = stat.Mean(row, nil)
	}

	s.log.Debug("session built: %d symbols, %d return rows", n, len(rows))
	return s, nil
}

func forwardFill(prices [][]float64, cols int) [][]float64 {
	out := make([][]float64, len(prices))
	last := make([]float64, cols)
	for j := range last {
		last[j] = math.NaN()
	}
	for i, row := range prices {
		out[i] = make([]float64, cols)
		for j, v := range row {
			if !math.IsNaN(v) {
				last[j] = v
			}
			out[i][j] = last[j]
		}
	}
	return out
}

func pricedColumns(prices [][]float64, cols int) []int {
	var keep []int
	for j := 0; j < cols; j++ {
		for _, row := range prices {
			if !math.IsNaN(row[j]) {
				keep = append(keep, j)
				break
			}
		}
	}
	return keep
}

// currentWeights is quantity x latest price over the total current value
func currentWeights(prices [][]float64, keep []int, symbols []string, quantities map[string]float64) []float64 {
	weights := make([]float64, len(keep))
	if len(prices) == 0 {
		return weights
	}
	last := prices[len(prices)-1]

	total := 0.0
	for k, j := range keep {
		price := last[j]
		if math.IsNaN(price) {
			continue
		}
		weights[k] = quantities[symbols[k]] * price
		total += weights[k]
	}
	if total <= 0 {
		return make([]float64, len(keep))
	}
	floats.Scale(1/total, weights)
	return weights
}

// Symbols returns the optimized symbols in column order
func (s *Session) Symbols() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Observations is the number of usable return rows
func (s *Session) Observations() int {
	if s.returns == nil {
		return 0
	}
	r, _ := s.returns.Dims()
	return r
}

// MeanReturns returns the per-symbol mean daily return
func (s *Session) MeanReturns() []float64 {
	out := make([]float64, len(s.mean))
	copy(out, s.mean)
	return out
}

// CurrentWeights returns the weights implied by the current holdings
func (s *Session) CurrentWeights() map[string]float64 {
	return s.weightMap(s.current)
}

// Performance returns the expected daily return and the standard deviation
// of the portfolio with weights w
func (s *Session) Performance(w []float64) (float64, float64) {
	if len(w) != len(s.symbols) || len(w) == 0 {
		return 0, 0
	}
	ret := floats.Dot(w, s.mean)
	v := mat.NewVecDense(len(w), w)
	variance := mat.Inner(v, s.cov, v)
	if variance < 0 {
		variance = 0
	}
	return ret, math.Sqrt(variance)
}

// portfolioReturns is the weighted daily return series
func (s *Session) portfolioReturns(w []float64) []float64 {
	if s.returns == nil {
		return nil
	}
	rows, _ := s.returns.Dims()
	out := mat.NewVecDense(rows, nil)
	out.MulVec(s.returns, mat.NewVecDense(len(w), w))
	return out.RawVector().Data
}

func (s *Session) weightMap(w []float64) map[string]float64 {
	out := make(map[string]float64, len(s.symbols))
	for i, sym := range s.symbols {
		if i < len(w) {
			out[sym] = w[i]
		}
	}
	return out
}
