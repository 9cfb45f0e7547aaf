package report

import (
	"sort"
	"time"

	"github.com/ducminhle1904/portfolio-analytics/internal/optimizer"
	"github.com/ducminhle1904/portfolio-analytics/internal/risk"
)

// Consolidated is one symbol's position in the report currency
type Consolidated struct {
	Symbol         string  `json:"symbol"`
	Quantity       float64 `json:"quantity"`
	NetCost        float64 `json:"net_cost"`
	AverageCost    float64 `json:"average_cost"`
	CurrentValue   float64 `json:"current_value"`
	TradeDateValue float64 `json:"trade_date_value"`
	Priced         bool    `json:"priced"`
}

// Bundle is the assembled portfolio report. Monetary fields are in Currency.
type Bundle struct {
	Currency       string                      `json:"currency"`
	GeneratedAt    time.Time                   `json:"generated_at"`
	Dates          []string                    `json:"dates"`
	Values         []float64                   `json:"values"`
	RiskMetrics    risk.Metrics                `json:"risk_metrics"`
	Positions      []Consolidated              `json:"portfolio_consolidated"`
	PortfolioValue float64                     `json:"portfolio_value"`
	// PriceHistory is day -> symbol -> forward-filled close
	PriceHistory  map[string]map[string]float64 `json:"price_history"`
	Optimizations map[string]optimizer.Result   `json:"optimizations"`
	Frontier      []optimizer.FrontierPoint     `json:"frontier,omitempty"`
	CurrentPoint  optimizer.FrontierPoint       `json:"current_point"`
}

// IsEmpty reports whether the bundle carries no positions
func (b *Bundle) IsEmpty() bool {
	return len(b.Positions) == 0
}

// SortedMethods returns the optimization keys in report order, followed by
// any others
func (b *Bundle) SortedMethods() []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range optimizer.Methods {
		if _, ok := b.Optimizations[string(m)]; ok {
			out = append(out, string(m))
			seen[string(m)] = true
		}
	}
	var rest []string
	for m := range b.Optimizations {
		if !seen[m] {
			rest = append(rest, m)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func emptyBundle(currency string, now time.Time, objectives []optimizer.Objective) *Bundle {
	b := &Bundle{
		Currency:      currency,
		GeneratedAt:   now,
		Dates:         []string{},
		Values:        []float64{},
		RiskMetrics:   risk.NewEngine(risk.DefaultConfig()).Calculate(nil, 0),
		Positions:     []Consolidated{},
		PriceHistory:  map[string]map[string]float64{},
		Optimizations: make(map[string]optimizer.Result, len(objectives)),
		Frontier:      []optimizer.FrontierPoint{},
	}
	for _, obj := range objectives {
		b.Optimizations[string(obj.Method())] = optimizer.EmptyResult(obj.Method())
	}
	return b
}
