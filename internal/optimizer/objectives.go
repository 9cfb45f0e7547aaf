package optimizer

import (
	stderrors "errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apperrors "github.com/ducminhle1904/portfolio-analytics/internal/errors"
	"github.com/ducminhle1904/portfolio-analytics/internal/risk"
)

// Method names an optimization objective
type Method string

const (
	MethodSharpe           Method = "sharpe"
	MethodMinVariance      Method = "min_variance"
	MethodMaxReturn        Method = "max_return"
	MethodSortino          Method = "sortino"
	MethodInformationRatio Method = "information_ratio"
	MethodMaxDrawdown      Method = "max_drawdown"
	MethodTargetReturn     Method = "target_return"
	MethodUtility          Method = "utility"
	MethodCVaR             Method = "cvar"
	MethodDiversification  Method = "diversification"
)

// Methods lists every objective in report order
var Methods = []Method{
	MethodSharpe,
	MethodMinVariance,
	MethodMaxReturn,
	MethodSortino,
	MethodInformationRatio,
	MethodMaxDrawdown,
	MethodTargetReturn,
	MethodUtility,
	MethodCVaR,
	MethodDiversification,
}

// ErrUnknownMethod is wrapped by ParseObjective for unrecognised names
var ErrUnknownMethod = stderrors.New("unknown optimization method")

// DefaultRiskAversion applies to utility requests without an explicit value
const DefaultRiskAversion = 1.0

// minRisk is the denominator below which ratio objectives are zero
const minRisk = 1e-12

// downsideFloor replaces a missing or zero downside deviation
const downsideFloor = 1e-6

// Objective is one of the ten objective kinds. The set is closed.
type Objective interface {
	Method() Method
	build(s *Session) problem
}

// problem is an objective over weights plus equality constraints c(w) == 0
type problem struct {
	objective  func(w []float64) float64
	equality   []func(w []float64) float64
	multiStart bool // local optima away from equal weights
}

type (
	Sharpe           struct{}
	MinVariance      struct{}
	MaxReturn        struct{}
	Sortino          struct{}
	InformationRatio struct{}
	MaxDrawdown      struct{}
	CVaR             struct{}
	Diversification  struct{}

	// TargetReturn minimizes variance at a fixed expected daily return
	TargetReturn struct {
		Target float64
	}

	// Utility maximizes return - 0.5 * RiskAversion * variance
	Utility struct {
		RiskAversion float64
	}
)

func (Sharpe) Method() Method           { return MethodSharpe }
func (MinVariance) Method() Method      { return MethodMinVariance }
func (MaxReturn) Method() Method        { return MethodMaxReturn }
func (Sortino) Method() Method          { return MethodSortino }
func (InformationRatio) Method() Method { return MethodInformationRatio }
func (MaxDrawdown) Method() Method      { return MethodMaxDrawdown }
func (TargetReturn) Method() Method     { return MethodTargetReturn }
func (Utility) Method() Method          { return MethodUtility }
func (CVaR) Method() Method             { return MethodCVaR }
func (Diversification) Method() Method  { return MethodDiversification }

func (Sharpe) build(s *Session) problem {
	return problem{objective: func(w []float64) float64 {
		ret, sd := s.Performance(w)
		if sd < minRisk {
			return 0
		}
		return -(ret - s.rfDaily) / sd
	}}
}

func (MinVariance) build(s *Session) problem {
	return problem{objective: s.variance}
}

func (MaxReturn) build(s *Session) problem {
	return problem{objective: func(w []float64) float64 {
		return -floats.Dot(w, s.mean)
	}}
}

func (Sortino) build(s *Session) problem {
	return problem{multiStart: true, objective: func(w []float64) float64 {
		ret, _ := s.Performance(w)
		return -(ret - s.rfDaily) / downsideDeviation(s.portfolioReturns(w))
	}}
}

func (InformationRatio) build(s *Session) problem {
	benchMean := 0.0
	if len(s.benchmark) > 0 {
		benchMean = stat.Mean(s.benchmark, nil)
	}
	return problem{objective: func(w []float64) float64 {
		pr := s.portfolioReturns(w)
		if len(pr) == 0 {
			return 0
		}
		excess := make([]float64, len(pr))
		floats.SubTo(excess, pr, s.benchmark)
		te := stat.PopStdDev(excess, nil)
		if te < minRisk {
			return 0
		}
		return -(floats.Dot(w, s.mean) - benchMean) / te
	}}
}

func (MaxDrawdown) build(s *Session) problem {
	return problem{multiStart: true, objective: func(w []float64) float64 {
		dd := drawdownCurve(s.portfolioReturns(w))
		if len(dd) == 0 {
			return 0
		}
		return -floats.Min(dd)
	}}
}

func (o TargetReturn) build(s *Session) problem {
	return problem{
		objective: s.variance,
		equality: []func(w []float64) float64{
			func(w []float64) float64 { return floats.Dot(w, s.mean) - o.Target },
		},
	}
}

func (o Utility) build(s *Session) problem {
	return problem{objective: func(w []float64) float64 {
		ret, sd := s.Performance(w)
		return -(ret - 0.5*o.RiskAversion*sd*sd)
	}}
}

func (CVaR) build(s *Session) problem {
	return problem{multiStart: true, objective: func(w []float64) float64 {
		return -expectedShortfall(s.portfolioReturns(w), s.confidence)
	}}
}

func (Diversification) build(s *Session) problem {
	return problem{objective: func(w []float64) float64 {
		return floats.Dot(w, w)
	}}
}

func (s *Session) variance(w []float64) float64 {
	_, sd := s.Performance(w)
	return sd * sd
}

func downsideDeviation(returns []float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return downsideFloor
	}
	sd := stat.PopStdDev(downside, nil)
	if sd < minRisk {
		return downsideFloor
	}
	return sd
}

// drawdownCurve is (cumulative - running peak) / running peak of the
// compounded return series
func drawdownCurve(returns []float64) []float64 {
	out := make([]float64, len(returns))
	cumulative, peak := 1.0, math.Inf(-1)
	for i, r := range returns {
		cumulative *= 1 + r
		peak = math.Max(peak, cumulative)
		if peak == 0 {
			out[i] = 0
			continue
		}
		out[i] = (cumulative - peak) / peak
	}
	return out
}

// expectedShortfall is the mean of the returns at or below the tail percentile
func expectedShortfall(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	cutoff := risk.Percentile(returns, (1-confidence)*100)
	sum, n := 0.0, 0
	for _, r := range returns {
		if r <= cutoff {
			sum += r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Request is a caller's choice of objective with its optional parameters
type Request struct {
	Method       string   `json:"method"`
	TargetReturn *float64 `json:"target_return,omitempty"`
	RiskAversion *float64 `json:"risk_aversion,omitempty"`
}

// ParseObjective maps a request onto its objective kind
func ParseObjective(req Request) (Objective, error) {
	switch Method(strings.ToLower(strings.TrimSpace(req.Method))) {
	case MethodSharpe:
		return Sharpe{}, nil
	case MethodMinVariance:
		return MinVariance{}, nil
	case MethodMaxReturn:
		return MaxReturn{}, nil
	case MethodSortino:
		return Sortino{}, nil
	case MethodInformationRatio:
		return InformationRatio{}, nil
	case MethodMaxDrawdown:
		return MaxDrawdown{}, nil
	case MethodTargetReturn:
		if req.TargetReturn == nil || *req.TargetReturn == 0 || math.IsNaN(*req.TargetReturn) {
			return nil, apperrors.NewValidationError("optimizer", "parse_objective",
				"target_return requires a non-zero target").WithContext("method", req.Method)
		}
		return TargetReturn{Target: *req.TargetReturn}, nil
	case MethodUtility:
		aversion := DefaultRiskAversion
		if req.RiskAversion != nil {
			aversion = *req.RiskAversion
		}
		if aversion < 0 || math.IsNaN(aversion) {
			return nil, apperrors.NewValidationError("optimizer", "parse_objective",
				fmt.Sprintf("risk aversion must not be negative, got %v", aversion))
		}
		return Utility{RiskAversion: aversion}, nil
	case MethodCVaR:
		return CVaR{}, nil
	case MethodDiversification:
		return Diversification{}, nil
	default:
		return nil, apperrors.WrapError(ErrUnknownMethod, apperrors.ErrorCategoryValidation, "optimizer", "parse_objective").
			WithContext("method", req.Method)
	}
}
