package optimizer

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/ducminhle1904/portfolio-analytics/internal/monitoring"
)

const (
	// MessageNoAssets is reported when there is nothing to allocate
	MessageNoAssets = "No assets in portfolio to optimize"
	// MessageNoHistory is reported when fewer than two return rows exist
	MessageNoHistory = "Not enough price history to optimize"

	weightFloor      = 1e-8
	invalidObjective = 1e10

	constraintTolerance = 1e-7
	penaltyStart        = 1e4
	penaltyGrowth       = 10.0
	maxOuterRounds      = 12

	// vertexBias is the softmax logit that tilts a start towards one asset
	vertexBias = 4.0
)

// Result is the allocation found for one objective
type Result struct {
	Method              Method             `json:"method"`
	Success             bool               `json:"success"`
	Message             string             `json:"message"`
	Symbols             []string           `json:"symbols"`
	OptimalWeights      map[string]float64 `json:"optimal_weights"`
	SuggestedInvestment map[string]float64 `json:"suggested_investment"`
	CurrentWeights      map[string]float64 `json:"current_weights"`
	ExpectedReturn      float64            `json:"expected_return"`
	Risk                float64            `json:"risk"`
	Iterations          int                `json:"iterations"`
	// Drawdown is filled for max_drawdown, DownsideReturns for sortino
	Drawdown        []float64 `json:"drawdown,omitempty"`
	DownsideReturns []float64 `json:"downside_returns,omitempty"`
}

// EmptyResult is the failed result for a portfolio with no assets
func EmptyResult(method Method) Result {
	return failed(method, MessageNoAssets)
}

func failed(method Method, message string) Result {
	return Result{
		Method:              method,
		Message:             message,
		Symbols:             []string{},
		OptimalWeights:      map[string]float64{},
		SuggestedInvestment: map[string]float64{},
		CurrentWeights:      map[string]float64{},
	}
}

var acceptedStatus = map[optimize.Status]bool{
	optimize.Success:             true,
	optimize.FunctionThreshold:   true,
	optimize.FunctionConvergence: true,
	optimize.GradientThreshold:   true,
	optimize.StepConvergence:     true,
	optimize.MethodConverge:      true,
}

// Optimize finds long-only, fully-invested weights for obj and sizes them
// against cash
func (s *Session) Optimize(obj Objective, cash float64) Result {
	start := time.Now()
	res := s.optimize(obj, cash)
	monitoring.RecordOptimization(string(res.Method), res.Success, time.Since(start))
	if !res.Success {
		s.log.Warning("%s optimization failed: %s", res.Method, res.Message)
	}
	return res
}

func (s *Session) optimize(obj Objective, cash float64) Result {
	method := obj.Method()
	n := len(s.symbols)
	if n == 0 {
		return EmptyResult(method)
	}

	res := failed(method, "")
	res.Symbols = s.Symbols()
	res.CurrentWeights = s.CurrentWeights()

	if s.Observations() < 2 {
		res.Message = MessageNoHistory
		return res
	}

	p := obj.build(s)
	if t, ok := obj.(TargetReturn); ok {
		lo, hi := floats.Min(s.mean), floats.Max(s.mean)
		if t.Target < lo-constraintTolerance || t.Target > hi+constraintTolerance {
			res.Message = fmt.Sprintf("target return %.6f outside attainable range [%.6f, %.6f]", t.Target, lo, hi)
			return res
		}
	}

	w, iterations, err := s.solve(p, n)
	res.Iterations = iterations
	if err != nil {
		res.Message = err.Error()
		return res
	}

	ret, sd := s.Performance(w)
	res.Success = true
	res.Message = "Optimization terminated successfully"
	res.OptimalWeights = s.weightMap(w)
	res.SuggestedInvestment = make(map[string]float64, n)
	for i, sym := range s.symbols {
		res.SuggestedInvestment[sym] = w[i] * cash
	}
	res.ExpectedReturn = ret
	res.Risk = sd

	switch method {
	case MethodMaxDrawdown:
		res.Drawdown = drawdownCurve(s.portfolioReturns(w))
	case MethodSortino:
		res.DownsideReturns = []float64{}
		for _, r := range s.portfolioReturns(w) {
			if r < 0 {
				res.DownsideReturns = append(res.DownsideReturns, r)
			}
		}
	}
	return res
}

// solve minimizes p over the simplex. Non-convex problems marked multiStart
// are also started next to every vertex, and the vertices themselves are
// candidates; the lowest objective wins.
func (s *Session) solve(p problem, n int) ([]float64, int, error) {
	if !p.multiStart || len(p.equality) > 0 {
		return s.solveFrom(p, make([]float64, n))
	}

	var best, fallback []float64
	var firstErr error
	bestVal := math.Inf(1)
	iterations := 0
	consider := func(w []float64) {
		v := p.objective(w)
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v < bestVal {
			best, bestVal = w, v
		}
	}

	for i := -1; i < n; i++ {
		x0 := make([]float64, n)
		if i >= 0 {
			x0[i] = vertexBias
		}
		w, its, err := s.solveFrom(p, x0)
		iterations += its
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if fallback == nil {
			fallback = w
		}
		consider(w)
	}
	if fallback == nil {
		return nil, iterations, firstErr
	}
	for i := 0; i < n; i++ {
		vertex := make([]float64, n)
		vertex[i] = 1
		consider(vertex)
	}
	if best == nil {
		best = fallback
	}
	return best, iterations, nil
}

// solveFrom minimizes p from the logits x. Weights are softmax(x) so the sum
// and bound constraints hold for every x; extra equalities use an augmented
// Lagrangian.
func (s *Session) solveFrom(p problem, x []float64) ([]float64, int, error) {
	equal := softmax(make([]float64, len(x)))

	scale := math.Abs(p.objective(equal))
	if scale < minRisk || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 1
	}

	lambda := make([]float64, len(p.equality))
	mu := penaltyStart
	iterations := 0

	rounds := 1
	if len(p.equality) > 0 {
		rounds = maxOuterRounds
	}

	var w []float64
	for round := 0; round < rounds; round++ {
		f := func(x []float64) float64 {
			w := softmax(x)
			v := p.objective(w) / scale
			for i, c := range p.equality {
				cv := c(w)
				v += lambda[i]*cv + 0.5*mu*cv*cv
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return invalidObjective
			}
			return v
		}

		next, its, err := minimize(f, x)
		iterations += its
		if err != nil {
			return nil, iterations, err
		}
		x = next
		w = softmax(x)

		worst := 0.0
		for i, c := range p.equality {
			cv := c(w)
			lambda[i] += mu * cv
			worst = math.Max(worst, math.Abs(cv))
		}
		if worst <= constraintTolerance {
			break
		}
		if round == rounds-1 {
			return nil, iterations, fmt.Errorf("equality constraint not satisfied: residual %.3g", worst)
		}
		mu *= penaltyGrowth
	}

	w = snap(w)
	if len(p.equality) == 0 && p.objective(equal) < p.objective(w) {
		w = equal
	}
	return w, iterations, nil
}

// minimize runs BFGS with central-difference gradients and falls back to
// Nelder-Mead when BFGS does not converge
func minimize(f func([]float64) float64, x0 []float64) ([]float64, int, error) {
	prob := optimize.Problem{
		Func: f,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, f, x, &fd.Settings{Formula: fd.Central, Step: 1e-6})
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-10,
		MajorIterations:   2000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 50,
		},
	}

	result, err := optimize.Minimize(prob, x0, settings, &optimize.BFGS{})
	if err == nil && result != nil && acceptedStatus[result.Status] {
		return result.X, result.MajorIterations, nil
	}

	iterations := 0
	if result != nil {
		iterations = result.MajorIterations
	}

	fallback, ferr := optimize.Minimize(prob, x0, &optimize.Settings{
		MajorIterations: 20000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Iterations: 200,
		},
	}, &optimize.NelderMead{})
	if fallback != nil {
		iterations += fallback.MajorIterations
	}
	if ferr != nil {
		return nil, iterations, fmt.Errorf("optimization failed: %w", ferr)
	}
	if !acceptedStatus[fallback.Status] {
		return nil, iterations, fmt.Errorf("optimization did not converge: status=%v", fallback.Status)
	}
	return fallback.X, iterations, nil
}

func softmax(x []float64) []float64 {
	w := make([]float64, len(x))
	if len(x) == 0 {
		return w
	}
	peak := floats.Max(x)
	for i, v := range x {
		w[i] = math.Exp(v - peak)
	}
	floats.Scale(1/floats.Sum(w), w)
	return w
}

// snap zeroes negligible weights and renormalizes
func snap(w []float64) []float64 {
	out := make([]float64, len(w))
	for i, v := range w {
		if v >= weightFloor {
			out[i] = v
		}
	}
	sum := floats.Sum(out)
	if sum == 0 {
		return w
	}
	floats.Scale(1/sum, out)
	return out
}
