package optimizer

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// FrontierPoint is the expected return and risk of one portfolio
type FrontierPoint struct {
	Return float64 `json:"return"`
	Risk   float64 `json:"risk"`
}

// FrontierSample draws n random long-only portfolios for plotting the
// efficient frontier. seed 0 seeds from the clock.
func (s *Session) FrontierSample(n int, seed uint64) []FrontierPoint {
	k := len(s.symbols)
	if k == 0 || n <= 0 || s.Observations() == 0 {
		return []FrontierPoint{}
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	points := make([]FrontierPoint, n)
	w := make([]float64, k)
	for i := range points {
		for j := range w {
			w[j] = rng.Float64()
		}
		sum := floats.Sum(w)
		if sum == 0 {
			w[0], sum = 1, 1
		}
		floats.Scale(1/sum, w)
		ret, sd := s.Performance(w)
		points[i] = FrontierPoint{Return: ret, Risk: sd}
	}
	return points
}

// CurrentPoint is the return and risk of the current holdings
func (s *Session) CurrentPoint() FrontierPoint {
	ret, sd := s.Performance(s.current)
	return FrontierPoint{Return: ret, Risk: sd}
}
