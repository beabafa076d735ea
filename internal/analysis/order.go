package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// OrderEstimate is one level of a step-halving study.
type OrderEstimate struct {
	Steps int
	Error float64
	// Order is log2 of the error ratio to the previous level; NaN on the
	// first level.
	Order float64
}

// ObservedOrder solves with base, 2*base, 4*base... steps and measures each
// final value against exact. For RK4 on a smooth problem the orders approach 4.
func ObservedOrder(solve func(steps int) (float64, error), exact float64, base, levels int) ([]OrderEstimate, error) {
	if base <= 0 {
		return nil, fmt.Errorf("base step count must be positive, got %d", base)
	}
	if levels < 2 {
		return nil, fmt.Errorf("need at least 2 levels, got %d", levels)
	}

	out := make([]OrderEstimate, 0, levels)
	steps := base
	for i := 0; i < levels; i++ {
		got, err := solve(steps)
		if err != nil {
			return out, fmt.Errorf("solve with %d steps: %w", steps, err)
		}

		est := OrderEstimate{Steps: steps, Error: math.Abs(got - exact), Order: math.NaN()}
		if i > 0 {
			est.Order = order(out[i-1].Error, est.Error)
		}
		out = append(out, est)
		steps *= 2
	}

	return out, nil
}

func order(coarse, fine float64) float64 {
	switch {
	case coarse == 0 && fine == 0:
		return math.NaN()
	case fine == 0:
		return math.Inf(1)
	}
	return math.Log2(coarse / fine)
}

// MeanOrder averages the finite orders of a study.
func MeanOrder(est []OrderEstimate) float64 {
	sum, n := 0.0, 0
	for _, e := range est {
		if math.IsNaN(e.Order) || math.IsInf(e.Order, 0) {
			continue
		}
		sum += e.Order
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// FixedFinal adapts a solver and problem into the solve callback of
// ObservedOrder. Each call runs in fixed-step mode with the given step count
// and returns the first component at x_end.
func FixedFinal(ctx context.Context, s *dynamo.Solver, p dynamo.Problem) func(steps int) (float64, error) {
	cfg := dynamo.DefaultConfig()
	cfg.Adaptive = false
	return func(steps int) (float64, error) {
		p.Steps = steps
		tr, err := s.Run(ctx, p, cfg, nil)
		if err != nil {
			return 0, err
		}
		return tr.Final.State[0], nil
	}
}
