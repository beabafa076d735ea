package dynamo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// State is a fixed-dimension vector of scalars. Arithmetic never mutates the
// receiver; every operation returns a fresh slice, so states handed out by
// the solver stay valid for later comparison.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) Dim() int { return len(s) }

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// InfNorm is the largest absolute component.
func (s State) InfNorm() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Norm(s, math.Inf(1))
}

// Add panics if the dimensions differ.
func (s State) Add(other State) State {
	result := make(State, len(s))
	floats.AddTo(result, s, other)
	return result
}

// Sub panics if the dimensions differ.
func (s State) Sub(other State) State {
	result := make(State, len(s))
	floats.SubTo(result, s, other)
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	floats.ScaleTo(result, factor, s)
	return result
}
