package problems

import (
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// Rough implements a step-function slope: du/dx is 0 before the kink and
// jump after it. No step size makes the error estimate vanish across the
// kink, so an adaptive run accepts that step at the floor.
type Rough struct {
	kink float64
	jump float64
}

func NewRough() *Rough {
	return &Rough{kink: 1 / math.Sqrt2, jump: 1.0}
}

func (r *Rough) Dim() int { return 1 }

func (r *Rough) Derive(x float64, _ dynamo.State) dynamo.State {
	if x < r.kink {
		return dynamo.State{0}
	}
	return dynamo.State{r.jump}
}

func (r *Rough) DefaultState() dynamo.State {
	return dynamo.State{0.0}
}

func (r *Rough) Solution(x0 float64, u0 dynamo.State) func(float64) float64 {
	kink, jump, u := r.kink, r.jump, u0[0]
	return func(x float64) float64 {
		return u + jump*(math.Max(x, kink)-math.Max(x0, kink))
	}
}

func (r *Rough) GetParams() map[string]float64 {
	return map[string]float64{"kink": r.kink, "jump": r.jump}
}

func (r *Rough) SetParam(name string, value float64) error {
	switch name {
	case "kink":
		r.kink = value
	case "jump":
		r.jump = value
	default:
		return fmt.Errorf("rough: unknown parameter %q", name)
	}
	return nil
}
