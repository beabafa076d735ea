package problems

import (
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// Decay relaxes quickly onto a slowly varying forcing term:
//
//	du/dx = -λ(u - cos x)
//
// The fast transient forces small steps at the start; afterwards the
// adaptive controller can grow the step until stability limits it.
type Decay struct {
	lambda float64
}

func NewDecay() *Decay {
	return &Decay{lambda: 50.0}
}

func (d *Decay) Dim() int { return 1 }

func (d *Decay) Derive(x float64, u dynamo.State) dynamo.State {
	return dynamo.State{-d.lambda * (u[0] - math.Cos(x))}
}

func (d *Decay) DefaultState() dynamo.State {
	return dynamo.State{0.0}
}

// Solution is the particular solution plus the decaying homogeneous part.
func (d *Decay) Solution(x0 float64, u0 dynamo.State) func(float64) float64 {
	l := d.lambda
	particular := func(x float64) float64 {
		s, c := math.Sincos(x)
		return l * (l*c + s) / (l*l + 1)
	}
	c := u0[0] - particular(x0)
	return func(x float64) float64 {
		return particular(x) + c*math.Exp(-l*(x-x0))
	}
}

func (d *Decay) GetParams() map[string]float64 {
	return map[string]float64{"lambda": d.lambda}
}

func (d *Decay) SetParam(name string, value float64) error {
	if name != "lambda" {
		return fmt.Errorf("decay: unknown parameter %q", name)
	}
	if value <= 0 {
		return fmt.Errorf("decay: lambda must be positive, got %g", value)
	}
	d.lambda = value
	return nil
}
