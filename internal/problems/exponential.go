package problems

import (
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// Exponential implements du/dx = k*u with solution u0*e^(k(x-x0)).
type Exponential struct {
	k float64
}

func NewExponential() *Exponential {
	return &Exponential{k: 5.0}
}

func (e *Exponential) Dim() int { return 1 }

func (e *Exponential) Derive(_ float64, u dynamo.State) dynamo.State {
	return dynamo.State{e.k * u[0]}
}

func (e *Exponential) DefaultState() dynamo.State {
	return dynamo.State{1.0}
}

func (e *Exponential) Solution(x0 float64, u0 dynamo.State) func(float64) float64 {
	k, c := e.k, u0[0]
	return func(x float64) float64 {
		return c * math.Exp(k*(x-x0))
	}
}

func (e *Exponential) GetParams() map[string]float64 {
	return map[string]float64{"k": e.k}
}

func (e *Exponential) SetParam(name string, value float64) error {
	if name != "k" {
		return fmt.Errorf("exponential: unknown parameter %q", name)
	}
	e.k = value
	return nil
}
