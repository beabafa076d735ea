package problems

import (
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// Logistic implements du/dx = r*u*(1 - u/K).
type Logistic struct {
	rate     float64
	capacity float64
}

func NewLogistic() *Logistic {
	return &Logistic{rate: 1.0, capacity: 10.0}
}

func (l *Logistic) Dim() int { return 1 }

func (l *Logistic) Derive(_ float64, u dynamo.State) dynamo.State {
	return dynamo.State{l.rate * u[0] * (1 - u[0]/l.capacity)}
}

func (l *Logistic) DefaultState() dynamo.State {
	return dynamo.State{0.5}
}

func (l *Logistic) Solution(x0 float64, u0 dynamo.State) func(float64) float64 {
	r, k, c := l.rate, l.capacity, u0[0]
	return func(x float64) float64 {
		if c == 0 {
			return 0
		}
		return k / (1 + (k/c-1)*math.Exp(-r*(x-x0)))
	}
}

func (l *Logistic) GetParams() map[string]float64 {
	return map[string]float64{"r": l.rate, "K": l.capacity}
}

func (l *Logistic) SetParam(name string, value float64) error {
	switch name {
	case "r":
		l.rate = value
	case "K":
		if value == 0 {
			return fmt.Errorf("logistic: capacity must be non-zero")
		}
		l.capacity = value
	default:
		return fmt.Errorf("logistic: unknown parameter %q", name)
	}
	return nil
}
