package problems

import (
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// Oscillator implements an undamped harmonic oscillator.
// State: [position, velocity]
//
//	dp/dx = v
//	dv/dx = -ω²p
type Oscillator struct {
	omega float64
}

func NewOscillator() *Oscillator {
	return &Oscillator{omega: 1.0}
}

func (o *Oscillator) Dim() int { return 2 }

func (o *Oscillator) Derive(_ float64, u dynamo.State) dynamo.State {
	return dynamo.State{u[1], -o.omega * o.omega * u[0]}
}

func (o *Oscillator) DefaultState() dynamo.State {
	return dynamo.State{1.0, 0.0}
}

func (o *Oscillator) Solution(x0 float64, u0 dynamo.State) func(float64) float64 {
	w, p0, v0 := o.omega, u0[0], u0[1]
	return func(x float64) float64 {
		s, c := math.Sincos(w * (x - x0))
		return p0*c + v0/w*s
	}
}

func (o *Oscillator) Energy(u dynamo.State) float64 {
	return 0.5 * (u[1]*u[1] + o.omega*o.omega*u[0]*u[0])
}

func (o *Oscillator) GetParams() map[string]float64 {
	return map[string]float64{"omega": o.omega}
}

func (o *Oscillator) SetParam(name string, value float64) error {
	if name != "omega" {
		return fmt.Errorf("oscillator: unknown parameter %q", name)
	}
	if value <= 0 {
		return fmt.Errorf("oscillator: omega must be positive, got %g", value)
	}
	o.omega = value
	return nil
}
