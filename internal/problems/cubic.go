package problems

import (
	"fmt"

	"github.com/san-kum/odestep/internal/dynamo"
)

// Cubic implements du/dx = a*3x², whose solution is a cubic in x. RK4 reduces
// to Simpson's rule here and is exact, so the step-doubling estimate is zero.
type Cubic struct {
	a float64
}

func NewCubic() *Cubic {
	return &Cubic{a: 1.0}
}

func (c *Cubic) Dim() int { return 1 }

func (c *Cubic) Derive(x float64, _ dynamo.State) dynamo.State {
	return dynamo.State{3 * c.a * x * x}
}

func (c *Cubic) DefaultState() dynamo.State {
	return dynamo.State{0.0}
}

func (c *Cubic) Solution(x0 float64, u0 dynamo.State) func(float64) float64 {
	a, u := c.a, u0[0]
	return func(x float64) float64 {
		return u + a*(x*x*x-x0*x0*x0)
	}
}

func (c *Cubic) GetParams() map[string]float64 {
	return map[string]float64{"a": c.a}
}

func (c *Cubic) SetParam(name string, value float64) error {
	if name != "a" {
		return fmt.Errorf("cubic: unknown parameter %q", name)
	}
	c.a = value
	return nil
}
