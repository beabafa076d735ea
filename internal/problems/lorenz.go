package problems

import (
	"fmt"

	"github.com/san-kum/odestep/internal/dynamo"
)

// Lorenz is the Lorenz system, state [x, y, z]. It has no closed form and
// its error grows exponentially, so only short intervals are meaningful.
type Lorenz struct{ sigma, rho, beta float64 }

func NewLorenz() *Lorenz { return &Lorenz{10.0, 28.0, 8.0 / 3.0} }

func (l *Lorenz) Dim() int { return 3 }

func (l *Lorenz) Derive(_ float64, s dynamo.State) dynamo.State {
	return dynamo.State{l.sigma * (s[1] - s[0]), s[0]*(l.rho-s[2]) - s[1], s[0]*s[1] - l.beta*s[2]}
}

func (l *Lorenz) DefaultState() dynamo.State { return dynamo.State{1.0, 1.0, 1.0} }

func (l *Lorenz) GetParams() map[string]float64 {
	return map[string]float64{"sigma": l.sigma, "rho": l.rho, "beta": l.beta}
}

func (l *Lorenz) SetParam(name string, value float64) error {
	switch name {
	case "sigma":
		l.sigma = value
	case "rho":
		l.rho = value
	case "beta":
		l.beta = value
	default:
		return fmt.Errorf("lorenz: unknown parameter %q", name)
	}
	return nil
}
