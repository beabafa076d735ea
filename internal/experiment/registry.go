package experiment

import (
	"fmt"
	"slices"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/integrators"
	"github.com/san-kum/odestep/internal/metrics"
	"github.com/san-kum/odestep/internal/problems"
)

// Model is a registered problem: a right-hand side with tunable parameters
// and a default initial state.
type Model interface {
	dynamo.System
	dynamo.Configurable
	DefaultState() dynamo.State
}

type entry struct {
	build       func() Model
	description string
}

type Registry struct {
	models   map[string]entry
	steppers map[string]func() dynamo.Stepper
}

func NewRegistry() *Registry {
	r := &Registry{
		models:   make(map[string]entry),
		steppers: make(map[string]func() dynamo.Stepper),
	}

	r.models["exponential"] = entry{func() Model { return problems.NewExponential() }, "du/dx = k*u"}
	r.models["oscillator"] = entry{func() Model { return problems.NewOscillator() }, "harmonic oscillator [p, v]"}
	r.models["logistic"] = entry{func() Model { return problems.NewLogistic() }, "du/dx = r*u*(1 - u/K)"}
	r.models["cubic"] = entry{func() Model { return problems.NewCubic() }, "du/dx = 3a*x^2, exact under RK4"}
	r.models["decay"] = entry{func() Model { return problems.NewDecay() }, "du/dx = -lambda*(u - cos x)"}
	r.models["vanderpol"] = entry{func() Model { return problems.NewVanDerPol() }, "Van der Pol oscillator [x, y]"}
	r.models["lorenz"] = entry{func() Model { return problems.NewLorenz() }, "Lorenz attractor [x, y, z]"}
	r.models["rough"] = entry{func() Model { return problems.NewRough() }, "step-function slope, hits the step floor"}

	r.steppers["rk4"] = func() dynamo.Stepper { return integrators.NewRK4() }

	return r
}

func (r *Registry) GetModel(name string) (Model, error) {
	e, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	return e.build(), nil
}

func (r *Registry) GetStepper(name string) (dynamo.Stepper, error) {
	fn, ok := r.steppers[name]
	if !ok {
		return nil, fmt.Errorf("unknown stepper: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) Describe(name string) string {
	return r.models[name].description
}

// DefaultMetrics returns the observers worth attaching for a model. Error
// metrics need a reference solution and energy drift needs a Hamiltonian.
func (r *Registry) DefaultMetrics(model dynamo.System, exact dynamo.Exact) []dynamo.Metric {
	ms := []dynamo.Metric{
		metrics.NewMinStep(),
		metrics.NewMaxStep(),
		metrics.NewFloorHits(),
		metrics.NewStability(1e6),
	}
	if exact.Ok() {
		ms = append(ms, metrics.NewMaxError(exact), metrics.NewFinalError(exact))
	}
	if _, ok := model.(dynamo.Hamiltonian); ok {
		ms = append(ms, metrics.NewEnergyDrift(model))
	}
	return ms
}
