package metrics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// EnergyDrift tracks the largest relative departure from the first observed
// energy. Systems without a Hamiltonian report zero.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
	sys           dynamo.System
}

func NewEnergyDrift(sys dynamo.System) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		sys:  sys,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s dynamo.Sample) {
	ec, ok := e.sys.(dynamo.Hamiltonian)
	if !ok {
		return
	}

	energy := ec.Energy(s.State)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
