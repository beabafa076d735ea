package metrics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// StepRange records the smallest or largest accepted step. The initial
// sample carries no step and is skipped.
type StepRange struct {
	name  string
	pick  func(a, b float64) float64
	value float64
	seen  bool
}

func NewMinStep() *StepRange {
	return &StepRange{name: "min_step", pick: math.Min}
}

func NewMaxStep() *StepRange {
	return &StepRange{name: "max_step", pick: math.Max}
}

func (r *StepRange) Name() string { return r.name }

func (r *StepRange) Observe(s dynamo.Sample) {
	if s.H <= 0 {
		return
	}
	if !r.seen {
		r.value, r.seen = s.H, true
		return
	}
	r.value = r.pick(r.value, s.H)
}

func (r *StepRange) Value() float64 { return r.value }

func (r *StepRange) Reset() {
	r.value, r.seen = 0, false
}

// FloorHits counts steps accepted at the minimum size with the error still
// above tolerance.
type FloorHits struct {
	count int
}

func NewFloorHits() *FloorHits { return &FloorHits{} }

func (f *FloorHits) Name() string { return "floor_hits" }

func (f *FloorHits) Observe(s dynamo.Sample) {
	if s.FloorHit {
		f.count++
	}
}

func (f *FloorHits) Value() float64 { return float64(f.count) }
func (f *FloorHits) Reset()         { f.count = 0 }
