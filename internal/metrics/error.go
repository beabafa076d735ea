package metrics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// MaxError is the largest |u0 - exact(x)| over the trace.
type MaxError struct {
	exact dynamo.Exact
	max   float64
}

func NewMaxError(exact dynamo.Exact) *MaxError {
	return &MaxError{exact: exact}
}

func (m *MaxError) Name() string { return "max_error" }

func (m *MaxError) Observe(s dynamo.Sample) {
	if e, ok := m.exact.AbsError(s.X, s.State); ok {
		m.max = math.Max(m.max, e)
	}
}

func (m *MaxError) Value() float64 { return m.max }
func (m *MaxError) Reset()         { m.max = 0 }

// FinalError is |u0 - exact(x)| at the last observed sample.
type FinalError struct {
	exact dynamo.Exact
	last  float64
}

func NewFinalError(exact dynamo.Exact) *FinalError {
	return &FinalError{exact: exact}
}

func (f *FinalError) Name() string { return "final_error" }

func (f *FinalError) Observe(s dynamo.Sample) {
	if e, ok := f.exact.AbsError(s.X, s.State); ok {
		f.last = e
	}
}

func (f *FinalError) Value() float64 { return f.last }
func (f *FinalError) Reset()         { f.last = 0 }
