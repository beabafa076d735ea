package dynamo

import "math"

// DerivativeFunc is the right-hand side of du/dx = f(x, u). It must be
// deterministic and return a vector of the same dimension as u.
type DerivativeFunc func(x float64, u State) State

// Exact is an optional analytic reference for the first state component.
// The zero value holds no function.
type Exact struct {
	fn func(float64) float64
}

func SomeExact(fn func(x float64) float64) Exact {
	return Exact{fn: fn}
}

func NoExact() Exact {
	return Exact{}
}

func (e Exact) Ok() bool { return e.fn != nil }

func (e Exact) Get() (func(float64) float64, bool) {
	return e.fn, e.fn != nil
}

// Eval returns the reference value at x, or false when no reference is set.
func (e Exact) Eval(x float64) (float64, bool) {
	if e.fn == nil {
		return 0, false
	}
	return e.fn(x), true
}

// AbsError returns |u[0] - exact(x)|.
func (e Exact) AbsError(x float64, u State) (float64, bool) {
	ref, ok := e.Eval(x)
	if !ok || len(u) == 0 {
		return 0, false
	}
	return math.Abs(u[0] - ref), true
}

// Problem is an initial value problem over [XStart, XEnd]. Steps is the
// grid size in fixed mode and only seeds the step size in adaptive mode.
type Problem struct {
	XStart     float64
	XEnd       float64
	Steps      int
	Initial    State
	Derivative DerivativeFunc
	Exact      Exact
}

// System is a right-hand side with a fixed state dimension.
type System interface {
	Derive(x float64, u State) State
	Dim() int
}

// Analytic is implemented by systems with a closed-form first component.
type Analytic interface {
	Solution(x0 float64, u0 State) func(x float64) float64
}

// Hamiltonian is implemented by systems with a conserved energy.
type Hamiltonian interface {
	Energy(u State) float64
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Stepper advances a state by exactly h.
type Stepper interface {
	Advance(f DerivativeFunc, x float64, v State, h float64) State
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Config struct {
	Adaptive  bool
	Tolerance float64
	MinStep   float64
	MaxSteps  int
	// StrictBudget turns budget exhaustion into an *IncompleteError.
	StrictBudget  bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Adaptive:      false,
		Tolerance:     1e-5,
		MinStep:       1e-12,
		MaxSteps:      10000,
		ValidateState: true,
	}
}

// Sample is one point of the trace. H is the step that produced it and is
// zero for the initial point.
type Sample struct {
	X           float64
	H           float64
	State       State
	FloorHit    bool
	ErrEstimate float64
}

// Trace is the outcome of a run. Samples is only populated by Solve.
type Trace struct {
	Samples []Sample
	Final   Sample

	// Completed reports the final x equals x_end.
	Completed bool
	// Truncated reports the step budget ran out first.
	Truncated bool
	// Stopped reports the consumer ended the run early.
	Stopped bool

	Accepted    int
	Rejected    int
	Grown       int
	FloorHits   int
	Evaluations int
	Metrics     map[string]float64
}

func (t *Trace) Xs() []float64 {
	xs := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		xs[i] = s.X
	}
	return xs
}

// Component extracts state component i across the trace.
func (t *Trace) Component(i int) []float64 {
	vals := make([]float64, 0, len(t.Samples))
	for _, s := range t.Samples {
		if i < len(s.State) {
			vals = append(vals, s.State[i])
		}
	}
	return vals
}

// Steps returns the step sizes of every accepted sample.
func (t *Trace) Steps() []float64 {
	hs := make([]float64, 0, len(t.Samples))
	for _, s := range t.Samples[min(1, len(t.Samples)):] {
		hs = append(hs, s.H)
	}
	return hs
}
