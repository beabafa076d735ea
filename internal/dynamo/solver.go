package dynamo

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

const machineEps = 0x1p-52

type Solver struct {
	stepper Stepper
	metrics []Metric
	logger  *slog.Logger
}

type Option func(*Solver)

func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(stepper Stepper, opts ...Option) *Solver {
	s := &Solver{
		stepper: stepper,
		metrics: make([]Metric, 0),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Solver) AddMetric(m Metric) { s.metrics = append(s.metrics, m) }

// Solve runs the problem to completion and keeps every sample.
func (s *Solver) Solve(ctx context.Context, p Problem, cfg Config) (*Trace, error) {
	capHint := 0
	if p.Steps > 0 {
		capHint = min(p.Steps+1, 4096)
	}
	samples := make([]Sample, 0, capHint)
	tr, err := s.Run(ctx, p, cfg, func(smp Sample) bool {
		samples = append(samples, smp)
		return true
	})
	if tr != nil {
		tr.Samples = samples
	}
	return tr, err
}

// Stream yields samples lazily. A run error is yielded once, after the last
// sample, with a zero Sample.
func (s *Solver) Stream(ctx context.Context, p Problem, cfg Config) iter.Seq2[Sample, error] {
	return func(yield func(Sample, error) bool) {
		stopped := false
		_, err := s.Run(ctx, p, cfg, func(smp Sample) bool {
			if !yield(smp, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(Sample{}, err)
		}
	}
}

// Run integrates p and passes every sample to emit in order, starting with
// the initial point. Returning false from emit ends the run early. The
// returned trace carries counters and the final sample but no sample list.
//
// Precondition violations are returned before any sample is emitted.
// Budget exhaustion is reported through Trace.Truncated and only becomes an
// error when cfg.StrictBudget is set.
func (s *Solver) Run(ctx context.Context, p Problem, cfg Config, emit func(Sample) bool) (tr *Trace, err error) {
	if err := s.validate(p, cfg); err != nil {
		return nil, err
	}

	r := &run{
		solver: s,
		p:      p,
		cfg:    cfg,
		emit:   emit,
		log:    s.logger,
		tr:     &Trace{Metrics: make(map[string]float64)},
	}
	r.f = r.guard(p.Derivative, len(p.Initial))

	for _, m := range s.metrics {
		m.Reset()
	}

	defer func() {
		if rec := recover(); rec != nil {
			dp, ok := rec.(dimensionPanic)
			if !ok {
				panic(rec)
			}
			err = fmt.Errorf("%w: derivative returned %d components at x=%g, want %d",
				ErrDimensionMismatch, dp.got, dp.x, dp.want)
		}
		r.tr.Evaluations = r.evals
		for _, m := range s.metrics {
			r.tr.Metrics[m.Name()] = m.Value()
		}
		tr = r.tr
	}()

	if cfg.Adaptive {
		return r.tr, r.adaptive(ctx)
	}
	return r.tr, r.fixed(ctx)
}

func (s *Solver) validate(p Problem, cfg Config) error {
	if p.Derivative == nil {
		return ErrNilDerivative
	}
	if len(p.Initial) == 0 {
		return ErrEmptyState
	}
	if !finite(p.XStart) || !finite(p.XEnd) || p.XStart >= p.XEnd {
		return fmt.Errorf("%w: got [%g, %g]", ErrInvalidInterval, p.XStart, p.XEnd)
	}
	if p.Steps <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSteps, p.Steps)
	}
	if cfg.Adaptive {
		if !(cfg.Tolerance > 0) {
			return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidConfig, cfg.Tolerance)
		}
		if !(cfg.MinStep > 0) {
			return fmt.Errorf("%w: minimum step must be positive, got %g", ErrInvalidConfig, cfg.MinStep)
		}
		if cfg.MaxSteps <= 0 {
			return fmt.Errorf("%w: max steps must be positive, got %d", ErrInvalidConfig, cfg.MaxSteps)
		}
	}
	if d := p.Derivative(p.XStart, p.Initial.Clone()); len(d) != len(p.Initial) {
		return fmt.Errorf("%w: derivative returned %d components, initial state has %d",
			ErrDimensionMismatch, len(d), len(p.Initial))
	}
	return nil
}

type dimensionPanic struct {
	x         float64
	got, want int
}

type run struct {
	solver *Solver
	p      Problem
	cfg    Config
	f      DerivativeFunc
	emit   func(Sample) bool
	log    *slog.Logger
	tr     *Trace
	evals  int
}

// guard counts evaluations and aborts the run if f changes dimension.
func (r *run) guard(f DerivativeFunc, dim int) DerivativeFunc {
	return func(x float64, u State) State {
		r.evals++
		d := f(x, u)
		if len(d) != dim {
			panic(dimensionPanic{x: x, got: len(d), want: dim})
		}
		return d
	}
}

func (r *run) record(smp Sample) bool {
	r.tr.Final = smp
	if smp.FloorHit {
		r.tr.FloorHits++
	}
	for _, m := range r.solver.metrics {
		m.Observe(smp)
	}
	if r.emit != nil && !r.emit(smp) {
		r.tr.Stopped = true
		return false
	}
	return true
}

func (r *run) checkState(step int, x float64, u State) error {
	if r.cfg.ValidateState && !u.IsValid() {
		return &SolveError{Step: step, X: x, State: u, Wrapped: ErrInvalidState}
	}
	return nil
}

func (r *run) fixed(ctx context.Context) error {
	p := r.p
	h := (p.XEnd - p.XStart) / float64(p.Steps)
	u := p.Initial.Clone()

	if !r.record(Sample{X: p.XStart, State: u}) {
		return nil
	}

	for i := 1; i <= p.Steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		x := p.XStart + float64(i-1)*h
		u = r.solver.stepper.Advance(r.f, x, u, h)

		next := p.XStart + float64(i)*h
		if i == p.Steps {
			next = p.XEnd
		}
		if err := r.checkState(i, next, u); err != nil {
			return err
		}

		r.tr.Accepted++
		if !r.record(Sample{X: next, H: h, State: u}) {
			return nil
		}
	}

	r.tr.Completed = true
	return nil
}

func (r *run) adaptive(ctx context.Context) error {
	p, cfg := r.p, r.cfg
	eps := boundaryTol(p.XStart, p.XEnd)

	x := p.XStart
	u := p.Initial.Clone()
	h := (p.XEnd - p.XStart) / float64(p.Steps)

	if !r.record(Sample{X: x, State: u}) {
		return nil
	}

	for x < p.XEnd-eps && r.tr.Accepted < cfg.MaxSteps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Below res, x+h no longer moves x; the floor never drops under it.
		res := resolution(x)
		h = max(h, res)
		floor := max(cfg.MinStep, res)

		// The clamp applies to this attempt only; h keeps its value.
		hStep, clamped := h, false
		if x+hStep > p.XEnd-eps {
			hStep, clamped = p.XEnd-x, true
		}

		_, half, errNorm := StepDoubling(r.solver.stepper, r.f, x, u, hStep)
		outcome := AnalyzeStep(errNorm, cfg.Tolerance, hStep, floor)

		if outcome == RejectAndShrink {
			r.tr.Rejected++
			h = hStep / 2
			r.log.Debug("step rejected", "x", x, "h", hStep, "err", errNorm)
			continue
		}

		if clamped {
			x = p.XEnd
		} else {
			x += hStep
		}
		u = half
		r.tr.Accepted++

		if err := r.checkState(r.tr.Accepted, x, u); err != nil {
			return err
		}

		floorHit := errNorm > cfg.Tolerance
		if floorHit {
			r.log.Debug("step accepted at minimum size", "x", x, "h", hStep, "err", errNorm, "tol", cfg.Tolerance)
		}
		if outcome == AcceptAndGrow {
			r.tr.Grown++
			h = hStep * 2
		}

		if !r.record(Sample{X: x, H: hStep, State: u, FloorHit: floorHit, ErrEstimate: errNorm}) {
			return nil
		}
	}

	if x > p.XEnd || scalar.EqualWithinAbs(x, p.XEnd, eps) {
		r.tr.Completed = true
		return nil
	}

	r.tr.Truncated = true
	r.log.Warn("iteration budget exhausted", "x", x, "x_end", p.XEnd, "max_steps", cfg.MaxSteps)
	if cfg.StrictBudget {
		return &IncompleteError{Reached: x, XEnd: p.XEnd, MaxSteps: cfg.MaxSteps}
	}
	return nil
}

// boundaryTol is the distance from x_end under which x counts as arrived.
func boundaryTol(xStart, xEnd float64) float64 {
	return 64 * machineEps * math.Max(math.Abs(xStart), math.Abs(xEnd))
}

// resolution is twice the float spacing at x.
func resolution(x float64) float64 {
	a := math.Abs(x)
	return 2 * (math.Nextafter(a, math.Inf(1)) - a)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
