package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/odestep/internal/dynamo"
)

type Config struct {
	Problem   string
	Stepper   string
	XStart    float64
	XEnd      float64
	Steps     int
	InitState []float64
	Params    map[string]float64
	Solver    dynamo.Config
}

type Experiment struct {
	cfg     Config
	model   Model
	problem dynamo.Problem
	solver  *dynamo.Solver
	logger  *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Experiment {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Experiment{cfg: cfg, logger: logger}
}

// Setup applies parameter overrides to model and binds it to a fresh solver.
// An empty InitState falls back to the model default.
func (e *Experiment) Setup(model Model, stepper dynamo.Stepper, metrics []dynamo.Metric) error {
	for name, v := range e.cfg.Params {
		if err := model.SetParam(name, v); err != nil {
			return err
		}
	}

	u0 := dynamo.State(e.cfg.InitState).Clone()
	if len(u0) == 0 {
		u0 = model.DefaultState()
	}
	if len(u0) != model.Dim() {
		return fmt.Errorf("%w: %s expects %d initial values, got %d",
			dynamo.ErrDimensionMismatch, e.cfg.Problem, model.Dim(), len(u0))
	}

	e.model = model
	e.problem = BuildProblem(model, e.cfg.XStart, e.cfg.XEnd, e.cfg.Steps, u0)
	e.solver = dynamo.New(stepper, dynamo.WithLogger(e.logger))
	for _, m := range metrics {
		e.solver.AddMetric(m)
	}
	return nil
}

// Build resolves the configured names through reg and runs Setup with the
// registry's default metrics.
func Build(reg *Registry, cfg Config, logger *slog.Logger) (*Experiment, error) {
	model, err := reg.GetModel(cfg.Problem)
	if err != nil {
		return nil, err
	}
	stepperName := cfg.Stepper
	if stepperName == "" {
		stepperName = "rk4"
	}
	stepper, err := reg.GetStepper(stepperName)
	if err != nil {
		return nil, err
	}

	e := New(cfg, logger)
	if err := e.Setup(model, stepper, nil); err != nil {
		return nil, err
	}
	for _, m := range reg.DefaultMetrics(model, e.problem.Exact) {
		e.solver.AddMetric(m)
	}
	return e, nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Trace, error) {
	if e.solver == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	start := time.Now()
	tr, err := e.solver.Solve(ctx, e.problem, e.cfg.Solver)
	if err != nil {
		e.logger.Error("run failed", "problem", e.cfg.Problem, "error", err)
		return tr, err
	}
	e.logger.Info("run finished",
		"problem", e.cfg.Problem,
		"adaptive", e.cfg.Solver.Adaptive,
		"accepted", tr.Accepted,
		"rejected", tr.Rejected,
		"floor_hits", tr.FloorHits,
		"truncated", tr.Truncated,
		"elapsed", time.Since(start))
	return tr, nil
}

func (e *Experiment) Config() Config          { return e.cfg }
func (e *Experiment) Model() Model            { return e.model }
func (e *Experiment) Problem() dynamo.Problem { return e.problem }
func (e *Experiment) Solver() *dynamo.Solver  { return e.solver }

// BuildProblem turns a system into a problem, attaching the closed-form
// solution when the system has one.
func BuildProblem(sys dynamo.System, xStart, xEnd float64, steps int, u0 dynamo.State) dynamo.Problem {
	p := dynamo.Problem{
		XStart:     xStart,
		XEnd:       xEnd,
		Steps:      steps,
		Initial:    u0,
		Derivative: sys.Derive,
		Exact:      dynamo.NoExact(),
	}
	if a, ok := sys.(dynamo.Analytic); ok {
		p.Exact = dynamo.SomeExact(a.Solution(xStart, u0.Clone()))
	}
	return p
}
