package experiment

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/san-kum/odestep/internal/dynamo"
)

func fixedConfig(problem string) Config {
	return Config{
		Problem: problem,
		Stepper: "rk4",
		XStart:  0,
		XEnd:    2,
		Steps:   20,
		Solver:  dynamo.DefaultConfig(),
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	want := []string{"cubic", "decay", "exponential", "logistic", "lorenz", "oscillator", "rough", "vanderpol"}
	if got := reg.ListModels(); !slices.Equal(got, want) {
		t.Errorf("ListModels() = %v, want %v", got, want)
	}
	for _, name := range want {
		m, err := reg.GetModel(name)
		if err != nil {
			t.Fatalf("GetModel(%q): %v", name, err)
		}
		if len(m.DefaultState()) != m.Dim() {
			t.Errorf("%s: default state has %d values, Dim() = %d", name, len(m.DefaultState()), m.Dim())
		}
		if reg.Describe(name) == "" {
			t.Errorf("%s: missing description", name)
		}
	}

	if _, err := reg.GetModel("pendulum"); err == nil {
		t.Error("expected error for unknown problem")
	}
	if _, err := reg.GetStepper("rk4"); err != nil {
		t.Errorf("GetStepper(rk4): %v", err)
	}
	if _, err := reg.GetStepper("euler"); err == nil {
		t.Error("expected error for unknown stepper")
	}
}

func TestDefaultMetrics(t *testing.T) {
	reg := NewRegistry()
	names := func(ms []dynamo.Metric) []string {
		out := make([]string, len(ms))
		for i, m := range ms {
			out[i] = m.Name()
		}
		return out
	}

	osc, _ := reg.GetModel("oscillator")
	got := names(reg.DefaultMetrics(osc, dynamo.SomeExact(math.Cos)))
	for _, want := range []string{"max_error", "final_error", "energy_drift", "floor_hits", "min_step", "max_step"} {
		if !slices.Contains(got, want) {
			t.Errorf("oscillator metrics %v missing %s", got, want)
		}
	}

	vdp, _ := reg.GetModel("vanderpol")
	got = names(reg.DefaultMetrics(vdp, dynamo.NoExact()))
	if slices.Contains(got, "max_error") || slices.Contains(got, "energy_drift") {
		t.Errorf("vanderpol metrics %v should have no error or energy metrics", got)
	}
}

func TestRunExponential(t *testing.T) {
	cfg := fixedConfig("exponential")
	cfg.Params = map[string]float64{"k": 1}

	e, err := Build(NewRegistry(), cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !e.Problem().Exact.Ok() {
		t.Fatal("exponential should carry an exact solution")
	}

	tr, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(tr.Samples) != 21 || !tr.Completed {
		t.Fatalf("expected 21 samples and completion, got %d (completed=%v)", len(tr.Samples), tr.Completed)
	}
	if got := tr.Final.State[0]; math.Abs(got-math.Exp(2)) > 1e-4 {
		t.Errorf("u(2) = %g, want %g", got, math.Exp(2))
	}
	if tr.Metrics["final_error"] > 1e-4 {
		t.Errorf("final_error = %g", tr.Metrics["final_error"])
	}
}

func TestRunRoughHitsFloor(t *testing.T) {
	cfg := fixedConfig("rough")
	cfg.Steps = 8
	cfg.Solver.Adaptive = true
	cfg.Solver.Tolerance = 1e-8
	cfg.Solver.MinStep = 1e-4

	e, err := Build(NewRegistry(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if !tr.Completed {
		t.Fatal("expected the run to reach x_end")
	}
	if tr.FloorHits < 1 {
		t.Fatalf("expected at least one floor hit, got %d", tr.FloorHits)
	}
	if got := tr.Metrics["floor_hits"]; got != float64(tr.FloorHits) {
		t.Errorf("floor_hits metric = %g, trace says %d", got, tr.FloorHits)
	}
	if tr.Metrics["final_error"] > 1e-4 {
		t.Errorf("final_error = %g, want within one floor step", tr.Metrics["final_error"])
	}
}

func TestSetupInitState(t *testing.T) {
	reg := NewRegistry()

	cfg := fixedConfig("oscillator")
	cfg.InitState = []float64{1}
	_, err := Build(reg, cfg, nil)
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	cfg.InitState = []float64{0, 2}
	e, err := Build(reg, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := e.Problem().Initial; !slices.Equal(got, dynamo.State{0, 2}) {
		t.Errorf("initial = %v", got)
	}
	cfg.InitState[0] = 9
	if e.Problem().Initial[0] != 0 {
		t.Error("initial state aliases the config slice")
	}
}

func TestSetupUnknownParam(t *testing.T) {
	cfg := fixedConfig("cubic")
	cfg.Params = map[string]float64{"k": 1}
	if _, err := Build(NewRegistry(), cfg, nil); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestRunWithoutSetup(t *testing.T) {
	e := New(fixedConfig("exponential"), nil)
	if _, err := e.Run(context.Background()); err == nil {
		t.Error("expected error before setup")
	}
}

func TestBuildProblemWithoutSolution(t *testing.T) {
	reg := NewRegistry()
	vdp, _ := reg.GetModel("vanderpol")
	p := BuildProblem(vdp, 0, 1, 10, vdp.DefaultState())
	if p.Exact.Ok() {
		t.Error("vanderpol has no closed form")
	}
	if p.Derivative == nil || len(p.Initial) != 2 {
		t.Errorf("unexpected problem: %+v", p)
	}
}
