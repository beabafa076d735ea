package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/experiment"
)

// Scenario is a scripted sequence of runs.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Runs        []ScenarioRun `yaml:"runs"`
}

// ScenarioRun is one run of a scenario. Fields not given in the file take
// the values of config.DefaultConfig.
type ScenarioRun struct {
	SaveAs string
	Config config.Config
}

func (r *ScenarioRun) UnmarshalYAML(node *yaml.Node) error {
	var aux struct {
		SaveAs string `yaml:"save_as"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	if err := node.Decode(cfg); err != nil {
		return err
	}
	r.SaveAs = aux.SaveAs
	r.Config = *cfg
	return nil
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("scenario %q has no runs", scenario.Name)
	}

	return &scenario, nil
}

type Result struct {
	Name       string
	Config     config.Config
	Experiment *experiment.Experiment
	Trace      *dynamo.Trace
}

// RunScenario executes all runs in order and stops at the first failure.
// Results of the runs before the failure are returned with the error.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger *slog.Logger) ([]Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	results := make([]Result, 0, len(scenario.Runs))

	for i, run := range scenario.Runs {
		name := run.SaveAs
		if name == "" {
			name = fmt.Sprintf("%s#%d", run.Config.Problem, i+1)
		}
		logger.Info("scenario run", "scenario", scenario.Name, "run", i+1, "of", len(scenario.Runs), "name", name)

		if err := run.Config.Validate(); err != nil {
			return results, fmt.Errorf("run %d (%s): %w", i+1, name, err)
		}
		exp, err := experiment.Build(registry, run.Config.ExperimentConfig(), logger)
		if err != nil {
			return results, fmt.Errorf("run %d (%s): %w", i+1, name, err)
		}

		tr, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("run %d (%s): %w", i+1, name, err)
		}

		results = append(results, Result{Name: name, Config: run.Config, Experiment: exp, Trace: tr})
	}

	return results, nil
}

// ParameterSweep runs one problem across evenly spaced values of a parameter.
type ParameterSweep struct {
	Base      config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds the outcome of one sweep point. MaxError is NaN for
// problems without a closed form; the energy bounds are zero for problems
// without a Hamiltonian.
type SweepResult struct {
	ParamValue  float64
	FinalState  dynamo.State
	Accepted    int
	Rejected    int
	Evaluations int
	MaxError    float64
	MaxEnergy   float64
	MinEnergy   float64
}

// RunSweep executes a parameter sweep
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one point, got %d", sweep.NumSteps)
	}
	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := sweep.Base.ExperimentConfig()
		cfg.Params[sweep.ParamName] = paramVal

		exp, err := experiment.Build(registry, cfg, nil)
		if err != nil {
			return results, err
		}
		tr, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}

		res := SweepResult{
			ParamValue:  paramVal,
			FinalState:  tr.Final.State,
			Accepted:    tr.Accepted,
			Rejected:    tr.Rejected,
			Evaluations: tr.Evaluations,
			MaxError:    math.NaN(),
		}
		if exp.Problem().Exact.Ok() {
			res.MaxError = tr.Metrics["max_error"]
		}
		if h, ok := exp.Model().(dynamo.Hamiltonian); ok && len(tr.Samples) > 0 {
			res.MinEnergy, res.MaxEnergy = math.Inf(1), math.Inf(-1)
			for _, s := range tr.Samples {
				e := h.Energy(s.State)
				res.MinEnergy = math.Min(res.MinEnergy, e)
				res.MaxEnergy = math.Max(res.MaxEnergy, e)
			}
		}

		results = append(results, res)
	}

	return results, nil
}
