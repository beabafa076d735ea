package config

import (
	"math"
	"slices"
)

var Presets = map[string]map[string]*Config{
	"exponential": {
		"fixed": {
			Problem: "exponential", Stepper: "rk4", XStart: 0, XEnd: 2, Steps: 20,
		},
		"adaptive": {
			Problem: "exponential", Stepper: "rk4", XStart: 0, XEnd: 2, Steps: 20,
			Adaptive: AdaptiveConfig{Enabled: true, Tolerance: 1e-4, MinStep: DefaultMinStep, MaxSteps: DefaultMaxSteps},
		},
		"tight": {
			Problem: "exponential", Stepper: "rk4", XStart: 0, XEnd: 2, Steps: 20,
			Adaptive: AdaptiveConfig{Enabled: true, Tolerance: 1e-10, MinStep: DefaultMinStep, MaxSteps: DefaultMaxSteps},
		},
	},
	"oscillator": {
		"period": {
			Problem: "oscillator", Stepper: "rk4", XStart: 0, XEnd: 2 * math.Pi, Steps: 40,
			InitState: []float64{1, 0},
		},
		"long": {
			Problem: "oscillator", Stepper: "rk4", XStart: 0, XEnd: 100, Steps: 100,
			InitState: []float64{1, 0},
			Adaptive:  AdaptiveConfig{Enabled: true, Tolerance: 1e-8, MinStep: DefaultMinStep, MaxSteps: DefaultMaxSteps},
		},
	},
	"logistic": {
		"growth": {
			Problem: "logistic", Stepper: "rk4", XStart: 0, XEnd: 10, Steps: 10,
			Adaptive: AdaptiveConfig{Enabled: true, Tolerance: 1e-6, MinStep: DefaultMinStep, MaxSteps: DefaultMaxSteps},
		},
	},
	"cubic": {
		"exact": {
			Problem: "cubic", Stepper: "rk4", XStart: 0, XEnd: 2, Steps: 20,
			Adaptive: AdaptiveConfig{Enabled: true, Tolerance: DefaultTolerance, MinStep: DefaultMinStep, MaxSteps: DefaultMaxSteps},
		},
	},
	"decay": {
		"fast": {
			Problem: "decay", Stepper: "rk4", XStart: 0, XEnd: 5, Steps: 10,
			Adaptive: AdaptiveConfig{Enabled: true, Tolerance: 1e-6, MinStep: DefaultMinStep, MaxSteps: DefaultMaxSteps},
		},
	},
	"vanderpol": {
		"cycle": {
			Problem: "vanderpol", Stepper: "rk4", XStart: 0, XEnd: 20, Steps: 40,
			InitState: []float64{2, 0},
			Adaptive:  AdaptiveConfig{Enabled: true, Tolerance: 1e-6, MinStep: DefaultMinStep, MaxSteps: DefaultMaxSteps},
		},
	},
	"lorenz": {
		"attractor": {
			Problem: "lorenz", Stepper: "rk4", XStart: 0, XEnd: 10, Steps: 100,
			InitState: []float64{1, 1, 1},
			Adaptive:  AdaptiveConfig{Enabled: true, Tolerance: 1e-6, MinStep: DefaultMinStep, MaxSteps: DefaultMaxSteps},
		},
	},
	"rough": {
		"kink": {
			Problem: "rough", Stepper: "rk4", XStart: 0, XEnd: 2, Steps: 8,
			Adaptive: AdaptiveConfig{Enabled: true, Tolerance: 1e-8, MinStep: 1e-4, MaxSteps: DefaultMaxSteps},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(problem, preset string) *Config {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	cfg, ok := problemPresets[preset]
	if !ok {
		return nil
	}
	out := *cfg
	out.InitState = slices.Clone(cfg.InitState)
	if cfg.Params != nil {
		out.Params = make(map[string]float64, len(cfg.Params))
		for k, v := range cfg.Params {
			out.Params[k] = v
		}
	}
	return &out
}

func ListPresets(problem string) []string {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(problemPresets))
	for name := range problemPresets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func ListPresetProblems() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
