package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/odestep/internal/analysis"
	"github.com/san-kum/odestep/internal/automation"
	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/experiment"
	"github.com/san-kum/odestep/internal/optim"
	"github.com/san-kum/odestep/internal/storage"
	"github.com/san-kum/odestep/internal/viz"
)

var (
	dataDir string
	verbose bool
	styled  bool

	configFile string
	preset     string
	xStart     float64
	xEnd       float64
	steps      int
	initState  []float64
	params     []string
	adaptive   bool
	tolerance  float64
	minStep    float64
	maxSteps   int
	strict     bool
	every      int
	noSave     bool

	component int
	stepsPlot bool
	outFile   string
	width     int
	height    int

	xAxis       int
	yAxis       int
	phaseWidth  int
	phaseHeight int

	base   int
	levels int

	vary     string
	varyFrom float64
	varyTo   float64
	points   int

	tols     []float64
	minSteps []float64
	target   float64

	logger = slog.New(slog.DiscardHandler)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "odestep",
		Short: "RK4 integrator with step-doubling error control",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".odestep", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging (step rejections, floor hits)")
	rootCmd.PersistentFlags().BoolVar(&styled, "styled", false, "colored terminal output")

	runCmd := &cobra.Command{
		Use:   "run [problem]",
		Short: "integrate a problem and store the trace",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProblem,
	}
	addProblemFlags(runCmd)
	runCmd.Flags().IntVar(&every, "every", 1, "print every n-th sample")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	compareCmd := &cobra.Command{
		Use:   "compare [problem]",
		Short: "compare fixed and adaptive stepping on the same problem",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareModes,
	}
	addProblemFlags(compareCmd)

	convergeCmd := &cobra.Command{
		Use:   "converge [problem]",
		Short: "estimate the observed order by step halving",
		Args:  cobra.MaximumNArgs(1),
		RunE:  convergeProblem,
	}
	addProblemFlags(convergeCmd)
	convergeCmd.Flags().IntVar(&base, "base", 20, "step count of the coarsest level")
	convergeCmd.Flags().IntVar(&levels, "levels", 5, "number of halvings")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run every entry of a scenario file and store the traces",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	sweepCmd := &cobra.Command{
		Use:   "sweep [problem]",
		Short: "run a problem across a range of one parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepParam,
	}
	addProblemFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&vary, "vary", "", "parameter to vary")
	sweepCmd.Flags().Float64Var(&varyFrom, "from", 0, "first parameter value")
	sweepCmd.Flags().Float64Var(&varyTo, "to", 1, "last parameter value")
	sweepCmd.Flags().IntVar(&points, "points", 5, "number of values")
	_ = sweepCmd.MarkFlagRequired("vary")

	tuneCmd := &cobra.Command{
		Use:   "tune [problem]",
		Short: "search controller settings for the cheapest run meeting an error target",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneController,
	}
	addProblemFlags(tuneCmd)
	tuneCmd.Flags().Float64SliceVar(&tols, "tols", []float64{1e-2, 1e-4, 1e-6, 1e-8}, "tolerances to try")
	tuneCmd.Flags().Float64SliceVar(&minSteps, "min-steps", nil, "minimum steps to try (default: --min-step)")
	tuneCmd.Flags().Float64Var(&target, "target", 1e-6, "largest acceptable max_error")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print the table and summary of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().IntVar(&every, "every", 1, "print every n-th sample")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a state component or the step sizes",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&component, "component", 0, "state index to plot")
	plotCmd.Flags().BoolVar(&stepsPlot, "steps", false, "plot accepted step sizes instead")
	plotCmd.Flags().StringVar(&outFile, "out", "", "write a .png/.svg/.pdf file instead of a terminal chart")
	plotCmd.Flags().IntVar(&width, "width", 80, "chart width")
	plotCmd.Flags().IntVar(&height, "height", 12, "chart height")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")
	phaseCmd.Flags().IntVar(&phaseWidth, "width", 60, "plot width")
	phaseCmd.Flags().IntVar(&phaseHeight, "height", 24, "plot height")

	replayCmd := &cobra.Command{
		Use:   "replay [run_id]",
		Short: "step through a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  replayRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and samples to JSON on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	problemsCmd := &cobra.Command{
		Use:   "problems",
		Short: "list built-in problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := experiment.NewRegistry()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDIM\tEXACT\tDESCRIPTION")
			for _, name := range reg.ListModels() {
				m, _ := reg.GetModel(name)
				_, exact := m.(dynamo.Analytic)
				fmt.Fprintf(w, "%s\t%d\t%v\t%s\n", name, m.Dim(), exact, reg.Describe(name))
			}
			return w.Flush()
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [problem]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			problems := config.ListPresetProblems()
			if len(args) == 1 {
				problems = args[:1]
			}
			for _, problem := range problems {
				names := config.ListPresets(problem)
				if len(names) == 0 {
					fmt.Fprintf(out, "no presets for problem: %s\n", problem)
					continue
				}
				fmt.Fprintf(out, "presets for %s:\n", problem)
				for _, name := range names {
					fmt.Fprintf(out, "  %s\n", name)
				}
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, compareCmd, convergeCmd, batchCmd, sweepCmd, tuneCmd, listCmd, showCmd, plotCmd, phaseCmd,
		replayCmd, exportCSVCmd, exportJSONCmd, problemsCmd, presetsCmd)
	return rootCmd
}

func addProblemFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&xStart, "x0", d.XStart, "start of the interval")
	cmd.Flags().Float64Var(&xEnd, "x1", d.XEnd, "end of the interval")
	cmd.Flags().IntVar(&steps, "steps", d.Steps, "step count (fixed) or seed step count (adaptive)")
	cmd.Flags().Float64SliceVar(&initState, "init", nil, "initial state, comma separated")
	cmd.Flags().StringArrayVar(&params, "param", nil, "problem parameter as name=value (repeatable)")
	cmd.Flags().BoolVar(&adaptive, "adaptive", false, "enable the step-doubling controller")
	cmd.Flags().Float64Var(&tolerance, "tol", d.Adaptive.Tolerance, "error tolerance")
	cmd.Flags().Float64Var(&minStep, "min-step", d.Adaptive.MinStep, "minimum step size")
	cmd.Flags().IntVar(&maxSteps, "max-steps", d.Adaptive.MaxSteps, "accepted step budget")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the step budget runs out")
}

// resolveConfig builds the run configuration. A preset or config file
// replaces the defaults and explicitly set flags override either.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	if preset != "" && configFile != "" {
		return nil, errors.New("--preset and --config are mutually exclusive")
	}

	cfg := config.DefaultConfig()
	switch {
	case preset != "":
		if len(args) == 0 {
			return nil, errors.New("--preset needs a problem argument")
		}
		cfg = config.GetPreset(args[0], preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(args[0]))
		}
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if len(args) == 1 {
		cfg.Problem = args[0]
	}

	flags := cmd.Flags()
	if flags.Changed("x0") {
		cfg.XStart = xStart
	}
	if flags.Changed("x1") {
		cfg.XEnd = xEnd
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("init") {
		cfg.InitState = append([]float64(nil), initState...)
	}
	if flags.Changed("adaptive") {
		cfg.Adaptive.Enabled = adaptive
	}
	if flags.Changed("tol") {
		cfg.Adaptive.Tolerance = tolerance
	}
	if flags.Changed("min-step") {
		cfg.Adaptive.MinStep = minStep
	}
	if flags.Changed("max-steps") {
		cfg.Adaptive.MaxSteps = maxSteps
	}
	if flags.Changed("strict") {
		cfg.Adaptive.Strict = strict
	}
	for _, kv := range params {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("bad --param %q, want name=value", kv)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("bad --param %q: %w", kv, err)
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		cfg.Params[name] = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runProblem(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	exp, err := experiment.Build(experiment.NewRegistry(), cfg.ExperimentConfig(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	mode := "fixed"
	if cfg.Adaptive.Enabled {
		mode = "adaptive"
	}
	fmt.Fprintf(out, "running %s (%s step)...\n", cfg.Problem, mode)
	start := time.Now()

	tr, err := exp.Run(ctx)
	if err != nil && tr == nil {
		return err
	}
	elapsed := time.Since(start)

	if werr := viz.WriteTable(out, tr, viz.TableOptions{Exact: exp.Problem().Exact, Every: every, Styled: styled}); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\ncompleted in %v\n", elapsed)
	if err := viz.WriteSummary(out, tr, styled); err != nil {
		return err
	}

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(metadataFor(cfg, exp.Problem()), tr)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run id: %s\n", runID)
	return nil
}

func metadataFor(cfg *config.Config, p dynamo.Problem) storage.RunMetadata {
	return storage.RunMetadata{
		Problem:   cfg.Problem,
		Stepper:   cfg.Stepper,
		XStart:    p.XStart,
		XEnd:      p.XEnd,
		Steps:     p.Steps,
		InitState: p.Initial,
		Params:    cfg.Params,
		Adaptive:  cfg.Adaptive.Enabled,
		Tolerance: cfg.Adaptive.Tolerance,
		MinStep:   cfg.Adaptive.MinStep,
		MaxSteps:  cfg.Adaptive.MaxSteps,
	}
}

func compareModes(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tACCEPTED\tREJECTED\tFLOOR\tEVALS\tFINAL X\tMAX ERROR\tFINAL ERROR")

	reg := experiment.NewRegistry()
	for _, on := range []bool{false, true} {
		cfg.Adaptive.Enabled = on
		exp, err := experiment.Build(reg, cfg.ExperimentConfig(), logger)
		if err != nil {
			return err
		}
		tr, err := exp.Run(cmd.Context())
		if err != nil {
			return err
		}

		mode := "fixed"
		if on {
			mode = "adaptive"
		}
		maxErr, finalErr := "-", "-"
		if exp.Problem().Exact.Ok() {
			maxErr = fmt.Sprintf("%.3e", tr.Metrics["max_error"])
			finalErr = fmt.Sprintf("%.3e", tr.Metrics["final_error"])
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.6g\t%s\t%s\n",
			mode, tr.Accepted, tr.Rejected, tr.FloorHits, tr.Evaluations, tr.Final.X, maxErr, finalErr)
	}
	return w.Flush()
}

func convergeProblem(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	exp, err := experiment.Build(experiment.NewRegistry(), cfg.ExperimentConfig(), logger)
	if err != nil {
		return err
	}
	p := exp.Problem()
	exact, ok := p.Exact.Eval(p.XEnd)
	if !ok {
		return fmt.Errorf("problem %s has no exact solution", cfg.Problem)
	}

	est, err := analysis.ObservedOrder(analysis.FixedFinal(cmd.Context(), exp.Solver(), p), exact, base, levels)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEPS\tH\tERROR\tORDER")
	for _, e := range est {
		order := "-"
		if !math.IsNaN(e.Order) {
			order = fmt.Sprintf("%.3f", e.Order)
		}
		fmt.Fprintf(w, "%d\t%.4g\t%.3e\t%s\n", e.Steps, (p.XEnd-p.XStart)/float64(e.Steps), e.Error, order)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nmean observed order: %.3f\n", analysis.MeanOrder(est))
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Fprintf(out, "%s\n", scenario.Description)
	}
	fmt.Fprintln(out)

	results, runErr := automation.RunScenario(ctx, scenario, experiment.NewRegistry(), logger)

	var st *storage.Store
	if !noSave {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPROBLEM\tMODE\tACCEPTED\tREJECTED\tFLOOR\tFINAL X\tRUN ID")
	for _, res := range results {
		mode := "fixed"
		if res.Config.Adaptive.Enabled {
			mode = "adaptive"
		}
		runID := "-"
		if st != nil {
			meta := metadataFor(&res.Config, res.Experiment.Problem())
			meta.ID = res.Name
			if runID, err = st.Save(meta, res.Trace); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.6g\t%s\n",
			res.Name, res.Config.Problem, mode, res.Trace.Accepted, res.Trace.Rejected,
			res.Trace.FloorHits, res.Trace.Final.X, runID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func sweepParam(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	sweep := &automation.ParameterSweep{
		Base:      *cfg,
		ParamName: vary,
		ParamMin:  varyFrom,
		ParamMax:  varyTo,
		NumSteps:  points,
	}
	results, err := automation.RunSweep(cmd.Context(), sweep, experiment.NewRegistry())
	if err != nil && len(results) == 0 {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tACCEPTED\tREJECTED\tEVALS\tFINAL u0\tMAX ERROR\tENERGY SPREAD\n", strings.ToUpper(vary))
	for _, r := range results {
		maxErr := "-"
		if !math.IsNaN(r.MaxError) {
			maxErr = fmt.Sprintf("%.3e", r.MaxError)
		}
		spread := "-"
		if r.MaxEnergy != 0 || r.MinEnergy != 0 {
			spread = fmt.Sprintf("%.3e", r.MaxEnergy-r.MinEnergy)
		}
		fmt.Fprintf(w, "%g\t%d\t%d\t%d\t%.8g\t%s\t%s\n",
			r.ParamValue, r.Accepted, r.Rejected, r.Evaluations, r.FinalState[0], maxErr, spread)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func tuneController(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(tols) == 0 {
		return errors.New("--tols needs at least one value")
	}
	floors := minSteps
	if len(floors) == 0 {
		floors = []float64{cfg.Adaptive.MinStep}
	}

	reg := experiment.NewRegistry()
	build := func(p map[string]float64) (*experiment.Experiment, error) {
		c := *cfg
		c.Adaptive.Enabled = true
		c.Adaptive.Tolerance = p["tol"]
		c.Adaptive.MinStep = p["min_step"]
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return experiment.Build(reg, c.ExperimentConfig(), logger)
	}

	grid := optim.NewGridSearch([]string{"tol", "min_step"}, [][]float64{tols, floors})
	pts, err := grid.Sweep(cmd.Context(), build)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOL\tMIN STEP\tACCEPTED\tREJECTED\tEVALS\tMAX ERROR")
	for _, pt := range pts {
		if pt.Err != nil {
			fmt.Fprintf(w, "%g\t%g\terror: %v\n", pt.Params["tol"], pt.Params["min_step"], pt.Err)
			continue
		}
		maxErr := "-"
		if v, ok := pt.Metrics["max_error"]; ok {
			maxErr = fmt.Sprintf("%.3e", v)
		}
		fmt.Fprintf(w, "%g\t%g\t%.0f\t%.0f\t%.0f\t%s\n", pt.Params["tol"], pt.Params["min_step"],
			pt.Metrics["accepted"], pt.Metrics["rejected"], pt.Metrics["evaluations"], maxErr)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	best, ok := optim.Cheapest(pts, "max_error", target)
	if !ok {
		return fmt.Errorf("no setting reached max_error <= %g", target)
	}
	fmt.Fprintf(out, "\ncheapest within %g: tol=%g min_step=%g (%.0f evaluations)\n",
		target, best.Params["tol"], best.Params["min_step"], best.Metrics["evaluations"])
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROBLEM\tTIME\tINTERVAL\tMODE\tSTEPS\tSTATUS")
	for _, run := range runs {
		mode := "fixed"
		if run.Adaptive {
			mode = fmt.Sprintf("adaptive(%g)", run.Tolerance)
		}
		status := "completed"
		if run.Truncated {
			status = "truncated"
		} else if !run.Completed {
			status = "incomplete"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t[%g, %g]\t%s\t%d\t%s\n",
			run.ID,
			run.Problem,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.XStart, run.XEnd,
			mode,
			run.Accepted,
			status,
		)
	}
	return w.Flush()
}

// loadRun reads a stored run and rebuilds its exact solution from the
// registry when the problem has one.
func loadRun(runID string) (*storage.RunMetadata, *dynamo.Trace, dynamo.Exact, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, dynamo.NoExact(), err
	}
	tr, err := st.LoadTrace(runID)
	if err != nil {
		return nil, nil, dynamo.NoExact(), err
	}
	if len(tr.Samples) == 0 {
		return nil, nil, dynamo.NoExact(), fmt.Errorf("run %s has no samples", runID)
	}

	tr.Completed = meta.Completed
	tr.Truncated = meta.Truncated
	tr.Accepted = meta.Accepted
	tr.Rejected = meta.Rejected
	tr.Grown = meta.Grown
	tr.Evaluations = meta.Evaluations
	tr.Metrics = meta.Metrics

	exact := dynamo.NoExact()
	reg := experiment.NewRegistry()
	if m, err := reg.GetModel(meta.Problem); err == nil {
		for name, v := range meta.Params {
			_ = m.SetParam(name, v)
		}
		exact = experiment.BuildProblem(m, meta.XStart, meta.XEnd, meta.Steps, tr.Samples[0].State).Exact
	}
	return meta, tr, exact, nil
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, tr, exact, err := loadRun(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\nproblem: %s\ninterval: [%g, %g]\n\n", meta.ID, meta.Problem, meta.XStart, meta.XEnd)
	if err := viz.WriteTable(out, tr, viz.TableOptions{Exact: exact, Every: every, Styled: styled}); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return viz.WriteSummary(out, tr, styled)
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, tr, exact, err := loadRun(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if outFile != "" {
		if err := viz.SavePlot(outFile, tr, component, exact, fmt.Sprintf("%s (%s)", meta.Problem, meta.ID)); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", outFile)
		return nil
	}

	fmt.Fprintf(out, "run: %s\nproblem: %s\nsamples: %d\n\n", meta.ID, meta.Problem, len(tr.Samples))
	var graph string
	if stepsPlot {
		graph, err = viz.PlotSteps(tr, width, height)
	} else {
		graph, err = viz.PlotASCII(tr, component, width, height)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, graph)
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, tr, _, err := loadRun(args[0])
	if err != nil {
		return err
	}

	portrait := analysis.PhasePortrait(tr, xAxis, yAxis)
	if portrait == nil {
		return fmt.Errorf("state dimension %d too small for axes %d, %d", len(tr.Samples[0].State), xAxis, yAxis)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "phase space plot: %s\n", meta.ID)
	fmt.Fprintf(out, "problem: %s\n", meta.Problem)
	fmt.Fprintf(out, "x-axis: u%d, y-axis: u%d\n", xAxis, yAxis)
	fmt.Fprintf(out, "%c start  %c sample  %c floor hit (%d)\n\n",
		analysis.GlyphStart, analysis.GlyphSample, analysis.GlyphFloor, tr.FloorHits)
	fmt.Fprint(out, analysis.PhasePortraitToASCII(portrait, phaseWidth, phaseHeight))
	return nil
}

func replayRun(cmd *cobra.Command, args []string) error {
	meta, tr, exact, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return viz.Replay(tr, exact, fmt.Sprintf("%s  %s", meta.Problem, meta.ID))
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, tr, _, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.WriteCSV(cmd.OutOrStdout(), tr)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, tr, _, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(cmd.OutOrStdout(), *meta, tr)
}
