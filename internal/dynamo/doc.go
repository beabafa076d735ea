// Package dynamo provides the integration core for first-order ODE systems
// du/dx = f(x, u).
//
//   - [State]: immutable-by-convention vector of scalars
//   - [Stepper]: single fixed-size advance (see integrators.RK4)
//   - [Solver]: fixed-grid driver and step-doubling adaptive controller
//   - [AnalyzeStep]: pure accept/grow/reject decision
//   - [Trace]: ordered samples plus run statistics
//
// # Example
//
//	s := dynamo.New(integrators.NewRK4())
//	p := dynamo.Problem{XStart: 0, XEnd: 2, Steps: 20, Initial: dynamo.State{1}, Derivative: f}
//	cfg := dynamo.DefaultConfig()
//	cfg.Adaptive = true
//	tr, err := s.Solve(ctx, p, cfg)
//
// # Degraded runs
//
// Neither a step accepted at the minimum size nor an exhausted step budget
// aborts a run. The first is flagged on the sample ([Sample.FloorHit]), the
// second on the trace ([Trace.Truncated]); set [Config.StrictBudget] to turn
// the latter into an error.
//
// # Thread Safety
//
// Solver instances are NOT thread-safe. Use one Solver per trajectory.
package dynamo
