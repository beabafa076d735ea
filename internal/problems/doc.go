// Package problems provides right-hand sides for the solver.
//
// Each problem implements [dynamo.System]. Problems with a closed-form
// first component also implement [dynamo.Analytic], which the reporting
// layer uses for the exact and error columns:
//
//   - [Exponential]: du/dx = k*u (analytic)
//   - [Oscillator]: harmonic oscillator, 2-D (analytic, Hamiltonian)
//   - [Logistic]: du/dx = r*u*(1 - u/K) (analytic)
//   - [Cubic]: du/dx = 3x^2, integrated exactly by RK4 (analytic)
//   - [Decay]: fast linear decay du/dx = -lambda*(u - cos x) (analytic)
//   - [VanDerPol]: nonlinear limit cycle, 2-D
//   - [Lorenz]: chaotic attractor, 3-D
//   - [Rough]: discontinuous slope, forces a floor-size step (analytic)
//
// All problems implement [dynamo.Configurable] for parameter overrides.
package problems
