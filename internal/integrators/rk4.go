package integrators

import "github.com/san-kum/odestep/internal/dynamo"

// RK4 is the classical four-stage Runge-Kutta stepper. The stage vectors are
// reused between calls, so an RK4 must not be shared across goroutines.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

// Advance returns v advanced by exactly h. v is not modified.
func (r *RK4) Advance(f dynamo.DerivativeFunc, x float64, v dynamo.State, h float64) dynamo.State {
	n := len(v)
	r.ensureScratch(n)
	half := h * 0.5

	copy(r.k1, f(x, v))

	for i := 0; i < n; i++ {
		r.scratch[i] = v[i] + half*r.k1[i]
	}
	copy(r.k2, f(x+half, r.scratch))

	for i := 0; i < n; i++ {
		r.scratch[i] = v[i] + half*r.k2[i]
	}
	copy(r.k3, f(x+half, r.scratch))

	for i := 0; i < n; i++ {
		r.scratch[i] = v[i] + h*r.k3[i]
	}
	copy(r.k4, f(x+h, r.scratch))

	result := make(dynamo.State, n)
	h6 := h / 6.0
	for i := 0; i < n; i++ {
		result[i] = v[i] + h6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return result
}
