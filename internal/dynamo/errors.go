package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integration runs.
var (
	// ErrInvalidState indicates a state with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates the derivative returned a vector whose
	// length differs from the initial state.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and derivative")

	// ErrInvalidInterval indicates x_start >= x_end or a non-finite bound.
	ErrInvalidInterval = errors.New("dynamo: integration interval must satisfy x_start < x_end")

	// ErrInvalidSteps indicates a non-positive nominal step count.
	ErrInvalidSteps = errors.New("dynamo: step count must be positive")

	// ErrInvalidConfig indicates controller parameters out of range.
	ErrInvalidConfig = errors.New("dynamo: invalid controller configuration")

	// ErrEmptyState indicates a zero-dimension initial state.
	ErrEmptyState = errors.New("dynamo: initial state is empty")

	// ErrNilDerivative indicates a problem without a right-hand side.
	ErrNilDerivative = errors.New("dynamo: derivative function is nil")

	// ErrIterationBudget indicates the accepted-step budget ran out before x_end.
	ErrIterationBudget = errors.New("dynamo: iteration budget exhausted before x_end")
)

// SolveError wraps an error with the position in the run where it surfaced.
type SolveError struct {
	Step    int
	X       float64
	State   State
	Wrapped error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("step %d (x=%.6g): %v", e.Step, e.X, e.Wrapped)
}

func (e *SolveError) Unwrap() error {
	return e.Wrapped
}

// IncompleteError reports a run stopped short of x_end by the step budget.
type IncompleteError struct {
	Reached  float64
	XEnd     float64
	MaxSteps int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%v: reached x=%.6g of %.6g after %d steps", ErrIterationBudget, e.Reached, e.XEnd, e.MaxSteps)
}

func (e *IncompleteError) Unwrap() error {
	return ErrIterationBudget
}
