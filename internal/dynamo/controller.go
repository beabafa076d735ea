package dynamo

// Outcome is the controller's verdict on one adaptive attempt.
type Outcome int

const (
	Accept Outcome = iota
	AcceptAndGrow
	RejectAndShrink
)

func (o Outcome) String() string {
	switch o {
	case Accept:
		return "accept"
	case AcceptAndGrow:
		return "accept+grow"
	case RejectAndShrink:
		return "reject+shrink"
	default:
		return "unknown"
	}
}

// growDivisor sets how far under tolerance an error must fall before the
// step is doubled.
const growDivisor = 32

// richardson is 2^4 - 1 for a fourth-order method.
const richardson = 15

// AnalyzeStep classifies an error estimate. Tolerance comparisons are strict;
// the floor check is inclusive so a step already at the floor is accepted
// rather than shrunk forever.
func AnalyzeStep(errNorm, tol, h, minStep float64) Outcome {
	if errNorm > tol {
		if h <= minStep {
			return Accept
		}
		return RejectAndShrink
	}
	if errNorm < tol/growDivisor {
		return AcceptAndGrow
	}
	return Accept
}

// StepDoubling advances u by one step of h and by two steps of h/2 and
// returns both results with the Richardson error estimate of the pair.
func StepDoubling(st Stepper, f DerivativeFunc, x float64, u State, h float64) (full, half State, errNorm float64) {
	full = st.Advance(f, x, u, h)
	mid := st.Advance(f, x, u, h/2)
	half = st.Advance(f, x+h/2, mid, h/2)
	errNorm = half.Sub(full).InfNorm() / richardson
	return full, half, errNorm
}
