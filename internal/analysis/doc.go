// Package analysis provides post-processing for integration runs.
//
//   - [ObservedOrder]: empirical order of accuracy by successive step halving
//   - [PhasePortrait]: 2D projection of a trace
//   - [PhasePortraitToASCII]: terminal rendering of a projection
//
// # Convergence
//
// RK4 should lose a factor of about 16 in final error per halving:
//
//	est, _ := analysis.ObservedOrder(analysis.FixedFinal(ctx, s, p), exact, 20, 4)
//	if analysis.MeanOrder(est) < 3.5 {
//	    // derivative is not smooth enough, or round-off dominates
//	}
package analysis
