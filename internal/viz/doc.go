// Package viz renders integration traces for the terminal and for files.
//
//   - [WriteTable]: the x | h | u | exact | error report
//   - [WriteSummary]: run counters and metrics
//   - [PlotASCII], [PlotSteps]: asciigraph charts of a component or of h
//   - [SavePlot]: PNG/SVG/PDF chart via gonum/plot
//   - [Replay]: step-through viewer built on Bubble Tea
//
// Nothing in this package feeds back into the solver.
//
// # Replay keys
//
//	Space      - Play/Pause
//	Left/Right - Previous/next sample
//	Home/End   - First/last sample
//	Q          - Quit
package viz
