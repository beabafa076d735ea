package viz

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/san-kum/odestep/internal/dynamo"
)

type TableOptions struct {
	// Exact adds exact and error columns when set.
	Exact dynamo.Exact
	// Precision is the number of decimals; 5 when zero.
	Precision int
	// Every prints every n-th sample; the last sample is always printed.
	Every  int
	Styled bool
}

const floorMark = "*"

// WriteTable writes one row per sample: x, h, every state component, and
// the exact value and its absolute error against u0 when a reference is
// present. Rows accepted at the step floor end in an asterisk.
func WriteTable(w io.Writer, tr *dynamo.Trace, opts TableOptions) error {
	if len(tr.Samples) == 0 {
		return nil
	}
	prec := opts.Precision
	if prec <= 0 {
		prec = 5
	}
	every := max(opts.Every, 1)
	dim := len(tr.Samples[0].State)

	cols := []string{fmt.Sprintf("%8s", "x"), fmt.Sprintf("%12s", "h")}
	for i := 0; i < dim; i++ {
		cols = append(cols, fmt.Sprintf("%12s", fmt.Sprintf("u%d", i)))
	}
	if opts.Exact.Ok() {
		cols = append(cols, fmt.Sprintf("%12s", "exact"), fmt.Sprintf("%12s", "error"))
	}
	header := strings.Join(cols, " | ")
	rule := strings.Repeat("-", len(header))
	if opts.Styled {
		header = HeaderStyle.Render(header)
		rule = Subtle.Render(rule)
	}
	if _, err := fmt.Fprintf(w, "%s\n%s\n", header, rule); err != nil {
		return err
	}

	last := len(tr.Samples) - 1
	for i, smp := range tr.Samples {
		if i%every != 0 && i != last {
			continue
		}
		row := []string{
			fmt.Sprintf("%8.*f", prec, smp.X),
			fmt.Sprintf("%12.*f", prec, smp.H),
		}
		for _, v := range smp.State {
			row = append(row, fmt.Sprintf("%12.*f", prec, v))
		}
		if ref, ok := opts.Exact.Eval(smp.X); ok {
			errAbs, _ := opts.Exact.AbsError(smp.X, smp.State)
			row = append(row, fmt.Sprintf("%12.*f", prec, ref), fmt.Sprintf("%12.*e", prec, errAbs))
		}

		line := strings.Join(row, " | ")
		if smp.FloorHit {
			mark := floorMark
			if opts.Styled {
				mark = FloorStyle.Render(mark)
			}
			line += " " + mark
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary writes the run counters followed by the metrics in name order.
func WriteSummary(w io.Writer, tr *dynamo.Trace, styled bool) error {
	label := func(s string) string {
		s = fmt.Sprintf("%-14s", s)
		if styled {
			return MetricLabel.Render(s)
		}
		return s
	}
	value := func(format string, args ...any) string {
		s := fmt.Sprintf(format, args...)
		if styled {
			return MetricValue.Render(s)
		}
		return s
	}

	status := "completed"
	switch {
	case tr.Truncated:
		status = "truncated"
	case tr.Stopped:
		status = "stopped"
	case !tr.Completed:
		status = "incomplete"
	}

	lines := []string{
		label("status") + value("%s", status),
		label("final x") + value("%.6g", tr.Final.X),
		label("accepted") + value("%d", tr.Accepted),
		label("rejected") + value("%d", tr.Rejected),
		label("grown") + value("%d", tr.Grown),
		label("floor hits") + value("%d", tr.FloorHits),
		label("evaluations") + value("%d", tr.Evaluations),
	}

	names := make([]string, 0, len(tr.Metrics))
	for name := range tr.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, label(name)+value("%.6g", tr.Metrics[name]))
	}

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
