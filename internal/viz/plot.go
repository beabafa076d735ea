package viz

import (
	"fmt"
	"image/color"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/odestep/internal/dynamo"
)

// PlotASCII charts state component i over the samples. Samples are spaced
// evenly on the chart regardless of x.
func PlotASCII(tr *dynamo.Trace, component int, width, height int) (string, error) {
	data := tr.Component(component)
	if len(data) == 0 {
		return "", fmt.Errorf("component %d out of range", component)
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("u%d over %d samples, x in [%.4g, %.4g]",
			component, len(data), tr.Samples[0].X, tr.Final.X)),
	), nil
}

// PlotSteps charts the accepted step sizes, which shows where the adaptive
// controller grew and shrank h.
func PlotSteps(tr *dynamo.Trace, width, height int) (string, error) {
	hs := tr.Steps()
	if len(hs) == 0 {
		return "", fmt.Errorf("trace has no steps")
	}
	return asciigraph.Plot(hs,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("h over %d accepted steps", len(hs))),
	), nil
}

// SavePlot writes component i against x to path. The format follows the
// extension (.png, .svg, .pdf). The exact solution is drawn dashed when set
// and floor hits are marked.
func SavePlot(path string, tr *dynamo.Trace, component int, exact dynamo.Exact, title string) error {
	if len(tr.Samples) == 0 {
		return fmt.Errorf("empty trace")
	}
	if component < 0 || component >= len(tr.Samples[0].State) {
		return fmt.Errorf("component %d out of range", component)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = fmt.Sprintf("u%d", component)

	pts := make(plotter.XYs, len(tr.Samples))
	var floor plotter.XYs
	for i, s := range tr.Samples {
		pts[i].X, pts[i].Y = s.X, s.State[component]
		if s.FloorHit {
			floor = append(floor, plotter.XY{X: s.X, Y: s.State[component]})
		}
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 0, G: 120, B: 200, A: 255}
	points.Radius = vg.Points(1.5)
	p.Add(line, points)
	p.Legend.Add("rk4", line)

	if fn, ok := exact.Get(); ok && component == 0 {
		ref := plotter.NewFunction(fn)
		ref.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		ref.Color = color.RGBA{R: 200, G: 60, B: 60, A: 255}
		p.Add(ref)
		p.Legend.Add("exact", ref)
	}

	if len(floor) > 0 {
		sc, err := plotter.NewScatter(floor)
		if err != nil {
			return err
		}
		sc.Color = color.RGBA{R: 255, G: 170, A: 255}
		sc.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add("floor hit", sc)
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
