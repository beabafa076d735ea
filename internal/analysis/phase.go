package analysis

import (
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/odestep/internal/dynamo"
)

// Glyphs drawn by PhasePortraitToASCII.
const (
	GlyphStart  = 'o'
	GlyphSample = '•'
	GlyphFloor  = '*'
)

type PhasePoint struct {
	X, Y float64
	// Floor marks a sample accepted at the minimum step.
	Floor bool
}

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []PhasePoint
}

// PhasePortrait projects a trace onto two state components. It returns nil
// when either index is out of range.
func PhasePortrait(tr *dynamo.Trace, xIdx, yIdx int) *PhasePortrait2D {
	if len(tr.Samples) == 0 || xIdx < 0 || yIdx < 0 {
		return nil
	}
	dim := len(tr.Samples[0].State)
	if xIdx >= dim || yIdx >= dim {
		return nil
	}

	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]PhasePoint, 0, len(tr.Samples)),
	}
	for _, s := range tr.Samples {
		portrait.Points = append(portrait.Points, PhasePoint{X: s.State[xIdx], Y: s.State[yIdx], Floor: s.FloorHit})
	}
	return portrait
}

// axis maps [lo, lo+span] onto cells 0..n-1.
type axis struct {
	lo, span float64
	n        int
}

// newAxis pads the data range by a tenth on each side.
func newAxis(vals []float64, n int) axis {
	lo, hi := floats.Min(vals), floats.Max(vals)
	span := hi - lo
	if span == 0 {
		span = 1
	}
	return axis{lo: lo - 0.1*span, span: 1.2 * span, n: n}
}

func (a axis) cell(v float64) (int, bool) {
	i := int((v - a.lo) / a.span * float64(a.n-1))
	return i, i >= 0 && i < a.n
}

// PhasePortraitToASCII draws the portrait on a width x height grid. Zero
// axes are drawn when they fall inside the view. Floor-hit samples are drawn
// over ordinary ones and the initial point over both.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	xs := make([]float64, len(portrait.Points))
	ys := make([]float64, len(portrait.Points))
	for i, p := range portrait.Points {
		xs[i], ys[i] = p.X, p.Y
	}
	ax, ay := newAxis(xs, width), newAxis(ys, height)

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", width))
	}
	put := func(x, y float64, g rune) {
		c, okc := ax.cell(x)
		r, okr := ay.cell(y)
		if okc && okr {
			grid[height-1-r][c] = g
		}
	}

	if c, ok := ax.cell(0); ok {
		for r := range grid {
			grid[r][c] = '│'
		}
	}
	if r, ok := ay.cell(0); ok {
		row := grid[height-1-r]
		for c := range row {
			if row[c] == '│' {
				row[c] = '┼'
			} else {
				row[c] = '─'
			}
		}
	}

	for _, p := range portrait.Points[1:] {
		if !p.Floor {
			put(p.X, p.Y, GlyphSample)
		}
	}
	for _, p := range portrait.Points[1:] {
		if p.Floor {
			put(p.X, p.Y, GlyphFloor)
		}
	}
	put(portrait.Points[0].X, portrait.Points[0].Y, GlyphStart)

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(string(row))
		sb.WriteByte('\n')
	}
	return sb.String()
}
