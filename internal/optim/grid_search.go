package optim

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/san-kum/odestep/internal/experiment"
)

// Point is one evaluated grid point. Metrics carries the trace metrics plus
// the accepted, rejected and evaluations counters. Err is set when the
// point could not be built or run.
type Point struct {
	Params  map[string]float64
	Metrics map[string]float64
	Err     error
}

// GridSearch evaluates every combination of the given parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

type BuildFunc func(params map[string]float64) (*experiment.Experiment, error)

// Sweep runs every grid point in row-major order. Failed points are kept
// with Err set; only context cancellation aborts the sweep.
func (g *GridSearch) Sweep(ctx context.Context, build BuildFunc) ([]Point, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("grid has %d names but %d ranges", len(g.paramNames), len(g.ranges))
	}
	var points []Point
	err := g.sweepRecursive(ctx, 0, make(map[string]float64), build, &points)
	return points, err
}

func (g *GridSearch) sweepRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build BuildFunc,
	points *[]Point,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		*points = append(*points, evaluate(ctx, current, build))
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := maps.Clone(current)
		newParams[paramName] = val

		if err := g.sweepRecursive(ctx, depth+1, newParams, build, points); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(ctx context.Context, params map[string]float64, build BuildFunc) Point {
	pt := Point{Params: params}

	exp, err := build(maps.Clone(params))
	if err != nil {
		pt.Err = err
		return pt
	}

	tr, err := exp.Run(ctx)
	if err != nil {
		pt.Err = err
		return pt
	}

	pt.Metrics = maps.Clone(tr.Metrics)
	if pt.Metrics == nil {
		pt.Metrics = make(map[string]float64)
	}
	pt.Metrics["accepted"] = float64(tr.Accepted)
	pt.Metrics["rejected"] = float64(tr.Rejected)
	pt.Metrics["evaluations"] = float64(tr.Evaluations)
	return pt
}

// Search returns the grid point minimising metricName.
func (g *GridSearch) Search(ctx context.Context, build BuildFunc, metricName string) (map[string]float64, float64, error) {
	points, err := g.Sweep(ctx, build)
	if err != nil {
		return nil, math.NaN(), err
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	for _, pt := range points {
		if pt.Err != nil {
			continue
		}
		val, ok := pt.Metrics[metricName]
		if !ok || math.IsNaN(val) {
			continue
		}
		if val < best {
			best = val
			bestParams = pt.Params
		}
	}

	if bestParams == nil {
		return nil, math.NaN(), fmt.Errorf("no grid point produced metric %q", metricName)
	}
	return bestParams, best, nil
}

// Cheapest returns the successful point with the fewest derivative
// evaluations whose errMetric is at most target. Ties go to the smaller
// error.
func Cheapest(points []Point, errMetric string, target float64) (Point, bool) {
	ok := slices.DeleteFunc(slices.Clone(points), func(pt Point) bool {
		if pt.Err != nil {
			return true
		}
		e, has := pt.Metrics[errMetric]
		return !has || !(e <= target)
	})
	if len(ok) == 0 {
		return Point{}, false
	}

	return slices.MinFunc(ok, func(a, b Point) int {
		if c := cmpFloat(a.Metrics["evaluations"], b.Metrics["evaluations"]); c != 0 {
			return c
		}
		return cmpFloat(a.Metrics[errMetric], b.Metrics[errMetric])
	}), true
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
