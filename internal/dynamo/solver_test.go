package dynamo_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/integrators"
)

func growth(k float64) dynamo.DerivativeFunc {
	return func(x float64, u dynamo.State) dynamo.State {
		return dynamo.State{k * u[0]}
	}
}

func oscillator(x float64, u dynamo.State) dynamo.State {
	return dynamo.State{u[1], -u[0]}
}

func cubic(x float64, u dynamo.State) dynamo.State {
	return dynamo.State{3 * x * x}
}

func adaptive(tol float64) dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Adaptive = true
	cfg.Tolerance = tol
	return cfg
}

type countingMetric struct{ n int }

func (c *countingMetric) Name() string           { return "count" }
func (c *countingMetric) Observe(s dynamo.Sample) { c.n++ }
func (c *countingMetric) Value() float64          { return float64(c.n) }
func (c *countingMetric) Reset()                  { c.n = 0 }

var _ = Describe("Solver", func() {
	var (
		solver *dynamo.Solver
		ctx    context.Context
		expP   dynamo.Problem
	)

	BeforeEach(func() {
		solver = dynamo.New(integrators.NewRK4())
		ctx = context.Background()
		expP = dynamo.Problem{
			XStart:     0,
			XEnd:       2,
			Steps:      20,
			Initial:    dynamo.State{1},
			Derivative: growth(5),
			Exact:      dynamo.SomeExact(func(x float64) float64 { return math.Exp(5 * x) }),
		}
	})

	Describe("fixed-step mode", func() {
		It("emits one sample per grid point ending exactly at x_end", func() {
			tr, err := solver.Solve(ctx, expP, dynamo.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Samples).To(HaveLen(21))
			Expect(tr.Completed).To(BeTrue())
			Expect(tr.Truncated).To(BeFalse())
			Expect(tr.Accepted).To(Equal(20))

			Expect(tr.Samples[0].X).To(Equal(0.0))
			Expect(tr.Samples[0].H).To(Equal(0.0))
			for i, s := range tr.Samples[1:] {
				Expect(s.H).To(BeNumerically("~", 0.1, 1e-15))
				Expect(s.X).To(BeNumerically("~", 0.1*float64(i+1), 1e-12))
			}
			Expect(tr.Final.X).To(Equal(2.0))
		})

		It("tracks e^(5x) on every grid point", func() {
			tr, err := solver.Solve(ctx, expP, dynamo.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			for _, s := range tr.Samples {
				exact := math.Exp(5 * s.X)
				Expect(math.Abs(s.State[0]-exact) / exact).To(BeNumerically("<", 5e-3))
			}
		})

		It("evaluates the derivative four times per step", func() {
			tr, err := solver.Solve(ctx, expP, dynamo.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Evaluations).To(Equal(4 * 20))
		})

		It("leaves the caller's initial state untouched", func() {
			initial := dynamo.State{1}
			expP.Initial = initial
			_, err := solver.Solve(ctx, expP, dynamo.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(initial).To(Equal(dynamo.State{1}))
		})
	})

	Describe("adaptive mode", func() {
		It("reaches x_end with strictly increasing x", func() {
			tr, err := solver.Solve(ctx, expP, adaptive(1e-5))
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Completed).To(BeTrue())
			Expect(tr.Truncated).To(BeFalse())

			for i := 1; i < len(tr.Samples); i++ {
				Expect(tr.Samples[i].X).To(BeNumerically(">", tr.Samples[i-1].X))
				Expect(tr.Samples[i].H).To(BeNumerically(">", 0))
			}
			Expect(tr.Final.X).To(Equal(2.0))
			Expect(tr.Samples).To(HaveLen(tr.Accepted + 1))
		})

		It("stays close to the analytic solution", func() {
			tr, err := solver.Solve(ctx, expP, adaptive(1e-5))
			Expect(err).NotTo(HaveOccurred())
			exact := math.Exp(10)
			Expect(math.Abs(tr.Final.State[0]-exact) / exact).To(BeNumerically("<", 1e-3))
		})

		It("takes the seed step first and doubles only for later steps", func() {
			p := dynamo.Problem{XStart: 0, XEnd: 2, Steps: 20, Initial: dynamo.State{0}, Derivative: cubic}
			tr, err := solver.Solve(ctx, p, adaptive(1e-5))
			Expect(err).NotTo(HaveOccurred())

			hs := tr.Steps()
			Expect(hs).To(HaveLen(5))
			for i, want := range []float64{0.1, 0.2, 0.4, 0.8, 0.5} {
				Expect(hs[i]).To(BeNumerically("~", want, 1e-12))
			}
			Expect(tr.Grown).To(Equal(5))
			Expect(tr.Rejected).To(Equal(0))
			Expect(tr.Final.X).To(Equal(2.0))
			Expect(tr.Final.State[0]).To(BeNumerically("~", 8, 1e-12))
		})

		It("rejects a coarse seed step without emitting it", func() {
			expP.Steps = 1
			tr, err := solver.Solve(ctx, expP, adaptive(1e-6))
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Rejected).To(BeNumerically(">", 0))
			Expect(tr.Completed).To(BeTrue())
			for _, h := range tr.Steps() {
				Expect(h).To(BeNumerically("<", 2))
			}
			Expect(tr.Evaluations).To(Equal(12 * (tr.Accepted + tr.Rejected)))
		})

		It("preserves the dimension of a 2-D system", func() {
			p := dynamo.Problem{XStart: 0, XEnd: 10, Steps: 10, Initial: dynamo.State{1, 0}, Derivative: oscillator}
			tr, err := solver.Solve(ctx, p, adaptive(1e-8))
			Expect(err).NotTo(HaveOccurred())
			for _, s := range tr.Samples {
				Expect(s.State).To(HaveLen(2))
			}
			Expect(tr.Final.State[0]).To(BeNumerically("~", math.Cos(10), 1e-5))
			Expect(tr.Final.State[1]).To(BeNumerically("~", -math.Sin(10), 1e-5))
		})

		It("accepts at the minimum step instead of shrinking forever", func() {
			p := dynamo.Problem{XStart: 0, XEnd: 4e-12, Steps: 1, Initial: dynamo.State{1}, Derivative: growth(1e16)}
			tr, err := solver.Solve(ctx, p, adaptive(1e-5))
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Completed).To(BeTrue())
			Expect(tr.FloorHits).To(BeNumerically(">", 0))
			Expect(tr.FloorHits).To(Equal(tr.Accepted))
			for _, s := range tr.Samples[1:] {
				Expect(s.FloorHit).To(BeTrue())
				Expect(s.ErrEstimate).To(BeNumerically(">", 1e-5))
			}
		})

		It("accepts at the float resolution of x far from the origin", func() {
			// period 2*pi*1e-12, far below the spacing of x near 1e6
			wild := func(x float64, u dynamo.State) dynamo.State {
				return dynamo.State{1e12 * math.Cos(1e12*x)}
			}
			p := dynamo.Problem{XStart: 1e6, XEnd: 1e6 + 1, Steps: 1, Initial: dynamo.State{0}, Derivative: wild}
			cfg := adaptive(1e-5)
			cfg.MaxSteps = 50

			tr, err := solver.Solve(ctx, p, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Truncated).To(BeTrue())
			Expect(tr.Accepted).To(Equal(50))
			Expect(tr.FloorHits).To(BeNumerically(">", 0))
			for i := 1; i < len(tr.Samples); i++ {
				Expect(tr.Samples[i].X).To(BeNumerically(">", tr.Samples[i-1].X))
			}
		})

		It("flags a truncated run when the step budget runs out", func() {
			cfg := adaptive(1e-10)
			cfg.MaxSteps = 5
			tr, err := solver.Solve(ctx, expP, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Truncated).To(BeTrue())
			Expect(tr.Completed).To(BeFalse())
			Expect(tr.Accepted).To(Equal(5))
			Expect(tr.Samples).To(HaveLen(6))
			Expect(tr.Final.X).To(BeNumerically("<", 2))
		})

		It("turns truncation into an error under StrictBudget", func() {
			cfg := adaptive(1e-10)
			cfg.MaxSteps = 5
			cfg.StrictBudget = true
			tr, err := solver.Solve(ctx, expP, cfg)
			Expect(err).To(MatchError(dynamo.ErrIterationBudget))

			var inc *dynamo.IncompleteError
			Expect(errors.As(err, &inc)).To(BeTrue())
			Expect(inc.MaxSteps).To(Equal(5))
			Expect(inc.Reached).To(Equal(tr.Final.X))
		})

		It("logs the truncation", func() {
			var buf bytes.Buffer
			logged := dynamo.New(integrators.NewRK4(), dynamo.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
			cfg := adaptive(1e-10)
			cfg.MaxSteps = 3
			_, err := logged.Solve(ctx, expP, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(ContainSubstring("iteration budget exhausted"))
		})
	})

	Describe("preconditions", func() {
		DescribeTable("fail before the first sample",
			func(mutate func(p *dynamo.Problem, c *dynamo.Config), want error) {
				p := expP
				cfg := adaptive(1e-5)
				mutate(&p, &cfg)

				emitted := 0
				tr, err := solver.Run(ctx, p, cfg, func(dynamo.Sample) bool { emitted++; return true })
				Expect(err).To(MatchError(want))
				Expect(tr).To(BeNil())
				Expect(emitted).To(Equal(0))
			},
			Entry("zero steps", func(p *dynamo.Problem, _ *dynamo.Config) { p.Steps = 0 }, dynamo.ErrInvalidSteps),
			Entry("negative steps", func(p *dynamo.Problem, _ *dynamo.Config) { p.Steps = -3 }, dynamo.ErrInvalidSteps),
			Entry("empty interval", func(p *dynamo.Problem, _ *dynamo.Config) { p.XEnd = p.XStart }, dynamo.ErrInvalidInterval),
			Entry("reversed interval", func(p *dynamo.Problem, _ *dynamo.Config) { p.XStart, p.XEnd = 2, 0 }, dynamo.ErrInvalidInterval),
			Entry("NaN bound", func(p *dynamo.Problem, _ *dynamo.Config) { p.XEnd = math.NaN() }, dynamo.ErrInvalidInterval),
			Entry("infinite bound", func(p *dynamo.Problem, _ *dynamo.Config) { p.XEnd = math.Inf(1) }, dynamo.ErrInvalidInterval),
			Entry("nil derivative", func(p *dynamo.Problem, _ *dynamo.Config) { p.Derivative = nil }, dynamo.ErrNilDerivative),
			Entry("empty state", func(p *dynamo.Problem, _ *dynamo.Config) { p.Initial = nil }, dynamo.ErrEmptyState),
			Entry("derivative dimension", func(p *dynamo.Problem, _ *dynamo.Config) {
				p.Initial = dynamo.State{1, 0}
			}, dynamo.ErrDimensionMismatch),
			Entry("zero tolerance", func(_ *dynamo.Problem, c *dynamo.Config) { c.Tolerance = 0 }, dynamo.ErrInvalidConfig),
			Entry("NaN tolerance", func(_ *dynamo.Problem, c *dynamo.Config) { c.Tolerance = math.NaN() }, dynamo.ErrInvalidConfig),
			Entry("zero minimum step", func(_ *dynamo.Problem, c *dynamo.Config) { c.MinStep = 0 }, dynamo.ErrInvalidConfig),
			Entry("zero step budget", func(_ *dynamo.Problem, c *dynamo.Config) { c.MaxSteps = 0 }, dynamo.ErrInvalidConfig),
		)

		It("ignores controller settings in fixed mode", func() {
			cfg := dynamo.Config{Tolerance: 0, MinStep: 0, MaxSteps: 0}
			_, err := solver.Solve(ctx, expP, cfg)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("runtime failures", func() {
		It("reports a derivative that changes dimension mid-run", func() {
			expP.Derivative = func(x float64, u dynamo.State) dynamo.State {
				if x > 0.5 {
					return dynamo.State{u[0], 0}
				}
				return dynamo.State{u[0]}
			}
			tr, err := solver.Solve(ctx, expP, dynamo.DefaultConfig())
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
			Expect(tr).NotTo(BeNil())
			Expect(tr.Accepted).To(BeNumerically(">", 0))
			Expect(tr.Completed).To(BeFalse())
		})

		It("stops on a non-finite state", func() {
			expP.Derivative = func(x float64, u dynamo.State) dynamo.State {
				if x > 1 {
					return dynamo.State{math.NaN()}
				}
				return dynamo.State{u[0]}
			}
			_, err := solver.Solve(ctx, expP, dynamo.DefaultConfig())
			Expect(err).To(MatchError(dynamo.ErrInvalidState))

			var se *dynamo.SolveError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.X).To(BeNumerically(">", 1))
		})

		It("honors context cancellation", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			tr, err := solver.Solve(cctx, expP, adaptive(1e-5))
			Expect(err).To(MatchError(context.Canceled))
			Expect(tr.Samples).To(HaveLen(1))
		})
	})

	Describe("streaming", func() {
		It("stops when the consumer declines more samples", func() {
			seen := 0
			tr, err := solver.Run(ctx, expP, adaptive(1e-5), func(dynamo.Sample) bool {
				seen++
				return seen < 3
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(Equal(3))
			Expect(tr.Stopped).To(BeTrue())
			Expect(tr.Completed).To(BeFalse())
			Expect(tr.Samples).To(BeNil())
		})

		It("yields the same sequence as Solve", func() {
			full, err := solver.Solve(ctx, expP, adaptive(1e-5))
			Expect(err).NotTo(HaveOccurred())

			var xs []float64
			for s, err := range solver.Stream(ctx, expP, adaptive(1e-5)) {
				Expect(err).NotTo(HaveOccurred())
				xs = append(xs, s.X)
			}
			Expect(xs).To(Equal(full.Xs()))
		})

		It("yields precondition errors", func() {
			expP.Steps = 0
			var got error
			for _, err := range solver.Stream(ctx, expP, dynamo.DefaultConfig()) {
				got = err
			}
			Expect(got).To(MatchError(dynamo.ErrInvalidSteps))
		})

		It("allows breaking out of the sequence", func() {
			n := 0
			for range solver.Stream(ctx, expP, dynamo.DefaultConfig()) {
				n++
				if n == 4 {
					break
				}
			}
			Expect(n).To(Equal(4))
		})
	})

	Describe("metrics", func() {
		It("observes every emitted sample and resets between runs", func() {
			m := &countingMetric{}
			solver.AddMetric(m)

			tr, err := solver.Solve(ctx, expP, dynamo.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Metrics).To(HaveKeyWithValue("count", 21.0))

			tr, err = solver.Solve(ctx, expP, dynamo.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Metrics["count"]).To(Equal(21.0))
		})
	})
})

var _ = Describe("StepDoubling", func() {
	rk4 := integrators.NewRK4()

	It("returns a non-negative error estimate", func() {
		for _, h := range []float64{1e-3, 0.01, 0.1, 0.5, 1} {
			_, _, e := dynamo.StepDoubling(rk4, oscillator, 0.3, dynamo.State{0.7, -1.2}, h)
			Expect(e).To(BeNumerically(">=", 0))
		}
	})

	It("estimates zero error where RK4 is exact", func() {
		full, half, e := dynamo.StepDoubling(rk4, cubic, 1, dynamo.State{1}, 0.8)
		Expect(e).To(BeNumerically("<", 1e-14))
		Expect(full[0]).To(BeNumerically("~", half[0], 1e-13))
		Expect(half[0]).To(BeNumerically("~", 1+math.Pow(1.8, 3)-1, 1e-13))
	})

	It("shrinks by about 2^5 when the step is halved", func() {
		_, _, e1 := dynamo.StepDoubling(rk4, growth(1), 0, dynamo.State{1}, 0.2)
		_, _, e2 := dynamo.StepDoubling(rk4, growth(1), 0, dynamo.State{1}, 0.1)
		Expect(e1 / e2).To(BeNumerically("~", 32, 3))
	})
})
