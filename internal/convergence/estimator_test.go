package convergence_test

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/orbitsim/internal/convergence"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/integrators"
	"github.com/san-kum/orbitsim/internal/logging"
	"github.com/san-kum/orbitsim/internal/physics"
)

// 88800 s is divisible by every step used below, so all runs reach the same time.
const horizon = 88800.0

var _ = Describe("Estimator", func() {
	var (
		nb  *physics.NBody
		x0  dynamo.State
		est *convergence.Estimator
		buf *bytes.Buffer
		ctx context.Context
	)

	BeforeEach(func() {
		var err error
		nb, err = physics.NewNBody([]float64{3300, 6.39e23}, physics.GKilometers)
		Expect(err).NotTo(HaveOccurred())
		x0 = dynamo.NewState(
			[6]float64{20428, 0, 0, 0, 1.448, 0},
			[6]float64{0, 0, 0, 0, 0, 0},
		)

		buf = &bytes.Buffer{}
		logger, err := logging.New(buf, "logfmt", "debug")
		Expect(err).NotTo(HaveOccurred())
		est = &convergence.Estimator{Logger: logger, Workers: 2}
		ctx = context.Background()
	})

	Describe("RelativeFinalStateError", func() {
		It("is small and uses positions for Yoshida", func() {
			res, err := est.RelativeFinalStateError(ctx, nb, integrators.NewYoshida(), x0, horizon, 200, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Norm).To(Equal(dynamo.NormPositions))
			Expect(res.Error).To(BeNumerically(">", 0))
			Expect(res.Error).To(BeNumerically("<", 1e-5))
			Expect(res.Warnings).To(BeEmpty())
			Expect(res.Horizon).To(Equal(res.BaselineHorizon))
		})

		It("uses the full state for RK4", func() {
			res, err := est.RelativeFinalStateError(ctx, nb, integrators.NewRK4(), x0, horizon, 400, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Norm).To(Equal(dynamo.NormFullState))
			Expect(res.Final).To(HaveLen(12))
		})

		It("honours an explicit norm", func() {
			est.Norm = dynamo.NormFullState
			res, err := est.RelativeFinalStateError(ctx, nb, integrators.NewYoshida(), x0, horizon, 400, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Norm).To(Equal(dynamo.NormFullState))
		})

		It("is zero when both runs use the same step", func() {
			res, err := est.RelativeFinalStateError(ctx, nb, integrators.NewYoshida(), x0, horizon, 400, 400)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(BeZero())
		})

		It("warns when the baseline is not finer", func() {
			res, err := est.RelativeFinalStateError(ctx, nb, integrators.NewYoshida(), x0, horizon, 400, 800)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Warnings).To(ContainElement(MatchError(dynamo.ErrBaselineNotFiner)))
			Expect(buf.String()).To(ContainSubstring("level=warn"))
		})

		It("rejects a coarse baseline in strict mode", func() {
			est.Strict = true
			_, err := est.RelativeFinalStateError(ctx, nb, integrators.NewYoshida(), x0, horizon, 400, 400)
			Expect(err).To(MatchError(dynamo.ErrBaselineNotFiner))
		})

		It("warns when the runs stop at different times", func() {
			res, err := est.RelativeFinalStateError(ctx, nb, integrators.NewYoshida(), x0, 88642, 100, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Horizon).To(Equal(88600.0))
			Expect(res.BaselineHorizon).To(Equal(88642.0))
			Expect(res.Warnings).To(ContainElement(MatchError(dynamo.ErrHorizonMismatch)))
		})

		It("rejects invalid steps", func() {
			_, err := est.RelativeFinalStateError(ctx, nb, integrators.NewYoshida(), x0, horizon, 0, 10)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))

			_, err = est.RelativeFinalStateError(ctx, nb, integrators.NewYoshida(), x0, -1, 100, 10)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})

		It("rejects a baseline with zero norm", func() {
			single, err := physics.NewNBody([]float64{1}, 1)
			Expect(err).NotTo(HaveOccurred())
			_, err = est.RelativeFinalStateError(ctx, single, integrators.NewYoshida(), dynamo.Zero(1), 100, 10, 1)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})

		It("propagates divergence", func() {
			pair, err := physics.NewNBody([]float64{1, 1}, 1)
			Expect(err).NotTo(HaveOccurred())
			head := dynamo.NewState(
				[6]float64{-1, 0, 0, 1, 0, 0},
				[6]float64{1, 0, 0, -1, 0, 0},
			)
			_, err = est.RelativeFinalStateError(ctx, pair, integrators.NewEuler(), head, 3, 1, 0.5)
			Expect(err).To(MatchError(dynamo.ErrDivergentState))
		})

		It("stops on a canceled context", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := est.RelativeFinalStateError(canceled, nb, integrators.NewRK4(), x0, horizon, 400, 10)
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("Sweep", func() {
		DescribeTable("halving the step cuts the error by about 2^order",
			func(s dynamo.Stepper, lo, hi, order float64) {
				points, err := est.Sweep(ctx, nb, s, x0, horizon, []float64{800, 400, 200}, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(points).To(HaveLen(3))

				Expect(points[0].Error).To(BeNumerically(">", points[2].Error))
				for _, r := range convergence.Ratios(points) {
					Expect(r).To(BeNumerically(">=", lo))
					Expect(r).To(BeNumerically("<=", hi))
				}

				observed, err := convergence.ObservedOrder(points)
				Expect(err).NotTo(HaveOccurred())
				Expect(observed).To(BeNumerically("~", order, 0.3))
			},
			Entry("yoshida", integrators.NewYoshida(), 14.0, 18.0, 4.0),
			Entry("rk4", integrators.NewRK4(), 14.0, 20.0, 4.0),
			Entry("leapfrog", integrators.NewLeapfrog(), 3.5, 4.5, 2.0),
		)

		It("keeps the order of the requested steps", func() {
			points, err := est.Sweep(ctx, nb, integrators.NewLeapfrog(), x0, horizon, []float64{200, 800, 400}, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(points[0].Dt).To(Equal(200.0))
			Expect(points[1].Dt).To(Equal(800.0))
			Expect(points[2].Dt).To(Equal(400.0))
		})

		It("attaches warnings per point", func() {
			points, err := est.Sweep(ctx, nb, integrators.NewYoshida(), x0, horizon, []float64{400, 100}, 200)
			Expect(err).NotTo(HaveOccurred())
			Expect(points[0].Warnings).To(BeEmpty())
			Expect(points[1].Warnings).To(ContainElement(MatchError(dynamo.ErrBaselineNotFiner)))
		})

		It("needs at least one step", func() {
			_, err := est.Sweep(ctx, nb, integrators.NewYoshida(), x0, horizon, nil, 10)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})
	})
})
