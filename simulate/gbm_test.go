package simulate_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/fundrec/simulate"
)

var _ = Describe("GBM", func() {
	var navs []float64

	BeforeEach(func() {
		navs = []float64{100, 101, 100.5, 102, 103, 102.5, 104, 105}
	})

	Context("estimating parameters", func() {
		It("uses the mean and sample deviation of log returns", func() {
			p, err := simulate.EstimateParams([]float64{100, 110, 121})
			Expect(err).To(BeNil())
			Expect(p.S0).To(Equal(121.0))
			Expect(p.Mu).To(BeNumerically("~", math.Log(1.1), 1e-12))
			Expect(p.Sigma).To(BeNumerically("~", 0, 1e-12))
			Expect(p.Dt).To(Equal(1.0))
		})

		It("requires three observations", func() {
			_, err := simulate.EstimateParams([]float64{100, 101})
			Expect(err).To(MatchError(simulate.ErrNotEnoughHistory))
		})

		It("rejects non-positive navs", func() {
			_, err := simulate.EstimateParams([]float64{100, 0, 101})
			Expect(err).To(MatchError(simulate.ErrInvalidParameters))
		})
	})

	Context("running a simulation", func() {
		It("produces the requested shape", func() {
			sim, err := simulate.FromHistory(context.Background(), navs, 600, 30, 42)
			Expect(err).To(BeNil())
			Expect(sim.Paths).To(HaveLen(600))
			Expect(sim.Steps()).To(Equal(30))
			for _, path := range sim.Paths {
				for _, v := range path {
					Expect(v).To(BeNumerically(">", 0))
				}
			}
		})

		It("is deterministic for a seed", func() {
			a, err := simulate.FromHistory(context.Background(), navs, 300, 10, 7)
			Expect(err).To(BeNil())
			b, err := simulate.FromHistory(context.Background(), navs, 300, 10, 7)
			Expect(err).To(BeNil())
			Expect(a.Paths).To(Equal(b.Paths))

			c, err := simulate.FromHistory(context.Background(), navs, 300, 10, 8)
			Expect(err).To(BeNil())
			Expect(c.Paths).ToNot(Equal(a.Paths))
		})

		It("follows the exponential drift when volatility is zero", func() {
			sim, err := simulate.Run(context.Background(), simulate.Params{S0: 100, Mu: 0.01, Sigma: 0, Dt: 1}, 5, 3, 42)
			Expect(err).To(BeNil())
			for _, path := range sim.Paths {
				Expect(path[0]).To(BeNumerically("~", 100*math.Exp(0.01), 1e-9))
				Expect(path[2]).To(BeNumerically("~", 100*math.Exp(0.03), 1e-9))
			}
		})

		It("converges to the closed form expectation", func() {
			p := simulate.Params{S0: 100, Mu: 0.001, Sigma: 0.01, Dt: 1}
			sim, err := simulate.Run(context.Background(), p, 5000, 20, 42)
			Expect(err).To(BeNil())
			sum := 0.0
			for _, v := range sim.Final() {
				sum += v
			}
			Expect(sum / 5000).To(BeNumerically("~", 100*math.Exp(0.02), 0.5))
		})

		DescribeTable("rejects invalid parameters",
			func(p simulate.Params, n, steps int) {
				_, err := simulate.Run(context.Background(), p, n, steps, 42)
				Expect(err).To(MatchError(simulate.ErrInvalidParameters))
			},
			Entry("no paths", simulate.Params{S0: 100, Sigma: 0.1, Dt: 1}, 0, 10),
			Entry("no steps", simulate.Params{S0: 100, Sigma: 0.1, Dt: 1}, 10, 0),
			Entry("zero start", simulate.Params{S0: 0, Sigma: 0.1, Dt: 1}, 10, 10),
			Entry("negative sigma", simulate.Params{S0: 100, Sigma: -0.1, Dt: 1}, 10, 10),
			Entry("NaN drift", simulate.Params{S0: 100, Mu: math.NaN(), Sigma: 0.1, Dt: 1}, 10, 10),
		)

		It("stops when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := simulate.Run(ctx, simulate.Params{S0: 100, Sigma: 0.1, Dt: 1}, 1000, 10, 42)
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Context("closed form expectation", func() {
		It("grows exponentially", func() {
			exp, err := simulate.GBMExpectation([]float64{100, 110, 121}, 2)
			Expect(err).To(BeNil())
			Expect(exp.Expected).To(HaveLen(2))
			Expect(exp.Expected[0]).To(BeNumerically("~", 133.1, 1e-9))
			Expect(exp.Expected[1]).To(BeNumerically("~", 146.41, 1e-9))
			Expect(exp.Variance[0]).To(BeNumerically("~", 0, 1e-9))
		})

		It("requires a positive horizon", func() {
			_, err := simulate.GBMExpectation(navs, 0)
			Expect(err).To(MatchError(simulate.ErrInvalidParameters))
		})
	})
})
