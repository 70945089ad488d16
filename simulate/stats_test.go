package simulate_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/fundrec/simulate"
)

var _ = Describe("Stats", func() {
	DescribeTable("percentile interpolates between ranks",
		func(xs []float64, p, expected float64) {
			Expect(simulate.Percentile(xs, p)).To(BeNumerically("~", expected, 1e-12))
		},
		Entry("median of odd count", []float64{3, 1, 2}, 50.0, 2.0),
		Entry("median of even count", []float64{1, 2, 3, 4}, 50.0, 2.5),
		Entry("10th percentile", []float64{1, 2, 3, 4, 5}, 10.0, 1.4),
		Entry("90th percentile", []float64{1, 2, 3, 4, 5}, 90.0, 4.6),
		Entry("minimum", []float64{5, 4, 9}, 0.0, 4.0),
		Entry("maximum", []float64{5, 4, 9}, 100.0, 9.0),
	)

	It("returns NaN for an empty series", func() {
		Expect(math.IsNaN(simulate.Percentile([]float64{}, 50))).To(BeTrue())
	})

	It("does not reorder its input", func() {
		xs := []float64{3, 1, 2}
		simulate.Percentile(xs, 50)
		Expect(xs).To(Equal([]float64{3, 1, 2}))
	})

	Context("with a simulation", func() {
		var sim *simulate.Simulation

		BeforeEach(func() {
			var err error
			sim, err = simulate.Run(context.Background(), simulate.Params{S0: 100, Mu: 0.0005, Sigma: 0.02, Dt: 1}, 500, 15, 42)
			Expect(err).To(BeNil())
		})

		It("orders the default bands", func() {
			bands := sim.Bands()
			Expect(bands).To(HaveLen(3))
			Expect(bands[0].Percentile).To(Equal(10.0))
			Expect(bands[2].Percentile).To(Equal(90.0))
			for t := 0; t < 15; t++ {
				Expect(bands[0].Values[t]).To(BeNumerically("<=", bands[1].Values[t]))
				Expect(bands[1].Values[t]).To(BeNumerically("<=", bands[2].Values[t]))
			}
		})

		It("matches the median band", func() {
			Expect(sim.Median()).To(Equal(sim.Bands(50)[0].Values))
		})

		It("samples distinct paths", func() {
			sample := sim.Sample(5, 1)
			Expect(sample).To(HaveLen(5))
			Expect(sim.Sample(5, 1)).To(Equal(sample))
			Expect(sim.Sample(1000, 1)).To(HaveLen(500))
			Expect(sim.Sample(0, 1)).To(BeEmpty())
		})

		It("computes loss probability as a percentage", func() {
			prob := sim.LossProbability()
			Expect(prob).To(BeNumerically(">=", 0))
			Expect(prob).To(BeNumerically("<=", 100))
		})
	})
})
