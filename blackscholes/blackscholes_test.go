package blackscholes_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/fundrec/blackscholes"
)

var _ = Describe("BlackScholes", func() {
	var opt blackscholes.Option

	BeforeEach(func() {
		opt = blackscholes.Option{Spot: 100, Strike: 100, Rate: 0.05, Volatility: 0.2, Time: 1}
	})

	It("prices an at-the-money call", func() {
		call, err := opt.Call()
		Expect(err).To(BeNil())
		Expect(call).To(BeNumerically("~", 10.4506, 1e-3))
	})

	It("prices an at-the-money put", func() {
		put, err := opt.Put()
		Expect(err).To(BeNil())
		Expect(put).To(BeNumerically("~", 5.5735, 1e-3))
	})

	It("satisfies put-call parity", func() {
		opt.Strike = 110
		call, err := opt.Call()
		Expect(err).To(BeNil())
		put, err := opt.Put()
		Expect(err).To(BeNil())
		Expect(call - put).To(BeNumerically("~", opt.Spot-opt.Strike*math.Exp(-opt.Rate*opt.Time), 1e-9))
	})

	It("computes the greeks", func() {
		g, err := opt.Greeks()
		Expect(err).To(BeNil())
		Expect(g.Delta.Call).To(BeNumerically("~", 0.6368, 1e-4))
		Expect(g.Delta.Put).To(BeNumerically("~", -0.3632, 1e-4))
		Expect(g.Gamma).To(BeNumerically("~", 0.018762, 1e-6))
		Expect(g.Vega).To(BeNumerically("~", 0.3752, 1e-4))
		Expect(g.Theta.Call).To(BeNumerically("<", 0))
		Expect(g.Rho.Call).To(BeNumerically(">", 0))
		Expect(g.Rho.Put).To(BeNumerically("<", 0))
	})

	DescribeTable("rejects degenerate options",
		func(o blackscholes.Option) {
			_, err := o.Call()
			Expect(err).To(MatchError(blackscholes.ErrInvalidInput))
		},
		Entry("zero spot", blackscholes.Option{Spot: 0, Strike: 100, Volatility: 0.2, Time: 1}),
		Entry("zero volatility", blackscholes.Option{Spot: 100, Strike: 100, Volatility: 0, Time: 1}),
		Entry("zero time", blackscholes.Option{Spot: 100, Strike: 100, Volatility: 0.2, Time: 0}),
	)

	Context("risk premium", func() {
		It("reports the premium over the risk free rate", func() {
			ra, err := blackscholes.RiskPremium(100, 112, 0.15, blackscholes.DefaultRiskFreeRate, blackscholes.DefaultHorizon)
			Expect(err).To(BeNil())
			Expect(ra.ExpectedReturn).To(BeNumerically("~", 12, 1e-9))
			Expect(ra.RiskFreeRate).To(BeNumerically("~", 6, 1e-9))
			Expect(ra.RiskPremium).To(BeNumerically("~", 6, 1e-9))
			Expect(ra.SharpeRatio).To(BeNumerically("~", 0.4, 1e-9))
			// N(0.4)
			Expect(ra.ProbBeatRiskFree).To(BeNumerically("~", 65.54, 1e-2))
			Expect(ra.ProtectionCost).To(BeNumerically(">", 0))
			Expect(ra.ProtectionCostPct).To(BeNumerically("~", ra.ProtectionCost, 1e-9))
		})

		It("rejects zero volatility", func() {
			_, err := blackscholes.RiskPremium(100, 112, 0, 0.06, 1)
			Expect(err).To(MatchError(blackscholes.ErrInvalidInput))
		})
	})
})
