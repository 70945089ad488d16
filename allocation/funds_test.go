package allocation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/fundrec/allocation"
	"github.com/penny-vault/fundrec/data"
)

var _ = Describe("OptimizeFunds", func() {
	var funds []*data.Fund

	BeforeEach(func() {
		funds = []*data.Fund{
			{SchemeCode: "A", SchemeName: "Alpha Fund", StdDev: 15, Returns1Yr: 12},
			{SchemeCode: "B", SchemeName: "Beta Fund", StdDev: 15, Returns1Yr: 9},
			{SchemeCode: "C", SchemeName: "Gamma Fund", StdDev: 15, Returns1Yr: 7},
		}
	})

	It("splits evenly between identical funds", func() {
		res, err := allocation.OptimizeFunds(funds, nil)
		Expect(err).To(BeNil())
		Expect(res.Allocations).To(HaveLen(3))
		for _, a := range res.Allocations {
			Expect(a.Weight).To(BeNumerically("~", 33.33, 0.02))
		}
		Expect(res.Metrics.ExpectedReturn).To(BeNumerically("~", 3.75, 0.01))
		Expect(res.Metrics.Volatility).To(BeNumerically("~", 12.25, 0.01))
		Expect(res.Metrics.SharpeRatio).To(BeNumerically("~", 0.306, 0.002))
	})

	It("tilts toward a bullish view", func() {
		res, err := allocation.OptimizeFunds(funds, []allocation.View{{Funds: []int{0}, Return: 0.15}})
		Expect(err).To(BeNil())
		Expect(res.Allocations[0].SchemeCode).To(Equal("A"))
		Expect(res.Allocations[0].Weight).To(BeNumerically(">", 34))
		for idx := 1; idx < len(res.Allocations); idx++ {
			Expect(res.Allocations[idx-1].Weight).To(BeNumerically(">=", res.Allocations[idx].Weight))
		}
		Expect(res.Frontier.Returns).To(HaveLen(len(res.Frontier.Volatilities)))
	})

	It("substitutes a default volatility", func() {
		funds[2].StdDev = 0
		_, err := allocation.OptimizeFunds(funds, nil)
		Expect(err).To(BeNil())
	})

	It("rejects views on unknown funds", func() {
		_, err := allocation.OptimizeFunds(funds, []allocation.View{{Funds: []int{5}, Return: 0.1}})
		Expect(err).To(MatchError(allocation.ErrInvalidView))
	})

	It("requires two funds", func() {
		_, err := allocation.OptimizeFunds(funds[:1], nil)
		Expect(err).To(MatchError(allocation.ErrTooFewAssets))
	})
})
