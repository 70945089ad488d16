package common_test

import (
	"math"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/fundrec/common"
)

var _ = Describe("Util", func() {
	DescribeTable("Round",
		func(x float64, places int, expected float64) {
			Expect(common.Round(x, places)).To(Equal(expected))
		},
		Entry("two places", 12.3456, 2, 12.35),
		Entry("zero places", 2.5, 0, 3.0),
		Entry("negative values", -1.005, 1, -1.0),
	)

	It("leaves NaN untouched when rounding", func() {
		Expect(math.IsNaN(common.Round(math.NaN(), 2))).To(BeTrue())
	})

	It("clamps to the interval", func() {
		Expect(common.Clamp(7, 1, 5)).To(Equal(5.0))
		Expect(common.Clamp(-3, 1, 5)).To(Equal(1.0))
		Expect(common.Clamp(3, 1, 5)).To(Equal(3.0))
	})

	It("sorts pairs by value then key", func() {
		pairs := common.PairList{{Key: "b", Value: 1}, {Key: "a", Value: 1}, {Key: "c", Value: 0.5}}
		sort.Sort(pairs)
		Expect(pairs[0].Key).To(Equal("c"))
		Expect(pairs[1].Key).To(Equal("a"))
		Expect(pairs[2].Key).To(Equal("b"))
	})
})
