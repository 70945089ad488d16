package risk_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/fundrec/risk"
)

var _ = Describe("Risk profile", func() {
	It("scores a mid career investor as moderately aggressive", func() {
		profile, err := risk.Assess(risk.Investor{Age: 30, IncomeLakhs: 12, HorizonYears: 10, LossTolerance: 4, Experience: 3})
		Expect(err).To(BeNil())
		Expect(profile.Components.Age).To(Equal(4.0))
		Expect(profile.Components.Income).To(Equal(3.0))
		Expect(profile.Components.Horizon).To(Equal(4.0))
		Expect(profile.Score).To(BeNumerically("~", 3.7, 1e-9))
		Expect(profile.Level).To(Equal(risk.ModeratelyAggressive))
		Expect(profile.Name).To(Equal("Moderately Aggressive"))
		Expect(profile.Allocation).To(Equal(risk.Allocation{EquityMin: 50, EquityMax: 80}))
		Expect(profile.VolatilityTolerance).To(Equal(25.0))
	})

	It("scores a retiree as conservative", func() {
		profile, err := risk.Assess(risk.Investor{Age: 65, IncomeLakhs: 2, HorizonYears: 1, LossTolerance: 1, Experience: 1})
		Expect(err).To(BeNil())
		Expect(profile.Components.Age).To(Equal(1.0))
		Expect(profile.Level).To(Equal(risk.Conservative))
		Expect(profile.VolatilityTolerance).To(Equal(10.0))
	})

	It("caps every component at five", func() {
		profile, err := risk.Assess(risk.Investor{Age: 22, IncomeLakhs: 40, HorizonYears: 20, LossTolerance: 5, Experience: 5})
		Expect(err).To(BeNil())
		Expect(profile.Score).To(Equal(5.0))
		Expect(profile.Level).To(Equal(risk.Aggressive))
	})

	DescribeTable("rejects invalid answers",
		func(inv risk.Investor) {
			_, err := risk.Assess(inv)
			Expect(err).To(MatchError(risk.ErrInvalidInput))
		},
		Entry("zero age", risk.Investor{Age: 0, LossTolerance: 3, Experience: 3}),
		Entry("loss tolerance too high", risk.Investor{Age: 30, LossTolerance: 6, Experience: 3}),
		Entry("experience too low", risk.Investor{Age: 30, LossTolerance: 3, Experience: 0}),
		Entry("negative income", risk.Investor{Age: 30, IncomeLakhs: -1, LossTolerance: 3, Experience: 3}),
	)

	DescribeTable("maximum fund risk for a tenure",
		func(months, expected int) {
			Expect(risk.MaxRiskForTenure(months)).To(Equal(expected))
		},
		Entry("3 months", 3, 2),
		Entry("6 months", 6, 2),
		Entry("12 months", 12, 3),
		Entry("24 months", 24, 3),
		Entry("36 months", 36, 4),
		Entry("59 months", 59, 4),
		Entry("60 months", 60, 5),
		Entry("120 months", 120, 6),
		Entry("240 months", 240, 6),
	)

	It("names levels", func() {
		Expect(risk.Moderate.String()).To(Equal("Moderate"))
		Expect(risk.Level(9).String()).To(Equal("Unknown"))
		Expect(risk.Level(9).VolatilityTolerance()).To(Equal(20.0))
		Expect(risk.Level(9).Valid()).To(BeFalse())
	})
})
