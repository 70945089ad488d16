package analytics_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/fundrec/analytics"
	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/pgxmockhelper"
)

var _ = Describe("Signals", func() {
	DescribeTable("momentum",
		func(r1m, r3m, r6m, r12m, combined float64, signal, strength string) {
			m := analytics.MomentumScore(r1m, r3m, r6m, r12m)
			Expect(m.Combined).To(BeNumerically("~", combined, 0.01))
			Expect(m.Signal).To(Equal(signal))
			Expect(m.TrendStrength).To(Equal(strength))
		},
		Entry("all positive", 1.0, 2.0, 3.0, 4.0, 41.8, "BUY", "Moderate"),
		Entry("all negative", -1.0, -2.0, -3.0, -4.0, -1.8, "STRONG_SELL", "Weak"),
		Entry("strong trend", 10.0, 20.0, 30.0, 60.0, 62.8, "STRONG_BUY", "Strong"),
		Entry("long term only", -1.0, -1.0, -1.0, 10.0, 6.04, "SELL", "Weak"),
	)

	It("splits momentum into its components", func() {
		m := analytics.MomentumScore(1, 2, 3, 4)
		Expect(m.TimeSeries).To(Equal(100.0))
		Expect(m.CrossSectional).To(Equal(3.0))
	})

	It("derives factor exposures from fund metrics", func() {
		f := analytics.FactorModel(&data.Fund{
			Beta:         0.88,
			FundSizeCr:   33000,
			ExpenseRatio: 0.45,
			Sharpe:       1.35,
			Returns1Yr:   14.2,
			StdDev:       13.2,
		})
		Expect(f.Exposure.Market).To(Equal(0.88))
		Expect(f.Exposure.Size).To(Equal(0.0))
		Expect(f.Exposure.Value).To(Equal(0.82))
		Expect(f.Exposure.Quality).To(Equal(0.675))
		Expect(f.Exposure.Momentum).To(Equal(0.284))
		Expect(f.Exposure.LowVolatility).To(Equal(0.56))
		Expect(f.CompositeScore).To(BeNumerically("~", 56.76, 0.011))
		Expect(f.DominantFactor).To(Equal("market"))
	})

	It("prefers the earlier factor on ties", func() {
		f := analytics.FactorModel(&data.Fund{Beta: 0, FundSizeCr: 0, ExpenseRatio: 0, StdDev: 30})
		Expect(f.Exposure.Size).To(Equal(1.0))
		Expect(f.Exposure.Value).To(Equal(1.0))
		Expect(f.DominantFactor).To(Equal("size"))
	})

	DescribeTable("sentiment",
		func(r1y, vol, fearGreed float64, sentiment, regime, trend, condition, action string) {
			s := analytics.MarketSentiment(r1y, vol, analytics.DefaultMarketReturn)
			Expect(s.FearGreedIndex).To(BeNumerically("~", fearGreed, 0.05))
			Expect(s.Sentiment).To(Equal(sentiment))
			Expect(s.VolatilityRegime).To(Equal(regime))
			Expect(s.Trend).To(Equal(trend))
			Expect(s.MarketCondition).To(Equal(condition))
			Expect(s.Action).To(Equal(action))
		},
		Entry("outperforming", 14.2, 13.2, 60.2, "GREED", "MODERATE", "UPTREND", "BULLISH", "REDUCE"),
		Entry("in line", 10.0, 15.0, 50.0, "NEUTRAL", "MODERATE", "UPTREND", "BEARISH", "HOLD"),
		Entry("lagging", -10.0, 25.0, 0.0, "EXTREME_FEAR", "HIGH", "DOWNTREND", "BEARISH", "INVEST"),
		Entry("surging", 40.0, 8.0, 100.0, "EXTREME_GREED", "LOW", "STRONG_UPTREND", "BULLISH", "REDUCE"),
		Entry("crashing", -30.0, 35.0, 0.0, "EXTREME_FEAR", "EXTREME", "STRONG_DOWNTREND", "BEARISH", "INVEST"),
	)

	Context("fund report", func() {
		var mem *data.Memory

		BeforeEach(func() {
			mem = pgxmockhelper.MemoryProvider("../testdata")
		})

		It("uses nav history when available", func() {
			ctx := context.Background()
			fund, err := mem.Fund(ctx, "100001")
			Expect(err).To(BeNil())
			nav, err := mem.NavHistory(ctx, "100001", data.FarPast, data.FarFuture)
			Expect(err).To(BeNil())

			report := analytics.FundAnalytics(fund, nav)
			Expect(report.SchemeCode).To(Equal("100001"))
			Expect(report.Factors.DominantFactor).To(Equal("market"))
			Expect(report.Sentiment.Sentiment).To(Equal("GREED"))
			Expect(report.Drawdown).ToNot(BeNil())
			Expect(report.Drawdown.MaxDrawdown).To(BeNumerically("<", 0))
			Expect(report.Volatility).ToNot(BeNil())
			Expect(report.Volatility.Forecast).To(HaveLen(analytics.DefaultForecastPeriods))
		})

		It("falls back to published returns without history", func() {
			fund, err := mem.Fund(context.Background(), "100001")
			Expect(err).To(BeNil())

			report := analytics.FundAnalytics(fund, nil)
			Expect(report.Momentum.Combined).To(BeNumerically("~", 45.18, 0.01))
			Expect(report.Momentum.Signal).To(Equal("BUY"))
			Expect(report.Drawdown).To(BeNil())
			Expect(report.Volatility).To(BeNil())
		})
	})
})
