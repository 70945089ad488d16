package analytics_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/fundrec/analytics"
)

var _ = Describe("Drawdown", func() {
	It("measures a recovered drawdown", func() {
		dd, err := analytics.Drawdown([]float64{10, -50, 100}, 100)
		Expect(err).To(BeNil())
		Expect(dd.MaxDrawdown).To(Equal(-50.0))
		Expect(dd.CurrentDrawdown).To(Equal(0.0))
		Expect(dd.RecoveryDays).ToNot(BeNil())
		Expect(*dd.RecoveryDays).To(Equal(1))
		Expect(dd.CalmarRatio).To(Equal(0.2))
		Expect(dd.PainIndex).To(Equal(12.5))
		Expect(dd.DrawdownPeriods).To(Equal(1))
		Expect(dd.AverageDrawdown).To(Equal(-50.0))
	})

	It("reports no recovery while below the prior peak", func() {
		dd, err := analytics.Drawdown([]float64{10, -20}, 100)
		Expect(err).To(BeNil())
		Expect(dd.MaxDrawdown).To(Equal(-20.0))
		Expect(dd.CurrentDrawdown).To(Equal(-20.0))
		Expect(dd.RecoveryDays).To(BeNil())
	})

	It("is flat for rising series", func() {
		dd, err := analytics.Drawdown([]float64{1, 2, 3}, 10)
		Expect(err).To(BeNil())
		Expect(dd.MaxDrawdown).To(Equal(0.0))
		Expect(dd.CalmarRatio).To(Equal(0.0))
		Expect(dd.PainIndex).To(Equal(0.0))
		Expect(dd.AverageDrawdown).To(Equal(0.0))
	})

	It("rejects a non-positive starting value", func() {
		_, err := analytics.Drawdown([]float64{1}, 0)
		Expect(err).To(MatchError(analytics.ErrNoData))
	})
})

var _ = Describe("GARCH", func() {
	var returns []float64

	BeforeEach(func() {
		returns = make([]float64, 60)
		for idx := range returns {
			returns[idx] = 0.01 * math.Sin(float64(idx))
		}
	})

	It("mean reverts toward the long run volatility", func() {
		vol, err := analytics.DefaultGARCH.Forecast(returns, 30)
		Expect(err).To(BeNil())
		Expect(vol.Periods).To(Equal(30))
		Expect(vol.Forecast).To(HaveLen(30))
		Expect(vol.Forecast[0]).To(Equal(vol.Current))
		Expect(vol.Persistence).To(Equal(0.95))
		Expect(vol.LongRun).To(BeNumerically("~", math.Sqrt(0.00002)*math.Sqrt(252)*100, 0.01))

		first := math.Abs(vol.Forecast[0] - vol.LongRun)
		last := math.Abs(vol.Forecast[29] - vol.LongRun)
		Expect(last).To(BeNumerically("<=", first))
	})

	It("rejects a non-stationary model", func() {
		_, err := analytics.GARCH{Omega: 1e-6, Alpha: 0.2, Beta: 0.8}.Forecast(returns, 5)
		Expect(err).To(MatchError(analytics.ErrUnstableModel))
	})

	It("needs returns and a horizon", func() {
		_, err := analytics.DefaultGARCH.Forecast(returns[:1], 5)
		Expect(err).To(MatchError(analytics.ErrNoData))
		_, err = analytics.DefaultGARCH.Forecast(returns, 0)
		Expect(err).To(MatchError(analytics.ErrNoData))
	})
})
