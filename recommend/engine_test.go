package recommend_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/pgxmockhelper"
	"github.com/penny-vault/fundrec/recommend"
	"github.com/penny-vault/fundrec/risk"
)

func recommendedCodes(res *recommend.Result) []string {
	codes := make([]string, len(res.Recommendations))
	for idx, rec := range res.Recommendations {
		codes[idx] = rec.Fund.SchemeCode
	}
	return codes
}

func scoredCodes(scored []recommend.Scored) []string {
	codes := make([]string, len(scored))
	for idx, s := range scored {
		codes[idx] = s.Fund.SchemeCode
	}
	return codes
}

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		mem    *data.Memory
		engine *recommend.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		viper.Set("simulate.paths", 200)
		viper.Set("simulate.seed", 7)
		mem = pgxmockhelper.MemoryProvider("../testdata")

		var err error
		engine, err = recommend.NewEngine(mem)
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		viper.Set("simulate.paths", recommend.DefaultProjectionPaths)
		viper.Set("simulate.seed", 0)
		viper.Set("recommend.scorer", recommend.CompositeName)
	})

	Context("recommend", func() {
		It("ranks the filtered catalog", func() {
			res, err := engine.Recommend(ctx, recommend.Constraints{HorizonYears: 1})
			Expect(err).To(BeNil())
			Expect(res.Scorer).To(Equal(recommend.CompositeName))
			Expect(res.Stats.Fallback).To(BeFalse())
			Expect(recommendedCodes(res)).To(Equal([]string{"100007", "100002", "100004", "100001", "100006"}))

			top := res.Recommendations[0]
			Expect(top.Rank).To(Equal(1))
			Expect(top.Score).To(Equal(64.2))
			Expect(top.Explanation).ToNot(BeNil())
			Expect(top.Contributions.Top).To(HaveLen(5))
			Expect(top.Projection).ToNot(BeNil())
			Expect(top.Projection.Days).To(Equal(252))
			Expect(top.Projection.Confidence90).To(HaveLen(2))
			Expect(top.Projection.ProbabilityOfLoss).To(BeNumerically(">=", 0))
			Expect(top.RiskAnalysis).ToNot(BeNil())
			Expect(top.RiskAnalysis.ExpectedReturn).To(BeNumerically("~", 31.2, 1e-9))
		})

		It("is reproducible for a seed", func() {
			a, err := engine.Recommend(ctx, recommend.Constraints{HorizonYears: 1, TopK: 2})
			Expect(err).To(BeNil())
			b, err := engine.Recommend(ctx, recommend.Constraints{HorizonYears: 1, TopK: 2})
			Expect(err).To(BeNil())
			Expect(a.Recommendations[0].Projection).To(Equal(b.Recommendations[0].Projection))
		})

		It("falls back to the top rated funds", func() {
			res, err := engine.Recommend(ctx, recommend.Constraints{Categories: []string{"Gold"}, HorizonYears: 1})
			Expect(err).To(BeNil())
			Expect(res.Stats.Fallback).To(BeTrue())
			Expect(res.Stats.AfterCategory).To(Equal(0))
			Expect(recommendedCodes(res)).To(Equal([]string{"100007", "100002", "100004", "100001", "100003"}))
		})

		It("uses the configured scorer", func() {
			viper.Set("recommend.scorer", recommend.PointsName)
			points, err := recommend.NewEngine(mem)
			Expect(err).To(BeNil())

			res, err := points.Recommend(ctx, recommend.Constraints{HorizonYears: 5, TopK: 3})
			Expect(err).To(BeNil())
			Expect(res.Scorer).To(Equal(recommend.PointsName))
			Expect(recommendedCodes(res)).To(Equal([]string{"100007", "100004", "100001"}))
		})

		It("rejects an unknown scorer", func() {
			viper.Set("recommend.scorer", "lstm")
			_, err := recommend.NewEngine(mem)
			Expect(err).To(MatchError(recommend.ErrUnknownScorer))
		})

		It("errors on an empty catalog", func() {
			empty, err := recommend.NewEngine(data.NewMemory())
			Expect(err).To(BeNil())
			_, err = empty.Recommend(ctx, recommend.Constraints{})
			Expect(err).To(MatchError(recommend.ErrNoFunds))
		})

		It("stops when the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := engine.Recommend(cancelled, recommend.Constraints{HorizonYears: 1})
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	It("recommends sip funds by points", func() {
		scored, err := engine.RecommendSIP(ctx, 500, risk.Moderate, 5)
		Expect(err).To(BeNil())
		Expect(scoredCodes(scored)).To(Equal([]string{"100007", "100004", "100001", "100002", "100003", "100008"}))
		Expect(scored[0].Score).To(BeNumerically("~", 76.24, 1e-3))
	})

	Context("compare", func() {
		It("names the best fund per metric", func() {
			cmp, err := engine.Compare(ctx, []string{"100001", "100003", "999999"})
			Expect(err).To(BeNil())
			Expect(cmp.Funds).To(HaveLen(2))
			Expect(cmp.Funds[1].SchemeName).To(Equal("ICICI Prudential Balanced Advantage Fund"))
			Expect(cmp.BestIn).To(Equal(map[string]string{
				"returns_1yr": "100001",
				"returns_3yr": "100001",
				"returns_5yr": "100001",
				"sharpe":      "100003",
				"sortino":     "100003",
				"alpha":       "100001",
			}))
		})

		It("errors when no fund is known", func() {
			_, err := engine.Compare(ctx, []string{"999999"})
			Expect(err).To(MatchError(recommend.ErrNoFunds))
		})
	})
})
