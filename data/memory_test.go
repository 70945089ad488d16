package data_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/dataframe"
)

func day(d int) time.Time {
	return time.Date(2022, time.January, d, 0, 0, 0, 0, time.UTC)
}

type countingSource struct {
	inner *data.Memory
	calls int32
}

func (c *countingSource) NavHistory(ctx context.Context, code string, begin, end time.Time) (*dataframe.DataFrame, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.inner.NavHistory(ctx, code, begin, end)
}

func (c *countingSource) SchemeCodes(ctx context.Context) ([]string, error) {
	return c.inner.SchemeCodes(ctx)
}

type failingSource struct{}

var errBoom = errors.New("boom")

func (failingSource) NavHistory(ctx context.Context, code string, begin, end time.Time) (*dataframe.DataFrame, error) {
	if code == "bad" {
		return nil, errBoom
	}
	return nil, data.ErrNoNavHistory
}

func (failingSource) SchemeCodes(ctx context.Context) ([]string, error) {
	return []string{"bad"}, nil
}

var _ = Describe("Memory provider", func() {
	var (
		mem *data.Memory
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		mem = data.NewMemory()
		mem.AddFund(&data.Fund{SchemeCode: "b", Rating: 4})
		mem.AddFund(&data.Fund{SchemeCode: "a", Rating: 3})
		mem.AddNav("a", []data.NavPoint{{Date: day(3), Nav: 12}, {Date: day(1), Nav: 10}, {Date: day(2), Nav: 11}})
		mem.AddNav("b", []data.NavPoint{{Date: day(2), Nav: 5}})
	})

	It("lists funds sorted by scheme code", func() {
		funds, err := mem.Funds(ctx)
		Expect(err).To(BeNil())
		Expect(funds).To(HaveLen(2))
		Expect(funds[0].SchemeCode).To(Equal("a"))
	})

	It("returns not found for unknown funds", func() {
		_, err := mem.Fund(ctx, "zzz")
		Expect(err).To(MatchError(data.ErrFundNotFound))
	})

	It("returns sorted nav history in range", func() {
		df, err := mem.NavHistory(ctx, "a", day(2), day(3))
		Expect(err).To(BeNil())
		Expect(df.Vals[0]).To(Equal([]float64{11, 12}))
	})

	It("reports missing nav history", func() {
		_, err := mem.NavHistory(ctx, "a", day(10), day(20))
		Expect(err).To(MatchError(data.ErrNoNavHistory))
		_, err = mem.NavHistory(ctx, "zzz", day(1), day(20))
		Expect(err).To(MatchError(data.ErrNoNavHistory))
	})

	It("fetches many histories concurrently", func() {
		res, err := data.NavHistories(ctx, mem, []string{"a", "b", "missing"}, day(1), day(31), 2)
		Expect(err).To(BeNil())
		Expect(res.Keys()).To(Equal([]string{"a", "b"}))
	})

	It("propagates unexpected errors from batch fetches", func() {
		_, err := data.NavHistories(ctx, failingSource{}, []string{"ok", "bad"}, day(1), day(31), 0)
		Expect(err).To(MatchError(errBoom))
	})

	It("combines a catalog with a nav source", func() {
		combined := data.Combine(mem, mem)
		codes, err := combined.SchemeCodes(ctx)
		Expect(err).To(BeNil())
		Expect(codes).To(Equal([]string{"a", "b"}))
		fund, err := combined.Fund(ctx, "b")
		Expect(err).To(BeNil())
		Expect(fund.Rating).To(Equal(4.0))
	})

	Context("with a cache in front", func() {
		BeforeEach(func() {
			Expect(common.SetupCache()).To(Succeed())
			Expect(common.CachePurge(ctx, data.NavCachePrefix)).To(Succeed())
		})

		It("only hits the source once", func() {
			src := &countingSource{inner: mem}
			cached := data.NewCached(src)

			df1, err := cached.NavHistory(ctx, "a", day(1), day(2))
			Expect(err).To(BeNil())
			Expect(df1.Vals[0]).To(Equal([]float64{10, 11}))

			df2, err := cached.NavHistory(ctx, "a", day(2), day(3))
			Expect(err).To(BeNil())
			Expect(df2.Vals[0]).To(Equal([]float64{11, 12}))
			Expect(df2.Start().Equal(day(2))).To(BeTrue())

			Expect(atomic.LoadInt32(&src.calls)).To(Equal(int32(1)))
		})
	})
})

var _ = Describe("CleanNav", func() {
	It("fills invalid values and keeps the first of duplicate dates", func() {
		df := data.CleanNav("x", []data.NavPoint{
			{Date: day(3), Nav: 3},
			{Date: day(1), Nav: 1},
			{Date: day(1), Nav: 100},
			{Date: day(2), Nav: -1},
			{Date: day(4), Nav: math.NaN()},
			{Date: day(5), Nav: 0},
		})
		Expect(df.ColNames).To(Equal([]string{"x"}))
		Expect(df.Dates).To(Equal([]time.Time{day(1), day(2), day(3), day(4), day(5)}))
		Expect(df.Vals[0]).To(Equal([]float64{1, 1, 3, 3, 3}))
	})

	It("forward fills a zero nav from the previous day", func() {
		df := data.CleanNav("x", []data.NavPoint{
			{Date: day(1), Nav: 10},
			{Date: day(2), Nav: 0},
			{Date: day(3), Nav: 12},
		})
		Expect(df.Vals[0]).To(Equal([]float64{10, 10, 12}))
	})

	It("back fills a leading NaN", func() {
		df := data.CleanNav("x", []data.NavPoint{
			{Date: day(1), Nav: math.NaN()},
			{Date: day(2), Nav: 11},
			{Date: day(3), Nav: 12},
		})
		Expect(df.Dates).To(Equal([]time.Time{day(1), day(2), day(3)}))
		Expect(df.Vals[0]).To(Equal([]float64{11, 11, 12}))
	})

	It("is empty when no value is valid", func() {
		df := data.CleanNav("x", []data.NavPoint{{Date: day(1), Nav: 0}, {Date: day(2), Nav: -1}})
		Expect(df.Len()).To(Equal(0))
	})

	It("round trips through nav points", func() {
		points := []data.NavPoint{{Date: day(1), Nav: 1}, {Date: day(2), Nav: 2}}
		Expect(data.NavPoints(data.CleanNav("x", points))).To(Equal(points))
	})
})
