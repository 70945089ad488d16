package dataframe_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/dataframe"
)

var _ = Describe("DataFrame", func() {
	var (
		df1 *dataframe.DataFrame
		tz  *time.Location
	)

	BeforeEach(func() {
		tz = common.GetTimezone()

		df1 = &dataframe.DataFrame{
			Dates: []time.Time{
				time.Date(2021, time.January, 1, 0, 0, 0, 0, tz),
				time.Date(2021, time.January, 2, 0, 0, 0, 0, tz),
				time.Date(2021, time.January, 3, 0, 0, 0, 0, tz),
				time.Date(2021, time.January, 4, 0, 0, 0, 0, tz),
				time.Date(2021, time.January, 5, 0, 0, 0, 0, tz),
			},
			Vals:     [][]float64{{1.0, 2.0, math.NaN(), 4.0, 5.0}, {10.0, 20.0, 30.0, 40.0, 50.0}},
			ColNames: []string{"119551", "120503"},
		}
	})

	Context("when trimming", func() {
		It("keeps the inclusive date range", func() {
			df2 := df1.Trim(time.Date(2021, time.January, 2, 0, 0, 0, 0, tz), time.Date(2021, time.January, 4, 0, 0, 0, 0, tz))
			Expect(df2.Len()).To(Equal(3))
			Expect(df2.Vals[1]).To(Equal([]float64{20.0, 30.0, 40.0}))
			Expect(df2.Start()).To(Equal(time.Date(2021, time.January, 2, 0, 0, 0, 0, tz)))
			Expect(df2.End()).To(Equal(time.Date(2021, time.January, 4, 0, 0, 0, 0, tz)))
		})

		It("returns an empty dataframe when end is before begin", func() {
			df2 := df1.Trim(time.Date(2021, time.January, 4, 0, 0, 0, 0, tz), time.Date(2021, time.January, 2, 0, 0, 0, 0, tz))
			Expect(df2.Len()).To(Equal(0))
			Expect(df2.ColCount()).To(Equal(2))
		})

		It("returns an empty dataframe when the range is outside the data", func() {
			df2 := df1.Trim(time.Date(2022, time.January, 1, 0, 0, 0, 0, tz), time.Date(2022, time.January, 2, 0, 0, 0, 0, tz))
			Expect(df2.Len()).To(Equal(0))
		})

		It("keeps everything until a date", func() {
			df2 := df1.Until(time.Date(2021, time.January, 2, 12, 0, 0, 0, tz))
			Expect(df2.Len()).To(Equal(2))
		})
	})

	It("drops rows containing NaN", func() {
		df1.Drop(math.NaN())
		Expect(df1.Len()).To(Equal(4))
		Expect(df1.Vals[0]).To(Equal([]float64{1.0, 2.0, 4.0, 5.0}))
		Expect(df1.Vals[1]).To(Equal([]float64{10.0, 20.0, 40.0, 50.0}))
	})

	It("forward fills missing values", func() {
		df1.Ffill()
		Expect(df1.Vals[0]).To(Equal([]float64{1.0, 2.0, 2.0, 4.0, 5.0}))
	})

	It("back fills leading missing values", func() {
		df1.Vals[0][0] = math.NaN()
		df1.Ffill().Bfill()
		Expect(df1.Vals[0]).To(Equal([]float64{2.0, 2.0, 2.0, 4.0, 5.0}))
	})

	It("counts observations", func() {
		Expect(df1.Count()).To(Equal([]int{4, 5}))
	})

	It("copies without sharing memory", func() {
		df2 := df1.Copy()
		df2.Vals[1][0] = 99
		Expect(df1.Vals[1][0]).To(Equal(10.0))
	})

	It("returns the last row", func() {
		last := df1.Last()
		Expect(last.Len()).To(Equal(1))
		Expect(last.Vals[1]).To(Equal([]float64{50.0}))
	})

	It("looks up columns by name", func() {
		col, err := df1.Column("120503")
		Expect(err).To(BeNil())
		Expect(col[4]).To(Equal(50.0))

		_, err = df1.Column("missing")
		Expect(err).To(MatchError(dataframe.ErrColumnNotFound))
	})

	It("drops columns by predicate", func() {
		df1.DropColumns(func(name string, vals []float64) bool { return name == "119551" })
		Expect(df1.ColNames).To(Equal([]string{"120503"}))
	})

	It("appends columns", func() {
		df1.Insert("nav", []float64{1, 1, 1, 1, 1})
		Expect(df1.ColNames).To(Equal([]string{"119551", "120503", "nav"}))
		Expect(df1.ColIndex("nav")).To(Equal(2))
	})

	It("renders a table", func() {
		Expect(df1.Table()).To(ContainSubstring("2021-01-05"))
	})
})
