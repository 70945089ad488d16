package dataframe_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/fundrec/dataframe"
)

var _ = Describe("Map", func() {
	d := func(day int) time.Time {
		return time.Date(2022, time.March, day, 0, 0, 0, 0, time.UTC)
	}

	It("aligns dataframes onto the union of dates", func() {
		dfMap := dataframe.Map{
			"b": {Dates: []time.Time{d(2), d(3)}, ColNames: []string{"b"}, Vals: [][]float64{{2, 3}}},
			"a": {Dates: []time.Time{d(1), d(3)}, ColNames: []string{"a"}, Vals: [][]float64{{1, 3}}},
		}

		df := dfMap.DataFrame()
		Expect(df.ColNames).To(Equal([]string{"a", "b"}))
		Expect(df.Dates).To(Equal([]time.Time{d(1), d(2), d(3)}))
		Expect(df.Vals[0][0]).To(Equal(1.0))
		Expect(math.IsNaN(df.Vals[0][1])).To(BeTrue())
		Expect(math.IsNaN(df.Vals[1][0])).To(BeTrue())
		Expect(df.Vals[1][2]).To(Equal(3.0))
	})

	It("returns sorted keys", func() {
		dfMap := dataframe.Map{"z": {}, "m": {}, "a": {}}
		Expect(dfMap.Keys()).To(Equal([]string{"a", "m", "z"}))
	})
})
