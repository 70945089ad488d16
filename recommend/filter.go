// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package recommend

import (
	"sort"

	"github.com/penny-vault/fundrec/data"
)

// FilterStats counts the funds remaining after each filter stage
type FilterStats struct {
	Total         int  `json:"total_funds"`
	AfterAmount   int  `json:"after_investment_filter"`
	AfterTenure   int  `json:"after_tenure_filter"`
	AfterCategory int  `json:"after_category_filter"`
	AfterExclude  int  `json:"after_exclusion_filter"`
	AfterRating   int  `json:"after_rating_filter"`
	Fallback      bool `json:"fallback"`
}

type stage struct {
	keep  func(*data.Fund) bool
	count *int
}

func apply(funds []*data.Fund, keep func(*data.Fund) bool) []*data.Fund {
	res := make([]*data.Fund, 0, len(funds))
	for _, f := range funds {
		if keep(f) {
			res = append(res, f)
		}
	}
	return res
}

// Filter applies the investment amount, tenure, category, exclusion and rating filters in
// that order. c must already have its defaults set.
func Filter(funds []*data.Fund, c *Constraints) ([]*data.Fund, *FilterStats) {
	stats := &FilterStats{Total: len(funds)}
	stages := []stage{
		{c.affordable, &stats.AfterAmount},
		{c.withinTenure, &stats.AfterTenure},
		{c.inCategory, &stats.AfterCategory},
		{func(f *data.Fund) bool { return !c.excluded(f) }, &stats.AfterExclude},
		{func(f *data.Fund) bool { return f.Rating >= c.MinRating }, &stats.AfterRating},
	}

	res := funds
	for _, s := range stages {
		res = apply(res, s.keep)
		*s.count = len(res)
	}
	return res, stats
}

// TopRated returns the k highest rated funds; equal ratings keep catalog order
func TopRated(funds []*data.Fund, k int) []*data.Fund {
	res := make([]*data.Fund, len(funds))
	copy(res, funds)
	sort.SliceStable(res, func(i, j int) bool { return res[i].Rating > res[j].Rating })
	if len(res) > k {
		res = res[:k]
	}
	return res
}
