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

package data

import (
	"math"
	"sort"
	"time"

	"github.com/penny-vault/fundrec/dataframe"
)

// CleanNav converts raw nav points into a dataframe. Non-positive and NaN values become
// gaps that are forward filled and then back filled, the first observation of a duplicated
// date wins and dates are sorted ascending. A series with no valid value is returned empty.
func CleanNav(schemeCode string, points []NavPoint) *dataframe.DataFrame {
	cleaned := make([]NavPoint, 0, len(points))
	seen := make(map[time.Time]bool, len(points))
	for _, pt := range points {
		day := time.Date(pt.Date.Year(), pt.Date.Month(), pt.Date.Day(), 0, 0, 0, 0, pt.Date.Location())
		if seen[day] {
			continue
		}
		seen[day] = true
		nav := pt.Nav
		if math.IsNaN(nav) || math.IsInf(nav, 0) || nav <= 0 {
			nav = math.NaN()
		}
		cleaned = append(cleaned, NavPoint{Date: day, Nav: nav})
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Date.Before(cleaned[j].Date)
	})

	df := &dataframe.DataFrame{
		Dates:    make([]time.Time, len(cleaned)),
		ColNames: []string{schemeCode},
		Vals:     [][]float64{make([]float64, len(cleaned))},
	}

	for idx, pt := range cleaned {
		df.Dates[idx] = pt.Date
		df.Vals[0][idx] = pt.Nav
	}

	// a column without any valid value stays NaN after filling
	return df.Ffill().Bfill().Drop(math.NaN())
}

// NavPoints is the inverse of CleanNav for a single column dataframe
func NavPoints(df *dataframe.DataFrame) []NavPoint {
	if df == nil || df.ColCount() == 0 {
		return []NavPoint{}
	}
	points := make([]NavPoint, df.Len())
	for idx, dt := range df.Dates {
		points[idx] = NavPoint{Date: dt, Nav: df.Vals[0][idx]}
	}
	return points
}
