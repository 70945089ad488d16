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

package dataframe

import (
	"math"
	"sort"
	"time"
)

// Keys returns the map keys in sorted order
func (dfMap Map) Keys() []string {
	keys := make([]string, 0, len(dfMap))
	for k := range dfMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Align joins every single-column dataframe in the map onto the union of all dates.
// Dates missing from an individual dataframe are filled with NaN.
func (dfMap Map) Align() Map {
	dateSet := make(map[int64]time.Time)
	for _, df := range dfMap {
		for _, dt := range df.Dates {
			dateSet[dt.UnixNano()] = dt
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for _, dt := range dateSet {
		dates = append(dates, dt)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	aligned := make(Map, len(dfMap))
	for k, df := range dfMap {
		pos := make(map[int64]int, len(df.Dates))
		for idx, dt := range df.Dates {
			pos[dt.UnixNano()] = idx
		}

		vals := make([][]float64, len(df.Vals))
		for colIdx, col := range df.Vals {
			vals[colIdx] = make([]float64, len(dates))
			for rowIdx, dt := range dates {
				if srcIdx, ok := pos[dt.UnixNano()]; ok {
					vals[colIdx][rowIdx] = col[srcIdx]
				} else {
					vals[colIdx][rowIdx] = math.NaN()
				}
			}
		}

		aligned[k] = &DataFrame{
			Dates:    dates,
			ColNames: df.ColNames,
			Vals:     vals,
		}
	}

	return aligned
}

// DataFrame converts each item in the map to columns of a single dataframe. Columns are
// ordered by key and dates are the union of all dates in the map.
func (dfMap Map) DataFrame() *DataFrame {
	df := &DataFrame{
		ColNames: []string{},
		Vals:     [][]float64{},
	}

	aligned := dfMap.Align()
	for _, k := range aligned.Keys() {
		v := aligned[k]
		df.Dates = v.Dates
		df.ColNames = append(df.ColNames, v.ColNames...)
		df.Vals = append(df.Vals, v.Vals...)
	}

	return df
}

// Trim calls Trim on every dataframe in the map
func (dfMap Map) Trim(begin, end time.Time) Map {
	res := make(Map, len(dfMap))
	for k, v := range dfMap {
		res[k] = v.Trim(begin, end)
	}
	return res
}
