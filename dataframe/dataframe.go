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
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

// ColCount returns the number of columns in the dataframe
func (df *DataFrame) ColCount() int {
	return len(df.ColNames)
}

// ColIndex returns the index of the specified column; returns -1 if column doesn't exist
func (df *DataFrame) ColIndex(colName string) int {
	for idx, val := range df.ColNames {
		if colName == val {
			return idx
		}
	}

	return -1
}

// Column returns the values of the named column
func (df *DataFrame) Column(colName string) ([]float64, error) {
	idx := df.ColIndex(colName)
	if idx == -1 {
		return nil, ErrColumnNotFound
	}
	return df.Vals[idx], nil
}

// Copy creates a deep copy of the dataframe
func (df *DataFrame) Copy() *DataFrame {
	df2 := &DataFrame{
		ColNames: make([]string, len(df.ColNames)),
		Dates:    make([]time.Time, len(df.Dates)),
		Vals:     make([][]float64, len(df.Vals)),
	}

	copy(df2.ColNames, df.ColNames)
	copy(df2.Dates, df.Dates)

	for idx := range df2.Vals {
		df2.Vals[idx] = make([]float64, len(df.Vals[idx]))
		copy(df2.Vals[idx], df.Vals[idx])
	}

	return df2
}

// Drop removes rows that contain the value `val` in any column. Use math.NaN() to drop missing rows.
func (df *DataFrame) Drop(val float64) *DataFrame {
	isNA := math.IsNaN(val)
	newVals := make([][]float64, len(df.Vals))
	newDates := make([]time.Time, 0, len(df.Dates))

	for rowIdx, dt := range df.Dates {
		keep := true
		for _, col := range df.Vals {
			rowVal := col[rowIdx]
			if rowVal == val || (isNA && math.IsNaN(rowVal)) {
				keep = false
				break
			}
		}

		if keep {
			newDates = append(newDates, dt)
			for colIdx, col := range df.Vals {
				newVals[colIdx] = append(newVals[colIdx], col[rowIdx])
			}
		}
	}

	df.Vals = newVals
	df.Dates = newDates
	return df
}

// DropColumns removes columns for which the predicate returns true and returns the dataframe
func (df *DataFrame) DropColumns(lambda func(colName string, vals []float64) bool) *DataFrame {
	names := make([]string, 0, len(df.ColNames))
	vals := make([][]float64, 0, len(df.Vals))
	for idx, name := range df.ColNames {
		if !lambda(name, df.Vals[idx]) {
			names = append(names, name)
			vals = append(vals, df.Vals[idx])
		}
	}
	df.ColNames = names
	df.Vals = vals
	return df
}

// End returns the last date in the DataFrame
func (df *DataFrame) End() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}
	return df.Dates[len(df.Dates)-1]
}

// Ffill replaces NaN values with the last observed value of the column. Leading NaNs are left in place.
func (df *DataFrame) Ffill() *DataFrame {
	for _, col := range df.Vals {
		last := math.NaN()
		for rowIdx, val := range col {
			if math.IsNaN(val) {
				col[rowIdx] = last
			} else {
				last = val
			}
		}
	}
	return df
}

// Bfill replaces NaN values with the next observed value of the column
func (df *DataFrame) Bfill() *DataFrame {
	for _, col := range df.Vals {
		next := math.NaN()
		for rowIdx := len(col) - 1; rowIdx >= 0; rowIdx-- {
			if math.IsNaN(col[rowIdx]) {
				col[rowIdx] = next
			} else {
				next = col[rowIdx]
			}
		}
	}
	return df
}

// Insert a new column to the end of the dataframe
func (df *DataFrame) Insert(name string, col []float64) *DataFrame {
	df.ColNames = append(df.ColNames, name)
	df.Vals = append(df.Vals, col)
	return df
}

// Last returns a new dataframe with only the last row of the current dataframe
func (df *DataFrame) Last() *DataFrame {
	if df.Len() == 0 {
		return df
	}

	lastVals := make([][]float64, len(df.ColNames))
	lastRow := len(df.Dates) - 1
	for idx, col := range df.Vals {
		lastVals[idx] = []float64{col[lastRow]}
	}

	return &DataFrame{
		ColNames: df.ColNames,
		Dates:    []time.Time{df.Dates[lastRow]},
		Vals:     lastVals,
	}
}

// Len returns the number of rows in the dataframe
func (df *DataFrame) Len() int {
	return len(df.Dates)
}

// Count returns the number of non-NaN observations per column
func (df *DataFrame) Count() []int {
	counts := make([]int, len(df.Vals))
	for colIdx, col := range df.Vals {
		for _, val := range col {
			if !math.IsNaN(val) {
				counts[colIdx]++
			}
		}
	}
	return counts
}

// Start returns the first date of the dataframe
func (df *DataFrame) Start() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}
	return df.Dates[0]
}

// Table prints an ASCII formatted table
func (df *DataFrame) Table() string {
	if len(df.Dates) == 0 {
		return "<NO DATA>"
	}

	tableCols := append([]string{"Date"}, df.ColNames...)

	s := &strings.Builder{}
	table := tablewriter.NewWriter(s)
	table.SetHeader(tableCols)
	footer := make([]string, len(tableCols))
	footer[0] = "Num Rows"
	if len(footer) > 1 {
		footer[1] = fmt.Sprintf("%d", df.Len())
	}
	table.SetFooter(footer)
	table.SetBorder(false)

	for rowIdx, dt := range df.Dates {
		row := make([]string, 0, len(df.Vals)+1)
		row = append(row, dt.Format("2006-01-02"))
		for _, col := range df.Vals {
			row = append(row, fmt.Sprintf("%.4f", col[rowIdx]))
		}
		table.Append(row)
	}

	table.Render()
	return s.String()
}

// Trim the dataframe to the specified date range (inclusive). The returned dataframe
// shares memory with df.
func (df *DataFrame) Trim(begin, end time.Time) *DataFrame {
	df2 := &DataFrame{
		ColNames: df.ColNames,
		Dates:    []time.Time{},
		Vals:     make([][]float64, len(df.Vals)),
	}

	if end.Before(begin) || df.Len() == 0 || end.Before(df.Start()) || begin.After(df.End()) {
		for idx := range df2.Vals {
			df2.Vals[idx] = []float64{}
		}
		return df2
	}

	// Use binary search to find the index corresponding to the start and end times
	beginIdx := sort.Search(len(df.Dates), func(i int) bool {
		return !df.Dates[i].Before(begin)
	})

	endIdx := sort.Search(len(df.Dates), func(i int) bool {
		return df.Dates[i].After(end)
	})

	df2.Dates = df.Dates[beginIdx:endIdx]
	for colIdx, col := range df.Vals {
		df2.Vals[colIdx] = col[beginIdx:endIdx]
	}

	return df2
}

// Until returns the rows with dates on or before end
func (df *DataFrame) Until(end time.Time) *DataFrame {
	if df.Len() == 0 {
		return df
	}
	return df.Trim(df.Start(), end)
}
