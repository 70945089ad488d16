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

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PctChange computes the percent change between consecutive rows and returns a new dataframe.
// The first row of the result is NaN. A NaN on either side of a change yields NaN.
func (df *DataFrame) PctChange() *DataFrame {
	res := df.Copy()
	for colIdx, col := range df.Vals {
		out := res.Vals[colIdx]
		for rowIdx := range col {
			if rowIdx == 0 {
				out[rowIdx] = math.NaN()
				continue
			}
			out[rowIdx] = col[rowIdx]/col[rowIdx-1] - 1.0
		}
	}
	return res
}

// Cumprod computes the cumulative product of (1 + x) for each column, scaled by initial
func (df *DataFrame) Cumprod(initial float64) *DataFrame {
	res := df.Copy()
	for colIdx, col := range df.Vals {
		acc := initial
		for rowIdx, val := range col {
			acc *= 1.0 + val
			res.Vals[colIdx][rowIdx] = acc
		}
	}
	return res
}

// ColMean returns the mean of each column
func (df *DataFrame) ColMean() []float64 {
	res := make([]float64, len(df.Vals))
	for colIdx, col := range df.Vals {
		res[colIdx] = stat.Mean(col, nil)
	}
	return res
}

// Covariance returns the sample covariance matrix between columns. The dataframe must not contain NaN.
func (df *DataFrame) Covariance() *mat.SymDense {
	if df.Len() == 0 || df.ColCount() == 0 {
		return mat.NewSymDense(maxInt(df.ColCount(), 1), nil)
	}

	// stat.CovarianceMatrix expects observations in rows and variables in columns
	obs := mat.NewDense(df.Len(), df.ColCount(), nil)
	for colIdx, col := range df.Vals {
		obs.SetCol(colIdx, col)
	}

	cov := mat.NewSymDense(df.ColCount(), nil)
	stat.CovarianceMatrix(cov, obs, nil)
	return cov
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
