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

package simulate

import (
	"math"
	"sort"

	"golang.org/x/exp/rand"
)

// Percentile of xs using linear interpolation between the closest ranks at
// position p*(n-1). p is given on the 0-100 scale. xs is not modified.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	h := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Band is the value of a percentile at every simulated step
type Band struct {
	Percentile float64   `json:"percentile"`
	Values     []float64 `json:"values"`
}

// Bands computes cross-sectional percentiles of the paths at each step. When no
// percentiles are given the 10th, 50th, and 90th are used.
func (s *Simulation) Bands(percentiles ...float64) []Band {
	if len(percentiles) == 0 {
		percentiles = []float64{10, 50, 90}
	}

	steps := s.Steps()
	bands := make([]Band, len(percentiles))
	for idx, p := range percentiles {
		bands[idx] = Band{Percentile: p, Values: make([]float64, steps)}
	}

	col := make([]float64, len(s.Paths))
	for t := 0; t < steps; t++ {
		for pathIdx, path := range s.Paths {
			col[pathIdx] = path[t]
		}
		sort.Float64s(col)
		for idx, p := range percentiles {
			bands[idx].Values[t] = percentileSorted(col, p)
		}
	}

	return bands
}

// Median returns the 50th percentile path
func (s *Simulation) Median() []float64 {
	return s.Bands(50)[0].Values
}

// Sample draws k paths without replacement. When k covers every path all paths are returned in order.
func (s *Simulation) Sample(k int, seed uint64) [][]float64 {
	if k <= 0 {
		return [][]float64{}
	}
	if k >= len(s.Paths) {
		return s.Paths
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(s.Paths))[:k]
	sort.Ints(perm)

	out := make([][]float64, k)
	for idx, pathIdx := range perm {
		out[idx] = s.Paths[pathIdx]
	}
	return out
}
