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

// Package analytics computes portfolio performance, drawdown, volatility forecasts and
// heuristic fund signals
package analytics

import (
	"errors"
	"math"
	"time"

	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/dataframe"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoData        = errors.New("not enough aligned observations")
	ErrUnstableModel = errors.New("alpha + beta must be below 1")
)

// Point is a dated value of a series
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Metrics summarize a return series; all values are decimals
type Metrics struct {
	CumulativeReturn float64 `json:"cumulative_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	AnnualizedVol    float64 `json:"annualized_vol"`
	Sharpe           float64 `json:"sharpe"`
	MaxDrawdown      float64 `json:"max_drawdown"`
}

type Performance struct {
	Nav     []Point `json:"portfolio_nav"`
	Metrics Metrics `json:"metrics"`
}

// PortfolioPerformance aligns nav histories on dates where every scheme has a value,
// weights their daily returns and compounds a portfolio nav that starts from 1. Schemes
// missing from weights get no weight.
func PortfolioPerformance(navs dataframe.Map, weights map[string]float64) (*Performance, error) {
	if len(navs) == 0 {
		return nil, ErrNoData
	}

	df := navs.DataFrame().Drop(math.NaN())
	if df.Len() < 2 {
		return nil, ErrNoData
	}

	returns := df.PctChange()
	w := make([]float64, df.ColCount())
	for idx, code := range df.ColNames {
		w[idx] = weights[code]
	}

	n := df.Len() - 1
	portRet := make([]float64, n)
	for row := 1; row <= n; row++ {
		r := 0.0
		for col := range w {
			r += w[col] * returns.Vals[col][row]
		}
		portRet[row-1] = r
	}

	growth := (&dataframe.DataFrame{Dates: df.Dates[1:], ColNames: []string{"portfolio"}, Vals: [][]float64{portRet}}).Cumprod(1)
	nav := make([]Point, n)
	for idx, dt := range growth.Dates {
		nav[idx] = Point{Date: dt, Value: growth.Vals[0][idx]}
	}

	return &Performance{
		Nav:     nav,
		Metrics: metrics(portRet, nav),
	}, nil
}

func metrics(portRet []float64, nav []Point) Metrics {
	n := len(portRet)
	cumulative := nav[n-1].Value - 1
	annRet := math.Pow(1+cumulative, float64(common.TradingDaysPerYear)/float64(n)) - 1

	annVol := 0.0
	if n > 1 {
		annVol = stat.StdDev(portRet, nil) * math.Sqrt(common.TradingDaysPerYear)
	}

	sharpe := 0.0
	if annVol > 0 {
		sharpe = annRet / annVol
	}

	peak := math.Inf(-1)
	maxDD := 0.0
	for _, pt := range nav {
		peak = math.Max(peak, pt.Value)
		maxDD = math.Min(maxDD, (pt.Value-peak)/peak)
	}

	return Metrics{
		CumulativeReturn: cumulative,
		AnnualizedReturn: annRet,
		AnnualizedVol:    annVol,
		Sharpe:           sharpe,
		MaxDrawdown:      maxDD,
	}
}

// SeriesPerformance evaluates an existing nav series as a single holding
func SeriesPerformance(nav []Point) (*Performance, error) {
	df := &dataframe.DataFrame{
		Dates:    make([]time.Time, len(nav)),
		ColNames: []string{"portfolio"},
		Vals:     [][]float64{make([]float64, len(nav))},
	}
	for idx, pt := range nav {
		df.Dates[idx] = pt.Date
		df.Vals[0][idx] = pt.Value
	}
	return PortfolioPerformance(dataframe.Map{"portfolio": df}, map[string]float64{"portfolio": 1})
}
