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

package analytics

import (
	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/dataframe"
	"github.com/rs/zerolog/log"
)

const (
	DefaultForecastPeriods = 30
	minGarchReturns        = 30
)

// trailing windows, in trading days, for 1, 3, 6 and 12 month momentum
var momentumWindows = [4]int{21, 63, 126, 252}

// FundReport collects every analytic available for a single scheme. Sections that need
// nav history are nil when the history is too short.
type FundReport struct {
	SchemeCode string              `json:"scheme_code"`
	Momentum   *Momentum           `json:"momentum"`
	Factors    *Factors            `json:"factors"`
	Sentiment  *Sentiment          `json:"sentiment"`
	Drawdown   *DrawdownStats      `json:"drawdown,omitempty"`
	Volatility *VolatilityForecast `json:"volatility_forecast,omitempty"`
}

// trailingReturns returns percentage returns over each momentum window, approximating any
// window the history cannot cover from the fund's published one year return
func trailingReturns(f *data.Fund, navs []float64) [4]float64 {
	approx := [4]float64{f.Returns1Yr / 12, f.Returns1Yr / 4, f.Returns1Yr / 2, f.Returns1Yr}
	last := len(navs) - 1
	for idx, window := range momentumWindows {
		if last-window >= 0 && navs[last-window] > 0 {
			approx[idx] = (navs[last]/navs[last-window] - 1) * 100
		}
	}
	return approx
}

// FundAnalytics builds a FundReport from the fund's published metrics and, when nav is not
// nil, its nav history
func FundAnalytics(f *data.Fund, nav *dataframe.DataFrame) *FundReport {
	subLog := log.With().Str("SchemeCode", f.SchemeCode).Logger()

	var navs []float64
	if nav != nil && nav.ColCount() > 0 {
		navs = nav.Vals[0]
	}

	r := trailingReturns(f, navs)
	report := &FundReport{
		SchemeCode: f.SchemeCode,
		Momentum:   MomentumScore(r[0], r[1], r[2], r[3]),
		Factors:    FactorModel(f),
		Sentiment:  MarketSentiment(f.Returns1Yr, f.StdDev, DefaultMarketReturn),
	}

	if len(navs) < 2 {
		return report
	}

	daily := nav.PctChange().Vals[0][1:]
	pct := make([]float64, len(daily))
	for idx, v := range daily {
		pct[idx] = v * 100
	}

	dd, err := Drawdown(pct, navs[0])
	if err != nil {
		subLog.Warn().Err(err).Msg("drawdown analysis failed")
	} else {
		report.Drawdown = dd
	}

	if len(daily) >= minGarchReturns {
		vol, err := DefaultGARCH.Forecast(daily, DefaultForecastPeriods)
		if err != nil {
			subLog.Warn().Err(err).Msg("volatility forecast failed")
		} else {
			report.Volatility = vol
		}
	}

	return report
}
