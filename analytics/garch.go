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
	"math"

	"github.com/penny-vault/fundrec/common"
	"gonum.org/v1/gonum/stat"
)

// GARCH is a GARCH(1,1) variance model with fixed parameters
type GARCH struct {
	Omega float64 `json:"omega"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

var DefaultGARCH = GARCH{Omega: 0.000001, Alpha: 0.1, Beta: 0.85}

// VolatilityForecast values are annualized percentages
type VolatilityForecast struct {
	Periods     int       `json:"forecast_periods"`
	Forecast    []float64 `json:"forecast_volatility"`
	Current     float64   `json:"current_volatility"`
	LongRun     float64   `json:"long_run_volatility"`
	Persistence float64   `json:"volatility_persistence"`
}

func annualizedPct(variance float64) float64 {
	return common.Round(math.Sqrt(variance)*math.Sqrt(common.TradingDaysPerYear)*100, 2)
}

// Forecast filters the conditional variance over daily decimal returns, seeded with their
// population variance, then mean reverts toward omega / (1 - alpha - beta) for n periods
func (g GARCH) Forecast(returns []float64, n int) (*VolatilityForecast, error) {
	if len(returns) < 2 || n <= 0 {
		return nil, ErrNoData
	}
	persistence := g.Alpha + g.Beta
	if persistence >= 1 {
		return nil, ErrUnstableModel
	}

	_, variance := stat.PopMeanVariance(returns, nil)
	for t := 1; t < len(returns); t++ {
		variance = g.Omega + g.Alpha*returns[t-1]*returns[t-1] + g.Beta*variance
	}

	longRun := g.Omega / (1 - persistence)
	forecast := make([]float64, n)
	decay := 1.0
	for k := 0; k < n; k++ {
		forecast[k] = annualizedPct(longRun + decay*(variance-longRun))
		decay *= persistence
	}

	return &VolatilityForecast{
		Periods:     n,
		Forecast:    forecast,
		Current:     annualizedPct(variance),
		LongRun:     annualizedPct(longRun),
		Persistence: common.Round(persistence, 4),
	}, nil
}
