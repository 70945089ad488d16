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
	"context"

	"github.com/penny-vault/fundrec/common"
)

// Scenario scales the annual return and volatility of a fund
type Scenario struct {
	Name             string  `json:"name"`
	ReturnMultiplier float64 `json:"return_multiplier"`
	VolMultiplier    float64 `json:"volatility_multiplier"`
}

// DefaultScenarios are applied when a stress test does not name its own
var DefaultScenarios = []Scenario{
	{Name: "market_crash", ReturnMultiplier: -2.0, VolMultiplier: 2.0},
	{Name: "recession", ReturnMultiplier: -0.5, VolMultiplier: 1.5},
	{Name: "normal", ReturnMultiplier: 1.0, VolMultiplier: 1.0},
	{Name: "bull_market", ReturnMultiplier: 1.5, VolMultiplier: 0.8},
}

// StressResult is the outcome of a single scenario
type StressResult struct {
	Scenario          string  `json:"scenario"`
	AnnualReturnPct   float64 `json:"annual_return_pct"`
	AnnualVolPct      float64 `json:"annual_volatility_pct"`
	ExpectedNav       float64 `json:"expected_nav"`
	ExpectedReturnPct float64 `json:"expected_return_pct"`
	WorstCaseNav      float64 `json:"worst_case_nav"`
	VaR95             float64 `json:"var_95"`
	ProbabilityOfLoss float64 `json:"probability_of_loss"`
}

// StressTest runs Predict once per scenario. Each scenario uses the same seed so results
// differ only by the adjusted parameters.
func StressTest(ctx context.Context, current, annualReturnPct, annualVolPct float64, days, n int, seed uint64, scenarios []Scenario) ([]*StressResult, error) {
	if len(scenarios) == 0 {
		scenarios = DefaultScenarios
	}

	results := make([]*StressResult, 0, len(scenarios))
	for _, sc := range scenarios {
		ret := annualReturnPct * sc.ReturnMultiplier
		vol := annualVolPct * sc.VolMultiplier
		forecast, err := Predict(ctx, current, ret, vol, days, n, seed)
		if err != nil {
			return nil, err
		}
		results = append(results, &StressResult{
			Scenario:          sc.Name,
			AnnualReturnPct:   common.Round(ret, 2),
			AnnualVolPct:      common.Round(vol, 2),
			ExpectedNav:       forecast.Mean,
			ExpectedReturnPct: forecast.ExpectedReturnPct,
			WorstCaseNav:      forecast.Percentiles["p5"],
			VaR95:             forecast.VaR95,
			ProbabilityOfLoss: forecast.ProbabilityOfLoss,
		})
	}

	return results, nil
}
