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
	"math"
	"sort"

	"github.com/penny-vault/fundrec/common"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultPredictPaths = 10000
	DefaultPredictDays  = common.TradingDaysPerYear
	samplePathCount     = 10
)

// Forecast summarizes the terminal distribution of a simulation driven by annual parameters
type Forecast struct {
	Current           float64              `json:"current_nav"`
	Days              int                  `json:"days"`
	Paths             int                  `json:"simulations"`
	Mean              float64              `json:"mean"`
	Median            float64              `json:"median"`
	StdDev            float64              `json:"std"`
	ExpectedReturnPct float64              `json:"expected_return_pct"`
	Percentiles       map[string]float64   `json:"percentiles"`
	Confidence        map[string][]float64 `json:"confidence_intervals"`
	VaR95             float64              `json:"var_95"`
	VaR99             float64              `json:"var_99"`
	CVaR95            float64              `json:"cvar_95"`
	ProbabilityOfLoss float64              `json:"probability_of_loss"`
	SamplePaths       [][]float64          `json:"sample_paths"`
}

// Predict simulates nav forward for the given number of trading days. Annual return and
// volatility are percentages; they are scaled by dt = 1/252. Sample paths are drawn from
// the simulation with the same seed and hold one value per simulated day.
func Predict(ctx context.Context, current, annualReturnPct, annualVolPct float64, days, n int, seed uint64) (*Forecast, error) {
	if current <= 0 || annualVolPct < 0 || days <= 0 || n <= 0 {
		return nil, ErrInvalidParameters
	}

	p := Params{
		S0:    current,
		Mu:    annualReturnPct / 100,
		Sigma: annualVolPct / 100,
		Dt:    1.0 / common.TradingDaysPerYear,
	}

	sim, err := Run(ctx, p, n, days, seed)
	if err != nil {
		return nil, err
	}

	return summarize(sim, days, seed), nil
}

func summarize(sim *Simulation, days int, seed uint64) *Forecast {
	final := sim.Final()
	sort.Float64s(final)

	current := sim.S0
	mean, std := stat.PopMeanStdDev(final, nil)

	pct := func(p float64) float64 {
		return percentileSorted(final, p)
	}

	p1, p5, p25, p50, p75, p95 := pct(1), pct(5), pct(25), pct(50), pct(75), pct(95)

	tailSum := 0.0
	tailCnt := 0
	lossCnt := 0
	for _, v := range final {
		if v <= p5 {
			tailSum += v
			tailCnt++
		}
		if v < current {
			lossCnt++
		}
	}
	cvar := 0.0
	if tailCnt > 0 {
		cvar = current - tailSum/float64(tailCnt)
	}

	drawn := sim.Sample(samplePathCount, seed)
	samples := make([][]float64, len(drawn))
	for idx, src := range drawn {
		path := make([]float64, len(src))
		for step, v := range src {
			path[step] = common.Round(v, 4)
		}
		samples[idx] = path
	}

	return &Forecast{
		Current:           current,
		Days:              days,
		Paths:             len(final),
		Mean:              common.Round(mean, 4),
		Median:            common.Round(p50, 4),
		StdDev:            common.Round(std, 4),
		ExpectedReturnPct: common.Round((mean/current-1)*100, 2),
		Percentiles: map[string]float64{
			"p5":  common.Round(p5, 4),
			"p25": common.Round(p25, 4),
			"p50": common.Round(p50, 4),
			"p75": common.Round(p75, 4),
			"p95": common.Round(p95, 4),
		},
		Confidence: map[string][]float64{
			"90": {common.Round(p5, 4), common.Round(p95, 4)},
			"50": {common.Round(p25, 4), common.Round(p75, 4)},
		},
		VaR95:             common.Round(current-p5, 4),
		VaR99:             common.Round(current-p1, 4),
		CVaR95:            common.Round(cvar, 4),
		ProbabilityOfLoss: common.Round(100*float64(lossCnt)/float64(len(final)), 2),
		SamplePaths:       samples,
	}
}

// LossProbability returns the percentage of terminal values below the starting value
func (s *Simulation) LossProbability() float64 {
	if len(s.Paths) == 0 {
		return math.NaN()
	}
	cnt := 0
	for _, v := range s.Final() {
		if v < s.S0 {
			cnt++
		}
	}
	return 100 * float64(cnt) / float64(len(s.Paths))
}
