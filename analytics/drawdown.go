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
)

// DrawdownStats are expressed in percent. RecoveryDays is nil when the series never
// regains the peak preceding its deepest drawdown.
type DrawdownStats struct {
	MaxDrawdown     float64 `json:"max_drawdown"`
	CurrentDrawdown float64 `json:"current_drawdown"`
	RecoveryDays    *int    `json:"recovery_days"`
	CalmarRatio     float64 `json:"calmar_ratio"`
	PainIndex       float64 `json:"pain_index"`
	DrawdownPeriods int     `json:"drawdown_periods"`
	AverageDrawdown float64 `json:"average_drawdown"`
}

// Drawdown compounds percentage returns from initial and measures the declines from the
// running maximum
func Drawdown(returnsPct []float64, initial float64) (*DrawdownStats, error) {
	if initial <= 0 {
		return nil, ErrNoData
	}

	values := make([]float64, 0, len(returnsPct)+1)
	values = append(values, initial)
	for _, r := range returnsPct {
		values = append(values, values[len(values)-1]*(1+r/100))
	}

	drawdown := make([]float64, len(values))
	peak := math.Inf(-1)
	maxIdx := 0
	for idx, v := range values {
		peak = math.Max(peak, v)
		drawdown[idx] = (v - peak) / peak * 100
		if drawdown[idx] < drawdown[maxIdx] {
			maxIdx = idx
		}
	}
	maxDD := drawdown[maxIdx]

	peakIdx := 0
	for idx := 0; idx <= maxIdx; idx++ {
		if values[idx] > values[peakIdx] {
			peakIdx = idx
		}
	}

	stats := &DrawdownStats{
		MaxDrawdown:     common.Round(maxDD, 2),
		CurrentDrawdown: common.Round(drawdown[len(drawdown)-1], 2),
	}

	if maxIdx < len(values)-1 {
		for idx := maxIdx; idx < len(values); idx++ {
			if values[idx] >= values[peakIdx] {
				if days := idx - maxIdx; days > 0 {
					stats.RecoveryDays = &days
				}
				break
			}
		}
	}

	totalReturn := (values[len(values)-1]/values[0] - 1) * 100
	if maxDD != 0 {
		stats.CalmarRatio = common.Round(math.Abs(totalReturn/maxDD), 3)
	}

	pain := 0.0
	negSum := 0.0
	negCnt := 0
	for _, dd := range drawdown {
		pain += math.Abs(dd)
		if dd < -5 {
			stats.DrawdownPeriods++
		}
		if dd < 0 {
			negSum += dd
			negCnt++
		}
	}
	stats.PainIndex = common.Round(pain/float64(len(drawdown)), 2)
	if negCnt > 0 {
		stats.AverageDrawdown = common.Round(negSum/float64(negCnt), 2)
	}

	return stats, nil
}
