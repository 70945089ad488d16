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

package recommend

import (
	"fmt"
	"math"
	"sort"

	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/data"
)

const (
	CompositeName = "composite"
	PointsName    = "points"
)

// Scorer assigns a fund a score where higher is better
type Scorer interface {
	Name() string
	Score(f *data.Fund, c *Constraints) float64
}

// Composite weights rating, expected return, sharpe, expense and risk on a 0..100 scale.
// The expected return is the fund's 5 year return.
type Composite struct{}

func (Composite) Name() string { return CompositeName }

func (Composite) Score(f *data.Fund, c *Constraints) float64 {
	rating := f.Rating / 5 * 100
	ret := common.Clamp(f.Returns5Yr, 0, 50) / 50 * 100
	sharpe := math.Min(f.Sharpe/3, 1) * 100
	expense := (1 - math.Min(f.ExpenseRatio/2.5, 1)) * 100
	riskScore := (1 - float64(f.RiskLevel)/6) * 100

	return rating*0.25 + ret*0.35 + sharpe*0.20 + expense*0.10 + riskScore*0.10
}

// Points awards points for quality metrics and subtracts penalties for a mismatch with the
// investor's risk level and volatility tolerance. Scores never go below 0.
type Points struct{}

func (Points) Name() string { return PointsName }

func (Points) Score(f *data.Fund, c *Constraints) float64 {
	score := f.Rating * 5
	score += math.Min(25, f.Sharpe*10)
	score += math.Min(15, f.Sortino*5)
	score += math.Min(15, math.Max(0, f.Alpha*2))
	score += math.Min(20, math.Max(0, f.ReturnForHorizon(c.HorizonYears)*0.5))

	score -= math.Abs(float64(f.RiskLevel)-float64(c.RiskLevel)) * 5
	if f.StdDev > c.VolatilityTolerance {
		score -= (f.StdDev - c.VolatilityTolerance) * 0.5
	}
	score -= f.ExpenseRatio * 3

	switch {
	case f.FundSizeCr > 1000:
		score += 5
	case f.FundSizeCr > 500:
		score += 3
	}
	if f.FundAgeYr >= 5 {
		score += 3
	}

	return math.Max(0, score)
}

// ScorerByName returns the scorer registered under name
func ScorerByName(name string) (Scorer, error) {
	switch name {
	case "", CompositeName:
		return Composite{}, nil
	case PointsName:
		return Points{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownScorer, name)
	}
}

// Scored is a fund with its score and 1-based rank
type Scored struct {
	Fund  *data.Fund `json:"fund"`
	Score float64    `json:"score"`
	Rank  int        `json:"rank"`
}

// Rank scores every fund and returns at most k, best first. Equal scores are ordered by
// scheme code.
func Rank(funds []*data.Fund, scorer Scorer, c *Constraints, k int) []Scored {
	ranked := make([]Scored, len(funds))
	for idx, f := range funds {
		ranked[idx] = Scored{Fund: f, Score: scorer.Score(f, c)}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score == ranked[j].Score {
			return ranked[i].Fund.SchemeCode < ranked[j].Fund.SchemeCode
		}
		return ranked[i].Score > ranked[j].Score
	})

	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	for idx := range ranked {
		ranked[idx].Rank = idx + 1
	}
	return ranked
}
