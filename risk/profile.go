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

// Package risk scores an investor's capacity and willingness to take risk
package risk

import (
	"errors"
	"math"
	"sort"

	"github.com/penny-vault/fundrec/common"
)

var (
	ErrInvalidInput = errors.New("invalid risk profile input")
)

// Level is an investor risk level from 1 (conservative) to 5 (aggressive)
type Level int

const (
	Conservative Level = iota + 1
	ModeratelyConservative
	Moderate
	ModeratelyAggressive
	Aggressive
)

// Allocation is a recommended equity range in percent
type Allocation struct {
	EquityMin float64 `json:"equity_min"`
	EquityMax float64 `json:"equity_max"`
}

// Investor describes the answers to the risk questionnaire
type Investor struct {
	Age           int     `json:"age" validate:"required,min=1,max=120"`
	IncomeLakhs   float64 `json:"income" validate:"min=0"`
	HorizonYears  int     `json:"investment_horizon" validate:"min=0,max=100"`
	LossTolerance int     `json:"loss_tolerance" validate:"required,min=1,max=5"`
	Experience    int     `json:"experience" validate:"required,min=1,max=5"`
}

// Profile is the outcome of scoring an investor
type Profile struct {
	Score               float64    `json:"risk_score"`
	Level               Level      `json:"risk_level"`
	Name                string     `json:"profile"`
	Allocation          Allocation `json:"allocation"`
	VolatilityTolerance float64    `json:"volatility_tolerance"`
	Components          Components `json:"components"`
}

// Components are the individual questionnaire scores on a 1..5 scale
type Components struct {
	Age           float64 `json:"age"`
	Income        float64 `json:"income"`
	Horizon       float64 `json:"horizon"`
	LossTolerance float64 `json:"loss_tolerance"`
	Experience    float64 `json:"experience"`
}

type levelInfo struct {
	name       string
	allocation Allocation
	volatility float64
}

var levels = map[Level]levelInfo{
	Conservative:           {"Conservative", Allocation{0, 30}, 10},
	ModeratelyConservative: {"Moderately Conservative", Allocation{20, 50}, 15},
	Moderate:               {"Moderate", Allocation{40, 60}, 20},
	ModeratelyAggressive:   {"Moderately Aggressive", Allocation{50, 80}, 25},
	Aggressive:             {"Aggressive", Allocation{70, 100}, 30},
}

// String returns the profile name of the level
func (l Level) String() string {
	if info, ok := levels[l]; ok {
		return info.name
	}
	return "Unknown"
}

// VolatilityTolerance returns the maximum annual standard deviation (%) the level is comfortable with
func (l Level) VolatilityTolerance() float64 {
	if info, ok := levels[l]; ok {
		return info.volatility
	}
	return levels[Moderate].volatility
}

// Valid reports whether l is in 1..5
func (l Level) Valid() bool {
	return l >= Conservative && l <= Aggressive
}

// Assess scores the investor and maps the result onto a profile
func Assess(inv Investor) (*Profile, error) {
	if inv.Age <= 0 || inv.IncomeLakhs < 0 || inv.HorizonYears < 0 ||
		inv.LossTolerance < 1 || inv.LossTolerance > 5 ||
		inv.Experience < 1 || inv.Experience > 5 {
		return nil, ErrInvalidInput
	}

	c := Components{
		Age:           common.Clamp(float64(floorDiv(60-inv.Age, 8)+1), 1, 5),
		Income:        math.Min(5, math.Floor(inv.IncomeLakhs/5)+1),
		Horizon:       math.Min(5, float64(inv.HorizonYears/3+1)),
		LossTolerance: float64(inv.LossTolerance),
		Experience:    float64(inv.Experience),
	}

	score := 0.2*c.Age + 0.15*c.Income + 0.25*c.Horizon + 0.25*c.LossTolerance + 0.15*c.Experience
	level := Level(common.Clamp(math.RoundToEven(score), 1, 5))
	info := levels[level]

	return &Profile{
		Score:               common.Round(score, 2),
		Level:               level,
		Name:                info.name,
		Allocation:          info.allocation,
		VolatilityTolerance: info.volatility,
		Components:          c,
	}, nil
}

// floorDiv rounds toward negative infinity
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// tenureRisk maps an investment tenure in months to the maximum fund risk level (1..6)
var tenureRisk = map[int]int{
	6:   2,
	12:  3,
	36:  4,
	60:  5,
	120: 6,
}

// MaxRiskForTenure returns the highest fund risk level appropriate for a tenure. Tenures
// between thresholds take the level of the greatest threshold not above them; tenures
// shorter than six months are treated as six months.
func MaxRiskForTenure(months int) int {
	thresholds := make([]int, 0, len(tenureRisk))
	for k := range tenureRisk {
		thresholds = append(thresholds, k)
	}
	sort.Ints(thresholds)

	res := tenureRisk[thresholds[0]]
	for _, t := range thresholds {
		if months >= t {
			res = tenureRisk[t]
		}
	}
	return res
}
