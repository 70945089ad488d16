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

// Package recommend filters the fund catalog against an investor's constraints, scores the
// survivors and explains the ranking
package recommend

import (
	"errors"
	"strings"

	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/risk"
	"github.com/spf13/viper"
)

const (
	DefaultMinRating    = 3.0
	DefaultTopK         = 5
	MaxTopK             = 50
	DefaultHorizonYears = 5.0
	DefaultAmount       = 100000.0

	InvestmentSIP     = "sip"
	InvestmentLumpsum = "lumpsum"
)

var (
	ErrNoFunds       = errors.New("no matching funds")
	ErrUnknownScorer = errors.New("unknown scorer")
)

func init() {
	viper.SetDefault("recommend.scorer", CompositeName)
	viper.SetDefault("recommend.min_rating", DefaultMinRating)
	viper.SetDefault("recommend.top_k", DefaultTopK)
}

// Constraints describe what an investor is able and willing to buy. Zero values take
// defaults, see SetDefaults.
type Constraints struct {
	Amount              float64    `json:"amount" validate:"gte=0"`
	InvestmentType      string     `json:"investment_type" validate:"omitempty,oneof=sip lumpsum"`
	TenureMonths        int        `json:"tenure_months" validate:"gte=0"`
	Categories          []string   `json:"categories"`
	Exclude             []string   `json:"exclude"`
	MinRating           float64    `json:"min_rating" validate:"gte=0,lte=5"`
	RiskLevel           risk.Level `json:"risk_level" validate:"gte=0,lte=5"`
	VolatilityTolerance float64    `json:"volatility_tolerance" validate:"gte=0"`
	HorizonYears        float64    `json:"horizon_years" validate:"gte=0,lte=50"`
	TopK                int        `json:"top_k" validate:"gte=0,lte=50"`
}

// SetDefaults fills unset fields. The risk level defaults to Moderate and the volatility
// tolerance to the tolerance of the risk level.
func (c *Constraints) SetDefaults() {
	if c.Amount == 0 {
		c.Amount = DefaultAmount
	}
	c.InvestmentType = strings.ToLower(c.InvestmentType)
	if c.InvestmentType == "" {
		c.InvestmentType = InvestmentSIP
	}
	if c.MinRating == 0 {
		c.MinRating = viper.GetFloat64("recommend.min_rating")
	}
	if !c.RiskLevel.Valid() {
		c.RiskLevel = risk.Moderate
	}
	if c.VolatilityTolerance == 0 {
		c.VolatilityTolerance = c.RiskLevel.VolatilityTolerance()
	}
	if c.HorizonYears == 0 {
		c.HorizonYears = DefaultHorizonYears
	}
	if c.TopK <= 0 {
		c.TopK = viper.GetInt("recommend.top_k")
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.TopK > MaxTopK {
		c.TopK = MaxTopK
	}
}

// FromProfile copies the risk level and volatility tolerance of an assessed profile
func (c *Constraints) FromProfile(p *risk.Profile) {
	c.RiskLevel = p.Level
	c.VolatilityTolerance = p.VolatilityTolerance
}

func (c *Constraints) affordable(f *data.Fund) bool {
	return f.MinInvestment(c.InvestmentType) <= c.Amount
}

func (c *Constraints) withinTenure(f *data.Fund) bool {
	if c.TenureMonths <= 0 {
		return true
	}
	return f.RiskLevel <= risk.MaxRiskForTenure(c.TenureMonths)
}

func (c *Constraints) inCategory(f *data.Fund) bool {
	if len(c.Categories) == 0 {
		return true
	}
	for _, cat := range c.Categories {
		if strings.EqualFold(cat, f.Category) {
			return true
		}
	}
	return false
}

func (c *Constraints) excluded(f *data.Fund) bool {
	for _, code := range c.Exclude {
		if code == f.SchemeCode {
			return true
		}
	}
	return false
}
