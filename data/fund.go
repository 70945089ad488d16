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

package data

import (
	"strings"
	"time"
)

// Fund holds the static attributes and trailing metrics of a mutual fund scheme. Returns,
// expense ratio and standard deviation are percentages.
type Fund struct {
	SchemeCode   string  `json:"scheme_code"`
	SchemeName   string  `json:"scheme_name"`
	AmcName      string  `json:"amc_name"`
	Category     string  `json:"category"`
	SubCategory  string  `json:"sub_category"`
	FundManager  string  `json:"fund_manager"`
	MinSip       float64 `json:"min_sip"`
	MinLumpsum   float64 `json:"min_lumpsum"`
	ExpenseRatio float64 `json:"expense_ratio"`
	FundSizeCr   float64 `json:"fund_size_cr"`
	FundAgeYr    float64 `json:"fund_age_yr"`
	RiskLevel    int     `json:"risk_level"`
	Alpha        float64 `json:"alpha"`
	Beta         float64 `json:"beta"`
	Sharpe       float64 `json:"sharpe"`
	Sortino      float64 `json:"sortino"`
	StdDev       float64 `json:"sd"`
	Rating       float64 `json:"rating"`
	Returns1Yr   float64 `json:"returns_1yr"`
	Returns3Yr   float64 `json:"returns_3yr"`
	Returns5Yr   float64 `json:"returns_5yr"`
}

// NavPoint is a single published net asset value
type NavPoint struct {
	Date time.Time `json:"date"`
	Nav  float64   `json:"nav"`
}

// MinInvestment returns the minimum amount for the requested investment type
func (f *Fund) MinInvestment(investmentType string) float64 {
	if strings.EqualFold(investmentType, "sip") {
		return f.MinSip
	}
	return f.MinLumpsum
}

// ReturnForHorizon picks the trailing return that best matches an investment horizon in years
func (f *Fund) ReturnForHorizon(years float64) float64 {
	switch {
	case years <= 1:
		return f.Returns1Yr
	case years <= 3:
		return f.Returns3Yr
	default:
		return f.Returns5Yr
	}
}

// MatchesQuery reports whether q appears in the scheme name, amc or scheme code (case-insensitive)
func (f *Fund) MatchesQuery(q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(f.SchemeName), q) ||
		strings.Contains(strings.ToLower(f.AmcName), q) ||
		f.SchemeCode == q
}
