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
	"strconv"

	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/data"
)

const topContributions = 5

// Explanation lists what speaks for and against a fund
type Explanation struct {
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Rationale  string   `json:"investment_rationale"`
}

func num(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// Explain describes the fund's notable metrics
func Explain(f *data.Fund, score float64) *Explanation {
	e := &Explanation{
		Strengths:  []string{},
		Weaknesses: []string{},
	}

	switch {
	case f.Rating >= 4.5:
		e.Strengths = append(e.Strengths, fmt.Sprintf("Excellent rating (%s/5)", num(f.Rating)))
	case f.Rating < 3:
		e.Weaknesses = append(e.Weaknesses, fmt.Sprintf("Lower rating (%s/5)", num(f.Rating)))
	}

	switch {
	case f.Returns5Yr > 15:
		e.Strengths = append(e.Strengths, fmt.Sprintf("Strong 5-year returns (%s%%)", num(f.Returns5Yr)))
	case f.Returns5Yr < 5:
		e.Weaknesses = append(e.Weaknesses, fmt.Sprintf("Modest 5-year returns (%s%%)", num(f.Returns5Yr)))
	}

	switch {
	case f.RiskLevel <= 3:
		e.Strengths = append(e.Strengths, "Low-to-moderate risk profile")
	case f.RiskLevel >= 5:
		e.Weaknesses = append(e.Weaknesses, "Higher risk, suited to aggressive investors")
	}

	switch {
	case f.ExpenseRatio < 0.8:
		e.Strengths = append(e.Strengths, fmt.Sprintf("Low expense ratio (%s%%)", num(f.ExpenseRatio)))
	case f.ExpenseRatio > 1.5:
		e.Weaknesses = append(e.Weaknesses, fmt.Sprintf("Higher expense ratio (%s%%)", num(f.ExpenseRatio)))
	}

	if f.Sharpe > 2 {
		e.Strengths = append(e.Strengths, fmt.Sprintf("Superior risk-adjusted returns (Sharpe: %s)", num(f.Sharpe)))
	}

	if len(e.Strengths) == 0 {
		e.Strengths = append(e.Strengths, "Meets selection criteria")
	}

	e.Rationale = fmt.Sprintf("Ranked on expected returns (%.1f%%), risk-adjusted metrics and "+
		"historical performance with a score of %.2f.", f.Returns5Yr, score)
	return e
}

// Insights are short observations about the fund; probabilityOfLoss is a percentage from
// a Monte Carlo projection, or negative when there is none
func Insights(f *data.Fund, probabilityOfLoss float64) []string {
	insights := []string{}

	switch {
	case f.Returns1Yr > 15:
		insights = append(insights, fmt.Sprintf("Strong 1-year returns of %s%%", num(f.Returns1Yr)))
	case f.Returns1Yr > 10:
		insights = append(insights, fmt.Sprintf("Good 1-year returns of %s%%", num(f.Returns1Yr)))
	}

	switch {
	case f.Sharpe > 1.5:
		insights = append(insights, "Excellent risk-adjusted returns (Sharpe > 1.5)")
	case f.Sharpe > 1:
		insights = append(insights, "Good risk-adjusted returns (Sharpe > 1)")
	}

	if f.Alpha > 2 {
		insights = append(insights, fmt.Sprintf("Consistently outperforms benchmark (Alpha: %s)", num(f.Alpha)))
	}

	if probabilityOfLoss >= 0 {
		switch {
		case probabilityOfLoss < 20:
			insights = append(insights, fmt.Sprintf("Low probability of loss (%s%%)", num(probabilityOfLoss)))
		case probabilityOfLoss > 40:
			insights = append(insights, fmt.Sprintf("Higher probability of loss (%s%%), suited to aggressive investors", num(probabilityOfLoss)))
		}
	}

	if f.Rating >= 4 {
		insights = append(insights, fmt.Sprintf("Highly rated fund (%s/5 stars)", num(f.Rating)))
	}

	if f.FundAgeYr >= 10 {
		insights = append(insights, fmt.Sprintf("Well-established fund with %s years track record", num(f.FundAgeYr)))
	}

	return insights
}

// Contribution is the share of a recommendation attributed to one fund attribute
type Contribution struct {
	Factor string  `json:"factor"`
	Impact float64 `json:"impact"`
}

type Contributions struct {
	Top   []Contribution `json:"top_contributing_factors"`
	Total float64        `json:"total_impact_score"`
}

// FactorContributions attributes a fund's appeal to its rating, sharpe, 5 year return,
// expense ratio and risk level, largest first
func FactorContributions(f *data.Fund) *Contributions {
	all := []Contribution{
		{"Rating", math.Min(f.Rating/5, 1) * 25},
		{"Sharpe Ratio", math.Min(f.Sharpe/3, 1) * 20},
		{"Return (5yr)", common.Clamp(f.Returns5Yr, 0, 30) / 30 * 25},
		{"Expense Ratio", (1 - math.Min(f.ExpenseRatio/2.5, 1)) * 15},
		{"Risk Adjusted", (1 - float64(f.RiskLevel)/6) * 15},
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Impact > all[j].Impact })

	total := 0.0
	for idx := range all {
		total += all[idx].Impact
		all[idx].Impact = common.Round(all[idx].Impact, 2)
	}
	if len(all) > topContributions {
		all = all[:topContributions]
	}

	return &Contributions{
		Top:   all,
		Total: common.Round(total, 2),
	}
}
