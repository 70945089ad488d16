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

// Package blackscholes prices European options on a fund NAV and uses the put price
// as the cost of protecting an investment against loss.
package blackscholes

import (
	"errors"
	"math"

	"github.com/penny-vault/fundrec/common"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultRiskFreeRate = 0.06
	DefaultHorizon      = 1.0
)

var (
	ErrInvalidInput = errors.New("spot, strike, volatility and time must be positive")
)

// Option describes a European option; rates and volatility are annual decimals and
// Time is in years
type Option struct {
	Spot       float64 `json:"spot" validate:"gt=0"`
	Strike     float64 `json:"strike" validate:"gt=0"`
	Rate       float64 `json:"rate"`
	Volatility float64 `json:"volatility" validate:"gt=0"`
	Time       float64 `json:"time" validate:"gt=0"`
}

func (o Option) validate() error {
	if o.Spot <= 0 || o.Strike <= 0 || o.Volatility <= 0 || o.Time <= 0 {
		return ErrInvalidInput
	}
	return nil
}

// D1D2 returns the standard d1 and d2 terms
func (o Option) D1D2() (d1, d2 float64, err error) {
	if err = o.validate(); err != nil {
		return 0, 0, err
	}
	volSqrtT := o.Volatility * math.Sqrt(o.Time)
	d1 = (math.Log(o.Spot/o.Strike) + (o.Rate+0.5*o.Volatility*o.Volatility)*o.Time) / volSqrtT
	d2 = d1 - volSqrtT
	return d1, d2, nil
}

func (o Option) Call() (float64, error) {
	d1, d2, err := o.D1D2()
	if err != nil {
		return 0, err
	}
	n := distuv.UnitNormal
	return o.Spot*n.CDF(d1) - o.Strike*math.Exp(-o.Rate*o.Time)*n.CDF(d2), nil
}

func (o Option) Put() (float64, error) {
	d1, d2, err := o.D1D2()
	if err != nil {
		return 0, err
	}
	n := distuv.UnitNormal
	return o.Strike*math.Exp(-o.Rate*o.Time)*n.CDF(-d2) - o.Spot*n.CDF(-d1), nil
}

type CallPut struct {
	Call float64 `json:"call"`
	Put  float64 `json:"put"`
}

// Greeks hold sensitivities of the option price. Theta is per calendar day; vega and rho
// are per one percentage point.
type Greeks struct {
	Delta CallPut `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta CallPut `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   CallPut `json:"rho"`
}

func (o Option) Greeks() (*Greeks, error) {
	d1, d2, err := o.D1D2()
	if err != nil {
		return nil, err
	}

	n := distuv.UnitNormal
	sqrtT := math.Sqrt(o.Time)
	pdf := n.Prob(d1)
	discount := o.Strike * math.Exp(-o.Rate*o.Time)
	decay := -(o.Spot * pdf * o.Volatility) / (2 * sqrtT)

	deltaCall := n.CDF(d1)
	thetaCall := decay - o.Rate*discount*n.CDF(d2)
	thetaPut := decay + o.Rate*discount*n.CDF(-d2)

	return &Greeks{
		Delta: CallPut{
			Call: common.Round(deltaCall, 4),
			Put:  common.Round(deltaCall-1, 4),
		},
		Gamma: common.Round(pdf/(o.Spot*o.Volatility*sqrtT), 6),
		Theta: CallPut{
			Call: common.Round(thetaCall/365, 4),
			Put:  common.Round(thetaPut/365, 4),
		},
		Vega: common.Round(o.Spot*sqrtT*pdf/100, 4),
		Rho: CallPut{
			Call: common.Round(o.Time*discount*n.CDF(d2)/100, 4),
			Put:  common.Round(-o.Time*discount*n.CDF(-d2)/100, 4),
		},
	}, nil
}

// RiskAnalysis compares an expected nav against a risk free investment. Percentages are
// on the 0-100 scale.
type RiskAnalysis struct {
	ExpectedReturn    float64 `json:"expected_return"`
	RiskFreeRate      float64 `json:"risk_free_rate"`
	RiskPremium       float64 `json:"risk_premium"`
	SharpeRatio       float64 `json:"sharpe_ratio"`
	ProbBeatRiskFree  float64 `json:"prob_beat_risk_free"`
	ProtectionCost    float64 `json:"protection_cost"`
	ProtectionCostPct float64 `json:"protection_cost_pct"`
}

// RiskPremium values the upside of holding a fund from current to expected nav over
// horizon years with the given annual volatility (decimal). Protection cost is the
// price of an at-the-money put.
func RiskPremium(current, expected, volatility, riskFree, horizon float64) (*RiskAnalysis, error) {
	if current <= 0 || volatility <= 0 || horizon <= 0 {
		return nil, ErrInvalidInput
	}

	expectedReturn := expected/current - 1
	premium := expectedReturn - riskFree
	d := premium / (volatility * math.Sqrt(horizon))

	put, err := Option{
		Spot:       current,
		Strike:     current,
		Rate:       riskFree,
		Volatility: volatility,
		Time:       horizon,
	}.Put()
	if err != nil {
		return nil, err
	}

	return &RiskAnalysis{
		ExpectedReturn:    common.Round(expectedReturn*100, 2),
		RiskFreeRate:      common.Round(riskFree*100, 2),
		RiskPremium:       common.Round(premium*100, 2),
		SharpeRatio:       common.Round(premium/volatility, 3),
		ProbBeatRiskFree:  common.Round(distuv.UnitNormal.CDF(d)*100, 2),
		ProtectionCost:    common.Round(put, 2),
		ProtectionCostPct: common.Round(put/current*100, 2),
	}, nil
}
