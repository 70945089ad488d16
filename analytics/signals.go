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
	"github.com/penny-vault/fundrec/data"
)

const DefaultMarketReturn = 10.0

type Momentum struct {
	TimeSeries     float64 `json:"time_series_momentum"`
	CrossSectional float64 `json:"cross_sectional_momentum"`
	Combined       float64 `json:"combined_score"`
	Signal         string  `json:"signal"`
	TrendStrength  string  `json:"trend_strength"`
}

func positive(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// MomentumScore blends trend following (sign of each trailing return) with the weighted
// magnitude of the returns. Inputs are percentages over 1, 3, 6 and 12 months.
func MomentumScore(r1m, r3m, r6m, r12m float64) *Momentum {
	ts := 0.4*positive(r1m) + 0.3*positive(r3m) + 0.2*positive(r6m) + 0.1*positive(r12m)
	xs := (0.1*r1m + 0.2*r3m + 0.3*r6m + 0.4*r12m) / 100
	combined := (ts*0.4 + xs*0.6) * 100

	var signal string
	switch {
	case combined > 60:
		signal = "STRONG_BUY"
	case combined > 40:
		signal = "BUY"
	case combined > 20:
		signal = "HOLD"
	case combined > 0:
		signal = "SELL"
	default:
		signal = "STRONG_SELL"
	}

	strength := "Weak"
	switch {
	case math.Abs(combined) > 50:
		strength = "Strong"
	case math.Abs(combined) > 25:
		strength = "Moderate"
	}

	return &Momentum{
		TimeSeries:     common.Round(ts*100, 2),
		CrossSectional: common.Round(xs*100, 2),
		Combined:       common.Round(combined, 2),
		Signal:         signal,
		TrendStrength:  strength,
	}
}

type FactorExposure struct {
	Market        float64 `json:"market"`
	Size          float64 `json:"size"`
	Value         float64 `json:"value"`
	Quality       float64 `json:"quality"`
	Momentum      float64 `json:"momentum"`
	LowVolatility float64 `json:"low_volatility"`
}

type Factors struct {
	Exposure       FactorExposure `json:"factors"`
	CompositeScore float64        `json:"composite_score"`
	DominantFactor string         `json:"dominant_factor"`
}

// FactorModel scores a fund on style factor proxies derived from its published metrics
func FactorModel(f *data.Fund) *Factors {
	market := f.Beta
	size := 1 - math.Min(1, f.FundSizeCr/10000)
	value := math.Max(0, 1-f.ExpenseRatio/2.5)
	quality := common.Clamp(f.Sharpe/2, 0, 1)
	momentum := common.Clamp(f.Returns1Yr/50, 0, 1)
	lowVol := math.Max(0, 1-f.StdDev/30)

	composite := (market*0.2 + quality*0.25 + momentum*0.2 + lowVol*0.15 + size*0.1 + value*0.1) * 100

	ordered := []common.Pair{
		{Key: "market", Value: market},
		{Key: "size", Value: size},
		{Key: "value", Value: value},
		{Key: "quality", Value: quality},
		{Key: "momentum", Value: momentum},
		{Key: "low_volatility", Value: lowVol},
	}
	dominant := ordered[0]
	for _, p := range ordered[1:] {
		if p.Value > dominant.Value {
			dominant = p
		}
	}

	return &Factors{
		Exposure: FactorExposure{
			Market:        common.Round(market, 3),
			Size:          common.Round(size, 3),
			Value:         common.Round(value, 3),
			Quality:       common.Round(quality, 3),
			Momentum:      common.Round(momentum, 3),
			LowVolatility: common.Round(lowVol, 3),
		},
		CompositeScore: common.Round(composite, 2),
		DominantFactor: dominant.Key,
	}
}

type Sentiment struct {
	FearGreedIndex   float64 `json:"fear_greed_index"`
	Sentiment        string  `json:"sentiment"`
	VolatilityRegime string  `json:"volatility_regime"`
	Trend            string  `json:"trend"`
	RelativeStrength float64 `json:"relative_strength"`
	MarketCondition  string  `json:"market_condition"`
	Action           string  `json:"recommendation"`
}

// MarketSentiment derives a fear and greed reading from a fund's one year return (percent)
// relative to the market and its volatility (percent)
func MarketSentiment(returns1Yr, volatility, marketReturn float64) *Sentiment {
	relative := returns1Yr - marketReturn
	fearGreed := common.Clamp(50+relative*2-(volatility-15), 0, 100)

	s := &Sentiment{
		FearGreedIndex:   common.Round(fearGreed, 1),
		RelativeStrength: common.Round(relative, 2),
		MarketCondition:  "BEARISH",
		Action:           "REDUCE",
	}

	switch {
	case volatility < 10:
		s.VolatilityRegime = "LOW"
	case volatility < 20:
		s.VolatilityRegime = "MODERATE"
	case volatility < 30:
		s.VolatilityRegime = "HIGH"
	default:
		s.VolatilityRegime = "EXTREME"
	}

	switch {
	case fearGreed > 75:
		s.Sentiment = "EXTREME_GREED"
	case fearGreed > 55:
		s.Sentiment = "GREED"
	case fearGreed > 45:
		s.Sentiment = "NEUTRAL"
	case fearGreed > 25:
		s.Sentiment = "FEAR"
	default:
		s.Sentiment = "EXTREME_FEAR"
	}

	switch {
	case returns1Yr > 20:
		s.Trend = "STRONG_UPTREND"
	case returns1Yr > 5:
		s.Trend = "UPTREND"
	case returns1Yr > -5:
		s.Trend = "SIDEWAYS"
	case returns1Yr > -20:
		s.Trend = "DOWNTREND"
	default:
		s.Trend = "STRONG_DOWNTREND"
	}

	if fearGreed > 50 {
		s.MarketCondition = "BULLISH"
	}

	switch {
	case fearGreed < 40:
		s.Action = "INVEST"
	case fearGreed < 60:
		s.Action = "HOLD"
	}

	return s
}
