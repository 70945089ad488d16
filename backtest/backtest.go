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

// Package backtest replays Black-Litterman recommendations over history and measures the
// realized performance of the recommended portfolios
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/penny-vault/fundrec/allocation"
	"github.com/penny-vault/fundrec/analytics"
	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/dataframe"
	"github.com/penny-vault/fundrec/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultLookback  = 252
	DefaultRebalance = 21
	DefaultTopK      = 5
	DefaultMinObs    = 10
)

var (
	ErrNotEnoughData = errors.New("not enough data for requested lookback and rebalance")
	ErrNoPeriods     = errors.New("no portfolio periods could be constructed")
)

// Params configure a backtest. Lookback is counted in trading dates when choosing the first
// rebalance date and in calendar days when selecting the history a recommendation may see.
// Rebalance is counted in trading dates between rebalances and in calendar days for the
// holding window.
type Params struct {
	Lookback  int `json:"lookback_days" validate:"gte=0,lte=5000"`
	Rebalance int `json:"rebalance_freq_days" validate:"gte=0,lte=1000"`
	TopK      int `json:"top_k" validate:"gte=0,lte=50"`
	MinObs    int `json:"min_obs" validate:"gte=0"`
}

func (p *Params) setDefaults() {
	if p.Lookback == 0 {
		p.Lookback = DefaultLookback
	}
	if p.Rebalance == 0 {
		p.Rebalance = DefaultRebalance
	}
	if p.TopK == 0 {
		p.TopK = DefaultTopK
	}
	if p.MinObs == 0 {
		p.MinObs = DefaultMinObs
	}
}

// Period is one holding window of the backtest
type Period struct {
	Rebalance   time.Time               `json:"rebalance_date"`
	Start       time.Time               `json:"start"`
	End         time.Time               `json:"end"`
	Allocations []allocation.Allocation `json:"allocations"`
	Return      float64                 `json:"return"`
}

type Result struct {
	Params  Params            `json:"params"`
	Nav     []analytics.Point `json:"portfolio_nav"`
	Metrics analytics.Metrics `json:"metrics"`
	Periods []Period          `json:"periods"`
}

// Run loads the full history of every scheme in src and backtests it
func Run(ctx context.Context, src data.NavSource, p Params) (*Result, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "backtest.Run")
	defer span.End()

	schemeCodes, err := src.SchemeCodes(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not list scheme codes")
		return nil, err
	}

	histories, err := data.NavHistories(ctx, src, schemeCodes, data.FarPast, data.FarFuture, viper.GetInt("mfapi.concurrency"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not load nav histories")
		return nil, err
	}

	res, err := RunHistories(ctx, allocation.NewRecommender(src), histories, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backtest failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("Periods", len(res.Periods)))
	return res, nil
}

// RunHistories backtests preloaded nav histories. At every rebalance date the recommender
// only sees history from the lookback window ending on that date. Steps that cannot
// produce a portfolio are logged and skipped.
func RunHistories(ctx context.Context, rec *allocation.Recommender, histories dataframe.Map, p Params) (*Result, error) {
	p.setDefaults()

	if len(histories) == 0 {
		return nil, ErrNotEnoughData
	}

	dates := histories.DataFrame().Dates
	if len(dates) < p.Lookback+p.Rebalance {
		return nil, ErrNotEnoughData
	}

	res := &Result{
		Params:  p,
		Nav:     []analytics.Point{},
		Periods: []Period{},
	}

	for idx := p.Lookback; idx < len(dates); idx += p.Rebalance {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t := dates[idx]
		subLog := log.With().Time("RebalanceDate", t).Logger()

		period, nav, err := step(ctx, rec, histories, t, p)
		if err != nil {
			subLog.Warn().Err(err).Msg("backtest step failed")
			continue
		}

		res.Nav = chain(res.Nav, nav, t)
		res.Periods = append(res.Periods, *period)
	}

	if len(res.Periods) == 0 {
		return nil, ErrNoPeriods
	}

	perf, err := analytics.SeriesPerformance(res.Nav)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPeriods, err)
	}
	res.Metrics = perf.Metrics

	return res, nil
}

func step(ctx context.Context, rec *allocation.Recommender, histories dataframe.Map, t time.Time, p Params) (*Period, []analytics.Point, error) {
	past := histories.Trim(t.AddDate(0, 0, -p.Lookback), t)
	bl, err := rec.FromHistories(ctx, past, allocation.BLRequest{
		Amount: 1,
		TopK:   p.TopK,
		MinObs: p.MinObs,
		AsOf:   t,
	})
	if err != nil {
		return nil, nil, err
	}

	end := t.AddDate(0, 0, p.Rebalance)
	future := make(dataframe.Map, len(bl.Allocations))
	weights := make(map[string]float64, len(bl.Allocations))
	held := make([]allocation.Allocation, 0, len(bl.Allocations))
	for _, alloc := range bl.Allocations {
		nav, ok := histories[alloc.SchemeCode]
		if !ok {
			continue
		}
		window := nav.Trim(t, end)
		if window.Len() < 2 {
			continue
		}
		future[alloc.SchemeCode] = window
		weights[alloc.SchemeCode] = alloc.Weight
		held = append(held, alloc)
	}

	if len(future) == 0 {
		return nil, nil, ErrNotEnoughData
	}

	perf, err := analytics.PortfolioPerformance(future, weights)
	if err != nil {
		return nil, nil, err
	}

	return &Period{
		Rebalance:   t,
		Start:       perf.Nav[0].Date,
		End:         perf.Nav[len(perf.Nav)-1].Date,
		Allocations: held,
		Return:      perf.Metrics.CumulativeReturn,
	}, perf.Nav, nil
}

// chain appends a period's nav, which starts from 1 at base, to the combined series. The
// period is scaled by the combined value on or before base and dates already present in
// the combined series keep their first value.
func chain(combined, period []analytics.Point, base time.Time) []analytics.Point {
	scale := 1.0
	for idx := len(combined) - 1; idx >= 0; idx-- {
		if !combined[idx].Date.After(base) {
			scale = combined[idx].Value
			break
		}
	}

	var last time.Time
	if len(combined) > 0 {
		last = combined[len(combined)-1].Date
	}

	for _, pt := range period {
		if len(combined) > 0 && !pt.Date.After(last) {
			continue
		}
		combined = append(combined, analytics.Point{Date: pt.Date, Value: pt.Value * scale})
	}
	return combined
}
