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

package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/fundrec/blackscholes"
	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/simulate"
	"github.com/spf13/viper"
)

// nav used for funds without published history
const defaultCurrentNav = 100.0

func init() {
	viper.SetDefault("simulate.max_points", 5_000_000)
}

// checkSize bounds the number of simulated values a single request may allocate
func checkSize(paths, steps int) error {
	limit := viper.GetInt("simulate.max_points")
	if limit > 0 && paths*steps > limit {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("n_sims * steps must not exceed %d", limit))
	}
	return nil
}

type SimulateRequest struct {
	SchemeCode  string    `json:"scheme_code"`
	Navs        []float64 `json:"navs"`
	Paths       int       `json:"n_sims" validate:"gte=0,lte=100000"`
	Horizon     int       `json:"horizon" validate:"gte=0,lte=2520"`
	Seed        uint64    `json:"seed"`
	Samples     int       `json:"samples" validate:"gte=0,lte=100"`
	Percentiles []float64 `json:"percentiles" validate:"dive,gte=0,lte=100"`
}

type SimulateResponse struct {
	SchemeCode  string                `json:"scheme_code,omitempty"`
	Params      simulate.Params       `json:"params"`
	Bands       []simulate.Band       `json:"bands"`
	Expectation *simulate.Expectation `json:"gbm_expectation"`
	Samples     [][]float64           `json:"samples,omitempty"`
}

// Simulate runs a Monte Carlo simulation driven by the nav history of a scheme or by the
// navs in the request
func (h *Handler) Simulate(c *fiber.Ctx) error {
	subLog := endpointLog("Simulate")

	req := SimulateRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.SchemeCode == "" && len(req.Navs) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "one of scheme_code or navs is required")
	}
	if req.Paths == 0 {
		req.Paths = simulate.DefaultPaths
	}
	if req.Horizon == 0 {
		req.Horizon = simulate.DefaultHorizon
	}
	if req.Seed == 0 {
		req.Seed = h.seed
	}
	if err := checkSize(req.Paths, req.Horizon); err != nil {
		return err
	}

	ctx := c.UserContext()
	navs := req.Navs
	if req.SchemeCode != "" {
		subLog = subLog.With().Str("SchemeCode", req.SchemeCode).Logger()
		df, err := h.provider.NavHistory(ctx, req.SchemeCode, data.FarPast, data.FarFuture)
		if err != nil {
			return translate(subLog, err)
		}
		navs, err = df.Column(req.SchemeCode)
		if err != nil {
			return translate(subLog, err)
		}
	}

	sim, err := simulate.FromHistory(ctx, navs, req.Paths, req.Horizon, req.Seed)
	if err != nil {
		return translate(subLog, err)
	}

	expectation, err := simulate.GBMExpectation(navs, req.Horizon)
	if err != nil {
		return translate(subLog, err)
	}

	return c.JSON(SimulateResponse{
		SchemeCode:  req.SchemeCode,
		Params:      sim.Params,
		Bands:       sim.Bands(req.Percentiles...),
		Expectation: expectation,
		Samples:     sim.Sample(req.Samples, req.Seed),
	})
}

// PredictRequest describes an annual-parameter forecast. When a scheme code is given,
// missing values are taken from the fund: the latest nav, its 1 year return and its
// standard deviation.
type PredictRequest struct {
	SchemeCode   string  `json:"scheme_code"`
	Current      float64 `json:"current_nav" validate:"gte=0"`
	AnnualReturn float64 `json:"annual_return"`
	Volatility   float64 `json:"volatility" validate:"gte=0"`
	Days         int     `json:"days" validate:"gte=0,lte=2520"`
	Paths        int     `json:"n_sims" validate:"gte=0,lte=100000"`
	Seed         uint64  `json:"seed"`
}

func (h *Handler) fillFromFund(ctx context.Context, req *PredictRequest) error {
	if req.SchemeCode == "" {
		return nil
	}

	f, err := h.provider.Fund(ctx, req.SchemeCode)
	if err != nil {
		return err
	}
	if req.AnnualReturn == 0 {
		req.AnnualReturn = f.Returns1Yr
	}
	if req.Volatility == 0 {
		req.Volatility = f.StdDev
	}
	if req.Current != 0 {
		return nil
	}

	df, err := h.provider.NavHistory(ctx, req.SchemeCode, data.FarPast, data.FarFuture)
	switch {
	case errors.Is(err, data.ErrNoNavHistory):
		req.Current = defaultCurrentNav
	case err != nil:
		return err
	default:
		req.Current = df.Last().Vals[0][0]
	}
	return nil
}

func (h *Handler) predictDefaults(req *PredictRequest) {
	if req.Days == 0 {
		req.Days = simulate.DefaultPredictDays
	}
	if req.Paths == 0 {
		req.Paths = simulate.DefaultPredictPaths
	}
	if req.Seed == 0 {
		req.Seed = h.seed
	}
}

func (h *Handler) Predict(c *fiber.Ctx) error {
	subLog := endpointLog("Predict")

	req := PredictRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	if err := h.fillFromFund(ctx, &req); err != nil {
		return translate(subLog, err)
	}
	h.predictDefaults(&req)
	if err := checkSize(req.Paths, req.Days); err != nil {
		return err
	}

	forecast, err := simulate.Predict(ctx, req.Current, req.AnnualReturn, req.Volatility, req.Days, req.Paths, req.Seed)
	if err != nil {
		return translate(subLog, err)
	}
	return c.JSON(forecast)
}

type StressRequest struct {
	PredictRequest
	Scenarios []simulate.Scenario `json:"scenarios" validate:"dive"`
}

type StressResponse struct {
	Current   float64                  `json:"current_nav"`
	Scenarios []*simulate.StressResult `json:"scenarios"`
}

// StressTest forecasts one year under each scenario; the default scenarios are used
// when none are given
func (h *Handler) StressTest(c *fiber.Ctx) error {
	subLog := endpointLog("StressTest")

	req := StressRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	if err := h.fillFromFund(ctx, &req.PredictRequest); err != nil {
		return translate(subLog, err)
	}
	h.predictDefaults(&req.PredictRequest)
	if err := checkSize(req.Paths, req.Days); err != nil {
		return err
	}

	results, err := simulate.StressTest(ctx, req.Current, req.AnnualReturn, req.Volatility,
		req.Days, req.Paths, req.Seed, req.Scenarios)
	if err != nil {
		return translate(subLog, err)
	}
	return c.JSON(StressResponse{
		Current:   req.Current,
		Scenarios: results,
	})
}

type GreeksResponse struct {
	Call   float64              `json:"call"`
	Put    float64              `json:"put"`
	D1     float64              `json:"d1"`
	D2     float64              `json:"d2"`
	Greeks *blackscholes.Greeks `json:"greeks"`
}

// Greeks prices a European option and its sensitivities
func (h *Handler) Greeks(c *fiber.Ctx) error {
	subLog := endpointLog("Greeks")

	opt := blackscholes.Option{}
	if err := parseBody(c, &opt); err != nil {
		return err
	}

	d1, d2, err := opt.D1D2()
	if err != nil {
		return translate(subLog, err)
	}
	call, err := opt.Call()
	if err != nil {
		return translate(subLog, err)
	}
	put, err := opt.Put()
	if err != nil {
		return translate(subLog, err)
	}
	greeks, err := opt.Greeks()
	if err != nil {
		return translate(subLog, err)
	}

	return c.JSON(GreeksResponse{
		Call:   common.Round(call, 4),
		Put:    common.Round(put, 4),
		D1:     common.Round(d1, 4),
		D2:     common.Round(d2, 4),
		Greeks: greeks,
	})
}
