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
	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/fundrec/allocation"
	"github.com/penny-vault/fundrec/analytics"
	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/data"
	"github.com/spf13/viper"
)

type OptimizeRequest struct {
	SchemeCodes []string          `json:"scheme_codes" validate:"min=2,max=50,dive,required"`
	Views       []allocation.View `json:"views" validate:"dive"`
}

// Optimize builds a maximum Sharpe allocation from the published metrics of the funds
func (h *Handler) Optimize(c *fiber.Ctx) error {
	subLog := endpointLog("Optimize")

	req := OptimizeRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	funds := make([]*data.Fund, 0, len(req.SchemeCodes))
	for _, code := range req.SchemeCodes {
		f, err := h.provider.Fund(ctx, code)
		if err != nil {
			return translate(subLog.With().Str("SchemeCode", code).Logger(), err)
		}
		funds = append(funds, f)
	}

	res, err := allocation.OptimizeFunds(funds, req.Views)
	if err != nil {
		return translate(subLog, err)
	}
	return c.JSON(res)
}

// BlackLitterman allocates across schemes using their nav history
func (h *Handler) BlackLitterman(c *fiber.Ctx) error {
	subLog := endpointLog("BlackLitterman")

	req := allocation.BLRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.recommender.BlackLitterman(c.UserContext(), req)
	if err != nil {
		return translate(subLog, err)
	}
	return c.JSON(res)
}

type RiskParityRequest struct {
	SchemeCodes []string `json:"scheme_codes" validate:"min=2,max=50,dive,required"`
	MinObs      int      `json:"min_obs" validate:"gte=0"`
}

type RiskParityResponse struct {
	SchemeCodes       []string  `json:"scheme_codes"`
	Weights           []float64 `json:"weights"`
	RiskContributions []float64 `json:"risk_contributions"`
	ExpectedReturn    float64   `json:"expected_return"`
	Volatility        float64   `json:"volatility"`
	SharpeRatio       float64   `json:"sharpe_ratio"`
	Converged         bool      `json:"optimization_success"`
}

// RiskParity equalizes the risk contribution of schemes using the covariance of their
// daily returns
func (h *Handler) RiskParity(c *fiber.Ctx) error {
	subLog := endpointLog("RiskParity")

	req := RiskParityRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.MinObs == 0 {
		req.MinObs = allocation.DefaultMinObs
	}

	histories, err := data.NavHistories(c.UserContext(), h.provider, req.SchemeCodes,
		data.FarPast, data.FarFuture, viper.GetInt("mfapi.concurrency"))
	if err != nil {
		return translate(subLog, err)
	}

	returns, err := allocation.ReturnsMatrix(histories, req.MinObs)
	if err != nil {
		return translate(subLog, err)
	}
	if returns.ColCount() < 2 {
		return translate(subLog, allocation.ErrTooFewAssets)
	}

	mu, cov := allocation.EstimatePrior(returns, common.TradingDaysPerYear)
	port, err := allocation.RiskParity(mu, cov)
	if err != nil {
		return translate(subLog, err)
	}

	resp := RiskParityResponse{
		SchemeCodes:       returns.ColNames,
		Weights:           make([]float64, len(port.Weights)),
		RiskContributions: make([]float64, len(port.RiskContributions)),
		ExpectedReturn:    common.Round(port.ExpectedReturn, 4),
		Volatility:        common.Round(port.Volatility, 4),
		SharpeRatio:       common.Round(port.SharpeRatio, 4),
		Converged:         port.Converged,
	}
	for idx := range port.Weights {
		resp.Weights[idx] = common.Round(port.Weights[idx], 4)
		resp.RiskContributions[idx] = common.Round(port.RiskContributions[idx], 4)
	}
	return c.JSON(resp)
}

// PerformanceRequest weights schemes by code. Start and end are optional YYYY-MM-DD dates.
type PerformanceRequest struct {
	Weights map[string]float64 `json:"weights" validate:"min=1,dive,gte=0"`
	Start   string             `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End     string             `json:"end" validate:"omitempty,datetime=2006-01-02"`
}

// Performance compounds the weighted daily returns of the schemes
func (h *Handler) Performance(c *fiber.Ctx) error {
	subLog := endpointLog("Performance")

	req := PerformanceRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	codes := make([]string, 0, len(req.Weights))
	for code := range req.Weights {
		codes = append(codes, code)
	}

	begin, end, err := dateRange(req.Start, req.End)
	if err != nil {
		return err
	}
	histories, err := data.NavHistories(c.UserContext(), h.provider, codes, begin, end,
		viper.GetInt("mfapi.concurrency"))
	if err != nil {
		return translate(subLog, err)
	}

	perf, err := analytics.PortfolioPerformance(histories, req.Weights)
	if err != nil {
		return translate(subLog, err)
	}
	return c.JSON(perf)
}
