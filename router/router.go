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

package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/fundrec/handler"
	"github.com/penny-vault/fundrec/middleware"
)

// SetupRoutes setup router api
func SetupRoutes(app *fiber.App, h *handler.Handler) {
	// Middleware
	api := app.Group("/v1", middleware.NewLogger(), middleware.NewTracer())
	api.Get("/", handler.Ping)

	// Funds
	funds := api.Group("/funds")
	funds.Get("/", h.ListFunds)
	funds.Get("/:code", h.GetFund)
	funds.Get("/:code/nav", h.GetNav)
	funds.Get("/:code/analytics", h.GetAnalytics)
	api.Get("/categories", h.ListCategories)

	// Recommendations
	api.Post("/risk-profile", h.RiskProfile)
	api.Post("/recommend", h.Recommend)
	api.Post("/recommend/sip", h.RecommendSIP)
	api.Get("/compare", h.Compare)

	// Simulation
	api.Post("/simulate", h.Simulate)
	api.Post("/predict", h.Predict)
	api.Post("/stress-test", h.StressTest)
	api.Post("/blackscholes/greeks", h.Greeks)

	// Portfolio
	portfolio := api.Group("/portfolio")
	portfolio.Post("/optimize", h.Optimize)
	portfolio.Post("/black-litterman", h.BlackLitterman)
	portfolio.Post("/risk-parity", h.RiskParity)
	portfolio.Post("/performance", h.Performance)

	// Backtest
	bt := api.Group("/backtest")
	bt.Post("/", h.Backtest)
	bt.Post("/async", h.BacktestAsync)
	bt.Get("/:id", h.GetBacktest)
}
