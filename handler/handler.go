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

// Package handler implements the fiber handlers of the fundrec API
package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/penny-vault/fundrec/allocation"
	"github.com/penny-vault/fundrec/analytics"
	"github.com/penny-vault/fundrec/backtest"
	"github.com/penny-vault/fundrec/blackscholes"
	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/recommend"
	"github.com/penny-vault/fundrec/risk"
	"github.com/penny-vault/fundrec/simulate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Queue hands a stored backtest to a worker
type Queue interface {
	Publish(ctx context.Context, id uuid.UUID) error
}

// Handler serves the API from a data provider. Store and queue are optional; without them
// asynchronous backtests are unavailable.
type Handler struct {
	provider    data.Provider
	engine      *recommend.Engine
	recommender *allocation.Recommender
	store       backtest.Store
	queue       Queue
	seed        uint64
}

func New(provider data.Provider, store backtest.Store, queue Queue) (*Handler, error) {
	engine, err := recommend.NewEngine(provider)
	if err != nil {
		return nil, err
	}

	seed := uint64(viper.GetInt64("simulate.seed"))
	if seed == 0 {
		seed = simulate.DefaultSeed
	}

	return &Handler{
		provider:    provider,
		engine:      engine,
		recommender: allocation.NewRecommender(provider),
		store:       store,
		queue:       queue,
		seed:        seed,
	}, nil
}

type PingResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"API is alive"`
	Time    string `json:"time" example:"2021-06-19T08:09:10.115924-05:00"`
}

func Ping(c *fiber.Ctx) error {
	return c.JSON(PingResponse{
		Status:  "success",
		Message: "API is alive",
		Time:    time.Now().Format(time.RFC3339Nano),
	})
}

// translate maps domain errors onto fiber errors
func translate(subLog zerolog.Logger, err error) error {
	switch {
	case errors.Is(err, data.ErrFundNotFound),
		errors.Is(err, data.ErrNoNavHistory),
		errors.Is(err, data.ErrBacktestNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, data.ErrInvalidTimeRange),
		errors.Is(err, simulate.ErrInvalidParameters),
		errors.Is(err, blackscholes.ErrInvalidInput),
		errors.Is(err, risk.ErrInvalidInput),
		errors.Is(err, allocation.ErrInvalidView),
		errors.Is(err, allocation.ErrDimensionMismatch),
		errors.Is(err, allocation.ErrInfeasibleBounds):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, recommend.ErrNoFunds),
		errors.Is(err, data.ErrInsufficientHistory),
		errors.Is(err, simulate.ErrNotEnoughHistory),
		errors.Is(err, allocation.ErrTooFewAssets),
		errors.Is(err, allocation.ErrNoCandidates),
		errors.Is(err, allocation.ErrSingularMatrix),
		errors.Is(err, allocation.ErrInsufficientReturn),
		errors.Is(err, analytics.ErrNoData),
		errors.Is(err, backtest.ErrNotEnoughData),
		errors.Is(err, backtest.ErrNoPeriods):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, data.ErrNotSupportedBySource):
		return fiber.NewError(fiber.StatusNotImplemented, err.Error())
	default:
		subLog.Error().Stack().Err(err).Msg("request failed")
		return fiber.ErrInternalServerError
	}
}

func endpointLog(endpoint string) zerolog.Logger {
	return log.With().Str("Endpoint", endpoint).Logger()
}
