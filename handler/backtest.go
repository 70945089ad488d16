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
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/penny-vault/fundrec/backtest"
	"github.com/penny-vault/fundrec/data"
)

// Backtest runs a rolling Black-Litterman backtest and waits for the result
func (h *Handler) Backtest(c *fiber.Ctx) error {
	subLog := endpointLog("Backtest")

	p := backtest.Params{}
	if err := parseBody(c, &p); err != nil {
		return err
	}

	res, err := backtest.Run(c.UserContext(), h.provider, p)
	if err != nil {
		return translate(subLog, err)
	}
	return c.JSON(res)
}

type BacktestQueued struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// BacktestAsync stores the request and hands it to a worker. The reply carries the id
// to poll with GetBacktest.
func (h *Handler) BacktestAsync(c *fiber.Ctx) error {
	subLog := endpointLog("BacktestAsync")

	if h.store == nil || h.queue == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "asynchronous backtests are not configured")
	}

	p := backtest.Params{}
	if err := parseBody(c, &p); err != nil {
		return err
	}

	ctx := c.UserContext()
	rec, err := backtest.Queue(ctx, h.store, p)
	if err != nil {
		return translate(subLog, err)
	}

	if err := h.queue.Publish(ctx, rec.ID); err != nil {
		subLog.Error().Stack().Err(err).Str("BacktestID", rec.ID.String()).Msg("could not publish backtest request")
		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusAccepted).JSON(BacktestQueued{
		ID:     rec.ID,
		Status: rec.Status,
	})
}

// BacktestStatus is a stored backtest; result is set once the backtest completes
type BacktestStatus struct {
	*data.BacktestRecord
	Result *backtest.Result `json:"result,omitempty"`
}

func (h *Handler) GetBacktest(c *fiber.Ctx) error {
	subLog := endpointLog("GetBacktest")

	if h.store == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "asynchronous backtests are not configured")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "backtest id must be a uuid")
	}
	subLog = subLog.With().Str("BacktestID", id.String()).Logger()

	rec, err := h.store.LoadBacktest(c.UserContext(), id)
	if err != nil {
		return translate(subLog, err)
	}

	resp := BacktestStatus{BacktestRecord: rec}
	if rec.Status == data.BacktestComplete && len(rec.Result) > 0 {
		resp.Result = &backtest.Result{}
		if err := json.Unmarshal(rec.Result, resp.Result); err != nil {
			return translate(subLog, err)
		}
	}
	return c.JSON(resp)
}
