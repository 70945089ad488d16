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

package backtest

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/penny-vault/fundrec/data"
	"github.com/rs/zerolog/log"
)

// Store persists asynchronous backtests
type Store interface {
	SaveBacktest(ctx context.Context, rec *data.BacktestRecord) error
	LoadBacktest(ctx context.Context, id uuid.UUID) (*data.BacktestRecord, error)
}

// Queue saves a new backtest request with the queued status
func Queue(ctx context.Context, store Store, p Params) (*data.BacktestRecord, error) {
	request, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	rec := &data.BacktestRecord{
		ID:      uuid.New(),
		Status:  data.BacktestQueued,
		Request: request,
	}
	if err := store.SaveBacktest(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Execute runs a queued backtest and stores the outcome. A failed backtest is recorded
// with its error; the returned error is only set when the store itself fails.
func Execute(ctx context.Context, store Store, src data.NavSource, id uuid.UUID) error {
	subLog := log.With().Str("BacktestID", id.String()).Logger()

	rec, err := store.LoadBacktest(ctx, id)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not load queued backtest")
		return err
	}

	p := Params{}
	if err := json.Unmarshal(rec.Request, &p); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not decode backtest request")
		return fail(ctx, store, rec, err)
	}

	rec.Status = data.BacktestRunning
	if err := store.SaveBacktest(ctx, rec); err != nil {
		return err
	}

	res, err := Run(ctx, src, p)
	if err != nil {
		subLog.Warn().Err(err).Msg("backtest failed")
		return fail(ctx, store, rec, err)
	}

	rec.Result, err = json.Marshal(res)
	if err != nil {
		return fail(ctx, store, rec, err)
	}
	rec.Status = data.BacktestComplete
	rec.Error = ""

	subLog.Info().Int("Periods", len(res.Periods)).Msg("backtest complete")
	return store.SaveBacktest(ctx, rec)
}

func fail(ctx context.Context, store Store, rec *data.BacktestRecord, cause error) error {
	rec.Status = data.BacktestFailed
	rec.Error = cause.Error()
	return store.SaveBacktest(ctx, rec)
}
