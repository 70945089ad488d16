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

package data

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/penny-vault/fundrec/data/database"
	"github.com/penny-vault/fundrec/dataframe"
	"github.com/penny-vault/fundrec/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const fundColumns = `scheme_code, scheme_name, amc_name, category, sub_category, fund_manager,
	min_sip, min_lumpsum, expense_ratio, fund_size_cr, fund_age_yr, risk_level,
	alpha, beta, sharpe, sortino, sd, rating, returns_1yr, returns_3yr, returns_5yr`

// Backtest status values
const (
	BacktestQueued   = "queued"
	BacktestRunning  = "running"
	BacktestComplete = "complete"
	BacktestFailed   = "failed"
)

// BacktestRecord is a persisted asynchronous backtest
type BacktestRecord struct {
	ID      uuid.UUID `json:"id"`
	Status  string    `json:"status"`
	Request []byte    `json:"-"`
	Result  []byte    `json:"-"`
	Error   string    `json:"error,omitempty"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

type PvDb struct {
}

// NewPvDb Create a new postgres backed data provider
func NewPvDb() *PvDb {
	return &PvDb{}
}

func scanFund(row pgx.Row) (*Fund, error) {
	f := &Fund{}
	err := row.Scan(&f.SchemeCode, &f.SchemeName, &f.AmcName, &f.Category, &f.SubCategory, &f.FundManager,
		&f.MinSip, &f.MinLumpsum, &f.ExpenseRatio, &f.FundSizeCr, &f.FundAgeYr, &f.RiskLevel,
		&f.Alpha, &f.Beta, &f.Sharpe, &f.Sortino, &f.StdDev, &f.Rating, &f.Returns1Yr, &f.Returns3Yr, &f.Returns5Yr)
	return f, err
}

func rollback(ctx context.Context, trx pgx.Tx) {
	if err := trx.Rollback(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not rollback transaction")
	}
}

// Funds returns every fund in the catalog ordered by scheme code
func (p *PvDb) Funds(ctx context.Context) ([]*Fund, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.Funds")
	defer span.End()

	trx, err := database.Trx(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not get transaction")
		log.Error().Stack().Err(err).Msg("could not get transaction when querying funds")
		return nil, err
	}

	sql := "SELECT " + fundColumns + " FROM funds ORDER BY scheme_code"
	rows, err := trx.Query(ctx, sql)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "database query failed")
		log.Error().Stack().Err(err).Str("SQL", sql).Msg("could not query funds")
		rollback(ctx, trx)
		return nil, err
	}

	funds := make([]*Fund, 0, 256)
	for rows.Next() {
		fund, err := scanFund(rows)
		if err != nil {
			log.Error().Stack().Err(err).Msg("could not scan fund row")
			rows.Close()
			rollback(ctx, trx)
			return nil, err
		}
		funds = append(funds, fund)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		log.Error().Stack().Err(err).Msg("fund query read failed")
		rollback(ctx, trx)
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		log.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	span.SetAttributes(attribute.Int("NumFunds", len(funds)))
	return funds, nil
}

// Fund looks up a single fund by scheme code
func (p *PvDb) Fund(ctx context.Context, schemeCode string) (*Fund, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.Fund")
	defer span.End()

	subLog := log.With().Str("SchemeCode", schemeCode).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		span.RecordError(err)
		subLog.Error().Stack().Err(err).Msg("could not get transaction when querying fund")
		return nil, err
	}

	sql := "SELECT " + fundColumns + " FROM funds WHERE scheme_code=$1"
	fund, err := scanFund(trx.QueryRow(ctx, sql, schemeCode))
	if err != nil {
		rollback(ctx, trx)
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "fund not found")
			return nil, ErrFundNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "database query failed")
		subLog.Error().Stack().Err(err).Msg("could not query fund")
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	return fund, nil
}

// NavHistory returns the NAV history of a scheme between begin and end (inclusive)
func (p *PvDb) NavHistory(ctx context.Context, schemeCode string, begin, end time.Time) (*dataframe.DataFrame, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.NavHistory")
	defer span.End()

	span.SetAttributes(attribute.String("SchemeCode", schemeCode))
	subLog := log.With().Str("SchemeCode", schemeCode).Time("Begin", begin).Time("End", end).Logger()

	if end.Before(begin) {
		subLog.Warn().Msg("end before begin in call to NavHistory")
		return nil, ErrInvalidTimeRange
	}

	trx, err := database.Trx(ctx)
	if err != nil {
		span.RecordError(err)
		subLog.Error().Stack().Err(err).Msg("could not get transaction when querying nav")
		return nil, err
	}

	sql := "SELECT event_date, nav FROM nav WHERE scheme_code=$1 AND event_date BETWEEN $2 AND $3 ORDER BY event_date"
	rows, err := trx.Query(ctx, sql, schemeCode, begin, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "database query failed")
		subLog.Error().Stack().Err(err).Msg("could not query nav")
		rollback(ctx, trx)
		return nil, err
	}

	points := make([]NavPoint, 0, 252)
	for rows.Next() {
		var pt NavPoint
		if err := rows.Scan(&pt.Date, &pt.Nav); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not scan nav row")
			rows.Close()
			rollback(ctx, trx)
			return nil, err
		}
		points = append(points, pt)
	}
	rows.Close()

	if err := trx.Commit(ctx); err != nil {
		subLog.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	df := CleanNav(schemeCode, points)
	if df.Len() == 0 {
		span.SetStatus(codes.Error, "no nav history")
		return nil, ErrNoNavHistory
	}

	return df, nil
}

// SchemeCodes returns the scheme codes with at least one NAV observation
func (p *PvDb) SchemeCodes(ctx context.Context) ([]string, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.SchemeCodes")
	defer span.End()

	trx, err := database.Trx(ctx)
	if err != nil {
		span.RecordError(err)
		log.Error().Stack().Err(err).Msg("could not get transaction when querying scheme codes")
		return nil, err
	}

	sql := "SELECT DISTINCT scheme_code FROM nav ORDER BY scheme_code"
	rows, err := trx.Query(ctx, sql)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "database query failed")
		log.Error().Stack().Err(err).Msg("could not query scheme codes")
		rollback(ctx, trx)
		return nil, err
	}

	codeList := make([]string, 0, 256)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			log.Error().Stack().Err(err).Msg("could not scan scheme code")
			rows.Close()
			rollback(ctx, trx)
			return nil, err
		}
		codeList = append(codeList, code)
	}
	rows.Close()

	if err := trx.Commit(ctx); err != nil {
		log.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	return codeList, nil
}

// SaveBacktest inserts or updates a backtest record
func (p *PvDb) SaveBacktest(ctx context.Context, rec *BacktestRecord) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.SaveBacktest")
	defer span.End()

	subLog := log.With().Str("BacktestID", rec.ID.String()).Str("Status", rec.Status).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		span.RecordError(err)
		subLog.Error().Stack().Err(err).Msg("could not get transaction when saving backtest")
		return err
	}

	rec.Updated = time.Now()
	if rec.Created.IsZero() {
		rec.Created = rec.Updated
	}

	sql := `INSERT INTO backtests (id, status, request, result, error, created, updated)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET status=$2, result=$4, error=$5, updated=$7`
	if _, err := trx.Exec(ctx, sql, rec.ID, rec.Status, rec.Request, rec.Result, rec.Error, rec.Created, rec.Updated); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not save backtest")
		subLog.Error().Stack().Err(err).Msg("could not save backtest")
		rollback(ctx, trx)
		return err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction")
		return err
	}

	return nil
}

// LoadBacktest fetches a backtest record by id
func (p *PvDb) LoadBacktest(ctx context.Context, id uuid.UUID) (*BacktestRecord, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.LoadBacktest")
	defer span.End()

	trx, err := database.Trx(ctx)
	if err != nil {
		span.RecordError(err)
		log.Error().Stack().Err(err).Msg("could not get transaction when loading backtest")
		return nil, err
	}

	rec := &BacktestRecord{}
	sql := "SELECT id, status, request, result, error, created, updated FROM backtests WHERE id=$1"
	err = trx.QueryRow(ctx, sql, id).Scan(&rec.ID, &rec.Status, &rec.Request, &rec.Result, &rec.Error, &rec.Created, &rec.Updated)
	if err != nil {
		rollback(ctx, trx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBacktestNotFound
		}
		span.RecordError(err)
		log.Error().Stack().Err(err).Str("BacktestID", id.String()).Msg("could not load backtest")
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		log.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	return rec, nil
}
