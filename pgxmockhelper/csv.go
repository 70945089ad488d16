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

package pgxmockhelper

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/pashagolub/pgxmock"
	"github.com/rs/zerolog/log"
)

type CSVRows struct {
	rows    [][]any
	header  []string
	dateCol int
}

// NewCSVRows reads a csv fixture and converts columns listed in typeMap to
// `date`, `float64` or `int`. Other columns are passed through as strings.
func NewCSVRows(csvFn string, typeMap map[string]string) *CSVRows {
	subLog := log.With().Str("CsvFn", csvFn).Logger()

	rows := &CSVRows{
		dateCol: -1,
		rows:    make([][]any, 0),
	}
	rawData, err := os.ReadFile(csvFn)
	if err != nil {
		subLog.Panic().Err(err).Msg("could not read file")
	}

	lines := strings.Split(string(rawData), "\n")

	// need a header and a trailing newline
	if len(lines) < 2 {
		subLog.Panic().Int("NumLines", len(lines)).Msg("input file does not have enough lines, need at least 2 (header + trailing new line)")
	}
	if lines[len(lines)-1] != "" {
		subLog.Panic().Msg("input file is missing a trailing new line")
	}

	rows.header = strings.Split(lines[0], ",")
	lines = lines[1 : len(lines)-1]

	for _, ll := range lines {
		cols := make([]any, len(rows.header))
		parts := strings.Split(ll, ",")
		for idx, val := range parts {
			colName := rows.header[idx]
			switch typeMap[colName] {
			case "date":
				parsed, err := time.Parse("2006-01-02", val)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to datetime of format 2006-01-02")
				}
				cols[idx] = parsed
				rows.dateCol = idx
			case "float64":
				parsed, err := strconv.ParseFloat(val, 64)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to float64")
				}
				cols[idx] = parsed
			case "int":
				parsed, err := strconv.Atoi(val)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to int")
				}
				cols[idx] = parsed
			default:
				cols[idx] = val
			}
		}
		rows.rows = append(rows.rows, cols)
	}

	return rows
}

// Between keeps the rows whose date column falls in [a, b]
func (csvRows *CSVRows) Between(a time.Time, b time.Time) *CSVRows {
	if len(csvRows.rows) == 0 {
		return csvRows
	}
	if csvRows.dateCol == -1 {
		log.Panic().Time("a", a).Time("b", b).Msg("no date column found")
	}
	newRows := make([][]any, 0, len(csvRows.rows))
	for _, row := range csvRows.rows {
		t := row[csvRows.dateCol].(time.Time)
		if !t.Before(a) && !t.After(b) {
			newRows = append(newRows, row)
		}
	}
	csvRows.rows = newRows
	return csvRows
}

// Len returns the number of rows
func (csvRows *CSVRows) Len() int {
	return len(csvRows.rows)
}

func (csvRows *CSVRows) Rows() *pgxmock.Rows {
	r := pgxmock.NewRows(csvRows.header)
	for _, row := range csvRows.rows {
		r.AddRow(row...)
	}
	return r
}

var fundTypes = map[string]string{
	"min_sip":       "float64",
	"min_lumpsum":   "float64",
	"expense_ratio": "float64",
	"fund_size_cr":  "float64",
	"fund_age_yr":   "float64",
	"risk_level":    "int",
	"alpha":         "float64",
	"beta":          "float64",
	"sharpe":        "float64",
	"sortino":       "float64",
	"sd":            "float64",
	"rating":        "float64",
	"returns_1yr":   "float64",
	"returns_3yr":   "float64",
	"returns_5yr":   "float64",
}

// MockDBFundsQuery expects a transaction that reads the full fund catalog from fn
func MockDBFundsQuery(db pgxmock.PgxConnIface, fn string) {
	db.ExpectBegin()
	db.ExpectQuery("SELECT (.+) FROM funds ORDER BY scheme_code").WillReturnRows(NewCSVRows(fn, fundTypes).Rows())
	db.ExpectCommit()
}

// MockDBNavQuery expects a transaction that reads nav history from fn between a and b
func MockDBNavQuery(db pgxmock.PgxConnIface, fn string, a, b time.Time) {
	db.ExpectBegin()
	db.ExpectQuery("SELECT event_date, nav FROM nav").WillReturnRows(
		NewCSVRows(fn, map[string]string{
			"event_date": "date",
			"nav":        "float64",
		}).Between(a, b).Rows())
	db.ExpectCommit()
}

// MockDBSaveBacktest expects a single upsert into backtests
func MockDBSaveBacktest(db pgxmock.PgxConnIface) {
	db.ExpectBegin()
	db.ExpectExec("INSERT INTO backtests").WillReturnResult(pgconn.CommandTag("INSERT 0 1"))
	db.ExpectCommit()
}
