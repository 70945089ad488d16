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
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/fundrec/data"
	"github.com/rs/zerolog/log"
)

// Records returns each row keyed by column name
func (csvRows *CSVRows) Records() []map[string]any {
	records := make([]map[string]any, 0, len(csvRows.rows))
	for _, row := range csvRows.rows {
		rec := make(map[string]any, len(csvRows.header))
		for idx, col := range csvRows.header {
			rec[col] = row[idx]
		}
		records = append(records, rec)
	}
	return records
}

// Funds reads a fund catalog fixture
func Funds(fn string) []*data.Fund {
	records := NewCSVRows(fn, fundTypes).Records()
	funds := make([]*data.Fund, 0, len(records))
	for _, rec := range records {
		encoded, err := json.Marshal(rec)
		if err != nil {
			log.Panic().Err(err).Str("CsvFn", fn).Msg("could not encode fund row")
		}
		fund := &data.Fund{}
		if err := json.Unmarshal(encoded, fund); err != nil {
			log.Panic().Err(err).Str("CsvFn", fn).Msg("could not decode fund row")
		}
		funds = append(funds, fund)
	}
	return funds
}

// NavPoints reads a nav history fixture with columns event_date and nav
func NavPoints(fn string) []data.NavPoint {
	records := NewCSVRows(fn, map[string]string{
		"event_date": "date",
		"nav":        "float64",
	}).Records()

	points := make([]data.NavPoint, 0, len(records))
	for _, rec := range records {
		points = append(points, data.NavPoint{
			Date: rec["event_date"].(time.Time),
			Nav:  rec["nav"].(float64),
		})
	}
	return points
}

// MemoryProvider loads dir/funds.csv and every dir/nav_<code>.csv into an in-memory provider
func MemoryProvider(dir string) *data.Memory {
	mem := data.NewMemory()
	for _, fund := range Funds(filepath.Join(dir, "funds.csv")) {
		mem.AddFund(fund)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "nav_*.csv"))
	if err != nil {
		log.Panic().Err(err).Str("Dir", dir).Msg("could not list nav fixtures")
	}
	for _, fn := range matches {
		code := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(fn), "nav_"), ".csv")
		mem.AddNav(code, NavPoints(fn))
	}

	return mem
}
