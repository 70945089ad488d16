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
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/penny-vault/fundrec/dataframe"
)

// Memory is a Provider backed by in-process maps
type Memory struct {
	mu        sync.RWMutex
	funds     map[string]*Fund
	navs      map[string]*dataframe.DataFrame
	backtests map[uuid.UUID]BacktestRecord
}

func NewMemory() *Memory {
	return &Memory{
		funds:     make(map[string]*Fund),
		navs:      make(map[string]*dataframe.DataFrame),
		backtests: make(map[uuid.UUID]BacktestRecord),
	}
}

// AddFund adds or replaces a fund in the catalog
func (m *Memory) AddFund(fund *Fund) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funds[fund.SchemeCode] = fund
	return m
}

// AddNav stores the cleaned nav history for the scheme
func (m *Memory) AddNav(schemeCode string, points []NavPoint) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navs[schemeCode] = CleanNav(schemeCode, points)
	return m
}

func (m *Memory) Funds(ctx context.Context) ([]*Fund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	funds := make([]*Fund, 0, len(m.funds))
	for _, fund := range m.funds {
		funds = append(funds, fund)
	}
	sort.Slice(funds, func(i, j int) bool { return funds[i].SchemeCode < funds[j].SchemeCode })
	return funds, nil
}

func (m *Memory) Fund(ctx context.Context, schemeCode string) (*Fund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if fund, ok := m.funds[schemeCode]; ok {
		return fund, nil
	}
	return nil, ErrFundNotFound
}

func (m *Memory) NavHistory(ctx context.Context, schemeCode string, begin, end time.Time) (*dataframe.DataFrame, error) {
	if end.Before(begin) {
		return nil, ErrInvalidTimeRange
	}

	m.mu.RLock()
	df, ok := m.navs[schemeCode]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNoNavHistory
	}

	trimmed := df.Trim(begin, end).Copy()
	if trimmed.Len() == 0 {
		return nil, ErrNoNavHistory
	}
	return trimmed, nil
}

func (m *Memory) SchemeCodes(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	codes := make([]string, 0, len(m.navs))
	for code := range m.navs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

// SaveBacktest stores a copy of rec
func (m *Memory) SaveBacktest(ctx context.Context, rec *BacktestRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Updated = time.Now()
	if rec.Created.IsZero() {
		rec.Created = rec.Updated
	}
	m.backtests[rec.ID] = *rec
	return nil
}

func (m *Memory) LoadBacktest(ctx context.Context, id uuid.UUID) (*BacktestRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.backtests[id]
	if !ok {
		return nil, ErrBacktestNotFound
	}
	return &rec, nil
}
