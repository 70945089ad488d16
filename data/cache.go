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

	"github.com/goccy/go-json"
	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/dataframe"
	"github.com/rs/zerolog/log"
)

// FarPast and FarFuture bound the full history of a scheme
var (
	FarPast   = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	FarFuture = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Cached wraps a NavSource and keeps the full history of each scheme in the
// common cache (local LRU, optionally backed by redis)
type Cached struct {
	src NavSource
}

func NewCached(src NavSource) *Cached {
	return &Cached{src: src}
}

// NavCachePrefix prefixes every cached nav history key
const NavCachePrefix = "nav:"

func navCacheKey(schemeCode string) string {
	return NavCachePrefix + schemeCode
}

func (c *Cached) NavHistory(ctx context.Context, schemeCode string, begin, end time.Time) (*dataframe.DataFrame, error) {
	if end.Before(begin) {
		return nil, ErrInvalidTimeRange
	}

	subLog := log.With().Str("SchemeCode", schemeCode).Logger()
	key := navCacheKey(schemeCode)

	raw, err := common.CacheGet(ctx, key)
	if err == nil {
		points := make([]NavPoint, 0)
		decodeErr := json.Unmarshal(raw, &points)
		if decodeErr == nil {
			return c.trim(schemeCode, points, begin, end)
		}
		subLog.Warn().Err(decodeErr).Msg("discarding corrupt cache entry")
	} else if !errors.Is(err, common.ErrCacheMiss) {
		subLog.Warn().Err(err).Msg("cache lookup failed")
	}

	df, err := c.src.NavHistory(ctx, schemeCode, FarPast, FarFuture)
	if err != nil {
		return nil, err
	}

	points := NavPoints(df)
	if encoded, err := json.Marshal(points); err == nil {
		if err := common.CacheSet(ctx, key, encoded); err != nil {
			subLog.Warn().Err(err).Msg("could not store nav history in cache")
		}
	}

	return c.trim(schemeCode, points, begin, end)
}

func (c *Cached) trim(schemeCode string, points []NavPoint, begin, end time.Time) (*dataframe.DataFrame, error) {
	df := CleanNav(schemeCode, points).Trim(begin, end)
	if df.Len() == 0 {
		return nil, ErrNoNavHistory
	}
	return df, nil
}

func (c *Cached) SchemeCodes(ctx context.Context) ([]string, error) {
	return c.src.SchemeCodes(ctx)
}
