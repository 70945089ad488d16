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
	"sync"
	"time"

	"github.com/penny-vault/fundrec/dataframe"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Catalog provides the static attributes of funds
type Catalog interface {
	Funds(ctx context.Context) ([]*Fund, error)
	Fund(ctx context.Context, schemeCode string) (*Fund, error)
}

// NavSource provides NAV histories. Histories are single column dataframes named
// by scheme code, sorted ascending by date with no missing values.
type NavSource interface {
	NavHistory(ctx context.Context, schemeCode string, begin, end time.Time) (*dataframe.DataFrame, error)
	SchemeCodes(ctx context.Context) ([]string, error)
}

// Provider is the full data interface used by the recommendation engine
type Provider interface {
	Catalog
	NavSource
}

// Combined joins a catalog with a separate NAV source
type Combined struct {
	Catalog
	NavSource
}

// Combine a fund catalog with a nav source
func Combine(catalog Catalog, navSource NavSource) *Combined {
	return &Combined{
		Catalog:   catalog,
		NavSource: navSource,
	}
}

// NavHistories fetches the NAV history of each scheme code using at most concurrency
// simultaneous requests. Schemes without history are skipped; any other error aborts.
func NavHistories(ctx context.Context, src NavSource, schemeCodes []string, begin, end time.Time, concurrency int) (dataframe.Map, error) {
	if concurrency <= 0 {
		concurrency = 10
	}

	res := make(dataframe.Map, len(schemeCodes))
	var mu sync.Mutex

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(concurrency)

	for _, code := range schemeCodes {
		code := code
		grp.Go(func() error {
			df, err := src.NavHistory(ctx, code, begin, end)
			if err != nil {
				if errors.Is(err, ErrNoNavHistory) || errors.Is(err, ErrFundNotFound) {
					log.Debug().Str("SchemeCode", code).Msg("skipping scheme without nav history")
					return nil
				}
				return err
			}

			mu.Lock()
			res[code] = df
			mu.Unlock()
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}

	return res, nil
}
