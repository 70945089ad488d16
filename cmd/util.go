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

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/penny-vault/fundrec/backtest"
	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/data/database"
	"github.com/penny-vault/fundrec/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ErrUnknownNavSource = errors.New("unknown nav source")
	ErrNoCatalog        = errors.New("a database is required for the fund catalog")
)

// setup initializes logging, the nav cache and tracing. The returned function flushes
// any pending spans.
func setup() func() {
	common.SetupLogging()
	if err := common.SetupCache(); err != nil {
		log.Fatal().Err(err).Msg("could not initialize cache")
	}

	shutdown, err := opentelemetry.Setup()
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize tracing")
	}

	return func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("could not flush spans")
		}
	}
}

// openProvider connects to the configured data sources. The fund catalog and backtest
// store live in the database; nav history comes from nav.source and is cached. Without
// a database the store is nil and the catalog is only available when requireCatalog is
// false, in which case fund lookups go to mfapi.
func openProvider(ctx context.Context, requireCatalog bool) (data.Provider, backtest.Store, error) {
	var pvdb *data.PvDb
	if viper.GetString("database.url") != "" {
		if err := database.Connect(ctx); err != nil {
			return nil, nil, err
		}
		pvdb = data.NewPvDb()
	}

	var catalog data.Catalog
	var navs data.NavSource

	switch source := viper.GetString("nav.source"); source {
	case "", "pvdb":
		if pvdb == nil {
			return nil, nil, ErrNoCatalog
		}
		navs = pvdb
	case "mfapi":
		mfapi := data.NewMfApi()
		navs = mfapi
		if pvdb == nil {
			catalog = mfapi
		}
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownNavSource, source)
	}

	if pvdb != nil {
		catalog = pvdb
	} else if requireCatalog {
		return nil, nil, ErrNoCatalog
	}

	log.Info().Str("NavSource", viper.GetString("nav.source")).Bool("Database", pvdb != nil).Msg("initialized data sources")

	provider := data.Combine(catalog, data.NewCached(navs))
	if pvdb == nil {
		return provider, nil, nil
	}
	return provider, pvdb, nil
}
