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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/penny-vault/fundrec/backtest"
	"github.com/penny-vault/fundrec/messenger"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	workerCmd.Flags().String("nats-server", "nats://localhost:4222", "NATS server to read backtest requests from")
	if err := viper.BindPFlag("nats.server", workerCmd.Flags().Lookup("nats-server")); err != nil {
		log.Panic().Err(err).Msg("could not bind nats.server")
	}

	workerCmd.Flags().Duration("poll-interval", 5*time.Second, "How long to wait when the request queue is empty")
	if err := viper.BindPFlag("worker.poll_interval", workerCmd.Flags().Lookup("poll-interval")); err != nil {
		log.Panic().Err(err).Msg("could not bind worker.poll_interval")
	}

	rootCmd.AddCommand(workerCmd)
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run queued backtests",
	Long:  `Consume backtest requests from NATS JetStream, run them and store the results`,
	Run: func(cmd *cobra.Command, args []string) {
		flush := setup()
		defer flush()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		provider, store, err := openProvider(ctx, false)
		if err != nil {
			log.Fatal().Err(err).Msg("could not open data sources")
		}
		if store == nil {
			log.Fatal().Msg("the worker requires database.url to store backtest results")
		}

		if err := messenger.Initialize(); err != nil {
			log.Fatal().Err(err).Msg("could not connect to NATS")
		}
		defer messenger.Close()

		pollInterval := viper.GetDuration("worker.poll_interval")
		log.Info().Dur("PollInterval", pollInterval).Msg("waiting for backtest requests")

		for ctx.Err() == nil {
			msg, err := messenger.GetBacktestRequest()
			if err != nil {
				log.Error().Err(err).Msg("could not fetch backtest request")
			}
			if msg == nil {
				select {
				case <-ctx.Done():
				case <-time.After(pollInterval):
				}
				continue
			}

			id, err := messenger.DecodeBacktestRequest(msg.Data)
			if err != nil {
				log.Error().Err(err).Str("Payload", string(msg.Data)).Msg("discarding malformed backtest request")
				if err := msg.Term(); err != nil {
					log.Warn().Err(err).Msg("could not terminate message")
				}
				continue
			}

			subLog := log.With().Str("BacktestID", id.String()).Logger()
			subLog.Info().Msg("running backtest")
			if err := backtest.Execute(ctx, store, provider, id); err != nil {
				subLog.Error().Stack().Err(err).Msg("could not store backtest result")
				if err := msg.Nak(); err != nil {
					subLog.Warn().Err(err).Msg("could not nak message")
				}
				continue
			}

			if err := msg.Ack(); err != nil {
				subLog.Warn().Err(err).Msg("could not ack message")
			}
		}

		log.Info().Msg("worker stopped")
	},
}
