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
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"runtime/trace"
	"syscall"

	"github.com/go-co-op/gocron"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/handler"
	"github.com/penny-vault/fundrec/messenger"
	"github.com/penny-vault/fundrec/router"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	if err := viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port")); err != nil {
		log.Panic().Err(err).Msg("could not bind server.port")
	}
	if err := viper.BindEnv("server.port", "PORT"); err != nil {
		log.Panic().Err(err).Msg("could not bind server.port")
	}

	serveCmd.Flags().String("cors-origins", "http://localhost:8080", "Comma separated list of origins allowed by CORS")
	if err := viper.BindPFlag("server.cors_origins", serveCmd.Flags().Lookup("cors-origins")); err != nil {
		log.Panic().Err(err).Msg("could not bind server.cors_origins")
	}

	serveCmd.Flags().String("refresh-interval", "1h", "How often cached nav histories are dropped")
	if err := viper.BindPFlag("refresh.interval", serveCmd.Flags().Lookup("refresh-interval")); err != nil {
		log.Panic().Err(err).Msg("could not bind refresh.interval")
	}

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fundrec server",
	Long:  `Run HTTP server that implements the fundrec API`,
	Run: func(cmd *cobra.Command, args []string) {
		if Profile {
			f, err := os.Create("profile.out")
			if err != nil {
				log.Fatal().Err(err).Msg("could not create cpu profile")
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				log.Fatal().Err(err).Msg("could not start cpu profile")
			}
			defer pprof.StopCPUProfile()
		}

		if Trace {
			f, err := os.Create("trace.out")
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create trace output file")
			}
			defer func() {
				if err := f.Close(); err != nil {
					log.Fatal().Err(err).Msg("failed to close trace file")
				}
			}()

			if err := trace.Start(f); err != nil {
				log.Fatal().Err(err).Msg("failed to start trace")
			}
			defer trace.Stop()
		}

		flush := setup()
		defer flush()

		ctx := context.Background()
		provider, store, err := openProvider(ctx, true)
		if err != nil {
			log.Fatal().Err(err).Msg("could not open data sources")
		}

		// asynchronous backtests need both a store and a queue
		var queue handler.Queue
		if viper.GetString("nats.server") != "" {
			if err := messenger.Initialize(); err != nil {
				log.Fatal().Err(err).Msg("could not connect to NATS")
			}
			defer messenger.Close()
			queue = messenger.Publisher{}
		}

		h, err := handler.New(provider, store, queue)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create handler")
		}

		// Create new Fiber instance
		app := fiber.New(fiber.Config{
			AppName:     common.ProgramName,
			JSONEncoder: json.Marshal,
			JSONDecoder: json.Unmarshal,
		})

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-c // block until signal is read
			fmt.Printf("Received signal: '%s'; shutting down...\n", sig.String())
			if err := app.Shutdown(); err != nil {
				log.Fatal().Err(err).Msg("could not shutdown server")
			}
		}()

		// Configure CORS
		corsConfig := cors.Config{
			AllowOrigins: viper.GetString("server.cors_origins"),
			AllowHeaders: "*",
			AllowMethods: "GET,POST,HEAD",
		}
		app.Use(cors.New(corsConfig))

		// Setup routes
		router.SetupRoutes(app, h)

		// Drop cached nav histories so new NAVs are picked up
		scheduler := gocron.NewScheduler(common.GetTimezone())
		if _, err := scheduler.Every(viper.GetString("refresh.interval")).Do(func() {
			log.Info().Msg("purging cached nav histories")
			if err := common.CachePurge(context.Background(), data.NavCachePrefix); err != nil {
				log.Error().Err(err).Msg("could not purge nav cache")
			}
		}); err != nil {
			log.Fatal().Err(err).Str("Interval", viper.GetString("refresh.interval")).Msg("could not schedule cache refresh")
		}
		scheduler.StartAsync()
		defer scheduler.Stop()

		err = app.Listen(":" + viper.GetString("server.port"))
		if err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	},
}
