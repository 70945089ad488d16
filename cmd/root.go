// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/penny-vault/fundrec/common"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var Profile bool
var Trace bool

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/fundrec/config.toml)")

	// Database
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	bindPersistent("database.url", "database-url")

	// Data sources
	rootCmd.PersistentFlags().String("nav-source", "pvdb", "Where nav history is read from: pvdb or mfapi")
	bindPersistent("nav.source", "nav-source")

	rootCmd.PersistentFlags().String("mfapi-url", "https://api.mfapi.in", "Base URL of the mfapi service")
	bindPersistent("mfapi.url", "mfapi-url")

	rootCmd.PersistentFlags().Int("mfapi-concurrency", 10, "Maximum simultaneous nav history requests")
	bindPersistent("mfapi.concurrency", "mfapi-concurrency")

	// Cache
	rootCmd.PersistentFlags().Bool("cache-redis", false, "Share cached nav histories through redis")
	bindPersistent("cache.redis", "cache-redis")

	rootCmd.PersistentFlags().String("cache-redis-url", "redis://localhost:6379/0", "Redis connection URL")
	bindPersistent("cache.redis_url", "cache-redis-url")

	// Logging configuration
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	bindPersistent("log.level", "log-level")

	rootCmd.PersistentFlags().Bool("log-pretty", false, "Write human readable logs instead of JSON")
	bindPersistent("log.pretty", "log-pretty")

	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	bindPersistent("log.report_caller", "log-report-caller")

	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	bindPersistent("log.output", "log-output")

	// Simulation
	rootCmd.PersistentFlags().Uint64("seed", 0, "Random seed for Monte Carlo simulations (0 uses the default seed)")
	bindPersistent("simulate.seed", "seed")

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
	rootCmd.PersistentFlags().BoolVar(&Trace, "trace", false, "Trace program execution and save in trace.out")
}

func bindPersistent(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind flag")
	}
}

// initConfig reads the config file and FUNDREC_ prefixed environment variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
		viper.AddConfigPath("/etc/fundrec/")
		viper.AddConfigPath("$HOME/.config/fundrec")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("FUNDREC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("database.url", "DATABASE_URL"); err != nil {
		log.Panic().Err(err).Msg("could not bind database.url")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "could not read config file: %s\n", err)
			os.Exit(1)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:     common.ProgramName,
	Version: common.CurrentVersion.String(),
	Short:   "fundrec recommends and forecasts mutual funds",
	Long: `Rank mutual funds against an investor's constraints, simulate their nav with
Monte Carlo methods and build Black-Litterman portfolios.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
