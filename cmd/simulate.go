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

	"github.com/olekukonko/tablewriter"
	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/simulate"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var simulatePaths int
var simulateHorizon int

func init() {
	simulateCmd.Flags().IntVarP(&simulatePaths, "paths", "n", simulate.DefaultPaths, "Number of simulated paths")
	simulateCmd.Flags().IntVar(&simulateHorizon, "horizon", simulate.DefaultHorizon, "Number of trading days to simulate")

	rootCmd.AddCommand(simulateCmd)
}

var simulateCmd = &cobra.Command{
	Use:   "simulate [flags] SchemeCode",
	Short: "Simulate the nav of a scheme with geometric Brownian motion",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flush := setup()
		defer flush()

		ctx := context.Background()
		provider, _, err := openProvider(ctx, false)
		if err != nil {
			log.Fatal().Err(err).Msg("could not open data sources")
		}

		schemeCode := args[0]
		subLog := log.With().Str("SchemeCode", schemeCode).Logger()

		nav, err := provider.NavHistory(ctx, schemeCode, data.FarPast, data.FarFuture)
		if err != nil {
			subLog.Fatal().Err(err).Msg("could not load nav history")
		}
		navs := nav.Vals[0]

		seed := uint64(viper.GetInt64("simulate.seed"))
		if seed == 0 {
			seed = simulate.DefaultSeed
		}

		sim, err := simulate.FromHistory(ctx, navs, simulatePaths, simulateHorizon, seed)
		if err != nil {
			subLog.Fatal().Err(err).Msg("simulation failed")
		}

		expectation, err := simulate.GBMExpectation(navs, simulateHorizon)
		if err != nil {
			subLog.Fatal().Err(err).Msg("could not compute gbm expectation")
		}

		bands := sim.Bands()
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Day", "P10", "P50", "P90", "Expected"})
		table.SetBorder(false)
		for step := 0; step < sim.Steps(); step++ {
			table.Append([]string{
				fmt.Sprintf("%d", step+1),
				fmt.Sprintf("%.4f", bands[0].Values[step]),
				fmt.Sprintf("%.4f", bands[1].Values[step]),
				fmt.Sprintf("%.4f", bands[2].Values[step]),
				fmt.Sprintf("%.4f", expectation.Expected[step]),
			})
		}
		table.Render()

		fmt.Printf("\nLast NAV: %.4f (%s)  Paths: %d  Daily drift: %.6f  Daily volatility: %.6f\n",
			sim.S0, nav.End().Format("2006-01-02"), simulatePaths, sim.Mu, sim.Sigma)
	},
}
