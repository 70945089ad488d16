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
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/penny-vault/fundrec/backtest"
	"github.com/penny-vault/fundrec/dataframe"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	backtestParams  backtest.Params
	backtestShowNav bool
)

func init() {
	backtestCmd.Flags().IntVar(&backtestParams.Lookback, "lookback", backtest.DefaultLookback, "Trading days of history before the first rebalance")
	backtestCmd.Flags().IntVar(&backtestParams.Rebalance, "rebalance", backtest.DefaultRebalance, "Trading days between rebalances")
	backtestCmd.Flags().IntVarP(&backtestParams.TopK, "top", "k", backtest.DefaultTopK, "Number of schemes held each period")
	backtestCmd.Flags().IntVar(&backtestParams.MinObs, "min-obs", backtest.DefaultMinObs, "Minimum observations for a scheme to be a candidate")
	backtestCmd.Flags().BoolVar(&backtestShowNav, "nav", false, "Print the daily portfolio NAV")

	rootCmd.AddCommand(backtestCmd)
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest rolling Black-Litterman recommendations",
	Run: func(cmd *cobra.Command, args []string) {
		flush := setup()
		defer flush()

		ctx := context.Background()
		provider, _, err := openProvider(ctx, false)
		if err != nil {
			log.Fatal().Err(err).Msg("could not open data sources")
		}

		res, err := backtest.Run(ctx, provider, backtestParams)
		if err != nil {
			log.Fatal().Err(err).Msg("backtest failed")
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Rebalance", "Start", "End", "Return %", "Holdings"})
		table.SetBorder(false)
		for _, period := range res.Periods {
			holdings := make([]string, 0, len(period.Allocations))
			for _, alloc := range period.Allocations {
				holdings = append(holdings, fmt.Sprintf("%s:%.1f%%", alloc.SchemeCode, alloc.Weight*100))
			}
			table.Append([]string{
				period.Rebalance.Format("2006-01-02"),
				period.Start.Format("2006-01-02"),
				period.End.Format("2006-01-02"),
				fmt.Sprintf("%.2f", period.Return*100),
				strings.Join(holdings, " "),
			})
		}
		table.Render()

		if backtestShowNav {
			fmt.Println(navFrame(res).Table())
		}

		m := res.Metrics
		fmt.Printf("\nCumulative Return: %.2f%%\n", m.CumulativeReturn*100)
		fmt.Printf("Annualized Return: %.2f%%\n", m.AnnualizedReturn*100)
		fmt.Printf("Annualized Vol   : %.2f%%\n", m.AnnualizedVol*100)
		fmt.Printf("Sharpe           : %.2f\n", m.Sharpe)
		fmt.Printf("Max Drawdown     : %.2f%%\n", m.MaxDrawdown*100)
	},
}

func navFrame(res *backtest.Result) *dataframe.DataFrame {
	df := &dataframe.DataFrame{
		Dates: make([]time.Time, len(res.Nav)),
	}
	navs := make([]float64, len(res.Nav))
	for idx, pt := range res.Nav {
		df.Dates[idx] = pt.Date
		navs[idx] = pt.Value
	}
	return df.Insert("NAV", navs)
}
