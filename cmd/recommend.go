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

	"github.com/olekukonko/tablewriter"
	"github.com/penny-vault/fundrec/recommend"
	"github.com/penny-vault/fundrec/risk"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var recommendConstraints recommend.Constraints
var recommendRiskLevel int

func init() {
	flags := recommendCmd.Flags()
	flags.Float64Var(&recommendConstraints.Amount, "amount", recommend.DefaultAmount, "Amount to invest (monthly for sip)")
	flags.StringVar(&recommendConstraints.InvestmentType, "type", recommend.InvestmentSIP, "Investment type: sip or lumpsum")
	flags.IntVar(&recommendConstraints.TenureMonths, "tenure", 0, "Investment tenure in months")
	flags.StringSliceVar(&recommendConstraints.Categories, "category", nil, "Only include funds in these categories")
	flags.StringSliceVar(&recommendConstraints.Exclude, "exclude", nil, "Scheme codes to exclude")
	flags.Float64Var(&recommendConstraints.MinRating, "min-rating", 0, "Minimum fund rating (default recommend.min_rating)")
	flags.IntVar(&recommendRiskLevel, "risk-level", int(risk.Moderate), "Investor risk level 1 (conservative) to 5 (aggressive)")
	flags.Float64Var(&recommendConstraints.HorizonYears, "horizon", recommend.DefaultHorizonYears, "Investment horizon in years")
	flags.IntVarP(&recommendConstraints.TopK, "top", "k", recommend.DefaultTopK, "Number of funds to recommend")

	flags.String("scorer", recommend.CompositeName, "Scoring method: composite or points")
	if err := viper.BindPFlag("recommend.scorer", flags.Lookup("scorer")); err != nil {
		log.Panic().Err(err).Msg("could not bind recommend.scorer")
	}

	rootCmd.AddCommand(recommendCmd)
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend funds for an investor",
	Run: func(cmd *cobra.Command, args []string) {
		flush := setup()
		defer flush()

		ctx := context.Background()
		provider, _, err := openProvider(ctx, true)
		if err != nil {
			log.Fatal().Err(err).Msg("could not open data sources")
		}

		engine, err := recommend.NewEngine(provider)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create recommendation engine")
		}

		recommendConstraints.RiskLevel = risk.Level(recommendRiskLevel)
		res, err := engine.Recommend(ctx, recommendConstraints)
		if err != nil {
			log.Fatal().Err(err).Msg("recommendation failed")
		}

		if res.Stats.Fallback {
			fmt.Println("No fund matched every constraint; showing the highest rated funds instead.")
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Rank", "Scheme Code", "Scheme Name", "Category", "Score", "Expected Value", "P(Loss) %", "Strengths"})
		table.SetBorder(false)
		for _, rec := range res.Recommendations {
			expected, loss := "-", "-"
			if rec.Projection != nil {
				expected = fmt.Sprintf("%.2f", rec.Projection.ExpectedValue)
				loss = fmt.Sprintf("%.1f", rec.Projection.ProbabilityOfLoss)
			}
			table.Append([]string{
				fmt.Sprintf("%d", rec.Rank),
				rec.Fund.SchemeCode,
				rec.Fund.SchemeName,
				rec.Fund.Category,
				fmt.Sprintf("%.2f", rec.Score),
				expected,
				loss,
				strings.Join(rec.Explanation.Strengths, "; "),
			})
		}
		table.Render()

		fmt.Printf("\nScorer: %s  Funds: %d  After filters: %d\n", res.Scorer, res.Stats.Total, res.Stats.AfterRating)
	},
}
