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

package recommend

import (
	"context"
	"errors"
	"math"

	"github.com/penny-vault/fundrec/blackscholes"
	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/observability/opentelemetry"
	"github.com/penny-vault/fundrec/risk"
	"github.com/penny-vault/fundrec/simulate"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultProjectionPaths = 1000
	sipTopK                = 10
	sipVolatility          = 20.0
	premiumBase            = 100.0
)

func init() {
	viper.SetDefault("simulate.paths", DefaultProjectionPaths)
}

// Projection summarizes the Monte Carlo outlook of the invested amount over the horizon
type Projection struct {
	Days              int       `json:"days"`
	ExpectedValue     float64   `json:"expected_value"`
	ExpectedReturnPct float64   `json:"expected_return_pct"`
	Confidence90      []float64 `json:"confidence_90"`
	ProbabilityOfLoss float64   `json:"probability_of_loss"`
	VaR95             float64   `json:"var_95"`
}

type Recommendation struct {
	Rank          int                        `json:"rank"`
	Score         float64                    `json:"recommendation_score"`
	Fund          *data.Fund                 `json:"fund"`
	Explanation   *Explanation               `json:"explanation"`
	Insights      []string                   `json:"insights"`
	Contributions *Contributions             `json:"contributions"`
	Projection    *Projection                `json:"prediction,omitempty"`
	RiskAnalysis  *blackscholes.RiskAnalysis `json:"risk_analysis,omitempty"`
}

type Result struct {
	Constraints     Constraints      `json:"constraints"`
	Scorer          string           `json:"scorer"`
	Recommendations []Recommendation `json:"recommendations"`
	Stats           *FilterStats     `json:"stats"`
}

// Engine ranks the funds of a catalog
type Engine struct {
	catalog data.Catalog
	scorer  Scorer
	paths   int
	seed    uint64
}

// NewEngine creates an engine using the scorer configured in recommend.scorer
func NewEngine(catalog data.Catalog) (*Engine, error) {
	scorer, err := ScorerByName(viper.GetString("recommend.scorer"))
	if err != nil {
		return nil, err
	}

	seed := uint64(viper.GetInt64("simulate.seed"))
	if seed == 0 {
		seed = simulate.DefaultSeed
	}

	paths := viper.GetInt("simulate.paths")
	if paths <= 0 {
		paths = DefaultProjectionPaths
	}

	return &Engine{
		catalog: catalog,
		scorer:  scorer,
		paths:   paths,
		seed:    seed,
	}, nil
}

// WithScorer returns a copy of the engine that scores with s
func (e *Engine) WithScorer(s Scorer) *Engine {
	cpy := *e
	cpy.scorer = s
	return &cpy
}

// Recommend filters the catalog against c, ranks the survivors and explains the top K.
// When no fund survives the filters the highest rated funds of the whole catalog are
// ranked instead and the stats are flagged as a fallback.
func (e *Engine) Recommend(ctx context.Context, c Constraints) (*Result, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "recommend.Recommend")
	defer span.End()

	c.SetDefaults()

	funds, err := e.catalog.Funds(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not load fund catalog")
		return nil, err
	}
	if len(funds) == 0 {
		span.SetStatus(codes.Error, "empty fund catalog")
		return nil, ErrNoFunds
	}

	candidates, stats := Filter(funds, &c)
	log.Debug().
		Int("Total", stats.Total).
		Int("AfterAmount", stats.AfterAmount).
		Int("AfterTenure", stats.AfterTenure).
		Int("AfterCategory", stats.AfterCategory).
		Int("AfterExclude", stats.AfterExclude).
		Int("AfterRating", stats.AfterRating).
		Msg("filtered fund catalog")

	if len(candidates) == 0 {
		log.Warn().Msg("no funds match criteria; ranking the top rated funds")
		candidates = TopRated(funds, c.TopK)
		stats.Fallback = true
	}

	ranked := Rank(candidates, e.scorer, &c, c.TopK)
	res := &Result{
		Constraints:     c,
		Scorer:          e.scorer.Name(),
		Recommendations: make([]Recommendation, 0, len(ranked)),
		Stats:           stats,
	}

	for _, scored := range ranked {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "recommend cancelled")
			return nil, err
		}
		res.Recommendations = append(res.Recommendations, e.recommendation(ctx, scored, &c))
	}

	span.SetAttributes(
		attribute.Int("Candidates", len(candidates)),
		attribute.Bool("Fallback", stats.Fallback),
	)
	return res, nil
}

func (e *Engine) recommendation(ctx context.Context, scored Scored, c *Constraints) Recommendation {
	f := scored.Fund
	subLog := log.With().Str("SchemeCode", f.SchemeCode).Logger()

	rec := Recommendation{
		Rank:          scored.Rank,
		Score:         common.Round(scored.Score, 2),
		Fund:          f,
		Explanation:   Explain(f, scored.Score),
		Contributions: FactorContributions(f),
	}

	probabilityOfLoss := -1.0
	days := int(math.Round(c.HorizonYears * common.TradingDaysPerYear))
	forecast, err := simulate.Predict(ctx, c.Amount, f.Returns1Yr, f.StdDev, days, e.paths, e.seed)
	if err != nil {
		subLog.Warn().Err(err).Msg("monte carlo projection failed")
	} else {
		rec.Projection = &Projection{
			Days:              days,
			ExpectedValue:     forecast.Mean,
			ExpectedReturnPct: forecast.ExpectedReturnPct,
			Confidence90:      forecast.Confidence["90"],
			ProbabilityOfLoss: forecast.ProbabilityOfLoss,
			VaR95:             forecast.VaR95,
		}
		probabilityOfLoss = forecast.ProbabilityOfLoss
	}

	premium, err := blackscholes.RiskPremium(premiumBase, premiumBase*(1+f.Returns1Yr/100), f.StdDev/100,
		blackscholes.DefaultRiskFreeRate, blackscholes.DefaultHorizon)
	if err != nil {
		subLog.Warn().Err(err).Msg("risk premium analysis failed")
	} else {
		rec.RiskAnalysis = premium
	}

	rec.Insights = Insights(f, probabilityOfLoss)
	return rec
}

// RecommendSIP ranks funds whose minimum SIP fits the monthly amount with the points
// scorer and a volatility tolerance of 20
func (e *Engine) RecommendSIP(ctx context.Context, monthly float64, level risk.Level, horizonYears float64) ([]Scored, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "recommend.RecommendSIP")
	defer span.End()

	funds, err := e.catalog.Funds(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not load fund catalog")
		return nil, err
	}

	c := &Constraints{
		Amount:              monthly,
		InvestmentType:      InvestmentSIP,
		RiskLevel:           level,
		VolatilityTolerance: sipVolatility,
		HorizonYears:        horizonYears,
	}
	if !c.RiskLevel.Valid() {
		c.RiskLevel = risk.Moderate
	}
	if c.HorizonYears == 0 {
		c.HorizonYears = DefaultHorizonYears
	}

	return Rank(apply(funds, c.affordable), Points{}, c, sipTopK), nil
}

// ComparedFund is a row of a fund comparison
type ComparedFund struct {
	SchemeCode   string  `json:"scheme_code"`
	SchemeName   string  `json:"scheme_name"`
	AmcName      string  `json:"amc_name"`
	Category     string  `json:"category"`
	Rating       float64 `json:"rating"`
	Returns1Yr   float64 `json:"returns_1yr"`
	Returns3Yr   float64 `json:"returns_3yr"`
	Returns5Yr   float64 `json:"returns_5yr"`
	Sharpe       float64 `json:"sharpe"`
	Sortino      float64 `json:"sortino"`
	Alpha        float64 `json:"alpha"`
	Beta         float64 `json:"beta"`
	StdDev       float64 `json:"std_dev"`
	ExpenseRatio float64 `json:"expense_ratio"`
	FundSizeCr   float64 `json:"fund_size_cr"`
}

type Comparison struct {
	Funds  []ComparedFund    `json:"funds"`
	BestIn map[string]string `json:"best_in_category"`
}

var comparedMetrics = []struct {
	name  string
	value func(*data.Fund) float64
}{
	{"returns_1yr", func(f *data.Fund) float64 { return f.Returns1Yr }},
	{"returns_3yr", func(f *data.Fund) float64 { return f.Returns3Yr }},
	{"returns_5yr", func(f *data.Fund) float64 { return f.Returns5Yr }},
	{"sharpe", func(f *data.Fund) float64 { return f.Sharpe }},
	{"sortino", func(f *data.Fund) float64 { return f.Sortino }},
	{"alpha", func(f *data.Fund) float64 { return f.Alpha }},
}

// Compare lists the requested funds side by side and names the best fund for each metric;
// the earlier fund wins a tie. Unknown scheme codes are skipped.
func (e *Engine) Compare(ctx context.Context, schemeCodes []string) (*Comparison, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "recommend.Compare")
	defer span.End()

	funds := make([]*data.Fund, 0, len(schemeCodes))
	for _, code := range schemeCodes {
		f, err := e.catalog.Fund(ctx, code)
		if errors.Is(err, data.ErrFundNotFound) {
			log.Debug().Str("SchemeCode", code).Msg("skipping unknown fund in comparison")
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "could not load fund")
			return nil, err
		}
		funds = append(funds, f)
	}

	if len(funds) == 0 {
		span.SetStatus(codes.Error, "no known funds")
		return nil, ErrNoFunds
	}

	cmp := &Comparison{
		Funds:  make([]ComparedFund, 0, len(funds)),
		BestIn: make(map[string]string, len(comparedMetrics)),
	}
	for _, f := range funds {
		cmp.Funds = append(cmp.Funds, ComparedFund{
			SchemeCode:   f.SchemeCode,
			SchemeName:   f.SchemeName,
			AmcName:      f.AmcName,
			Category:     f.Category,
			Rating:       f.Rating,
			Returns1Yr:   f.Returns1Yr,
			Returns3Yr:   f.Returns3Yr,
			Returns5Yr:   f.Returns5Yr,
			Sharpe:       f.Sharpe,
			Sortino:      f.Sortino,
			Alpha:        f.Alpha,
			Beta:         f.Beta,
			StdDev:       f.StdDev,
			ExpenseRatio: f.ExpenseRatio,
			FundSizeCr:   f.FundSizeCr,
		})
	}

	for _, metric := range comparedMetrics {
		best := funds[0]
		for _, f := range funds[1:] {
			if metric.value(f) > metric.value(best) {
				best = f
			}
		}
		cmp.BestIn[metric.name] = best.SchemeCode
	}

	return cmp, nil
}
