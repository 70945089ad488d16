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

package allocation

import (
	"context"
	"sort"
	"time"

	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/dataframe"
	"github.com/penny-vault/fundrec/observability/opentelemetry"
	"github.com/penny-vault/fundrec/simulate"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultAmount       = 10000.0
	DefaultBLTau        = 0.025
	DefaultBLAversion   = 3.0
	DefaultTopK         = 5
	DefaultMinObs       = 100
	MaxCandidates       = 50
	ForecastHorizonDays = 30
	ForecastPaths       = 200
)

// BLRequest configures a Black-Litterman recommendation. Zero values take defaults. When
// AsOf is set only history on or before that date is used.
type BLRequest struct {
	SchemeCodes  []string  `json:"scheme_codes"`
	Amount       float64   `json:"amount" validate:"gte=0"`
	Tau          float64   `json:"tau" validate:"gte=0"`
	RiskAversion float64   `json:"risk_aversion" validate:"gte=0"`
	TopK         int       `json:"top_k" validate:"gte=0,lte=50"`
	MinObs       int       `json:"min_obs" validate:"gte=0"`
	AsOf         time.Time `json:"as_of"`
}

func (req *BLRequest) setDefaults() {
	if req.Amount == 0 {
		req.Amount = DefaultAmount
	}
	if req.Tau == 0 {
		req.Tau = DefaultBLTau
	}
	if req.RiskAversion == 0 {
		req.RiskAversion = DefaultBLAversion
	}
	if req.TopK == 0 {
		req.TopK = DefaultTopK
	}
	if req.MinObs == 0 {
		req.MinObs = DefaultMinObs
	}
}

type Allocation struct {
	SchemeCode      string  `json:"scheme_code"`
	Weight          float64 `json:"weight"`
	AllocatedAmount float64 `json:"allocated_amount"`
}

// Detail carries 30 day nav forecasts for an allocated scheme; forecasts are nil when the
// history cannot be simulated
type Detail struct {
	SchemeCode   string   `json:"scheme_code"`
	Weight       float64  `json:"weight"`
	MonteCarlo30 *float64 `json:"mc_30d_median_last"`
	GBM30        *float64 `json:"gbm_30d_last"`
}

type BLResult struct {
	Amount      float64      `json:"amount"`
	Allocations []Allocation `json:"allocations"`
	Details     []Detail     `json:"details"`
	NCandidates int          `json:"n_candidates"`
}

// Recommender allocates across schemes using their nav history
type Recommender struct {
	src         data.NavSource
	concurrency int
	seed        uint64
}

func NewRecommender(src data.NavSource) *Recommender {
	seed := uint64(viper.GetInt64("simulate.seed"))
	if seed == 0 {
		seed = simulate.DefaultSeed
	}
	return &Recommender{
		src:         src,
		concurrency: viper.GetInt("mfapi.concurrency"),
		seed:        seed,
	}
}

// BlackLitterman loads nav histories for the requested schemes (or every known scheme)
// and recommends an allocation
func (r *Recommender) BlackLitterman(ctx context.Context, req BLRequest) (*BLResult, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "allocation.BlackLitterman")
	defer span.End()

	req.setDefaults()

	schemeCodes := req.SchemeCodes
	if len(schemeCodes) == 0 {
		var err error
		schemeCodes, err = r.src.SchemeCodes(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "could not list scheme codes")
			return nil, err
		}
	}

	end := data.FarFuture
	if !req.AsOf.IsZero() {
		end = req.AsOf
	}

	histories, err := data.NavHistories(ctx, r.src, schemeCodes, data.FarPast, end, r.concurrency)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not load nav histories")
		return nil, err
	}

	if len(req.SchemeCodes) == 0 {
		histories = mostObserved(histories, req.MinObs, MaxCandidates)
	}

	res, err := r.FromHistories(ctx, histories, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "black-litterman failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("NCandidates", res.NCandidates))
	return res, nil
}

// mostObserved keeps at most limit schemes with at least minObs navs, preferring the
// longest histories
func mostObserved(histories dataframe.Map, minObs, limit int) dataframe.Map {
	pairs := make(common.PairList, 0, len(histories))
	for code, df := range histories {
		if df.Len() >= minObs {
			// negate so ascending order puts the longest history first
			pairs = append(pairs, common.Pair{Key: code, Value: -float64(df.Len())})
		}
	}
	sort.Sort(pairs)

	if len(pairs) > limit {
		pairs = pairs[:limit]
	}

	res := make(dataframe.Map, len(pairs))
	for _, p := range pairs {
		res[p.Key] = histories[p.Key]
	}
	return res
}

// FromHistories recommends an allocation from preloaded nav histories. Histories are cut
// at req.AsOf when it is set.
func (r *Recommender) FromHistories(ctx context.Context, histories dataframe.Map, req BLRequest) (*BLResult, error) {
	req.setDefaults()

	if !req.AsOf.IsZero() {
		cut := make(dataframe.Map, len(histories))
		for code, nav := range histories {
			cut[code] = nav.Until(req.AsOf)
		}
		histories = cut
	}

	returns, err := ReturnsMatrix(histories, req.MinObs)
	if err != nil {
		return nil, err
	}

	pi, cov := EstimatePrior(returns, common.TradingDaysPerYear)
	n := len(pi)

	identity := mat.NewDiagDense(n, nil)
	for idx := 0; idx < n; idx++ {
		identity.SetDiag(idx, 1)
	}
	q := make([]float64, n)
	copy(q, pi)

	posteriorMu, err := Posterior(req.Tau, pi, identity, q, cov)
	if err != nil {
		return nil, err
	}

	raw, err := MarkowitzWeights(posteriorMu, cov, req.RiskAversion)
	if err != nil {
		return nil, err
	}
	weights := CleanWeights(raw)

	ranked := make(common.PairList, n)
	for idx, code := range returns.ColNames {
		ranked[idx] = common.Pair{Key: code, Value: weights[idx]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Value == ranked[j].Value {
			return ranked[i].Key < ranked[j].Key
		}
		return ranked[i].Value > ranked[j].Value
	})

	if len(ranked) > req.TopK {
		ranked = ranked[:req.TopK]
	}

	res := &BLResult{
		Amount:      req.Amount,
		Allocations: make([]Allocation, 0, len(ranked)),
		Details:     make([]Detail, 0, len(ranked)),
		NCandidates: n,
	}

	for _, p := range ranked {
		res.Allocations = append(res.Allocations, Allocation{
			SchemeCode:      p.Key,
			Weight:          p.Value,
			AllocatedAmount: p.Value * req.Amount,
		})
		res.Details = append(res.Details, r.detail(ctx, histories[p.Key], p.Key, p.Value))
	}

	return res, nil
}

func (r *Recommender) detail(ctx context.Context, nav *dataframe.DataFrame, code string, weight float64) Detail {
	d := Detail{SchemeCode: code, Weight: weight}
	if nav == nil || nav.ColCount() == 0 {
		return d
	}

	subLog := log.With().Str("SchemeCode", code).Logger()
	navs := nav.Vals[0]

	if sim, err := simulate.FromHistory(ctx, navs, ForecastPaths, ForecastHorizonDays, r.seed); err == nil {
		median := sim.Median()
		last := median[len(median)-1]
		d.MonteCarlo30 = &last
	} else {
		subLog.Debug().Err(err).Msg("monte carlo forecast unavailable")
	}

	if exp, err := simulate.GBMExpectation(navs, ForecastHorizonDays); err == nil {
		last := exp.Expected[len(exp.Expected)-1]
		d.GBM30 = &last
	} else {
		subLog.Debug().Err(err).Msg("gbm expectation unavailable")
	}

	return d
}
