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
	"sort"

	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/data"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultRiskAversion = 2.5
	DefaultTau          = 0.05
	DefaultCorrelation  = 0.5

	defaultVolatility = 15.0
	minAllocation     = 0.01
)

// View expresses an absolute expected return (annual decimal) for an equally weighted
// basket of funds, identified by their index in the request
type View struct {
	Funds  []int   `json:"funds" validate:"required,min=1"`
	Return float64 `json:"return"`
}

type FundWeight struct {
	SchemeCode string  `json:"scheme_code"`
	SchemeName string  `json:"scheme_name"`
	Weight     float64 `json:"weight"`
}

type PortfolioMetrics struct {
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}

type Frontier struct {
	Returns      []float64   `json:"returns"`
	Volatilities []float64   `json:"volatilities"`
	Weights      [][]float64 `json:"weights"`
}

// FundAllocation reports weights and metrics as percentages
type FundAllocation struct {
	Allocations []FundWeight     `json:"allocations"`
	Metrics     PortfolioMetrics `json:"portfolio_metrics"`
	Frontier    Frontier         `json:"efficient_frontier"`
	Converged   bool             `json:"optimization_success"`
}

func fundVolatilities(funds []*data.Fund) []float64 {
	vols := make([]float64, len(funds))
	for idx, f := range funds {
		sd := f.StdDev
		if sd <= 0 {
			sd = defaultVolatility
		}
		vols[idx] = sd / 100
	}
	return vols
}

func viewMatrix(views []View, n int) (*mat.Dense, []float64, error) {
	p := mat.NewDense(len(views), n, nil)
	q := make([]float64, len(views))
	for row, view := range views {
		if len(view.Funds) == 0 {
			return nil, nil, ErrInvalidView
		}
		for _, idx := range view.Funds {
			if idx < 0 || idx >= n {
				return nil, nil, ErrInvalidView
			}
			p.Set(row, idx, 1/float64(len(view.Funds)))
		}
		q[row] = view.Return
	}
	return p, q, nil
}

// OptimizeFunds builds a maximum Sharpe allocation from fund level statistics. The
// covariance assumes a constant correlation between funds; the prior is the equilibrium
// return of an equal weight portfolio, adjusted by any investor views.
func OptimizeFunds(funds []*data.Fund, views []View) (*FundAllocation, error) {
	n := len(funds)
	if n < 2 {
		return nil, ErrTooFewAssets
	}

	cov := CovarianceFromMetrics(fundVolatilities(funds), DefaultCorrelation)
	equal := make([]float64, n)
	for idx := range equal {
		equal[idx] = 1 / float64(n)
	}
	mu := EquilibriumReturns(DefaultRiskAversion, cov, equal)
	var postCov mat.Symmetric = cov

	if len(views) > 0 {
		p, q, err := viewMatrix(views, n)
		if err != nil {
			return nil, err
		}
		mu, postCov, err = PosteriorWithOmega(DefaultTau, mu, p, q, cov, nil)
		if err != nil {
			return nil, err
		}
	}

	best, err := MaxSharpe(mu, postCov, LongOnly)
	if err != nil {
		return nil, err
	}

	points, err := EfficientFrontier(mu, postCov, DefaultFrontierPoints)
	if err != nil {
		return nil, err
	}

	res := &FundAllocation{
		Allocations: make([]FundWeight, 0, n),
		Metrics: PortfolioMetrics{
			ExpectedReturn: common.Round(best.ExpectedReturn*100, 2),
			Volatility:     common.Round(best.Volatility*100, 2),
			SharpeRatio:    common.Round(best.SharpeRatio, 3),
		},
		Frontier: Frontier{
			Returns:      make([]float64, 0, len(points)),
			Volatilities: make([]float64, 0, len(points)),
			Weights:      make([][]float64, 0, len(points)),
		},
		Converged: best.Converged,
	}

	for idx, w := range best.Weights {
		if w > minAllocation {
			res.Allocations = append(res.Allocations, FundWeight{
				SchemeCode: funds[idx].SchemeCode,
				SchemeName: funds[idx].SchemeName,
				Weight:     common.Round(w*100, 2),
			})
		}
	}
	sort.SliceStable(res.Allocations, func(i, j int) bool {
		return res.Allocations[i].Weight > res.Allocations[j].Weight
	})

	for _, pt := range points {
		res.Frontier.Returns = append(res.Frontier.Returns, common.Round(pt.Target*100, 2))
		res.Frontier.Volatilities = append(res.Frontier.Volatilities, common.Round(pt.Volatility*100, 2))
		res.Frontier.Weights = append(res.Frontier.Weights, pt.Weights)
	}

	return res, nil
}
