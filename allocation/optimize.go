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
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

const (
	DefaultFrontierPoints = 50

	boundPenalty  = 1e3
	targetPenalty = 1e4
)

// Bounds limit the weight of every asset in a fully invested portfolio
type Bounds struct {
	Min float64 `json:"min_weight"`
	Max float64 `json:"max_weight"`
}

var (
	LongOnly         = Bounds{Min: 0, Max: 1}
	RiskParityBounds = Bounds{Min: 0.01, Max: 1}
)

func (b Bounds) feasible(n int) bool {
	return b.Min <= b.Max && float64(n)*b.Min <= 1+1e-12 && float64(n)*b.Max >= 1-1e-12
}

// weights maps unconstrained parameters onto the simplex shifted by the lower bound so
// every candidate sums to one and respects Min
func (b Bounds) weights(x []float64) []float64 {
	n := len(x)
	maxX := floats.Max(x)
	w := make([]float64, n)
	sum := 0.0
	for idx, v := range x {
		w[idx] = math.Exp(v - maxX)
		sum += w[idx]
	}
	free := 1 - float64(n)*b.Min
	for idx := range w {
		w[idx] = b.Min + free*w[idx]/sum
	}
	return w
}

func (b Bounds) penalty(w []float64) float64 {
	p := 0.0
	for _, v := range w {
		if v > b.Max {
			p += (v - b.Max) * (v - b.Max)
		}
	}
	return boundPenalty * p
}

// clip caps weights at Max and hands the excess to the remaining assets in proportion to
// their headroom so the result still sums to one
func (b Bounds) clip(w []float64) []float64 {
	out := make([]float64, len(w))
	excess := 0.0
	headroom := 0.0
	for idx, v := range w {
		if v > b.Max {
			excess += v - b.Max
			v = b.Max
		}
		out[idx] = v
		headroom += b.Max - v
	}
	if excess > 0 && headroom > 0 {
		for idx, v := range out {
			out[idx] = v + excess*(b.Max-v)/headroom
		}
	}
	return out
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence, optimize.MethodConverge:
		return true
	default:
		return false
	}
}

// minimize finds fully invested weights within bounds minimizing objective. BFGS on a
// numeric gradient is tried first and Nelder-Mead is the fallback; the best point found is
// returned even when neither method reports convergence.
func minimize(n int, b Bounds, objective func(w []float64) float64) ([]float64, bool, error) {
	if !b.feasible(n) {
		return nil, false, ErrInfeasibleBounds
	}
	if n == 1 {
		return []float64{1}, true, nil
	}

	f := func(x []float64) float64 {
		w := b.weights(x)
		return objective(w) + b.penalty(w)
	}

	problem := optimize.Problem{
		Func: f,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, f, x, &fd.Settings{Formula: fd.Central})
		},
	}

	initial := make([]float64, n)
	settings := &optimize.Settings{MajorIterations: 1000}

	var best *optimize.Result
	var lastErr error
	ok := false

	for _, method := range []optimize.Method{&optimize.BFGS{}, &optimize.NelderMead{}} {
		result, err := optimize.Minimize(problem, initial, settings, method)
		if result == nil {
			lastErr = err
			continue
		}

		if best == nil || result.F < best.F {
			best = result
		}
		if err == nil && converged(result.Status) {
			ok = true
			break
		}
		log.Debug().Str("Status", result.Status.String()).Msg("optimizer did not converge; trying next method")
	}

	if best == nil {
		return nil, false, lastErr
	}

	return b.clip(b.weights(best.X)), ok, nil
}

// Portfolio is the result of an optimization; returns and volatility are annual decimals
type Portfolio struct {
	Weights        []float64 `json:"weights"`
	ExpectedReturn float64   `json:"expected_return"`
	Volatility     float64   `json:"volatility"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
	Converged      bool      `json:"optimization_success"`
}

func portfolioReturn(mu, w []float64) float64 {
	return floats.Dot(mu, w)
}

func portfolioVariance(cov mat.Symmetric, w []float64) float64 {
	v := mat.NewVecDense(len(w), w)
	return mat.Inner(v, cov, v)
}

func newPortfolio(mu []float64, cov mat.Symmetric, w []float64, ok bool) *Portfolio {
	ret := portfolioReturn(mu, w)
	vol := math.Sqrt(portfolioVariance(cov, w))
	sharpe := 0.0
	if vol > 0 {
		sharpe = ret / vol
	}
	return &Portfolio{
		Weights:        w,
		ExpectedReturn: ret,
		Volatility:     vol,
		SharpeRatio:    sharpe,
		Converged:      ok,
	}
}

// MaxSharpe maximizes mu'w / sqrt(w'Sw) over fully invested portfolios within bounds
func MaxSharpe(mu []float64, cov mat.Symmetric, b Bounds) (*Portfolio, error) {
	if len(mu) != cov.Symmetric() {
		return nil, ErrDimensionMismatch
	}

	w, ok, err := minimize(len(mu), b, func(w []float64) float64 {
		vol := math.Sqrt(portfolioVariance(cov, w))
		if vol <= 0 {
			return 0
		}
		return -portfolioReturn(mu, w) / vol
	})
	if err != nil {
		return nil, err
	}

	return newPortfolio(mu, cov, w, ok), nil
}

// FrontierPoint is a minimum variance portfolio for a target return
type FrontierPoint struct {
	Target     float64   `json:"target_return"`
	Return     float64   `json:"return"`
	Volatility float64   `json:"volatility"`
	Weights    []float64 `json:"weights"`
}

// EfficientFrontier computes long-only minimum variance portfolios for evenly spaced target
// returns between the lowest and highest expected return. Targets the optimizer cannot
// reach are omitted.
func EfficientFrontier(mu []float64, cov mat.Symmetric, points int) ([]FrontierPoint, error) {
	if len(mu) != cov.Symmetric() {
		return nil, ErrDimensionMismatch
	}
	if points <= 0 {
		points = DefaultFrontierPoints
	}

	targets := make([]float64, points)
	if points == 1 {
		targets[0] = floats.Max(mu)
	} else {
		floats.Span(targets, floats.Min(mu), floats.Max(mu))
	}

	frontier := make([]FrontierPoint, 0, points)
	for _, target := range targets {
		target := target
		w, ok, err := minimize(len(mu), LongOnly, func(w []float64) float64 {
			miss := portfolioReturn(mu, w) - target
			return portfolioVariance(cov, w) + targetPenalty*miss*miss
		})
		if err != nil || !ok {
			log.Debug().Float64("Target", target).Msg("skipping unreachable frontier target")
			continue
		}
		frontier = append(frontier, FrontierPoint{
			Target:     target,
			Return:     portfolioReturn(mu, w),
			Volatility: math.Sqrt(portfolioVariance(cov, w)),
			Weights:    w,
		})
	}

	return frontier, nil
}

// RiskParityPortfolio adds the share of portfolio risk contributed by each asset
type RiskParityPortfolio struct {
	Portfolio
	RiskContributions []float64 `json:"risk_contributions"`
}

// riskContributions returns w_i (S w)_i / (w'Sw), which sums to one
func riskContributions(cov mat.Symmetric, w []float64) []float64 {
	var marginal mat.VecDense
	marginal.MulVec(cov, mat.NewVecDense(len(w), w))

	variance := portfolioVariance(cov, w)
	rc := make([]float64, len(w))
	if variance <= 0 {
		return rc
	}
	for idx := range w {
		rc[idx] = w[idx] * marginal.AtVec(idx) / variance
	}
	return rc
}

// RiskParity finds weights in [0.01, 1] whose risk contributions are equal
func RiskParity(mu []float64, cov mat.Symmetric) (*RiskParityPortfolio, error) {
	n := len(mu)
	if n != cov.Symmetric() {
		return nil, ErrDimensionMismatch
	}

	target := 1 / float64(n)
	w, ok, err := minimize(n, RiskParityBounds, func(w []float64) float64 {
		obj := 0.0
		for _, rc := range riskContributions(cov, w) {
			obj += (rc - target) * (rc - target)
		}
		return obj
	})
	if err != nil {
		return nil, err
	}

	return &RiskParityPortfolio{
		Portfolio:         *newPortfolio(mu, cov, w, ok),
		RiskContributions: riskContributions(cov, w),
	}, nil
}
