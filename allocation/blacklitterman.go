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

// Package allocation builds fund portfolios from historical returns using Black-Litterman
// posterior returns, mean-variance weights and risk parity.
package allocation

import (
	"errors"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrTooFewAssets       = errors.New("at least two funds are required")
	ErrSingularMatrix     = errors.New("matrix is singular")
	ErrNoCandidates       = errors.New("no schemes with sufficient observations")
	ErrDimensionMismatch  = errors.New("matrix dimensions do not agree")
	ErrInvalidView        = errors.New("view references an unknown fund")
	ErrInfeasibleBounds   = errors.New("weight bounds cannot sum to one")
	ErrInsufficientReturn = errors.New("not enough aligned return observations")
)

// invert returns the inverse of a. Ill-conditioned matrices are accepted; only an exactly
// singular matrix is an error.
func invert(a mat.Matrix) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) && !math.IsInf(float64(cond), 1) {
			log.Debug().Float64("Condition", float64(cond)).Msg("inverting ill-conditioned matrix")
			return &inv, nil
		}
		return nil, ErrSingularMatrix
	}
	return &inv, nil
}

// symmetrize returns (a + a^T) / 2
func symmetrize(a mat.Matrix) *mat.SymDense {
	n, _ := a.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return sym
}

func checkDims(pi []float64, views mat.Matrix, q []float64, cov mat.Symmetric) error {
	n := cov.Symmetric()
	k, c := views.Dims()
	if len(pi) != n || c != n || len(q) != k {
		return ErrDimensionMismatch
	}
	return nil
}

// posterior computes the Black-Litterman posterior mean and the covariance of the
// posterior estimate (without the prior covariance added back)
func posterior(tau float64, pi []float64, views mat.Matrix, q []float64, cov mat.Symmetric, omega mat.Matrix) ([]float64, *mat.Dense, error) {
	n := len(pi)

	var tauCov mat.Dense
	tauCov.Scale(tau, cov)

	invTauCov, err := invert(&tauCov)
	if err != nil {
		return nil, nil, err
	}

	invOmega, err := invert(omega)
	if err != nil {
		return nil, nil, err
	}

	var precision mat.Dense
	precision.Product(views.T(), invOmega, views)
	precision.Add(&precision, invTauCov)

	postCov, err := invert(&precision)
	if err != nil {
		return nil, nil, err
	}

	var prior, viewTerm mat.VecDense
	prior.MulVec(invTauCov, mat.NewVecDense(n, pi))

	var weightedViews mat.Dense
	weightedViews.Mul(views.T(), invOmega)
	viewTerm.MulVec(&weightedViews, mat.NewVecDense(len(q), q))
	prior.AddVec(&prior, &viewTerm)

	var mu mat.VecDense
	mu.MulVec(postCov, &prior)

	return mu.RawVector().Data, postCov, nil
}

// Posterior returns Black-Litterman expected returns
//
//	mu = [(tau S)^-1 + P^T O^-1 P]^-1 [(tau S)^-1 pi + P^T O^-1 Q]
//
// with the view uncertainty O = P (tau S) P^T.
func Posterior(tau float64, pi []float64, views mat.Matrix, q []float64, cov mat.Symmetric) ([]float64, error) {
	if err := checkDims(pi, views, q, cov); err != nil {
		return nil, err
	}

	var omega mat.Dense
	omega.Product(views, scaled(tau, cov), views.T())

	mu, _, err := posterior(tau, pi, views, q, cov, &omega)
	return mu, err
}

// PosteriorWithOmega returns the posterior mean and covariance. A nil omega defaults to
// the diagonal of P (tau S) P^T. The returned covariance is the posterior estimate
// covariance plus the prior covariance.
func PosteriorWithOmega(tau float64, pi []float64, views mat.Matrix, q []float64, cov mat.Symmetric, omega mat.Matrix) ([]float64, *mat.SymDense, error) {
	if err := checkDims(pi, views, q, cov); err != nil {
		return nil, nil, err
	}

	if omega == nil {
		var full mat.Dense
		full.Product(views, scaled(tau, cov), views.T())
		k, _ := full.Dims()
		diag := mat.NewDiagDense(k, nil)
		for i := 0; i < k; i++ {
			diag.SetDiag(i, full.At(i, i))
		}
		omega = diag
	}

	mu, postCov, err := posterior(tau, pi, views, q, cov, omega)
	if err != nil {
		return nil, nil, err
	}

	postCov.Add(postCov, cov)
	return mu, symmetrize(postCov), nil
}

func scaled(f float64, a mat.Symmetric) *mat.SymDense {
	s := mat.NewSymDense(a.Symmetric(), nil)
	s.ScaleSym(f, a)
	return s
}

// EquilibriumReturns are the implied excess returns delta * S * w
func EquilibriumReturns(delta float64, cov mat.Symmetric, weights []float64) []float64 {
	var pi mat.VecDense
	pi.MulVec(cov, mat.NewVecDense(len(weights), weights))
	pi.ScaleVec(delta, &pi)
	return pi.RawVector().Data
}

// MarkowitzWeights returns the unconstrained mean-variance weights (delta S)^-1 mu,
// normalized to sum to one when the sum is finite and not near zero
func MarkowitzWeights(mu []float64, cov mat.Symmetric, delta float64) ([]float64, error) {
	if len(mu) != cov.Symmetric() {
		return nil, ErrDimensionMismatch
	}

	inv, err := invert(scaled(delta, cov))
	if err != nil {
		return nil, err
	}

	var w mat.VecDense
	w.MulVec(inv, mat.NewVecDense(len(mu), mu))
	weights := w.RawVector().Data

	finite := true
	for _, v := range weights {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			finite = false
			break
		}
	}

	if sum := floats.Sum(weights); finite && math.Abs(sum) > 1e-8 {
		floats.Scale(1/sum, weights)
	}

	return weights, nil
}

// CleanWeights zeroes weights below 1e-6 (including all shorts) and renormalizes the rest
func CleanWeights(weights []float64) []float64 {
	cleaned := make([]float64, len(weights))
	for idx, w := range weights {
		if w >= 1e-6 {
			cleaned[idx] = w
		}
	}
	if sum := floats.Sum(cleaned); sum > 0 {
		floats.Scale(1/sum, cleaned)
	}
	return cleaned
}

// CovarianceFromMetrics builds a covariance matrix from annual volatilities assuming a
// constant pairwise correlation rho
func CovarianceFromMetrics(vols []float64, rho float64) *mat.SymDense {
	n := len(vols)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			corr := rho
			if i == j {
				corr = 1
			}
			cov.SetSym(i, j, corr*vols[i]*vols[j])
		}
	}
	return cov
}
