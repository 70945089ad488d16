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

// Package simulate runs Monte Carlo simulations of fund NAVs using geometric Brownian motion
package simulate

import (
	"context"
	"errors"
	"math"
	"runtime"

	"github.com/penny-vault/fundrec/observability/opentelemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultPaths   = 500
	DefaultHorizon = 30
	DefaultSeed    = 42

	// paths generated by a single worker
	chunkSize = 256
)

var (
	ErrInvalidParameters = errors.New("invalid simulation parameters")
	ErrNotEnoughHistory  = errors.New("at least three nav observations are required")
)

// Params describes a GBM process in per-step units
type Params struct {
	S0    float64 `json:"s0"`
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
	Dt    float64 `json:"dt"`
}

// Simulation holds generated paths. Paths[i][t] is the value of path i after t+1 steps.
type Simulation struct {
	Params
	Paths [][]float64 `json:"-"`
}

// EstimateParams derives the drift and volatility of daily log returns from a nav series
func EstimateParams(navs []float64) (Params, error) {
	if len(navs) < 3 {
		return Params{}, ErrNotEnoughHistory
	}

	logReturns := make([]float64, 0, len(navs)-1)
	for idx := 1; idx < len(navs); idx++ {
		if navs[idx-1] <= 0 || navs[idx] <= 0 {
			return Params{}, ErrInvalidParameters
		}
		logReturns = append(logReturns, math.Log(navs[idx]/navs[idx-1]))
	}

	mu, sigma := stat.MeanStdDev(logReturns, nil)
	return Params{
		S0:    navs[len(navs)-1],
		Mu:    mu,
		Sigma: sigma,
		Dt:    1,
	}, nil
}

func seedForChunk(seed uint64, chunk int) uint64 {
	return seed ^ (uint64(chunk+1) * 0x9E3779B97F4A7C15)
}

// Run generates n paths of the given number of steps. Output is deterministic for a seed
// regardless of how many workers are used.
func Run(ctx context.Context, p Params, n, steps int, seed uint64) (*Simulation, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "simulate.Run")
	defer span.End()

	span.SetAttributes(attribute.Int("Paths", n), attribute.Int("Steps", steps))

	if n <= 0 || steps <= 0 || p.S0 <= 0 || p.Sigma < 0 || p.Dt <= 0 ||
		math.IsNaN(p.Mu) || math.IsNaN(p.Sigma) {
		return nil, ErrInvalidParameters
	}

	paths := make([][]float64, n)
	drift := (p.Mu - 0.5*p.Sigma*p.Sigma) * p.Dt
	diffusion := p.Sigma * math.Sqrt(p.Dt)

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(runtime.GOMAXPROCS(0))

	for chunk := 0; chunk*chunkSize < n; chunk++ {
		chunk := chunk
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			shock := distuv.Normal{
				Mu:    drift,
				Sigma: diffusion,
				Src:   rand.NewSource(seedForChunk(seed, chunk)),
			}

			last := (chunk + 1) * chunkSize
			if last > n {
				last = n
			}

			for pathIdx := chunk * chunkSize; pathIdx < last; pathIdx++ {
				path := make([]float64, steps)
				cum := 0.0
				for t := range path {
					cum += shock.Rand()
					path[t] = p.S0 * math.Exp(cum)
				}
				paths[pathIdx] = path
			}
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}

	return &Simulation{Params: p, Paths: paths}, nil
}

// FromHistory estimates GBM parameters from a nav series and simulates forward
func FromHistory(ctx context.Context, navs []float64, n, horizon int, seed uint64) (*Simulation, error) {
	p, err := EstimateParams(navs)
	if err != nil {
		return nil, err
	}
	return Run(ctx, p, n, horizon, seed)
}

// Expectation is the closed form mean and variance of a GBM at each step
type Expectation struct {
	Expected []float64 `json:"expected"`
	Variance []float64 `json:"variance"`
}

// GBMExpectation computes E[S_t] = S0 exp(mu t) and Var[S_t] = S0^2 exp(2 mu t) (exp(sigma^2 t) - 1)
// for t = 1..horizon using parameters estimated from the nav series
func GBMExpectation(navs []float64, horizon int) (*Expectation, error) {
	if horizon <= 0 {
		return nil, ErrInvalidParameters
	}

	p, err := EstimateParams(navs)
	if err != nil {
		return nil, err
	}

	res := &Expectation{
		Expected: make([]float64, horizon),
		Variance: make([]float64, horizon),
	}

	for idx := 0; idx < horizon; idx++ {
		t := float64(idx + 1)
		grow := math.Exp(p.Mu * t)
		res.Expected[idx] = p.S0 * grow
		res.Variance[idx] = p.S0 * p.S0 * grow * grow * (math.Exp(p.Sigma*p.Sigma*t) - 1)
	}

	return res, nil
}

// Final returns the terminal value of every path
func (s *Simulation) Final() []float64 {
	final := make([]float64, len(s.Paths))
	for idx, path := range s.Paths {
		final[idx] = path[len(path)-1]
	}
	return final
}

// Steps returns the number of steps in each path
func (s *Simulation) Steps() int {
	if len(s.Paths) == 0 {
		return 0
	}
	return len(s.Paths[0])
}
