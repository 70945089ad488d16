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

	"github.com/penny-vault/fundrec/dataframe"
	"gonum.org/v1/gonum/mat"
)

// ReturnsMatrix converts nav histories into aligned daily simple returns with one
// column per scheme (ordered by scheme code). Schemes with fewer than minObs returns are
// dropped, then every date with a missing return is dropped.
func ReturnsMatrix(histories dataframe.Map, minObs int) (*dataframe.DataFrame, error) {
	returns := make(dataframe.Map, len(histories))
	for code, nav := range histories {
		if nav.Len() < 2 {
			continue
		}
		returns[code] = nav.PctChange()
	}

	df := returns.DataFrame()
	obs := make(map[string]int, df.ColCount())
	for idx, cnt := range df.Count() {
		obs[df.ColNames[idx]] = cnt
	}
	df.DropColumns(func(code string, _ []float64) bool {
		return obs[code] < minObs
	})

	if df.ColCount() == 0 {
		return nil, ErrNoCandidates
	}

	df.Drop(math.NaN())
	if df.Len() < 2 {
		return nil, ErrInsufficientReturn
	}

	return df, nil
}

// EstimatePrior annualizes the mean and covariance of daily returns
func EstimatePrior(returns *dataframe.DataFrame, annualizeFactor int) ([]float64, *mat.SymDense) {
	factor := float64(annualizeFactor)

	pi := returns.ColMean()
	for idx := range pi {
		pi[idx] *= factor
	}

	cov := returns.Covariance()
	cov.ScaleSym(factor, cov)
	return pi, cov
}
