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

package data

import "errors"

var (
	ErrFundNotFound         = errors.New("fund not found")
	ErrNoNavHistory         = errors.New("no nav history available")
	ErrInsufficientHistory  = errors.New("not enough nav history")
	ErrInvalidTimeRange     = errors.New("begin must be before end")
	ErrUnexpectedStatusCode = errors.New("nav source returned an unexpected status code")
	ErrInvalidNav           = errors.New("could not parse nav")
	ErrBacktestNotFound     = errors.New("backtest not found")
	ErrNotSupportedBySource = errors.New("operation not supported by data source")
)
