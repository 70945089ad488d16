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

package handler

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const maxRangeItems = 100

var rangeRegex = regexp.MustCompile(`((\w+)=)?(\d+)-(\d+)`)

// parseRange reads a Range header of the form items=begin-end (inclusive) and returns the
// limit and offset it selects
func parseRange(r string) (int, int, error) {
	if r == "" {
		return maxRangeItems, 0, nil
	}

	res := rangeRegex.FindStringSubmatch(r)
	if res == nil {
		return 0, 0, fiber.ErrRequestedRangeNotSatisfiable
	}

	if res[2] != "" && res[2] != "items" {
		return 0, 0, fiber.ErrRequestedRangeNotSatisfiable
	}

	begin, err := strconv.ParseInt(res[3], 10, 32)
	if err != nil {
		log.Error().Err(err).Msg("could not parse range begin")
		return 0, 0, fiber.ErrRequestedRangeNotSatisfiable
	}

	end, err := strconv.ParseInt(res[4], 10, 32)
	if err != nil {
		log.Error().Err(err).Msg("could not parse range end")
		return 0, 0, fiber.ErrRequestedRangeNotSatisfiable
	}

	if end < begin {
		log.Warn().Int64("Begin", begin).Int64("End", end).Msg("range error: end < begin")
		return 0, 0, fiber.ErrRequestedRangeNotSatisfiable
	}

	limit := int(end - begin + 1)
	if limit > maxRangeItems {
		log.Warn().Int("Limit", limit).Msg("range too large")
		return 0, 0, fiber.ErrRequestedRangeNotSatisfiable
	}

	return limit, int(begin), nil
}

// page returns the window of n items selected by limit and offset
func page(n, limit, offset int) (int, int) {
	if offset > n {
		offset = n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return offset, end
}

// contentRange formats the Content-Range reply for items [begin, end) of total
func contentRange(begin, end, total int) string {
	if end <= begin {
		return fmt.Sprintf("items */%d", total)
	}
	return fmt.Sprintf("items %d-%d/%d", begin, end-1, total)
}
