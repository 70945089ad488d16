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
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/fundrec/analytics"
	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/data"
)

const dateLayout = "2006-01-02"

// dateRange parses optional YYYY-MM-DD dates in the nav timezone. Missing values select
// the full history and the end date is inclusive.
func dateRange(start, end string) (time.Time, time.Time, error) {
	begin, until := data.FarPast, data.FarFuture
	tz := common.GetTimezone()
	if start != "" {
		dt, err := time.ParseInLocation(dateLayout, start, tz)
		if err != nil {
			return begin, until, fiber.NewError(fiber.StatusBadRequest, "start must be formatted as YYYY-MM-DD")
		}
		begin = dt
	}
	if end != "" {
		dt, err := time.ParseInLocation(dateLayout, end, tz)
		if err != nil {
			return begin, until, fiber.NewError(fiber.StatusBadRequest, "end must be formatted as YYYY-MM-DD")
		}
		until = dt.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return begin, until, nil
}

// ListFunds returns the catalog filtered by the category, amc and q query params
func (h *Handler) ListFunds(c *fiber.Ctx) error {
	subLog := endpointLog("ListFunds")

	limit, offset, err := parseRange(c.Get(fiber.HeaderRange))
	if err != nil {
		return err
	}

	funds, err := h.provider.Funds(c.UserContext())
	if err != nil {
		return translate(subLog, err)
	}

	category := c.Query("category")
	amc := c.Query("amc")
	q := c.Query("q")

	matches := make([]*data.Fund, 0, len(funds))
	for _, f := range funds {
		if category != "" && !strings.EqualFold(f.Category, category) {
			continue
		}
		if amc != "" && !strings.Contains(strings.ToLower(f.AmcName), strings.ToLower(amc)) {
			continue
		}
		if !f.MatchesQuery(q) {
			continue
		}
		matches = append(matches, f)
	}

	begin, end := page(len(matches), limit, offset)
	c.Append(fiber.HeaderContentRange, contentRange(begin, end, len(matches)))
	return c.JSON(matches[begin:end])
}

func (h *Handler) GetFund(c *fiber.Ctx) error {
	code := c.Params("code")
	subLog := endpointLog("GetFund").With().Str("SchemeCode", code).Logger()

	f, err := h.provider.Fund(c.UserContext(), code)
	if err != nil {
		return translate(subLog, err)
	}
	return c.JSON(f)
}

// GetNav returns the nav history of a scheme between the optional start and end dates
func (h *Handler) GetNav(c *fiber.Ctx) error {
	code := c.Params("code")
	subLog := endpointLog("GetNav").With().Str("SchemeCode", code).Logger()

	begin, end, err := dateRange(c.Query("start"), c.Query("end"))
	if err != nil {
		return err
	}

	df, err := h.provider.NavHistory(c.UserContext(), code, begin, end)
	if err != nil {
		return translate(subLog, err)
	}
	return c.JSON(data.NavPoints(df))
}

// GetAnalytics returns signals, drawdown and volatility forecasts for a scheme. Schemes
// without nav history still get the signals derived from their published metrics.
func (h *Handler) GetAnalytics(c *fiber.Ctx) error {
	code := c.Params("code")
	subLog := endpointLog("GetAnalytics").With().Str("SchemeCode", code).Logger()
	ctx := c.UserContext()

	f, err := h.provider.Fund(ctx, code)
	if err != nil {
		return translate(subLog, err)
	}

	nav, err := h.provider.NavHistory(ctx, code, data.FarPast, data.FarFuture)
	if err != nil {
		if !errors.Is(err, data.ErrNoNavHistory) {
			return translate(subLog, err)
		}
		nav = nil
	}

	return c.JSON(analytics.FundAnalytics(f, nav))
}

type Category struct {
	Name  string `json:"category"`
	Count int    `json:"count"`
}

func (h *Handler) ListCategories(c *fiber.Ctx) error {
	subLog := endpointLog("ListCategories")

	funds, err := h.provider.Funds(c.UserContext())
	if err != nil {
		return translate(subLog, err)
	}

	counts := make(map[string]int)
	for _, f := range funds {
		counts[f.Category]++
	}

	categories := make([]Category, 0, len(counts))
	for name, cnt := range counts {
		categories = append(categories, Category{Name: name, Count: cnt})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })

	return c.JSON(categories)
}
