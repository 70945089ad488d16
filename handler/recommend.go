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
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/fundrec/recommend"
	"github.com/penny-vault/fundrec/risk"
)

// RiskProfile scores the risk questionnaire
func (h *Handler) RiskProfile(c *fiber.Ctx) error {
	subLog := endpointLog("RiskProfile")

	inv := risk.Investor{}
	if err := parseBody(c, &inv); err != nil {
		return err
	}

	profile, err := risk.Assess(inv)
	if err != nil {
		return translate(subLog, err)
	}
	return c.JSON(profile)
}

// RecommendRequest is a set of constraints with an optional questionnaire. When the
// questionnaire is present its risk level and volatility tolerance replace the ones in
// the constraints.
type RecommendRequest struct {
	recommend.Constraints
	Profile *risk.Investor `json:"profile" validate:"omitempty"`
}

func (h *Handler) Recommend(c *fiber.Ctx) error {
	subLog := endpointLog("Recommend")

	req := RecommendRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if req.Profile != nil {
		profile, err := risk.Assess(*req.Profile)
		if err != nil {
			return translate(subLog, err)
		}
		req.Constraints.FromProfile(profile)
	}

	res, err := h.engine.Recommend(c.UserContext(), req.Constraints)
	if err != nil {
		return translate(subLog, err)
	}
	return c.JSON(res)
}

type SIPRequest struct {
	Monthly      float64    `json:"monthly_amount" validate:"gt=0"`
	RiskLevel    risk.Level `json:"risk_level" validate:"gte=0,lte=5"`
	HorizonYears float64    `json:"horizon_years" validate:"gte=0,lte=50"`
}

type SIPResponse struct {
	Monthly         float64            `json:"monthly_amount"`
	RiskLevel       risk.Level         `json:"risk_level"`
	Recommendations []recommend.Scored `json:"recommendations"`
}

func (h *Handler) RecommendSIP(c *fiber.Ctx) error {
	subLog := endpointLog("RecommendSIP")

	req := SIPRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if !req.RiskLevel.Valid() {
		req.RiskLevel = risk.Moderate
	}

	scored, err := h.engine.RecommendSIP(c.UserContext(), req.Monthly, req.RiskLevel, req.HorizonYears)
	if err != nil {
		return translate(subLog, err)
	}
	return c.JSON(SIPResponse{
		Monthly:         req.Monthly,
		RiskLevel:       req.RiskLevel,
		Recommendations: scored,
	})
}

// Compare lists the funds named by the comma separated codes query param side by side
func (h *Handler) Compare(c *fiber.Ctx) error {
	subLog := endpointLog("Compare")

	codes := make([]string, 0)
	for _, code := range strings.Split(c.Query("codes"), ",") {
		code = strings.TrimSpace(code)
		if code != "" {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "codes query parameter is required")
	}

	cmp, err := h.engine.Compare(c.UserContext(), codes)
	if err != nil {
		return translate(subLog, err)
	}
	return c.JSON(cmp)
}
