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

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/fundrec/common"
	"github.com/penny-vault/fundrec/dataframe"
	"github.com/penny-vault/fundrec/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultMfApiURL = "https://api.mfapi.in"

type MfApi struct {
	baseURL string
	client  *http.Client
}

type mfapiMeta struct {
	FundHouse      string `json:"fund_house"`
	SchemeType     string `json:"scheme_type"`
	SchemeCategory string `json:"scheme_category"`
	SchemeCode     int64  `json:"scheme_code"`
	SchemeName     string `json:"scheme_name"`
}

type mfapiNav struct {
	Date string `json:"date"`
	Nav  string `json:"nav"`
}

type mfapiNavResponse struct {
	Meta   mfapiMeta  `json:"meta"`
	Data   []mfapiNav `json:"data"`
	Status string     `json:"status"`
}

// SchemeSummary is an entry in the mfapi scheme list
type SchemeSummary struct {
	SchemeCode int64  `json:"schemeCode"`
	SchemeName string `json:"schemeName"`
}

// NewMfApi creates a NAV source that reads from mfapi.in
func NewMfApi() *MfApi {
	baseURL := viper.GetString("mfapi.url")
	if baseURL == "" {
		baseURL = DefaultMfApiURL
	}

	return &MfApi{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (m *MfApi) get(ctx context.Context, path string, target interface{}) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "mfapi.get")
	defer span.End()

	reqURL := m.baseURL + path
	span.SetAttributes(attribute.String("Url", reqURL))
	subLog := log.With().Str("Url", reqURL).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		span.RecordError(err)
		return err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		span.RecordError(err)
		msg := "mfapi http request failed"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Msg(msg)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		span.SetAttributes(attribute.Int("StatusCode", resp.StatusCode))
		msg := "mfapi returned invalid response code"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Int("HTTPResponseStatusCode", resp.StatusCode).Msg(msg)
		if resp.StatusCode == http.StatusNotFound {
			return ErrNoNavHistory
		}
		return fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		msg := "could not read mfapi body"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Msg(msg)
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		span.RecordError(err)
		msg := "could not unmarshal json"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Bytes("Body", body).Msg(msg)
		return err
	}

	return nil
}

// ParseNav parses a published nav value; thousands separators are permitted
func ParseNav(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNav, s)
	}
	return val, nil
}

func (m *MfApi) fetch(ctx context.Context, schemeCode string) (*mfapiNavResponse, error) {
	resp := &mfapiNavResponse{}
	if err := m.get(ctx, "/mf/"+url.PathEscape(schemeCode), resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// NavHistory downloads the full history of a scheme and returns the observations between begin and end
func (m *MfApi) NavHistory(ctx context.Context, schemeCode string, begin, end time.Time) (*dataframe.DataFrame, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "mfapi.NavHistory")
	defer span.End()

	if end.Before(begin) {
		return nil, ErrInvalidTimeRange
	}

	subLog := log.With().Str("SchemeCode", schemeCode).Logger()

	resp, err := m.fetch(ctx, schemeCode)
	if err != nil {
		return nil, err
	}

	tz := common.GetTimezone()
	points := make([]NavPoint, 0, len(resp.Data))
	for _, raw := range resp.Data {
		dt, err := time.ParseInLocation("02-01-2006", raw.Date, tz)
		if err != nil {
			subLog.Warn().Str("DateStr", raw.Date).Msg("skipping nav with unparseable date")
			continue
		}
		nav, err := ParseNav(raw.Nav)
		if err != nil {
			subLog.Warn().Str("NavStr", raw.Nav).Msg("unparseable nav treated as missing")
			nav = math.NaN()
		}
		points = append(points, NavPoint{Date: dt, Nav: nav})
	}

	df := CleanNav(schemeCode, points).Trim(begin, end)
	if df.Len() == 0 {
		span.SetStatus(codes.Error, "no nav history")
		return nil, ErrNoNavHistory
	}

	span.SetAttributes(attribute.Int("NumObservations", df.Len()))
	return df, nil
}

// Fund builds a minimal fund record from the scheme metadata. mfapi does not publish
// ratings or risk metrics so those fields are zero.
func (m *MfApi) Fund(ctx context.Context, schemeCode string) (*Fund, error) {
	resp, err := m.fetch(ctx, schemeCode)
	if err != nil {
		return nil, err
	}
	if resp.Meta.SchemeCode == 0 {
		return nil, ErrFundNotFound
	}

	return &Fund{
		SchemeCode: strconv.FormatInt(resp.Meta.SchemeCode, 10),
		SchemeName: resp.Meta.SchemeName,
		AmcName:    resp.Meta.FundHouse,
		Category:   resp.Meta.SchemeCategory,
	}, nil
}

// Funds is not available from mfapi
func (m *MfApi) Funds(ctx context.Context) ([]*Fund, error) {
	return nil, ErrNotSupportedBySource
}

// SchemeCodes returns every scheme code known to mfapi
func (m *MfApi) SchemeCodes(ctx context.Context) ([]string, error) {
	schemes := make([]SchemeSummary, 0)
	if err := m.get(ctx, "/mf", &schemes); err != nil {
		return nil, err
	}

	codeList := make([]string, len(schemes))
	for idx, s := range schemes {
		codeList[idx] = strconv.FormatInt(s.SchemeCode, 10)
	}
	return codeList, nil
}

// Search returns schemes whose name matches the query
func (m *MfApi) Search(ctx context.Context, query string) ([]SchemeSummary, error) {
	schemes := make([]SchemeSummary, 0)
	if err := m.get(ctx, "/mf/search?q="+url.QueryEscape(query), &schemes); err != nil {
		return nil, err
	}
	return schemes, nil
}
