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

package messenger

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/penny-vault/fundrec/common"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ErrNotConnected = errors.New("not connected to NATS")
)

type BacktestRequest struct {
	BacktestID  string `json:"backtest_id"`
	RequestTime string `json:"request_time"`
}

// NewBacktestRequest encodes a request for the backtest with the given id
func NewBacktestRequest(id uuid.UUID) ([]byte, error) {
	req := BacktestRequest{
		BacktestID:  id.String(),
		RequestTime: time.Now().In(common.GetTimezone()).Format(time.RFC3339),
	}
	return json.Marshal(req)
}

// DecodeBacktestRequest returns the backtest id carried by a request message
func DecodeBacktestRequest(payload []byte) (uuid.UUID, error) {
	req := BacktestRequest{}
	if err := json.Unmarshal(payload, &req); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(req.BacktestID)
}

// GetBacktestRequest returns a single backtest request message, or nil when the queue
// is empty
func GetBacktestRequest() (*nats.Msg, error) {
	if jetStream == nil {
		return nil, ErrNotConnected
	}

	sub, err := jetStream.PullSubscribe(viper.GetString("nats.requests_subject"), viper.GetString("nats.requests_consumer"))
	if err != nil {
		log.Error().Err(err).Msg("could not connect to durable consumer (note: make sure the consumer already exists)")
		return nil, err
	}

	msgs, err := sub.Fetch(1)
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) {
			log.Debug().Msg("no requests available in queue")
			return nil, nil
		}
		log.Error().Err(err).Msg("could not fetch new messages")
		return nil, err
	}

	if len(msgs) == 0 {
		log.Info().Msg("no backtest requests in queue")
		return nil, nil
	}

	return msgs[0], nil
}

// CreateBacktestRequest publishes a request for the worker to run a queued backtest
func CreateBacktestRequest(id uuid.UUID) error {
	if jetStream == nil {
		return ErrNotConnected
	}

	subject := viper.GetString("nats.requests_subject")
	jsonReq, err := NewBacktestRequest(id)
	if err != nil {
		log.Error().Err(err).Msg("could not serialize request to JSON")
		return err
	}

	if _, err := jetStream.Publish(subject, jsonReq); err != nil {
		log.Error().Err(err).Str("Subject", subject).Msg("could not publish a backtest request")
		return err
	}

	return nil
}

// Publisher queues backtest requests on JetStream
type Publisher struct{}

func (Publisher) Publish(ctx context.Context, id uuid.UUID) error {
	return CreateBacktestRequest(id)
}
