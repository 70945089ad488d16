// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger creates a middleware that writes one zerolog event per request
func NewLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Handle request, store err for logging
		chainErr := c.Next()

		// Manually call error handler so the logged status matches the response
		if chainErr != nil {
			if err := c.App().Config().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		code := c.Response().StatusCode()

		var event *zerolog.Event
		var msg string
		switch {
		case code >= fiber.StatusOK && code < fiber.StatusMultipleChoices:
			event, msg = log.Info(), "processed HTTP request"
		case code >= fiber.StatusMultipleChoices && code < fiber.StatusBadRequest:
			event, msg = log.Info(), "forward HTTP request"
		case code >= fiber.StatusBadRequest && code < fiber.StatusInternalServerError:
			event, msg = log.Warn(), "bad HTTP request"
		default:
			event, msg = log.Error(), "internal server error"
		}

		if chainErr != nil {
			event = event.Err(chainErr)
		}

		event.
			Int("StatusCode", code).
			Dur("Latency", time.Since(start).Round(time.Millisecond)).
			Str("IP", c.IP()).
			Str("Method", c.Method()).
			Str("Path", c.Path()).
			Str("Route", c.Route().Path).
			Str("Protocol", c.Protocol()).
			Str("Host", c.Hostname()).
			Str("UserAgent", c.Get(fiber.HeaderUserAgent)).
			Str("XForwardedFor", c.Get(fiber.HeaderXForwardedFor)).
			Str("QueryStringParams", c.Request().URI().QueryArgs().String()).
			Int("NumBytesReceived", len(c.Request().Body())).
			Int("NumBytesSent", len(c.Response().Body())).
			Msg(msg)

		return nil
	}
}
