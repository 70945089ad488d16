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

package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/fundrec/observability/opentelemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NewTracer starts a server span for every request and makes it the parent of spans
// created from c.UserContext()
func NewTracer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := otel.Tracer(opentelemetry.Name).Start(c.UserContext(), c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(opentelemetry.SpanAttributesFromFiber(c)...),
		)
		defer span.End()

		c.SetUserContext(ctx)
		err := c.Next()

		code := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		span.SetAttributes(attribute.Int("http.status_code", code))
		if err != nil {
			span.RecordError(err)
		}
		if code >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, "request failed")
		}
		return err
	}
}
