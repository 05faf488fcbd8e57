// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud holds the provider clients and the application configuration.
// This file implements a decorator around the generative model client that
// adds rate limiting. Provider quotas are enforced here, at the client, so
// every stage sharing a binding stays inside the per-model request budget.
// The wrapper performs exactly one attempt per call: retry policy lives in
// the engine's fault package, never in a provider client.
package cloud

import (
	"context"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeAIModel wraps a generative model binding with a rate
// limiter. All fields of the underlying binding remain accessible; only
// GenerateContent gains the quota gate.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // The generation parameters for this binding.
	ModelName               string                       // The provider model name.
	ModelHandle             *genai.Models                // The underlying model API surface.
	Limiter                 *rate.Limiter                // Token bucket enforcing the binding's request budget.
}

// NewQuotaAwareModel wraps a model binding with a limiter allowing
// requestsPerSecond sustained calls (with an equal burst).
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               name,
		ModelHandle:             handle,
		Limiter:                 rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// GenerateContent blocks until the rate limiter admits the call, then makes
// exactly one request. A context cancelled while waiting (for example by a
// branch deadline) returns immediately with the context's error.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
}
