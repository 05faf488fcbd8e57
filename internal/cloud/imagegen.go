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
// This file implements the image-generation client. One client is built per
// credential shard; each video branch is pinned to its own shard so branch
// concurrency never multiplies pressure on a single API key. The per-shard
// rate limiter enforces the key's request budget across the worker pool that
// shares the shard within a branch.
package cloud

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/mediaforge/campaign-engine/internal/core/fault"
)

// ImageGenClient generates images against one credential shard.
type ImageGenClient struct {
	client  *http.Client
	cfg     ImageShard
	limiter *rate.Limiter
}

// NewImageGenClient builds an image client for one shard, with a token
// bucket sized to the shard's rate limit.
func NewImageGenClient(client *http.Client, cfg ImageShard) *ImageGenClient {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 1
	}
	return &ImageGenClient{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

type imageRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	// Steps and guidance use provider defaults when zero.
	Steps int `json:"steps,omitempty"`
}

type imageResponse struct {
	Images []struct {
		Base64 string `json:"b64_json"`
	} `json:"images"`
}

// Generate produces one PNG image for the prompt at the given dimensions.
// The call blocks on the shard's rate limiter first, so a worker pool
// sharing the shard is throttled collectively.
func (g *ImageGenClient) Generate(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	const op = "image_generate"

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fault.Transient(op, err)
	}

	payload := imageRequest{
		Prompt: prompt,
		Model:  g.cfg.Model,
		Width:  width,
		Height: height,
	}
	headers := map[string]string{"Authorization": "Bearer " + g.cfg.APIKey}

	var resp imageResponse
	if err := postJSON(ctx, g.client, op, g.cfg.Endpoint, headers, &payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Images) == 0 {
		return nil, fault.Transient(op, fmt.Errorf("provider returned no images"))
	}

	img, err := base64.StdEncoding.DecodeString(resp.Images[0].Base64)
	if err != nil {
		return nil, fault.Transient(op, fmt.Errorf("provider image payload is not valid base64: %w", err))
	}
	if len(img) == 0 {
		return nil, fault.Transient(op, fmt.Errorf("provider returned empty image"))
	}
	return img, nil
}
