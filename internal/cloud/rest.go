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
// This file carries the small shared plumbing for the REST providers: JSON
// request execution and the mapping from HTTP status codes onto the fault
// taxonomy. Rate limits and server errors classify as transient so the
// engine's bounded retry re-attempts them; client errors classify as invalid
// input and fail immediately.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mediaforge/campaign-engine/internal/core/fault"
)

// classifyStatus maps a non-2xx provider response onto the fault taxonomy.
func classifyStatus(op string, status int, body []byte) error {
	err := fmt.Errorf("provider returned %d: %s", status, truncate(body, 512))
	if status == http.StatusTooManyRequests || status >= 500 {
		return fault.Transient(op, err)
	}
	return fault.InvalidInput(op, err)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// postJSON executes one JSON POST and decodes a JSON response into out. A
// transport-level failure classifies as transient. Exactly one attempt is
// made; retries belong to the calling stage.
func postJSON(ctx context.Context, client *http.Client, op, url string, headers map[string]string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fault.InvalidInput(op, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fault.InvalidInput(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fault.Transient(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fault.Transient(op, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(op, resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fault.Transient(op, fmt.Errorf("provider response is not valid JSON: %w", err))
	}
	return nil
}

// getBinary executes one GET expected to return a binary payload.
func getBinary(ctx context.Context, client *http.Client, op, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fault.InvalidInput(op, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fault.Transient(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Transient(op, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(op, resp.StatusCode, body)
	}
	return body, nil
}
