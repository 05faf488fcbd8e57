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
// This file implements the web research client used by the blog branch to
// ground its claims in current sources.
package cloud

import (
	"context"
	"net/http"
)

// SearchResult is one web research hit.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SearchClient performs web research queries.
type SearchClient struct {
	client *http.Client
	cfg    SearchService
}

// NewSearchClient builds a research client over the shared HTTP client.
func NewSearchClient(client *http.Client, cfg SearchService) *SearchClient {
	return &SearchClient{client: client, cfg: cfg}
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

// Search runs one research query and returns ranked results. An empty result
// set is not an error; the blog stage writes without references when the
// topic turns up nothing.
func (s *SearchClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	const op = "web_search"

	maxResults := s.cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	payload := searchRequest{Query: query, MaxResults: maxResults}
	headers := map[string]string{"Authorization": "Bearer " + s.cfg.APIKey}

	var resp searchResponse
	if err := postJSON(ctx, s.client, op, s.cfg.Endpoint, headers, &payload, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}
