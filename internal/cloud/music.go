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
// This file implements the background-music client. A campaign fetches one
// royalty-free bed track, shared by all four video branches, so the provider
// is hit once per campaign rather than once per video.
package cloud

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mediaforge/campaign-engine/internal/core/fault"
)

// MusicClient fetches royalty-free background music.
type MusicClient struct {
	client *http.Client
	cfg    MusicService
}

// NewMusicClient builds a music client over the shared HTTP client.
func NewMusicClient(client *http.Client, cfg MusicService) *MusicClient {
	return &MusicClient{client: client, cfg: cfg}
}

// FetchTrack downloads one MP3 bed track matching the campaign mood.
func (m *MusicClient) FetchTrack(ctx context.Context, mood string) ([]byte, error) {
	const op = "music_fetch"

	endpoint := fmt.Sprintf("%s?mood=%s", m.cfg.Endpoint, url.QueryEscape(mood))
	headers := map[string]string{"Authorization": "Bearer " + m.cfg.APIKey}

	track, err := getBinary(ctx, m.client, op, endpoint, headers)
	if err != nil {
		return nil, err
	}
	if len(track) == 0 {
		return nil, fault.Transient(op, fmt.Errorf("provider returned empty track"))
	}
	return track, nil
}
