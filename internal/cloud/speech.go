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
// This file implements the text-to-speech client. The provider is asked for
// audio with word-level timestamps in one call; the alignment becomes the
// timing track every downstream video stage keys off.
package cloud

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
)

// SpeechClient synthesizes narration audio with word-level timestamps.
type SpeechClient struct {
	client *http.Client
	cfg    SpeechService
}

// NewSpeechClient builds a speech client over the shared HTTP client.
func NewSpeechClient(client *http.Client, cfg SpeechService) *SpeechClient {
	return &SpeechClient{client: client, cfg: cfg}
}

type speechRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
	Model   string `json:"model_id"`
	// Timestamps asks the provider to align each spoken word to its audio
	// offsets.
	Timestamps bool `json:"with_word_timestamps"`
}

type speechResponse struct {
	AudioBase64 string  `json:"audio_base64"`
	AudioFormat string  `json:"audio_format"`
	Seconds     float64 `json:"audio_duration_seconds"`
	Words       []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// Synthesize converts narration text to MP3 audio and a word-level timing
// track. The returned track is validated against its own audio duration
// before any caller persists it.
//
// Outputs:
//   - []byte: The MP3 audio payload.
//   - *model.TimingTrack: The word alignment.
//   - error: A classified provider or alignment failure.
func (s *SpeechClient) Synthesize(ctx context.Context, text string) ([]byte, *model.TimingTrack, error) {
	const op = "speech_synthesize"

	payload := speechRequest{
		Text:       text,
		VoiceID:    s.cfg.VoiceID,
		Model:      s.cfg.Model,
		Timestamps: true,
	}
	headers := map[string]string{"xi-api-key": s.cfg.APIKey}

	var resp speechResponse
	if err := postJSON(ctx, s.client, op, s.cfg.Endpoint, headers, &payload, &resp); err != nil {
		return nil, nil, err
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
	if err != nil {
		return nil, nil, fault.Transient(op, fmt.Errorf("provider audio payload is not valid base64: %w", err))
	}
	if len(audio) == 0 {
		return nil, nil, fault.Transient(op, fmt.Errorf("provider returned empty audio"))
	}

	track := &model.TimingTrack{AudioSeconds: resp.Seconds}
	for _, w := range resp.Words {
		track.Words = append(track.Words, model.WordTiming{Word: w.Word, Start: w.Start, End: w.End})
	}
	if err := track.Validate(); err != nil {
		return nil, nil, fault.Integrity(op, err)
	}
	return audio, track, nil
}
