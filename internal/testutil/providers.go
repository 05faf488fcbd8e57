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

// Package testutil provides utility functions and fake providers to support
// the application's test suite. This file stands up one local HTTP server
// that impersonates every external provider: the generative text backend,
// the image shards, speech synthesis, web research, and the music library.
// Tests wire a config's endpoints at the server and run the real clients
// against it.
package testutil

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/mediaforge/campaign-engine/internal/cloud"
	"github.com/mediaforge/campaign-engine/internal/core/model"
)

// FakeProviders is the local stand-in for every external service. The
// per-endpoint call counters let tests assert how often a provider was
// actually hit.
type FakeProviders struct {
	Server *httptest.Server

	// LLM maps a prompt to the raw text the generative backend returns.
	// Returning an error produces a 500 so retry behavior can be exercised.
	// The default returns a valid aesthetic bible.
	LLM func(prompt string) (string, error)

	LLMCalls    atomic.Int64
	ImageCalls  atomic.Int64
	SpeechCalls atomic.Int64
	SearchCalls atomic.Int64
	MusicCalls  atomic.Int64
}

// NewFakeProviders starts the provider server. Callers must Close it.
func NewFakeProviders() *FakeProviders {
	p := &FakeProviders{
		LLM: func(string) (string, error) { return BibleJSON(), nil },
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/speech", p.handleSpeech)
	mux.HandleFunc("/images", p.handleImages)
	mux.HandleFunc("/search", p.handleSearch)
	mux.HandleFunc("/music", p.handleMusic)
	// The genai SDK posts to {base}/{version}/models/{model}:generateContent.
	mux.HandleFunc("/", p.handleGenerate)
	p.Server = httptest.NewServer(mux)
	return p
}

// Close shuts the provider server down.
func (p *FakeProviders) Close() { p.Server.Close() }

// Wire points every provider endpoint in the config at the fake server.
func (p *FakeProviders) Wire(cfg *cloud.Config) {
	cfg.Speech.Endpoint = p.Server.URL + "/speech"
	cfg.Search.Endpoint = p.Server.URL + "/search"
	cfg.Music.Endpoint = p.Server.URL + "/music"
	for key, shard := range cfg.ImageShards {
		shard.Endpoint = p.Server.URL + "/images"
		cfg.ImageShards[key] = shard
	}
}

// Clients builds real service clients whose generative backend and REST
// endpoints all resolve to the fake server. Wire must have been called on
// the config first.
func (p *FakeProviders) Clients(ctx context.Context, cfg *cloud.Config) (*cloud.ServiceClients, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  p.Server.Client(),
		HTTPOptions: genai.HTTPOptions{BaseURL: p.Server.URL},
	})
	if err != nil {
		return nil, err
	}
	return cloud.NewServiceClientsWithGenAI(cfg, gc), nil
}

// BibleJSON returns a valid aesthetic bible payload.
func BibleJSON() string {
	bible := model.AestheticBible{
		ColorPalette:  []string{"#1B263B", "#E0A458", "#F4F1DE"},
		LightingStyle: "golden hour rim light",
		CameraStyle:   "handheld tracking shots",
		Mood:          "uplifting",
		VisualStyle:   "cinematic realism",
		LogoVisible:   true,
		ColorLocked:   true,
	}
	out, _ := json.Marshal(bible)
	return string(out)
}

// ScriptJSON returns a script payload whose narration hits the word budget
// for the given duration.
func ScriptJSON(targetSeconds int) string {
	words := model.TargetWordCount(targetSeconds)
	narration := strings.TrimSpace(strings.Repeat("run the sunrise trail today ", (words+4)/5))
	script := model.Script{
		VideoTitle:      "Chase the Dawn",
		FullNarration:   narration,
		TargetWordCount: words,
		TargetSeconds:   targetSeconds,
	}
	out, _ := json.Marshal(script)
	return string(out)
}

func (p *FakeProviders) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.URL.Path, ":generateContent") {
		http.NotFound(w, r)
		return
	}
	p.LLMCalls.Add(1)

	var req struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var prompt strings.Builder
	for _, c := range req.Contents {
		for _, part := range c.Parts {
			prompt.WriteString(part.Text)
		}
	}

	text, err := p.LLM(prompt.String())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{
				"role":  "model",
				"parts": []map[string]string{{"text": text}},
			}},
		},
		"usageMetadata": map[string]int{
			"promptTokenCount":     len(strings.Fields(prompt.String())),
			"candidatesTokenCount": len(strings.Fields(text)),
		},
	}
	writeJSON(w, resp)
}

// handleSpeech aligns each requested word to an even 0.4s slot, which keeps
// the timing track valid against its own audio duration.
func (p *FakeProviders) handleSpeech(w http.ResponseWriter, r *http.Request) {
	p.SpeechCalls.Add(1)

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	const perWord = 1.0 / model.WordsPerSecond
	type word struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	}
	var words []word
	for i, token := range strings.Fields(req.Text) {
		start := float64(i) * perWord
		words = append(words, word{Word: token, Start: start, End: start + perWord})
	}
	resp := map[string]any{
		"audio_base64":           base64.StdEncoding.EncodeToString(TinyMP3()),
		"audio_format":           "mp3",
		"audio_duration_seconds": float64(len(words)) * perWord,
		"words":                  words,
	}
	writeJSON(w, resp)
}

func (p *FakeProviders) handleImages(w http.ResponseWriter, r *http.Request) {
	p.ImageCalls.Add(1)
	resp := map[string]any{
		"images": []map[string]string{
			{"b64_json": base64.StdEncoding.EncodeToString(TinyPNG())},
		},
	}
	writeJSON(w, resp)
}

func (p *FakeProviders) handleSearch(w http.ResponseWriter, r *http.Request) {
	p.SearchCalls.Add(1)
	resp := map[string]any{
		"results": []cloud.SearchResult{
			{Title: "Trail running gear guide", URL: "https://example.com/gear", Content: "Seasonal picks for trail shoes.", Score: 0.93},
			{Title: "Spring training plans", URL: "https://example.com/training", Content: "Building a base for trail season.", Score: 0.81},
		},
	}
	writeJSON(w, resp)
}

func (p *FakeProviders) handleMusic(w http.ResponseWriter, r *http.Request) {
	p.MusicCalls.Add(1)
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(TinyMP3())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
