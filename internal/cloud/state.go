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
// This file initializes all of them from the configuration and bundles them
// into a single ServiceClients container that is passed to the workflow
// builders. It is the engine's dependency injection point: tests swap in
// fake HTTP providers by pointing the configured endpoints at a local test
// server before calling NewServiceClients.
//
// Structs:
//   - ServiceClients: Container for every external provider client.
//
// Functions:
//   - NewServiceClients: Factory that builds every client from the Config.
package cloud

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// ServiceClients is the container for every external provider the engine
// talks to. One instance is created at startup and shared by all campaigns.
type ServiceClients struct {
	GenAIClient *genai.Client                           // Generative text provider.
	AgentModels map[string]*QuotaAwareGenerativeAIModel // Rate-limited model bindings, keyed "role-plan".
	ImageShards map[string]*ImageGenClient              // Image generation clients, keyed "shard_1".."shard_4".
	Speech      *SpeechClient                           // Text-to-speech provider.
	Search      *SearchClient                           // Web research provider.
	Music       *MusicClient                            // Background-music provider.
}

// NewServiceClients initializes every provider client from the configuration.
//
// Inputs:
//   - ctx: The root context governing client lifecycles.
//   - config: The loaded application configuration.
//
// Outputs:
//   - *ServiceClients: The fully initialized container.
//   - error: An error if any client fails to initialize.
func NewServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return NewServiceClientsWithGenAI(config, gc), nil
}

// NewServiceClientsWithGenAI builds the container around an existing genai
// client. Tests use this to point the generative backend at a local fake
// provider server.
func NewServiceClientsWithGenAI(config *Config, gc *genai.Client) *ServiceClients {
	// Build one rate-limited binding per configured agent model.
	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey, values := range config.AgentModels {
		model := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
		}
		agentModels[amKey] = NewQuotaAwareModel(model, values.Model, gc.Models, values.RateLimit)
	}

	// One HTTP client shared by all REST providers. Individual calls carry
	// their own deadlines through the request context.
	httpClient := &http.Client{Timeout: 5 * time.Minute}

	imageShards := make(map[string]*ImageGenClient)
	for shardKey, shard := range config.ImageShards {
		imageShards[shardKey] = NewImageGenClient(httpClient, shard)
	}

	return &ServiceClients{
		GenAIClient: gc,
		AgentModels: agentModels,
		ImageShards: imageShards,
		Speech:      NewSpeechClient(httpClient, config.Speech),
		Search:      NewSearchClient(httpClient, config.Search),
		Music:       NewMusicClient(httpClient, config.Music),
	}
}
