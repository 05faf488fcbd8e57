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
// This file contains the hierarchical configuration loader and the shared
// helper for generative text calls.
//
// Functions:
//   - LoadConfig: Reads a base configuration file, then overlays an
//     environment-specific file (.env.local.toml, .env.test.toml, ...)
//     selected by environment variables.
//   - GenerateTextResponse: Executes one generative text request through a
//     rate-limited model binding, records token usage metrics, and strips
//     markdown fencing from JSON responses.
//   - NewTextContent: Factory for a text-only prompt.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/metric"

	"github.com/BurntSushi/toml"
	"google.golang.org/genai"
)

// Configuration loading constants.
const (
	ConfigFileBaseName  = ".env"                   // Base name for configuration files (".env.toml").
	ConfigFileExtension = ".toml"                  // Extension for configuration files.
	ConfigSeparator     = "."                      // Separator in override file names (".env.test.toml").
	EnvConfigFilePrefix = "CAMPAIGN_CONFIG_PREFIX" // Environment variable naming the config directory.
	EnvConfigRuntime    = "CAMPAIGN_RUNTIME"       // Environment variable naming the runtime ("local", "test", "prod").
)

// fileExists reports whether a file or directory exists at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig populates baseConfig hierarchically: first from the base TOML
// file, then from an environment-specific override file whose values win.
// The config directory and runtime name come from environment variables;
// the runtime defaults to "test".
func LoadConfig(baseConfig interface{}) {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension
	slog.Info("loading configuration", "base", baseConfigFileName, "override", envConfigFileName)

	if fileExists(baseConfigFileName) {
		_, err := toml.DecodeFile(baseConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode base configuration file %s with error: %s", baseConfigFileName, err)
		}
	}

	if fileExists(envConfigFileName) {
		_, err := toml.DecodeFile(envConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode environment configuration file: %s with error: %s", envConfigFileName, err)
		}
	}
}

// AgentModelKey composes the lookup key for a model binding from its logical
// role and the campaign's plan tier.
func AgentModelKey(role, plan string) string {
	return fmt.Sprintf("%s-%s", role, plan)
}

// GenerateTextResponse executes one generative text request against a
// rate-limited model binding and records token usage. It performs exactly
// one attempt; retry policy belongs to the calling stage.
//
// Inputs:
//   - ctx: Controls cancellation and carries trace context.
//   - inputTokenCounter: Counter for prompt tokens used.
//   - outputTokenCounter: Counter for response tokens generated.
//   - model: The rate-limited model binding to call.
//   - content: The prompt content.
//
// Outputs:
//   - string: The concatenated response text with JSON fencing stripped.
//   - error: The provider error, unclassified; callers wrap it through the
//     fault taxonomy.
func GenerateTextResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	model *QuotaAwareGenerativeAIModel,
	content []*genai.Content) (string, error) {
	resp, err := model.GenerateContent(ctx, content)
	if err != nil {
		return "", err
	}

	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	value := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				value += fmt.Sprint(part.Text)
			}
		}
	}
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimPrefix(value, "```")
	value = strings.TrimSuffix(value, "```")
	return strings.TrimSpace(value), nil
}

// NewTextContent is a factory for a text-only prompt.
func NewTextContent(in string) []*genai.Content {
	return genai.Text(in)
}
