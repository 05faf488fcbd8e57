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

// Package cloud holds the provider clients and the application configuration,
// loaded from TOML files. This file centralizes the configuration structs:
// generative model bindings, the sharded image-generation credentials, the
// speech and music providers, and the prompt templates.
//
// Structs:
//   - LLMModel: Configuration for one generative text model binding.
//   - ImageShard: One image-generation credential shard.
//   - SpeechService: The text-to-speech provider.
//   - SearchService: The web research provider.
//   - MusicService: The background-music provider.
//   - PromptTemplates: Text templates for every generation stage.
//   - Config: The top-level aggregate.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings holds the content safety thresholds applied to every
// generative model call. Campaign briefs are trusted, vetted input, so the
// thresholds are non-restrictive.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// LLMModel is the configuration for one generative text model binding.
// The engine keeps one binding per logical role and plan tier (for example
// "creative-standard", "creative-premium").
type LLMModel struct {
	Model              string  `toml:"model"`               // The provider model name.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the model.
	Temperature        float32 `toml:"temperature"`         // Sampling temperature.
	TopP               float32 `toml:"top_p"`               // Nucleus sampling parameter.
	TopK               float32 `toml:"top_k"`               // Top-k sampling parameter.
	MaxTokens          int32   `toml:"max_tokens"`          // Output token ceiling.
	OutputFormat       string  `toml:"output_format"`       // Desired response MIME type (e.g. "application/json").
	RateLimit          int     `toml:"rate_limit"`          // Requests per second allowed against this binding.
}

// ImageShard is one image-generation credential shard. Each video branch is
// pinned to its own shard so no two branches contend for the same per-key
// quota; the ad image branch reuses a shard of its own.
type ImageShard struct {
	Endpoint  string `toml:"endpoint"`   // The generation endpoint URL.
	APIKey    string `toml:"api_key"`    // The shard's API key.
	Model     string `toml:"model"`      // The image model name.
	RateLimit int    `toml:"rate_limit"` // Requests per second allowed on this key.
}

// SpeechService is the text-to-speech provider configuration. The provider
// must return word-level timestamps alongside the audio.
type SpeechService struct {
	Endpoint string `toml:"endpoint"` // The synthesis endpoint URL.
	APIKey   string `toml:"api_key"`  // The provider API key.
	VoiceID  string `toml:"voice_id"` // The narration voice.
	Model    string `toml:"model"`    // The synthesis model name.
}

// SearchService is the web research provider used to ground blog content.
type SearchService struct {
	Endpoint   string `toml:"endpoint"`    // The search endpoint URL.
	APIKey     string `toml:"api_key"`     // The provider API key.
	MaxResults int    `toml:"max_results"` // Results requested per query.
}

// MusicService is the royalty-free background-music provider.
type MusicService struct {
	Endpoint string `toml:"endpoint"` // The track endpoint URL.
	APIKey   string `toml:"api_key"`  // The provider API key.
}

// PromptTemplates holds the text templates for each generation stage. Each
// template is filled through text/template with the stage's input struct.
type PromptTemplates struct {
	AestheticBible  string `toml:"aesthetic_bible"`  // Campaign-wide visual style synthesis.
	Script          string `toml:"script"`           // Narration script generation.
	Storyboard      string `toml:"storyboard"`       // Scene concept generation.
	PromptOptimizer string `toml:"prompt_optimizer"` // Scene concepts to image prompts.
	BlogPost        string `toml:"blog_post"`        // Long-form blog body.
	BlogHero        string `toml:"blog_hero"`        // Blog hero image prompt.
	AdImage         string `toml:"ad_image"`         // Standalone ad image prompts.
}

// Config is the top-level application configuration, loaded from TOML files.
type Config struct {
	// Application holds general engine settings.
	Application struct {
		Name                  string `toml:"name"`                    // The application name.
		ArtifactRoot          string `toml:"artifact_root"`           // Root directory for campaign artifact trees.
		ThreadPoolSize        int    `toml:"thread_pool_size"`        // Worker pool size for batched image generation.
		BranchDeadlineSeconds int    `toml:"branch_deadline_seconds"` // Per-branch wall-clock deadline.
		MediaBaseURL          string `toml:"media_base_url"`          // Public base URL artifacts are served under.
	} `toml:"application"`
	AgentModels     map[string]LLMModel   `toml:"agent_models"`     // Generative model bindings, keyed "role-plan".
	ImageShards     map[string]ImageShard `toml:"image_shards"`     // Credential shards, keyed "shard_1".."shard_4".
	Speech          SpeechService         `toml:"speech"`           // Text-to-speech provider.
	Search          SearchService         `toml:"search"`           // Web research provider.
	Music           MusicService          `toml:"music"`            // Background-music provider.
	PromptTemplates PromptTemplates       `toml:"prompt_templates"` // Generation prompt templates.
}

// NewConfig creates an initialized Config. The maps must be allocated before
// the TOML loader populates them.
func NewConfig() *Config {
	return &Config{
		AgentModels: make(map[string]LLMModel),
		ImageShards: make(map[string]ImageShard),
	}
}
