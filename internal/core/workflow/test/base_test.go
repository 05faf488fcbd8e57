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

// Package workflow_test contains the end-to-end tests for campaign
// orchestration. The suite runs the real pipelines against a local server
// impersonating every provider, with a stubbed video renderer, so a full
// campaign executes in-process without network or ffmpeg.
//
// This file holds the shared harness: telemetry setup in TestMain, the
// in-code test configuration, and the prompt router the fake generative
// backend answers from.
package workflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/mediaforge/campaign-engine/internal/cloud"
	"github.com/mediaforge/campaign-engine/internal/core/workflow"
	"github.com/mediaforge/campaign-engine/internal/status"
	"github.com/mediaforge/campaign-engine/internal/store"
	"github.com/mediaforge/campaign-engine/internal/telemetry"
	"github.com/mediaforge/campaign-engine/internal/testutil"
	"github.com/stretchr/testify/require"
)

var ctx context.Context

// TestMain sets up logging and the OpenTelemetry SDK once for the suite, so
// the stage commands exercise the same span and counter plumbing they run
// with in production.
func TestMain(m *testing.M) {
	telemetry.SetupLogging()
	ctx = context.Background()

	cfg := cloud.NewConfig()
	cfg.Application.Name = "campaign-engine-test"
	shutdown, err := telemetry.SetupOpenTelemetry(ctx, cfg)
	if err != nil {
		fmt.Printf("failed to setup telemetry: %v\n", err)
		os.Exit(1)
	}
	logger := otelslog.NewLogger("workflow-test")
	logger.Info("telemetry initialized for workflow suite")

	code := m.Run()
	if err := shutdown(ctx); err != nil {
		fmt.Printf("failed to shutdown telemetry: %v\n", err)
	}
	os.Exit(code)
}

// testConfig builds a complete engine configuration rooted at dir. Endpoints
// are placeholders until FakeProviders.Wire points them at the local server.
func testConfig(dir string) *cloud.Config {
	cfg := cloud.NewConfig()
	cfg.Application.Name = "campaign-engine-test"
	cfg.Application.ArtifactRoot = dir
	cfg.Application.ThreadPoolSize = 2
	cfg.Application.BranchDeadlineSeconds = 60

	for _, plan := range []string{"standard", "premium"} {
		for _, role := range []string{"creative", "writer"} {
			cfg.AgentModels[cloud.AgentModelKey(role, plan)] = cloud.LLMModel{
				Model:              "test-model",
				SystemInstructions: "You are a test fixture.",
				Temperature:        0.4,
				TopP:               0.9,
				TopK:               32,
				MaxTokens:          4096,
				OutputFormat:       "application/json",
				RateLimit:          50,
			}
		}
	}
	for i := 1; i <= 4; i++ {
		key := fmt.Sprintf("shard_%d", i)
		cfg.ImageShards[key] = cloud.ImageShard{
			APIKey:    "test-" + key,
			Model:     "test-image-model",
			RateLimit: 50,
		}
	}
	cfg.Speech = cloud.SpeechService{APIKey: "test-key", VoiceID: "narrator", Model: "test-voice-model"}
	cfg.Search = cloud.SearchService{APIKey: "test-key", MaxResults: 2}
	cfg.Music = cloud.MusicService{APIKey: "test-key"}

	// Each template opens with a distinct marker phrase the prompt router
	// keys on.
	cfg.PromptTemplates = cloud.PromptTemplates{
		AestheticBible: "Synthesize the campaign aesthetic bible for {{.Topic}}. " +
			"Strategy: {{.BrandStrategy}}. Visuals: {{.VisualBrief}}.",
		Script: "Write a narration script of about {{.TargetWords}} words for a " +
			"{{.TargetSeconds}} second video about {{.Topic}}. Mood: {{.Mood}}. " +
			"Guidelines: {{.ContentGuidelines}}. Close with: {{.CallToAction}}.",
		Storyboard: "Draft scene concepts for {{.SceneCount}} scenes of {{.Topic}} " +
			"in the style {{.VisualStyle}}, mood {{.Mood}}. Visual brief: {{.VisualBrief}}.\n{{.Scenes}}",
		PromptOptimizer: "Rewrite the drafts below as optimized image prompts. " +
			"Palette: {{.ColorPalette}} (locked: {{.ColorLocked}}). Lighting: {{.LightingStyle}}. " +
			"Camera: {{.CameraStyle}}. Style: {{.VisualStyle}}, mood {{.Mood}}. " +
			"Logo visible: {{.LogoVisible}}. {{.SceneCount}} scenes.\n{{.DraftPrompts}}",
		BlogPost: "Write a blog post about {{.Topic}}. Strategy: {{.BrandStrategy}}. " +
			"Guidelines: {{.ContentGuidelines}}. Keywords: {{.Keywords}}. " +
			"Call to action: {{.CallToAction}}.\nReferences:\n{{.References}}",
		BlogHero: "Describe one hero image for {{.Topic}}. Strategy: {{.BrandStrategy}}. " +
			"Visuals: {{.VisualBrief}}.",
		AdImage: "Draft {{.ImageCount}} ad concepts for {{.Topic}}. Strategy: {{.BrandStrategy}}. " +
			"Visuals: {{.VisualBrief}}. Call to action: {{.CallToAction}}.",
	}
	return cfg
}

var (
	scriptSecondsRe = regexp.MustCompile(`a (\d+) second video`)
	storySceneRe    = regexp.MustCompile(`Scene (\d+) \(`)
	draftSceneRe    = regexp.MustCompile(`Scene (\d+): `)
	adCountRe       = regexp.MustCompile(`Draft (\d+) ad concepts`)
)

// routeLLM answers each stage's prompt with a well-formed payload, derived
// from the prompt itself so scene counts and word budgets always line up.
func routeLLM(prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "aesthetic bible"):
		return testutil.BibleJSON(), nil

	case strings.Contains(prompt, "narration script"):
		m := scriptSecondsRe.FindStringSubmatch(prompt)
		if m == nil {
			return "", fmt.Errorf("script prompt is missing its duration")
		}
		seconds, _ := strconv.Atoi(m[1])
		return testutil.ScriptJSON(seconds), nil

	case strings.Contains(prompt, "scene concepts"):
		var concepts []map[string]any
		for _, m := range storySceneRe.FindAllStringSubmatch(prompt, -1) {
			id, _ := strconv.Atoi(m[1])
			concepts = append(concepts, map[string]any{
				"scene_id":           id,
				"high_level_concept": fmt.Sprintf("concept for scene %d", id),
				"visual_prompt":      fmt.Sprintf("draft prompt for scene %d", id),
				"continuity_note":    "same runner, same trail",
			})
		}
		out, _ := json.Marshal(concepts)
		return string(out), nil

	case strings.Contains(prompt, "optimized image prompts"):
		var optimized []map[string]any
		for _, m := range draftSceneRe.FindAllStringSubmatch(prompt, -1) {
			id, _ := strconv.Atoi(m[1])
			optimized = append(optimized, map[string]any{
				"scene_id": id,
				"prompt":   fmt.Sprintf("final prompt for scene %d", id),
			})
		}
		out, _ := json.Marshal(optimized)
		return string(out), nil

	case strings.Contains(prompt, "blog post"):
		return "# Chase the Dawn\n\nSpring trails are calling.\n", nil

	case strings.Contains(prompt, "hero image"):
		return "A runner silhouetted against a dawn ridge line, motion blur.", nil

	case strings.Contains(prompt, "ad concepts"):
		m := adCountRe.FindStringSubmatch(prompt)
		if m == nil {
			return "", fmt.Errorf("ad prompt is missing its image count")
		}
		n, _ := strconv.Atoi(m[1])
		prompts := make([]string, n)
		for i := range prompts {
			prompts[i] = fmt.Sprintf("ad concept %d", i+1)
		}
		out, _ := json.Marshal(prompts)
		return string(out), nil
	}
	return "", fmt.Errorf("unrouted prompt: %.80s", prompt)
}

// testEnv bundles one fully wired engine over a temp artifact root.
type testEnv struct {
	cfg       *cloud.Config
	providers *testutil.FakeProviders
	store     *store.Store
	renderer  *testutil.StubRenderer
	orch      *workflow.Orchestrator
	reporter  *status.Reporter
}

// newTestEnv stands up the providers, clients, templates, and orchestrator
// over a per-test artifact root.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	cfg := testConfig(root)

	providers := testutil.NewFakeProviders()
	t.Cleanup(providers.Close)
	providers.LLM = routeLLM
	providers.Wire(cfg)

	clients, err := providers.Clients(ctx, cfg)
	require.NoError(t, err)
	templates, err := workflow.ParseTemplates(cfg)
	require.NoError(t, err)

	st := store.NewStore(root)
	renderer := &testutil.StubRenderer{}
	builder := &workflow.Builder{
		Store:     st,
		Clients:   clients,
		Config:    cfg,
		Templates: templates,
		Renderer:  renderer,
	}
	return &testEnv{
		cfg:       cfg,
		providers: providers,
		store:     st,
		renderer:  renderer,
		orch:      &workflow.Orchestrator{Builder: builder, Config: cfg},
		reporter:  status.NewReporter(st),
	}
}
