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

// Package commands provides the concrete stage implementations of the branch
// pipelines. This file defines the prompt optimization stage: one batched
// model call that rewrites every scene's draft visual prompt against the
// aesthetic bible. Batching is deliberate — a single call sees all scenes at
// once, which is what keeps palette, lighting and framing consistent across
// the cut rather than drifting scene by scene.
package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/mediaforge/campaign-engine/internal/cloud"
	"github.com/mediaforge/campaign-engine/internal/core/cor"
	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// PromptOptimizerCommand refines all scene prompts in one batched call.
type PromptOptimizerCommand struct {
	StageBase
	generativeAIModel  *cloud.QuotaAwareGenerativeAIModel
	promptTemplate     *template.Template
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
}

// NewPromptOptimizerCommand constructs the stage for one video branch.
func NewPromptOptimizerCommand(
	st *store.Store,
	branch model.BranchKind,
	genModel *cloud.QuotaAwareGenerativeAIModel,
	prompt *template.Template) *PromptOptimizerCommand {
	out := &PromptOptimizerCommand{
		StageBase:         NewStageBase(StagePromptOptimizer, st, branch),
		generativeAIModel: genModel,
		promptTemplate:    prompt,
	}
	out.InputParamName = ParamStoryboard
	out.inputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.input", out.GetName()))
	out.outputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.output", out.GetName()))
	return out
}

// optimizedPrompt is the shape of one entry in the batched response.
type optimizedPrompt struct {
	SceneID int    `json:"scene_id"`
	Prompt  string `json:"prompt"`
}

// Execute rewrites every scene prompt and re-places the storyboard artifact
// with the final prompts.
func (c *PromptOptimizerCommand) Execute(ctx cor.Context) {
	c.begin(ctx)

	campaign := c.campaign(ctx)
	bible := ctx.Get(ParamBible).(*model.AestheticBible)
	storyboard := ctx.Get(ParamStoryboard).(*model.Storyboard)

	draftLines := make([]string, len(storyboard.Scenes))
	for i, s := range storyboard.Scenes {
		draftLines[i] = fmt.Sprintf("Scene %d: %s | continuity: %s", s.ID, s.VisualPrompt, s.ContinuityNote)
	}
	prompt, err := renderPrompt(c.GetName(), c.promptTemplate, map[string]any{
		"ColorPalette":  strings.Join(bible.ColorPalette, ", "),
		"LightingStyle": bible.LightingStyle,
		"CameraStyle":   bible.CameraStyle,
		"Mood":          bible.Mood,
		"VisualStyle":   bible.VisualStyle,
		"ColorLocked":   bible.ColorLocked,
		"LogoVisible":   bible.LogoVisible,
		"DraftPrompts":  strings.Join(draftLines, "\n"),
		"SceneCount":    len(storyboard.Scenes),
	})
	if err != nil {
		c.finish(ctx, err)
		return
	}

	var raw string
	err = fault.Retry(ctx.GetContext(), fault.DefaultRetryPolicy(), func(int) error {
		var genErr error
		raw, genErr = cloud.GenerateTextResponse(ctx.GetContext(),
			c.inputTokenCounter, c.outputTokenCounter, c.generativeAIModel, cloud.NewTextContent(prompt))
		if genErr != nil {
			return fault.Transient(c.GetName(), genErr)
		}
		return nil
	})
	if err != nil {
		c.finish(ctx, err)
		return
	}

	var optimized []optimizedPrompt
	if err := json.Unmarshal([]byte(raw), &optimized); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), fmt.Errorf("model returned invalid optimized prompts: %w", err)))
		return
	}
	byID := make(map[int]string, len(optimized))
	for _, o := range optimized {
		byID[o.SceneID] = o.Prompt
	}
	for i := range storyboard.Scenes {
		p, ok := byID[storyboard.Scenes[i].ID]
		if !ok || strings.TrimSpace(p) == "" {
			c.finish(ctx, fault.Integrity(c.GetName(), fmt.Errorf("model omitted optimized prompt for scene %d", storyboard.Scenes[i].ID)))
			return
		}
		storyboard.Scenes[i].VisualPrompt = p
	}

	boardPath := c.Store.Layout.BranchPath(campaign.ID, c.Branch, store.StoryboardFile)
	if err := c.Store.PlaceJSON(boardPath, storyboard); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}

	ctx.Add(ParamStoryboard, storyboard)
	c.finish(ctx, nil)
}
