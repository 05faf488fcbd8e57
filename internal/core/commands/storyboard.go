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
// pipelines. This file defines the storyboard stage. The narration duration
// is partitioned into contiguous scenes at the fixed target length, with the
// final scene absorbing the remainder so coverage is exact. Interior
// boundaries snap to the nearest word end within a small window so cuts land
// on natural speech boundaries. One batched model call then drafts the
// visual concept for every scene.
package commands

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/mediaforge/campaign-engine/internal/cloud"
	"github.com/mediaforge/campaign-engine/internal/core/cor"
	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// boundarySnapWindow is how far (in seconds) an interior scene boundary may
// move to land on a word end.
const boundarySnapWindow = 0.5

// StoryboardCommand partitions the narration into scenes and drafts their
// visual concepts.
type StoryboardCommand struct {
	StageBase
	generativeAIModel  *cloud.QuotaAwareGenerativeAIModel
	promptTemplate     *template.Template
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
}

// NewStoryboardCommand constructs the stage for one video branch.
func NewStoryboardCommand(
	st *store.Store,
	branch model.BranchKind,
	genModel *cloud.QuotaAwareGenerativeAIModel,
	prompt *template.Template) *StoryboardCommand {
	out := &StoryboardCommand{
		StageBase:         NewStageBase(StageStoryboard, st, branch),
		generativeAIModel: genModel,
		promptTemplate:    prompt,
	}
	out.InputParamName = ParamTiming
	out.inputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.input", out.GetName()))
	out.outputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.output", out.GetName()))
	return out
}

// PartitionScenes cuts the narrated duration into contiguous scenes at the
// target length. The final scene absorbs the remainder, so every scene but
// the last is at least the target long and coverage is exact. Interior
// boundaries snap to the nearest word end inside the snap window; each
// scene's narration text is the words falling inside its span.
func PartitionScenes(track *model.TimingTrack, targetSeconds float64) []model.Scene {
	total := track.Duration()
	if total <= 0 {
		return nil
	}

	n := int(total / targetSeconds)
	if n < 1 {
		n = 1
	}

	// Nominal boundaries at multiples of the target; the last boundary is
	// the full duration.
	bounds := make([]float64, n+1)
	for i := 0; i < n; i++ {
		bounds[i] = float64(i) * targetSeconds
	}
	bounds[n] = total

	// Snap interior boundaries to nearby word ends, preserving order.
	for i := 1; i < n; i++ {
		snapped := bounds[i]
		best := boundarySnapWindow
		for _, w := range track.Words {
			d := math.Abs(w.End - bounds[i])
			if d < best && w.End > bounds[i-1] && w.End < bounds[i+1] {
				best = d
				snapped = w.End
			}
		}
		bounds[i] = snapped
	}

	scenes := make([]model.Scene, n)
	for i := 0; i < n; i++ {
		var words []string
		for _, w := range track.Words {
			if w.Start >= bounds[i] && w.Start < bounds[i+1] {
				words = append(words, w.Word)
			}
		}
		scenes[i] = model.Scene{
			ID:            i + 1,
			Start:         bounds[i],
			End:           bounds[i+1],
			NarrationText: strings.Join(words, " "),
		}
	}
	return scenes
}

// sceneConcept is the shape of one entry in the batched concept response.
type sceneConcept struct {
	SceneID        int    `json:"scene_id"`
	Concept        string `json:"high_level_concept"`
	VisualPrompt   string `json:"visual_prompt"`
	ContinuityNote string `json:"continuity_note"`
}

// Execute partitions the narration, drafts concepts in one batched call, and
// places the storyboard artifact.
func (c *StoryboardCommand) Execute(ctx cor.Context) {
	c.begin(ctx)

	campaign := c.campaign(ctx)
	brief := c.brief(ctx)
	bible := ctx.Get(ParamBible).(*model.AestheticBible)
	track := ctx.Get(ParamTiming).(*model.TimingTrack)

	if err := track.Validate(); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}

	scenes := PartitionScenes(track, model.TargetSceneSeconds)
	storyboard := &model.Storyboard{Scenes: scenes}
	if err := storyboard.Validate(track.Duration()); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}

	sceneLines := make([]string, len(scenes))
	for i, s := range scenes {
		sceneLines[i] = fmt.Sprintf("Scene %d (%.2fs-%.2fs): %s", s.ID, s.Start, s.End, s.NarrationText)
	}
	prompt, err := renderPrompt(c.GetName(), c.promptTemplate, map[string]any{
		"Topic":       brief.Topic,
		"VisualBrief": brief.VisualBrief,
		"VisualStyle": bible.VisualStyle,
		"Mood":        bible.Mood,
		"Scenes":      strings.Join(sceneLines, "\n"),
		"SceneCount":  len(scenes),
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

	var concepts []sceneConcept
	if err := json.Unmarshal([]byte(raw), &concepts); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), fmt.Errorf("model returned invalid scene concepts: %w", err)))
		return
	}
	byID := make(map[int]sceneConcept, len(concepts))
	for _, con := range concepts {
		byID[con.SceneID] = con
	}
	for i := range storyboard.Scenes {
		con, ok := byID[storyboard.Scenes[i].ID]
		if !ok {
			c.finish(ctx, fault.Integrity(c.GetName(), fmt.Errorf("model omitted concept for scene %d", storyboard.Scenes[i].ID)))
			return
		}
		storyboard.Scenes[i].Concept = con.Concept
		storyboard.Scenes[i].VisualPrompt = con.VisualPrompt
		storyboard.Scenes[i].ContinuityNote = con.ContinuityNote
	}

	boardPath := c.Store.Layout.BranchPath(campaign.ID, c.Branch, store.StoryboardFile)
	if err := c.Store.PlaceJSON(boardPath, storyboard); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}

	ctx.Add(ParamStoryboard, storyboard)
	c.finish(ctx, nil)
}
