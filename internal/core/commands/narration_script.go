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
// pipelines. This file defines the narration script stage. The word budget
// is derived from the branch's target duration at the standard speaking
// rate; a generated script landing outside the ±10% tolerance is re-asked a
// bounded number of times before the stage gives up, because a script that
// is too long or short breaks every duration-derived calculation downstream.
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

// maxScriptAttempts bounds how many times the stage re-asks for a script
// whose word count misses the tolerance band.
const maxScriptAttempts = 3

// ScriptCommand generates the narration script for one video branch.
type ScriptCommand struct {
	StageBase
	generativeAIModel  *cloud.QuotaAwareGenerativeAIModel
	promptTemplate     *template.Template
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
}

// NewScriptCommand constructs the stage for one video branch.
func NewScriptCommand(
	st *store.Store,
	branch model.BranchKind,
	genModel *cloud.QuotaAwareGenerativeAIModel,
	prompt *template.Template) *ScriptCommand {
	out := &ScriptCommand{
		StageBase:         NewStageBase(StageScript, st, branch),
		generativeAIModel: genModel,
		promptTemplate:    prompt,
	}
	out.InputParamName = ParamBible
	out.inputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.input", out.GetName()))
	out.outputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.output", out.GetName()))
	return out
}

// CountWords counts whitespace-separated words, the same measure the word
// budget is expressed in.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// WithinWordBudget reports whether got lands inside the tolerance band
// around the target word count.
func WithinWordBudget(got, target int) bool {
	slack := float64(target) * model.WordCountTolerance
	diff := float64(got - target)
	if diff < 0 {
		diff = -diff
	}
	return diff <= slack
}

// Execute generates and persists the script, publishing it to the chain
// context for the audio stage.
func (c *ScriptCommand) Execute(ctx cor.Context) {
	c.begin(ctx)

	campaign := c.campaign(ctx)
	brief := c.brief(ctx)
	bible := ctx.Get(ParamBible).(*model.AestheticBible)

	targetSeconds := campaign.VideoDuration(c.Branch)
	targetWords := model.TargetWordCount(targetSeconds)

	prompt, err := renderPrompt(c.GetName(), c.promptTemplate, map[string]any{
		"Topic":             brief.Topic,
		"BrandStrategy":     brief.BrandStrategy,
		"ContentGuidelines": brief.ContentGuidelines,
		"CallToAction":      brief.CallToAction,
		"Mood":              bible.Mood,
		"TargetSeconds":     targetSeconds,
		"TargetWords":       targetWords,
	})
	if err != nil {
		c.finish(ctx, err)
		return
	}

	var script *model.Script
	var lastCount int
	for attempt := 0; attempt < maxScriptAttempts; attempt++ {
		var raw string
		genErr := fault.Retry(ctx.GetContext(), fault.DefaultRetryPolicy(), func(int) error {
			var err error
			raw, err = cloud.GenerateTextResponse(ctx.GetContext(),
				c.inputTokenCounter, c.outputTokenCounter, c.generativeAIModel, cloud.NewTextContent(prompt))
			if err != nil {
				return fault.Transient(c.GetName(), err)
			}
			return nil
		})
		if genErr != nil {
			c.finish(ctx, genErr)
			return
		}

		var candidate model.Script
		if err := json.Unmarshal([]byte(raw), &candidate); err != nil {
			c.finish(ctx, fault.Integrity(c.GetName(), fmt.Errorf("model returned invalid script JSON: %w", err)))
			return
		}

		lastCount = CountWords(candidate.FullNarration)
		if WithinWordBudget(lastCount, targetWords) {
			candidate.TargetWordCount = targetWords
			candidate.TargetSeconds = targetSeconds
			script = &candidate
			break
		}
	}
	if script == nil {
		c.finish(ctx, fault.Integrity(c.GetName(),
			fmt.Errorf("script word count %d outside tolerance of target %d after %d attempts", lastCount, targetWords, maxScriptAttempts)))
		return
	}

	scriptPath := c.Store.Layout.BranchPath(campaign.ID, c.Branch, store.ScriptFile)
	if err := c.Store.PlaceJSON(scriptPath, script); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}

	ctx.Add(ParamScript, script)
	ctx.Add(cor.CtxOut, script)
	c.finish(ctx, nil)
}
