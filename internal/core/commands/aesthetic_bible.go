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
// pipelines. This file defines the aesthetic bible stage: the first stage of
// every video branch, which resolves the campaign-wide visual style document.
// All four branches run this stage, but the generation happens at most once
// per campaign: the SharedAssets barrier collapses concurrent arrivals into
// one provider call, and the placed artifact serves every later arrival.
package commands

import (
	"encoding/json"
	"fmt"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/mediaforge/campaign-engine/internal/cloud"
	"github.com/mediaforge/campaign-engine/internal/core/cor"
	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// AestheticBibleCommand resolves the campaign's shared visual style document.
type AestheticBibleCommand struct {
	StageBase
	generativeAIModel  *cloud.QuotaAwareGenerativeAIModel
	promptTemplate     *template.Template
	shared             *SharedAssets
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
}

// NewAestheticBibleCommand constructs the stage for one video branch.
func NewAestheticBibleCommand(
	st *store.Store,
	branch model.BranchKind,
	genModel *cloud.QuotaAwareGenerativeAIModel,
	prompt *template.Template,
	shared *SharedAssets) *AestheticBibleCommand {
	out := &AestheticBibleCommand{
		StageBase:         NewStageBase(StageAestheticBible, st, branch),
		generativeAIModel: genModel,
		promptTemplate:    prompt,
		shared:            shared,
	}
	out.inputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.input", out.GetName()))
	out.outputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.output", out.GetName()))
	return out
}

// IsExecutable requires the campaign and brief seeded by the branch runner.
func (c *AestheticBibleCommand) IsExecutable(ctx cor.Context) bool {
	return ctx != nil && c.campaign(ctx) != nil && c.brief(ctx) != nil && ctx.GetContext() != nil
}

// Execute resolves the bible through the once-barrier and publishes it to
// the chain context for the script stage.
func (c *AestheticBibleCommand) Execute(ctx cor.Context) {
	c.begin(ctx)

	campaign := c.campaign(ctx)
	brief := c.brief(ctx)
	biblePath := c.Store.Layout.CampaignPath(campaign.ID, store.BibleFile)

	v, err := c.shared.onceBible(campaign.ID, func() (interface{}, error) {
		// A prior branch (or a resumed run) may already have placed it.
		if c.Store.Exists(biblePath) {
			var bible model.AestheticBible
			if err := c.Store.ReadJSON(biblePath, &bible); err != nil {
				return nil, fault.Integrity(c.GetName(), err)
			}
			return &bible, nil
		}

		prompt, err := renderPrompt(c.GetName(), c.promptTemplate, map[string]any{
			"Topic":         brief.Topic,
			"BrandStrategy": brief.BrandStrategy,
			"VisualBrief":   brief.VisualBrief,
		})
		if err != nil {
			return nil, err
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
			return nil, err
		}

		var bible model.AestheticBible
		if err := json.Unmarshal([]byte(raw), &bible); err != nil {
			return nil, fault.Integrity(c.GetName(), fmt.Errorf("model returned invalid bible JSON: %w", err))
		}
		if err := c.Store.PlaceJSON(biblePath, &bible); err != nil {
			return nil, fault.Integrity(c.GetName(), err)
		}
		return &bible, nil
	})
	if err != nil {
		c.finish(ctx, err)
		return
	}

	bible := v.(*model.AestheticBible)
	ctx.Add(ParamBible, bible)
	ctx.Add(cor.CtxOut, bible)
	c.finish(ctx, nil)
}
