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
// pipelines. This file defines the blog hero image stage: one model call to
// turn the visual brief into an image prompt, one generation call for the
// image itself. It runs concurrently with the blog body stage since neither
// depends on the other.
package commands

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"go.opentelemetry.io/otel/metric"

	"github.com/mediaforge/campaign-engine/internal/cloud"
	"github.com/mediaforge/campaign-engine/internal/core/cor"
	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// Hero image dimensions: wide banner crop used atop the post.
const (
	heroWidth  = 1792
	heroHeight = 1024
)

// BlogHeroCommand generates the blog's hero image.
type BlogHeroCommand struct {
	StageBase
	generativeAIModel  *cloud.QuotaAwareGenerativeAIModel
	imageClient        *cloud.ImageGenClient
	promptTemplate     *template.Template
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
}

// NewBlogHeroCommand constructs the hero image stage.
func NewBlogHeroCommand(
	st *store.Store,
	genModel *cloud.QuotaAwareGenerativeAIModel,
	imageClient *cloud.ImageGenClient,
	prompt *template.Template) *BlogHeroCommand {
	out := &BlogHeroCommand{
		StageBase:         NewStageBase(StageBlogHero, st, model.BranchBlog),
		generativeAIModel: genModel,
		imageClient:       imageClient,
		promptTemplate:    prompt,
	}
	out.inputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.input", out.GetName()))
	out.outputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.output", out.GetName()))
	return out
}

// IsExecutable requires the campaign and brief seeded by the branch runner.
func (c *BlogHeroCommand) IsExecutable(ctx cor.Context) bool {
	return ctx != nil && c.campaign(ctx) != nil && c.brief(ctx) != nil && ctx.GetContext() != nil
}

// Execute derives the hero prompt, generates the image, and places it.
func (c *BlogHeroCommand) Execute(ctx cor.Context) {
	c.begin(ctx)

	campaign := c.campaign(ctx)
	brief := c.brief(ctx)

	prompt, err := renderPrompt(c.GetName(), c.promptTemplate, map[string]any{
		"Topic":         brief.Topic,
		"VisualBrief":   brief.VisualBrief,
		"BrandStrategy": brief.BrandStrategy,
	})
	if err != nil {
		c.finish(ctx, err)
		return
	}

	var imagePrompt string
	err = fault.Retry(ctx.GetContext(), fault.DefaultRetryPolicy(), func(int) error {
		var genErr error
		imagePrompt, genErr = cloud.GenerateTextResponse(ctx.GetContext(),
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

	var img []byte
	err = fault.Retry(ctx.GetContext(), fault.DefaultRetryPolicy(), func(int) error {
		var genErr error
		img, genErr = c.imageClient.Generate(ctx.GetContext(), imagePrompt, heroWidth, heroHeight)
		if genErr != nil {
			return genErr
		}
		kind, _ := filetype.Match(img)
		if kind != matchers.TypePng && kind != matchers.TypeJpeg {
			return fault.Transient(c.GetName(), fmt.Errorf("hero payload is not an image (detected %q)", kind.Extension))
		}
		return nil
	})
	if err != nil {
		c.finish(ctx, err)
		return
	}

	heroPath := c.Store.Layout.BranchPath(campaign.ID, model.BranchBlog, store.BlogHeroFile)
	if err := c.Store.PlaceFrom(heroPath, bytes.NewReader(img)); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}
	c.finish(ctx, nil)
}
