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
// pipelines. This file defines the ad image stage: the single stage of the
// ad image branch. One batched model call drafts the requested number of
// independent ad concepts, then a worker pool generates them concurrently.
// Like scene images, a partial result is a failure carrying the indices that
// could not be produced.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
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

// Ad image dimensions: square creative, the common denominator across ad
// placements.
const (
	adImageWidth  = 1024
	adImageHeight = 1024
)

// AdImagesCommand produces the brief's requested set of standalone ad images.
type AdImagesCommand struct {
	StageBase
	generativeAIModel  *cloud.QuotaAwareGenerativeAIModel
	imageClient        *cloud.ImageGenClient
	promptTemplate     *template.Template
	numberOfWorkers    int
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
}

// NewAdImagesCommand constructs the ad image stage.
func NewAdImagesCommand(
	st *store.Store,
	genModel *cloud.QuotaAwareGenerativeAIModel,
	imageClient *cloud.ImageGenClient,
	prompt *template.Template,
	numberOfWorkers int) *AdImagesCommand {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	out := &AdImagesCommand{
		StageBase:         NewStageBase(StageAdImages, st, model.BranchAdImages),
		generativeAIModel: genModel,
		imageClient:       imageClient,
		promptTemplate:    prompt,
		numberOfWorkers:   numberOfWorkers,
	}
	out.inputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.input", out.GetName()))
	out.outputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.output", out.GetName()))
	return out
}

// IsExecutable requires the campaign and brief seeded by the branch runner.
func (c *AdImagesCommand) IsExecutable(ctx cor.Context) bool {
	return ctx != nil && c.campaign(ctx) != nil && c.brief(ctx) != nil && ctx.GetContext() != nil
}

// Execute drafts the ad prompts in one batched call and generates the images
// through the worker pool.
func (c *AdImagesCommand) Execute(ctx cor.Context) {
	c.begin(ctx)

	campaign := c.campaign(ctx)
	brief := c.brief(ctx)

	prompt, err := renderPrompt(c.GetName(), c.promptTemplate, map[string]any{
		"Topic":         brief.Topic,
		"BrandStrategy": brief.BrandStrategy,
		"VisualBrief":   brief.VisualBrief,
		"CallToAction":  brief.CallToAction,
		"ImageCount":    brief.ImageCount,
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

	var prompts []string
	if err := json.Unmarshal([]byte(raw), &prompts); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), fmt.Errorf("model returned invalid ad prompts: %w", err)))
		return
	}
	if len(prompts) != brief.ImageCount {
		c.finish(ctx, fault.Integrity(c.GetName(),
			fmt.Errorf("model returned %d ad prompts, want %d", len(prompts), brief.ImageCount)))
		return
	}

	jobs := make(chan int, len(prompts))
	results := make(chan *sceneImageResult, len(prompts))

	var wg sync.WaitGroup
	for w := 0; w < c.numberOfWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				path, err := c.generateAd(ctx, campaign.ID, i, prompts[i])
				results <- &sceneImageResult{index: i, path: path, err: err}
			}
		}()
	}
	for i := range prompts {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(results)

	var failed []int
	var firstErr error
	for r := range results {
		if r.err != nil {
			failed = append(failed, r.index)
			if firstErr == nil {
				firstErr = r.err
			}
		}
	}
	if len(failed) > 0 {
		sort.Ints(failed)
		c.finish(ctx, fault.PartialBatch(c.GetName(), failed,
			fmt.Errorf("%d of %d ad images failed: %w", len(failed), len(prompts), firstErr)))
		return
	}
	c.finish(ctx, nil)
}

// generateAd produces and places one ad image with its own bounded retries.
func (c *AdImagesCommand) generateAd(ctx cor.Context, campaignID string, index int, prompt string) (string, error) {
	var img []byte
	err := fault.Retry(ctx.GetContext(), fault.DefaultRetryPolicy(), func(int) error {
		var genErr error
		img, genErr = c.imageClient.Generate(ctx.GetContext(), prompt, adImageWidth, adImageHeight)
		if genErr != nil {
			return genErr
		}
		kind, _ := filetype.Match(img)
		if kind != matchers.TypePng && kind != matchers.TypeJpeg {
			return fault.Transient(c.GetName(), fmt.Errorf("ad image %d payload is not an image (detected %q)", index, kind.Extension))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	path := c.Store.Layout.AdImagePath(campaignID, index)
	if err := c.Store.PlaceFrom(path, bytes.NewReader(img)); err != nil {
		return "", fault.Integrity(c.GetName(), err)
	}
	return path, nil
}
