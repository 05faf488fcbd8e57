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
// pipelines. This file defines the blog body stage. The topic is researched
// through the web search provider first so the post can cite current
// sources; an empty research result is not a failure, the post is simply
// written from the brief alone.
package commands

import (
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

// BlogPostCommand writes the long-form blog body as Markdown.
type BlogPostCommand struct {
	StageBase
	generativeAIModel  *cloud.QuotaAwareGenerativeAIModel
	searchClient       *cloud.SearchClient
	promptTemplate     *template.Template
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
}

// NewBlogPostCommand constructs the blog body stage.
func NewBlogPostCommand(
	st *store.Store,
	genModel *cloud.QuotaAwareGenerativeAIModel,
	searchClient *cloud.SearchClient,
	prompt *template.Template) *BlogPostCommand {
	out := &BlogPostCommand{
		StageBase:         NewStageBase(StageBlogPost, st, model.BranchBlog),
		generativeAIModel: genModel,
		searchClient:      searchClient,
		promptTemplate:    prompt,
	}
	out.inputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.input", out.GetName()))
	out.outputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.token.output", out.GetName()))
	return out
}

// IsExecutable requires the campaign and brief seeded by the branch runner.
func (c *BlogPostCommand) IsExecutable(ctx cor.Context) bool {
	return ctx != nil && c.campaign(ctx) != nil && c.brief(ctx) != nil && ctx.GetContext() != nil
}

// Execute researches the topic, writes the post, and places the Markdown
// artifact.
func (c *BlogPostCommand) Execute(ctx cor.Context) {
	c.begin(ctx)

	campaign := c.campaign(ctx)
	brief := c.brief(ctx)

	// Research failures degrade to an unreferenced post rather than failing
	// the branch; the search provider is an enrichment, not a dependency.
	var references strings.Builder
	results, err := c.searchClient.Search(ctx.GetContext(), brief.Topic)
	if err == nil {
		for _, r := range results {
			fmt.Fprintf(&references, "- %s (%s): %s\n", r.Title, r.URL, r.Content)
		}
	}

	prompt, err := renderPrompt(c.GetName(), c.promptTemplate, map[string]any{
		"Topic":             brief.Topic,
		"BrandStrategy":     brief.BrandStrategy,
		"ContentGuidelines": brief.ContentGuidelines,
		"CallToAction":      brief.CallToAction,
		"Keywords":          strings.Join(brief.Keywords, ", "),
		"References":        references.String(),
	})
	if err != nil {
		c.finish(ctx, err)
		return
	}

	var body string
	err = fault.Retry(ctx.GetContext(), fault.DefaultRetryPolicy(), func(int) error {
		var genErr error
		body, genErr = cloud.GenerateTextResponse(ctx.GetContext(),
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
	if strings.TrimSpace(body) == "" {
		c.finish(ctx, fault.Integrity(c.GetName(), fmt.Errorf("model returned an empty blog body")))
		return
	}

	postPath := c.Store.Layout.BranchPath(campaign.ID, model.BranchBlog, store.BlogPostFile)
	if err := c.Store.Place(postPath, []byte(body)); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}
	c.finish(ctx, nil)
}
