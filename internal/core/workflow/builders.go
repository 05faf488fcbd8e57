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

// Package workflow assembles the stage commands into executable branch
// pipelines. This file holds the three branch builders. A video branch is an
// eight-stage chain: aesthetic bible, script, narration audio, a fork of
// subtitles and storyboard (both consume only the timing track), prompt
// optimization, scene images, composite render. The blog branch is a fork of
// body and hero. The ad image branch is a single batched stage.
package workflow

import (
	"fmt"

	"github.com/mediaforge/campaign-engine/internal/cloud"
	"github.com/mediaforge/campaign-engine/internal/core/commands"
	"github.com/mediaforge/campaign-engine/internal/core/cor"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// Builder constructs branch pipelines from the shared dependencies.
type Builder struct {
	Store     *store.Store
	Clients   *cloud.ServiceClients
	Config    *cloud.Config
	Templates *Templates
	Renderer  commands.VideoRenderer
}

// shardKeys maps each video branch to its dedicated credential shard. The
// ad image branch and the blog hero share the first shard: they are single
// (or small-batch) generations that never race a video branch's volume.
var shardKeys = map[model.BranchKind]string{
	model.BranchVideoLongForm: "shard_1",
	model.BranchVideoShort1:   "shard_2",
	model.BranchVideoShort2:   "shard_3",
	model.BranchVideoShort3:   "shard_4",
	model.BranchAdImages:      "shard_1",
	model.BranchBlog:          "shard_1",
}

// shardFor resolves the image client for a branch.
func (b *Builder) shardFor(branch model.BranchKind) (*cloud.ImageGenClient, error) {
	key := shardKeys[branch]
	client, ok := b.Clients.ImageShards[key]
	if !ok {
		return nil, fmt.Errorf("no image shard %q configured for branch %s", key, branch)
	}
	return client, nil
}

// agentFor resolves the model binding for a logical role under the
// campaign's plan tier.
func (b *Builder) agentFor(role string, plan model.PlanTier) (*cloud.QuotaAwareGenerativeAIModel, error) {
	key := cloud.AgentModelKey(role, string(plan))
	m, ok := b.Clients.AgentModels[key]
	if !ok {
		return nil, fmt.Errorf("no agent model %q configured", key)
	}
	return m, nil
}

// Logical model roles. Creative work (visual synthesis, storyboarding,
// prompts) and writing (scripts, blog copy) carry separate bindings so the
// tiers can tune them independently.
const (
	roleCreative = "creative"
	roleWriter   = "writer"
)

// VideoAssembly builds the eight-stage pipeline for one video branch.
func (b *Builder) VideoAssembly(branch model.BranchKind, plan model.PlanTier, shared *commands.SharedAssets) (cor.Chain, error) {
	creative, err := b.agentFor(roleCreative, plan)
	if err != nil {
		return nil, err
	}
	writer, err := b.agentFor(roleWriter, plan)
	if err != nil {
		return nil, err
	}
	imageClient, err := b.shardFor(branch)
	if err != nil {
		return nil, err
	}

	fork := cor.NewForkChain(fmt.Sprintf("%s_subtitles_storyboard", branch))
	fork.AddCommand(commands.NewSubtitleCommand(b.Store, branch))
	fork.AddCommand(commands.NewStoryboardCommand(b.Store, branch, creative, b.Templates.Storyboard))

	chain := cor.NewBaseChain(fmt.Sprintf("video_assembly_%s", branch))
	chain.AddCommand(commands.NewAestheticBibleCommand(b.Store, branch, creative, b.Templates.AestheticBible, shared))
	chain.AddCommand(commands.NewScriptCommand(b.Store, branch, writer, b.Templates.Script))
	chain.AddCommand(commands.NewAudioCommand(b.Store, branch, b.Clients.Speech))
	chain.AddCommand(fork)
	chain.AddCommand(commands.NewPromptOptimizerCommand(b.Store, branch, creative, b.Templates.PromptOptimizer))
	chain.AddCommand(commands.NewSceneImagesCommand(b.Store, branch, imageClient, b.Config.Application.ThreadPoolSize))
	chain.AddCommand(commands.NewCompositeRenderCommand(b.Store, branch, b.Renderer, b.Clients.Music, shared))
	return chain, nil
}

// Blog builds the blog branch: body and hero generated concurrently.
func (b *Builder) Blog(plan model.PlanTier) (cor.Chain, error) {
	creative, err := b.agentFor(roleCreative, plan)
	if err != nil {
		return nil, err
	}
	writer, err := b.agentFor(roleWriter, plan)
	if err != nil {
		return nil, err
	}
	imageClient, err := b.shardFor(model.BranchBlog)
	if err != nil {
		return nil, err
	}

	fork := cor.NewForkChain("blog_body_hero")
	fork.AddCommand(commands.NewBlogPostCommand(b.Store, writer, b.Clients.Search, b.Templates.BlogPost))
	fork.AddCommand(commands.NewBlogHeroCommand(b.Store, creative, imageClient, b.Templates.BlogHero))

	chain := cor.NewBaseChain("blog_branch")
	chain.AddCommand(fork)
	return chain, nil
}

// AdImages builds the ad image branch.
func (b *Builder) AdImages(plan model.PlanTier) (cor.Chain, error) {
	creative, err := b.agentFor(roleCreative, plan)
	if err != nil {
		return nil, err
	}
	imageClient, err := b.shardFor(model.BranchAdImages)
	if err != nil {
		return nil, err
	}

	chain := cor.NewBaseChain("ad_images_branch")
	chain.AddCommand(commands.NewAdImagesCommand(b.Store, creative, imageClient, b.Templates.AdImage, b.Config.Application.ThreadPoolSize))
	return chain, nil
}
