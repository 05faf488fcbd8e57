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
// pipelines. This file is the orchestrator: given a validated brief it
// creates the campaign directory skeleton, then launches all six branches
// as independent goroutines and returns without waiting. Only two failures
// are fatal to a launch: an invalid brief and a campaign directory that
// cannot be created. Everything after that is a branch-level outcome,
// observable through the artifact tree.
package workflow

import (
	goctx "context"
	"fmt"
	"sync"
	"time"

	"github.com/mediaforge/campaign-engine/internal/cloud"
	"github.com/mediaforge/campaign-engine/internal/core/commands"
	"github.com/mediaforge/campaign-engine/internal/core/cor"
	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// CampaignRecord is the campaign.json artifact: the immutable campaign
// parameters plus the brief every branch consumed.
type CampaignRecord struct {
	Campaign *model.Campaign `json:"campaign"`
	Brief    *model.Brief    `json:"brief"`
}

// Run is the handle to one in-flight campaign.
type Run struct {
	Campaign *model.Campaign

	wg      sync.WaitGroup
	mu      sync.Mutex
	results []BranchResult
}

// Wait blocks until every branch has reached a terminal state and returns
// their outcomes.
func (r *Run) Wait() []BranchResult {
	r.wg.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]BranchResult, len(r.results))
	copy(out, r.results)
	return out
}

// Orchestrator launches campaigns.
type Orchestrator struct {
	Builder *Builder
	Config  *cloud.Config
}

// branchDeadline resolves the configured per-branch wall-clock budget.
func (o *Orchestrator) branchDeadline() time.Duration {
	if o.Config.Application.BranchDeadlineSeconds > 0 {
		return time.Duration(o.Config.Application.BranchDeadlineSeconds) * time.Second
	}
	return 15 * time.Minute
}

// Launch starts all six branches of a campaign and returns without waiting
// for them. The returned Run can be used to await completion; the status
// reporter observes progress through the artifact tree regardless.
func (o *Orchestrator) Launch(ctx goctx.Context, campaign *model.Campaign, brief *model.Brief) (*Run, error) {
	if err := brief.Validate(); err != nil {
		return nil, fault.InvalidInput("launch", err)
	}

	st := o.Builder.Store
	if err := st.InitCampaign(campaign.ID); err != nil {
		return nil, fmt.Errorf("failed to initialize campaign directories: %w", err)
	}
	record := &CampaignRecord{Campaign: campaign, Brief: brief}
	if err := st.PlaceJSON(st.Layout.CampaignPath(campaign.ID, store.CampaignFile), record); err != nil {
		return nil, fmt.Errorf("failed to place campaign record: %w", err)
	}

	// Build every chain before launching anything: a misconfigured model or
	// shard should fail the launch, not strand a half-started campaign.
	shared := commands.NewSharedAssets()
	chains := make(map[model.BranchKind]cor.Chain, len(model.AllBranches))

	blogChain, err := o.Builder.Blog(campaign.Plan)
	if err != nil {
		return nil, err
	}
	chains[model.BranchBlog] = blogChain

	adChain, err := o.Builder.AdImages(campaign.Plan)
	if err != nil {
		return nil, err
	}
	chains[model.BranchAdImages] = adChain

	for _, branch := range model.VideoBranches {
		videoChain, err := o.Builder.VideoAssembly(branch, campaign.Plan, shared)
		if err != nil {
			return nil, err
		}
		chains[branch] = videoChain
	}

	run := &Run{Campaign: campaign}
	deadline := o.branchDeadline()
	for _, branch := range model.AllBranches {
		chain := chains[branch]
		kind := branch
		run.wg.Add(1)
		go func() {
			defer run.wg.Done()
			result := RunBranch(ctx, st, campaign, brief, kind, chain, deadline)
			run.mu.Lock()
			run.results = append(run.results, result)
			run.mu.Unlock()
		}()
	}
	return run, nil
}
