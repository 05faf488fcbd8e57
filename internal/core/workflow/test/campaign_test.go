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

// This file holds the end-to-end campaign tests: a full six-branch launch,
// the once-per-campaign shared assets, branch failure isolation, and launch
// validation.
package workflow_test

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mediaforge/campaign-engine/internal/core/commands"
	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/core/workflow"
	"github.com/mediaforge/campaign-engine/internal/store"
	"github.com/mediaforge/campaign-engine/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resultsByBranch indexes a run's outcomes for order-independent assertions.
func resultsByBranch(t *testing.T, results []workflow.BranchResult) map[model.BranchKind]error {
	t.Helper()
	out := make(map[model.BranchKind]error, len(results))
	for _, r := range results {
		out[r.Branch] = r.Err
	}
	require.Len(t, out, len(model.AllBranches))
	return out
}

// TestCampaignProducesAllDeliverables launches one standard campaign and
// verifies every branch succeeds and every deliverable lands on disk.
func TestCampaignProducesAllDeliverables(t *testing.T) {
	env := newTestEnv(t)
	brief := testutil.TestBrief()
	campaign := model.NewCampaign(model.PlanStandard, 28)

	run, err := env.orch.Launch(ctx, campaign, brief)
	require.NoError(t, err)

	outcomes := resultsByBranch(t, run.Wait())
	for branch, branchErr := range outcomes {
		assert.NoError(t, branchErr, "branch %s should succeed", branch)
	}

	layout := env.store.Layout
	for _, branch := range model.VideoBranches {
		for _, file := range []string{
			store.FinalVideoFile, store.SubtitleFile, store.NarrationFile,
			store.ScriptFile, store.StoryboardFile,
		} {
			assert.True(t, env.store.Exists(layout.BranchPath(campaign.ID, branch, file)),
				"branch %s should have %s", branch, file)
		}
	}
	assert.True(t, env.store.Exists(layout.BranchPath(campaign.ID, model.BranchBlog, store.BlogPostFile)))
	assert.True(t, env.store.Exists(layout.BranchPath(campaign.ID, model.BranchBlog, store.BlogHeroFile)))
	for i := 0; i < brief.ImageCount; i++ {
		assert.True(t, env.store.Exists(layout.AdImagePath(campaign.ID, i)), "ad image %d", i)
	}

	// One render and one speech synthesis per video branch.
	assert.Equal(t, int64(4), env.renderer.Renders.Load())
	assert.Equal(t, int64(4), env.providers.SpeechCalls.Load())

	snapshot, err := env.reporter.Snapshot(campaign.ID)
	require.NoError(t, err)
	require.Len(t, snapshot.Branches, len(model.AllBranches))
	for _, b := range snapshot.Branches {
		assert.Equal(t, model.BranchSucceeded, b.State, "branch %s", b.Branch)
		assert.NotEmpty(t, b.Assets, "branch %s should report assets", b.Branch)
	}
}

// TestSharedAssetsResolvedOnce verifies the aesthetic bible and the music
// bed each hit their provider exactly once even with four video branches
// racing for them.
func TestSharedAssetsResolvedOnce(t *testing.T) {
	env := newTestEnv(t)
	var bibleCalls atomic.Int64
	env.providers.LLM = func(prompt string) (string, error) {
		if strings.Contains(prompt, "aesthetic bible") {
			bibleCalls.Add(1)
		}
		return routeLLM(prompt)
	}

	campaign := model.NewCampaign(model.PlanStandard, 30)
	run, err := env.orch.Launch(ctx, campaign, testutil.TestBrief())
	require.NoError(t, err)
	for branch, branchErr := range resultsByBranch(t, run.Wait()) {
		require.NoError(t, branchErr, "branch %s", branch)
	}

	assert.Equal(t, int64(1), bibleCalls.Load())
	assert.Equal(t, int64(1), env.providers.MusicCalls.Load())
}

// TestBranchFailureIsolation forces one video branch's render to fail and
// verifies its siblings complete untouched, with the failure recorded in the
// branch marker and the status snapshot.
func TestBranchFailureIsolation(t *testing.T) {
	env := newTestEnv(t)
	env.renderer.FailWhen = func(spec commands.RenderSpec) error {
		if strings.Contains(spec.OutputPath, string(model.BranchVideoShort2)) {
			return errors.New("render crashed")
		}
		return nil
	}

	campaign := model.NewCampaign(model.PlanStandard, 30)
	run, err := env.orch.Launch(ctx, campaign, testutil.TestBrief())
	require.NoError(t, err)

	outcomes := resultsByBranch(t, run.Wait())
	for branch, branchErr := range outcomes {
		if branch == model.BranchVideoShort2 {
			assert.Error(t, branchErr)
			continue
		}
		assert.NoError(t, branchErr, "sibling branch %s must not be affected", branch)
	}

	failure, err := env.store.ReadBranchFailure(campaign.ID, model.BranchVideoShort2)
	require.NoError(t, err)
	assert.Equal(t, commands.StageComposite, failure.Stage)
	assert.Equal(t, string(fault.CategoryIntegrity), failure.Category)
	assert.Contains(t, failure.Reason, "render crashed")

	snapshot, err := env.reporter.Snapshot(campaign.ID)
	require.NoError(t, err)
	for _, b := range snapshot.Branches {
		if b.Branch == model.BranchVideoShort2 {
			assert.Equal(t, model.BranchFailed, b.State)
			require.NotNil(t, b.Failure)
			assert.Equal(t, commands.StageComposite, b.Failure.Stage)
			continue
		}
		assert.Equal(t, model.BranchSucceeded, b.State, "branch %s", b.Branch)
	}
}

// TestLaunchRejectsInvalidBrief verifies an invalid brief fails the launch
// synchronously, before any directory is created.
func TestLaunchRejectsInvalidBrief(t *testing.T) {
	env := newTestEnv(t)
	brief := testutil.TestBrief()
	brief.Topic = ""

	campaign := model.NewCampaign(model.PlanStandard, 30)
	run, err := env.orch.Launch(ctx, campaign, brief)
	require.Error(t, err)
	assert.Nil(t, run)
	assert.Equal(t, fault.CategoryInvalidInput, fault.CategoryOf(err))

	_, err = env.reporter.Snapshot(campaign.ID)
	assert.Error(t, err, "no campaign directory should exist after a rejected launch")
}

// TestTransientProviderFailureIsRetried verifies a provider hiccup on the
// first generation attempt does not fail the campaign.
func TestTransientProviderFailureIsRetried(t *testing.T) {
	env := newTestEnv(t)
	var bibleCalls atomic.Int64
	env.providers.LLM = func(prompt string) (string, error) {
		if strings.Contains(prompt, "aesthetic bible") && bibleCalls.Add(1) == 1 {
			return "", errors.New("provider hiccup")
		}
		return routeLLM(prompt)
	}

	campaign := model.NewCampaign(model.PlanPremium, 20)
	run, err := env.orch.Launch(ctx, campaign, testutil.TestBrief())
	require.NoError(t, err)
	for branch, branchErr := range resultsByBranch(t, run.Wait()) {
		assert.NoError(t, branchErr, "branch %s", branch)
	}
	assert.GreaterOrEqual(t, bibleCalls.Load(), int64(2))
}
