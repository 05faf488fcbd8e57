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
// pipelines. This file runs one branch: it seeds a fresh chain context,
// applies the branch deadline, executes the chain, and converts the chain's
// first recorded error into the on-disk branch failure marker. A branch
// failure never propagates beyond its marker — sibling branches neither see
// it nor get cancelled by it.
package workflow

import (
	goctx "context"
	"log/slog"
	"time"

	"github.com/mediaforge/campaign-engine/internal/core/commands"
	"github.com/mediaforge/campaign-engine/internal/core/cor"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// BranchResult is one branch's terminal outcome.
type BranchResult struct {
	Branch model.BranchKind
	Err    error // nil when the branch succeeded.
}

// RunBranch executes one branch pipeline to completion under its deadline.
//
// Inputs:
//   - ctx: The campaign-level context; the branch deadline is derived from it.
//   - st: The artifact store, for the failure marker.
//   - campaign, brief: The shared read-only inputs seeded into the chain.
//   - branch: The branch identity, for the failure marker.
//   - chain: The built pipeline.
//   - deadline: The branch wall-clock budget; zero means no deadline.
//
// Outputs:
//   - BranchResult: The branch outcome; Err carries the first stage error.
func RunBranch(
	ctx goctx.Context,
	st *store.Store,
	campaign *model.Campaign,
	brief *model.Brief,
	branch model.BranchKind,
	chain cor.Chain,
	deadline time.Duration) BranchResult {
	branchCtx := ctx
	if deadline > 0 {
		var cancel goctx.CancelFunc
		branchCtx, cancel = goctx.WithTimeout(ctx, deadline)
		defer cancel()
	}

	chCtx := cor.NewBaseContext()
	defer chCtx.Close()
	chCtx.SetContext(branchCtx)
	chCtx.Add(commands.ParamCampaign, campaign)
	chCtx.Add(commands.ParamBrief, brief)

	slog.Info("branch started", "campaign", campaign.ID, "branch", branch)
	chain.Execute(chCtx)

	stage, err := chCtx.FirstError()
	if err == nil {
		slog.Info("branch succeeded", "campaign", campaign.ID, "branch", branch)
		return BranchResult{Branch: branch}
	}

	slog.Error("branch failed", "campaign", campaign.ID, "branch", branch, "stage", stage, "error", err)
	if markErr := st.WriteBranchFailure(campaign.ID, branch, stage, err); markErr != nil {
		slog.Error("failed to write branch failure marker",
			"campaign", campaign.ID, "branch", branch, "error", markErr)
	}
	return BranchResult{Branch: branch, Err: err}
}
