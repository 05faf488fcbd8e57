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

// Package model defines the core data structures of the campaign engine.
// This file holds the campaign-level types: the campaign identity, the
// validated brief handed over by the research phase, and the branch
// vocabulary shared by the orchestrator, the stage commands and the status
// reporter.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PlanTier selects which provider binding a generation stage uses. It never
// changes the orchestration shape, only the model a stage talks to.
type PlanTier string

const (
	PlanStandard PlanTier = "standard"
	PlanPremium  PlanTier = "premium"
)

// BranchKind identifies one deliverable pipeline within a campaign. The
// string values double as directory names under the campaign root, so they
// are part of the on-disk contract with the status reporter and the
// publishing surfaces.
type BranchKind string

const (
	BranchBlog          BranchKind = "blog"
	BranchAdImages      BranchKind = "ad_images"
	BranchVideoLongForm BranchKind = "LONG_FORM"
	BranchVideoShort1   BranchKind = "SHORT_1"
	BranchVideoShort2   BranchKind = "SHORT_2"
	BranchVideoShort3   BranchKind = "SHORT_3"
)

// VideoBranches lists the four video variants in launch order.
var VideoBranches = []BranchKind{BranchVideoLongForm, BranchVideoShort1, BranchVideoShort2, BranchVideoShort3}

// AllBranches lists every branch a campaign runs.
var AllBranches = []BranchKind{BranchBlog, BranchAdImages, BranchVideoLongForm, BranchVideoShort1, BranchVideoShort2, BranchVideoShort3}

// IsVideo reports whether the branch is one of the four video variants.
func (k BranchKind) IsVideo() bool {
	switch k {
	case BranchVideoLongForm, BranchVideoShort1, BranchVideoShort2, BranchVideoShort3:
		return true
	}
	return false
}

// Campaign is one end-to-end request to produce a full content set. It is
// created on orchestration start and never mutated afterwards; branches only
// append artifacts beneath its directory.
type Campaign struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Plan      PlanTier  `json:"plan"`
	// LongFormSeconds is the requested duration class for the long-form
	// video. The three shorts use fixed durations derived from it.
	LongFormSeconds int `json:"long_form_seconds"`
}

// NewCampaign mints a campaign with a fresh opaque id.
func NewCampaign(plan PlanTier, longFormSeconds int) *Campaign {
	return &Campaign{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		Plan:            plan,
		LongFormSeconds: longFormSeconds,
	}
}

// VideoDuration returns the target narration duration in seconds for a video
// branch. The long form uses the requested duration; the shorts use the
// fixed ladder the original campaign product shipped with.
func (c *Campaign) VideoDuration(kind BranchKind) int {
	switch kind {
	case BranchVideoLongForm:
		return c.LongFormSeconds
	case BranchVideoShort1, BranchVideoShort3:
		return 10
	case BranchVideoShort2:
		return 15
	}
	return 0
}

// Brief is the validated output of the research and synthesis phase. The
// orchestrator treats it as read-only shared input for every branch.
type Brief struct {
	Topic             string   `json:"topic"`
	BrandStrategy     string   `json:"brand_strategy"`
	ContentGuidelines string   `json:"content_guidelines"`
	VisualBrief       string   `json:"visual_brief"`
	CallToAction      string   `json:"call_to_action"`
	Keywords          []string `json:"keywords"`
	// ImageCount is the number of independent ad images the ad_images
	// branch produces.
	ImageCount int `json:"image_count"`
}

// Validate checks the structural minimum the engine needs before launching
// branches. Anything missing here is an invalid-input failure before any
// work starts.
func (b *Brief) Validate() error {
	if b == nil {
		return fmt.Errorf("brief is nil")
	}
	if b.Topic == "" {
		return fmt.Errorf("brief topic is empty")
	}
	if b.BrandStrategy == "" {
		return fmt.Errorf("brief brand strategy is empty")
	}
	if b.VisualBrief == "" {
		return fmt.Errorf("brief visual brief is empty")
	}
	if b.ImageCount <= 0 {
		return fmt.Errorf("brief image count must be positive, got %d", b.ImageCount)
	}
	return nil
}
