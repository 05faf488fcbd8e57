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

// Package model_test contains unit tests for the campaign engine's data
// models. This file tests the video-assembly invariants: timing track
// validation, storyboard coverage, and orientation selection.
package model_test

import (
	"testing"

	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// track builds a valid timing track of n words at the standard speaking rate.
func track(n int) *model.TimingTrack {
	const perWord = 1.0 / model.WordsPerSecond
	t := &model.TimingTrack{}
	for i := 0; i < n; i++ {
		start := float64(i) * perWord
		t.Words = append(t.Words, model.WordTiming{Word: "word", Start: start, End: start + perWord})
	}
	t.AudioSeconds = float64(n) * perWord
	return t
}

func TestTimingTrackValidate(t *testing.T) {
	assert.NoError(t, track(25).Validate())

	// Empty track.
	empty := &model.TimingTrack{}
	assert.Error(t, empty.Validate())

	// Regressing start times.
	bad := track(5)
	bad.Words[3].Start = bad.Words[1].Start
	assert.Error(t, bad.Validate())

	// A word that ends before it starts.
	bad = track(5)
	bad.Words[2].End = bad.Words[2].Start - 0.1
	assert.Error(t, bad.Validate())

	// Duration drifting past the audio tolerance.
	bad = track(25)
	bad.AudioSeconds = bad.Duration() + model.TimingTolerance + 0.01
	assert.Error(t, bad.Validate())

	// Drift inside the tolerance is accepted.
	ok := track(25)
	ok.AudioSeconds = ok.Duration() + model.TimingTolerance - 0.01
	assert.NoError(t, ok.Validate())
}

func TestStoryboardValidate(t *testing.T) {
	sb := &model.Storyboard{Scenes: []model.Scene{
		{ID: 1, Start: 0, End: 3.5},
		{ID: 2, Start: 3.5, End: 7.0},
		{ID: 3, Start: 7.0, End: 10.0},
	}}
	assert.NoError(t, sb.Validate(10.0))

	// Scenes not covering the narrated duration.
	assert.Error(t, sb.Validate(12.0))

	// A gap between scenes.
	gapped := &model.Storyboard{Scenes: []model.Scene{
		{ID: 1, Start: 0, End: 3.5},
		{ID: 2, Start: 4.0, End: 10.0},
	}}
	assert.Error(t, gapped.Validate(10.0))

	// First scene starting late.
	late := &model.Storyboard{Scenes: []model.Scene{{ID: 1, Start: 0.5, End: 10.0}}}
	assert.Error(t, late.Validate(10.0))

	empty := &model.Storyboard{}
	assert.Error(t, empty.Validate(10.0))
}

// TestSelectOrientation verifies the duration threshold, including the
// inclusive boundary: exactly the threshold renders portrait.
func TestSelectOrientation(t *testing.T) {
	assert.Equal(t, model.OrientationPortrait, model.SelectOrientation(18.0))
	assert.Equal(t, model.OrientationPortrait, model.SelectOrientation(model.PortraitMaxSeconds))
	assert.Equal(t, model.OrientationLandscape, model.SelectOrientation(22.0))

	w, h := model.OrientationPortrait.Dimensions()
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1920, h)
	w, h = model.OrientationLandscape.Dimensions()
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)
}

func TestTargetWordCount(t *testing.T) {
	assert.Equal(t, 25, model.TargetWordCount(10))
	assert.Equal(t, 37, model.TargetWordCount(15))
	assert.Equal(t, 75, model.TargetWordCount(30))
}

// TestVideoDurations verifies the fixed duration ladder for the short
// variants and the pass-through for the long form.
func TestVideoDurations(t *testing.T) {
	campaign := model.NewCampaign(model.PlanStandard, 28)
	assert.NotEmpty(t, campaign.ID)
	assert.Equal(t, 28, campaign.VideoDuration(model.BranchVideoLongForm))
	assert.Equal(t, 10, campaign.VideoDuration(model.BranchVideoShort1))
	assert.Equal(t, 15, campaign.VideoDuration(model.BranchVideoShort2))
	assert.Equal(t, 10, campaign.VideoDuration(model.BranchVideoShort3))
	assert.Equal(t, 0, campaign.VideoDuration(model.BranchBlog))
}

func TestBriefValidate(t *testing.T) {
	brief := &model.Brief{
		Topic:         "topic",
		BrandStrategy: "strategy",
		VisualBrief:   "visuals",
		ImageCount:    3,
	}
	assert.NoError(t, brief.Validate())

	missing := *brief
	missing.Topic = ""
	assert.Error(t, missing.Validate())

	missing = *brief
	missing.ImageCount = 0
	assert.Error(t, missing.Validate())

	var nilBrief *model.Brief
	assert.Error(t, nilBrief.Validate())
}
