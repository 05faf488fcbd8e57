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
// pipelines. This file defines the narration audio stage: one synthesis call
// produces both the MP3 and the word-level timing track. The timing track is
// the spine of everything after it — subtitles, storyboard partitioning and
// the final render all key off it — so it is validated before either
// artifact is placed.
package commands

import (
	"bytes"

	"github.com/mediaforge/campaign-engine/internal/cloud"
	"github.com/mediaforge/campaign-engine/internal/core/cor"
	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// AudioCommand synthesizes the narration audio and its timing track.
type AudioCommand struct {
	StageBase
	speech *cloud.SpeechClient
}

// NewAudioCommand constructs the stage for one video branch.
func NewAudioCommand(st *store.Store, branch model.BranchKind, speech *cloud.SpeechClient) *AudioCommand {
	out := &AudioCommand{
		StageBase: NewStageBase(StageAudio, st, branch),
		speech:    speech,
	}
	out.InputParamName = ParamScript
	return out
}

// Execute synthesizes the narration, places the audio and timing artifacts,
// and publishes the timing track for the fork that follows.
func (c *AudioCommand) Execute(ctx cor.Context) {
	c.begin(ctx)

	campaign := c.campaign(ctx)
	script := ctx.Get(ParamScript).(*model.Script)

	var audio []byte
	var track *model.TimingTrack
	err := fault.Retry(ctx.GetContext(), fault.DefaultRetryPolicy(), func(int) error {
		var synthErr error
		audio, track, synthErr = c.speech.Synthesize(ctx.GetContext(), script.FullNarration)
		return synthErr
	})
	if err != nil {
		c.finish(ctx, err)
		return
	}

	audioPath := c.Store.Layout.BranchPath(campaign.ID, c.Branch, store.NarrationFile)
	if err := c.Store.PlaceFrom(audioPath, bytes.NewReader(audio)); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}
	timingPath := c.Store.Layout.BranchPath(campaign.ID, c.Branch, store.TimingFile)
	if err := c.Store.PlaceJSON(timingPath, track); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}

	ctx.Add(ParamAudioPath, audioPath)
	ctx.Add(ParamTiming, track)
	ctx.Add(cor.CtxOut, track)
	c.finish(ctx, nil)
}
