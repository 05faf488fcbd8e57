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
// pipelines. This file defines the composite render stage: the last stage of
// a video branch. It resolves the campaign's shared music bed through the
// once-barrier (the first branch to arrive fetches it; the rest reuse the
// placed artifact), selects the orientation from the narrated duration, and
// hands everything to the renderer. The finished file is rendered to a temp
// path and atomically placed as final.mp4.
package commands

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mediaforge/campaign-engine/internal/cloud"
	"github.com/mediaforge/campaign-engine/internal/core/cor"
	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// CompositeRenderCommand assembles the final video for one branch.
type CompositeRenderCommand struct {
	StageBase
	renderer    VideoRenderer
	musicClient *cloud.MusicClient
	shared      *SharedAssets
}

// NewCompositeRenderCommand constructs the stage for one video branch.
func NewCompositeRenderCommand(
	st *store.Store,
	branch model.BranchKind,
	renderer VideoRenderer,
	musicClient *cloud.MusicClient,
	shared *SharedAssets) *CompositeRenderCommand {
	out := &CompositeRenderCommand{
		StageBase:   NewStageBase(StageComposite, st, branch),
		renderer:    renderer,
		musicClient: musicClient,
		shared:      shared,
	}
	out.InputParamName = ParamStoryboard
	return out
}

// ensureMusic resolves the campaign's shared music bed, fetching it at most
// once per campaign across all four branches.
func (c *CompositeRenderCommand) ensureMusic(ctx cor.Context, campaign *model.Campaign, mood string) (string, error) {
	musicPath := c.Store.Layout.CampaignPath(campaign.ID, store.MusicFile)
	_, err := c.shared.onceMusic(campaign.ID, func() (interface{}, error) {
		if c.Store.Exists(musicPath) {
			return musicPath, nil
		}
		var track []byte
		err := fault.Retry(ctx.GetContext(), fault.DefaultRetryPolicy(), func(int) error {
			var fetchErr error
			track, fetchErr = c.musicClient.FetchTrack(ctx.GetContext(), mood)
			return fetchErr
		})
		if err != nil {
			return nil, err
		}
		if err := c.Store.PlaceFrom(musicPath, bytes.NewReader(track)); err != nil {
			return nil, fault.Integrity(c.GetName(), err)
		}
		return musicPath, nil
	})
	if err != nil {
		return "", err
	}
	return musicPath, nil
}

// Execute renders the branch's final video and places it atomically.
func (c *CompositeRenderCommand) Execute(ctx cor.Context) {
	c.begin(ctx)

	campaign := c.campaign(ctx)
	storyboard := ctx.Get(ParamStoryboard).(*model.Storyboard)
	track := ctx.Get(ParamTiming).(*model.TimingTrack)
	audioPath, _ := ctx.Get(ParamAudioPath).(string)
	subtitlePath, _ := ctx.Get(ParamSubtitlePath).(string)
	bible := ctx.Get(ParamBible).(*model.AestheticBible)

	if audioPath == "" || !c.Store.Exists(audioPath) {
		c.finish(ctx, fault.Integrity(c.GetName(), fmt.Errorf("narration audio artifact is missing")))
		return
	}
	if subtitlePath == "" || !c.Store.Exists(subtitlePath) {
		c.finish(ctx, fault.Integrity(c.GetName(), fmt.Errorf("subtitle artifact is missing")))
		return
	}

	musicPath, err := c.ensureMusic(ctx, campaign, bible.Mood)
	if err != nil {
		c.finish(ctx, err)
		return
	}

	finalPath := c.Store.Layout.BranchPath(campaign.ID, c.Branch, store.FinalVideoFile)
	tmp, err := os.CreateTemp(c.Store.Layout.BranchDir(campaign.ID, c.Branch), ".render-*.mp4")
	if err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}
	tmpPath := tmp.Name()
	tmp.Close()
	ctx.AddTempFile(tmpPath)

	spec := RenderSpec{
		Scenes:       storyboard.Scenes,
		AudioPath:    audioPath,
		SubtitlePath: subtitlePath,
		MusicPath:    musicPath,
		Orientation:  model.SelectOrientation(track.Duration()),
		OutputPath:   tmpPath,
	}
	if err := c.renderer.Render(ctx.GetContext(), spec); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}

	if err := c.Store.PlaceFile(finalPath, tmpPath); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}

	ctx.Add(cor.CtxOut, finalPath)
	c.finish(ctx, nil)
}
