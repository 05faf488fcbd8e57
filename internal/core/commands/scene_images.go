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
// pipelines. This file defines the scene image stage: one image per
// storyboard scene, generated concurrently through a worker pool against the
// branch's credential shard. Each scene gets its own bounded retries; scenes
// that still fail are aggregated into a partial-batch failure carrying their
// indices, because a video silently rendered with missing scenes is worse
// than a failed branch.
package commands

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"

	"github.com/mediaforge/campaign-engine/internal/cloud"
	"github.com/mediaforge/campaign-engine/internal/core/cor"
	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// SceneImagesCommand generates every scene's image through a worker pool.
type SceneImagesCommand struct {
	StageBase
	imageClient     *cloud.ImageGenClient
	numberOfWorkers int
}

// NewSceneImagesCommand constructs the stage for one video branch, pinned to
// the branch's credential shard.
func NewSceneImagesCommand(st *store.Store, branch model.BranchKind, imageClient *cloud.ImageGenClient, numberOfWorkers int) *SceneImagesCommand {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	out := &SceneImagesCommand{
		StageBase:       NewStageBase(StageSceneImages, st, branch),
		imageClient:     imageClient,
		numberOfWorkers: numberOfWorkers,
	}
	out.InputParamName = ParamStoryboard
	return out
}

// sceneImageJob is the unit of work one pool worker processes.
type sceneImageJob struct {
	index  int // Position in the storyboard's scene slice.
	prompt string
	width  int
	height int
}

// sceneImageResult carries a worker's outcome back to the aggregator.
type sceneImageResult struct {
	index int
	path  string
	err   error
}

// Execute fans scene generations out over the worker pool, validates each
// payload is a real image, and fails the stage with the failing scene
// indices if any scene could not be produced.
func (c *SceneImagesCommand) Execute(ctx cor.Context) {
	c.begin(ctx)

	campaign := c.campaign(ctx)
	storyboard := ctx.Get(ParamStoryboard).(*model.Storyboard)
	track := ctx.Get(ParamTiming).(*model.TimingTrack)

	orientation := model.SelectOrientation(track.Duration())
	width, height := orientation.Dimensions()

	jobs := make(chan *sceneImageJob, len(storyboard.Scenes))
	results := make(chan *sceneImageResult, len(storyboard.Scenes))

	var wg sync.WaitGroup
	for w := 0; w < c.numberOfWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				path, err := c.generateScene(ctx, campaign.ID, storyboard.Scenes[j.index], j)
				results <- &sceneImageResult{index: j.index, path: path, err: err}
			}
		}()
	}

	for i := range storyboard.Scenes {
		jobs <- &sceneImageJob{
			index:  i,
			prompt: storyboard.Scenes[i].VisualPrompt,
			width:  width,
			height: height,
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	var failed []int
	var firstErr error
	for r := range results {
		if r.err != nil {
			failed = append(failed, storyboard.Scenes[r.index].ID)
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		storyboard.Scenes[r.index].ImageFile = r.path
	}

	if len(failed) > 0 {
		sort.Ints(failed)
		c.finish(ctx, fault.PartialBatch(c.GetName(), failed,
			fmt.Errorf("%d of %d scene images failed: %w", len(failed), len(storyboard.Scenes), firstErr)))
		return
	}

	// Re-place the storyboard so the image file names are on disk.
	boardPath := c.Store.Layout.BranchPath(campaign.ID, c.Branch, store.StoryboardFile)
	if err := c.Store.PlaceJSON(boardPath, storyboard); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}

	ctx.Add(ParamStoryboard, storyboard)
	c.finish(ctx, nil)
}

// generateScene produces and places one scene image with its own bounded
// retries. The payload must sniff as a PNG or JPEG before it is placed.
func (c *SceneImagesCommand) generateScene(ctx cor.Context, campaignID string, scene model.Scene, j *sceneImageJob) (string, error) {
	var img []byte
	err := fault.Retry(ctx.GetContext(), fault.DefaultRetryPolicy(), func(int) error {
		var genErr error
		img, genErr = c.imageClient.Generate(ctx.GetContext(), j.prompt, j.width, j.height)
		if genErr != nil {
			return genErr
		}
		kind, _ := filetype.Match(img)
		if kind != matchers.TypePng && kind != matchers.TypeJpeg {
			return fault.Transient(c.GetName(), fmt.Errorf("scene %d payload is not an image (detected %q)", scene.ID, kind.Extension))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	path := c.Store.Layout.SceneImagePath(campaignID, c.Branch, scene.ID)
	if err := c.Store.PlaceFrom(path, bytes.NewReader(img)); err != nil {
		return "", fault.Integrity(c.GetName(), err)
	}
	return path, nil
}
