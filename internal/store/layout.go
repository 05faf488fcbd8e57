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

// Package store owns the artifact directory contract. The directory tree IS
// the engine's state: progress is judged by which artifacts exist, never by
// an in-memory state machine, so a crashed run can be inspected (and its
// completed branches consumed) with nothing but the filesystem.
//
// Layout per campaign:
//
//	{root}/{campaign-id}/
//	    campaign.json             campaign record plus brief
//	    aesthetic_bible.json      shared visual style, written once
//	    background_music.mp3      shared bed track, fetched once
//	    blog/                     blog branch artifacts
//	    ad_images/                ad image branch artifacts
//	    LONG_FORM/                video branch artifacts
//	        images/               one image per storyboard scene
//	    SHORT_1/  SHORT_2/  SHORT_3/   same shape as LONG_FORM
//
// Stage markers and the branch failure marker live inside each branch
// directory; see markers.go.
package store

import (
	"fmt"
	"path/filepath"

	"github.com/mediaforge/campaign-engine/internal/core/model"
)

// Well-known artifact file names. These are part of the on-disk contract the
// status reporter and the publishing surfaces read.
const (
	CampaignFile   = "campaign.json"
	BibleFile      = "aesthetic_bible.json"
	MusicFile      = "background_music.mp3"
	ScriptFile     = "script.json"
	NarrationFile  = "narration.mp3"
	TimingFile     = "timing.json"
	SubtitleFile   = "captions.srt"
	StoryboardFile = "storyboard.json"
	FinalVideoFile = "final.mp4"
	BlogPostFile   = "blog_post.md"
	BlogHeroFile   = "hero.png"
	ImagesDir      = "images"
)

// Layout resolves every artifact path for campaigns rooted at a base
// directory.
type Layout struct {
	Root string
}

// NewLayout builds a Layout rooted at the given directory.
func NewLayout(root string) *Layout {
	return &Layout{Root: root}
}

// CampaignDir is the root directory of one campaign.
func (l *Layout) CampaignDir(campaignID string) string {
	return filepath.Join(l.Root, campaignID)
}

// BranchDir is the directory holding one branch's artifacts. The branch kind
// string is the directory name.
func (l *Layout) BranchDir(campaignID string, branch model.BranchKind) string {
	return filepath.Join(l.Root, campaignID, string(branch))
}

// BranchImagesDir is the scene-image directory of a video branch. Ad images
// land directly in their branch directory instead.
func (l *Layout) BranchImagesDir(campaignID string, branch model.BranchKind) string {
	return filepath.Join(l.BranchDir(campaignID, branch), ImagesDir)
}

// CampaignPath resolves a campaign-level artifact such as the aesthetic
// bible or the background music.
func (l *Layout) CampaignPath(campaignID, name string) string {
	return filepath.Join(l.CampaignDir(campaignID), name)
}

// BranchPath resolves a branch-level artifact such as a script or the final
// video.
func (l *Layout) BranchPath(campaignID string, branch model.BranchKind, name string) string {
	return filepath.Join(l.BranchDir(campaignID, branch), name)
}

// SceneImagePath resolves the image file for one storyboard scene.
func (l *Layout) SceneImagePath(campaignID string, branch model.BranchKind, sceneID int) string {
	return filepath.Join(l.BranchImagesDir(campaignID, branch), fmt.Sprintf("scene_%03d.png", sceneID))
}

// AdImagePath resolves one of the independent ad images.
func (l *Layout) AdImagePath(campaignID string, index int) string {
	return filepath.Join(l.BranchDir(campaignID, model.BranchAdImages), fmt.Sprintf("ad_image_%02d.png", index+1))
}
