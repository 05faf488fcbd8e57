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

// Package status derives campaign progress from the artifact tree. The
// reporter holds no state of its own: a snapshot is a pure function of what
// is on disk at the moment of the call, so it works identically for a live
// run, a finished run, and a run whose process crashed. Calling it twice
// against an unchanged tree yields the same answer.
package status

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"github.com/h2non/filetype/types"

	"github.com/mediaforge/campaign-engine/internal/core/commands"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// videoStages lists a video branch's stages in pipeline order. Subtitles and
// storyboard run concurrently but report in this stable order.
var videoStages = []string{
	commands.StageAestheticBible,
	commands.StageScript,
	commands.StageAudio,
	commands.StageSubtitles,
	commands.StageStoryboard,
	commands.StagePromptOptimizer,
	commands.StageSceneImages,
	commands.StageComposite,
}

var blogStages = []string{commands.StageBlogPost, commands.StageBlogHero}

var adStages = []string{commands.StageAdImages}

// stagesFor returns the reporting order for a branch.
func stagesFor(branch model.BranchKind) []string {
	switch {
	case branch.IsVideo():
		return videoStages
	case branch == model.BranchBlog:
		return blogStages
	default:
		return adStages
	}
}

// Reporter produces campaign status snapshots from the artifact store.
type Reporter struct {
	Store *store.Store
}

// NewReporter builds a reporter over the given store.
func NewReporter(st *store.Store) *Reporter {
	return &Reporter{Store: st}
}

// Snapshot reads the current state of a campaign from its artifact tree.
// A campaign with no directory returns an error; everything else yields a
// snapshot, however incomplete the run.
func (r *Reporter) Snapshot(campaignID string) (*model.CampaignStatus, error) {
	campaignDir := r.Store.Layout.CampaignDir(campaignID)
	if info, err := os.Stat(campaignDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("unknown campaign %q", campaignID)
	}

	var record struct {
		Brief *model.Brief `json:"brief"`
	}
	// The record may be missing on a crashed launch; the snapshot degrades
	// to artifact presence alone.
	_ = r.Store.ReadJSON(r.Store.Layout.CampaignPath(campaignID, store.CampaignFile), &record)

	snapshot := &model.CampaignStatus{
		CampaignID: campaignID,
		TakenAt:    time.Now().UTC(),
	}
	for _, branch := range model.AllBranches {
		snapshot.Branches = append(snapshot.Branches, r.branchStatus(campaignID, branch, record.Brief))
	}
	return snapshot, nil
}

// branchStatus derives one branch's status from markers and artifacts.
func (r *Reporter) branchStatus(campaignID string, branch model.BranchKind, brief *model.Brief) model.BranchStatus {
	out := model.BranchStatus{Branch: branch, State: model.BranchPending}

	anyStarted := false
	allOK := true
	for _, stage := range stagesFor(branch) {
		st := model.StageStatus{Name: stage, State: model.BranchPending}
		if started, err := r.Store.ReadStageStarted(campaignID, branch, stage); err == nil {
			anyStarted = true
			t := started.StartedAt
			st.StartedAt = &t
			st.State = model.BranchRunning
		}
		if result, err := r.Store.ReadStageResult(campaignID, branch, stage); err == nil {
			t := result.CompletedAt
			st.CompletedAt = &t
			if result.OK {
				st.State = model.BranchSucceeded
			} else {
				st.State = model.BranchFailed
			}
		}
		if st.State != model.BranchSucceeded {
			allOK = false
		}
		out.Stages = append(out.Stages, st)
	}

	if failure, err := r.Store.ReadBranchFailure(campaignID, branch); err == nil {
		out.State = model.BranchFailed
		out.Failure = failure
		return out
	}

	assets, complete := r.branchAssets(campaignID, branch, brief)
	if complete && allOK {
		out.State = model.BranchSucceeded
		out.Assets = assets
		return out
	}
	if anyStarted {
		out.State = model.BranchRunning
	}
	return out
}

// branchAssets returns the branch's deliverable paths and whether the
// deliverable set is complete. A reported asset always exists and, for
// binary deliverables, sniffs as its claimed type: a succeeded branch must
// never advertise a path that cannot be served.
func (r *Reporter) branchAssets(campaignID string, branch model.BranchKind, brief *model.Brief) ([]string, bool) {
	layout := r.Store.Layout
	switch {
	case branch.IsVideo():
		final := layout.BranchPath(campaignID, branch, store.FinalVideoFile)
		if !r.isType(final, matchers.TypeMp4) {
			return nil, false
		}
		assets := []string{
			final,
			layout.BranchPath(campaignID, branch, store.SubtitleFile),
			layout.BranchPath(campaignID, branch, store.NarrationFile),
			layout.BranchPath(campaignID, branch, store.ScriptFile),
			layout.BranchPath(campaignID, branch, store.StoryboardFile),
		}
		for _, a := range assets {
			if !r.Store.Exists(a) {
				return nil, false
			}
		}
		return assets, true

	case branch == model.BranchBlog:
		post := layout.BranchPath(campaignID, branch, store.BlogPostFile)
		hero := layout.BranchPath(campaignID, branch, store.BlogHeroFile)
		if !r.Store.Exists(post) || !r.isImage(hero) {
			return nil, false
		}
		return []string{post, hero}, true

	default:
		want := 0
		if brief != nil {
			want = brief.ImageCount
		}
		pattern := filepath.Join(layout.BranchDir(campaignID, branch), "ad_image_*.png")
		matches, _ := filepath.Glob(pattern)
		sort.Strings(matches)
		var assets []string
		for _, m := range matches {
			if r.isImage(m) {
				assets = append(assets, m)
			}
		}
		if want == 0 || len(assets) < want {
			return nil, false
		}
		return assets, true
	}
}

// isType reports whether the file exists and its header matches the type.
func (r *Reporter) isType(path string, want ...types.Type) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, 261)
	n, _ := f.Read(head)
	kind, err := filetype.Match(head[:n])
	if err != nil {
		return false
	}
	for _, w := range want {
		if kind == w {
			return true
		}
	}
	return false
}

// isImage reports whether the file sniffs as PNG or JPEG.
func (r *Reporter) isImage(path string) bool {
	return r.isType(path, matchers.TypePng, matchers.TypeJpeg)
}
