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

// Package store_test contains unit tests for the artifact store: atomic
// placement, the directory skeleton, and the stage and failure markers.
package store_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCampaignCreatesSkeleton(t *testing.T) {
	st := store.NewStore(t.TempDir())
	require.NoError(t, st.InitCampaign("camp-1"))

	for _, branch := range model.AllBranches {
		info, err := os.Stat(st.Layout.BranchDir("camp-1", branch))
		require.NoError(t, err, "branch dir for %s", branch)
		assert.True(t, info.IsDir())
		if branch.IsVideo() {
			info, err = os.Stat(st.Layout.BranchImagesDir("camp-1", branch))
			require.NoError(t, err, "images dir for %s", branch)
			assert.True(t, info.IsDir())
		}
	}
}

// TestPlaceLeavesNoTempFiles verifies atomic placement: the destination holds
// exactly the placed bytes and no temp file survives in the directory.
func TestPlaceLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	st := store.NewStore(root)

	path := filepath.Join(root, "artifact.bin")
	payload := bytes.Repeat([]byte("campaign"), 1024)
	require.NoError(t, st.Place(path, payload))

	got, err := st.Read(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".placing-"), "temp file left behind: %s", e.Name())
	}
}

func TestPlaceFromStreams(t *testing.T) {
	root := t.TempDir()
	st := store.NewStore(root)

	path := filepath.Join(root, "stream.bin")
	require.NoError(t, st.PlaceFrom(path, strings.NewReader("streamed content")))

	got, err := st.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "streamed content", string(got))
}

func TestPlaceFileMovesSource(t *testing.T) {
	root := t.TempDir()
	st := store.NewStore(root)

	src := filepath.Join(root, ".render-tmp.mp4")
	require.NoError(t, os.WriteFile(src, []byte("rendered"), 0o640))

	dst := filepath.Join(root, "final.mp4")
	require.NoError(t, st.PlaceFile(dst, src))

	assert.True(t, st.Exists(dst))
	assert.False(t, st.Exists(src))
}

func TestPlaceJSONRoundTrip(t *testing.T) {
	root := t.TempDir()
	st := store.NewStore(root)

	in := &model.Script{VideoTitle: "Chase the Dawn", FullNarration: "run", TargetWordCount: 25, TargetSeconds: 10}
	path := filepath.Join(root, store.ScriptFile)
	require.NoError(t, st.PlaceJSON(path, in))

	var out model.Script
	require.NoError(t, st.ReadJSON(path, &out))
	assert.Equal(t, *in, out)

	assert.Error(t, st.ReadJSON(filepath.Join(root, "missing.json"), &out))
}

func TestExists(t *testing.T) {
	root := t.TempDir()
	st := store.NewStore(root)

	assert.False(t, st.Exists(filepath.Join(root, "nope")))
	// A directory is not an artifact.
	assert.False(t, st.Exists(root))

	path := filepath.Join(root, "present")
	require.NoError(t, st.Place(path, []byte("x")))
	assert.True(t, st.Exists(path))
}

func TestStageMarkers(t *testing.T) {
	st := store.NewStore(t.TempDir())
	require.NoError(t, st.InitCampaign("camp-1"))
	branch := model.BranchVideoShort1

	require.NoError(t, st.MarkStageStarted("camp-1", branch, "narration_script"))
	started, err := st.ReadStageStarted("camp-1", branch, "narration_script")
	require.NoError(t, err)
	assert.Equal(t, "narration_script", started.Stage)
	assert.False(t, started.StartedAt.IsZero())

	require.NoError(t, st.MarkStageResult("camp-1", branch, "narration_script", nil))
	result, err := st.ReadStageResult("camp-1", branch, "narration_script")
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, started.StartedAt, result.StartedAt)
	assert.Empty(t, result.Category)

	// A failed stage records its classification and reason.
	stageErr := fault.Integrity("narration_audio", errors.New("timing drifted"))
	require.NoError(t, st.MarkStageResult("camp-1", branch, "narration_audio", stageErr))
	result, err = st.ReadStageResult("camp-1", branch, "narration_audio")
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, string(fault.CategoryIntegrity), result.Category)
	assert.Contains(t, result.Reason, "timing drifted")
}

func TestBranchFailureMarker(t *testing.T) {
	st := store.NewStore(t.TempDir())
	require.NoError(t, st.InitCampaign("camp-1"))
	branch := model.BranchVideoShort2

	_, err := st.ReadBranchFailure("camp-1", branch)
	assert.Error(t, err, "a healthy branch has no failure marker")

	stageErr := fault.PartialBatch("scene_images", []int{1, 4}, errors.New("two scenes failed"))
	require.NoError(t, st.WriteBranchFailure("camp-1", branch, "scene_images", stageErr))

	failure, err := st.ReadBranchFailure("camp-1", branch)
	require.NoError(t, err)
	assert.Equal(t, branch, failure.Branch)
	assert.Equal(t, "scene_images", failure.Stage)
	assert.Equal(t, string(fault.CategoryPartialBatch), failure.Category)
	assert.Equal(t, []int{1, 4}, failure.FailedItems)
	assert.False(t, failure.FailedAt.IsZero())
}

func TestLayoutPaths(t *testing.T) {
	layout := store.NewLayout("root")

	assert.Equal(t,
		filepath.Join("root", "c1", "LONG_FORM", "images", "scene_003.png"),
		layout.SceneImagePath("c1", model.BranchVideoLongForm, 3))
	// Ad image naming is 1-based on disk.
	assert.Equal(t,
		filepath.Join("root", "c1", "ad_images", "ad_image_01.png"),
		layout.AdImagePath("c1", 0))
	assert.Equal(t,
		filepath.Join("root", "c1", "blog", "blog_post.md"),
		layout.BranchPath("c1", model.BranchBlog, store.BlogPostFile))
}
