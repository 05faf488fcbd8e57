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

package commands_test

import (
	"strings"
	"testing"

	"github.com/mediaforge/campaign-engine/internal/core/commands"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPartitionScenesCoverage verifies a 28-second narration cuts into eight
// contiguous scenes that exactly cover the narrated duration.
func TestPartitionScenesCoverage(t *testing.T) {
	tr := evenTrack(70) // 70 words at 2.5 wps = 28 seconds.
	scenes := commands.PartitionScenes(tr, model.TargetSceneSeconds)

	require.Len(t, scenes, 8)
	assert.Equal(t, 0.0, scenes[0].Start)
	assert.Equal(t, tr.Duration(), scenes[len(scenes)-1].End)
	for i, s := range scenes {
		assert.Equal(t, i+1, s.ID)
		assert.Greater(t, s.End, s.Start, "scene %d must have positive length", s.ID)
		if i > 0 {
			assert.Equal(t, scenes[i-1].End, s.Start, "scene %d must start where %d ended", s.ID, s.ID-1)
		}
	}

	// The partition satisfies the storyboard invariant as-is.
	sb := &model.Storyboard{Scenes: scenes}
	assert.NoError(t, sb.Validate(tr.Duration()))
}

// TestPartitionScenesSnapsToWordEnds verifies interior boundaries land on
// word ends so cuts fall on natural speech boundaries.
func TestPartitionScenesSnapsToWordEnds(t *testing.T) {
	tr := evenTrack(70)
	scenes := commands.PartitionScenes(tr, model.TargetSceneSeconds)

	for _, s := range scenes[:len(scenes)-1] {
		found := false
		for _, w := range tr.Words {
			if w.End == s.End {
				found = true
				break
			}
		}
		assert.True(t, found, "scene %d boundary %.2f should land on a word end", s.ID, s.End)
	}
}

// TestPartitionScenesNarrationAssignment verifies every word lands in exactly
// one scene, in order.
func TestPartitionScenesNarrationAssignment(t *testing.T) {
	tr := evenTrack(70)
	scenes := commands.PartitionScenes(tr, model.TargetSceneSeconds)

	var parts []string
	for _, s := range scenes {
		assert.NotEmpty(t, s.NarrationText, "scene %d should carry narration", s.ID)
		parts = append(parts, s.NarrationText)
	}
	var all []string
	for _, w := range tr.Words {
		all = append(all, w.Word)
	}
	assert.Equal(t, strings.Join(all, " "), strings.Join(parts, " "))
}

// TestPartitionScenesShortNarration verifies a narration shorter than the
// target becomes a single scene covering it whole.
func TestPartitionScenesShortNarration(t *testing.T) {
	tr := evenTrack(5) // 2 seconds, under the scene target.
	scenes := commands.PartitionScenes(tr, model.TargetSceneSeconds)

	require.Len(t, scenes, 1)
	assert.Equal(t, 0.0, scenes[0].Start)
	assert.Equal(t, tr.Duration(), scenes[0].End)
	assert.Equal(t, "w0 w1 w2 w3 w4", scenes[0].NarrationText)
}

func TestPartitionScenesEmptyTrack(t *testing.T) {
	assert.Nil(t, commands.PartitionScenes(&model.TimingTrack{}, model.TargetSceneSeconds))
}
