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

// Package commands_test contains unit tests for the pure stage computations:
// subtitle cue segmentation, storyboard partitioning, and the script word
// budget.
package commands_test

import (
	"fmt"
	"testing"

	"github.com/mediaforge/campaign-engine/internal/core/commands"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordTrack builds a contiguous timing track from the given words at the
// standard speaking rate.
func wordTrack(words ...string) *model.TimingTrack {
	const perWord = 1.0 / model.WordsPerSecond
	tr := &model.TimingTrack{}
	for i, w := range words {
		start := float64(i) * perWord
		tr.Words = append(tr.Words, model.WordTiming{Word: w, Start: start, End: start + perWord})
	}
	tr.AudioSeconds = float64(len(words)) * perWord
	return tr
}

// evenTrack builds a track of n distinct words so tests can trace which word
// landed where.
func evenTrack(n int) *model.TimingTrack {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return wordTrack(words...)
}

// TestBuildCuesWordCeiling verifies the eight-word ceiling: twenty words with
// no punctuation cut into cues of 8, 8 and 4.
func TestBuildCuesWordCeiling(t *testing.T) {
	tr := evenTrack(20)
	cues := commands.BuildCues(tr)

	require.Len(t, cues, 3)
	assert.Equal(t, 1, cues[0].Index)
	assert.Equal(t, 2, cues[1].Index)
	assert.Equal(t, 3, cues[2].Index)
	assert.Equal(t, 8, commands.CountWords(cues[0].Text))
	assert.Equal(t, 8, commands.CountWords(cues[1].Text))
	assert.Equal(t, 4, commands.CountWords(cues[2].Text))

	// Cue spans are taken from the word timings, back to back.
	assert.Equal(t, tr.Words[0].Start, cues[0].Start)
	assert.Equal(t, tr.Words[7].End, cues[0].End)
	assert.Equal(t, tr.Words[8].Start, cues[1].Start)
	assert.Equal(t, tr.Words[19].End, cues[2].End)
}

// TestBuildCuesSentenceBreak verifies sentence punctuation forces an early
// cut, including punctuation hidden behind a closing quote.
func TestBuildCuesSentenceBreak(t *testing.T) {
	tr := wordTrack("run", "the", "trail.", "then", "rest")
	cues := commands.BuildCues(tr)
	require.Len(t, cues, 2)
	assert.Equal(t, "run the trail.", cues[0].Text)
	assert.Equal(t, "then rest", cues[1].Text)

	tr = wordTrack("she", "said", `"go."`, "now")
	cues = commands.BuildCues(tr)
	require.Len(t, cues, 2)
	assert.Equal(t, `she said "go."`, cues[0].Text)
}

// TestBuildCuesSpanCeiling verifies a cue never stretches past the span
// ceiling even when the word count stays low.
func TestBuildCuesSpanCeiling(t *testing.T) {
	// Four slow words at two seconds each. The fourth would stretch the cue
	// to eight seconds, so it starts a new one.
	tr := &model.TimingTrack{AudioSeconds: 8}
	for i := 0; i < 4; i++ {
		tr.Words = append(tr.Words, model.WordTiming{
			Word:  fmt.Sprintf("w%d", i),
			Start: float64(i) * 2,
			End:   float64(i)*2 + 2,
		})
	}

	cues := commands.BuildCues(tr)
	require.Len(t, cues, 2)
	assert.Equal(t, "w0 w1 w2", cues[0].Text)
	assert.LessOrEqual(t, cues[0].End-cues[0].Start, commands.MaxCueSeconds)
	assert.Equal(t, "w3", cues[1].Text)
}

func TestBuildCuesEmptyTrack(t *testing.T) {
	assert.Empty(t, commands.BuildCues(&model.TimingTrack{}))
}

// TestFormatSRT verifies the SubRip layout and the HH:MM:SS,mmm timestamps.
func TestFormatSRT(t *testing.T) {
	cues := []model.SubtitleCue{
		{Index: 1, Start: 0, End: 3.5, Text: "hello world"},
		{Index: 2, Start: 3.5, End: 61.25, Text: "still going"},
	}
	got := commands.FormatSRT(cues)
	want := "1\n00:00:00,000 --> 00:00:03,500\nhello world\n\n" +
		"2\n00:00:03,500 --> 00:01:01,250\nstill going\n\n"
	assert.Equal(t, want, got)
}
