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
// pipelines. This file defines the subtitle stage. Cues are cut from the
// word-level timing track: at most eight words per cue, with an earlier cut
// at sentence punctuation, and a hard ceiling on cue span so a long pause
// never stretches a caption across it. The stage is pure computation over
// the timing track — no provider calls — so its only failure modes are
// integrity ones.
package commands

import (
	"fmt"
	"strings"

	"github.com/mediaforge/campaign-engine/internal/core/cor"
	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// Cue segmentation bounds.
const (
	MaxCueWords   = 8   // Hard ceiling on words per caption.
	MaxCueSeconds = 6.0 // Hard ceiling on a caption's time span.
)

// SubtitleCommand renders the SRT caption artifact from the timing track.
type SubtitleCommand struct {
	StageBase
}

// NewSubtitleCommand constructs the stage for one video branch.
func NewSubtitleCommand(st *store.Store, branch model.BranchKind) *SubtitleCommand {
	out := &SubtitleCommand{StageBase: NewStageBase(StageSubtitles, st, branch)}
	out.InputParamName = ParamTiming
	return out
}

// endsSentence reports whether a word closes a sentence or clause, which
// forces a cue boundary after it.
func endsSentence(word string) bool {
	trimmed := strings.TrimRight(word, `"')]`)
	return strings.HasSuffix(trimmed, ".") ||
		strings.HasSuffix(trimmed, "!") ||
		strings.HasSuffix(trimmed, "?") ||
		strings.HasSuffix(trimmed, ";") ||
		strings.HasSuffix(trimmed, ":")
}

// BuildCues cuts the timing track into subtitle cues. Cue indices are
// one-based per the SRT format.
func BuildCues(track *model.TimingTrack) []model.SubtitleCue {
	var cues []model.SubtitleCue
	var words []string
	var start, end float64

	flush := func() {
		if len(words) == 0 {
			return
		}
		cues = append(cues, model.SubtitleCue{
			Index: len(cues) + 1,
			Start: start,
			End:   end,
			Text:  strings.Join(words, " "),
		})
		words = words[:0]
	}

	for _, w := range track.Words {
		if len(words) == 0 {
			start = w.Start
		} else if w.End-start > MaxCueSeconds {
			flush()
			start = w.Start
		}
		words = append(words, w.Word)
		end = w.End
		if len(words) >= MaxCueWords || endsSentence(w.Word) {
			flush()
		}
	}
	flush()
	return cues
}

// FormatSRT renders cues in SubRip format.
func FormatSRT(cues []model.SubtitleCue) string {
	var b strings.Builder
	for _, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			cue.Index, srtTimestamp(cue.Start), srtTimestamp(cue.End), cue.Text)
	}
	return b.String()
}

// srtTimestamp renders seconds as HH:MM:SS,mmm.
func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int(seconds*1000 + 0.5)
	h := millis / 3600000
	m := (millis % 3600000) / 60000
	s := (millis % 60000) / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// Execute validates the timing track, cuts the cues, and places the SRT
// artifact.
func (c *SubtitleCommand) Execute(ctx cor.Context) {
	c.begin(ctx)

	campaign := c.campaign(ctx)
	track := ctx.Get(ParamTiming).(*model.TimingTrack)

	if err := track.Validate(); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}

	cues := BuildCues(track)
	if len(cues) == 0 {
		c.finish(ctx, fault.Integrity(c.GetName(), fmt.Errorf("timing track produced no cues")))
		return
	}

	srtPath := c.Store.Layout.BranchPath(campaign.ID, c.Branch, store.SubtitleFile)
	if err := c.Store.Place(srtPath, []byte(FormatSRT(cues))); err != nil {
		c.finish(ctx, fault.Integrity(c.GetName(), err))
		return
	}

	ctx.Add(ParamSubtitlePath, srtPath)
	c.finish(ctx, nil)
}
