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

// Package model defines the core data structures of the campaign engine.
// This file holds the video-assembly types: the aesthetic bible shared by
// all four video branches, the narration script, the word-level timing
// track, subtitle cues, and the storyboard scenes. These structs are the
// JSON shapes persisted to the artifact store, so field tags are part of the
// directory contract.
package model

import (
	"fmt"
	"math"
)

// Speaking-rate and segmentation constants carried over from the original
// campaign product. TargetSceneSeconds is the storyboard partition target;
// the final scene absorbs any remainder.
const (
	WordsPerSecond     = 2.5
	WordCountTolerance = 0.10
	TargetSceneSeconds = 3.5
	// TimingTolerance is the allowed drift between the timing track's total
	// duration and the narration audio duration.
	TimingTolerance = 0.75
)

// AestheticBible is the campaign-wide visual style descriptor. It is
// computed exactly once per campaign and read by every video branch, so it
// must be treated as immutable once placed.
type AestheticBible struct {
	ColorPalette  []string `json:"color_palette"`
	LightingStyle string   `json:"lighting_style"`
	CameraStyle   string   `json:"camera_style"`
	Mood          string   `json:"mood"`
	VisualStyle   string   `json:"visual_style"`
	// LogoVisible and ColorLocked are the product constraints the image
	// prompts must respect.
	LogoVisible bool `json:"logo_visible"`
	ColorLocked bool `json:"color_locked"`
}

// Script is the narration script for one video variant.
type Script struct {
	VideoTitle      string `json:"video_title"`
	FullNarration   string `json:"full_narration"`
	TargetWordCount int    `json:"target_word_count"`
	TargetSeconds   int    `json:"target_seconds"`
}

// TargetWordCount converts a requested duration into the narration word
// budget at the standard conversational speaking rate.
func TargetWordCount(seconds int) int {
	return int(float64(seconds) * WordsPerSecond)
}

// WordTiming is one aligned unit of the timing track: a spoken word with its
// start and end offsets in seconds from the beginning of the narration audio.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TimingTrack is the word-level alignment produced by the narration-audio
// stage and consumed by both the subtitle and storyboard stages.
type TimingTrack struct {
	Words []WordTiming `json:"words"`
	// AudioSeconds is the measured duration of the narration audio the
	// track was aligned against.
	AudioSeconds float64 `json:"audio_seconds"`
}

// Duration returns the end time of the last word, which is the narrated
// duration the storyboard partitions.
func (t *TimingTrack) Duration() float64 {
	if len(t.Words) == 0 {
		return 0
	}
	return t.Words[len(t.Words)-1].End
}

// Validate enforces the timing-track invariants: non-empty, monotonically
// non-decreasing start times, non-negative spans, and a total duration that
// matches the audio duration within tolerance. A violation is an integrity
// failure for any stage consuming the track.
func (t *TimingTrack) Validate() error {
	if len(t.Words) == 0 {
		return fmt.Errorf("timing track has no words")
	}
	prev := 0.0
	for i, w := range t.Words {
		if w.Start < prev {
			return fmt.Errorf("timing track start times regress at word %d (%q): %.3f < %.3f", i, w.Word, w.Start, prev)
		}
		if w.End < w.Start {
			return fmt.Errorf("timing track word %d (%q) ends before it starts", i, w.Word)
		}
		prev = w.Start
	}
	if t.AudioSeconds > 0 && math.Abs(t.Duration()-t.AudioSeconds) > TimingTolerance {
		return fmt.Errorf("timing track duration %.2fs does not match audio duration %.2fs", t.Duration(), t.AudioSeconds)
	}
	return nil
}

// SubtitleCue is one caption block of the SRT artifact: a short run of words
// bounded by duration and line length.
type SubtitleCue struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Scene is one timed visual segment of a video. Scenes are contiguous and
// together cover the full narration duration with no gaps or overlaps.
type Scene struct {
	ID            int     `json:"scene_id"`
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	NarrationText string  `json:"narration_text"`
	Concept       string  `json:"high_level_concept"`
	VisualPrompt  string  `json:"visual_prompt"`
	// ContinuityNote tells the next scene's image how this one should hand
	// off (palette, camera, framing) so the stitched video reads smoothly.
	ContinuityNote string `json:"continuity_note"`
	// ImageFile is filled in by the scene-image stage, relative to the
	// branch images directory.
	ImageFile string `json:"image_file,omitempty"`
}

// Duration is the scene's time span in seconds.
func (s *Scene) Duration() float64 { return s.End - s.Start }

// Storyboard is the ordered scene list for one video variant.
type Storyboard struct {
	Scenes []Scene `json:"scenes"`
}

// Validate enforces the coverage invariant: at least one scene, first scene
// starting at zero, contiguous boundaries, and full coverage of the narrated
// duration.
func (sb *Storyboard) Validate(totalSeconds float64) error {
	if len(sb.Scenes) == 0 {
		return fmt.Errorf("storyboard has no scenes")
	}
	if sb.Scenes[0].Start != 0 {
		return fmt.Errorf("first scene starts at %.3f, want 0", sb.Scenes[0].Start)
	}
	for i := 1; i < len(sb.Scenes); i++ {
		if sb.Scenes[i].Start != sb.Scenes[i-1].End {
			return fmt.Errorf("scene %d starts at %.3f but scene %d ends at %.3f", i, sb.Scenes[i].Start, i-1, sb.Scenes[i-1].End)
		}
	}
	last := sb.Scenes[len(sb.Scenes)-1]
	if math.Abs(last.End-totalSeconds) > 1e-6 {
		return fmt.Errorf("scenes cover %.3fs of a %.3fs narration", last.End, totalSeconds)
	}
	return nil
}

// Orientation selects the rendered frame shape for a video.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"  // 1080x1920, shorts and reels
	OrientationLandscape Orientation = "landscape" // 1920x1080, standard video
)

// PortraitMaxSeconds is the orientation threshold: a total duration at or
// below it renders portrait, anything longer renders landscape.
const PortraitMaxSeconds = 20.0

// SelectOrientation maps total duration onto an orientation. The boundary is
// inclusive: exactly PortraitMaxSeconds is portrait.
func SelectOrientation(totalSeconds float64) Orientation {
	if totalSeconds <= PortraitMaxSeconds {
		return OrientationPortrait
	}
	return OrientationLandscape
}

// Dimensions returns the pixel width and height for the orientation.
func (o Orientation) Dimensions() (width, height int) {
	if o == OrientationPortrait {
		return 1080, 1920
	}
	return 1920, 1080
}
