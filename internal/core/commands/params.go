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
// pipelines. This file defines the shared context parameter names. Stages
// running inside a fork cannot use the chain's positional piping, so every
// stage reads and writes named parameters instead.
package commands

// Context parameter names shared across stage commands.
const (
	ParamCampaign     = "campaign"             // *model.Campaign, seeded by the branch runner.
	ParamBrief        = "brief"                // *model.Brief, seeded by the branch runner.
	ParamBible        = "aesthetic_bible"      // *model.AestheticBible.
	ParamScript       = "narration_script"     // *model.Script.
	ParamTiming       = "timing_track"         // *model.TimingTrack.
	ParamAudioPath    = "narration_audio_path" // string path to the narration MP3.
	ParamStoryboard   = "storyboard"           // *model.Storyboard.
	ParamSubtitlePath = "subtitle_path"        // string path to the SRT artifact.
)

// Stage names. These are the on-disk marker identities, so they are part of
// the directory contract.
const (
	StageAestheticBible  = "aesthetic_bible"
	StageScript          = "narration_script"
	StageAudio           = "narration_audio"
	StageSubtitles       = "subtitles"
	StageStoryboard      = "storyboard"
	StagePromptOptimizer = "prompt_optimization"
	StageSceneImages     = "scene_images"
	StageComposite       = "composite_render"
	StageBlogPost        = "blog_post"
	StageBlogHero        = "hero_image"
	StageAdImages        = "ad_images"
)
