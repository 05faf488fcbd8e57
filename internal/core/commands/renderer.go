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
// pipelines. This file defines the video renderer: the ffmpeg invocation
// that turns timed scene images, narration audio, a subtitle file and the
// background music bed into the final video. The renderer is an interface so
// the composite stage can be exercised in tests without a working ffmpeg.
package commands

import (
	goctx "context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mediaforge/campaign-engine/internal/core/model"
)

// musicMixVolume is the gain applied to the music bed under the narration.
const musicMixVolume = "0.2"

// RenderSpec is everything one composite render needs.
type RenderSpec struct {
	Scenes       []model.Scene     // Timed scene images; every ImageFile must be set.
	AudioPath    string            // Narration MP3.
	SubtitlePath string            // SRT caption file.
	MusicPath    string            // Background music MP3.
	Orientation  model.Orientation // Selects output dimensions.
	OutputPath   string            // Where the renderer leaves the finished MP4.
}

// VideoRenderer assembles a RenderSpec into a video file at OutputPath.
type VideoRenderer interface {
	Render(ctx goctx.Context, spec RenderSpec) error
}

// FFmpegRenderer shells out to ffmpeg.
type FFmpegRenderer struct {
	CommandPath string // Path to the ffmpeg executable.
}

// NewFFmpegRenderer builds a renderer for the given ffmpeg binary.
func NewFFmpegRenderer(commandPath string) *FFmpegRenderer {
	if commandPath == "" {
		commandPath = "ffmpeg"
	}
	return &FFmpegRenderer{CommandPath: commandPath}
}

// writeConcatList writes the ffconcat demuxer script timing each scene image
// to its storyboard span. The final image is repeated without a duration, as
// the concat demuxer requires.
func writeConcatList(dir string, scenes []model.Scene) (string, error) {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	for _, s := range scenes {
		fmt.Fprintf(&b, "file '%s'\nduration %.3f\n", s.ImageFile, s.Duration())
	}
	fmt.Fprintf(&b, "file '%s'\n", scenes[len(scenes)-1].ImageFile)

	f, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), f.Close()
}

// Render assembles the final video: the timed image sequence scaled to the
// orientation's dimensions, burned-in subtitles, and the narration mixed
// over the attenuated music bed, trimmed to the narration's length.
func (r *FFmpegRenderer) Render(ctx goctx.Context, spec RenderSpec) error {
	if len(spec.Scenes) == 0 {
		return fmt.Errorf("render spec has no scenes")
	}
	for _, s := range spec.Scenes {
		if s.ImageFile == "" {
			return fmt.Errorf("scene %d has no image file", s.ID)
		}
	}

	outDir := filepath.Dir(spec.OutputPath)
	concatList, err := writeConcatList(outDir, spec.Scenes)
	if err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	defer os.Remove(concatList)

	width, height := spec.Orientation.Dimensions()
	filter := fmt.Sprintf(
		"[0:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,subtitles='%s'[v];"+
			"[2:a]volume=%s[bg];[1:a][bg]amix=inputs=2:duration=first[a]",
		width, height, width, height, spec.SubtitlePath, musicMixVolume)

	args := []string{
		"-y", "-hide_banner",
		"-f", "concat", "-safe", "0", "-i", concatList,
		"-i", spec.AudioPath,
		"-i", spec.MusicPath,
		"-filter_complex", filter,
		"-map", "[v]", "-map", "[a]",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		spec.OutputPath,
	}

	cmd := exec.CommandContext(ctx, r.CommandPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(stderr.String(), 1024))
	}
	return nil
}

// tail returns the last n bytes of s, where ffmpeg puts its actual error.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
