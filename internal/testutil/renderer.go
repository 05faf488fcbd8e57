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

// Package testutil provides utility functions and fake providers to support
// the application's test suite. This file holds a video renderer stub so
// composite tests run without an ffmpeg binary.
package testutil

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/mediaforge/campaign-engine/internal/core/commands"
)

// StubRenderer writes an MP4-sniffable file to the requested output path
// instead of invoking ffmpeg. FailWhen, when set, is consulted first: a
// non-nil error aborts the render, which lets a test force one branch's
// composite to fail while its siblings succeed.
type StubRenderer struct {
	FailWhen func(spec commands.RenderSpec) error
	Renders  atomic.Int64
}

// Render satisfies commands.VideoRenderer.
func (s *StubRenderer) Render(_ context.Context, spec commands.RenderSpec) error {
	if s.FailWhen != nil {
		if err := s.FailWhen(spec); err != nil {
			return err
		}
	}
	s.Renders.Add(1)
	return os.WriteFile(spec.OutputPath, TinyMP4(), 0o640)
}
