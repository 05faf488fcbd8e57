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
// pipelines. This file defines SharedAssets, the per-campaign compute-once
// barrier for artifacts that all four video branches consume: the aesthetic
// bible and the background music track. Whichever branch arrives first does
// the work; concurrent arrivals share that single in-flight computation, and
// later arrivals read the placed artifact. The barrier guarantees the
// provider is hit at most once per campaign for each shared asset even with
// all four branches racing.
package commands

import (
	"golang.org/x/sync/singleflight"
)

// SharedAssets holds the once-barriers for one campaign run. The
// orchestrator creates one instance per campaign and hands it to every video
// branch builder.
type SharedAssets struct {
	bible singleflight.Group
	music singleflight.Group
}

// NewSharedAssets builds the barriers for one campaign run.
func NewSharedAssets() *SharedAssets {
	return &SharedAssets{}
}

// onceBible runs fn at most once concurrently per key, sharing the result
// with every caller that arrived while it was in flight.
func (s *SharedAssets) onceBible(key string, fn func() (interface{}, error)) (interface{}, error) {
	v, err, _ := s.bible.Do(key, fn)
	return v, err
}

// onceMusic is the music-track counterpart of onceBible.
func (s *SharedAssets) onceMusic(key string, fn func() (interface{}, error)) (interface{}, error) {
	v, err, _ := s.music.Do(key, fn)
	return v, err
}
