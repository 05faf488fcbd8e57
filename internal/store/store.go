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

// Package store owns the artifact directory contract. This file implements
// the Store: atomic placement and reading of artifacts. Placement writes to
// a temp file in the destination directory and renames into place, so a
// concurrent status snapshot never observes a half-written artifact — an
// artifact either exists completely or not at all. The store exposes no
// delete operation; artifacts are append-only for the life of a campaign.
package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mediaforge/campaign-engine/internal/core/model"
)

// Store places and reads campaign artifacts beneath a Layout root.
type Store struct {
	Layout *Layout
}

// NewStore builds a store over the given artifact root.
func NewStore(root string) *Store {
	return &Store{Layout: NewLayout(root)}
}

// InitCampaign creates the campaign directory skeleton: the campaign root,
// one directory per branch, and the images subdirectory for each video
// branch. This is the only operation whose failure is fatal to a launch.
func (s *Store) InitCampaign(campaignID string) error {
	for _, branch := range model.AllBranches {
		dir := s.Layout.BranchDir(campaignID, branch)
		if branch.IsVideo() {
			dir = s.Layout.BranchImagesDir(campaignID, branch)
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create campaign directory %q: %w", dir, err)
		}
	}
	return nil
}

// Place atomically writes data to path. The temp file is created in the same
// directory as the destination so the rename never crosses a filesystem
// boundary.
func (s *Store) Place(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create artifact directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".placing-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %q: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write artifact %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close artifact %q: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to place artifact %q: %w", path, err)
	}
	return nil
}

// PlaceFrom atomically streams r into path. Used for large binary artifacts
// (audio, video, images) that should not be buffered whole.
func (s *Store) PlaceFrom(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create artifact directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".placing-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %q: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write artifact %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close artifact %q: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to place artifact %q: %w", path, err)
	}
	return nil
}

// PlaceFile atomically moves an existing file (typically a renderer's temp
// output) into path. Falls back to copy-and-rename when the source sits on a
// different filesystem.
func (s *Store) PlaceFile(path, src string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create artifact directory %q: %w", dir, err)
	}
	if err := os.Rename(src, path); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %q: %w", src, err)
	}
	defer in.Close()
	if err := s.PlaceFrom(path, in); err != nil {
		return err
	}
	os.Remove(src)
	return nil
}

// PlaceJSON marshals v (indented, stable for humans reading the tree) and
// places it atomically.
func (s *Store) PlaceJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact %q: %w", path, err)
	}
	return s.Place(path, data)
}

// Read returns the full contents of an artifact.
func (s *Store) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ReadJSON unmarshals an artifact into v.
func (s *Store) ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("artifact %q is not valid JSON: %w", path, err)
	}
	return nil
}

// Exists reports whether an artifact is present (and is a regular file).
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
