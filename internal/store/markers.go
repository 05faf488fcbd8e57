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
// stage and failure markers: small JSON files inside a branch directory that
// record when each stage started and how it ended. Markers are what lets the
// status reporter tell a pending branch from a running one, and a slow stage
// from a dead one, by reading nothing but the tree.
package store

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
)

// BranchFailureFile is the branch-level failure marker name. Its presence
// means the branch stopped at its first unrecoverable stage failure.
const BranchFailureFile = ".branch.failed.json"

// StageStartedPath resolves the started marker for a stage of a branch.
func (l *Layout) StageStartedPath(campaignID string, branch model.BranchKind, stage string) string {
	return filepath.Join(l.BranchDir(campaignID, branch), fmt.Sprintf(".stage.%s.started.json", stage))
}

// StageResultPath resolves the result marker for a stage of a branch.
func (l *Layout) StageResultPath(campaignID string, branch model.BranchKind, stage string) string {
	return filepath.Join(l.BranchDir(campaignID, branch), fmt.Sprintf(".stage.%s.result.json", stage))
}

// BranchFailurePath resolves the branch failure marker.
func (l *Layout) BranchFailurePath(campaignID string, branch model.BranchKind) string {
	return filepath.Join(l.BranchDir(campaignID, branch), BranchFailureFile)
}

// MarkStageStarted places the started marker for a stage.
func (s *Store) MarkStageStarted(campaignID string, branch model.BranchKind, stage string) error {
	marker := model.StageMarker{Stage: stage, StartedAt: time.Now().UTC()}
	return s.PlaceJSON(s.Layout.StageStartedPath(campaignID, branch, stage), &marker)
}

// MarkStageResult places the result marker for a stage. On failure the error
// is classified through the fault taxonomy so the category lands on disk.
func (s *Store) MarkStageResult(campaignID string, branch model.BranchKind, stage string, stageErr error) error {
	marker := model.StageMarker{
		Stage:       stage,
		CompletedAt: time.Now().UTC(),
		OK:          stageErr == nil,
	}
	if started, err := s.ReadStageStarted(campaignID, branch, stage); err == nil {
		marker.StartedAt = started.StartedAt
	}
	if stageErr != nil {
		marker.Category = string(fault.CategoryOf(stageErr))
		marker.Reason = stageErr.Error()
	}
	return s.PlaceJSON(s.Layout.StageResultPath(campaignID, branch, stage), &marker)
}

// ReadStageStarted reads a stage's started marker.
func (s *Store) ReadStageStarted(campaignID string, branch model.BranchKind, stage string) (*model.StageMarker, error) {
	var m model.StageMarker
	if err := s.ReadJSON(s.Layout.StageStartedPath(campaignID, branch, stage), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadStageResult reads a stage's result marker.
func (s *Store) ReadStageResult(campaignID string, branch model.BranchKind, stage string) (*model.StageMarker, error) {
	var m model.StageMarker
	if err := s.ReadJSON(s.Layout.StageResultPath(campaignID, branch, stage), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// WriteBranchFailure places the branch failure marker. The failing item
// indices are extracted from the error when it carries them.
func (s *Store) WriteBranchFailure(campaignID string, branch model.BranchKind, stage string, stageErr error) error {
	failure := model.BranchFailure{
		Branch:   branch,
		Stage:    stage,
		Category: string(fault.CategoryOf(stageErr)),
		Reason:   stageErr.Error(),
		FailedAt: time.Now().UTC(),
	}
	failure.FailedItems = fault.FailedItemsOf(stageErr)
	return s.PlaceJSON(s.Layout.BranchFailurePath(campaignID, branch), &failure)
}

// ReadBranchFailure reads the branch failure marker, or an error when the
// branch has not failed.
func (s *Store) ReadBranchFailure(campaignID string, branch model.BranchKind) (*model.BranchFailure, error) {
	var f model.BranchFailure
	if err := s.ReadJSON(s.Layout.BranchFailurePath(campaignID, branch), &f); err != nil {
		return nil, err
	}
	return &f, nil
}
