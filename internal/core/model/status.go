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
// This file holds the progress-reporting shapes: stage markers, the branch
// failure record, and the campaign status snapshot the polling surface
// consumes. All of these are derived from (or persisted as) artifacts, never
// from a separately maintained state machine.
package model

import "time"

// BranchState is the status vocabulary of a branch as derived by the status
// reporter from artifact presence.
type BranchState string

const (
	BranchPending   BranchState = "pending"
	BranchRunning   BranchState = "running"
	BranchSucceeded BranchState = "succeeded"
	BranchFailed    BranchState = "failed"
)

// StageMarker is the small record a stage writes on entry (started) and on
// completion (result). Markers let the reporter distinguish pending from
// running without inferring state from artifact absence alone.
type StageMarker struct {
	Stage       string    `json:"stage"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	OK          bool      `json:"ok"`
	// Category and Reason are filled only on failure results.
	Category string `json:"category,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// BranchFailure is the branch-level failure marker artifact written when a
// branch stops at its first unrecoverable stage failure.
type BranchFailure struct {
	Branch      BranchKind `json:"branch"`
	Stage       string     `json:"stage"`
	Category    string     `json:"category"`
	Reason      string     `json:"reason"`
	FailedItems []int      `json:"failed_items,omitempty"`
	FailedAt    time.Time  `json:"failed_at"`
}

// StageStatus is one stage's line in a status snapshot.
type StageStatus struct {
	Name        string      `json:"name"`
	State       BranchState `json:"state"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// BranchStatus is one branch's view in a status snapshot. For succeeded
// branches Assets lists the resolvable artifact paths the publishing
// surfaces consume.
type BranchStatus struct {
	Branch  BranchKind     `json:"branch"`
	State   BranchState    `json:"state"`
	Stages  []StageStatus  `json:"stages,omitempty"`
	Assets  []string       `json:"assets,omitempty"`
	Failure *BranchFailure `json:"failure,omitempty"`
}

// CampaignStatus is the full snapshot returned by the status reporter. It is
// a pure function of the artifact store at the moment of the call.
type CampaignStatus struct {
	CampaignID string         `json:"campaign_id"`
	TakenAt    time.Time      `json:"taken_at"`
	Branches   []BranchStatus `json:"branches"`
}

// Branch returns the status entry for the given branch kind, or nil when the
// snapshot does not contain it.
func (cs *CampaignStatus) Branch(kind BranchKind) *BranchStatus {
	for i := range cs.Branches {
		if cs.Branches[i].Branch == kind {
			return &cs.Branches[i]
		}
	}
	return nil
}
