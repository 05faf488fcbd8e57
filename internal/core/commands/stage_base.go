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
// pipelines. This file defines StageBase, the embedding every stage command
// shares. It extends the cor.BaseCommand with the artifact store, the branch
// the command is bound to, and the begin/finish bookkeeping: started and
// result markers on disk, success and error counters, and error recording on
// the chain context.
package commands

import (
	"bytes"
	"log/slog"
	"text/template"

	"github.com/mediaforge/campaign-engine/internal/core/cor"
	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// StageBase carries what every stage command needs: the cor plumbing, the
// artifact store, and the branch identity the command is bound to. Commands
// are constructed per branch, so the branch is a construction-time value
// rather than a context lookup.
type StageBase struct {
	cor.BaseCommand
	Store  *store.Store
	Branch model.BranchKind
}

// NewStageBase builds the embedding for a stage command.
func NewStageBase(name string, st *store.Store, branch model.BranchKind) StageBase {
	return StageBase{BaseCommand: *cor.NewBaseCommand(name), Store: st, Branch: branch}
}

// campaign extracts the campaign seeded into the chain context.
func (s *StageBase) campaign(ctx cor.Context) *model.Campaign {
	c, _ := ctx.Get(ParamCampaign).(*model.Campaign)
	return c
}

// brief extracts the brief seeded into the chain context.
func (s *StageBase) brief(ctx cor.Context) *model.Brief {
	b, _ := ctx.Get(ParamBrief).(*model.Brief)
	return b
}

// begin writes the stage's started marker. A marker write failure is logged
// but never fails the stage: markers serve observation, not control flow.
func (s *StageBase) begin(ctx cor.Context) {
	c := s.campaign(ctx)
	if c == nil {
		return
	}
	if err := s.Store.MarkStageStarted(c.ID, s.Branch, s.GetName()); err != nil {
		slog.Warn("failed to write stage started marker",
			"campaign", c.ID, "branch", s.Branch, "stage", s.GetName(), "error", err)
	}
}

// finish writes the stage's result marker and settles the counters. On
// failure the error is recorded on the chain context under the command name,
// which is what stops the enclosing chain.
func (s *StageBase) finish(ctx cor.Context, stageErr error) {
	c := s.campaign(ctx)
	if c != nil {
		if err := s.Store.MarkStageResult(c.ID, s.Branch, s.GetName(), stageErr); err != nil {
			slog.Warn("failed to write stage result marker",
				"campaign", c.ID, "branch", s.Branch, "stage", s.GetName(), "error", err)
		}
	}
	if stageErr != nil {
		s.GetErrorCounter().Add(ctx.GetContext(), 1)
		ctx.AddError(s.GetName(), stageErr)
		return
	}
	s.GetSuccessCounter().Add(ctx.GetContext(), 1)
}

// renderPrompt fills a prompt template with the stage's input data.
func renderPrompt(stage string, tmpl *template.Template, data any) (string, error) {
	var doc bytes.Buffer
	if err := tmpl.Execute(&doc, data); err != nil {
		return "", fault.InvalidInput(stage, err)
	}
	return doc.String(), nil
}
