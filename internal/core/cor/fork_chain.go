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

// Package cor (Chain of Responsibility) provides the building blocks the
// branch pipelines are assembled from. This file defines `ForkChain`, which
// runs its commands concurrently instead of sequentially. It exists for the
// points in a pipeline where two stages consume the same upstream artifact
// and neither depends on the other, such as subtitle generation and
// storyboard generation both reading the timing track.
package cor

import (
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/codes"
)

// ForkChain executes all of its commands concurrently against the shared
// context and waits for every one of them to finish. Commands in a fork must
// not use the CtxIn/CtxOut piping keys: each reads and writes its own named
// context keys, since there is no ordering to pipe along. Errors land in the
// context the same way as in a sequential chain, so the enclosing BaseChain
// stops after the fork if any member failed.
type ForkChain struct {
	BaseCommand
	commands []Command
}

// NewForkChain constructs a named, empty fork.
func NewForkChain(name string) *ForkChain {
	return &ForkChain{BaseCommand: *NewBaseCommand(name)}
}

// ContinueOnFailure is accepted for Chain compatibility but has no effect: a
// fork always lets every member run to completion before the enclosing chain
// evaluates errors.
func (c *ForkChain) ContinueOnFailure(bool) Chain {
	return c
}

// AddCommand adds a command to the concurrent group.
func (c *ForkChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable requires only a live Go context.
func (c *ForkChain) IsExecutable(context Context) bool {
	return context.GetContext() != nil
}

// Execute launches every command in its own goroutine and blocks until all
// of them return. Each command gets its own span parented to the fork's
// span; the shared cor.Context keeps the fork's Go context throughout, so
// commands that need their span context receive it directly.
func (c *ForkChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()

	outerCtx, forkSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer forkSpan.End()

	if chCtx.HasErrors() {
		forkSpan.SetStatus(codes.Error, "previous error on chain; skipping fork")
		return
	}

	chCtx.SetContext(outerCtx)

	var wg sync.WaitGroup
	for _, command := range c.commands {
		wg.Add(1)
		go func(cmd Command) {
			defer wg.Done()
			_, commandSpan := c.Tracer.Start(outerCtx, cmd.GetName())
			defer commandSpan.End()

			if !cmd.IsExecutable(chCtx) {
				msg := fmt.Sprintf("command not executable: %s", cmd.GetName())
				commandSpan.SetStatus(codes.Error, msg)
				chCtx.AddError(cmd.GetName(), fmt.Errorf("%s", msg))
				return
			}

			cmd.Execute(chCtx)

			if _, err := chCtx.GetErrors()[cmd.GetName()]; err {
				commandSpan.SetStatus(codes.Error, "error during command execution")
			} else {
				commandSpan.SetStatus(codes.Ok, "command completed successfully")
			}
		}(command)
	}
	wg.Wait()

	if !chCtx.HasErrors() {
		forkSpan.SetStatus(codes.Ok, "fork completed successfully")
	} else {
		forkSpan.SetStatus(codes.Error, "fork failed to execute")
	}
}
