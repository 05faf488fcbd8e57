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

// Package cor_test contains unit tests for the chain-of-responsibility
// building blocks: context piping, stop-on-first-error sequencing, and the
// concurrent fork.
package cor_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/mediaforge/campaign-engine/internal/core/cor"
	"github.com/stretchr/testify/assert"
)

// appendCommand pipes its input through, appending its own suffix, so tests
// can observe chain ordering in the final output value.
type appendCommand struct {
	cor.BaseCommand
	suffix string
	runs   atomic.Int64
	fail   error
}

func newAppendCommand(name, suffix string) *appendCommand {
	return &appendCommand{BaseCommand: *cor.NewBaseCommand(name), suffix: suffix}
}

func (c *appendCommand) Execute(ctx cor.Context) {
	c.runs.Add(1)
	if c.fail != nil {
		ctx.AddError(c.GetName(), c.fail)
		return
	}
	in, _ := ctx.Get(c.GetInputParam()).(string)
	ctx.Add(c.GetOutputParam(), in+c.suffix)
}

// newChainContext seeds a context the way a branch runner does.
func newChainContext(seed string) cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, seed)
	return ctx
}

// TestChainPipesOutputToInput verifies the flip-flop: each command's CtxOut
// becomes the next command's CtxIn.
func TestChainPipesOutputToInput(t *testing.T) {
	chain := cor.NewBaseChain("pipe_chain")
	chain.AddCommand(newAppendCommand("first", "-a"))
	chain.AddCommand(newAppendCommand("second", "-b"))
	chain.AddCommand(newAppendCommand("third", "-c"))

	chCtx := newChainContext("seed")
	chain.Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Equal(t, "seed-a-b-c", chCtx.Get(cor.CtxIn))
}

// TestChainStopsOnFirstError verifies that commands after a failure are
// skipped and the first error is the one reported.
func TestChainStopsOnFirstError(t *testing.T) {
	first := newAppendCommand("first", "-a")
	second := newAppendCommand("second", "-b")
	second.fail = errors.New("second blew up")
	third := newAppendCommand("third", "-c")

	chain := cor.NewBaseChain("failing_chain")
	chain.AddCommand(first)
	chain.AddCommand(second)
	chain.AddCommand(third)

	chCtx := newChainContext("seed")
	chain.Execute(chCtx)

	assert.True(t, chCtx.HasErrors())
	assert.Equal(t, int64(1), first.runs.Load())
	assert.Equal(t, int64(1), second.runs.Load())
	assert.Equal(t, int64(0), third.runs.Load())

	name, err := chCtx.FirstError()
	assert.Equal(t, "second", name)
	assert.EqualError(t, err, "second blew up")
}

// TestChainContinueOnFailure verifies the opt-in to keep running after an
// error.
func TestChainContinueOnFailure(t *testing.T) {
	first := newAppendCommand("first", "-a")
	first.fail = errors.New("first blew up")
	second := newAppendCommand("second", "-b")
	// The failing command produced no output, so the survivor needs its own
	// input key.
	second.InputParamName = "independent_input"

	chain := cor.NewBaseChain("tolerant_chain")
	chain.ContinueOnFailure(true)
	chain.AddCommand(first)
	chain.AddCommand(second)

	chCtx := newChainContext("seed")
	chCtx.Add("independent_input", "solo")
	chain.Execute(chCtx)

	assert.True(t, chCtx.HasErrors())
	assert.Equal(t, int64(1), second.runs.Load())
}

// TestFirstErrorKeepsArrivalOrder verifies that with several recorded errors
// the first one recorded wins, which is what the branch failure marker
// reports.
func TestFirstErrorKeepsArrivalOrder(t *testing.T) {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.AddError("early", errors.New("early failure"))
	chCtx.AddError("late", errors.New("late failure"))

	name, err := chCtx.FirstError()
	assert.Equal(t, "early", name)
	assert.EqualError(t, err, "early failure")
	assert.Len(t, chCtx.GetErrors(), 2)
}

// TestForkRunsAllMembers verifies every fork member executes even when one of
// them fails, and that the failure is visible to the enclosing chain.
func TestForkRunsAllMembers(t *testing.T) {
	members := make([]*appendCommand, 4)
	fork := cor.NewForkChain("test_fork")
	for i := range members {
		members[i] = newAppendCommand(fmt.Sprintf("member_%d", i), "-x")
		// Fork members read named keys, not the piping keys.
		members[i].InputParamName = "shared_input"
		members[i].OutputParamName = fmt.Sprintf("out_%d", i)
		fork.AddCommand(members[i])
	}
	members[2].fail = errors.New("member 2 failed")

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add("shared_input", "seed")
	fork.Execute(chCtx)

	for i, m := range members {
		assert.Equal(t, int64(1), m.runs.Load(), "member %d should have run", i)
	}
	assert.True(t, chCtx.HasErrors())
	assert.Equal(t, "seed-x", chCtx.Get("out_0"))
	assert.Nil(t, chCtx.Get("out_2"))
}

// TestForkSkipsAfterPriorError verifies a fork refuses to start when the
// chain already failed upstream.
func TestForkSkipsAfterPriorError(t *testing.T) {
	member := newAppendCommand("member", "-x")
	member.InputParamName = "shared_input"
	fork := cor.NewForkChain("skipped_fork")
	fork.AddCommand(member)

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add("shared_input", "seed")
	chCtx.AddError("upstream", errors.New("upstream failed"))
	fork.Execute(chCtx)

	assert.Equal(t, int64(0), member.runs.Load())
}
