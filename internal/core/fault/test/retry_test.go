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

// Package fault_test contains unit tests for the error taxonomy and the
// bounded retry helper.
package fault_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/stretchr/testify/assert"
)

// fastPolicy keeps backoff sleeps negligible so the suite stays quick.
func fastPolicy() fault.RetryPolicy {
	return fault.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxTotalWait: time.Second}
}

// TestRetrySucceedsAfterTransientFailures verifies that a transient failure
// is re-attempted and that a later success clears the error entirely.
func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := fault.Retry(context.Background(), fastPolicy(), func(attempt int) error {
		attempts++
		if attempt < 2 {
			return fault.Transient("test_stage", fmt.Errorf("provider hiccup %d", attempt))
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

// TestRetryExhaustion verifies that a persistently transient failure stops at
// the attempt ceiling and that the wrapped error still exposes its category.
func TestRetryExhaustion(t *testing.T) {
	attempts := 0
	err := fault.Retry(context.Background(), fastPolicy(), func(int) error {
		attempts++
		return fault.Transient("test_stage", errors.New("still down"))
	})

	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "retries exhausted after 3 attempts")
	// The category must survive the exhaustion wrapping.
	assert.Equal(t, fault.CategoryTransient, fault.CategoryOf(err))
}

// TestRetryDoesNotRetryNonRetryable verifies the short-circuit: invalid input
// and integrity failures get exactly one attempt.
func TestRetryDoesNotRetryNonRetryable(t *testing.T) {
	for _, wrap := range []func(string, error) *fault.StageError{fault.InvalidInput, fault.Integrity} {
		attempts := 0
		err := fault.Retry(context.Background(), fastPolicy(), func(int) error {
			attempts++
			return wrap("test_stage", errors.New("bad data"))
		})

		assert.Error(t, err)
		assert.Equal(t, 1, attempts)
		assert.NotContains(t, err.Error(), "retries exhausted")
	}
}

// TestRetryHonorsContextCancellation verifies that a cancelled context stops
// the loop instead of sleeping through the remaining backoff.
func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	policy := fault.RetryPolicy{MaxAttempts: 5, InitialDelay: 50 * time.Millisecond, MaxTotalWait: time.Minute}
	err := fault.Retry(ctx, policy, func(int) error {
		attempts++
		cancel()
		return fault.Transient("test_stage", errors.New("provider down"))
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestCategoryOfDefaultsToTransient verifies unclassified errors are treated
// as retryable so an unwrapped provider hiccup still gets its attempts.
func TestCategoryOfDefaultsToTransient(t *testing.T) {
	assert.Equal(t, fault.CategoryTransient, fault.CategoryOf(errors.New("anonymous")))
	assert.True(t, fault.IsRetryable(errors.New("anonymous")))
	assert.False(t, fault.IsRetryable(fault.Integrity("s", errors.New("x"))))
}

// TestPartialBatchCarriesFailedItems verifies the failing indices travel with
// the error through wrapping.
func TestPartialBatchCarriesFailedItems(t *testing.T) {
	err := fault.PartialBatch("scene_images", []int{2, 5}, errors.New("two scenes failed"))
	wrapped := fmt.Errorf("branch failed: %w", err)

	assert.Equal(t, fault.CategoryPartialBatch, fault.CategoryOf(wrapped))
	assert.Equal(t, []int{2, 5}, fault.FailedItemsOf(wrapped))
	assert.Contains(t, err.Error(), "items=[2 5]")
}
