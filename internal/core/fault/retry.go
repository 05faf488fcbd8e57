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

// Package fault provides the shared error taxonomy. This file implements the
// bounded retry helper used around every external provider call. Retry
// policy is owned here, in the engine, never by the provider clients
// themselves — a client models one attempt, the stage decides how many
// attempts it gets.
package fault

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds how often and for how long an operation is re-attempted.
// Both the attempt count and the total wait are hard ceilings so no stage can
// loop indefinitely against a struggling provider.
type RetryPolicy struct {
	MaxAttempts  int           // Total attempts including the first (default 3).
	InitialDelay time.Duration // Delay before the first re-attempt (default 2s).
	MaxTotalWait time.Duration // Ceiling on cumulative backoff sleep (default 60s).
}

// DefaultRetryPolicy matches the engine-wide default of three attempts with
// exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: 2 * time.Second, MaxTotalWait: 60 * time.Second}
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 2 * time.Second
	}
	if p.MaxTotalWait <= 0 {
		p.MaxTotalWait = 60 * time.Second
	}
	return p
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// policy is exhausted. Backoff doubles between attempts. The context is
// honored during backoff sleeps, so a branch deadline cancels a waiting
// retry loop promptly.
//
// Inputs:
//   - ctx: controls cancellation; a done context aborts between attempts.
//   - policy: the attempt and wait bounds; zero values take defaults.
//   - fn: the operation to run. It is handed the attempt number (0-based).
//
// Outputs:
//   - error: nil on success, the terminal error otherwise. When the policy
//     is exhausted the last error is wrapped so callers can still read its
//     category.
func Retry(ctx context.Context, policy RetryPolicy, fn func(attempt int) error) error {
	policy = policy.normalize()

	delay := policy.InitialDelay
	var slept time.Duration
	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Transient("retry", err)
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}

		// Last attempt: no point sleeping just to give up.
		if attempt == policy.MaxAttempts-1 {
			break
		}
		if slept+delay > policy.MaxTotalWait {
			break
		}

		select {
		case <-ctx.Done():
			return Transient("retry", ctx.Err())
		case <-time.After(delay):
		}
		slept += delay
		delay *= 2
	}

	return fmt.Errorf("retries exhausted after %d attempts: %w", policy.MaxAttempts, lastErr)
}
