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

// Package fault defines the error taxonomy shared by every stage command in
// the campaign engine. All failures that cross a stage boundary are wrapped
// in a StageError carrying one of four categories:
//
//   - Transient: rate limits, timeouts, and 5xx-equivalent provider errors.
//     These are the only errors the retry helper will re-attempt.
//   - InvalidInput: a malformed brief or inconsistent upstream data. Retrying
//     cannot help, so the stage fails immediately.
//   - PartialBatch: some-but-not-all items of a batched stage failed (for
//     example a subset of scene images). The failing subset is identified on
//     the error rather than silently dropped.
//   - Integrity: an artifact a stage depends on is absent or fails structural
//     validation (for example a timing track whose duration does not match
//     its audio). Not retried.
//
// The category travels with the branch failure marker so the status reporter
// can surface a human-readable reason without re-deriving it.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Category classifies a stage failure for retry decisions and status
// reporting. The string values are part of the on-disk marker contract.
type Category string

const (
	CategoryTransient    Category = "transient_provider_error"
	CategoryInvalidInput Category = "invalid_input"
	CategoryPartialBatch Category = "partial_batch_failure"
	CategoryIntegrity    Category = "integrity_error"
)

// StageError is the failure type every stage command produces. It binds the
// underlying cause to the stage name and a Category, and, for batched
// stages, the indices of the items that failed.
type StageError struct {
	Stage       string   // The name of the stage that failed.
	Category    Category // The failure classification.
	FailedItems []int    // Populated only for CategoryPartialBatch.
	Err         error    // The underlying cause.
}

// Error renders the failure with its stage, category and, when present, the
// failing item indices.
func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage %q failed (%s)", e.Stage, e.Category)
	if len(e.FailedItems) > 0 {
		fmt.Fprintf(&b, " items=%v", e.FailedItems)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StageError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable provider failure.
func Transient(stage string, err error) *StageError {
	return &StageError{Stage: stage, Category: CategoryTransient, Err: err}
}

// InvalidInput wraps err as a non-retryable bad-input failure.
func InvalidInput(stage string, err error) *StageError {
	return &StageError{Stage: stage, Category: CategoryInvalidInput, Err: err}
}

// Integrity wraps err as a non-retryable artifact-validation failure.
func Integrity(stage string, err error) *StageError {
	return &StageError{Stage: stage, Category: CategoryIntegrity, Err: err}
}

// PartialBatch records a batched stage where the items identified by
// failedItems did not complete after their own bounded retries.
func PartialBatch(stage string, failedItems []int, err error) *StageError {
	return &StageError{Stage: stage, Category: CategoryPartialBatch, FailedItems: failedItems, Err: err}
}

// CategoryOf extracts the Category from err, walking the wrap chain. Errors
// that never passed through this package default to CategoryTransient so an
// unclassified provider hiccup still gets its bounded retries.
func CategoryOf(err error) Category {
	var se *StageError
	if errors.As(err, &se) {
		return se.Category
	}
	return CategoryTransient
}

// FailedItemsOf extracts the failing item indices from a partial-batch
// error, or nil when err carries none.
func FailedItemsOf(err error) []int {
	var se *StageError
	if errors.As(err, &se) {
		return se.FailedItems
	}
	return nil
}

// IsRetryable reports whether the retry helper should re-attempt after err.
func IsRetryable(err error) bool {
	return CategoryOf(err) == CategoryTransient
}
