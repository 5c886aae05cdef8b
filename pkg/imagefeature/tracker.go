// Package imagefeature fetches product images and turns them into
// feature vectors via an external extraction service.
package imagefeature

import (
	"fmt"
	"sync"

	"github.com/brewline-ai/brewline-engine/pkg/apperrors"
)

// ErrorTracker counts failures per image source during an indexing run
// and disables sources that keep failing, so one dead host cannot stall
// the whole build.
type ErrorTracker struct {
	mu        sync.Mutex
	counts    map[string]int
	maxErrors int
}

// NewErrorTracker creates a tracker that disables a source after
// maxErrors failures.
func NewErrorTracker(maxErrors int) *ErrorTracker {
	return &ErrorTracker{
		counts:    make(map[string]int),
		maxErrors: maxErrors,
	}
}

// Allow reports whether a source is still under its error budget.
// Exhausted sources return an error wrapping ErrTooManyFailures.
func (t *ErrorTracker) Allow(source string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.counts[source] >= t.maxErrors {
		return fmt.Errorf("%w: %s failed %d times", apperrors.ErrTooManyFailures, source, t.counts[source])
	}
	return nil
}

// RecordFailure increments a source's error count.
func (t *ErrorTracker) RecordFailure(source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[source]++
}

// RecordSuccess clears a source's error count; a recovered host gets a
// fresh budget.
func (t *ErrorTracker) RecordSuccess(source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, source)
}

// FailureCount returns the current error count for a source.
func (t *ErrorTracker) FailureCount(source string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[source]
}
