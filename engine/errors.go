/*
errors.go - Centralized error types for the engine

PURPOSE:
  All engine error types in one place. Note the deliberate asymmetry
  with the rest of the error surface: per the storage contract, value
  absence and malformed stored values are NEVER errors - every read
  path degrades to the caller's default. The errors below cover the
  remaining cases: domain rule violations and medium capabilities.

USAGE:
  if errors.Is(err, engine.ErrChallengeLocked) {
      // already attempted today; not retryable until calendar rollover
  }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrChallengeLocked is returned when submitting a daily challenge
	// answer after today's attempt already exists. The lock clears only
	// on calendar rollover; there is no undo.
	ErrChallengeLocked = errors.New("daily challenge already attempted today")

	// ErrNoQuizzes is returned when the rotation lesson for today has no
	// quiz items to choose from.
	ErrNoQuizzes = errors.New("no quiz items available for daily challenge")

	// ErrLessonNotFound is returned when a referenced lesson doesn't exist.
	ErrLessonNotFound = errors.New("lesson not found")

	// ErrNotWatchable is returned when attaching a synchronizer to a
	// medium that provides no change feed. Callers fall back to the
	// focus-regain path.
	ErrNotWatchable = errors.New("storage medium does not provide a change feed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ChallengeLockedError reports which record holds today's lock.
type ChallengeLockedError struct {
	Date     string
	Identity Identity
}

func (e *ChallengeLockedError) Error() string {
	return fmt.Sprintf("daily challenge locked for %s on %s", e.Identity, e.Date)
}

func (e *ChallengeLockedError) Unwrap() error { return ErrChallengeLocked }
