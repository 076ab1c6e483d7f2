/*
Package engine provides the core gamification state engine.

PURPOSE:
  This package contains the identity-namespaced state layer for the
  learning app: XP, points, streaks, per-lesson progress, and the
  once-per-day challenge lock. State is kept in a pluggable key-value
  Medium and stays consistent across multiple concurrently open
  contexts of the same identity.

KEY CONCEPTS IN THIS FILE (types.go):
  - LedgerState: XP, points, streak, and lesson-completion bookkeeping
  - ProgressRecord: per-lesson completion percentage
  - DailyChallengeRecord: the once-per-day challenge attempt
  - LessonProgress: reconciliation input (lesson id, percent, reward)

DESIGN PRINCIPLES:
  1. Explicit identity: every operation resolves the identity it writes
     under; nothing reads ambient globals, so multiple identities can
     coexist in one process (and in tests).
  2. Decode-with-default: every read returns a well-typed value or the
     caller's fallback. Absence and malformed values are never errors.
  3. Local first: the Medium is the source of truth. Remote pushes are
     best-effort and never block or revert a local write.

USAGE:
  store := engine.NewStore(medium)
  ledger := engine.NewLedger(store)
  streak := ledger.UpdateStreak(ctx)

SEE ALSO:
  - store.go: Namespaced key-value store with typed accessors
  - ledger.go: XP/streak/progress bookkeeping
  - daily.go: Daily challenge state machine
  - sync.go: Cross-context synchronizer
*/
package engine

// =============================================================================
// LEDGER STATE - Per-identity gamification snapshot
// =============================================================================

// LedgerState is the full per-identity ledger snapshot.
// XP, Points, and CompletedLessons only grow, except through an
// explicit reset. LastActiveDate is a date key ("2006-01-02") or
// empty when the identity has never been active.
type LedgerState struct {
	XP               int          `json:"xp"`
	Points           int          `json:"points"`
	StreakDays       int          `json:"streak_days"`
	LastActiveDate   string       `json:"last_active_date,omitempty"`
	CompletedLessons map[int]bool `json:"completed_lessons"`
}

// CompletedIDs returns the completed lesson ids in ascending order.
func (s LedgerState) CompletedIDs() []int {
	ids := make([]int, 0, len(s.CompletedLessons))
	for id, done := range s.CompletedLessons {
		if done {
			ids = append(ids, id)
		}
	}
	sortInts(ids)
	return ids
}

func sortInts(v []int) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j] < v[j-1]; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
}

// =============================================================================
// PROGRESS RECORD - Per (identity, lesson) completion state
// =============================================================================

// ProgressRecord tracks completion of a single lesson.
// Percent is monotonically non-decreasing except through an explicit
// reset; Completed is derived from Percent == 100, never stored
// independently of that invariant.
type ProgressRecord struct {
	Percent   int    `json:"percent"`
	Completed bool   `json:"completed"`
	UpdatedAt string `json:"updated_at"`
}

// LessonProgress is the reconciliation input: the canonical lesson id,
// its completion percent, and the XP awarded on completion.
type LessonProgress struct {
	ID       int
	Percent  int
	XPReward int
}

// =============================================================================
// DAILY CHALLENGE RECORD - At most one live record per identity
// =============================================================================

// DailyChallengeRecord is the persisted daily challenge attempt.
// A record is active only while Date equals the current calendar date;
// a past date means the record is expired and treated as absent.
type DailyChallengeRecord struct {
	Date           string `json:"date"`
	LessonID       int    `json:"lessonId"`
	QuestionID     int    `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
	Correct        bool   `json:"correct"`
}

// QuizQuestion is a single quiz item served by a QuizSource.
type QuizQuestion struct {
	ID           int      `json:"id"`
	LessonID     int      `json:"lesson_id"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}
