/*
ledger.go - XP, points, streak, and lesson-completion bookkeeping

PURPOSE:
  The Ledger owns every gamification number the UI shows. It computes
  and persists XP, daily points, the activity streak, and per-lesson
  progress, all under the current identity.

CRITICAL INVARIANTS:
  1. XP, points, and the completed-lesson set only grow, except through
     an explicit reset.
  2. Completion XP is awarded at most once per lesson id, no matter how
     often reconciliation runs.
  3. The streak update is idempotent within a calendar day.
  4. Remote pushes are fire-and-forget: a failed push never blocks,
     reverts, or retries inline. Local storage is the source of truth.

CONCURRENCY NOTE:
  Two contexts reconciling simultaneously can each read a pre-update
  value and both write, losing one increment (last write wins). This is
  a documented limitation of the medium, not a guarantee violation the
  ledger can repair.

SEE ALSO:
  - store.go: Persistence
  - daily.go: Sole caller of AwardDailyPoints
*/
package engine

import (
	"context"

	"go.uber.org/zap"
)

// =============================================================================
// REMOTE PUSH - Best-effort backend mirror
// =============================================================================

// Pusher mirrors ledger changes to the backend (leaderboard, tutor).
// Implementations must be fire-and-forget: swallow failures, never
// block the caller.
type Pusher interface {
	PushXP(ctx context.Context, user StoredUser, xp int)
	PushStreak(ctx context.Context, user StoredUser, days int)
	PushProgress(ctx context.Context, user StoredUser, lessonID, percent int)
}

// NopPusher discards every push. Default for tests and offline use.
type NopPusher struct{}

func (NopPusher) PushXP(context.Context, StoredUser, int)            {}
func (NopPusher) PushStreak(context.Context, StoredUser, int)        {}
func (NopPusher) PushProgress(context.Context, StoredUser, int, int) {}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger computes and persists gamification state.
type Ledger struct {
	Store  *Store
	Clock  Clock
	Remote Pusher
	Log    *zap.Logger
}

// NewLedger creates a ledger with the system clock and no remote.
func NewLedger(store *Store) *Ledger {
	return &Ledger{Store: store, Clock: SystemClock(), Remote: NopPusher{}, Log: zap.NewNop()}
}

// State reads the full ledger snapshot for the current identity.
func (l *Ledger) State(ctx context.Context) LedgerState {
	last, _ := l.Store.Get(ctx, KeyLastActiveDate)
	return LedgerState{
		XP:               l.Store.GetInt(ctx, KeyUserXP, 0),
		Points:           l.Store.GetInt(ctx, KeyUserPoints, 0),
		StreakDays:       l.Store.GetInt(ctx, KeyCurrentStreak, 0),
		LastActiveDate:   last,
		CompletedLessons: GetJSON(ctx, l.Store, KeyCompletedLessons, map[int]bool{}),
	}
}

// =============================================================================
// STREAK
// =============================================================================

// UpdateStreak records activity for today and returns the resulting
// streak count.
//
// Transition table:
//   lastActiveDate == today      -> unchanged (idempotent within a day)
//   lastActiveDate == yesterday  -> streak + 1
//   anything else (gap, absent)  -> 1
func (l *Ledger) UpdateStreak(ctx context.Context) int {
	now := l.Clock.Now()
	today := DateKey(now)
	current := l.Store.GetInt(ctx, KeyCurrentStreak, 0)

	stored, _ := l.Store.Get(ctx, KeyLastActiveDate)
	if stored == today {
		return current
	}

	streak := 1
	if last, ok := ParseDateKey(stored); ok && sameCalendarDay(last.AddDate(0, 0, 1), now) {
		streak = current + 1
	}

	l.Store.Set(ctx, KeyLastActiveDate, today)
	l.Store.SetInt(ctx, KeyCurrentStreak, streak)

	if user, ok := CurrentUser(ctx, l.Store.Medium()); ok && user.ID != 0 {
		l.Remote.PushStreak(ctx, user, streak)
	}
	return streak
}

// =============================================================================
// XP RECONCILIATION
// =============================================================================

// ReconcileXP awards completion XP for every lesson at 100 percent that
// is not yet in the completed set, and returns the resulting total XP.
// Idempotent per lesson id: a second run with the same input changes
// nothing.
func (l *Ledger) ReconcileXP(ctx context.Context, lessons []LessonProgress) int {
	total := l.Store.GetInt(ctx, KeyUserXP, 0)
	completed := GetJSON(ctx, l.Store, KeyCompletedLessons, map[int]bool{})

	earned := 0
	for _, lesson := range lessons {
		if lesson.Percent == 100 && !completed[lesson.ID] {
			completed[lesson.ID] = true
			earned += lesson.XPReward
		}
	}
	if earned == 0 {
		return total
	}

	total += earned
	l.Store.SetInt(ctx, KeyUserXP, total)
	SetJSON(ctx, l.Store, KeyCompletedLessons, completed)
	l.Log.Debug("completion xp awarded", zap.Int("earned", earned), zap.Int("total", total))

	if user, ok := CurrentUser(ctx, l.Store.Medium()); ok && user.ID != 0 {
		l.Remote.PushXP(ctx, user, total)
	}
	return total
}

// AwardDailyPoints adds amount to the points balance and returns the
// new total. Called only by the daily challenge on a correct first
// answer.
func (l *Ledger) AwardDailyPoints(ctx context.Context, amount int) int {
	points := l.Store.GetInt(ctx, KeyUserPoints, 0) + amount
	l.Store.SetInt(ctx, KeyUserPoints, points)
	return points
}

// =============================================================================
// LESSON PROGRESS
// =============================================================================

// RecordProgress stores a progress update for one lesson, clamped to
// [0,100] and monotonically non-decreasing. Completed is derived from
// percent == 100. Returns the stored record.
func (l *Ledger) RecordProgress(ctx context.Context, lessonID, percent int) ProgressRecord {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	records := GetJSON(ctx, l.Store, KeyUserProgress, map[int]ProgressRecord{})
	if prev, ok := records[lessonID]; ok && prev.Percent > percent {
		percent = prev.Percent
	}

	rec := ProgressRecord{
		Percent:   percent,
		Completed: percent == 100,
		UpdatedAt: l.Clock.Now().Format("2006-01-02T15:04:05Z07:00"),
	}
	records[lessonID] = rec
	SetJSON(ctx, l.Store, KeyUserProgress, records)

	if user, ok := CurrentUser(ctx, l.Store.Medium()); ok && user.ID != 0 {
		l.Remote.PushProgress(ctx, user, lessonID, percent)
	}
	return rec
}

// Progress returns all per-lesson progress records for the current
// identity.
func (l *Ledger) Progress(ctx context.Context) map[int]ProgressRecord {
	return GetJSON(ctx, l.Store, KeyUserProgress, map[int]ProgressRecord{})
}

// =============================================================================
// BOOKMARK + RESET
// =============================================================================

// SetLastVisitedLesson records the resume bookmark.
func (l *Ledger) SetLastVisitedLesson(ctx context.Context, lessonID int) {
	l.Store.SetInt(ctx, KeyLastVisitedLesson, lessonID)
}

// LastVisitedLesson returns the resume bookmark, ok=false when unset.
func (l *Ledger) LastVisitedLesson(ctx context.Context) (int, bool) {
	id := l.Store.GetInt(ctx, KeyLastVisitedLesson, -1)
	if id < 0 {
		return 0, false
	}
	return id, true
}

// ResetNamespace clears the ledger-owned keys for the current identity.
// This is the explicit reset that suspends the monotonicity invariants;
// it does not touch the daily challenge record or the bookmark (the
// store's PurgeNamespace is the blanket version).
func (l *Ledger) ResetNamespace(ctx context.Context) {
	for _, logical := range []string{
		KeyUserXP, KeyUserPoints, KeyCurrentStreak, KeyLastActiveDate,
		KeyCompletedLessons, KeyUserProgress,
	} {
		l.Store.Remove(ctx, logical)
	}
}
