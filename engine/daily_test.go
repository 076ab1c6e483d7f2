package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finesse/gamify-engine/engine"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// stubQuizzes serves fixed quiz items per lesson id.
type stubQuizzes map[int][]engine.QuizQuestion

func (s stubQuizzes) LessonQuizzes(_ context.Context, lessonID int) ([]engine.QuizQuestion, error) {
	return s[lessonID], nil
}

func quizFixture() stubQuizzes {
	return stubQuizzes{
		1: {
			{ID: 101, LessonID: 1, Question: "q101", Options: []string{"a", "b"}, CorrectIndex: 0},
			{ID: 102, LessonID: 1, Question: "q102", Options: []string{"a", "b"}, CorrectIndex: 1},
		},
		2: {
			{ID: 201, LessonID: 2, Question: "q201", Options: []string{"a", "b", "c"}, CorrectIndex: 2},
			{ID: 202, LessonID: 2, Question: "q202", Options: []string{"a", "b"}, CorrectIndex: 0},
			{ID: 203, LessonID: 2, Question: "q203", Options: []string{"a", "b"}, CorrectIndex: 1},
		},
	}
}

func newTestDaily(t *testing.T, at time.Time) *engine.DailyChallenge {
	t.Helper()
	store, _ := newTestStore(t)
	ledger := engine.NewLedger(store)
	ledger.Clock = engine.FixedClock{At: at}
	daily := engine.NewDailyChallenge(store, ledger, quizFixture())
	daily.Clock = engine.FixedClock{At: at}
	return daily
}

// March 10, 2025 is day-of-year 69 (odd); March 11 is 70 (even).
var (
	march10 = localDate(2025, time.March, 10)
	march11 = localDate(2025, time.March, 11)
)

// =============================================================================
// DETERMINISTIC SELECTION
// =============================================================================

func TestDaily_SelectionIsDeterministicPerDay(t *testing.T) {
	// GIVEN: day-of-year 69 -> rotation slot 1 (lesson 2), quiz 69%3=0
	daily := newTestDaily(t, march10)
	ctx := context.Background()

	q1, err := daily.Question(ctx)
	require.NoError(t, err)
	q2, err := daily.Question(ctx)
	require.NoError(t, err)

	assert.Equal(t, q1, q2, "same day must yield the same question")
	assert.Equal(t, 2, q1.LessonID)
	assert.Equal(t, 201, q1.ID)
}

func TestDaily_SelectionAlternatesByParity(t *testing.T) {
	// GIVEN: the next calendar day (day-of-year 70, even)
	daily := newTestDaily(t, march11)

	q, err := daily.Question(context.Background())
	require.NoError(t, err)

	// THEN: rotation slot 0 (lesson 1), quiz 70%2=0
	assert.Equal(t, 1, q.LessonID)
	assert.Equal(t, 101, q.ID)
}

func TestDaily_NoQuizzes(t *testing.T) {
	daily := newTestDaily(t, march10)
	daily.Source = stubQuizzes{}

	_, err := daily.Question(context.Background())
	assert.ErrorIs(t, err, engine.ErrNoQuizzes)
}

// =============================================================================
// LOCK SEMANTICS
// =============================================================================

func TestDaily_CorrectAnswerLocksAndScoresOnce(t *testing.T) {
	// GIVEN: today's question (lesson 2, quiz 201, correct index 2)
	daily := newTestDaily(t, march10)
	ctx := context.Background()

	// WHEN: answering correctly
	rec, err := daily.SubmitAnswer(ctx, 2)
	require.NoError(t, err)

	// THEN: locked record for today, points awarded once
	assert.True(t, rec.Correct)
	assert.Equal(t, "2025-03-10", rec.Date)
	assert.Equal(t, 201, rec.QuestionID)
	assert.Equal(t, engine.DailyPointsAward,
		daily.Store.GetInt(ctx, engine.KeyUserPoints, 0))

	// AND: a second attempt the same day is rejected with no rescoring
	_, err = daily.SubmitAnswer(ctx, 2)
	assert.ErrorIs(t, err, engine.ErrChallengeLocked)
	var locked *engine.ChallengeLockedError
	assert.ErrorAs(t, err, &locked)
	assert.Equal(t, "2025-03-10", locked.Date)
	assert.Equal(t, engine.DailyPointsAward,
		daily.Store.GetInt(ctx, engine.KeyUserPoints, 0))
}

func TestDaily_IncorrectAnswerLocksWithoutPoints(t *testing.T) {
	daily := newTestDaily(t, march10)
	ctx := context.Background()

	rec, err := daily.SubmitAnswer(ctx, 0)
	require.NoError(t, err)
	assert.False(t, rec.Correct)
	assert.Zero(t, daily.Store.GetInt(ctx, engine.KeyUserPoints, 0))

	// Incorrect still locks: no second try for a better outcome.
	_, err = daily.SubmitAnswer(ctx, 2)
	assert.ErrorIs(t, err, engine.ErrChallengeLocked)
}

func TestDaily_CalendarRolloverUnlocks(t *testing.T) {
	// GIVEN: a lock from day D
	daily := newTestDaily(t, march10)
	ctx := context.Background()
	_, err := daily.SubmitAnswer(ctx, 2)
	require.NoError(t, err)

	// WHEN: the clock rolls to D+1
	daily.Clock = engine.FixedClock{At: march11}
	daily.Ledger.Clock = engine.FixedClock{At: march11}

	// THEN: the stale record is treated as absent (no deletion needed)
	_, active := daily.State(ctx)
	assert.False(t, active)

	// AND: a fresh answer against the new day's question succeeds
	rec, err := daily.SubmitAnswer(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11", rec.Date)
	assert.Equal(t, 101, rec.QuestionID)
	assert.True(t, rec.Correct)
}

func TestDaily_MalformedStoredRecordTreatedAsUnanswered(t *testing.T) {
	daily := newTestDaily(t, march10)
	ctx := context.Background()
	daily.Store.Set(ctx, engine.KeyDailyChallenge, "{broken")

	_, active := daily.State(ctx)
	assert.False(t, active)

	_, err := daily.SubmitAnswer(ctx, 2)
	assert.NoError(t, err)
}
