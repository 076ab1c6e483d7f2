/*
daily.go - Daily challenge state machine

PURPOSE:
  One quiz question per identity per calendar day. The machine has
  three observable states:

    Unanswered -> Answered(correct?) -> Locked

  Locked is re-derived from the persisted record on reload as long as
  the record's date is still today; a record with a past date is
  semantically expired and treated as Unanswered without being deleted.
  The transition is terminal for the day - the only way out of Locked
  is calendar rollover.

SELECTION:
  Deterministic per calendar day so every identity sees the same
  challenge. The lesson alternates by day-of-year parity over a fixed
  rotation; within that lesson's quiz items the question index is
  day-of-year mod quiz count.

SEE ALSO:
  - ledger.go: AwardDailyPoints on a correct first answer
  - content: QuizSource implementations
*/
package engine

import "context"

// =============================================================================
// DAILY CHALLENGE
// =============================================================================

// DailyPointsAward is granted for a correct first answer.
const DailyPointsAward = 100

// DefaultRotation is the lesson rotation the daily challenge cycles
// through by day-of-year parity.
var DefaultRotation = []int{1, 2}

// QuizSource supplies canonical quiz content keyed by lesson id.
type QuizSource interface {
	LessonQuizzes(ctx context.Context, lessonID int) ([]QuizQuestion, error)
}

// DailyChallenge drives the once-per-day question.
type DailyChallenge struct {
	Store    *Store
	Ledger   *Ledger
	Source   QuizSource
	Clock    Clock
	Rotation []int
}

// NewDailyChallenge wires the state machine with the default rotation
// and system clock.
func NewDailyChallenge(store *Store, ledger *Ledger, source QuizSource) *DailyChallenge {
	return &DailyChallenge{
		Store:    store,
		Ledger:   ledger,
		Source:   source,
		Clock:    SystemClock(),
		Rotation: DefaultRotation,
	}
}

// =============================================================================
// SELECTION
// =============================================================================

// Question returns today's challenge question.
func (d *DailyChallenge) Question(ctx context.Context) (QuizQuestion, error) {
	doy := DayOfYear(d.Clock.Now())
	lessonID := d.Rotation[doy%len(d.Rotation)]

	quizzes, err := d.Source.LessonQuizzes(ctx, lessonID)
	if err != nil {
		return QuizQuestion{}, err
	}
	if len(quizzes) == 0 {
		return QuizQuestion{}, ErrNoQuizzes
	}
	return quizzes[doy%len(quizzes)], nil
}

// =============================================================================
// STATE
// =============================================================================

// State returns today's record, active=false when there is no record
// for the current calendar day (including the implicit-expiry case of
// a record carrying a past date).
func (d *DailyChallenge) State(ctx context.Context) (DailyChallengeRecord, bool) {
	rec := GetJSON(ctx, d.Store, KeyDailyChallenge, DailyChallengeRecord{})
	if rec.Date != DateKey(d.Clock.Now()) {
		return DailyChallengeRecord{}, false
	}
	return rec, true
}

// SubmitAnswer evaluates the selected option against today's question,
// persists the attempt, and awards points on a correct answer. Exactly
// one scoring event per identity per calendar day: a second submission
// the same day returns ErrChallengeLocked with state unchanged.
func (d *DailyChallenge) SubmitAnswer(ctx context.Context, selectedOption int) (DailyChallengeRecord, error) {
	if existing, active := d.State(ctx); active {
		return existing, &ChallengeLockedError{Date: existing.Date, Identity: d.Store.Identity(ctx)}
	}

	question, err := d.Question(ctx)
	if err != nil {
		return DailyChallengeRecord{}, err
	}

	rec := DailyChallengeRecord{
		Date:           DateKey(d.Clock.Now()),
		LessonID:       question.LessonID,
		QuestionID:     question.ID,
		SelectedOption: selectedOption,
		Correct:        selectedOption == question.CorrectIndex,
	}
	SetJSON(ctx, d.Store, KeyDailyChallenge, rec)

	if rec.Correct {
		d.Ledger.AwardDailyPoints(ctx, DailyPointsAward)
	}
	return rec, nil
}
