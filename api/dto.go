/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the HTTP facade. These decouple the engine's
  internal types from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/finesse/gamify-engine/engine"
)

// =============================================================================
// SESSION
// =============================================================================

// SessionRequest is the login/registration/session-restore payload.
type SessionRequest struct {
	ID       int    `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Token    string `json:"token,omitempty"`
}

// =============================================================================
// STATE
// =============================================================================

// StateDTO is the full per-identity gamification snapshot.
type StateDTO struct {
	Identity          string `json:"identity"`
	XP                int    `json:"xp"`
	Points            int    `json:"points"`
	StreakDays        int    `json:"streak_days"`
	LastActiveDate    string `json:"last_active_date,omitempty"`
	CompletedLessons  []int  `json:"completed_lessons"`
	LastVisitedLesson *int   `json:"last_visited_lesson,omitempty"`
}

// ActivityDTO is returned after recording today's activity.
type ActivityDTO struct {
	StreakDays int `json:"streak_days"`
	XP         int `json:"xp"`
}

// =============================================================================
// PROGRESS
// =============================================================================

// ProgressRequest updates one lesson's completion percentage.
type ProgressRequest struct {
	Percent int `json:"percent"`
}

// ProgressDTO is the stored progress record plus the reconciled XP.
type ProgressDTO struct {
	LessonID  int    `json:"lesson_id"`
	Percent   int    `json:"percent"`
	Completed bool   `json:"completed"`
	UpdatedAt string `json:"updated_at"`
	XP        int    `json:"xp"`
}

// =============================================================================
// DAILY CHALLENGE
// =============================================================================

// AnswerRequest submits the selected option for today's challenge.
type AnswerRequest struct {
	SelectedOption int `json:"selected_option"`
}

// QuestionDTO is today's question with the correct index withheld.
type QuestionDTO struct {
	ID       int      `json:"id"`
	LessonID int      `json:"lesson_id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// DailyDTO is the daily challenge view: today's question plus the lock
// state re-derived from the persisted record.
type DailyDTO struct {
	Date           string      `json:"date"`
	Question       QuestionDTO `json:"question"`
	Locked         bool        `json:"locked"`
	Correct        *bool       `json:"correct,omitempty"`
	SelectedOption *int        `json:"selected_option,omitempty"`
}

// =============================================================================
// VIEW STATE
// =============================================================================

// ViewDTO is the synchronizer-fed cached view of this context.
type ViewDTO struct {
	Identity   string `json:"identity"`
	XP         int    `json:"xp"`
	StreakDays int    `json:"streak_days"`
	Points     int    `json:"points"`
	DailyLock  bool   `json:"daily_locked"`
	DailyDate  string `json:"daily_date,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorDTO is the JSON error envelope.
type ErrorDTO struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func stateDTO(ident engine.Identity, state engine.LedgerState, lastVisited int, hasVisited bool) StateDTO {
	dto := StateDTO{
		Identity:         string(ident),
		XP:               state.XP,
		Points:           state.Points,
		StreakDays:       state.StreakDays,
		LastActiveDate:   state.LastActiveDate,
		CompletedLessons: state.CompletedIDs(),
	}
	if hasVisited {
		dto.LastVisitedLesson = &lastVisited
	}
	return dto
}
