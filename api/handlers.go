/*
handlers.go - HTTP handlers for the gamification state engine

PURPOSE:
  Exposes the engine over REST for the routing/view layer. Handles
  HTTP request/response and JSON; all state rules live in the engine.

ENDPOINTS:
  Session:
    POST   /api/session            Login/restore: set identity, run migrations
    DELETE /api/session            Logout (optional ?purge=true)

  State:
    GET    /api/state              Full ledger snapshot
    POST   /api/activity           Record today's activity (streak + XP reconcile)
    GET    /api/stats              Dashboard summary
    GET    /api/view               Synchronizer-fed cached view
    POST   /api/focus              Focus-regain resync

  Lessons:
    GET    /api/lessons            Catalog
    GET    /api/lessons/{id}       One lesson
    POST   /api/lessons/{id}/progress  Progress update
    POST   /api/lessons/{id}/visit     Resume bookmark

  Daily challenge:
    GET    /api/daily              Today's question + lock state
    POST   /api/daily/answer       Submit answer (409 when locked)

  Dev/test:
    POST   /api/reset              Clear ledger-owned keys
    DELETE /api/namespace          Purge the whole namespace

ERROR HANDLING:
  - 400: malformed input
  - 404: unknown lesson
  - 409: daily challenge already attempted today
  - 502: lesson content source unavailable
  Engine read paths never error; absence degrades to defaults upstream.

SEE ALSO:
  - dto.go: Request/response types
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/finesse/gamify-engine/content"
	"github.com/finesse/gamify-engine/engine"
	"github.com/finesse/gamify-engine/stats"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *engine.Store
	Ledger   *engine.Ledger
	Daily    *engine.DailyChallenge
	Migrator *engine.Migrator
	Content  content.Source
	Sync     *engine.Synchronizer
	View     *ViewState
	Log      *zap.Logger
}

// NewHandler wires a handler around an engine store.
func NewHandler(store *engine.Store, ledger *engine.Ledger, daily *engine.DailyChallenge, src content.Source) *Handler {
	view := NewViewState()
	sync := engine.NewSynchronizer(store, daily, view)
	return &Handler{
		Store:    store,
		Ledger:   ledger,
		Daily:    daily,
		Migrator: engine.NewMigrator(store),
		Content:  src,
		Sync:     sync,
		View:     view,
		Log:      zap.NewNop(),
	}
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// StartSession sets the current identity and runs the migration
// pipeline, as on login, registration, and session restore.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session payload", err)
		return
	}

	ctx := r.Context()
	user := engine.StoredUser{ID: req.ID, Username: req.Username, Email: req.Email, Token: req.Token}
	if err := engine.SetCurrentUser(ctx, h.Store.Medium(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to persist session", err)
		return
	}

	h.Migrator.RunMigrations(ctx)
	h.Sync.Refresh(ctx)

	last, hasLast := h.Ledger.LastVisitedLesson(ctx)
	writeJSON(w, http.StatusOK, stateDTO(h.Store.Identity(ctx), h.Ledger.State(ctx), last, hasLast))
}

// EndSession clears the identity marker, returning the session to
// anonymous. With ?purge=true the outgoing identity's namespace is
// destroyed first.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.URL.Query().Get("purge") == "true" {
		h.Store.PurgeNamespace(ctx)
	}
	if err := engine.ClearCurrentUser(ctx, h.Store.Medium()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear session", err)
		return
	}
	h.Sync.Refresh(ctx)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// STATE HANDLERS
// =============================================================================

// GetState returns the full ledger snapshot for the current identity.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	last, hasLast := h.Ledger.LastVisitedLesson(ctx)
	writeJSON(w, http.StatusOK, stateDTO(h.Store.Identity(ctx), h.Ledger.State(ctx), last, hasLast))
}

// RecordActivity marks today active (streak) and reconciles completion
// XP against the catalog.
func (h *Handler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	streak := h.Ledger.UpdateStreak(ctx)
	xp := h.Ledger.ReconcileXP(ctx, h.lessonProgressInput(ctx))
	writeJSON(w, http.StatusOK, ActivityDTO{StreakDays: streak, XP: xp})
}

// GetStats returns the dashboard summary.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lessons, err := h.Content.Lessons(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Lesson source unavailable", err)
		return
	}
	summary := stats.Summarize(h.Ledger.State(ctx), h.Ledger.Progress(ctx), len(lessons))
	writeJSON(w, http.StatusOK, summary)
}

// GetView serves the synchronizer-fed cached view without touching the
// medium.
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.View.Snapshot())
}

// FocusRegain resyncs the cached view, the fallback for missed change
// notifications.
func (h *Handler) FocusRegain(w http.ResponseWriter, r *http.Request) {
	h.Sync.OnFocusRegain(r.Context())
	writeJSON(w, http.StatusOK, h.View.Snapshot())
}

// =============================================================================
// LESSON HANDLERS
// =============================================================================

// ListLessons returns the lesson catalog.
func (h *Handler) ListLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.Content.Lessons(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "Lesson source unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, lessons)
}

// GetLesson returns one lesson.
func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := lessonID(w, r)
	if !ok {
		return
	}
	lesson, err := h.Content.Lesson(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrLessonNotFound) {
			writeError(w, http.StatusNotFound, "Lesson not found", err)
			return
		}
		writeError(w, http.StatusBadGateway, "Lesson source unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

// UpdateProgress records a lesson progress update and reconciles XP so
// a lesson reaching 100 percent is awarded immediately.
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := lessonID(w, r)
	if !ok {
		return
	}
	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid progress payload", err)
		return
	}

	ctx := r.Context()
	rec := h.Ledger.RecordProgress(ctx, id, req.Percent)
	xp := h.Ledger.ReconcileXP(ctx, h.lessonProgressInput(ctx))

	writeJSON(w, http.StatusOK, ProgressDTO{
		LessonID:  id,
		Percent:   rec.Percent,
		Completed: rec.Completed,
		UpdatedAt: rec.UpdatedAt,
		XP:        xp,
	})
}

// VisitLesson records the resume bookmark.
func (h *Handler) VisitLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := lessonID(w, r)
	if !ok {
		return
	}
	h.Ledger.SetLastVisitedLesson(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DAILY CHALLENGE HANDLERS
// =============================================================================

// GetDaily returns today's question and the lock state.
func (h *Handler) GetDaily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	question, err := h.Daily.Question(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Daily challenge unavailable", err)
		return
	}

	dto := DailyDTO{
		Date: engine.DateKey(h.Daily.Clock.Now()),
		Question: QuestionDTO{
			ID:       question.ID,
			LessonID: question.LessonID,
			Question: question.Question,
			Options:  question.Options,
		},
	}
	if rec, active := h.Daily.State(ctx); active {
		dto.Locked = true
		dto.Correct = &rec.Correct
		dto.SelectedOption = &rec.SelectedOption
	}
	writeJSON(w, http.StatusOK, dto)
}

// SubmitDailyAnswer submits the selected option. A second attempt on
// the same calendar day is rejected with 409 and no state change.
func (h *Handler) SubmitDailyAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid answer payload", err)
		return
	}

	rec, err := h.Daily.SubmitAnswer(r.Context(), req.SelectedOption)
	if err != nil {
		if errors.Is(err, engine.ErrChallengeLocked) {
			writeError(w, http.StatusConflict, "Daily challenge already attempted today", err)
			return
		}
		writeError(w, http.StatusBadGateway, "Daily challenge unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// =============================================================================
// DEV/TEST HANDLERS
// =============================================================================

// ResetLedger clears the ledger-owned keys for the current identity.
func (h *Handler) ResetLedger(w http.ResponseWriter, r *http.Request) {
	h.Ledger.ResetNamespace(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// PurgeNamespace destroys every key under the current identity.
func (h *Handler) PurgeNamespace(w http.ResponseWriter, r *http.Request) {
	h.Store.PurgeNamespace(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

// lessonProgressInput joins catalog rewards with stored progress for
// XP reconciliation. A catalog failure degrades to an empty input:
// reconciliation then awards nothing, which a later run repairs.
func (h *Handler) lessonProgressInput(ctx context.Context) []engine.LessonProgress {
	lessons, err := h.Content.Lessons(ctx)
	if err != nil {
		h.Log.Warn("xp reconcile skipped, lesson source unavailable", zap.Error(err))
		return nil
	}
	progress := h.Ledger.Progress(ctx)

	input := make([]engine.LessonProgress, 0, len(lessons))
	for _, lesson := range lessons {
		input = append(input, engine.LessonProgress{
			ID:       lesson.ID,
			Percent:  progress[lesson.ID].Percent,
			XPReward: lesson.XPReward,
		})
	}
	return input
}

func lessonID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "Invalid lesson id", err)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	dto := ErrorDTO{Error: msg}
	if err != nil {
		dto.Details = err.Error()
	}
	writeJSON(w, status, dto)
}
