/*
sync.go - Cross-context synchronizer

PURPOSE:
  Keeps concurrently open views of the same identity eventually
  consistent. Each context runs one Synchronizer subscribed to the
  medium's external-change feed, scoped to the keys the ledger and
  daily challenge own plus the identity marker. On a notification the
  affected state is RE-READ through the store (never trusted from the
  notification payload) and republished to the context's local view.

FALLBACK:
  The change feed is best-effort - notifications may be missed or
  coalesced, and some media provide none at all. OnFocusRegain is the
  catch-up path: a context regaining user focus re-reads everything.

IDENTITY SWITCHES:
  The identity marker is outside every namespace. When another context
  switches identities, this context sees the marker change and re-runs
  the full read path: every fully qualified key is different under the
  new identity.

SEE ALSO:
  - medium.go: The Watchable change feed contract
  - store.go: FullyQualifiedKey correlation
*/
package engine

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// VIEW - Local view state republished by the synchronizer
// =============================================================================

// View receives fresh values for the context's local view state.
// Implementations must be cheap and non-blocking; they run on the
// change-feed delivery goroutine.
type View interface {
	// ShowStats republishes XP, streak, and points.
	ShowStats(xp, streak, points int)

	// ShowDaily republishes the daily challenge lock state. locked is
	// false when the stored record is absent or expired.
	ShowDaily(rec DailyChallengeRecord, locked bool)

	// ShowIdentity republishes the identity the view state belongs to.
	ShowIdentity(ident Identity)
}

// =============================================================================
// SYNCHRONIZER
// =============================================================================

// Synchronizer republishes external changes into one context's view.
type Synchronizer struct {
	// ID distinguishes this context in logs.
	ID string

	Store *Store
	Daily *DailyChallenge
	View  View
	Log   *zap.Logger
}

// NewSynchronizer wires a synchronizer for one context.
func NewSynchronizer(store *Store, daily *DailyChallenge, view View) *Synchronizer {
	return &Synchronizer{
		ID:    uuid.NewString(),
		Store: store,
		Daily: daily,
		View:  view,
		Log:   zap.NewNop(),
	}
}

// Watch subscribes to the medium's change feed. Returns ErrNotWatchable
// when the medium provides none; the caller then relies solely on
// OnFocusRegain. The returned cancel detaches the subscription.
func (s *Synchronizer) Watch(ctx context.Context) (func(), error) {
	w, ok := s.Store.Medium().(Watchable)
	if !ok {
		return func() {}, ErrNotWatchable
	}
	return w.Subscribe(func(c Change) {
		s.OnRemoteChange(ctx, c.Key)
	})
}

// =============================================================================
// NOTIFICATION HANDLING
// =============================================================================

// OnRemoteChange handles one external-change notification. Keys not
// owned by the ledger, the daily challenge, or the identity marker are
// ignored.
func (s *Synchronizer) OnRemoteChange(ctx context.Context, key string) {
	if key == IdentityMarkerKey {
		// Identity switched in another context: every fully qualified
		// key changed, so re-run the full read path.
		s.Log.Debug("identity switch observed", zap.String("context", s.ID))
		s.Refresh(ctx)
		return
	}

	switch key {
	case s.Store.FullyQualifiedKey(ctx, KeyUserXP),
		s.Store.FullyQualifiedKey(ctx, KeyCurrentStreak),
		s.Store.FullyQualifiedKey(ctx, KeyUserPoints):
		s.publishStats(ctx)
	case s.Store.FullyQualifiedKey(ctx, KeyDailyChallenge):
		s.publishDaily(ctx)
	}
}

// OnFocusRegain re-reads everything. Fallback for missed or coalesced
// notifications, and for media without a change feed.
func (s *Synchronizer) OnFocusRegain(ctx context.Context) {
	s.Refresh(ctx)
}

// Refresh republishes the full read path under the current identity.
func (s *Synchronizer) Refresh(ctx context.Context) {
	s.View.ShowIdentity(s.Store.Identity(ctx))
	s.publishStats(ctx)
	s.publishDaily(ctx)
}

func (s *Synchronizer) publishStats(ctx context.Context) {
	s.View.ShowStats(
		s.Store.GetInt(ctx, KeyUserXP, 0),
		s.Store.GetInt(ctx, KeyCurrentStreak, 0),
		s.Store.GetInt(ctx, KeyUserPoints, 0),
	)
}

func (s *Synchronizer) publishDaily(ctx context.Context) {
	rec, active := s.Daily.State(ctx)
	s.View.ShowDaily(rec, active)
}
