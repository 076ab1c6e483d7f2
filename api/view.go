package api

import (
	"sync"

	"github.com/finesse/gamify-engine/engine"
)

// =============================================================================
// VIEW STATE - This context's synchronizer-fed cache
// =============================================================================

// ViewState is the server process's local view of the gamification
// numbers, kept fresh by the cross-context synchronizer. It implements
// engine.View; reads never touch the medium.
type ViewState struct {
	mu sync.RWMutex

	identity engine.Identity
	xp       int
	streak   int
	points   int
	daily    engine.DailyChallengeRecord
	locked   bool
}

var _ engine.View = (*ViewState)(nil)

// NewViewState returns an empty view cache.
func NewViewState() *ViewState { return &ViewState{identity: engine.Anonymous} }

// ShowStats implements engine.View.
func (v *ViewState) ShowStats(xp, streak, points int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.xp, v.streak, v.points = xp, streak, points
}

// ShowDaily implements engine.View.
func (v *ViewState) ShowDaily(rec engine.DailyChallengeRecord, locked bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.daily, v.locked = rec, locked
}

// ShowIdentity implements engine.View.
func (v *ViewState) ShowIdentity(ident engine.Identity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.identity = ident
}

// Snapshot returns a consistent copy for serving.
func (v *ViewState) Snapshot() ViewDTO {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return ViewDTO{
		Identity:   string(v.identity),
		XP:         v.xp,
		StreakDays: v.streak,
		Points:     v.points,
		DailyLock:  v.locked,
		DailyDate:  v.daily.Date,
	}
}
