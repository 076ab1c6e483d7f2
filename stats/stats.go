/*
Package stats computes dashboard summary figures.

PURPOSE:
  Aggregates the ledger snapshot and per-lesson progress records into
  the numbers the dashboard shows: average completion percentage and
  completion rate. Uses decimal arithmetic so the figures divide
  exactly instead of accumulating float error.
*/
package stats

import (
	"github.com/shopspring/decimal"

	"github.com/finesse/gamify-engine/engine"
)

// Summary is the aggregated dashboard view for one identity.
type Summary struct {
	XP             int             `json:"xp"`
	Points         int             `json:"points"`
	StreakDays     int             `json:"streak_days"`
	Lessons        int             `json:"lessons"`
	Completed      int             `json:"completed"`
	AveragePercent decimal.Decimal `json:"average_percent"`
	CompletionRate decimal.Decimal `json:"completion_rate"`
}

// Summarize aggregates state and progress over lessonCount catalog
// lessons. Lessons without a progress record count as 0 percent.
func Summarize(state engine.LedgerState, progress map[int]engine.ProgressRecord, lessonCount int) Summary {
	s := Summary{
		XP:         state.XP,
		Points:     state.Points,
		StreakDays: state.StreakDays,
		Lessons:    lessonCount,
	}

	total := decimal.Zero
	for _, rec := range progress {
		total = total.Add(decimal.NewFromInt(int64(rec.Percent)))
		if rec.Completed {
			s.Completed++
		}
	}

	if lessonCount > 0 {
		n := decimal.NewFromInt(int64(lessonCount))
		s.AveragePercent = total.DivRound(n, 2)
		s.CompletionRate = decimal.NewFromInt(int64(s.Completed)).DivRound(n, 4)
	}
	return s
}
