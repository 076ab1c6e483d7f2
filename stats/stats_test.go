package stats_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/finesse/gamify-engine/engine"
	"github.com/finesse/gamify-engine/stats"
)

func TestSummarize(t *testing.T) {
	state := engine.LedgerState{XP: 125, Points: 200, StreakDays: 4}
	progress := map[int]engine.ProgressRecord{
		1: {Percent: 100, Completed: true},
		2: {Percent: 40},
	}

	s := stats.Summarize(state, progress, 3)

	assert.Equal(t, 125, s.XP)
	assert.Equal(t, 200, s.Points)
	assert.Equal(t, 4, s.StreakDays)
	assert.Equal(t, 3, s.Lessons)
	assert.Equal(t, 1, s.Completed)
	// (100 + 40 + 0) / 3 = 46.67
	assert.True(t, s.AveragePercent.Equal(decimal.RequireFromString("46.67")),
		"got %s", s.AveragePercent)
	// 1 / 3 = 0.3333
	assert.True(t, s.CompletionRate.Equal(decimal.RequireFromString("0.3333")),
		"got %s", s.CompletionRate)
}

func TestSummarize_EmptyCatalog(t *testing.T) {
	s := stats.Summarize(engine.LedgerState{}, nil, 0)

	assert.Zero(t, s.Completed)
	assert.True(t, s.AveragePercent.IsZero())
	assert.True(t, s.CompletionRate.IsZero())
}
