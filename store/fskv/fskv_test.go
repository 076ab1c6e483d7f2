package fskv_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finesse/gamify-engine/engine"
	"github.com/finesse/gamify-engine/store/fskv"
)

func newTestMedium(t *testing.T, dir string) *fskv.Medium {
	t.Helper()
	m, err := fskv.New(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func collect(t *testing.T, m *fskv.Medium) func() []engine.Change {
	t.Helper()
	var mu sync.Mutex
	var got []engine.Change
	cancel, err := m.Subscribe(func(c engine.Change) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, c)
	})
	require.NoError(t, err)
	t.Cleanup(cancel)
	return func() []engine.Change {
		mu.Lock()
		defer mu.Unlock()
		return append([]engine.Change(nil), got...)
	}
}

func TestFSKV_SetGetRoundTrip(t *testing.T) {
	m := newTestMedium(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "finesse:ada:userXP", "100"))
	v, ok, err := m.Get(ctx, "finesse:ada:userXP")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "100", v)

	_, ok, err = m.Get(ctx, "finesse:ada:missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFSKV_KeysByPrefix(t *testing.T) {
	// Keys carry ':' and other separator characters; the filename
	// encoding must round-trip them.
	m := newTestMedium(t, t.TempDir())
	ctx := context.Background()
	for _, k := range []string{
		"finesse:ada@example.com:userXP",
		"finesse:ada@example.com:userPoints",
		"finesse:bob:userXP",
		"user",
	} {
		require.NoError(t, m.Set(ctx, k, "1"))
	}

	keys, err := m.Keys(ctx, "finesse:ada@example.com:")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"finesse:ada@example.com:userPoints",
		"finesse:ada@example.com:userXP",
	}, keys)
}

func TestFSKV_DeleteAbsentKeyIsNoError(t *testing.T) {
	m := newTestMedium(t, t.TempDir())
	assert.NoError(t, m.Delete(context.Background(), "missing"))
}

func TestFSKV_ExternalWriteNotifies(t *testing.T) {
	// GIVEN: two processes (simulated as two media) sharing a directory
	dir := t.TempDir()
	observer := newTestMedium(t, dir)
	writer := newTestMedium(t, dir)
	got := collect(t, observer)
	ctx := context.Background()

	// WHEN: the other process writes
	require.NoError(t, writer.Set(ctx, "finesse:ada:userXP", "250"))

	// THEN: the observer's subscriber hears about it
	require.Eventually(t, func() bool {
		for _, c := range got() {
			if c.Key == "finesse:ada:userXP" && c.Present && c.Value == "250" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFSKV_ExternalDeleteNotifies(t *testing.T) {
	dir := t.TempDir()
	observer := newTestMedium(t, dir)
	writer := newTestMedium(t, dir)
	got := collect(t, observer)
	ctx := context.Background()

	require.NoError(t, writer.Set(ctx, "k", "v"))
	require.NoError(t, writer.Delete(ctx, "k"))

	require.Eventually(t, func() bool {
		for _, c := range got() {
			if c.Key == "k" && !c.Present {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFSKV_OwnWritesSuppressed(t *testing.T) {
	// GIVEN: a medium subscribed to its own directory
	m := newTestMedium(t, t.TempDir())
	got := collect(t, m)
	ctx := context.Background()

	// WHEN: it writes and deletes through itself
	require.NoError(t, m.Set(ctx, "k", "v"))
	require.NoError(t, m.Delete(ctx, "k"))

	// THEN: no echo arrives
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, got(), "writer must not hear its own writes")
}
