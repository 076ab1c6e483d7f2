package medium_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finesse/gamify-engine/engine"
	"github.com/finesse/gamify-engine/engine/medium"
)

func collect(t *testing.T, c *medium.Conn) func() []engine.Change {
	t.Helper()
	var mu sync.Mutex
	var got []engine.Change
	cancel, err := c.Subscribe(func(ch engine.Change) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ch)
	})
	require.NoError(t, err)
	t.Cleanup(cancel)
	return func() []engine.Change {
		mu.Lock()
		defer mu.Unlock()
		return append([]engine.Change(nil), got...)
	}
}

func TestMemory_SharedDataVisibleToAllConnections(t *testing.T) {
	mem := medium.NewMemory()
	a, b := mem.Connect(), mem.Connect()
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", "v"))

	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestMemory_FanOutSkipsWriter(t *testing.T) {
	mem := medium.NewMemory()
	writer, other := mem.Connect(), mem.Connect()
	writerGot := collect(t, writer)
	otherGot := collect(t, other)
	ctx := context.Background()

	require.NoError(t, writer.Set(ctx, "k", "v1"))
	require.NoError(t, writer.Delete(ctx, "k"))

	require.Eventually(t, func() bool { return len(otherGot()) == 2 }, time.Second, 5*time.Millisecond)
	changes := otherGot()
	assert.Equal(t, engine.Change{Key: "k", Value: "v1", Present: true}, changes[0])
	assert.Equal(t, engine.Change{Key: "k", Present: false}, changes[1])
	assert.Empty(t, writerGot(), "writer must never see its own writes")
}

func TestMemory_DeleteAbsentKeyEmitsNothing(t *testing.T) {
	mem := medium.NewMemory()
	a, b := mem.Connect(), mem.Connect()
	got := collect(t, b)

	require.NoError(t, a.Delete(context.Background(), "missing"))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, got())
}

func TestMemory_KeysFiltersByPrefixSorted(t *testing.T) {
	mem := medium.NewMemory()
	c := mem.Connect()
	ctx := context.Background()
	for _, k := range []string{"finesse:bob:xp", "finesse:ada:xp", "finesse:ada:points", "user"} {
		require.NoError(t, c.Set(ctx, k, "1"))
	}

	keys, err := c.Keys(ctx, "finesse:ada:")
	require.NoError(t, err)
	assert.Equal(t, []string{"finesse:ada:points", "finesse:ada:xp"}, keys)
}

func TestMemory_ClosedConnStopsReceiving(t *testing.T) {
	mem := medium.NewMemory()
	a, b := mem.Connect(), mem.Connect()
	got := collect(t, b)
	b.Close()

	require.NoError(t, a.Set(context.Background(), "k", "v"))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, got())
}
