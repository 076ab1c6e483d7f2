package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finesse/gamify-engine/engine"
)

// =============================================================================
// ANONYMOUS -> CURRENT MIGRATION
// =============================================================================

func TestMigrate_AnonymousDataMovesToCurrentIdentity(t *testing.T) {
	// GIVEN: progress accumulated while anonymous
	store, conn := newTestStore(t)
	ctx := context.Background()
	anon := pinnedStore(conn, engine.Anonymous)
	anon.SetInt(ctx, engine.KeyUserXP, 150)
	anon.Set(ctx, engine.KeyLastActiveDate, "2025-03-09")

	// WHEN: the user logs in and migrations run
	login(t, conn, engine.StoredUser{Email: "ada@example.com"})
	engine.NewMigrator(store).RunMigrations(ctx)

	// THEN: the data lives under the new identity and the anonymous
	// namespace is empty
	assert.Equal(t, 150, store.GetInt(ctx, engine.KeyUserXP, 0))
	keys, err := conn.Keys(ctx, engine.NamespacePrefix(engine.Anonymous))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMigrate_DestinationWins(t *testing.T) {
	// GIVEN: both anonymous.K and currentIdentity.K exist pre-migration
	store, conn := newTestStore(t)
	ctx := context.Background()
	anon := pinnedStore(conn, engine.Anonymous)
	returning := pinnedStore(conn, "ada@example.com")
	anon.SetInt(ctx, engine.KeyUserXP, 5)
	returning.SetInt(ctx, engine.KeyUserXP, 900)

	// WHEN: migrating
	login(t, conn, engine.StoredUser{Email: "ada@example.com"})
	engine.NewMigrator(store).RunMigrations(ctx)

	// THEN: destination wins, source is discarded AND removed
	assert.Equal(t, 900, store.GetInt(ctx, engine.KeyUserXP, 0))
	_, ok, err := conn.Get(ctx, engine.QualifiedKey(engine.Anonymous, engine.KeyUserXP))
	require.NoError(t, err)
	assert.False(t, ok, "anonymous source must be deleted even when not copied")
}

func TestMigrate_Idempotent(t *testing.T) {
	// GIVEN: a completed migration
	store, conn := newTestStore(t)
	ctx := context.Background()
	pinnedStore(conn, engine.Anonymous).SetInt(ctx, engine.KeyUserXP, 150)
	login(t, conn, engine.StoredUser{Email: "ada@example.com"})
	m := engine.NewMigrator(store)
	m.RunMigrations(ctx)

	// WHEN: running again with no intervening anonymous writes
	store.SetInt(ctx, engine.KeyUserXP, 200) // user kept playing
	m.RunMigrations(ctx)

	// THEN: destination state is unchanged by the second run
	assert.Equal(t, 200, store.GetInt(ctx, engine.KeyUserXP, 0))
}

func TestMigrate_NoOpWhileAnonymous(t *testing.T) {
	// GIVEN: an anonymous session with data
	store, conn := newTestStore(t)
	ctx := context.Background()
	store.SetInt(ctx, engine.KeyUserXP, 75) // marker absent -> anonymous namespace

	// WHEN: migrations run before any login
	engine.NewMigrator(store).RunMigrations(ctx)

	// THEN: the anonymous data survives (source and destination coincide)
	assert.Equal(t, 75, store.GetInt(ctx, engine.KeyUserXP, 0))
	_ = conn
}

// =============================================================================
// LEGACY FLAT KEYS
// =============================================================================

func TestMigrate_LegacyGlobalKeys(t *testing.T) {
	// GIVEN: pre-namespacing flat keys and one already-namespaced key
	store, conn := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, conn.Set(ctx, engine.KeyUserXP, "320"))
	require.NoError(t, conn.Set(ctx, engine.KeyCurrentStreak, "4"))
	login(t, conn, engine.StoredUser{Email: "ada@example.com"})
	store.SetInt(ctx, engine.KeyCurrentStreak, 9)

	// WHEN: the legacy migration runs
	m := engine.NewMigrator(store)
	require.NoError(t, m.MigrateLegacyGlobalToUserNamespace(ctx))

	// THEN: absent keys were copied, populated ones kept, and the legacy
	// sources remain in place
	assert.Equal(t, 320, store.GetInt(ctx, engine.KeyUserXP, 0))
	assert.Equal(t, 9, store.GetInt(ctx, engine.KeyCurrentStreak, 0))
	legacy, ok, err := conn.Get(ctx, engine.KeyUserXP)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "320", legacy)
}
