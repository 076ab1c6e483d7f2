/*
migrate.go - One-time relocation of data across identity boundaries

PURPOSE:
  When the identity changes (anonymous session logs in, legacy unscoped
  install upgrades), previously written data must move into the new
  namespace exactly once, without overwriting data already there and
  without leaking one identity's data into another's.

POLICY:
  Copy-if-absent, then (for anonymous only) delete the source. Never a
  merge. If the destination key already holds a value, the source value
  is discarded - a returning user's real progress must not be clobbered
  by stale anonymous session data.

PIPELINE:
  RunMigrations is the single entry point invoked on login,
  registration, and session restore. Additional migrations append to
  the pipeline without changing call sites. The legacy flat-key
  migration is available but deliberately NOT in the default pipeline:
  legacy keys predate namespacing, so running it automatically would
  copy one user's pre-namespacing data into whichever account logs in
  next on the same installation.

SEE ALSO:
  - store.go: The namespaced store being migrated
  - identity.go: Identity derivation
*/
package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// MIGRATOR
// =============================================================================

// Migration is a single named relocation step. Steps must be idempotent:
// the pipeline may run again on every session restore.
type Migration struct {
	Name string
	Run  func(ctx context.Context, m *Migrator) error
}

// Migrator executes the migration pipeline against a store.
type Migrator struct {
	store    *Store
	log      *zap.Logger
	pipeline []Migration
}

// NewMigrator creates a migrator with the default pipeline
// (anonymous -> current identity).
func NewMigrator(store *Store) *Migrator {
	m := &Migrator{store: store, log: zap.NewNop()}
	m.pipeline = []Migration{
		{Name: "anonymous-to-current", Run: func(ctx context.Context, m *Migrator) error {
			return m.MigrateAnonymousToCurrentIdentity(ctx)
		}},
	}
	return m
}

// SetLogger attaches a logger for migration outcomes.
func (m *Migrator) SetLogger(log *zap.Logger) { m.log = log }

// Append adds a migration to the end of the pipeline.
func (m *Migrator) Append(mig Migration) { m.pipeline = append(m.pipeline, mig) }

// RunMigrations executes the pipeline. Invoked on login, registration,
// and session restore. Failures are logged and do not stop later steps;
// every step is safe to retry on the next session.
func (m *Migrator) RunMigrations(ctx context.Context) {
	for _, mig := range m.pipeline {
		if err := mig.Run(ctx, m); err != nil {
			m.log.Warn("migration step failed", zap.String("migration", mig.Name), zap.Error(err))
		}
	}
}

// =============================================================================
// ANONYMOUS -> CURRENT IDENTITY
// =============================================================================

// MigrateAnonymousToCurrentIdentity relocates every key under the
// anonymous namespace into the current identity's namespace.
// Copy-if-absent (destination wins), then the anonymous key is removed
// in all cases: anonymous data is single-use and must not resurface
// for a different later identity.
func (m *Migrator) MigrateAnonymousToCurrentIdentity(ctx context.Context) error {
	current := m.store.Identity(ctx)
	if current == Anonymous {
		// Still anonymous: source and destination coincide; deleting the
		// "source" would destroy live data.
		return nil
	}

	medium := m.store.Medium()
	anonPrefix := NamespacePrefix(Anonymous)
	keys, err := medium.Keys(ctx, anonPrefix)
	if err != nil {
		return err
	}

	migrated := 0
	for _, key := range keys {
		logical := strings.TrimPrefix(key, anonPrefix)
		target := QualifiedKey(current, logical)

		if _, exists, err := medium.Get(ctx, target); err == nil && !exists {
			if value, ok, err := medium.Get(ctx, key); err == nil && ok {
				if err := medium.Set(ctx, target, value); err != nil {
					return err
				}
				migrated++
			}
		}
		// Remove the anonymous key whether or not it was copied.
		if err := medium.Delete(ctx, key); err != nil {
			return err
		}
	}

	if migrated > 0 {
		m.log.Info("anonymous namespace migrated",
			zap.String("identity", string(current)), zap.Int("keys", migrated))
	}
	return nil
}

// =============================================================================
// LEGACY FLAT KEYS -> NAMESPACED
// =============================================================================

// MigrateLegacyGlobalToUserNamespace copies pre-namespacing flat keys
// (bare logical names) into the current identity's namespace, again
// copy-if-absent. Legacy keys are left in place for defense in depth;
// only the namespaced copy is authoritative from here on.
func (m *Migrator) MigrateLegacyGlobalToUserNamespace(ctx context.Context) error {
	current := m.store.Identity(ctx)
	medium := m.store.Medium()

	for _, logical := range LogicalKeys {
		legacy, ok, err := medium.Get(ctx, logical)
		if err != nil || !ok {
			continue
		}
		target := QualifiedKey(current, logical)
		if _, exists, err := medium.Get(ctx, target); err == nil && !exists {
			if err := medium.Set(ctx, target, legacy); err != nil {
				return err
			}
		}
	}
	return nil
}
