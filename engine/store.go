/*
store.go - Identity-namespaced key-value store with typed accessors

PURPOSE:
  Maps (identity, logical key) onto the raw Medium and layers the
  decode-with-default contract on top: every read returns a well-typed
  value or the caller's fallback. Absence, malformed values, and medium
  I/O failures all degrade silently - nothing on the read path is ever
  surfaced to the UI layer as an error.

IDENTITY RESOLUTION:
  By default the identity is re-resolved from the identity marker on
  every call, so a login in this or another context takes effect on the
  next operation. Tests (and anything juggling several identities in
  one process) can pin the resolver with NewStoreWithIdentity.

SEE ALSO:
  - medium.go: The raw persistence contract
  - keys.go: Key composition
  - migrate.go: Cross-namespace relocation built on this store
*/
package engine

import (
	"context"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"
)

// =============================================================================
// STORE
// =============================================================================

// IdentityFunc resolves the identity a store operation runs under.
type IdentityFunc func(ctx context.Context) Identity

// Store is the namespaced key-value layer. All engine components write
// through it; the UI layer never writes to the Medium directly.
type Store struct {
	medium   Medium
	identity IdentityFunc
	log      *zap.Logger
}

// NewStore creates a store that resolves its identity from the
// identity marker key on every operation.
func NewStore(m Medium) *Store {
	return &Store{
		medium: m,
		identity: func(ctx context.Context) Identity {
			return CurrentIdentity(ctx, m)
		},
		log: zap.NewNop(),
	}
}

// NewStoreWithIdentity creates a store with a pinned identity resolver.
func NewStoreWithIdentity(m Medium, fn IdentityFunc) *Store {
	return &Store{medium: m, identity: fn, log: zap.NewNop()}
}

// SetLogger attaches a logger for degraded reads and lost writes.
func (s *Store) SetLogger(log *zap.Logger) { s.log = log }

// Medium exposes the underlying medium (identity marker access,
// synchronizer subscription).
func (s *Store) Medium() Medium { return s.medium }

// Identity resolves the current identity.
func (s *Store) Identity(ctx context.Context) Identity { return s.identity(ctx) }

// FullyQualifiedKey returns the complete storage key for logical under
// the current identity. Exposed so change-feed consumers can correlate
// notifications to logical keys without re-deriving the identity.
func (s *Store) FullyQualifiedKey(ctx context.Context, logical string) string {
	return QualifiedKey(s.identity(ctx), logical)
}

// =============================================================================
// RAW ACCESS
// =============================================================================

// Get reads logical under the current identity. ok=false on absence or
// medium failure.
func (s *Store) Get(ctx context.Context, logical string) (string, bool) {
	key := s.FullyQualifiedKey(ctx, logical)
	v, ok, err := s.medium.Get(ctx, key)
	if err != nil {
		s.log.Warn("store read degraded to absent", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, ok
}

// Set writes logical under the current identity. Overwrites
// unconditionally; last write wins.
func (s *Store) Set(ctx context.Context, logical, value string) {
	key := s.FullyQualifiedKey(ctx, logical)
	if err := s.medium.Set(ctx, key, value); err != nil {
		s.log.Warn("store write lost", zap.String("key", key), zap.Error(err))
	}
}

// Remove deletes logical under the current identity.
func (s *Store) Remove(ctx context.Context, logical string) {
	key := s.FullyQualifiedKey(ctx, logical)
	if err := s.medium.Delete(ctx, key); err != nil {
		s.log.Warn("store delete lost", zap.String("key", key), zap.Error(err))
	}
}

// =============================================================================
// TYPED ACCESSORS
// =============================================================================

// GetInt parses logical as a base-10 integer, falling back to def on
// absence or malformed content.
func (s *Store) GetInt(ctx context.Context, logical string, def int) int {
	raw, ok := s.Get(ctx, logical)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// SetInt stores an integer under logical.
func (s *Store) SetInt(ctx context.Context, logical string, value int) {
	s.Set(ctx, logical, strconv.Itoa(value))
}

// GetJSON decodes logical into T, falling back to def on absence or
// malformed content.
func GetJSON[T any](ctx context.Context, s *Store, logical string, def T) T {
	raw, ok := s.Get(ctx, logical)
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return def
	}
	return v
}

// SetJSON serializes value under logical. An unmarshalable value is a
// programming error and the write is dropped (logged).
func SetJSON(ctx context.Context, s *Store, logical string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("store json write dropped", zap.String("key", logical), zap.Error(err))
		return
	}
	s.Set(ctx, logical, string(raw))
}

// =============================================================================
// NAMESPACE PURGE - Destructive resets only
// =============================================================================

// PurgeNamespace removes every key under the given identity's prefix,
// defaulting to the current identity. Used for logout/testing flows.
func (s *Store) PurgeNamespace(ctx context.Context, ident ...Identity) {
	target := s.identity(ctx)
	if len(ident) > 0 {
		target = ident[0]
	}
	prefix := NamespacePrefix(target)
	keys, err := s.medium.Keys(ctx, prefix)
	if err != nil {
		s.log.Warn("namespace purge aborted", zap.String("prefix", prefix), zap.Error(err))
		return
	}
	for _, k := range keys {
		if err := s.medium.Delete(ctx, k); err != nil {
			s.log.Warn("namespace purge skipped key", zap.String("key", k), zap.Error(err))
		}
	}
}
