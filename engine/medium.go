/*
medium.go - Persistence interface for the underlying key-value medium

PURPOSE:
  Defines the contract between the engine and whatever actually holds
  the bytes. The Medium offers no transactions and no schema: just
  string keys to string values, plus an optional best-effort change
  feed for writes made by other contexts.

IMPLEMENTATIONS:
  - engine/medium: in-memory, multi-context, with change fan-out (tests)
  - store/sqlite:  durable single-context SQLite store (no change feed)
  - store/fskv:    file-per-key directory with an fsnotify change feed

CHANGE FEED CONTRACT:
  A Watchable medium delivers a Change to every subscriber in OTHER
  contexts after a write becomes durable. The writing context is never
  notified of its own writes. Delivery is asynchronous and best-effort:
  notifications may be delayed, coalesced, or dropped. Consumers must
  re-read through the Store rather than trust the carried value, and
  should treat a focus-regain as a catch-up signal.

SEE ALSO:
  - store.go: Typed, namespaced access on top of Medium
  - sync.go: Change feed consumer
*/
package engine

import "context"

// =============================================================================
// MEDIUM - Raw key-value persistence
// =============================================================================

// Medium is the underlying persistent key-value medium. Writes are
// synchronous and durable; reads of missing keys return ok=false, not
// an error. Errors are reserved for I/O failures of the medium itself.
type Medium interface {
	// Get returns the value for key, with ok=false when absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set writes key unconditionally. Last write wins.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every stored key beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// =============================================================================
// CHANGE FEED - Best-effort external-change notifications
// =============================================================================

// Change describes a write observed from another context.
// Present is false when the key was deleted.
type Change struct {
	Key     string
	Value   string
	Present bool
}

// Watchable is implemented by media that can report writes made by
// other contexts. Subscribe registers fn and returns a cancel func.
// fn may be invoked from an internal goroutine; it must not block.
type Watchable interface {
	Subscribe(fn func(Change)) (cancel func(), err error)
}
