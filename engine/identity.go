/*
identity.go - Identity derivation and the identity marker key

PURPOSE:
  Every stored key is namespaced by an identity string derived from the
  authenticated principal. The principal itself lives under a single
  non-namespaced marker key that every context reads, both to resolve
  its own namespace and to detect identity switches happening in other
  contexts.

DERIVATION:
  lowercase(email) if present, else lowercase(username), else the
  reserved sentinel "anonymous". The identity is never empty and is a
  pure function of the marker's content.

SEE ALSO:
  - keys.go: Key composition using the identity
  - migrate.go: Relocation across identity boundaries
*/
package engine

import (
	"context"
	"encoding/json"
	"strings"
)

// =============================================================================
// IDENTITY
// =============================================================================

// Identity is the string distinguishing one user's data namespace from
// another's.
type Identity string

// Anonymous is the reserved identity for unauthenticated sessions.
const Anonymous Identity = "anonymous"

// IdentityMarkerKey is the single non-namespaced key holding the
// current principal as JSON. It is deliberately outside every identity
// namespace: a change to it is how other contexts learn about an
// identity switch.
const IdentityMarkerKey = "user"

// StoredUser is the principal persisted under IdentityMarkerKey.
type StoredUser struct {
	ID       int    `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Identity derives the namespace identity for this principal.
// Prefers email, falls back to username, defaults to Anonymous.
func (u StoredUser) Identity() Identity {
	switch {
	case u.Email != "":
		return Identity(strings.ToLower(u.Email))
	case u.Username != "":
		return Identity(strings.ToLower(u.Username))
	default:
		return Anonymous
	}
}

// =============================================================================
// MARKER ACCESS
// =============================================================================

// CurrentUser reads the identity marker. ok=false when no principal is
// stored or the marker is malformed (both mean an anonymous session).
func CurrentUser(ctx context.Context, m Medium) (StoredUser, bool) {
	raw, ok, err := m.Get(ctx, IdentityMarkerKey)
	if err != nil || !ok {
		return StoredUser{}, false
	}
	var u StoredUser
	if json.Unmarshal([]byte(raw), &u) != nil {
		return StoredUser{}, false
	}
	return u, true
}

// CurrentIdentity resolves the identity for the current session.
func CurrentIdentity(ctx context.Context, m Medium) Identity {
	u, ok := CurrentUser(ctx, m)
	if !ok {
		return Anonymous
	}
	return u.Identity()
}

// SetCurrentUser persists the principal under the marker key.
// Used on login, registration, and session restore.
func SetCurrentUser(ctx context.Context, m Medium, u StoredUser) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return m.Set(ctx, IdentityMarkerKey, string(raw))
}

// ClearCurrentUser removes the marker, returning the session to
// Anonymous. Used on logout.
func ClearCurrentUser(ctx context.Context, m Medium) error {
	return m.Delete(ctx, IdentityMarkerKey)
}
