/*
Package sqlite provides a SQLite-backed Medium.

PURPOSE:
  Durable single-context persistence for the gamification state layer.
  One table, one row per fully qualified key. The medium itself offers
  no transactions to callers and no change feed - SQLite cannot tell
  one process about another's writes - so a synchronizer running on
  this medium relies entirely on the focus-regain fallback.

WAL MODE:
  Opened with WAL for better crash recovery and so readers don't block
  the single writer.

USAGE:
  m, err := sqlite.New("./data/finesse.db")
  if err != nil { ... }
  defer m.Close()
  store := engine.NewStore(m)

SEE ALSO:
  - engine/medium.go: The Medium contract
  - store/fskv: The watchable alternative
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/finesse/gamify-engine/engine"
)

// Medium implements engine.Medium on a SQLite database.
type Medium struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ engine.Medium = (*Medium)(nil)

// New opens (and if needed creates) the database at path.
// Use ":memory:" for an in-memory database.
func New(path string) (*Medium, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	m := &Medium{db: db}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return m, nil
}

// Close closes the database connection.
func (m *Medium) Close() error { return m.db.Close() }

func (m *Medium) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	);`
	_, err := m.db.Exec(schema)
	return err
}

// =============================================================================
// MEDIUM IMPLEMENTATION
// =============================================================================

func (m *Medium) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var v string
	err := m.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (m *Medium) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO kv (k, v, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at = excluded.updated_at`,
		key, value)
	return err
}

func (m *Medium) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.db.ExecContext(ctx, `DELETE FROM kv WHERE k = ?`, key)
	return err
}

func (m *Medium) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, err := m.db.QueryContext(ctx,
		`SELECT k FROM kv WHERE k LIKE ? ESCAPE '\' ORDER BY k`,
		escapeLike(prefix)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// escapeLike escapes LIKE metacharacters in a literal prefix.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
