/*
Package fskv provides a directory-backed Medium with a change feed.

PURPOSE:
  One file per fully qualified key under a data directory, watched with
  fsnotify. When another process sharing the directory writes a key,
  this process's subscribers receive an engine.Change - the Go-native
  analogue of the browser storage event. Like that event, delivery is
  asynchronous and best-effort; writes made through THIS medium are
  suppressed so the writer never hears its own echo.

SELF-WRITE SUPPRESSION:
  The watcher cannot tell who wrote a file, so the medium remembers the
  last value it wrote per key and drops watcher events whose on-disk
  content matches. An external write of the identical value is thereby
  missed, which is harmless: re-reading would republish the same value.

FILENAME ENCODING:
  Keys are query-escaped plus a ".kv" suffix, keeping ':' and other
  separator characters out of filenames.

SEE ALSO:
  - engine/medium.go: Medium and Watchable contracts
  - store/sqlite: The non-watchable alternative
*/
package fskv

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/finesse/gamify-engine/engine"
)

const fileSuffix = ".kv"

// Medium implements engine.Medium and engine.Watchable on a directory.
type Medium struct {
	dir     string
	watcher *fsnotify.Watcher
	log     *zap.Logger

	mu         sync.Mutex
	selfValues map[string]string // filename -> last value written by us
	selfGone   map[string]int    // filename -> pending self-delete events
	subs       map[int]func(engine.Change)
	nextSub    int

	done chan struct{}
}

var _ engine.Medium = (*Medium)(nil)
var _ engine.Watchable = (*Medium)(nil)

// New opens the directory (creating it if needed) and starts the
// watcher pump.
func New(dir string, log *zap.Logger) (*Medium, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	m := &Medium{
		dir:        dir,
		watcher:    watcher,
		log:        log,
		selfValues: make(map[string]string),
		selfGone:   make(map[string]int),
		subs:       make(map[int]func(engine.Change)),
		done:       make(chan struct{}),
	}
	go m.pump()
	return m, nil
}

// Close stops the watcher pump.
func (m *Medium) Close() error {
	err := m.watcher.Close()
	<-m.done
	return err
}

// =============================================================================
// MEDIUM IMPLEMENTATION
// =============================================================================

func (m *Medium) Get(_ context.Context, key string) (string, bool, error) {
	raw, err := os.ReadFile(m.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(raw), true, nil
}

func (m *Medium) Set(_ context.Context, key, value string) error {
	name := encode(key)
	m.mu.Lock()
	m.selfValues[name] = value
	m.mu.Unlock()

	return os.WriteFile(filepath.Join(m.dir, name), []byte(value), 0o644)
}

func (m *Medium) Delete(_ context.Context, key string) error {
	name := encode(key)
	m.mu.Lock()
	delete(m.selfValues, name)
	m.selfGone[name]++
	m.mu.Unlock()

	err := os.Remove(filepath.Join(m.dir, name))
	if os.IsNotExist(err) {
		// Nothing was removed, so no event will arrive to consume the marker.
		m.mu.Lock()
		if m.selfGone[name]--; m.selfGone[name] <= 0 {
			delete(m.selfGone, name)
		}
		m.mu.Unlock()
		return nil
	}
	return err
}

func (m *Medium) Keys(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		key, ok := decode(e.Name())
		if ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Subscribe registers fn for changes written by other processes.
func (m *Medium) Subscribe(fn func(engine.Change)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}, nil
}

// =============================================================================
// WATCHER PUMP
// =============================================================================

func (m *Medium) pump() {
	defer close(m.done)
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleEvent(ev)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.Warn("fskv watcher error", zap.Error(err))
		}
	}
}

func (m *Medium) handleEvent(ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	if !strings.HasSuffix(name, fileSuffix) {
		return
	}
	key, ok := decode(name)
	if !ok {
		return
	}

	if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
		m.mu.Lock()
		if m.selfGone[name] > 0 {
			if m.selfGone[name]--; m.selfGone[name] <= 0 {
				delete(m.selfGone, name)
			}
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		m.notify(engine.Change{Key: key, Present: false})
		return
	}

	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
		return
	}

	raw, err := os.ReadFile(ev.Name)
	if err != nil {
		// File may already be gone again; the remove event will follow.
		return
	}
	value := string(raw)

	m.mu.Lock()
	if last, ours := m.selfValues[name]; ours && last == value {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.notify(engine.Change{Key: key, Value: value, Present: true})
}

func (m *Medium) notify(c engine.Change) {
	m.mu.Lock()
	fns := make([]func(engine.Change), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// =============================================================================
// FILENAME ENCODING
// =============================================================================

func (m *Medium) path(key string) string {
	return filepath.Join(m.dir, encode(key))
}

func encode(key string) string {
	return url.QueryEscape(key) + fileSuffix
}

func decode(name string) (string, bool) {
	key, err := url.QueryUnescape(strings.TrimSuffix(name, fileSuffix))
	if err != nil {
		return "", false
	}
	return key, true
}
