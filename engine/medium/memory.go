/*
Package medium provides the in-memory Medium implementation.

PURPOSE:
  A shared in-memory key-value medium with per-context connections and
  change fan-out. This is the test double for the browser-storage-like
  contract: writes from one connection become visible to the others
  through an asynchronous, best-effort notification that is never
  delivered to the writing connection itself.

USAGE:
  mem := medium.NewMemory()
  tab1 := mem.Connect()
  tab2 := mem.Connect()
  // a Set through tab1 notifies tab2's subscribers, not tab1's

SEE ALSO:
  - engine/medium.go: The Medium and Watchable contracts
  - store/sqlite, store/fskv: Durable implementations
*/
package medium

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/finesse/gamify-engine/engine"
)

// =============================================================================
// MEMORY - Shared storage across connections
// =============================================================================

// Memory is the shared medium. Each execution context obtains its own
// *Conn via Connect.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]string
	conns map[*Conn]struct{}

	qmu   sync.Mutex
	qcond *sync.Cond
	queue []delivery
}

// delivery is one queued change notification.
type delivery struct {
	targets []*Conn
	change  engine.Change
}

// NewMemory creates an empty shared medium and starts its dispatcher.
func NewMemory() *Memory {
	m := &Memory{
		data:  make(map[string]string),
		conns: make(map[*Conn]struct{}),
	}
	m.qcond = sync.NewCond(&m.qmu)
	go m.dispatch()
	return m
}

// Connect opens a new context handle.
func (m *Memory) Connect() *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &Conn{mem: m}
	m.conns[c] = struct{}{}
	return c
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// fanOut queues a change for every connection except origin.
// Asynchronous: the writer returns before other contexts observe it.
// A single dispatcher drains the queue, so changes arrive in write
// order.
func (m *Memory) fanOut(origin *Conn, c engine.Change) {
	m.mu.RLock()
	targets := make([]*Conn, 0, len(m.conns))
	for conn := range m.conns {
		if conn != origin {
			targets = append(targets, conn)
		}
	}
	m.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	m.qmu.Lock()
	m.queue = append(m.queue, delivery{targets: targets, change: c})
	m.qmu.Unlock()
	m.qcond.Signal()
}

func (m *Memory) dispatch() {
	for {
		m.qmu.Lock()
		for len(m.queue) == 0 {
			m.qcond.Wait()
		}
		d := m.queue[0]
		m.queue = m.queue[1:]
		m.qmu.Unlock()

		for _, conn := range d.targets {
			conn.deliver(d.change)
		}
	}
}

// =============================================================================
// CONN - One execution context's handle
// =============================================================================

// Conn implements engine.Medium and engine.Watchable for a single
// execution context.
type Conn struct {
	mem *Memory

	subMu sync.Mutex
	subs  map[int]func(engine.Change)
	next  int
}

var _ engine.Medium = (*Conn)(nil)
var _ engine.Watchable = (*Conn)(nil)

func (c *Conn) Get(_ context.Context, key string) (string, bool, error) {
	c.mem.mu.RLock()
	defer c.mem.mu.RUnlock()
	v, ok := c.mem.data[key]
	return v, ok, nil
}

func (c *Conn) Set(_ context.Context, key, value string) error {
	c.mem.mu.Lock()
	c.mem.data[key] = value
	c.mem.mu.Unlock()
	c.mem.fanOut(c, engine.Change{Key: key, Value: value, Present: true})
	return nil
}

func (c *Conn) Delete(_ context.Context, key string) error {
	c.mem.mu.Lock()
	_, existed := c.mem.data[key]
	delete(c.mem.data, key)
	c.mem.mu.Unlock()
	if existed {
		c.mem.fanOut(c, engine.Change{Key: key, Present: false})
	}
	return nil
}

func (c *Conn) Keys(_ context.Context, prefix string) ([]string, error) {
	c.mem.mu.RLock()
	defer c.mem.mu.RUnlock()
	var keys []string
	for k := range c.mem.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Subscribe registers fn for changes written through OTHER connections.
func (c *Conn) Subscribe(fn func(engine.Change)) (func(), error) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.subs == nil {
		c.subs = make(map[int]func(engine.Change))
	}
	id := c.next
	c.next++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}, nil
}

// Close detaches the connection from the shared medium.
func (c *Conn) Close() {
	c.mem.mu.Lock()
	defer c.mem.mu.Unlock()
	delete(c.mem.conns, c)
}

func (c *Conn) deliver(change engine.Change) {
	c.subMu.Lock()
	fns := make([]func(engine.Change), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
}
