// Package metrics holds the execution counters of shyftvm: opcode and
// gas accounting of the interpreter, checkpoint activity of the state
// store and message outcomes of the driver.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Counter is a monotonically increasing count of events or gas.
type Counter struct {
	value atomic.Uint64
}

// Inc adds one.
func (c *Counter) Inc() { c.value.Add(1) }

// Add adds n.
func (c *Counter) Add(n uint64) { c.value.Add(n) }

// Value returns the current count.
func (c *Counter) Value() uint64 { return c.value.Load() }

// Gauge holds the latest value of a level, such as open checkpoints.
type Gauge struct {
	value atomic.Int64
}

// Set records v.
func (g *Gauge) Set(v int64) { g.value.Store(v) }

// Value returns the last recorded value.
func (g *Gauge) Value() int64 { return g.value.Load() }

// CounterSet is a family of counters under one name, one per member, e.g.
// gas spent per opcode class.
type CounterSet struct {
	mu      sync.RWMutex
	members map[string]*Counter
}

func newCounterSet() *CounterSet {
	return &CounterSet{members: make(map[string]*Counter)}
}

// With returns the counter of member, creating it on first use. Hot paths
// should resolve their counters once and keep them.
func (s *CounterSet) With(member string) *Counter {
	s.mu.RLock()
	c, ok := s.members[member]
	s.mu.RUnlock()
	if ok {
		return c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.members[member]; !ok {
		c = new(Counter)
		s.members[member] = c
	}
	return c
}

// snapshot returns the members and their values in member order.
func (s *CounterSet) snapshot() ([]string, []uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.members))
	for name := range s.members {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make([]uint64, len(names))
	for i, name := range names {
		values[i] = s.members[name].Value()
	}
	return names, values
}
