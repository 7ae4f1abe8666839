package metrics

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
)

// Registry names the counters, gauges and counter sets of a process.
// Lookups create missing metrics, so callers never need to check for nil.
type Registry struct {
	mu       sync.Mutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	sets     map[string]*CounterSet
}

// DefaultRegistry is the registry the vm, state and core packages report
// to; the CLI dumps it with --metrics.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*Counter),
		gauges:   make(map[string]*Gauge),
		sets:     make(map[string]*CounterSet),
	}
}

// Counter returns the counter registered under name.
func (r *Registry) Counter(name string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[name]
	if !ok {
		c = new(Counter)
		r.counters[name] = c
	}
	return c
}

// Gauge returns the gauge registered under name.
func (r *Registry) Gauge(name string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gauges[name]
	if !ok {
		g = new(Gauge)
		r.gauges[name] = g
	}
	return g
}

// CounterSet returns the counter set registered under name. Its members
// are reported as name.member.
func (r *Registry) CounterSet(name string) *CounterSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sets[name]
	if !ok {
		s = newCounterSet()
		r.sets[name] = s
	}
	return s
}

// WriteText writes every metric as a "name value" line, sorted by name.
func (r *Registry) WriteText(w io.Writer) error {
	r.mu.Lock()
	lines := make(map[string]string, len(r.counters)+len(r.gauges))
	for name, c := range r.counters {
		lines[name] = strconv.FormatUint(c.Value(), 10)
	}
	for name, g := range r.gauges {
		lines[name] = strconv.FormatInt(g.Value(), 10)
	}
	for name, s := range r.sets {
		members, values := s.snapshot()
		for i, m := range members {
			lines[name+"."+m] = strconv.FormatUint(values[i], 10)
		}
	}
	r.mu.Unlock()

	names := make([]string, 0, len(lines))
	for name := range lines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s %s\n", name, lines[name]); err != nil {
			return err
		}
	}
	return nil
}
