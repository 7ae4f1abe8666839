package metrics

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounterConcurrent(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()
	c.Add(21000)
	require.EqualValues(t, 29000, c.Value())
}

func TestGauge(t *testing.T) {
	var g Gauge
	g.Set(3)
	g.Set(1)
	require.EqualValues(t, 1, g.Value())
}

func TestCounterSetMembers(t *testing.T) {
	s := newCounterSet()
	require.Same(t, s.With("arith"), s.With("arith"))
	s.With("arith").Add(3)
	s.With("attest").Add(6)

	names, values := s.snapshot()
	require.Equal(t, []string{"arith", "attest"}, names)
	require.Equal(t, []uint64{3, 6}, values)
}

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry()
	require.Same(t, r.Counter("a"), r.Counter("a"))
	require.Same(t, r.Gauge("b"), r.Gauge("b"))
	require.Same(t, r.CounterSet("c"), r.CounterSet("c"))
}

func TestRegistryWriteText(t *testing.T) {
	r := NewRegistry()
	r.Counter("vm.ops").Add(7)
	r.Gauge("state.checkpoint_depth").Set(2)
	gas := r.CounterSet("vm.gas")
	gas.With("stack").Add(9)
	gas.With("attest").Add(6)

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{
		"state.checkpoint_depth 2",
		"vm.gas.attest 6",
		"vm.gas.stack 9",
		"vm.ops 7",
	}, lines)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestRegistryWriteTextError(t *testing.T) {
	r := NewRegistry()
	r.Counter("vm.ops").Inc()
	require.Error(t, r.WriteText(failingWriter{}))
}
