package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eth2030/shyftvm/core/types"
)

func TestGetBlockHashWindow(t *testing.T) {
	s := newTestStore()
	calls := 0
	s.SetBlockHashSource(BlockHashFunc(func(n uint64) (types.Hash, error) {
		calls++
		return types.Hash{31: byte(n)}, nil
	}))

	const current = 1000
	tests := []struct {
		number uint64
		want   types.Hash
	}{
		{current, types.Hash{}},
		{current + 1, types.Hash{}},
		{current - 1, types.Hash{31: byte((current - 1) & 0xff)}},
		{current - 256, types.Hash{31: byte((current - 256) & 0xff)}},
		{current - 257, types.Hash{}},
		{0, types.Hash{}},
	}
	for _, tt := range tests {
		h, err := s.GetBlockHash(current, tt.number)
		require.NoError(t, err)
		require.Equal(t, tt.want, h, "number %d", tt.number)
	}
	require.Equal(t, 2, calls)

	// Second lookup is served from the cache.
	_, err := s.GetBlockHash(current, current-1)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestGetBlockHashNoSource(t *testing.T) {
	s := newTestStore()
	h, err := s.GetBlockHash(10, 9)
	require.NoError(t, err)
	require.True(t, h.IsZero())
}

func TestGetBlockHashSourceError(t *testing.T) {
	s := newTestStore()
	boom := errors.New("index unavailable")
	s.SetBlockHashSource(BlockHashFunc(func(uint64) (types.Hash, error) { return types.Hash{}, boom }))

	_, err := s.GetBlockHash(10, 9)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.ErrorIs(t, err, boom)
}

func TestBlockHashMap(t *testing.T) {
	s := newTestStore()
	s.SetBlockHashSource(BlockHashMap{5: {1}})
	h, err := s.GetBlockHash(6, 5)
	require.NoError(t, err)
	require.Equal(t, types.Hash{1}, h)
}
