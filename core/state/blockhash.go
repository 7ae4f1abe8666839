package state

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/eth2030/shyftvm/core/types"
)

// blockHashWindow is how far back BLOCKHASH can see.
const blockHashWindow = 256

const blockHashCacheSize = blockHashWindow + 1

// BlockHashSource resolves canonical block hashes by number.
type BlockHashSource interface {
	HashByNumber(number uint64) (types.Hash, error)
}

// BlockHashFunc adapts a function to BlockHashSource.
type BlockHashFunc func(number uint64) (types.Hash, error)

// HashByNumber implements BlockHashSource.
func (f BlockHashFunc) HashByNumber(number uint64) (types.Hash, error) { return f(number) }

// BlockHashMap is a fixed table of block hashes. Unknown numbers resolve to
// the zero hash.
type BlockHashMap map[uint64]types.Hash

// HashByNumber implements BlockHashSource.
func (m BlockHashMap) HashByNumber(number uint64) (types.Hash, error) { return m[number], nil }

type blockHashCache struct {
	src   BlockHashSource
	cache *lru.Cache[uint64, types.Hash]
}

// SetBlockHashSource installs the block-index collaborator. Without one
// every lookup yields the zero hash.
func (s *Store) SetBlockHashSource(src BlockHashSource) {
	if src == nil {
		s.hashes = nil
		return
	}
	cache, err := lru.New[uint64, types.Hash](blockHashCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	s.hashes = &blockHashCache{src: src, cache: cache}
}

// GetBlockHash returns the hash of block number as seen from block current.
// Numbers that are not in the past or lie more than 256 blocks back yield
// the zero hash without consulting the source.
func (s *Store) GetBlockHash(current, number uint64) (types.Hash, error) {
	if number >= current || current-number > blockHashWindow || s.hashes == nil {
		return types.Hash{}, nil
	}
	if h, ok := s.hashes.cache.Get(number); ok {
		blockHashHits.Inc()
		return h, nil
	}
	blockHashMisses.Inc()
	h, err := s.hashes.src.HashByNumber(number)
	if err != nil {
		return types.Hash{}, ioError("block hash", err)
	}
	s.hashes.cache.Add(number, h)
	return h, nil
}
