package state

import (
	"bytes"

	"github.com/google/btree"

	"github.com/eth2030/shyftvm/core/types"
)

// StorageEntry is one slot of a storage dump, keyed by its trie key.
type StorageEntry struct {
	Key   []byte
	Value []byte
}

func storageEntryLess(a, b StorageEntry) bool {
	return bytes.Compare(a.Key, b.Key) < 0
}

// DumpStorage returns every slot of addr, both partitions, as the trie
// would hold it after a flush: persisted slots overlaid with the live
// checkpoint layers, ordered by trie key. Deleted accounts dump empty.
func (s *Store) DumpStorage(addr types.Address) ([]StorageEntry, error) {
	// Find the innermost wipe; nothing below it is visible.
	start, wiped := 0, false
	for i := len(s.layers) - 1; i >= 0; i-- {
		if _, ok := s.layers[i].wiped[addr]; ok {
			start, wiped = i, true
			break
		}
	}

	tree := btree.NewG[StorageEntry](16, storageEntryLess)
	if !wiped {
		err := s.db.ForEachStorage(addr, func(key, value []byte) bool {
			tree.ReplaceOrInsert(StorageEntry{Key: key, Value: value})
			return true
		})
		if err != nil {
			return nil, ioError("dump storage", err)
		}
	}
	for _, l := range s.layers[start:] {
		for key, value := range l.storage[addr] {
			entry := StorageEntry{Key: s.db.TrieKey(key)}
			if len(value) == 0 {
				tree.Delete(entry)
				continue
			}
			entry.Value = bytes.Clone(value)
			tree.ReplaceOrInsert(entry)
		}
	}

	out := make([]StorageEntry, 0, tree.Len())
	tree.Ascend(func(e StorageEntry) bool {
		out = append(out, e)
		return true
	})
	return out, nil
}
