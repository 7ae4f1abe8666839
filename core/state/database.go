package state

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"

	"github.com/eth2030/shyftvm/core/types"
	"github.com/eth2030/shyftvm/crypto"
)

// Database is the persistent tree beneath the store's cache. The store
// reads through it on cache misses and writes to it only on Flush.
type Database interface {
	// ReadAccount returns nil when the account does not exist.
	ReadAccount(addr types.Address) (*types.Account, error)
	ReadStorage(addr types.Address, key types.StorageKey) ([]byte, error)
	ReadCode(codeHash types.Hash) ([]byte, error)

	WriteAccount(addr types.Address, account types.Account) error
	// DeleteAccount removes the account together with all its storage.
	DeleteAccount(addr types.Address) error
	// WriteStorage stores value under key; an empty value deletes it.
	WriteStorage(addr types.Address, key types.StorageKey, value []byte) error
	WriteCode(codeHash types.Hash, code []byte) error

	// TrieKey returns the storage trie key key is persisted under.
	TrieKey(key types.StorageKey) []byte
	// ForEachStorage calls fn for every persisted slot of addr until fn
	// returns false. Keys are trie keys.
	ForEachStorage(addr types.Address, fn func(key, value []byte) bool) error

	StorageRoot(addr types.Address) (types.Hash, error)
	StateRoot() (types.Hash, error)
}

// MemoryDatabase is an in-memory Database. Roots are computed on demand
// with a stack trie over the sorted trie keys.
type MemoryDatabase struct {
	mu       sync.RWMutex
	mapper   KeyMapper
	accounts map[types.Address]types.Account
	storage  map[types.Address]map[string][]byte
	code     map[types.Hash][]byte
}

// NewMemoryDatabase creates an empty database using the secure key mapping.
func NewMemoryDatabase() *MemoryDatabase {
	return NewMemoryDatabaseWithMapper(SecureKeyMapper{})
}

// NewMemoryDatabaseWithMapper creates an empty database that maps storage
// keys with m.
func NewMemoryDatabaseWithMapper(m KeyMapper) *MemoryDatabase {
	return &MemoryDatabase{
		mapper:   m,
		accounts: make(map[types.Address]types.Account),
		storage:  make(map[types.Address]map[string][]byte),
		code:     make(map[types.Hash][]byte),
	}
}

// ReadAccount implements Database.
func (db *MemoryDatabase) ReadAccount(addr types.Address) (*types.Account, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	acc, ok := db.accounts[addr]
	if !ok {
		return nil, nil
	}
	cpy := acc.Copy()
	cpy.Exists = true
	return &cpy, nil
}

// ReadStorage implements Database.
func (db *MemoryDatabase) ReadStorage(addr types.Address, key types.StorageKey) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v := db.storage[addr][string(db.mapper.TrieKey(key))]
	return bytes.Clone(v), nil
}

// ReadCode implements Database.
func (db *MemoryDatabase) ReadCode(codeHash types.Hash) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return bytes.Clone(db.code[codeHash]), nil
}

// WriteAccount implements Database.
func (db *MemoryDatabase) WriteAccount(addr types.Address, account types.Account) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.accounts[addr] = account.Copy()
	return nil
}

// DeleteAccount implements Database.
func (db *MemoryDatabase) DeleteAccount(addr types.Address) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.accounts, addr)
	delete(db.storage, addr)
	return nil
}

// WriteStorage implements Database.
func (db *MemoryDatabase) WriteStorage(addr types.Address, key types.StorageKey, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	k := string(db.mapper.TrieKey(key))
	slots := db.storage[addr]
	if len(value) == 0 {
		if slots != nil {
			delete(slots, k)
			if len(slots) == 0 {
				delete(db.storage, addr)
			}
		}
		return nil
	}
	if slots == nil {
		slots = make(map[string][]byte)
		db.storage[addr] = slots
	}
	slots[k] = bytes.Clone(value)
	return nil
}

// WriteCode implements Database.
func (db *MemoryDatabase) WriteCode(codeHash types.Hash, code []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.code[codeHash] = bytes.Clone(code)
	return nil
}

// TrieKey implements Database.
func (db *MemoryDatabase) TrieKey(key types.StorageKey) []byte {
	return db.mapper.TrieKey(key)
}

// ForEachStorage implements Database. Slots are visited in no particular
// order.
func (db *MemoryDatabase) ForEachStorage(addr types.Address, fn func(key, value []byte) bool) error {
	db.mu.RLock()
	slots := make(map[string][]byte, len(db.storage[addr]))
	for k, v := range db.storage[addr] {
		slots[k] = bytes.Clone(v)
	}
	db.mu.RUnlock()
	for k, v := range slots {
		if !fn([]byte(k), v) {
			break
		}
	}
	return nil
}

// StorageRoot implements Database. Values are RLP encoded byte strings.
func (db *MemoryDatabase) StorageRoot(addr types.Address) (types.Hash, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	slots := db.storage[addr]
	if len(slots) == 0 {
		return types.EmptyRootHash, nil
	}
	keys := make([]string, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	st := trie.NewStackTrie(nil)
	for _, k := range keys {
		enc, err := rlp.EncodeToBytes(slots[k])
		if err != nil {
			return types.Hash{}, err
		}
		if err := st.Update([]byte(k), enc); err != nil {
			return types.Hash{}, err
		}
	}
	return types.Hash(st.Hash()), nil
}

// StateRoot implements Database. The state trie is keyed by the hash of
// the address and holds RLP(nonce, balance, root, codeHash).
func (db *MemoryDatabase) StateRoot() (types.Hash, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if len(db.accounts) == 0 {
		return types.EmptyRootHash, nil
	}
	type entry struct {
		key []byte
		val []byte
	}
	entries := make([]entry, 0, len(db.accounts))
	for addr, acc := range db.accounts {
		enc, err := rlp.EncodeToBytes(&acc)
		if err != nil {
			return types.Hash{}, err
		}
		entries = append(entries, entry{key: crypto.Keccak256(addr[:]), val: enc})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	st := trie.NewStackTrie(nil)
	for _, e := range entries {
		if err := st.Update(e.key, e.val); err != nil {
			return types.Hash{}, err
		}
	}
	return types.Hash(st.Hash()), nil
}
