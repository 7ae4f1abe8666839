package state

import (
	"fmt"

	"github.com/eth2030/shyftvm/core/types"
	"github.com/eth2030/shyftvm/crypto"
)

// KeyMapper turns a storage key into the key used in the account's
// storage trie. Every mapped key is 32 bytes long.
type KeyMapper interface {
	TrieKey(key types.StorageKey) []byte
}

// identityDomain separates hashed identity keys from hashed contract keys.
var identityDomain = []byte("sidentity")

// SecureKeyMapper hashes every slot. Identity slots are hashed under a
// separate domain so the partitions cannot collide.
type SecureKeyMapper struct{}

// TrieKey implements KeyMapper.
func (SecureKeyMapper) TrieKey(key types.StorageKey) []byte {
	if key.Space == types.IdentitySpace {
		return crypto.Keccak256(identityDomain, key.Slot[:])
	}
	return crypto.Keccak256(key.Slot[:])
}

// recastNamespaces assigns each recast namespace the tag byte that
// replaces its name at the front of a trie key.
var recastNamespaces = map[string]byte{
	"sidentity":  0x01,
	"regunormal": 0x02,
}

// RecastKeyMapper stores identity slots under direct, traceable keys: the
// namespace tag followed by the low 31 bytes of the slot. Slots whose high
// byte is set do not fit and fall back to the secure mapping, as do all
// contract slots.
type RecastKeyMapper struct {
	tag byte
}

// NewRecastKeyMapper returns a mapper for the named namespace.
func NewRecastKeyMapper(namespace string) (*RecastKeyMapper, error) {
	tag, ok := recastNamespaces[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}
	return &RecastKeyMapper{tag: tag}, nil
}

// TrieKey implements KeyMapper.
func (m *RecastKeyMapper) TrieKey(key types.StorageKey) []byte {
	if key.Space != types.IdentitySpace || key.Slot[0] != 0 {
		return SecureKeyMapper{}.TrieKey(key)
	}
	out := make([]byte, types.HashLength)
	out[0] = m.tag
	copy(out[1:], key.Slot[1:])
	return out
}
