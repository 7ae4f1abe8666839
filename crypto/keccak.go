// Package crypto provides the chain-native digest and the address
// derivations built on it.
package crypto

import (
	"hash"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"

	"github.com/eth2030/shyftvm/core/types"
)

// keccakState is the sponge returned by sha3.NewLegacyKeccak256. Read
// squeezes the digest without the allocation Sum makes.
type keccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

var hasherPool = sync.Pool{
	New: func() any { return sha3.NewLegacyKeccak256().(keccakState) },
}

func digest(out []byte, data [][]byte) {
	d := hasherPool.Get().(keccakState)
	d.Reset()
	for _, b := range data {
		d.Write(b)
	}
	d.Read(out)
	hasherPool.Put(d)
}

// Keccak256 returns the Keccak-256 digest of the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	out := make([]byte, types.HashLength)
	digest(out, data)
	return out
}

// Keccak256Hash is Keccak256 returned as a types.Hash.
func Keccak256Hash(data ...[]byte) (h types.Hash) {
	digest(h[:], data)
	return h
}

// CreateAddress returns the address of a contract created by sender with
// the given nonce: keccak(rlp([sender, nonce]))[12:].
func CreateAddress(sender types.Address, nonce uint64) types.Address {
	data, _ := rlp.EncodeToBytes([]interface{}{sender, nonce})
	return types.BytesToAddress(Keccak256(data)[12:])
}

// CreateAddress2 returns the address of a CREATE2 contract:
// keccak(0xff ++ sender ++ salt ++ keccak(initCode))[12:].
func CreateAddress2(sender types.Address, salt types.Hash, initCodeHash []byte) types.Address {
	return types.BytesToAddress(Keccak256([]byte{0xff}, sender.Bytes(), salt.Bytes(), initCodeHash)[12:])
}
