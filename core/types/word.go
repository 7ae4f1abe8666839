package types

import "github.com/holiman/uint256"

// WordLength is the byte width of a machine word.
const WordLength = 32

// BytesToWord interprets b as a big-endian unsigned integer. Missing high
// bytes are zero; input longer than a word keeps its low 32 bytes.
func BytesToWord(b []byte) *uint256.Int {
	if len(b) > WordLength {
		b = b[len(b)-WordLength:]
	}
	return new(uint256.Int).SetBytes(b)
}

// WordToBytes returns the canonical 32-byte big-endian encoding of w.
func WordToBytes(w *uint256.Int) []byte {
	b := w.Bytes32()
	return b[:]
}

// TrimLeftZeroes strips leading zero bytes. The zero word encodes as an
// empty slice.
func TrimLeftZeroes(b []byte) []byte {
	for i, v := range b {
		if v != 0 {
			return b[i:]
		}
	}
	return b[len(b):]
}

// WordToAddress returns the low 20 bytes of w as an address.
func WordToAddress(w *uint256.Int) Address {
	return Address(w.Bytes20())
}

// Word returns the address zero-extended to a machine word.
func (a Address) Word() *uint256.Int {
	return new(uint256.Int).SetBytes(a[:])
}

// Word returns the hash as a machine word.
func (h Hash) Word() *uint256.Int {
	return new(uint256.Int).SetBytes(h[:])
}

// WordToHash returns the 32-byte big-endian form of w as a Hash.
func WordToHash(w *uint256.Int) Hash {
	return Hash(w.Bytes32())
}
