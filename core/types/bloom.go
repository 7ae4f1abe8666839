package types

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Bloom represents a 2048-bit bloom filter over log addresses and topics.
type Bloom [BloomLength]byte

// bloom9 returns the three bit positions for data: the first six bytes of
// keccak256(data) taken as three big-endian uint16 values mod 2048.
func bloom9(data []byte) [3]uint {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	h := d.Sum(nil)
	var bits [3]uint
	for i := 0; i < 3; i++ {
		bits[i] = uint(binary.BigEndian.Uint16(h[2*i:])) & 0x7FF
	}
	return bits
}

// Add sets the bits derived from data.
func (b *Bloom) Add(data []byte) {
	for _, bit := range bloom9(data) {
		b[BloomLength-1-bit/8] |= 1 << (bit % 8)
	}
}

// Test reports whether all bits derived from data are set.
func (b Bloom) Test(data []byte) bool {
	for _, bit := range bloom9(data) {
		if b[BloomLength-1-bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

// LogsBloom computes the bloom filter for a set of logs.
func LogsBloom(logs []*Log) Bloom {
	var bloom Bloom
	for _, log := range logs {
		bloom.Add(log.Address.Bytes())
		for _, topic := range log.Topics {
			bloom.Add(topic.Bytes())
		}
	}
	return bloom
}
