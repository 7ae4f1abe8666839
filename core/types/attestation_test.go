package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSubject = HexToAddress("0x3000000000000000000000000000000000000003")
	testAnchor  = HexToAddress("0xa100000000000000000000000000000000000001")
	testSucc    = HexToAddress("0x5000000000000000000000000000000000000005")
)

func nonces(s AttestationSet) []uint64 {
	out := []uint64{}
	for _, a := range s {
		out = append(out, a.Nonce)
	}
	return out
}

func TestAttestationSetUpsertKeepsOrder(t *testing.T) {
	var s AttestationSet
	for _, n := range []uint64{5, 1, 3} {
		s = s.Upsert(&Attestation{Subject: testSubject, Nonce: n})
	}
	assert.Equal(t, []uint64{1, 3, 5}, nonces(s))

	replaced := s.Upsert(&Attestation{Subject: testSubject, Nonce: 3, Jurisdiction: "US"})
	assert.Equal(t, []uint64{1, 3, 5}, nonces(replaced))
	assert.Equal(t, "US", replaced.Find(3).Jurisdiction)
	assert.Empty(t, s.Find(3).Jurisdiction, "upsert must not modify the original set")

	assert.Equal(t, []uint64{1, 5}, nonces(s.Remove(3)))
	assert.Nil(t, s.Find(4))
}

func TestAttestationInEffect(t *testing.T) {
	a := &Attestation{Effective: 100, Expiry: 200}
	assert.False(t, a.InEffect(99))
	assert.True(t, a.InEffect(100))
	assert.True(t, a.InEffect(200))
	assert.False(t, a.InEffect(201))

	forever := &Attestation{}
	assert.True(t, forever.InEffect(1<<62))
}

func TestAttestationValidity(t *testing.T) {
	s := AttestationSet{
		{Subject: testSubject, TrustAnchor: testAnchor, Nonce: 1},
		{Subject: testSubject, TrustAnchor: testAnchor, Nonce: 2, Expiry: 50},
		{Subject: testSubject, TrustAnchor: testAnchor, Nonce: 3},
		{Subject: testSubject, TrustAnchor: testAnchor, Nonce: 4, Revokes: []uint64{3}, Replacement: ReservedAddress},
		{Subject: testSubject, TrustAnchor: testAnchor, Nonce: 5, Revokes: []uint64{3}, Replacement: testSucc, Effective: 80},
	}

	tests := []struct {
		name  string
		now   uint64
		nonce uint64
		want  *uint256.Int
	}{
		{"valid", 100, 1, new(uint256.Int)},
		{"expired", 100, 2, ReservedAddress.Word()},
		{"not yet expired", 50, 2, new(uint256.Int)},
		{"replacement wins", 100, 3, testSucc.Word()},
		{"replacement not yet effective", 70, 3, ReservedAddress.Word()},
		{"missing", 100, 9, AttestationMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.CheckValid(tt.nonce, tt.now))
		})
	}

	assert.Equal(t, []uint64{1, 4, 5}, nonces(s.Valid(100)))
	assert.Equal(t, []uint64{4, 5}, nonces(s.Revocations()))
}

func TestActiveRevocations(t *testing.T) {
	s := AttestationSet{
		{Nonce: 1, Revokes: []uint64{7, 8}, Replacement: testSucc},
		{Nonce: 2, Revokes: []uint64{7}, Replacement: ReservedAddress}, // covered by 1
		{Nonce: 3, Revokes: []uint64{8, 9}, Replacement: testSucc},     // 9 not covered
		{Nonce: 4, Revokes: []uint64{9}, Replacement: ReservedAddress}, // covered by 3
		{Nonce: 5},
	}
	assert.Equal(t, []uint64{1, 3}, nonces(s.ActiveRevocations()))

	// A preceding revocation without replacement does not shadow.
	s = AttestationSet{
		{Nonce: 1, Revokes: []uint64{7}, Replacement: ReservedAddress},
		{Nonce: 2, Revokes: []uint64{7}, Replacement: testSucc},
	}
	assert.Equal(t, []uint64{1, 2}, nonces(s.ActiveRevocations()))
}

func TestAttestationSetEncoding(t *testing.T) {
	s := AttestationSet{
		{Subject: testSubject, TrustAnchor: testAnchor, Nonce: 1, Jurisdiction: "US", Revokes: []uint64{}, Payload: []byte{1, 2}},
		{Subject: testSubject, TrustAnchor: testAnchor, Nonce: 2, Revokes: []uint64{1}, Replacement: testSucc, Payload: []byte{}},
	}
	enc, err := s.Encode()
	require.NoError(t, err)
	dec, err := DecodeAttestationSet(enc)
	require.NoError(t, err)
	assert.Equal(t, s, dec)

	empty, err := AttestationSet(nil).Encode()
	require.NoError(t, err)
	assert.Empty(t, empty)
	dec, err = DecodeAttestationSet(nil)
	require.NoError(t, err)
	assert.Empty(t, dec)

	_, err = DecodeAttestationSet([]byte{0x85})
	assert.Error(t, err)
}

func TestAttestationSetSerialize(t *testing.T) {
	out, err := AttestationSet(nil).Serialize()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80}, out)

	a := &Attestation{Subject: testSubject, Nonce: 1, Jurisdiction: "US", Revokes: []uint64{}, Payload: []byte{}}
	b := &Attestation{Subject: testSubject, Nonce: 2, Revokes: []uint64{}, Payload: []byte{}}
	out, err = AttestationSet{a, b}.Serialize()
	require.NoError(t, err)

	// The outer layer is one RLP string holding the records back to back.
	stream, rest, err := rlp.SplitString(out)
	require.NoError(t, err)
	assert.Empty(t, rest)

	var got []*Attestation
	for len(stream) > 0 {
		_, _, tail, err := rlp.Split(stream)
		require.NoError(t, err)
		var rec Attestation
		require.NoError(t, rlp.DecodeBytes(stream[:len(stream)-len(tail)], &rec))
		got = append(got, &rec)
		stream = tail
	}
	assert.Equal(t, []*Attestation{a, b}, got)
}

func TestFilters(t *testing.T) {
	other := HexToAddress("0xa200000000000000000000000000000000000002")
	s := AttestationSet{
		{Nonce: 1, TrustAnchor: testAnchor, Jurisdiction: "US"},
		{Nonce: 2, TrustAnchor: other, Jurisdiction: "US"},
		{Nonce: 3, TrustAnchor: testAnchor, Jurisdiction: "CA"},
	}
	assert.Equal(t, []uint64{1, 3}, nonces(s.ByTrustAnchor(testAnchor)))
	assert.Equal(t, []uint64{1, 2}, nonces(s.ByJurisdiction("US")))
	assert.Equal(t, []uint64{}, nonces(s.ByJurisdiction("MX")))
}
