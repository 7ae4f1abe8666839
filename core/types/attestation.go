package types

import (
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

var (
	// ReservedAddress (2^160-1) is never a real account. As a replacement
	// it marks a revocation without successor, and CHECKATTESTVALID
	// returns it for an attestation that is invalid with no replacement.
	ReservedAddress = Address{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	}

	// AttestationMissing (2^160) is the validity value for a nonce with no
	// attestation at all.
	AttestationMissing = new(uint256.Int).Lsh(uint256.NewInt(1), 160)

	ErrAttestationNoSubject = errors.New("attestation has no subject")
)

// Attestation is an identity claim made by a trust anchor about a subject
// address. A record whose Replacement is non-zero is a revocation of the
// attestations listed in Revokes.
type Attestation struct {
	Subject      Address
	TrustAnchor  Address
	Nonce        uint64
	Jurisdiction string
	Effective    uint64 // unix seconds from which the record applies
	Expiry       uint64 // unix seconds after which it lapses, 0 for never
	Replacement  Address
	Revokes      []uint64
	Payload      []byte
}

// IsRevocation reports whether the record revokes other attestations.
func (a *Attestation) IsRevocation() bool {
	return !a.Replacement.IsZero()
}

// HasReplacement reports whether a revocation names a usable successor.
func (a *Attestation) HasReplacement() bool {
	return a.IsRevocation() && a.Replacement != ReservedAddress
}

// Covers reports whether the revocation applies to the given nonce.
func (a *Attestation) Covers(nonce uint64) bool {
	for _, n := range a.Revokes {
		if n == nonce {
			return true
		}
	}
	return false
}

// coversAll reports whether a covers every nonce that b covers.
func (a *Attestation) coversAll(b *Attestation) bool {
	for _, n := range b.Revokes {
		if !a.Covers(n) {
			return false
		}
	}
	return true
}

// InEffect reports whether the record has taken effect and not expired at
// time t.
func (a *Attestation) InEffect(t uint64) bool {
	if a.Effective > t {
		return false
	}
	return a.Expiry == 0 || t <= a.Expiry
}

// AttestationSet is the identity state of one address ordered by nonce.
type AttestationSet []*Attestation

// DecodeAttestationSet decodes the stored form produced by Encode. An
// empty input is the empty set.
func DecodeAttestationSet(b []byte) (AttestationSet, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var set AttestationSet
	if err := rlp.DecodeBytes(b, &set); err != nil {
		return nil, err
	}
	return set, nil
}

// Encode returns the stored form of the set: an RLP list of records.
func (s AttestationSet) Encode() ([]byte, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return rlp.EncodeToBytes([]*Attestation(s))
}

// Serialize returns the form handed to contracts: every record RLP
// encoded, concatenated, and the resulting byte stream RLP encoded as a
// string. The empty set serializes to the RLP empty string.
func (s AttestationSet) Serialize() ([]byte, error) {
	var stream []byte
	for _, a := range s {
		enc, err := rlp.EncodeToBytes(a)
		if err != nil {
			return nil, err
		}
		stream = append(stream, enc...)
	}
	return rlp.EncodeToBytes(stream)
}

// Upsert inserts a, replacing any record with the same nonce, and keeps
// the set ordered by nonce.
func (s AttestationSet) Upsert(a *Attestation) AttestationSet {
	i := sort.Search(len(s), func(i int) bool { return s[i].Nonce >= a.Nonce })
	if i < len(s) && s[i].Nonce == a.Nonce {
		out := append(AttestationSet(nil), s...)
		out[i] = a
		return out
	}
	out := make(AttestationSet, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, a)
	return append(out, s[i:]...)
}

// Remove drops the record with the given nonce.
func (s AttestationSet) Remove(nonce uint64) AttestationSet {
	return s.Filter(func(a *Attestation) bool { return a.Nonce != nonce })
}

// Find returns the record with the given nonce, or nil.
func (s AttestationSet) Find(nonce uint64) *Attestation {
	i := sort.Search(len(s), func(i int) bool { return s[i].Nonce >= nonce })
	if i < len(s) && s[i].Nonce == nonce {
		return s[i]
	}
	return nil
}

// Filter returns the records for which keep returns true.
func (s AttestationSet) Filter(keep func(*Attestation) bool) AttestationSet {
	var out AttestationSet
	for _, a := range s {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// ByTrustAnchor restricts the set to records issued by ta.
func (s AttestationSet) ByTrustAnchor(ta Address) AttestationSet {
	return s.Filter(func(a *Attestation) bool { return a.TrustAnchor == ta })
}

// ByJurisdiction restricts the set to records in jurisdiction j.
func (s AttestationSet) ByJurisdiction(j string) AttestationSet {
	return s.Filter(func(a *Attestation) bool { return a.Jurisdiction == j })
}

// Revocations restricts the set to revocation records.
func (s AttestationSet) Revocations() AttestationSet {
	return s.Filter((*Attestation).IsRevocation)
}

// EffectiveRevocation returns the revocation governing nonce at time t:
// the first in-effect revocation covering it that names a replacement,
// otherwise the first in-effect revocation covering it at all.
func (s AttestationSet) EffectiveRevocation(nonce, t uint64) *Attestation {
	var first *Attestation
	for _, r := range s {
		if !r.IsRevocation() || !r.InEffect(t) || !r.Covers(nonce) {
			continue
		}
		if r.HasReplacement() {
			return r
		}
		if first == nil {
			first = r
		}
	}
	return first
}

// IsValid reports whether a has taken effect, has not expired and is not
// revoked or superseded by any record of s at time t.
func (s AttestationSet) IsValid(a *Attestation, t uint64) bool {
	return a.InEffect(t) && s.EffectiveRevocation(a.Nonce, t) == nil
}

// Valid restricts the set to records valid at time t.
func (s AttestationSet) Valid(t uint64) AttestationSet {
	return s.Filter(func(a *Attestation) bool { return s.IsValid(a, t) })
}

// ActiveRevocations returns the revocations not preceded by a revocation
// covering all of the same attestations and naming a replacement.
func (s AttestationSet) ActiveRevocations() AttestationSet {
	var out AttestationSet
	for i, r := range s {
		if !r.IsRevocation() {
			continue
		}
		active := true
		for _, prev := range s[:i] {
			if prev.HasReplacement() && prev.coversAll(r) {
				active = false
				break
			}
		}
		if active {
			out = append(out, r)
		}
	}
	return out
}

// CheckValid returns the validity value of the attestation with the given
// nonce at time t: zero if valid, the replacement address of the governing
// revocation, ReservedAddress if invalid without replacement, or
// AttestationMissing if no such attestation exists.
func (s AttestationSet) CheckValid(nonce, t uint64) *uint256.Int {
	a := s.Find(nonce)
	if a == nil {
		return new(uint256.Int).Set(AttestationMissing)
	}
	if !a.InEffect(t) {
		return ReservedAddress.Word()
	}
	rev := s.EffectiveRevocation(nonce, t)
	if rev == nil {
		return new(uint256.Int)
	}
	return rev.Replacement.Word()
}
