package state

import (
	"fmt"

	"github.com/eth2030/shyftvm/core/types"
)

// attestationSetSlot is the identity slot holding an address's
// attestation records.
var attestationSetSlot = types.Hash{}

// GetAttestations returns the identity state of addr ordered by nonce.
func (s *Store) GetAttestations(addr types.Address) (types.AttestationSet, error) {
	raw, err := s.GetStorage(addr, types.IdentityKey(attestationSetSlot))
	if err != nil {
		return nil, err
	}
	set, err := types.DecodeAttestationSet(raw)
	if err != nil {
		return nil, ioError("decode attestations", err)
	}
	return set, nil
}

// PutAttestation records a for addr, replacing any record with the same
// nonce. A zero subject is filled in with addr.
func (s *Store) PutAttestation(addr types.Address, a *types.Attestation) error {
	rec := *a
	if rec.Subject.IsZero() {
		rec.Subject = addr
	}
	if rec.Subject != addr {
		return fmt.Errorf("%w: %s recorded under %s", ErrAttestationSubject, rec.Subject, addr)
	}
	set, err := s.GetAttestations(addr)
	if err != nil {
		return err
	}
	return s.putAttestations(addr, set.Upsert(&rec))
}

// DeleteAttestation drops the record with the given nonce.
func (s *Store) DeleteAttestation(addr types.Address, nonce uint64) error {
	set, err := s.GetAttestations(addr)
	if err != nil {
		return err
	}
	return s.putAttestations(addr, set.Remove(nonce))
}

func (s *Store) putAttestations(addr types.Address, set types.AttestationSet) error {
	enc, err := set.Encode()
	if err != nil {
		return ioError("encode attestations", err)
	}
	return s.PutStorage(addr, types.IdentityKey(attestationSetSlot), enc)
}

// verificationContractSlot is the identity slot pointing at the contract
// that verifies an address's attestations.
var verificationContractSlot = types.Hash{31: 1}

// VerificationContract returns the verification contract registered for
// addr, or the zero address if there is none.
func (s *Store) VerificationContract(addr types.Address) (types.Address, error) {
	raw, err := s.GetStorage(addr, types.IdentityKey(verificationContractSlot))
	if err != nil {
		return types.Address{}, err
	}
	if len(raw) != types.AddressLength {
		if len(raw) != 0 {
			return types.Address{}, ioError("decode verification contract", errBadPointer)
		}
		return types.Address{}, nil
	}
	return types.BytesToAddress(raw), nil
}

// PutVerificationContract registers contract as the verification
// contract of addr. The zero address clears the pointer.
func (s *Store) PutVerificationContract(addr, contract types.Address) error {
	if contract.IsZero() {
		return s.PutStorage(addr, types.IdentityKey(verificationContractSlot), nil)
	}
	return s.PutStorage(addr, types.IdentityKey(verificationContractSlot), contract.Bytes())
}
