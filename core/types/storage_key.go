package types

import "fmt"

// KeySpace selects the storage partition a slot lives in. Contract storage
// and identity storage share an account but never share keys.
type KeySpace uint8

const (
	// ContractSpace is ordinary SLOAD/SSTORE storage.
	ContractSpace KeySpace = iota
	// IdentitySpace holds identity-attestation records.
	IdentitySpace
)

func (s KeySpace) String() string {
	switch s {
	case ContractSpace:
		return "contract"
	case IdentitySpace:
		return "identity"
	default:
		return fmt.Sprintf("space(%d)", uint8(s))
	}
}

// StorageKey addresses one slot of an account's storage.
type StorageKey struct {
	Space KeySpace
	Slot  Hash
}

// ContractKey returns the key of a contract storage slot.
func ContractKey(slot Hash) StorageKey {
	return StorageKey{Space: ContractSpace, Slot: slot}
}

// IdentityKey returns the key of an identity storage slot.
func IdentityKey(slot Hash) StorageKey {
	return StorageKey{Space: IdentitySpace, Slot: slot}
}

func (k StorageKey) String() string {
	return k.Space.String() + ":" + k.Slot.Hex()
}
