package types

import "github.com/holiman/uint256"

var (
	// EmptyRootHash is the root of an empty trie.
	EmptyRootHash = HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

	// EmptyCodeHash is keccak256 of the empty byte string.
	EmptyCodeHash = HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
)

// Account is an entry of the state trie. Exists is bookkeeping for the
// store and is not part of the consensus encoding.
type Account struct {
	Nonce    uint64
	Balance  *uint256.Int
	Root     Hash // storage trie root
	CodeHash Hash
	Exists   bool `rlp:"-"`
}

// NewAccount returns an existing account with zero balance, no code and
// an empty storage trie.
func NewAccount() Account {
	return Account{
		Balance:  new(uint256.Int),
		Root:     EmptyRootHash,
		CodeHash: EmptyCodeHash,
		Exists:   true,
	}
}

// Copy returns a deep copy of the account.
func (a Account) Copy() Account {
	cpy := a
	if a.Balance != nil {
		cpy.Balance = new(uint256.Int).Set(a.Balance)
	} else {
		cpy.Balance = new(uint256.Int)
	}
	return cpy
}

// IsEmpty reports whether the account has zero nonce, zero balance and no
// code.
func (a Account) IsEmpty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero()) && !a.HasCode()
}

// HasCode reports whether the account carries non-empty code.
func (a Account) HasCode() bool {
	return a.CodeHash != EmptyCodeHash && !a.CodeHash.IsZero()
}
