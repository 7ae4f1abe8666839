// Package state implements the world state store: an overlay cache of
// checkpoint layers over a Database holding accounts, per-account storage
// partitions and code.
package state

import (
	"bytes"
	"sort"

	"github.com/holiman/uint256"

	"github.com/eth2030/shyftvm/core/types"
	"github.com/eth2030/shyftvm/crypto"
	"github.com/eth2030/shyftvm/log"
)

// Store is the checkpointable world state. Layer 0 is the transaction
// cache; every Checkpoint pushes another layer. The store is owned by a
// single in-flight transaction and is not safe for concurrent use.
type Store struct {
	db     Database
	layers []*layer
	hashes *blockHashCache
	log    *log.Logger
}

// NewStore creates a store reading through to db.
func NewStore(db Database) *Store {
	return &Store{
		db:     db,
		layers: []*layer{newLayer()},
		log:    log.Default().Module("state"),
	}
}

// Database returns the backing database.
func (s *Store) Database() Database { return s.db }

func (s *Store) top() *layer { return s.layers[len(s.layers)-1] }

// ---------------------------------------------------------------------------
// Checkpoints
// ---------------------------------------------------------------------------

// Checkpoint opens a new revert scope. Scopes nest LIFO.
func (s *Store) Checkpoint() {
	s.layers = append(s.layers, newLayer())
	checkpointCounter.Inc()
	checkpointDepth.Set(int64(len(s.layers) - 1))
}

// Commit flattens the innermost scope into its parent.
func (s *Store) Commit() error {
	if len(s.layers) < 2 {
		return ErrNoCheckpoint
	}
	n := len(s.layers)
	s.layers[n-1].mergeInto(s.layers[n-2])
	s.layers = s.layers[:n-1]
	commitCounter.Inc()
	checkpointDepth.Set(int64(len(s.layers) - 1))
	return nil
}

// Revert discards every change made since the innermost checkpoint.
func (s *Store) Revert() error {
	if len(s.layers) < 2 {
		return ErrNoCheckpoint
	}
	s.layers = s.layers[:len(s.layers)-1]
	revertCounter.Inc()
	checkpointDepth.Set(int64(len(s.layers) - 1))
	return nil
}

// Depth returns the number of open checkpoints.
func (s *Store) Depth() int { return len(s.layers) - 1 }

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

func (s *Store) lookupAccount(addr types.Address) (types.Account, bool, error) {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if e, ok := s.layers[i].accounts[addr]; ok {
			if e.deleted {
				return types.Account{}, false, nil
			}
			return e.account, true, nil
		}
	}
	acc, err := s.db.ReadAccount(addr)
	if err != nil {
		return types.Account{}, false, ioError("read account", err)
	}
	if acc == nil {
		return types.Account{}, false, nil
	}
	return *acc, true, nil
}

// GetAccount returns a copy of the account at addr. A missing account is
// returned as a fresh account with Exists unset.
func (s *Store) GetAccount(addr types.Address) (types.Account, error) {
	acc, ok, err := s.lookupAccount(addr)
	if err != nil {
		return types.Account{}, err
	}
	if !ok {
		fresh := types.NewAccount()
		fresh.Exists = false
		return fresh, nil
	}
	cpy := acc.Copy()
	cpy.Exists = true
	return cpy, nil
}

// PutAccount stores a copy of account at addr in the innermost scope and
// marks it touched.
func (s *Store) PutAccount(addr types.Address, account types.Account) error {
	t := s.top()
	t.setAccount(addr, account)
	t.touched[addr] = struct{}{}
	return nil
}

// AccountExists reports whether an account is present at addr.
func (s *Store) AccountExists(addr types.Address) (bool, error) {
	_, ok, err := s.lookupAccount(addr)
	return ok, err
}

// AccountIsEmpty reports whether the account at addr has zero nonce, zero
// balance and no code. Missing accounts are empty.
func (s *Store) AccountIsEmpty(addr types.Address) (bool, error) {
	acc, ok, err := s.lookupAccount(addr)
	if err != nil || !ok {
		return true, err
	}
	return acc.IsEmpty(), nil
}

// DeleteAccount removes the account and its storage in the innermost scope.
func (s *Store) DeleteAccount(addr types.Address) error {
	s.top().deleteAccount(addr)
	return nil
}

// CreateAccount replaces whatever lives at addr with a fresh account,
// carrying over the existing balance.
func (s *Store) CreateAccount(addr types.Address) error {
	prev, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	acc := types.NewAccount()
	acc.Balance.Set(prev.Balance)
	t := s.top()
	t.wipeStorage(addr)
	t.setAccount(addr, acc)
	t.touched[addr] = struct{}{}
	return nil
}

// Touch marks addr as touched by the current transaction.
func (s *Store) Touch(addr types.Address) {
	s.top().touched[addr] = struct{}{}
}

// Touched returns every touched address in ascending order.
func (s *Store) Touched() []types.Address {
	set := make(map[types.Address]struct{})
	for _, l := range s.layers {
		for addr := range l.touched {
			set[addr] = struct{}{}
		}
	}
	out := make([]types.Address, 0, len(set))
	for addr := range set {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// GetBalance returns the balance of addr, zero for missing accounts.
func (s *Store) GetBalance(addr types.Address) (*uint256.Int, error) {
	acc, err := s.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

// AddBalance credits amount to addr, creating the account if needed.
func (s *Store) AddBalance(addr types.Address, amount *uint256.Int) error {
	acc, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	acc.Balance.Add(acc.Balance, amount)
	return s.PutAccount(addr, acc)
}

// SubBalance debits amount from addr.
func (s *Store) SubBalance(addr types.Address, amount *uint256.Int) error {
	acc, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	if acc.Balance.Lt(amount) {
		return ErrBalanceUnderflow
	}
	acc.Balance.Sub(acc.Balance, amount)
	return s.PutAccount(addr, acc)
}

// GetNonce returns the nonce of addr.
func (s *Store) GetNonce(addr types.Address) (uint64, error) {
	acc, err := s.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// SetNonce sets the nonce of addr, creating the account if needed.
func (s *Store) SetNonce(addr types.Address, nonce uint64) error {
	acc, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	acc.Nonce = nonce
	return s.PutAccount(addr, acc)
}

// ---------------------------------------------------------------------------
// Code
// ---------------------------------------------------------------------------

// GetCodeHash returns the code hash of addr, or the zero hash if the
// account does not exist.
func (s *Store) GetCodeHash(addr types.Address) (types.Hash, error) {
	acc, ok, err := s.lookupAccount(addr)
	if err != nil || !ok {
		return types.Hash{}, err
	}
	return acc.CodeHash, nil
}

// GetCode returns the code deployed at addr.
func (s *Store) GetCode(addr types.Address) ([]byte, error) {
	acc, ok, err := s.lookupAccount(addr)
	if err != nil || !ok || !acc.HasCode() {
		return nil, err
	}
	for i := len(s.layers) - 1; i >= 0; i-- {
		if code, ok := s.layers[i].code[acc.CodeHash]; ok {
			return bytes.Clone(code), nil
		}
	}
	code, err := s.db.ReadCode(acc.CodeHash)
	if err != nil {
		return nil, ioError("read code", err)
	}
	return code, nil
}

// PutCode deploys code at addr, creating the account if needed.
func (s *Store) PutCode(addr types.Address, code []byte) error {
	acc, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	hash := crypto.Keccak256Hash(code)
	acc.CodeHash = hash
	s.top().code[hash] = bytes.Clone(code)
	return s.PutAccount(addr, acc)
}

// ---------------------------------------------------------------------------
// Storage
// ---------------------------------------------------------------------------

// GetStorage returns the value under key in the partition key.Space of
// addr's storage. Missing values are returned as nil.
func (s *Store) GetStorage(addr types.Address, key types.StorageKey) ([]byte, error) {
	for i := len(s.layers) - 1; i >= 0; i-- {
		l := s.layers[i]
		if v, ok := l.storage[addr][key]; ok {
			return bytes.Clone(v), nil
		}
		if _, ok := l.wiped[addr]; ok {
			return nil, nil
		}
	}
	v, err := s.db.ReadStorage(addr, key)
	if err != nil {
		return nil, ioError("read storage", err)
	}
	if len(v) == 0 {
		return nil, nil
	}
	return v, nil
}

// PutStorage stores value under key; an empty value deletes the slot. The
// owning account is created if it does not exist yet.
func (s *Store) PutStorage(addr types.Address, key types.StorageKey, value []byte) error {
	acc, ok, err := s.lookupAccount(addr)
	if err != nil {
		return err
	}
	t := s.top()
	if !ok {
		acc = types.NewAccount()
		t.setAccount(addr, acc)
	}
	t.setStorage(addr, key, value)
	t.touched[addr] = struct{}{}
	return nil
}
