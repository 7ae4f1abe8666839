package state

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/shyftvm/core/types"
)

var (
	addrA = types.HexToAddress("0x00000000000000000000000000000000000000aa")
	addrB = types.HexToAddress("0x00000000000000000000000000000000000000bb")
	addrC = types.HexToAddress("0x00000000000000000000000000000000000000cc")
)

func newTestStore() *Store {
	return NewStore(NewMemoryDatabase())
}

func TestStore_MissingAccount(t *testing.T) {
	s := newTestStore()
	acc, err := s.GetAccount(addrA)
	require.NoError(t, err)
	require.False(t, acc.Exists)
	require.True(t, acc.Balance.IsZero())

	exists, err := s.AccountExists(addrA)
	require.NoError(t, err)
	require.False(t, exists)

	empty, err := s.AccountIsEmpty(addrA)
	require.NoError(t, err)
	require.True(t, empty)
}

func TestStore_GetAccountReturnsCopy(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddBalance(addrA, uint256.NewInt(10)))

	acc, err := s.GetAccount(addrA)
	require.NoError(t, err)
	acc.Balance.SetUint64(999)

	bal, err := s.GetBalance(addrA)
	require.NoError(t, err)
	require.Equal(t, uint64(10), bal.Uint64())
}

func TestStore_CheckpointRevert(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddBalance(addrA, uint256.NewInt(100)))

	s.Checkpoint()
	require.NoError(t, s.AddBalance(addrA, uint256.NewInt(50)))
	require.NoError(t, s.PutStorage(addrA, types.ContractKey(types.Hash{1}), []byte{7}))
	require.NoError(t, s.Revert())

	bal, err := s.GetBalance(addrA)
	require.NoError(t, err)
	require.Equal(t, uint64(100), bal.Uint64())

	v, err := s.GetStorage(addrA, types.ContractKey(types.Hash{1}))
	require.NoError(t, err)
	require.Nil(t, v)
	require.Zero(t, s.Depth())
}

func TestStore_NestedCheckpoints(t *testing.T) {
	s := newTestStore()
	key := types.ContractKey(types.Hash{31: 1})

	s.Checkpoint() // outer
	require.NoError(t, s.PutStorage(addrA, key, []byte{1}))

	s.Checkpoint() // inner, reverted
	require.NoError(t, s.PutStorage(addrA, key, []byte{2}))
	require.NoError(t, s.PutStorage(addrB, key, []byte{3}))
	v, err := s.GetStorage(addrA, key)
	require.NoError(t, err)
	require.Equal(t, []byte{2}, v)
	require.NoError(t, s.Revert())

	s.Checkpoint() // inner, committed
	require.NoError(t, s.PutStorage(addrC, key, []byte{4}))
	require.NoError(t, s.Commit())

	require.Equal(t, 1, s.Depth())
	require.NoError(t, s.Commit())

	v, err = s.GetStorage(addrA, key)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, v)
	v, err = s.GetStorage(addrB, key)
	require.NoError(t, err)
	require.Nil(t, v)
	v, err = s.GetStorage(addrC, key)
	require.NoError(t, err)
	require.Equal(t, []byte{4}, v)
}

func TestStore_CommitRevertWithoutCheckpoint(t *testing.T) {
	s := newTestStore()
	require.ErrorIs(t, s.Commit(), ErrNoCheckpoint)
	require.ErrorIs(t, s.Revert(), ErrNoCheckpoint)
}

func TestStore_StorageRoundtripZeroKey(t *testing.T) {
	s := newTestStore()
	key := types.ContractKey(types.Hash{})
	require.NoError(t, s.PutStorage(addrA, key, []byte{0xde, 0xad}))

	v, err := s.GetStorage(addrA, key)
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad}, v)

	exists, err := s.AccountExists(addrA)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestStore_EmptyValueDeletes(t *testing.T) {
	s := newTestStore()
	key := types.ContractKey(types.Hash{5})
	require.NoError(t, s.PutStorage(addrA, key, []byte{1}))
	_, err := s.Flush()
	require.NoError(t, err)

	require.NoError(t, s.PutStorage(addrA, key, nil))
	v, err := s.GetStorage(addrA, key)
	require.NoError(t, err)
	require.Nil(t, v)

	_, err = s.Flush()
	require.NoError(t, err)
	v, err = s.GetStorage(addrA, key)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestStore_IdentityPartitionIsolated(t *testing.T) {
	s := newTestStore()
	slot := types.Hash{31: 9}
	require.NoError(t, s.PutStorage(addrA, types.ContractKey(slot), []byte{0x01}))
	require.NoError(t, s.PutStorage(addrA, types.IdentityKey(slot), []byte{0x02}))

	c, err := s.GetStorage(addrA, types.ContractKey(slot))
	require.NoError(t, err)
	i, err := s.GetStorage(addrA, types.IdentityKey(slot))
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, c)
	require.Equal(t, []byte{0x02}, i)

	_, err = s.Flush()
	require.NoError(t, err)
	c, err = s.GetStorage(addrA, types.ContractKey(slot))
	require.NoError(t, err)
	i, err = s.GetStorage(addrA, types.IdentityKey(slot))
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, c)
	require.Equal(t, []byte{0x02}, i)
}

func TestStore_DeleteAccountHidesStorage(t *testing.T) {
	s := newTestStore()
	key := types.ContractKey(types.Hash{1})
	require.NoError(t, s.PutStorage(addrA, key, []byte{1}))
	_, err := s.Flush()
	require.NoError(t, err)

	s.Checkpoint()
	require.NoError(t, s.DeleteAccount(addrA))
	v, err := s.GetStorage(addrA, key)
	require.NoError(t, err)
	require.Nil(t, v)
	require.NoError(t, s.Revert())

	v, err = s.GetStorage(addrA, key)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, v)

	require.NoError(t, s.DeleteAccount(addrA))
	_, err = s.Flush()
	require.NoError(t, err)
	exists, err := s.AccountExists(addrA)
	require.NoError(t, err)
	require.False(t, exists)
	v, err = s.GetStorage(addrA, key)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestStore_Code(t *testing.T) {
	s := newTestStore()
	code := []byte{0x60, 0x00, 0x00}
	require.NoError(t, s.PutCode(addrA, code))

	got, err := s.GetCode(addrA)
	require.NoError(t, err)
	require.Equal(t, code, got)

	empty, err := s.AccountIsEmpty(addrA)
	require.NoError(t, err)
	require.False(t, empty)

	_, err = s.Flush()
	require.NoError(t, err)
	got, err = s.GetCode(addrA)
	require.NoError(t, err)
	require.Equal(t, code, got)
}

func TestStore_SubBalanceUnderflow(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddBalance(addrA, uint256.NewInt(1)))
	require.ErrorIs(t, s.SubBalance(addrA, uint256.NewInt(2)), ErrBalanceUnderflow)
}

func TestStore_Touched(t *testing.T) {
	s := newTestStore()
	s.Touch(addrC)
	s.Checkpoint()
	s.Touch(addrA)
	require.Equal(t, []types.Address{addrA, addrC}, s.Touched())
	require.NoError(t, s.Revert())
	require.Equal(t, []types.Address{addrC}, s.Touched())
}

func TestStore_FlushRoots(t *testing.T) {
	build := func(order []types.Address) types.Hash {
		s := newTestStore()
		for _, addr := range order {
			require.NoError(t, s.AddBalance(addr, uint256.NewInt(uint64(addr[19]))))
			require.NoError(t, s.PutStorage(addr, types.ContractKey(types.Hash{31: 1}), addr[:]))
		}
		root, err := s.Flush()
		require.NoError(t, err)
		return root
	}
	r1 := build([]types.Address{addrA, addrB, addrC})
	r2 := build([]types.Address{addrC, addrA, addrB})
	require.Equal(t, r1, r2)
	require.NotEqual(t, types.EmptyRootHash, r1)
}

func TestStore_FlushUpdatesStorageRoot(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddBalance(addrA, uint256.NewInt(1)))
	root0, err := s.Flush()
	require.NoError(t, err)

	acc, err := s.GetAccount(addrA)
	require.NoError(t, err)
	require.Equal(t, types.EmptyRootHash, acc.Root)

	require.NoError(t, s.PutStorage(addrA, types.ContractKey(types.Hash{1}), []byte{1}))
	root1, err := s.Flush()
	require.NoError(t, err)
	require.NotEqual(t, root0, root1)

	acc, err = s.GetAccount(addrA)
	require.NoError(t, err)
	want, err := s.Database().StorageRoot(addrA)
	require.NoError(t, err)
	require.Equal(t, want, acc.Root)
	require.NotEqual(t, types.EmptyRootHash, acc.Root)

	// Clearing the only slot restores the empty root.
	require.NoError(t, s.PutStorage(addrA, types.ContractKey(types.Hash{1}), nil))
	root2, err := s.Flush()
	require.NoError(t, err)
	require.Equal(t, root0, root2)
}

func TestStore_FlushWithOpenCheckpoint(t *testing.T) {
	s := newTestStore()
	s.Checkpoint()
	_, err := s.Flush()
	require.ErrorIs(t, err, ErrPendingCheckpoint)
}

func TestStore_EmptyStateRoot(t *testing.T) {
	root, err := newTestStore().Flush()
	require.NoError(t, err)
	require.Equal(t, types.EmptyRootHash, root)
}

var errDisk = errors.New("disk on fire")

type faultyDatabase struct {
	*MemoryDatabase
	failReads   bool
	failStorage bool
}

func (db *faultyDatabase) ForEachStorage(addr types.Address, fn func(key, value []byte) bool) error {
	if db.failStorage {
		return errDisk
	}
	return db.MemoryDatabase.ForEachStorage(addr, fn)
}

func (db *faultyDatabase) ReadAccount(addr types.Address) (*types.Account, error) {
	if db.failReads {
		return nil, errDisk
	}
	return db.MemoryDatabase.ReadAccount(addr)
}

func (db *faultyDatabase) ReadStorage(addr types.Address, key types.StorageKey) ([]byte, error) {
	if db.failReads {
		return nil, errDisk
	}
	return db.MemoryDatabase.ReadStorage(addr, key)
}

func TestStore_IOErrorPropagates(t *testing.T) {
	db := &faultyDatabase{MemoryDatabase: NewMemoryDatabase(), failReads: true}
	s := NewStore(db)

	_, err := s.GetAccount(addrA)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.Equal(t, "read account", ioErr.Op)
	require.ErrorIs(t, err, errDisk)

	_, err = s.GetStorage(addrA, types.ContractKey(types.Hash{}))
	require.ErrorIs(t, err, errDisk)

	// Cached entries are served without touching the database.
	db.failReads = false
	require.NoError(t, s.AddBalance(addrA, uint256.NewInt(1)))
	db.failReads = true
	bal, err := s.GetBalance(addrA)
	require.NoError(t, err)
	require.Equal(t, uint64(1), bal.Uint64())
}
