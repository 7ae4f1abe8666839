package core

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/shyftvm/core/state"
	"github.com/eth2030/shyftvm/core/types"
	"github.com/eth2030/shyftvm/core/vm"
	"github.com/eth2030/shyftvm/crypto"
)

var (
	sender    = types.HexToAddress("0x1000000000000000000000000000000000000001")
	recipient = types.HexToAddress("0x2000000000000000000000000000000000000002")
	contract  = types.HexToAddress("0x3000000000000000000000000000000000000003")
	coinbase  = types.HexToAddress("0xc0000000000000000000000000000000000000cb")

	initialBalance uint64 = 1_000_000_000_000_000_000
)

func newTestEnv(t *testing.T) (*vm.EVM, *state.Store) {
	t.Helper()
	store := state.NewStore(state.NewMemoryDatabase())
	require.NoError(t, store.AddBalance(sender, uint256.NewInt(initialBalance)))
	evm := vm.NewEVM(
		vm.BlockContext{Coinbase: coinbase, GasLimit: 30_000_000, BlockNumber: 1, Time: 1700000000},
		vm.TxContext{},
		vm.ChainConfig{ChainID: 1},
		store,
		vm.Config{},
	)
	return evm, store
}

func balanceOf(t *testing.T, store *state.Store, addr types.Address) uint64 {
	t.Helper()
	bal, err := store.GetBalance(addr)
	require.NoError(t, err)
	return bal.Uint64()
}

func nonceOf(t *testing.T, store *state.Store, addr types.Address) uint64 {
	t.Helper()
	n, err := store.GetNonce(addr)
	require.NoError(t, err)
	return n
}

func callMsg(to types.Address, data []byte, gas uint64) *Message {
	return &Message{From: sender, To: &to, GasLimit: gas, GasPrice: uint256.NewInt(2), Data: data}
}

func TestIntrinsicGas(t *testing.T) {
	tests := []struct {
		data   []byte
		create bool
		want   uint64
	}{
		{nil, false, 21000},
		{nil, true, 53000},
		{[]byte{0, 1, 0xff}, false, 21000 + 4 + 2*68},
		{make([]byte, 10), true, 53000 + 40},
	}
	for _, tt := range tests {
		got, err := IntrinsicGas(tt.data, tt.create)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestApplyMessageTransfer(t *testing.T) {
	evm, store := newTestEnv(t)
	msg := callMsg(recipient, nil, 21000)
	msg.Value = uint256.NewInt(1000)

	receipt, res, err := ApplyMessage(evm, store, msg)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, uint64(21000), receipt.GasUsed)
	assert.Empty(t, receipt.Exception)

	assert.Equal(t, initialBalance-1000-2*21000, balanceOf(t, store, sender))
	assert.Equal(t, uint64(1000), balanceOf(t, store, recipient))
	assert.Equal(t, uint64(2*21000), balanceOf(t, store, coinbase))
	assert.Equal(t, uint64(1), nonceOf(t, store, sender))
	assert.Equal(t, 0, store.Depth())
}

func TestApplyMessageValidation(t *testing.T) {
	tests := []struct {
		name string
		msg  func() *Message
		want error
	}{
		{"nonce too high", func() *Message { m := callMsg(recipient, nil, 21000); m.Nonce = 1; return m }, ErrNonceTooHigh},
		{"intrinsic gas", func() *Message { return callMsg(recipient, []byte{1}, 21000) }, ErrIntrinsicGasTooLow},
		{"funds for value", func() *Message {
			m := callMsg(recipient, nil, 21000)
			m.Value = uint256.NewInt(initialBalance)
			return m
		}, ErrInsufficientFunds},
		{"funds for gas", func() *Message {
			m := callMsg(recipient, nil, 21000)
			m.GasPrice = uint256.NewInt(initialBalance)
			return m
		}, ErrInsufficientFunds},
		{"price overflow", func() *Message {
			m := callMsg(recipient, nil, 21000)
			m.GasPrice = new(uint256.Int).SetAllOne()
			return m
		}, ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evm, store := newTestEnv(t)
			receipt, res, err := ApplyMessage(evm, store, tt.msg())
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, receipt)
			assert.Nil(t, res)
			assert.Equal(t, initialBalance, balanceOf(t, store, sender))
			assert.Zero(t, nonceOf(t, store, sender))
			assert.Equal(t, 0, store.Depth())
		})
	}
}

func TestApplyMessageNonceTooLow(t *testing.T) {
	evm, store := newTestEnv(t)
	_, _, err := ApplyMessage(evm, store, callMsg(recipient, nil, 21000))
	require.NoError(t, err)
	_, _, err = ApplyMessage(evm, store, callMsg(recipient, nil, 21000))
	assert.ErrorIs(t, err, ErrNonceTooLow)
}

// deployZero is init code deploying the single byte 0x00.
var deployZero = []byte{0x60, 0x00, 0x60, 0x00, 0x53, 0x60, 0x01, 0x60, 0x00, 0xf3}

func TestApplyMessageCreate(t *testing.T) {
	evm, store := newTestEnv(t)
	msg := &Message{From: sender, GasLimit: 100000, GasPrice: uint256.NewInt(1), Data: deployZero}

	receipt, res, err := ApplyMessage(evm, store, msg)
	require.NoError(t, err)
	require.NoError(t, res.Err)

	want := crypto.CreateAddress(sender, 0)
	assert.Equal(t, want, receipt.ContractAddress)
	// intrinsic with 3 zero and 7 non-zero bytes, init code, deposit
	assert.Equal(t, uint64(53000+3*4+7*68+18+200), receipt.GasUsed)
	assert.Equal(t, uint64(1), nonceOf(t, store, sender))
	assert.Equal(t, uint64(1), nonceOf(t, store, want))

	code, err := store.GetCode(want)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, code)
}

func TestApplyMessageFailedCreateConsumesNonce(t *testing.T) {
	evm, store := newTestEnv(t)
	reverting := []byte{0x60, 0x00, 0x60, 0x00, 0xfd}
	msg := &Message{From: sender, GasLimit: 100000, GasPrice: uint256.NewInt(1), Data: reverting}

	receipt, res, err := ApplyMessage(evm, store, msg)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, vm.ErrExecutionReverted)
	assert.False(t, receipt.Succeeded())
	assert.Equal(t, vm.TagRevert, receipt.Exception)
	assert.Equal(t, types.Address{}, receipt.ContractAddress)
	assert.Equal(t, uint64(1), nonceOf(t, store, sender))

	exists, err := store.AccountExists(crypto.CreateAddress(sender, 0))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestApplyMessageRefundCap(t *testing.T) {
	evm, store := newTestEnv(t)
	require.NoError(t, store.PutCode(contract, []byte{0x60, 0x00, 0x60, 0x00, 0x55, 0x00})) // SSTORE(0, 0)
	require.NoError(t, store.PutStorage(contract, types.ContractKey(types.Hash{}), []byte{1}))

	receipt, res, err := ApplyMessage(evm, store, callMsg(contract, nil, 100000))
	require.NoError(t, err)
	assert.Equal(t, vm.GasSstoreRefund, res.Refund)
	// 26006 used before the refund, which is capped at half of it.
	assert.Equal(t, uint64(13003), receipt.GasUsed)
	assert.Equal(t, initialBalance-2*13003, balanceOf(t, store, sender))
	assert.Equal(t, uint64(2*13003), balanceOf(t, store, coinbase))
}

func TestApplyMessageRevertKeepsFeeAndNonce(t *testing.T) {
	evm, store := newTestEnv(t)
	// SSTORE(0, 1) then REVERT(0, 0)
	require.NoError(t, store.PutCode(contract, []byte{0x60, 0x01, 0x60, 0x00, 0x55, 0x60, 0x00, 0x60, 0x00, 0xfd}))

	msg := callMsg(contract, nil, 100000)
	msg.Value = uint256.NewInt(5)
	receipt, _, err := ApplyMessage(evm, store, msg)
	require.NoError(t, err)
	assert.False(t, receipt.Succeeded())
	assert.Equal(t, uint64(21000+3+3+20000+3+3), receipt.GasUsed)

	v, err := store.GetStorage(contract, types.ContractKey(types.Hash{}))
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Zero(t, balanceOf(t, store, contract))
	assert.Equal(t, uint64(1), nonceOf(t, store, sender))
	assert.Equal(t, initialBalance-2*receipt.GasUsed, balanceOf(t, store, sender))
}

func TestApplyMessageOutOfGasChargesEverything(t *testing.T) {
	evm, store := newTestEnv(t)
	require.NoError(t, store.PutCode(contract, []byte{0x5b, 0x60, 0x00, 0x56})) // loop forever

	receipt, res, err := ApplyMessage(evm, store, callMsg(contract, nil, 50000))
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, vm.ErrOutOfGas)
	assert.Equal(t, vm.TagOutOfGas, receipt.Exception)
	assert.Equal(t, uint64(50000), receipt.GasUsed)
}

func TestApplyMessageLogsAndBloom(t *testing.T) {
	evm, store := newTestEnv(t)
	// LOG1(0, 0, topic 0x2a)
	require.NoError(t, store.PutCode(contract, []byte{0x60, 0x2a, 0x60, 0x00, 0x60, 0x00, 0xa1, 0x00}))

	receipt, _, err := ApplyMessage(evm, store, callMsg(contract, nil, 100000))
	require.NoError(t, err)
	require.Len(t, receipt.Logs, 1)
	topic := types.BytesToHash([]byte{0x2a})
	assert.Equal(t, []types.Hash{topic}, receipt.Logs[0].Topics)
	assert.True(t, receipt.Bloom.Test(contract.Bytes()))
	assert.True(t, receipt.Bloom.Test(topic.Bytes()))
	assert.False(t, receipt.Bloom.Test(recipient.Bytes()))
}

func TestApplyMessageSelfdestructDeletesAccount(t *testing.T) {
	evm, store := newTestEnv(t)
	code := append([]byte{0x73}, recipient.Bytes()...) // PUSH20 recipient
	code = append(code, 0xff)                          // SELFDESTRUCT
	require.NoError(t, store.PutCode(contract, code))
	require.NoError(t, store.AddBalance(contract, uint256.NewInt(5)))

	receipt, res, err := ApplyMessage(evm, store, callMsg(contract, nil, 100000))
	require.NoError(t, err)
	require.True(t, receipt.Succeeded())
	assert.Equal(t, recipient, res.Selfdestructs[contract])

	exists, err := store.AccountExists(contract)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, uint64(5), balanceOf(t, store, recipient))

	// 21000 + 3 + 5000 + 25000 used, less the full self-destruct refund.
	assert.Equal(t, uint64(51003)-vm.GasSelfdestructRef, receipt.GasUsed)
}

func TestApplyMessageDeletesTouchedEmptyAccounts(t *testing.T) {
	evm, store := newTestEnv(t)
	require.NoError(t, store.PutAccount(recipient, types.NewAccount()))
	exists, err := store.AccountExists(recipient)
	require.NoError(t, err)
	require.True(t, exists)

	msg := callMsg(recipient, nil, 21000)
	msg.GasPrice = nil
	_, _, err = ApplyMessage(evm, store, msg)
	require.NoError(t, err)

	for _, addr := range []types.Address{recipient, coinbase} {
		exists, err := store.AccountExists(addr)
		require.NoError(t, err)
		assert.False(t, exists, addr.Hex())
	}
	// The sender is not empty and survives.
	exists, err = store.AccountExists(sender)
	require.NoError(t, err)
	assert.True(t, exists)
}

var errDisk = errors.New("disk failure")

type failingState struct {
	*state.Store
}

func (s failingState) GetStorage(addr types.Address, key types.StorageKey) ([]byte, error) {
	return nil, &state.IOError{Op: "read storage", Err: errDisk}
}

func TestApplyMessageStoreFailureRevertsEverything(t *testing.T) {
	_, store := newTestEnv(t)
	evm := vm.NewEVM(vm.BlockContext{Coinbase: coinbase}, vm.TxContext{}, vm.ChainConfig{}, failingState{store}, vm.Config{})
	require.NoError(t, store.PutCode(contract, []byte{0x60, 0x00, 0x54, 0x00})) // SLOAD(0)

	receipt, res, err := ApplyMessage(evm, store, callMsg(contract, nil, 100000))
	require.Error(t, err)
	assert.ErrorIs(t, err, errDisk)
	assert.True(t, vm.IsHardError(err))
	assert.Nil(t, receipt)
	assert.Nil(t, res)

	assert.Equal(t, 0, store.Depth())
	assert.Equal(t, initialBalance, balanceOf(t, store, sender))
	assert.Zero(t, nonceOf(t, store, sender))
	assert.Zero(t, balanceOf(t, store, coinbase))
}
