package main

import (
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/shyftvm/core/state"
	"github.com/eth2030/shyftvm/core/types"
)

func TestParseWord(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"", 0, false},
		{"42", 42, false},
		{"0x2a", 42, false},
		{"0x002a", 42, false},
		{"0x0", 0, false},
		{"0xzz", 0, true},
		{"-1", 0, true},
		{"0x1" + strings.Repeat("0", 64), 0, true},
	}
	for _, tt := range tests {
		got, err := parseWord(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.Uint64(), tt.in)
	}
}

func TestParseAddress(t *testing.T) {
	a, err := parseAddress("0x3000000000000000000000000000000000000003")
	require.NoError(t, err)
	assert.Equal(t, types.HexToAddress("0x3000000000000000000000000000000000000003"), a)

	a, err = parseAddress("")
	require.NoError(t, err)
	assert.True(t, a.IsZero())

	_, err = parseAddress("0x3000")
	assert.Error(t, err)
}

func TestLoadPrestateErrors(t *testing.T) {
	_, err := LoadPrestate("/nonexistent/pre.toml")
	assert.ErrorIs(t, err, ErrPrestateNotFound)

	_, err = LoadPrestate(writePrestate(t, "[block\nnumber = "))
	assert.ErrorIs(t, err, ErrInvalidPrestate)

	pre, err := LoadPrestate("")
	require.NoError(t, err)
	assert.Empty(t, pre.Accounts)
}

func TestPrestateApply(t *testing.T) {
	pre, err := LoadPrestate(writePrestate(t, `
[block]
coinbase = "0xc0000000000000000000000000000000000000cb"
number = 7
timestamp = 99
baseFee = "0x10"
chainId = 5

[block.hashes]
6 = "0x0606060606060606060606060606060606060606060606060606060606060606"

[accounts."0x1000000000000000000000000000000000000001"]
balance = "0x100"
nonce = 4
code = "0x6000"
storage = { "0x01" = "0x0100" }
verification = "0x4000000000000000000000000000000000000004"

[[attestations]]
subject = "0x1000000000000000000000000000000000000001"
trustAnchor = "0xa100000000000000000000000000000000000001"
nonce = 2
jurisdiction = "CA"
expiry = 1000
revokes = [1]
replacement = "0x5000000000000000000000000000000000000005"
payload = "0xbeef"
`))
	require.NoError(t, err)

	ctx, err := pre.BlockContext()
	require.NoError(t, err)
	assert.Equal(t, types.HexToAddress("0xc0000000000000000000000000000000000000cb"), ctx.Coinbase)
	assert.Equal(t, uint64(7), ctx.BlockNumber)
	assert.Equal(t, uint64(99), ctx.Time)
	assert.Equal(t, uint64(30_000_000), ctx.GasLimit)
	assert.Equal(t, uint256.NewInt(16), ctx.BaseFee)
	assert.Equal(t, uint64(5), pre.ChainConfig().ChainID)

	store := state.NewStore(state.NewMemoryDatabase())
	require.NoError(t, pre.Apply(store))

	addr := types.HexToAddress("0x1000000000000000000000000000000000000001")
	acc, err := store.GetAccount(addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), acc.Nonce)
	assert.Equal(t, uint64(0x100), acc.Balance.Uint64())

	code, err := store.GetCode(addr)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x00}, code)

	v, err := store.GetStorage(addr, types.ContractKey(types.BytesToHash([]byte{1})))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00}, v)

	set, err := store.GetAttestations(addr)
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "CA", set[0].Jurisdiction)
	assert.Equal(t, []uint64{1}, set[0].Revokes)
	assert.Equal(t, []byte{0xbe, 0xef}, set[0].Payload)
	assert.True(t, set[0].IsRevocation())

	contract, err := store.VerificationContract(addr)
	require.NoError(t, err)
	assert.Equal(t, types.HexToAddress("0x4000000000000000000000000000000000000004"), contract)

	h, err := store.GetBlockHash(7, 6)
	require.NoError(t, err)
	assert.Equal(t, types.HexToHash("0x0606060606060606060606060606060606060606060606060606060606060606"), h)
}

func TestPrestateRejectsBadAccount(t *testing.T) {
	pre, err := LoadPrestate(writePrestate(t, `
[accounts."0x1000000000000000000000000000000000000001"]
code = "6000"
`))
	require.NoError(t, err)
	err = pre.Apply(state.NewStore(state.NewMemoryDatabase()))
	assert.ErrorIs(t, err, ErrInvalidPrestate)

	pre, err = LoadPrestate(writePrestate(t, `
[[attestations]]
nonce = 1
`))
	require.NoError(t, err)
	assert.ErrorIs(t, pre.Apply(state.NewStore(state.NewMemoryDatabase())), ErrInvalidPrestate)
}
