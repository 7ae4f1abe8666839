package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eth2030/shyftvm/core/types"
)

func TestKeccak256(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte{}, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{[]byte("hello"), "1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, hex.EncodeToString(Keccak256(tt.in)))
	}
}

func TestKeccak256MultipleInputs(t *testing.T) {
	require.Equal(t, Keccak256([]byte("helloworld")), Keccak256([]byte("hello"), []byte("world")))
}

func TestKeccak256HashMatchesEmptyCodeHash(t *testing.T) {
	require.Equal(t, types.EmptyCodeHash, Keccak256Hash(nil))
}

func TestKeccak256HashPooledHasherIsReset(t *testing.T) {
	first := Keccak256Hash([]byte("hello"))
	Keccak256([]byte("world"))
	require.Equal(t, first, Keccak256Hash([]byte("hello")))
}

func TestCreateAddressVector(t *testing.T) {
	sender := types.HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	require.Equal(t, types.HexToAddress("0xcd234a471b72ba2f1ccf0a70fcaba648a5eecd8d"), CreateAddress(sender, 0))
	require.Equal(t, types.HexToAddress("0x343c43a37d37dff08ae8c4a11544c718abb4fcf8"), CreateAddress(sender, 1))
}

func TestCreateAddress2Vector(t *testing.T) {
	// EIP-1014 example 1: zero sender, zero salt, init code 0x00.
	got := CreateAddress2(types.Address{}, types.Hash{}, Keccak256([]byte{0x00}))
	require.Equal(t, types.HexToAddress("0x4D1A2e2bB4F88F0250f26Ffff098B0b30B26BF38"), got)
}
