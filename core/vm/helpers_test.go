package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/shyftvm/core/state"
	"github.com/eth2030/shyftvm/core/types"
)

// Opcodes inside the PUSH/DUP ranges that opcodes.go does not name.
const (
	PUSH2 = PUSH1 + 1
	PUSH3 = PUSH1 + 2
	DUP2  = DUP1 + 1
)

var (
	callerAddr   = types.HexToAddress("0x1000000000000000000000000000000000000001")
	contractAddr = types.HexToAddress("0x2000000000000000000000000000000000000002")
	calleeAddr   = types.HexToAddress("0x3000000000000000000000000000000000000003")
)

func newTestEVM(t *testing.T) (*EVM, *state.Store) {
	t.Helper()
	store := state.NewStore(state.NewMemoryDatabase())
	evm := NewEVM(
		BlockContext{
			BlockNumber: 100,
			Time:        1700000000,
			GasLimit:    30_000_000,
			BaseFee:     uint256.NewInt(7),
		},
		TxContext{Origin: callerAddr, GasPrice: uint256.NewInt(1)},
		ChainConfig{ChainID: 1},
		store,
		Config{},
	)
	return evm, store
}

func runCode(t *testing.T, evm *EVM, code []byte, gas uint64) *ExecutionResult {
	t.Helper()
	res, err := evm.RunCode(RunParams{Code: code, Gas: gas, Caller: callerAddr, Address: contractAddr})
	require.NoError(t, err)
	return res
}

// pushBytes returns the PUSHn instruction pushing b.
func pushBytes(b []byte) []byte {
	return append([]byte{byte(PUSH1) + byte(len(b)-1)}, b...)
}

func pushAddr(a types.Address) []byte { return pushBytes(a.Bytes()) }

// program concatenates code fragments.
func program(parts ...[]byte) []byte {
	var code []byte
	for _, p := range parts {
		code = append(code, p...)
	}
	return code
}

// returnTop stores the top of the stack at memory 0 and returns it.
var returnTop = []byte{
	byte(PUSH1), 0, byte(MSTORE),
	byte(PUSH1), 32, byte(PUSH1), 0, byte(RETURN),
}

// returnFromOffset returns memory from the offset on top of the stack up
// to msize.
var returnFromOffset = []byte{
	byte(MSIZE), byte(DUP2), byte(SWAP1), byte(SUB), byte(SWAP1), byte(RETURN),
}

// callTo builds a CALL-family invocation. value is ignored for the kinds
// that take none.
func callTo(op OpCode, addr types.Address, gas []byte, value byte, retOffset, retSize byte) []byte {
	code := []byte{byte(PUSH1), retSize, byte(PUSH1), retOffset, byte(PUSH1), 0, byte(PUSH1), 0}
	if op == CALL || op == CALLCODE {
		code = append(code, byte(PUSH1), value)
	}
	code = append(code, pushAddr(addr)...)
	code = append(code, pushBytes(gas)...)
	return append(code, byte(op))
}

func wordResult(t *testing.T, res *ExecutionResult) *uint256.Int {
	t.Helper()
	require.NoError(t, res.Err)
	require.Len(t, res.ReturnData, 32)
	return new(uint256.Int).SetBytes(res.ReturnData)
}

func installCode(t *testing.T, store *state.Store, addr types.Address, code []byte) {
	t.Helper()
	require.NoError(t, store.PutCode(addr, code))
}
