package vm

import (
	"github.com/eth2030/shyftvm/core/types"
	"github.com/holiman/uint256"
)

// Frame is the run state of one call: the code being executed, its
// context addresses, gas ledger, and everything it has produced so far.
type Frame struct {
	Caller      types.Address
	Address     types.Address // storage, balance and log context
	CodeAddress types.Address // account whose code is executing
	Code        []byte
	CodeHash    types.Hash
	Input       []byte
	Value       *uint256.Int

	Gas    uint64
	Refund uint64
	Depth  int
	Static bool

	Logs          []*types.Log
	Selfdestructs map[types.Address]types.Address

	// ReturnData is the return buffer of the last nested call.
	ReturnData []byte

	stack     *Stack
	memory    *Memory
	jumpdests bitvec

	// attestOut carries an attestation opcode's output from its gas
	// function to its execution.
	attestOut []byte
}

func newFrame(caller, address, codeAddress types.Address, value *uint256.Int, gas uint64, depth int, static bool) *Frame {
	if value == nil {
		value = new(uint256.Int)
	}
	return &Frame{
		Caller:        caller,
		Address:       address,
		CodeAddress:   codeAddress,
		Value:         value,
		Gas:           gas,
		Depth:         depth,
		Static:        static,
		Selfdestructs: make(map[types.Address]types.Address),
	}
}

// SetCode installs the code to execute.
func (f *Frame) SetCode(hash types.Hash, code []byte) {
	f.Code = code
	f.CodeHash = hash
	f.jumpdests = nil
}

// GetOp returns the opcode at position n, or STOP past the end of code.
func (f *Frame) GetOp(n uint64) OpCode {
	if n < uint64(len(f.Code)) {
		return OpCode(f.Code[n])
	}
	return STOP
}

// UseGas deducts gas. On shortfall the counter is clamped to zero and
// false is returned.
func (f *Frame) UseGas(gas uint64) bool {
	if f.Gas < gas {
		f.Gas = 0
		return false
	}
	f.Gas -= gas
	return true
}

// RefundGas returns unused gas from a nested call.
func (f *Frame) RefundGas(gas uint64) {
	f.Gas += gas
}

// Stack returns the operand stack of a running frame.
func (f *Frame) Stack() *Stack { return f.stack }

// Memory returns the memory of a running frame.
func (f *Frame) Memory() *Memory { return f.memory }

// validJumpdest reports whether dest is a JUMPDEST opcode outside of any
// PUSH immediate.
func (f *Frame) validJumpdest(dest *uint256.Int) bool {
	udest, overflow := dest.Uint64WithOverflow()
	if overflow || udest >= uint64(len(f.Code)) {
		return false
	}
	if OpCode(f.Code[udest]) != JUMPDEST {
		return false
	}
	if f.jumpdests == nil {
		f.jumpdests = codeBitmap(f.Code)
	}
	return f.jumpdests.codeSegment(udest)
}

// merge folds the results of a successfully returned child into f.
func (f *Frame) merge(res *ExecutionResult) {
	f.Logs = append(f.Logs, res.Logs...)
	f.Refund += res.Refund
	for addr, beneficiary := range res.Selfdestructs {
		f.Selfdestructs[addr] = beneficiary
	}
}
