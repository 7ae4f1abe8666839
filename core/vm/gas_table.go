package vm

import (
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"

	"github.com/eth2030/shyftvm/core/types"
)

// dynamicGasFunc computes the part of an operation's cost that depends on
// its operands, memory growth or state.
type dynamicGasFunc func(evm *EVM, frame *Frame, stack *Stack, mem *Memory, memorySize uint64) (uint64, error)

// maxMemorySize bounds memory so that the quadratic cost fits in a uint64.
const maxMemorySize = 0x1FFFFFFFE0

// toWordSize returns the number of 32-byte words needed for size bytes.
func toWordSize(size uint64) uint64 {
	if size > ^uint64(0)-31 {
		return ^uint64(0)/32 + 1
	}
	return (size + 31) / 32
}

// memoryGasCost returns the marginal cost of growing memory to
// newMemSize: 3 per word plus words²/512, less what was already paid.
func memoryGasCost(mem *Memory, newMemSize uint64) (uint64, error) {
	if newMemSize == 0 {
		return 0, nil
	}
	if newMemSize > maxMemorySize {
		return 0, ErrGasUintOverflow
	}
	newMemSizeWords := toWordSize(newMemSize)
	newMemSize = newMemSizeWords * 32

	if newMemSize > uint64(mem.Len()) {
		square := newMemSizeWords * newMemSizeWords
		linCoef := newMemSizeWords * GasMemory
		quadCoef := square / QuadCoeffDiv
		newTotalFee := linCoef + quadCoef

		fee := newTotalFee - mem.lastGasCost
		mem.lastGasCost = newTotalFee
		return fee, nil
	}
	return 0, nil
}

func gasMemory(evm *EVM, frame *Frame, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

// memoryCopierGas charges memory growth plus GasCopy per word of the
// length found at stackpos.
func memoryCopierGas(stackpos int) dynamicGasFunc {
	return func(evm *EVM, frame *Frame, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		words, overflow := stack.Back(stackpos).Uint64WithOverflow()
		if overflow {
			return 0, ErrGasUintOverflow
		}
		if words, overflow = math.SafeMul(toWordSize(words), GasCopy); overflow {
			return 0, ErrGasUintOverflow
		}
		if gas, overflow = math.SafeAdd(gas, words); overflow {
			return 0, ErrGasUintOverflow
		}
		return gas, nil
	}
}

var (
	gasCallDataCopy   = memoryCopierGas(2)
	gasCodeCopy       = memoryCopierGas(2)
	gasExtCodeCopy    = memoryCopierGas(3)
	gasReturnDataCopy = memoryCopierGas(2)
)

func gasSha3(evm *EVM, frame *Frame, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	wordGas, overflow := stack.Back(1).Uint64WithOverflow()
	if overflow {
		return 0, ErrGasUintOverflow
	}
	if wordGas, overflow = math.SafeMul(toWordSize(wordGas), GasSha3Word); overflow {
		return 0, ErrGasUintOverflow
	}
	if gas, overflow = math.SafeAdd(gas, wordGas); overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

// gasExp charges GasExpByte for every byte of the exponent's minimal
// big-endian encoding.
func gasExp(evm *EVM, frame *Frame, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	expByteLen := uint64((stack.Back(1).BitLen() + 7) / 8)
	return expByteLen * GasExpByte, nil
}

func makeGasLog(n uint64) dynamicGasFunc {
	return func(evm *EVM, frame *Frame, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		requestedSize, overflow := stack.Back(1).Uint64WithOverflow()
		if overflow {
			return 0, ErrGasUintOverflow
		}
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		if gas, overflow = math.SafeAdd(gas, n*GasLogTopic); overflow {
			return 0, ErrGasUintOverflow
		}
		var memorySizeGas uint64
		if memorySizeGas, overflow = math.SafeMul(requestedSize, GasLogData); overflow {
			return 0, ErrGasUintOverflow
		}
		if gas, overflow = math.SafeAdd(gas, memorySizeGas); overflow {
			return 0, ErrGasUintOverflow
		}
		return gas, nil
	}
}

// gasSStore prices a store by the transition of the slot's value. Clearing
// a slot also credits the frame's refund counter.
func gasSStore(evm *EVM, frame *Frame, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	key := types.WordToHash(stack.Back(0))
	current, err := evm.StateDB.GetStorage(frame.Address, types.ContractKey(key))
	if err != nil {
		return 0, stateErr("read storage", err)
	}
	currentZero := len(types.TrimLeftZeroes(current)) == 0
	newZero := stack.Back(1).IsZero()
	switch {
	case currentZero && !newZero:
		return GasSstoreSet, nil
	case !currentZero && newZero:
		frame.Refund += GasSstoreRefund
		return GasSstoreReset, nil
	default:
		return GasSstoreReset, nil
	}
}

// newAccountGas returns GasCallNewAccount when addr is missing or empty.
func newAccountGas(evm *EVM, addr types.Address) (uint64, error) {
	empty, err := evm.StateDB.AccountIsEmpty(addr)
	if err != nil {
		return 0, stateErr("read account", err)
	}
	if empty {
		return GasCallNewAccount, nil
	}
	return 0, nil
}

func gasCall(evm *EVM, frame *Frame, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	transfersValue := !stack.Back(2).IsZero()
	if frame.Static && transfersValue {
		return 0, ErrStaticStateChange
	}
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	if transfersValue {
		newAccount, err := newAccountGas(evm, types.WordToAddress(stack.Back(1)))
		if err != nil {
			return 0, err
		}
		gas += GasCallValue + newAccount
	}
	return addCallGas(evm, frame, stack, gas)
}

func gasCallCode(evm *EVM, frame *Frame, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	if !stack.Back(2).IsZero() {
		gas += GasCallValue
	}
	return addCallGas(evm, frame, stack, gas)
}

func gasDelegateCall(evm *EVM, frame *Frame, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	return addCallGas(evm, frame, stack, gas)
}

var gasStaticCall = gasDelegateCall

// addCallGas reserves the gas forwarded to the child on top of the
// surcharges already computed. The reserved amount is stashed for the
// instruction, which hands back whatever the child leaves unused.
func addCallGas(evm *EVM, frame *Frame, stack *Stack, gas uint64) (uint64, error) {
	var err error
	evm.callGasTemp, err = callGas(frame.Gas, gas, stack.Back(0))
	if err != nil {
		return 0, err
	}
	total, overflow := math.SafeAdd(gas, evm.callGasTemp)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return total, nil
}

func gasCreate2(evm *EVM, frame *Frame, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	size, overflow := stack.Back(2).Uint64WithOverflow()
	if overflow {
		return 0, ErrGasUintOverflow
	}
	hashGas, overflow := math.SafeMul(toWordSize(size), GasSha3Word)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	if gas, overflow = math.SafeAdd(gas, hashGas); overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

// gasSelfdestruct charges for funding a fresh beneficiary and credits the
// refund the first time the frame's account destructs.
func gasSelfdestruct(evm *EVM, frame *Frame, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	var gas uint64
	balance, err := evm.StateDB.GetBalance(frame.Address)
	if err != nil {
		return 0, stateErr("read balance", err)
	}
	if !balance.IsZero() {
		if gas, err = newAccountGas(evm, types.WordToAddress(stack.Back(0))); err != nil {
			return 0, err
		}
	}
	if _, done := frame.Selfdestructs[frame.Address]; !done {
		frame.Refund += GasSelfdestructRef
	}
	return gas, nil
}

// attestMeter accumulates the memory cost of an attestation opcode. It
// grows memory for reads only while the frame can still pay for them.
type attestMeter struct {
	frame *Frame
	mem   *Memory
	gas   uint64
}

func (m *attestMeter) charge(gas uint64) error {
	total, overflow := math.SafeAdd(m.gas, gas)
	if overflow {
		return ErrGasUintOverflow
	}
	if total > m.frame.Gas {
		return ErrOutOfGas
	}
	m.gas = total
	return nil
}

// read charges for reading size bytes at offset and grows memory to cover
// the window.
func (m *attestMeter) read(offset *uint256.Int, size uint64) (uint64, error) {
	end, overflow := calcMemSize64WithUint(offset, size)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	gas, err := memoryGasCost(m.mem, end)
	if err != nil {
		return 0, err
	}
	if err := m.charge(gas); err != nil {
		return 0, err
	}
	if end > 0 {
		m.mem.Resize(toWordSize(end) * 32)
	}
	return offset.Uint64(), nil
}

// output charges for writing size bytes at the current end of memory:
// expansion plus GasCopy per word. Memory is grown by the write itself.
func (m *attestMeter) output(size uint64) error {
	end, overflow := math.SafeAdd(uint64(m.mem.Len()), size)
	if overflow {
		return ErrGasUintOverflow
	}
	gas, err := memoryGasCost(m.mem, end)
	if err != nil {
		return err
	}
	copyGas, overflow := math.SafeMul(toWordSize(size), GasCopy)
	if overflow {
		return ErrGasUintOverflow
	}
	if gas, overflow = math.SafeAdd(gas, copyGas); overflow {
		return ErrGasUintOverflow
	}
	return m.charge(gas)
}
