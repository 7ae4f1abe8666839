package vm

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eth2030/shyftvm/core/types"
	"github.com/eth2030/shyftvm/crypto"
)

func opAdd(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	y.Add(&x, y)
	return nil, nil
}

func opSub(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	y.Sub(&x, y)
	return nil, nil
}

func opMul(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	y.Mul(&x, y)
	return nil, nil
}

func opDiv(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	y.Div(&x, y)
	return nil, nil
}

func opSdiv(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	y.SDiv(&x, y)
	return nil, nil
}

func opMod(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	y.Mod(&x, y)
	return nil, nil
}

func opSmod(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	y.SMod(&x, y)
	return nil, nil
}

func opExp(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	base, exponent := stack.Pop(), stack.Peek()
	exponent.Exp(&base, exponent)
	return nil, nil
}

func opSignExtend(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	back, num := stack.Pop(), stack.Peek()
	num.ExtendSign(num, &back)
	return nil, nil
}

func opNot(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Peek()
	x.Not(x)
	return nil, nil
}

func opLt(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opGt(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSlt(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSgt(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opEq(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opIszero(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	return nil, nil
}

func opAnd(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	y.And(&x, y)
	return nil, nil
}

func opOr(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	y.Or(&x, y)
	return nil, nil
}

func opXor(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y := stack.Pop(), stack.Peek()
	y.Xor(&x, y)
	return nil, nil
}

func opByte(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	th, val := stack.Pop(), stack.Peek()
	val.Byte(&th)
	return nil, nil
}

func opAddmod(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y, z := stack.Pop(), stack.Pop(), stack.Peek()
	z.AddMod(&x, &y, z)
	return nil, nil
}

func opMulmod(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x, y, z := stack.Pop(), stack.Pop(), stack.Peek()
	z.MulMod(&x, &y, z)
	return nil, nil
}

func opSHL(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	shift, value := stack.Pop(), stack.Peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSHR(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	shift, value := stack.Pop(), stack.Peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSAR(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	shift, value := stack.Pop(), stack.Peek()
	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
		return nil, nil
	}
	value.SRsh(value, uint(shift.Uint64()))
	return nil, nil
}

func opSha3(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	offset, size := stack.Pop(), stack.Peek()
	data := memory.GetPtr(offset.Uint64(), size.Uint64())
	size.SetBytes(crypto.Keccak256(data))
	return nil, nil
}

func opAddress(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(frame.Address.Word())
	return nil, nil
}

func opBalance(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	slot := stack.Peek()
	balance, err := evm.StateDB.GetBalance(types.WordToAddress(slot))
	if err != nil {
		return nil, stateErr("read balance", err)
	}
	slot.Set(balance)
	return nil, nil
}

func opOrigin(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(evm.TxContext.Origin.Word())
	return nil, nil
}

func opCaller(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(frame.Caller.Word())
	return nil, nil
}

func opCallValue(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(frame.Value)
	return nil, nil
}

func opCallDataLoad(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Peek()
	if offset, overflow := x.Uint64WithOverflow(); !overflow {
		x.SetBytes(getData(frame.Input, offset, 32))
	} else {
		x.Clear()
	}
	return nil, nil
}

func opCallDataSize(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(uint256.NewInt(uint64(len(frame.Input))))
	return nil, nil
}

func opCallDataCopy(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	memOffset, dataOffset, length := stack.Pop(), stack.Pop(), stack.Pop()
	dataOffset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		dataOffset64 = ^uint64(0)
	}
	memory.Set(memOffset.Uint64(), length.Uint64(), getData(frame.Input, dataOffset64, length.Uint64()))
	return nil, nil
}

func opCodeSize(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(uint256.NewInt(uint64(len(frame.Code))))
	return nil, nil
}

func opCodeCopy(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	memOffset, codeOffset, length := stack.Pop(), stack.Pop(), stack.Pop()
	uint64CodeOffset, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		uint64CodeOffset = ^uint64(0)
	}
	memory.Set(memOffset.Uint64(), length.Uint64(), getData(frame.Code, uint64CodeOffset, length.Uint64()))
	return nil, nil
}

func opGasprice(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(wordOrZero(evm.TxContext.GasPrice))
	return nil, nil
}

func opExtCodeSize(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	slot := stack.Peek()
	code, err := evm.StateDB.GetCode(types.WordToAddress(slot))
	if err != nil {
		return nil, stateErr("read code", err)
	}
	slot.SetUint64(uint64(len(code)))
	return nil, nil
}

func opExtCodeCopy(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	a, memOffset, codeOffset, length := stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop()
	uint64CodeOffset, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		uint64CodeOffset = ^uint64(0)
	}
	code, err := evm.StateDB.GetCode(types.WordToAddress(&a))
	if err != nil {
		return nil, stateErr("read code", err)
	}
	memory.Set(memOffset.Uint64(), length.Uint64(), getData(code, uint64CodeOffset, length.Uint64()))
	return nil, nil
}

func opReturnDataSize(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(uint256.NewInt(uint64(len(frame.ReturnData))))
	return nil, nil
}

func opReturnDataCopy(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	memOffset, dataOffset, length := stack.Pop(), stack.Pop(), stack.Pop()
	offset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		return nil, ErrReturnDataOutOfBounds
	}
	var end uint256.Int
	end.Add(&dataOffset, &length)
	end64, overflow := end.Uint64WithOverflow()
	if overflow || uint64(len(frame.ReturnData)) < end64 {
		return nil, ErrReturnDataOutOfBounds
	}
	memory.Set(memOffset.Uint64(), length.Uint64(), frame.ReturnData[offset64:end64])
	return nil, nil
}

func opExtCodeHash(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	slot := stack.Peek()
	addr := types.WordToAddress(slot)
	empty, err := evm.StateDB.AccountIsEmpty(addr)
	if err != nil {
		return nil, stateErr("read account", err)
	}
	if empty {
		slot.Clear()
		return nil, nil
	}
	hash, err := evm.StateDB.GetCodeHash(addr)
	if err != nil {
		return nil, stateErr("read code hash", err)
	}
	slot.SetBytes(hash.Bytes())
	return nil, nil
}

func opBlockhash(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	num := stack.Peek()
	num64, overflow := num.Uint64WithOverflow()
	if overflow {
		num.Clear()
		return nil, nil
	}
	hash, err := evm.StateDB.GetBlockHash(evm.Context.BlockNumber, num64)
	if err != nil {
		return nil, stateErr("read block hash", err)
	}
	num.SetBytes(hash.Bytes())
	return nil, nil
}

func opCoinbase(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(evm.Context.Coinbase.Word())
	return nil, nil
}

func opTimestamp(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(uint256.NewInt(evm.Context.Time))
	return nil, nil
}

func opNumber(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(uint256.NewInt(evm.Context.BlockNumber))
	return nil, nil
}

func opDifficulty(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(wordOrZero(evm.Context.Difficulty))
	return nil, nil
}

func opGasLimit(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(uint256.NewInt(evm.Context.GasLimit))
	return nil, nil
}

func opChainID(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(uint256.NewInt(evm.ChainConfig.ChainID))
	return nil, nil
}

func opSelfBalance(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	balance, err := evm.StateDB.GetBalance(frame.Address)
	if err != nil {
		return nil, stateErr("read balance", err)
	}
	stack.Push(balance)
	return nil, nil
}

func opBaseFee(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(wordOrZero(evm.Context.BaseFee))
	return nil, nil
}

func opPop(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Pop()
	return nil, nil
}

func opMload(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	v := stack.Peek()
	offset := v.Uint64()
	v.SetBytes(memory.GetPtr(offset, 32))
	return nil, nil
}

func opMstore(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	mStart, val := stack.Pop(), stack.Pop()
	memory.Set32(mStart.Uint64(), &val)
	return nil, nil
}

func opMstore8(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	off, val := stack.Pop(), stack.Pop()
	memory.Set(off.Uint64(), 1, []byte{byte(val.Uint64())})
	return nil, nil
}

func opSload(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	loc := stack.Peek()
	val, err := evm.StateDB.GetStorage(frame.Address, types.ContractKey(types.WordToHash(loc)))
	if err != nil {
		return nil, stateErr("read storage", err)
	}
	loc.Set(types.BytesToWord(val))
	return nil, nil
}

func opSstore(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	loc, val := stack.Pop(), stack.Pop()
	key := types.ContractKey(types.WordToHash(&loc))
	if err := evm.StateDB.PutStorage(frame.Address, key, types.TrimLeftZeroes(types.WordToBytes(&val))); err != nil {
		return nil, stateErr("write storage", err)
	}
	return nil, nil
}

func opJump(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	pos := stack.Pop()
	if !frame.validJumpdest(&pos) {
		return nil, ErrInvalidJump
	}
	*pc = pos.Uint64()
	return nil, nil
}

func opJumpi(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	pos, cond := stack.Pop(), stack.Pop()
	if cond.IsZero() {
		*pc++
		return nil, nil
	}
	if !frame.validJumpdest(&pos) {
		return nil, ErrInvalidJump
	}
	*pc = pos.Uint64()
	return nil, nil
}

func opJumpdest(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, nil
}

func opPc(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(uint256.NewInt(*pc))
	return nil, nil
}

func opMsize(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(uint256.NewInt(uint64(memory.Len())))
	return nil, nil
}

func opGas(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(uint256.NewInt(frame.Gas))
	return nil, nil
}

func opPush0(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Push(new(uint256.Int))
	return nil, nil
}

// makePush reads size immediate bytes after the opcode, zero padding past
// the end of code.
func makePush(size uint64) executionFunc {
	return func(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
		codeLen := uint64(len(frame.Code))
		start := min(codeLen, *pc+1)
		end := min(codeLen, start+size)

		var v uint256.Int
		v.SetBytes(common.RightPadBytes(frame.Code[start:end], int(size)))
		stack.Push(&v)
		*pc += size
		return nil, nil
	}
}

func makeDup(size int) executionFunc {
	return func(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
		stack.Dup(size)
		return nil, nil
	}
}

func makeSwap(size int) executionFunc {
	return func(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
		stack.Swap(size)
		return nil, nil
	}
}

func makeLog(size int) executionFunc {
	return func(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
		mStart, mSize := stack.Pop(), stack.Pop()
		topics := make([]types.Hash, size)
		for i := 0; i < size; i++ {
			topic := stack.Pop()
			topics[i] = types.WordToHash(&topic)
		}
		frame.Logs = append(frame.Logs, &types.Log{
			Address: frame.Address,
			Topics:  topics,
			Data:    memory.GetCopy(mStart.Uint64(), mSize.Uint64()),
		})
		return nil, nil
	}
}

func opStop(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, nil
}

func opReturn(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	offset, size := stack.Pop(), stack.Pop()
	return memory.GetCopy(offset.Uint64(), size.Uint64()), nil
}

func opRevert(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	offset, size := stack.Pop(), stack.Pop()
	return memory.GetCopy(offset.Uint64(), size.Uint64()), ErrExecutionReverted
}

// opSelfdestruct moves the whole balance to the beneficiary and records
// the account for removal at the end of the transaction.
func opSelfdestruct(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	top := stack.Pop()
	beneficiary := types.WordToAddress(&top)
	balance, err := evm.StateDB.GetBalance(frame.Address)
	if err != nil {
		return nil, stateErr("read balance", err)
	}
	if beneficiary != frame.Address {
		if err := evm.StateDB.SubBalance(frame.Address, balance); err != nil {
			return nil, stateErr("write balance", err)
		}
		if err := evm.StateDB.AddBalance(beneficiary, balance); err != nil {
			return nil, stateErr("write balance", err)
		}
	}
	frame.Selfdestructs[frame.Address] = beneficiary
	return nil, nil
}

func opCreate(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	value, offset, size := stack.Pop(), stack.Pop(), stack.Pop()
	input := memory.GetCopy(offset.Uint64(), size.Uint64())
	gas := frame.Gas
	gas -= gas / 64
	frame.UseGas(gas)

	res, err := evm.create(frame.Address, input, gas, &value, frame.Depth+1, nil)
	if err != nil {
		return nil, err
	}
	return nil, finishCreate(frame, stack, res)
}

func opCreate2(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	value, offset, size, salt := stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop()
	input := memory.GetCopy(offset.Uint64(), size.Uint64())
	gas := frame.Gas
	gas -= gas / 64
	frame.UseGas(gas)

	res, err := evm.create(frame.Address, input, gas, &value, frame.Depth+1, &salt)
	if err != nil {
		return nil, err
	}
	return nil, finishCreate(frame, stack, res)
}

// finishCreate folds a child creation back into the parent: unused gas is
// returned, the new address (or 0) is pushed, and the return buffer keeps
// revert data only.
func finishCreate(frame *Frame, stack *Stack, res *ExecutionResult) error {
	frame.RefundGas(res.GasLeft)
	var addr uint256.Int
	if res.Err == nil {
		addr.SetBytes(res.CreatedAddress.Bytes())
		frame.merge(res)
	}
	if errors.Is(res.Err, ErrExecutionReverted) {
		frame.ReturnData = res.ReturnData
	} else {
		frame.ReturnData = nil
	}
	stack.Push(&addr)
	return nil
}

func opCall(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Pop()
	gas := evm.callGasTemp
	addr, value, inOffset, inSize, retOffset, retSize := stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop()
	toAddr := types.WordToAddress(&addr)
	args := memory.GetCopy(inOffset.Uint64(), inSize.Uint64())

	res, err := evm.call(callParams{
		kind:        KindCall,
		caller:      frame.Address,
		address:     toAddr,
		codeAddress: toAddr,
		input:       args,
		gas:         gas,
		stipend:     stipendFor(&value),
		value:       &value,
		depth:       frame.Depth + 1,
		static:      frame.Static,
	})
	if err != nil {
		return nil, err
	}
	finishCall(frame, memory, stack, res, &retOffset, &retSize)
	return nil, nil
}

func opCallCode(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Pop()
	gas := evm.callGasTemp
	addr, value, inOffset, inSize, retOffset, retSize := stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop()
	toAddr := types.WordToAddress(&addr)
	args := memory.GetCopy(inOffset.Uint64(), inSize.Uint64())

	res, err := evm.call(callParams{
		kind:        KindCallCode,
		caller:      frame.Address,
		address:     frame.Address,
		codeAddress: toAddr,
		input:       args,
		gas:         gas,
		stipend:     stipendFor(&value),
		value:       &value,
		depth:       frame.Depth + 1,
		static:      frame.Static,
	})
	if err != nil {
		return nil, err
	}
	finishCall(frame, memory, stack, res, &retOffset, &retSize)
	return nil, nil
}

func opDelegateCall(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Pop()
	gas := evm.callGasTemp
	addr, inOffset, inSize, retOffset, retSize := stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop()
	toAddr := types.WordToAddress(&addr)
	args := memory.GetCopy(inOffset.Uint64(), inSize.Uint64())

	res, err := evm.call(callParams{
		kind:        KindDelegateCall,
		caller:      frame.Caller,
		address:     frame.Address,
		codeAddress: toAddr,
		input:       args,
		gas:         gas,
		value:       frame.Value,
		depth:       frame.Depth + 1,
		static:      frame.Static,
	})
	if err != nil {
		return nil, err
	}
	finishCall(frame, memory, stack, res, &retOffset, &retSize)
	return nil, nil
}

func opStaticCall(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Pop()
	gas := evm.callGasTemp
	addr, inOffset, inSize, retOffset, retSize := stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop()
	toAddr := types.WordToAddress(&addr)
	args := memory.GetCopy(inOffset.Uint64(), inSize.Uint64())

	res, err := evm.call(callParams{
		kind:        KindStaticCall,
		caller:      frame.Address,
		address:     toAddr,
		codeAddress: toAddr,
		input:       args,
		gas:         gas,
		value:       new(uint256.Int),
		depth:       frame.Depth + 1,
		static:      true,
	})
	if err != nil {
		return nil, err
	}
	finishCall(frame, memory, stack, res, &retOffset, &retSize)
	return nil, nil
}

func stipendFor(value *uint256.Int) uint64 {
	if value.IsZero() {
		return 0
	}
	return GasCallStipend
}

// finishCall folds a child call back into the parent. STOP, RETURN and
// REVERT push 1 and write the returned data into the output window; only
// STOP and RETURN merge logs, refunds and self-destructs.
func finishCall(frame *Frame, memory *Memory, stack *Stack, res *ExecutionResult, retOffset, retSize *uint256.Int) {
	frame.RefundGas(res.GasLeft)
	var flag uint256.Int
	if res.Err == nil || errors.Is(res.Err, ErrExecutionReverted) {
		flag.SetOne()
		writeWindow(memory, retOffset.Uint64(), retSize.Uint64(), res.ReturnData)
	}
	if res.Err == nil {
		frame.merge(res)
	}
	frame.ReturnData = res.ReturnData
	stack.Push(&flag)
}

// writeWindow copies data into memory[offset:offset+size], truncating
// and zero padding to the window.
func writeWindow(memory *Memory, offset, size uint64, data []byte) {
	if size == 0 {
		return
	}
	window := memory.GetPtr(offset, size)
	n := copy(window, data)
	clear(window[n:])
}

// getData returns size bytes of data from start, zero padded past the end.
func getData(data []byte, start uint64, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length || end < start {
		end = length
	}
	return common.RightPadBytes(data[start:end], int(size))
}

func wordOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
