// Package vm implements the bytecode interpreter: run state, opcode table,
// the step loop and the call/create dispatcher.
package vm

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/eth2030/shyftvm/core/types"
	"github.com/eth2030/shyftvm/log"
)

// DefaultMaxCallDepth is the deepest nesting of calls and creates.
const DefaultMaxCallDepth = 1024

// BlockContext provides the interpreter with block-level information.
type BlockContext struct {
	Coinbase    types.Address
	GasLimit    uint64
	BlockNumber uint64
	Time        uint64
	Difficulty  *uint256.Int
	BaseFee     *uint256.Int
}

// TxContext provides the interpreter with transaction-level information.
type TxContext struct {
	Origin   types.Address
	GasPrice *uint256.Int
}

// ChainConfig holds chain-wide parameters visible to contracts.
type ChainConfig struct {
	ChainID uint64
}

// Config holds interpreter options.
type Config struct {
	Tracer       Tracer
	MaxCallDepth int
}

// StateDB is the world state the interpreter reads and writes. Every
// method that returns an error reports a store failure, which aborts the
// whole transaction. *state.Store implements it.
type StateDB interface {
	AccountExists(addr types.Address) (bool, error)
	AccountIsEmpty(addr types.Address) (bool, error)
	CreateAccount(addr types.Address) error
	Touch(addr types.Address)

	GetBalance(addr types.Address) (*uint256.Int, error)
	AddBalance(addr types.Address, amount *uint256.Int) error
	SubBalance(addr types.Address, amount *uint256.Int) error
	GetNonce(addr types.Address) (uint64, error)
	SetNonce(addr types.Address, nonce uint64) error

	GetCode(addr types.Address) ([]byte, error)
	GetCodeHash(addr types.Address) (types.Hash, error)
	PutCode(addr types.Address, code []byte) error

	GetStorage(addr types.Address, key types.StorageKey) ([]byte, error)
	PutStorage(addr types.Address, key types.StorageKey, value []byte) error

	GetAttestations(addr types.Address) (types.AttestationSet, error)
	GetBlockHash(current, number uint64) (types.Hash, error)

	Checkpoint()
	Commit() error
	Revert() error
}

// EVM executes code against a StateDB within one block and transaction
// context. It is not safe for concurrent use; each transaction gets its
// own instance.
type EVM struct {
	Context     BlockContext
	TxContext   TxContext
	ChainConfig ChainConfig
	Config      Config
	StateDB     StateDB

	table *JumpTable
	log   *log.Logger

	// callGasTemp carries the gas reserved by a call's dynamic gas
	// function over to its execution.
	callGasTemp uint64
}

// NewEVM creates an interpreter bound to statedb.
func NewEVM(blockCtx BlockContext, txCtx TxContext, chain ChainConfig, statedb StateDB, config Config) *EVM {
	if config.MaxCallDepth == 0 {
		config.MaxCallDepth = DefaultMaxCallDepth
	}
	return &EVM{
		Context:     blockCtx,
		TxContext:   txCtx,
		ChainConfig: chain,
		Config:      config,
		StateDB:     statedb,
		table:       NewJumpTable(),
		log:         log.Default().Module("vm"),
	}
}

// SetTxContext replaces the transaction context so one EVM can run
// several transactions of a block in turn.
func (evm *EVM) SetTxContext(txCtx TxContext) {
	evm.TxContext = txCtx
}

// run executes the frame's code until it halts or traps. It returns the
// frame's output together with ErrExecutionReverted for REVERT, a
// call-local exception, or a *StateError.
func (evm *EVM) run(frame *Frame) (ret []byte, err error) {
	if len(frame.Code) == 0 {
		return nil, nil
	}

	var (
		pc     uint64
		stack  = NewStack()
		memory = NewMemory()
		tracer = evm.Config.Tracer
	)
	frame.stack, frame.memory = stack, memory
	defer func() {
		ReturnStack(stack)
		frame.stack = nil
	}()

	for {
		op := frame.GetOp(pc)
		operation := evm.table[op]
		if operation == nil {
			return nil, invalidOpCode(op)
		}
		opCounter.Inc()

		if sLen := stack.Len(); sLen < operation.minStack {
			return nil, ErrStackUnderflow
		} else if sLen > operation.maxStack {
			return nil, ErrStackOverflow
		}
		if frame.Static && operation.writes {
			return nil, ErrStaticStateChange
		}

		cost := operation.constantGas
		if !frame.UseGas(cost) {
			return nil, ErrOutOfGas
		}

		var memorySize uint64
		if operation.memorySize != nil {
			memSize, overflow := operation.memorySize(stack)
			if overflow {
				frame.Gas = 0
				return nil, ErrGasUintOverflow
			}
			if memorySize = toWordSize(memSize) * 32; memorySize/32 != toWordSize(memSize) {
				frame.Gas = 0
				return nil, ErrGasUintOverflow
			}
		}
		if operation.dynamicGas != nil {
			dynamicCost, err := operation.dynamicGas(evm, frame, stack, memory, memorySize)
			if err != nil {
				if !IsHardError(err) {
					frame.Gas = 0
				}
				return nil, err
			}
			cost += dynamicCost
			if !frame.UseGas(dynamicCost) {
				return nil, ErrOutOfGas
			}
		}

		opClassGas[op].Add(cost)

		if tracer != nil {
			tracer.CaptureState(&StepEvent{
				PC:      pc,
				Op:      op,
				Gas:     frame.Gas + cost,
				GasCost: cost,
				Stack:   stack.Data(),
				Depth:   frame.Depth,
			})
		}

		if memorySize > 0 {
			memory.Resize(memorySize)
		}

		res, err := operation.execute(&pc, evm, frame, memory, stack)
		if err != nil {
			if errors.Is(err, ErrExecutionReverted) {
				return res, err
			}
			return nil, err
		}
		if operation.halts {
			return res, nil
		}
		if !operation.jumps {
			pc++
		}
	}
}
