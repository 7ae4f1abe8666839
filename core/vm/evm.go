package vm

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/eth2030/shyftvm/core/types"
	"github.com/eth2030/shyftvm/crypto"
)

// CallKind distinguishes the ways a frame can be entered.
type CallKind uint8

const (
	KindCall CallKind = iota
	KindCallCode
	KindDelegateCall
	KindStaticCall
	KindCreate
	KindCreate2
)

func (k CallKind) String() string {
	switch k {
	case KindCall:
		return "CALL"
	case KindCallCode:
		return "CALLCODE"
	case KindDelegateCall:
		return "DELEGATECALL"
	case KindStaticCall:
		return "STATICCALL"
	case KindCreate:
		return "CREATE"
	case KindCreate2:
		return "CREATE2"
	default:
		return "UNKNOWN"
	}
}

// ExecutionResult is the outcome of a frame as seen by its caller.
type ExecutionResult struct {
	ReturnData []byte
	GasUsed    uint64
	GasLeft    uint64
	// Err is nil for STOP and RETURN, ErrExecutionReverted for REVERT, or
	// the call-local exception that aborted the frame.
	Err            error
	Logs           []*types.Log
	Selfdestructs  map[types.Address]types.Address
	Refund         uint64
	CreatedAddress types.Address
}

// Failed reports whether the frame ended any other way than STOP or
// RETURN.
func (r *ExecutionResult) Failed() bool { return r.Err != nil }

// ExceptionError returns the exception tag of the result.
func (r *ExecutionResult) ExceptionError() string { return ExceptionTag(r.Err) }

// Revert returns the data of a REVERT, or nil.
func (r *ExecutionResult) Revert() []byte {
	if !errors.Is(r.Err, ErrExecutionReverted) {
		return nil
	}
	return r.ReturnData
}

type callParams struct {
	kind        CallKind
	caller      types.Address
	address     types.Address // storage context of the child
	codeAddress types.Address
	code        []byte // set when the code does not come from codeAddress
	input       []byte
	gas         uint64
	stipend     uint64
	value       *uint256.Int
	depth       int
	static      bool
}

// transfers reports whether the call moves value between accounts.
func (p *callParams) transfers() bool {
	return p.kind != KindDelegateCall && p.kind != KindStaticCall && p.value != nil && !p.value.IsZero()
}

// precheck enforces the depth limit and the caller's balance. A failure
// creates no child frame and consumes none of the forwarded gas.
func (evm *EVM) precheck(depth int, caller types.Address, value *uint256.Int, checkBalance bool) error {
	if depth > evm.Config.MaxCallDepth {
		return ErrDepth
	}
	if checkBalance && value != nil && !value.IsZero() {
		balance, err := evm.StateDB.GetBalance(caller)
		if err != nil {
			return stateErr("read balance", err)
		}
		if balance.Lt(value) {
			return ErrInsufficientBalance
		}
	}
	return nil
}

func (evm *EVM) transfer(from, to types.Address, value *uint256.Int) error {
	if err := evm.StateDB.SubBalance(from, value); err != nil {
		return stateErr("write balance", err)
	}
	if err := evm.StateDB.AddBalance(to, value); err != nil {
		return stateErr("write balance", err)
	}
	return nil
}

// call runs a message call in a child frame under its own checkpoint. The
// returned error is only ever a hard store failure; call-local outcomes
// are reported in the result.
func (evm *EVM) call(p callParams) (*ExecutionResult, error) {
	if err := evm.precheck(p.depth, p.caller, p.value, p.kind != KindDelegateCall); err != nil {
		if IsHardError(err) {
			return nil, err
		}
		callFailCounter.Inc()
		return &ExecutionResult{GasLeft: p.gas, Err: err}, nil
	}
	callCounter.Inc()

	evm.StateDB.Checkpoint()
	if p.kind == KindCall {
		evm.StateDB.Touch(p.address)
		if p.transfers() {
			if err := evm.transfer(p.caller, p.address, p.value); err != nil {
				return nil, evm.abort(err)
			}
		}
	}

	code := p.code
	var codeHash types.Hash
	if code == nil {
		var err error
		if code, err = evm.StateDB.GetCode(p.codeAddress); err != nil {
			return nil, evm.abort(stateErr("read code", err))
		}
		if codeHash, err = evm.StateDB.GetCodeHash(p.codeAddress); err != nil {
			return nil, evm.abort(stateErr("read code hash", err))
		}
	} else {
		codeHash = crypto.Keccak256Hash(code)
	}

	frame := newFrame(p.caller, p.address, p.codeAddress, p.value, p.gas+p.stipend, p.depth, p.static)
	frame.SetCode(codeHash, code)
	frame.Input = p.input

	evm.log.Debug("Enter frame", "kind", p.kind.String(), "address", p.address.Hex(), "depth", p.depth, "gas", frame.Gas)
	ret, err := evm.run(frame)
	return evm.finish(frame, ret, err)
}

// finish closes the frame's checkpoint according to how it ended.
func (evm *EVM) finish(frame *Frame, ret []byte, err error) (*ExecutionResult, error) {
	res := &ExecutionResult{ReturnData: ret, GasLeft: frame.Gas, Err: err}
	switch {
	case err == nil:
		if cerr := evm.StateDB.Commit(); cerr != nil {
			return nil, stateErr("commit", cerr)
		}
		res.Logs = frame.Logs
		res.Refund = frame.Refund
		res.Selfdestructs = frame.Selfdestructs
	case IsHardError(err):
		evm.log.Error("State failure", "address", frame.Address.Hex(), "depth", frame.Depth, "err", err)
		return nil, evm.abort(err)
	case errors.Is(err, ErrExecutionReverted):
		revertCounter.Inc()
		if rerr := evm.StateDB.Revert(); rerr != nil {
			return nil, stateErr("revert", rerr)
		}
	default:
		exceptionCounter.Inc()
		if rerr := evm.StateDB.Revert(); rerr != nil {
			return nil, stateErr("revert", rerr)
		}
		res.ReturnData = nil
		res.GasLeft = 0
	}
	evm.log.Debug("Exit frame", "address", frame.Address.Hex(), "depth", frame.Depth, "gasLeft", res.GasLeft, "err", err)
	return res, nil
}

// abort drops the innermost checkpoint on a hard failure and returns err.
func (evm *EVM) abort(err error) error {
	if rerr := evm.StateDB.Revert(); rerr != nil {
		return errors.Join(err, stateErr("revert", rerr))
	}
	return err
}

// create deploys code under a new address. The creator's nonce is bumped
// before the child runs and restored if the creation fails.
func (evm *EVM) create(caller types.Address, code []byte, gas uint64, value *uint256.Int, depth int, salt *uint256.Int) (*ExecutionResult, error) {
	kind := KindCreate
	if salt != nil {
		kind = KindCreate2
	}
	if err := evm.precheck(depth, caller, value, true); err != nil {
		if IsHardError(err) {
			return nil, err
		}
		callFailCounter.Inc()
		return &ExecutionResult{GasLeft: gas, Err: err}, nil
	}
	nonce, err := evm.StateDB.GetNonce(caller)
	if err != nil {
		return nil, stateErr("read nonce", err)
	}
	if err := evm.StateDB.SetNonce(caller, nonce+1); err != nil {
		return nil, stateErr("write nonce", err)
	}

	var address types.Address
	if salt == nil {
		address = crypto.CreateAddress(caller, nonce)
	} else {
		address = crypto.CreateAddress2(caller, types.WordToHash(salt), crypto.Keccak256(code))
	}

	res, err := evm.deploy(kind, caller, address, code, gas, value, depth)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		if err := evm.StateDB.SetNonce(caller, nonce); err != nil {
			return nil, stateErr("write nonce", err)
		}
	}
	return res, nil
}

func (evm *EVM) deploy(kind CallKind, caller, address types.Address, code []byte, gas uint64, value *uint256.Int, depth int) (*ExecutionResult, error) {
	callCounter.Inc()
	evm.StateDB.Checkpoint()

	nonce, err := evm.StateDB.GetNonce(address)
	if err != nil {
		return nil, evm.abort(stateErr("read nonce", err))
	}
	codeHash, err := evm.StateDB.GetCodeHash(address)
	if err != nil {
		return nil, evm.abort(stateErr("read code hash", err))
	}
	if nonce != 0 || (codeHash != types.EmptyCodeHash && !codeHash.IsZero()) {
		exceptionCounter.Inc()
		if err := evm.StateDB.Revert(); err != nil {
			return nil, stateErr("revert", err)
		}
		return &ExecutionResult{Err: ErrContractAddressCollision}, nil
	}

	if err := evm.StateDB.CreateAccount(address); err != nil {
		return nil, evm.abort(stateErr("create account", err))
	}
	if err := evm.StateDB.SetNonce(address, 1); err != nil {
		return nil, evm.abort(stateErr("write nonce", err))
	}
	if value != nil && !value.IsZero() {
		if err := evm.transfer(caller, address, value); err != nil {
			return nil, evm.abort(err)
		}
	}

	frame := newFrame(caller, address, address, value, gas, depth, false)
	frame.SetCode(crypto.Keccak256Hash(code), code)

	evm.log.Debug("Enter frame", "kind", kind.String(), "address", address.Hex(), "depth", depth, "gas", gas)
	ret, err := evm.run(frame)
	if err == nil {
		if !frame.UseGas(uint64(len(ret)) * GasCreateData) {
			err = ErrCodeStoreOutOfGas
		} else if perr := evm.StateDB.PutCode(address, ret); perr != nil {
			err = stateErr("write code", perr)
		}
	}
	res, ferr := evm.finish(frame, ret, err)
	if ferr != nil {
		return nil, ferr
	}
	if res.Err == nil {
		res.CreatedAddress = address
		res.ReturnData = nil
	}
	return res, nil
}

// settle fills in GasUsed for a top-level result.
func settle(res *ExecutionResult, gas uint64) *ExecutionResult {
	res.GasUsed = gas - res.GasLeft
	return res
}

// Call executes the code at addr with the given input, transferring
// value from caller.
func (evm *EVM) Call(caller, addr types.Address, input []byte, gas uint64, value *uint256.Int) (*ExecutionResult, error) {
	res, err := evm.call(callParams{
		kind: KindCall, caller: caller, address: addr, codeAddress: addr,
		input: input, gas: gas, value: orZero(value),
	})
	if err != nil {
		return nil, err
	}
	return settle(res, gas), nil
}

// CallCode executes the code at addr in the context of caller.
func (evm *EVM) CallCode(caller, addr types.Address, input []byte, gas uint64, value *uint256.Int) (*ExecutionResult, error) {
	res, err := evm.call(callParams{
		kind: KindCallCode, caller: caller, address: caller, codeAddress: addr,
		input: input, gas: gas, value: orZero(value),
	})
	if err != nil {
		return nil, err
	}
	return settle(res, gas), nil
}

// DelegateCall executes the code at addr in the context of self, keeping
// the original caller and value.
func (evm *EVM) DelegateCall(origin, self, addr types.Address, input []byte, gas uint64, value *uint256.Int) (*ExecutionResult, error) {
	res, err := evm.call(callParams{
		kind: KindDelegateCall, caller: origin, address: self, codeAddress: addr,
		input: input, gas: gas, value: orZero(value),
	})
	if err != nil {
		return nil, err
	}
	return settle(res, gas), nil
}

// StaticCall executes the code at addr with every state change forbidden.
func (evm *EVM) StaticCall(caller, addr types.Address, input []byte, gas uint64) (*ExecutionResult, error) {
	res, err := evm.call(callParams{
		kind: KindStaticCall, caller: caller, address: addr, codeAddress: addr,
		input: input, gas: gas, value: new(uint256.Int), static: true,
	})
	if err != nil {
		return nil, err
	}
	return settle(res, gas), nil
}

// Create deploys code at the address derived from caller's nonce.
func (evm *EVM) Create(caller types.Address, code []byte, gas uint64, value *uint256.Int) (*ExecutionResult, error) {
	res, err := evm.create(caller, code, gas, orZero(value), 0, nil)
	if err != nil {
		return nil, err
	}
	return settle(res, gas), nil
}

// Create2 deploys code at the address derived from caller, salt and the
// code hash.
func (evm *EVM) Create2(caller types.Address, code []byte, gas uint64, value *uint256.Int, salt *uint256.Int) (*ExecutionResult, error) {
	res, err := evm.create(caller, code, gas, orZero(value), 0, salt)
	if err != nil {
		return nil, err
	}
	return settle(res, gas), nil
}

// RunParams describe a direct execution of code that need not be
// installed in the state.
type RunParams struct {
	Code    []byte
	Gas     uint64
	Caller  types.Address
	Address types.Address
	Value   *uint256.Int
	Data    []byte
	Depth   int
	Static  bool
}

// RunCode executes p.Code as the account p.Address, without transferring
// p.Value. The block context comes from the EVM.
func (evm *EVM) RunCode(p RunParams) (*ExecutionResult, error) {
	code := p.Code
	if code == nil {
		code = []byte{}
	}
	res, err := evm.call(callParams{
		kind: KindDelegateCall, caller: p.Caller, address: p.Address, codeAddress: p.Address,
		code: code, input: p.Data, gas: p.Gas, value: orZero(p.Value),
		depth: p.Depth, static: p.Static,
	})
	if err != nil {
		return nil, err
	}
	return settle(res, p.Gas), nil
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
