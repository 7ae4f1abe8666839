package vm

import (
	"errors"
	"fmt"
)

// Call-local exceptions. Any of these aborts the current frame and
// discards its state changes; only ErrExecutionReverted keeps the
// remaining gas and the return data.
var (
	ErrOutOfGas                 = errors.New("out of gas")
	ErrStackUnderflow           = errors.New("stack underflow")
	ErrStackOverflow            = errors.New("stack overflow")
	ErrInvalidJump              = errors.New("invalid jump destination")
	ErrInvalidOpCode            = errors.New("invalid opcode")
	ErrStaticStateChange        = errors.New("state change in static call")
	ErrExecutionReverted        = errors.New("execution reverted")
	ErrInternal                 = errors.New("internal error")
	ErrDepth                    = errors.New("max call depth exceeded")
	ErrInsufficientBalance      = errors.New("insufficient balance for transfer")
	ErrCodeStoreOutOfGas        = errors.New("contract creation code storage out of gas")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrReturnDataOutOfBounds    = errors.New("return data out of bounds")
	ErrGasUintOverflow          = errors.New("gas uint64 overflow")
)

// Exception tags reported to the transaction driver.
const (
	TagOutOfGas          = "OUT_OF_GAS"
	TagStackUnderflow    = "STACK_UNDERFLOW"
	TagStackOverflow     = "STACK_OVERFLOW"
	TagInvalidJump       = "INVALID_JUMP"
	TagInvalidOpCode     = "INVALID_OPCODE"
	TagStaticStateChange = "STATIC_STATE_CHANGE"
	TagRevert            = "REVERT"
	TagInternalError     = "INTERNAL_ERROR"
)

// ExceptionTag returns the exception tag for a call-local error, or the
// empty string for nil.
func ExceptionTag(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOutOfGas), errors.Is(err, ErrGasUintOverflow), errors.Is(err, ErrCodeStoreOutOfGas):
		return TagOutOfGas
	case errors.Is(err, ErrStackUnderflow):
		return TagStackUnderflow
	case errors.Is(err, ErrStackOverflow):
		return TagStackOverflow
	case errors.Is(err, ErrInvalidJump):
		return TagInvalidJump
	case errors.Is(err, ErrInvalidOpCode):
		return TagInvalidOpCode
	case errors.Is(err, ErrStaticStateChange):
		return TagStaticStateChange
	case errors.Is(err, ErrExecutionReverted):
		return TagRevert
	default:
		return TagInternalError
	}
}

// StateError wraps a failure of the state store. It is not a call-local
// exception: it unwinds every frame and terminates the transaction.
type StateError struct {
	Op  string
	Err error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("vm: state %s: %v", e.Op, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

// IsHardError reports whether err must abort the whole transaction.
func IsHardError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

func stateErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StateError{Op: op, Err: err}
}

func invalidOpCode(op OpCode) error {
	return fmt.Errorf("%w: %s", ErrInvalidOpCode, op)
}
