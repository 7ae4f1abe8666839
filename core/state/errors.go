package state

import (
	"errors"
	"fmt"
)

var (
	ErrNoCheckpoint       = errors.New("state: no open checkpoint")
	ErrPendingCheckpoint  = errors.New("state: flush with open checkpoints")
	ErrBalanceUnderflow   = errors.New("state: balance underflow")
	ErrUnknownNamespace   = errors.New("state: unknown recast namespace")
	ErrAttestationSubject = errors.New("state: attestation subject mismatch")

	errBadPointer = errors.New("pointer is not an address")
)

// IOError is a failure of the underlying database or of decoding what it
// returned. It is an infrastructure fault: callers abort the whole
// transaction instead of treating it as a program-level condition.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("state: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func ioError(op string, err error) error {
	ioErrorCounter.Inc()
	return &IOError{Op: op, Err: err}
}
