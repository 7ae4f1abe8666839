// Package core applies messages to the world state: it validates them,
// buys gas, runs the interpreter and settles fees, refunds and account
// cleanup.
package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"

	"github.com/eth2030/shyftvm/core/state"
	"github.com/eth2030/shyftvm/core/types"
	"github.com/eth2030/shyftvm/core/vm"
	"github.com/eth2030/shyftvm/log"
)

const (
	// TxGas is the base cost of every message.
	TxGas uint64 = 21000
	// TxCreateGas is the extra gas for contract creation messages.
	TxCreateGas uint64 = 32000
	// TxDataZeroGas is the cost per zero byte of data.
	TxDataZeroGas uint64 = 4
	// TxDataNonZeroGas is the cost per non-zero byte of data.
	TxDataNonZeroGas uint64 = 68

	// MaxRefundQuotient caps the refund at gasUsed / MaxRefundQuotient.
	MaxRefundQuotient uint64 = 2
)

var (
	ErrNonceTooLow        = errors.New("nonce too low")
	ErrNonceTooHigh       = errors.New("nonce too high")
	ErrNonceMax           = errors.New("nonce has max value")
	ErrIntrinsicGasTooLow = errors.New("intrinsic gas too low")
	ErrInsufficientFunds  = errors.New("insufficient funds for gas * price + value")
	ErrGasUintOverflow    = errors.New("gas uint64 overflow")
)

// IntrinsicGas computes the gas charged before any code runs.
func IntrinsicGas(data []byte, isCreate bool) (uint64, error) {
	gas := TxGas
	if isCreate {
		gas += TxCreateGas
	}
	var nz uint64
	for _, b := range data {
		if b != 0 {
			nz++
		}
	}
	z := uint64(len(data)) - nz
	for _, part := range [][2]uint64{{nz, TxDataNonZeroGas}, {z, TxDataZeroGas}} {
		cost, overflow := math.SafeMul(part[0], part[1])
		if overflow {
			return 0, ErrGasUintOverflow
		}
		if gas, overflow = math.SafeAdd(gas, cost); overflow {
			return 0, ErrGasUintOverflow
		}
	}
	return gas, nil
}

// ApplyMessage executes msg against store using evm, whose state must be
// store. Validation failures return an error and leave the state
// untouched. A message that runs and fails still produces a receipt:
// its gas is paid and its nonce consumed. Store failures revert the
// whole message and are returned.
func ApplyMessage(evm *vm.EVM, store *state.Store, msg *Message) (*Receipt, *vm.ExecutionResult, error) {
	if err := preCheck(store, msg); err != nil {
		return nil, nil, err
	}
	igas, err := IntrinsicGas(msg.Data, msg.IsCreate())
	if err != nil {
		return nil, nil, err
	}
	if msg.GasLimit < igas {
		return nil, nil, fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGasTooLow, msg.GasLimit, igas)
	}

	price := msg.gasPrice()
	value := msg.value()
	gasCost, overflow := new(uint256.Int).MulOverflow(price, uint256.NewInt(msg.GasLimit))
	if overflow {
		return nil, nil, fmt.Errorf("%w: address %s", ErrInsufficientFunds, msg.From.Hex())
	}
	total, overflow := new(uint256.Int).AddOverflow(gasCost, value)
	if overflow {
		return nil, nil, fmt.Errorf("%w: address %s", ErrInsufficientFunds, msg.From.Hex())
	}
	balance, err := store.GetBalance(msg.From)
	if err != nil {
		return nil, nil, err
	}
	if balance.Lt(total) {
		return nil, nil, fmt.Errorf("%w: address %s have %s want %s", ErrInsufficientFunds, msg.From.Hex(), balance, total)
	}

	logger := log.Default().Module("core")
	store.Checkpoint()
	receipt, res, err := applyMessage(evm, store, msg, igas, gasCost)
	if err != nil {
		if rerr := store.Revert(); rerr != nil {
			err = errors.Join(err, rerr)
		}
		logger.Error("Message aborted", "from", msg.From.Hex(), "err", err)
		return nil, nil, err
	}
	if err := store.Commit(); err != nil {
		return nil, nil, err
	}

	messageCounter.Inc()
	if !receipt.Succeeded() {
		messageFailCounter.Inc()
	}
	messageGasUsed.Add(receipt.GasUsed)
	logger.Debug("Message applied", "from", msg.From.Hex(), "status", receipt.Status, "gasUsed", receipt.GasUsed)
	return receipt, res, nil
}

func preCheck(store *state.Store, msg *Message) error {
	stateNonce, err := store.GetNonce(msg.From)
	if err != nil {
		return err
	}
	switch {
	case msg.Nonce < stateNonce:
		return fmt.Errorf("%w: address %s, tx: %d state: %d", ErrNonceTooLow, msg.From.Hex(), msg.Nonce, stateNonce)
	case msg.Nonce > stateNonce:
		return fmt.Errorf("%w: address %s, tx: %d state: %d", ErrNonceTooHigh, msg.From.Hex(), msg.Nonce, stateNonce)
	case stateNonce+1 < stateNonce:
		return fmt.Errorf("%w: address %s, nonce: %d", ErrNonceMax, msg.From.Hex(), stateNonce)
	}
	return nil
}

// applyMessage runs inside the message checkpoint.
func applyMessage(evm *vm.EVM, store *state.Store, msg *Message, igas uint64, gasCost *uint256.Int) (*Receipt, *vm.ExecutionResult, error) {
	if err := store.SubBalance(msg.From, gasCost); err != nil {
		return nil, nil, err
	}
	price := msg.gasPrice()
	evm.SetTxContext(vm.TxContext{Origin: msg.From, GasPrice: price})

	var (
		gas = msg.GasLimit - igas
		res *vm.ExecutionResult
		err error
	)
	if msg.IsCreate() {
		res, err = evm.Create(msg.From, msg.Data, gas, msg.value())
		if err != nil {
			return nil, nil, err
		}
		// The creation consumes the nonce even when it fails.
		if err := store.SetNonce(msg.From, msg.Nonce+1); err != nil {
			return nil, nil, err
		}
	} else {
		if err := store.SetNonce(msg.From, msg.Nonce+1); err != nil {
			return nil, nil, err
		}
		if res, err = evm.Call(msg.From, *msg.To, msg.Data, gas, msg.value()); err != nil {
			return nil, nil, err
		}
	}

	gasUsed := msg.GasLimit - res.GasLeft
	refund := res.Refund
	if maxRefund := gasUsed / MaxRefundQuotient; refund > maxRefund {
		refund = maxRefund
	}
	gasUsed -= refund

	remaining := new(uint256.Int).Mul(price, uint256.NewInt(msg.GasLimit-gasUsed))
	if err := store.AddBalance(msg.From, remaining); err != nil {
		return nil, nil, err
	}
	fee := new(uint256.Int).Mul(price, uint256.NewInt(gasUsed))
	if err := store.AddBalance(evm.Context.Coinbase, fee); err != nil {
		return nil, nil, err
	}

	if err := cleanup(store, res); err != nil {
		return nil, nil, err
	}

	receipt := &Receipt{
		Status:    ReceiptStatusSuccessful,
		GasUsed:   gasUsed,
		Exception: res.ExceptionError(),
	}
	if res.Failed() {
		receipt.Status = ReceiptStatusFailed
	} else {
		receipt.Logs = res.Logs
		receipt.ContractAddress = res.CreatedAddress
	}
	receipt.Bloom = types.LogsBloom(receipt.Logs)
	return receipt, res, nil
}

// cleanup deletes the accounts that self-destructed and every touched
// account left empty.
func cleanup(store *state.Store, res *vm.ExecutionResult) error {
	destructed := make([]types.Address, 0, len(res.Selfdestructs))
	for addr := range res.Selfdestructs {
		destructed = append(destructed, addr)
	}
	sort.Slice(destructed, func(i, j int) bool { return destructed[i].Less(destructed[j]) })
	for _, addr := range destructed {
		if err := store.DeleteAccount(addr); err != nil {
			return err
		}
	}

	for _, addr := range store.Touched() {
		exists, err := store.AccountExists(addr)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		empty, err := store.AccountIsEmpty(addr)
		if err != nil {
			return err
		}
		if empty {
			if err := store.DeleteAccount(addr); err != nil {
				return err
			}
		}
	}
	return nil
}
