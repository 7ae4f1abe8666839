package core

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/shyftvm/core/types"
)

// Message is a transaction prepared for execution: an authenticated
// sender and the fields the state transition needs.
type Message struct {
	From     types.Address
	To       *types.Address // nil for contract creation
	Nonce    uint64
	Value    *uint256.Int
	GasLimit uint64
	GasPrice *uint256.Int
	Data     []byte
}

// IsCreate reports whether the message deploys a contract.
func (m *Message) IsCreate() bool { return m.To == nil }

func (m *Message) value() *uint256.Int {
	if m.Value == nil {
		return new(uint256.Int)
	}
	return m.Value
}

func (m *Message) gasPrice() *uint256.Int {
	if m.GasPrice == nil {
		return new(uint256.Int)
	}
	return m.GasPrice
}
