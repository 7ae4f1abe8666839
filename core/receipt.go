package core

import (
	"github.com/eth2030/shyftvm/core/types"
)

// Receipt status values.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt records the outcome of one message.
type Receipt struct {
	Status          uint64
	GasUsed         uint64
	Logs            []*types.Log
	Bloom           types.Bloom
	ContractAddress types.Address
	// Exception is the exception tag of a failed message.
	Exception string
}

// Succeeded reports whether the message ran to STOP or RETURN.
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccessful
}
