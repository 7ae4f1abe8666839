package core

import "github.com/eth2030/shyftvm/metrics"

var (
	messageCounter     = metrics.DefaultRegistry.Counter("core.messages")
	messageFailCounter = metrics.DefaultRegistry.Counter("core.messages_failed")
	messageGasUsed     = metrics.DefaultRegistry.Counter("core.gas_used")
)
