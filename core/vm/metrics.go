package vm

import "github.com/eth2030/shyftvm/metrics"

var (
	opCounter          = metrics.DefaultRegistry.Counter("vm.ops")
	callCounter        = metrics.DefaultRegistry.Counter("vm.calls")
	callFailCounter    = metrics.DefaultRegistry.Counter("vm.calls_rejected")
	revertCounter      = metrics.DefaultRegistry.Counter("vm.reverts")
	exceptionCounter   = metrics.DefaultRegistry.Counter("vm.exceptions")
	attestationLookups = metrics.DefaultRegistry.Counter("vm.attestation_lookups")

	// opClassGas is the gas charged per opcode class, resolved per opcode
	// byte so the interpreter loop does no lookups.
	opClassGas [256]*metrics.Counter
)

func init() {
	gas := metrics.DefaultRegistry.CounterSet("vm.gas")
	for i := range opClassGas {
		opClassGas[i] = gas.With(OpCode(i).class())
	}
}
