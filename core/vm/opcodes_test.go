package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpCodeClass(t *testing.T) {
	tests := map[OpCode]string{
		ADD:                    "arith",
		SIGNEXTEND:             "arith",
		SAR:                    "bitwise",
		SHA3:                   "sha3",
		CALLER:                 "env",
		BASEFEE:                "block",
		SSTORE:                 "storage",
		JUMPDEST:               "control",
		PUSH32:                 "stack",
		SWAP16:                 "stack",
		LOG2:                   "log",
		CHECKATTESTVALID:       "attest",
		GETACTIVEREVOKETAJURIS: "attest",
		CALL:                   "system",
		OpCode(0x0c):           "undefined",
	}
	for op, want := range tests {
		assert.Equal(t, want, op.class(), op.String())
	}
}
