package vm

import "github.com/holiman/uint256"

// Gas schedule.
const (
	GasZeroStep    uint64 = 0
	GasQuickStep   uint64 = 2
	GasFastestStep uint64 = 3
	GasFastStep    uint64 = 5
	GasMidStep     uint64 = 8
	GasSlowStep    uint64 = 10
	GasExtStep     uint64 = 20

	GasExpByte uint64 = 50 // per byte of exponent

	GasSha3     uint64 = 30
	GasSha3Word uint64 = 6

	GasMemory    uint64 = 3
	QuadCoeffDiv uint64 = 512
	GasCopy      uint64 = 3 // per word copied

	GasBalance     uint64 = 400
	GasExtcodeSize uint64 = 700
	GasExtcodeCopy uint64 = 700
	GasExtcodeHash uint64 = 400
	GasBlockhash   uint64 = 20
	GasSload       uint64 = 200
	GasJumpDest    uint64 = 1

	GasSstoreSet    uint64 = 20000 // zero to non-zero
	GasSstoreReset  uint64 = 5000  // every other transition
	GasSstoreRefund uint64 = 15000 // non-zero to zero

	GasLog      uint64 = 375
	GasLogTopic uint64 = 375
	GasLogData  uint64 = 8

	GasCreate          uint64 = 32000
	GasCreateData      uint64 = 200 // per byte of deployed code
	GasCall            uint64 = 700
	GasCallValue       uint64 = 9000
	GasCallNewAccount  uint64 = 25000
	GasCallStipend     uint64 = 2300
	GasSelfdestruct    uint64 = 5000
	GasSelfdestructRef uint64 = 24000

	// Gas for the attestation range is charged for memory only.
	GasAttest uint64 = 0
)

// callGas returns the gas to forward to a nested call: the request capped
// at all but one 64th of what remains once base is paid.
func callGas(available, base uint64, requested *uint256.Int) (uint64, error) {
	if available < base {
		return 0, ErrOutOfGas
	}
	available -= base
	capped := available - available/64
	if !requested.IsUint64() || requested.Uint64() > capped {
		return capped, nil
	}
	return requested.Uint64(), nil
}
