package vm

import "github.com/holiman/uint256"

// memorySizeFunc returns the memory extent an operation touches. The bool
// reports an overflow, which the interpreter treats as out of gas.
type memorySizeFunc func(stack *Stack) (uint64, bool)

// calcMemSize64 returns off+l, or 0 when l is zero.
func calcMemSize64(off, l *uint256.Int) (uint64, bool) {
	if !l.IsUint64() {
		return 0, true
	}
	return calcMemSize64WithUint(off, l.Uint64())
}

func calcMemSize64WithUint(off *uint256.Int, length64 uint64) (uint64, bool) {
	if length64 == 0 {
		return 0, false
	}
	offset64, overflow := off.Uint64WithOverflow()
	if overflow {
		return 0, true
	}
	val := offset64 + length64
	return val, val < offset64
}

// memoryWindow builds a memorySizeFunc for an (offset, length) pair at the
// given stack positions.
func memoryWindow(offPos, lenPos int) memorySizeFunc {
	return func(stack *Stack) (uint64, bool) {
		return calcMemSize64(stack.Back(offPos), stack.Back(lenPos))
	}
}

// memoryFixed builds a memorySizeFunc for a fixed-width access at the
// offset on top of the stack.
func memoryFixed(width uint64) memorySizeFunc {
	return func(stack *Stack) (uint64, bool) {
		return calcMemSize64WithUint(stack.Back(0), width)
	}
}

var (
	memorySha3           = memoryWindow(0, 1)
	memoryCallDataCopy   = memoryWindow(0, 2)
	memoryCodeCopy       = memoryWindow(0, 2)
	memoryReturnDataCopy = memoryWindow(0, 2)
	memoryExtCodeCopy    = memoryWindow(1, 3)
	memoryMLoad          = memoryFixed(32)
	memoryMStore         = memoryFixed(32)
	memoryMStore8        = memoryFixed(1)
	memoryCreate         = memoryWindow(1, 2)
	memoryCreate2        = memoryWindow(1, 2)
	memoryReturn         = memoryWindow(0, 1)
	memoryRevert         = memoryWindow(0, 1)
	memoryLog            = memoryWindow(0, 1)
)

func memoryCall(stack *Stack) (uint64, bool) {
	x, overflow := calcMemSize64(stack.Back(5), stack.Back(6))
	if overflow {
		return 0, true
	}
	y, overflow := calcMemSize64(stack.Back(3), stack.Back(4))
	if overflow {
		return 0, true
	}
	return max(x, y), false
}

func memoryDelegateCall(stack *Stack) (uint64, bool) {
	x, overflow := calcMemSize64(stack.Back(4), stack.Back(5))
	if overflow {
		return 0, true
	}
	y, overflow := calcMemSize64(stack.Back(2), stack.Back(3))
	if overflow {
		return 0, true
	}
	return max(x, y), false
}

var (
	memoryCallCode   = memoryCall
	memoryStaticCall = memoryDelegateCall
)
