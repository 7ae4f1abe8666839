package vm

// bitvec marks the code positions that are opcodes rather than PUSH
// immediates. Bit i set means code[i] is immediate data.
type bitvec []byte

func (bits bitvec) set(pos uint64) {
	bits[pos/8] |= 1 << (pos % 8)
}

func (bits bitvec) codeSegment(pos uint64) bool {
	return bits[pos/8]&(1<<(pos%8)) == 0
}

// codeBitmap scans code once and marks every PUSH immediate byte.
func codeBitmap(code []byte) bitvec {
	// Trailing padding covers a PUSH32 at the very end.
	bits := make(bitvec, len(code)/8+1+4)
	for pc := uint64(0); pc < uint64(len(code)); {
		op := OpCode(code[pc])
		pc++
		if n := op.pushSize(); n > 0 {
			for i := 0; i < n; i++ {
				bits.set(pc)
				pc++
			}
		}
	}
	return bits
}
