package vm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/eth2030/shyftvm/core/types"
)

// attestKind selects which records of an address an attestation opcode
// starts from.
type attestKind uint8

const (
	attestAll attestKind = iota
	attestValid
	attestRevoke
	attestActiveRevoke
	attestCheck
)

// attestOp describes one opcode of the attestation range. Validity and
// effectiveness are judged at the executing block's own timestamp
// (BlockContext.Time), not at its parent's.
type attestOp struct {
	kind         attestKind
	trustAnchor  bool // pops a trust anchor address after the subject
	jurisdiction bool // pops a memory pointer to an RLP jurisdiction string
}

func (a attestOp) pops() int {
	n := 1
	if a.kind == attestCheck {
		n++
	}
	if a.trustAnchor {
		n++
	}
	if a.jurisdiction {
		n++
	}
	return n
}

var attestOps = map[OpCode]attestOp{
	GETATTEST:              {kind: attestAll},
	GETATTESTTA:            {kind: attestAll, trustAnchor: true},
	GETATTESTJURIS:         {kind: attestAll, jurisdiction: true},
	GETATTESTTAJURIS:       {kind: attestAll, trustAnchor: true, jurisdiction: true},
	GETVALIDATTEST:         {kind: attestValid},
	GETVALIDATTESTTA:       {kind: attestValid, trustAnchor: true},
	GETVALIDATTESTJURIS:    {kind: attestValid, jurisdiction: true},
	GETVALIDATTESTTAJURIS:  {kind: attestValid, trustAnchor: true, jurisdiction: true},
	GETREVOKE:              {kind: attestRevoke},
	CHECKATTESTVALID:       {kind: attestCheck},
	GETACTIVEREVOKE:        {kind: attestActiveRevoke},
	GETACTIVEREVOKETA:      {kind: attestActiveRevoke, trustAnchor: true},
	GETACTIVEREVOKEJURIS:   {kind: attestActiveRevoke, jurisdiction: true},
	GETACTIVEREVOKETAJURIS: {kind: attestActiveRevoke, trustAnchor: true, jurisdiction: true},
}

// query selects the records the opcode reports, reading its operands from
// the stack without popping them. Memory read for the jurisdiction item is
// charged to m.
func (a attestOp) query(evm *EVM, stack *Stack, m *attestMeter) (types.AttestationSet, error) {
	pos := 1
	var (
		anchor      types.Address
		anchorValid = true
	)
	if a.trustAnchor {
		anchor, anchorValid = wordToAddress(stack.Back(pos))
		pos++
	}
	var (
		juris      string
		jurisValid = true
	)
	if a.jurisdiction {
		var err error
		if juris, jurisValid, err = readJurisdiction(m, stack.Back(pos)); err != nil {
			return nil, err
		}
	}

	set, err := attestationsOf(evm, stack.Back(0))
	if err != nil {
		return nil, err
	}
	now := evm.Context.Time
	switch a.kind {
	case attestValid:
		set = set.Valid(now)
	case attestRevoke:
		set = set.Revocations()
	case attestActiveRevoke:
		set = set.ActiveRevocations()
	}
	if a.trustAnchor {
		if !anchorValid {
			return nil, nil
		}
		set = set.ByTrustAnchor(anchor)
	}
	if a.jurisdiction {
		if !jurisValid {
			return nil, nil
		}
		set = set.ByJurisdiction(juris)
	}
	return set, nil
}

// gasAttest runs the query, charging the memory it reads and the output it
// will write at the end of memory. The output is handed to the execution
// function through the frame.
func gasAttest(a attestOp) dynamicGasFunc {
	return func(evm *EVM, frame *Frame, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		m := &attestMeter{frame: frame, mem: mem}
		set, err := a.query(evm, stack, m)
		if err != nil {
			return 0, err
		}
		out, err := set.Serialize()
		if err != nil {
			return 0, fmt.Errorf("%w: serialize attestations: %v", ErrInternal, err)
		}
		if err := m.output(uint64(len(out))); err != nil {
			return 0, err
		}
		frame.attestOut = out
		return m.gas, nil
	}
}

// makeAttest writes the output prepared by gasAttest at the current end of
// memory and pushes its offset.
func makeAttest(a attestOp) executionFunc {
	if a.kind == attestCheck {
		return opCheckAttestValid
	}
	return func(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
		for i := 0; i < a.pops(); i++ {
			stack.Pop()
		}
		out := frame.attestOut
		frame.attestOut = nil

		offset, size := uint64(memory.Len()), uint64(len(out))
		memory.Resize(toWordSize(offset+size) * 32)
		memory.Set(offset, size, out)
		stack.Push(uint256.NewInt(offset))
		return nil, nil
	}
}

// opCheckAttestValid pushes the validity value of the subject's
// attestation with the given nonce.
func opCheckAttestValid(pc *uint64, evm *EVM, frame *Frame, memory *Memory, stack *Stack) ([]byte, error) {
	subject, nonce := stack.Pop(), stack.Pop()
	if !nonce.IsUint64() {
		stack.Push(types.AttestationMissing)
		return nil, nil
	}
	set, err := attestationsOf(evm, &subject)
	if err != nil {
		return nil, err
	}
	stack.Push(set.CheckValid(nonce.Uint64(), evm.Context.Time))
	return nil, nil
}

// attestationsOf loads the attestation set of the address in w. Words
// wider than an address name no account and select the empty set.
func attestationsOf(evm *EVM, w *uint256.Int) (types.AttestationSet, error) {
	addr, ok := wordToAddress(w)
	if !ok {
		return nil, nil
	}
	attestationLookups.Inc()
	set, err := evm.StateDB.GetAttestations(addr)
	if err != nil {
		return nil, stateErr("read attestations", err)
	}
	return set, nil
}

func wordToAddress(w *uint256.Int) (types.Address, bool) {
	if w.BitLen() > 8*types.AddressLength {
		return types.Address{}, false
	}
	return types.WordToAddress(w), true
}

// readJurisdiction decodes the RLP string at memory offset ptr, charging
// memory growth for every byte it reads. A malformed item is reported as
// invalid rather than as an error.
func readJurisdiction(m *attestMeter, ptr *uint256.Int) (string, bool, error) {
	offset, err := m.read(ptr, 1)
	if err != nil {
		return "", false, err
	}
	b := m.mem.GetPtr(offset, 1)[0]

	var size uint64
	switch {
	case b < 0x80:
		size = 1
	case b <= 0xb7:
		size = 1 + uint64(b-0x80)
	case b <= 0xbf:
		lenOfLen := uint64(b - 0xb7)
		if _, err := m.read(ptr, 1+lenOfLen); err != nil {
			return "", false, err
		}
		var n uint256.Int
		n.SetBytes(m.mem.GetPtr(offset+1, lenOfLen))
		if !n.IsUint64() || n.Uint64() > ^uint64(0)-1-lenOfLen {
			return "", false, ErrGasUintOverflow
		}
		size = 1 + lenOfLen + n.Uint64()
	default:
		return "", false, nil
	}

	if _, err := m.read(ptr, size); err != nil {
		return "", false, err
	}
	content, rest, err := rlp.SplitString(m.mem.GetPtr(offset, size))
	if err != nil || len(rest) != 0 {
		return "", false, nil
	}
	return string(content), true, nil
}
