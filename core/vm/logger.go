package vm

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// StepEvent describes the instruction about to execute. Stack aliases the
// live stack and is only valid for the duration of CaptureState.
type StepEvent struct {
	PC      uint64
	Op      OpCode
	Gas     uint64 // gas left before the instruction
	GasCost uint64
	Stack   []uint256.Int
	Depth   int
}

// Tracer observes execution one instruction at a time. It must not
// modify the event.
type Tracer interface {
	CaptureState(ev *StepEvent)
}

// StructLog is the JSON form of a StepEvent.
type StructLog struct {
	PC      uint64         `json:"pc"`
	Op      OpCode         `json:"op"`
	Gas     hexutil.Uint64 `json:"gas"`
	GasCost hexutil.Uint64 `json:"gasCost"`
	Stack   []string       `json:"stack"`
	Depth   int            `json:"depth"`
	OpName  string         `json:"opName"`
}

// NewStructLog copies ev into its JSON form.
func NewStructLog(ev *StepEvent) StructLog {
	stack := make([]string, len(ev.Stack))
	for i := range ev.Stack {
		stack[i] = ev.Stack[i].Hex()
	}
	return StructLog{
		PC:      ev.PC,
		Op:      ev.Op,
		Gas:     hexutil.Uint64(ev.Gas),
		GasCost: hexutil.Uint64(ev.GasCost),
		Stack:   stack,
		Depth:   ev.Depth,
		OpName:  ev.Op.String(),
	}
}

// JSONLogger writes one JSON object per step to a writer.
type JSONLogger struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

// NewJSONLogger returns a tracer writing to w.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{enc: json.NewEncoder(w)}
}

// CaptureState implements Tracer. Write failures are remembered and
// reported by Err; they never reach the interpreter.
func (l *JSONLogger) CaptureState(ev *StepEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return
	}
	l.err = l.enc.Encode(NewStructLog(ev))
}

// Err returns the first write error.
func (l *JSONLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// StructLogger collects steps in memory.
type StructLogger struct {
	logs []StructLog
}

// NewStructLogger returns an empty collecting tracer.
func NewStructLogger() *StructLogger {
	return &StructLogger{}
}

// CaptureState implements Tracer.
func (l *StructLogger) CaptureState(ev *StepEvent) {
	l.logs = append(l.logs, NewStructLog(ev))
}

// StructLogs returns the captured steps.
func (l *StructLogger) StructLogs() []StructLog {
	return l.logs
}
