package types

// MaxTopicsPerLog is the maximum number of indexed topics in a single log.
const MaxTopicsPerLog = 4

// Log is an event emitted by a LOG opcode.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
}

// Copy returns a deep copy of the log.
func (l *Log) Copy() *Log {
	cpy := &Log{Address: l.Address}
	if l.Topics != nil {
		cpy.Topics = append([]Hash(nil), l.Topics...)
	}
	if l.Data != nil {
		cpy.Data = append([]byte(nil), l.Data...)
	}
	return cpy
}
