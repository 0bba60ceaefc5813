package session

import "github.com/gcvm-edu/gcvm/vm"

// LogEntry is one line of the session's event trail: either a successful
// tick's result or the error a tick produced.
type LogEntry struct {
	InstrIndex int
	Instr      vm.Instruction
	Result     vm.InstructionResult
	Err        error
}

// logCapacity is the bounded queue capacity spec.md §4.9 calls for
// ("~16").
const logCapacity = 16

// Log is a fixed-capacity ring buffer of LogEntry: once full, pushing drops
// the oldest entry.
type Log struct {
	entries []LogEntry
}

func newLog() *Log {
	return &Log{entries: make([]LogEntry, 0, logCapacity)}
}

func (l *Log) push(e LogEntry) {
	if len(l.entries) == logCapacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:logCapacity-1]
	}
	l.entries = append(l.entries, e)
}

// Entries returns the log contents, oldest first. The returned slice must
// not be mutated.
func (l *Log) Entries() []LogEntry {
	return l.entries
}

func (l *Log) clear() {
	l.entries = l.entries[:0]
}
