package vm

import "github.com/gcvm-edu/gcvm/heap"

// InstructionKind tags the variant of an Instruction/InstructionResult.
type InstructionKind uint8

const (
	KindAllocate InstructionKind = iota
	KindRead
	KindWrite
	KindGC
)

func (k InstructionKind) String() string {
	switch k {
	case KindAllocate:
		return "Allocate"
	case KindRead:
		return "Read"
	case KindWrite:
		return "Write"
	case KindGC:
		return "GC"
	default:
		return "Unknown"
	}
}

// Instruction is one step of a Program. Exactly one of the payload fields is
// meaningful, selected by Kind.
type Instruction struct {
	Kind InstructionKind

	// KindAllocate
	Object *heap.Object
	IsRoot bool

	// KindRead / KindWrite
	Addr heap.Address

	// KindWrite
	Value heap.Value
}

// Program is an ordered sequence of instructions.
type Program struct {
	Instructions []Instruction
}
