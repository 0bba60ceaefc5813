package vm

import (
	"github.com/gcvm-edu/gcvm/collector"
	"github.com/gcvm-edu/gcvm/heap"
)

// InstructionResult mirrors the Instruction that produced it, carrying
// whatever the component computed.
type InstructionResult struct {
	Kind InstructionKind

	// KindAllocate
	Addr   heap.Address
	Object *heap.Object

	// KindRead
	Value heap.Value

	// KindWrite: Addr/Value above are the ones written.

	// KindGC
	GCResult collector.Result
}
