// Package vm dispatches one instruction per tick onto the allocator,
// mutator and collector, mutating a shared heap (spec.md §4.7).
package vm

import (
	"github.com/gcvm-edu/gcvm/allocator"
	"github.com/gcvm-edu/gcvm/collector"
	"github.com/gcvm-edu/gcvm/heap"
	"github.com/gcvm-edu/gcvm/mutator"
)

// VM bundles the heap with the three components that act on it.
type VM struct {
	Heap      *heap.Heap
	Allocator *allocator.Allocator
	Mutator   *mutator.Mutator
	Collector collector.Collector
}

// New builds a VM over a fresh heap of the given size/alignment, using the
// given collector kind.
func New(heapSize, alignment int, kind collector.Kind) *VM {
	return &VM{
		Heap:      heap.New(heapSize, alignment),
		Allocator: allocator.New(),
		Mutator:   mutator.New(),
		Collector: collector.New(kind),
	}
}

// Tick executes exactly one instruction. Any component error propagates
// unchanged and leaves heap state untouched (errors do not mutate state,
// spec.md §7).
func (m *VM) Tick(instr Instruction) (InstructionResult, error) {
	switch instr.Kind {
	case KindAllocate:
		addr, err := m.Allocator.Allocate(m.Heap, instr.Object, instr.IsRoot)
		if err != nil {
			return InstructionResult{}, err
		}
		return InstructionResult{Kind: KindAllocate, Addr: addr, Object: instr.Object}, nil

	case KindRead:
		v, err := m.Mutator.Read(m.Heap, instr.Addr)
		if err != nil {
			return InstructionResult{}, err
		}
		return InstructionResult{Kind: KindRead, Addr: instr.Addr, Value: v}, nil

	case KindWrite:
		if err := m.Mutator.Write(m.Heap, instr.Addr, instr.Value); err != nil {
			return InstructionResult{}, err
		}
		return InstructionResult{Kind: KindWrite, Addr: instr.Addr, Value: instr.Value}, nil

	case KindGC:
		res, err := m.Collector.Collect(m.Heap)
		if err != nil {
			return InstructionResult{}, err
		}
		m.Heap.MergeFreeRanges()
		return InstructionResult{Kind: KindGC, GCResult: res}, nil

	default:
		return InstructionResult{}, &unknownInstructionError{Kind: instr.Kind}
	}
}

type unknownInstructionError struct {
	Kind InstructionKind
}

func (e *unknownInstructionError) Error() string {
	return "vm: unknown instruction kind " + e.Kind.String()
}
