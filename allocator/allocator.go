// Package allocator implements first-fit, alignment-aware placement onto a
// heap.FreeList, grounded on the scan-and-split logic of the teacher's
// gc_blocks.go alloc()/popFreeRange(), adapted from a block-state bitmap to
// an address-keyed free list (see heap.FreeList).
package allocator

import (
	"github.com/gcvm-edu/gcvm/heap"
	"github.com/gcvm-edu/gcvm/vmerr"
)

// Stats tracks cumulative allocation activity, mirroring the teacher's
// gcTotalAlloc/gcMallocs counters in gc_blocks.go.
type Stats struct {
	TotalAllocated int // cumulative address units ever allocated
	Allocations    int // cumulative successful Allocate calls
}

// Allocator places new objects onto a heap using first-fit placement that
// respects the heap's alignment constraint.
type Allocator struct {
	stats Stats
}

// New returns a ready-to-use Allocator.
func New() *Allocator {
	return &Allocator{}
}

// Stats returns a snapshot of cumulative allocation activity.
func (a *Allocator) Stats() Stats {
	return a.stats
}

// Allocate finds the first free run that can hold object once aligned,
// splits it, installs object, and optionally registers it as a root. It
// returns AllocationError if no run is big enough; on failure the heap is
// left completely unchanged.
func (a *Allocator) Allocate(h *heap.Heap, object *heap.Object, isRoot bool) (heap.Address, error) {
	size := object.Size()
	if size == 0 {
		// Zero-field objects are not expected in practice (spec.md §4.2
		// edge case) but always succeed and split nothing when encountered:
		// any aligned base that currently fits a zero-length span will do.
		for _, run := range h.FreeList().Iter() {
			base := heap.AlignUp(run.Start, h.Alignment)
			// Strictly inside the run: base == run.End() would land on
			// whatever immediately follows the free span (the heap's end,
			// or the base of the next live object), not on free space.
			if base < run.End() {
				h.PlaceObject(base, object, isRoot)
				a.stats.Allocations++
				return base, nil
			}
		}
		h.PlaceObject(0, object, isRoot)
		a.stats.Allocations++
		return 0, nil
	}

	for _, run := range h.FreeList().Iter() {
		base := heap.AlignUp(run.Start, h.Alignment)
		if base+size > run.End() {
			continue
		}

		h.FreeList().Remove(run.Start)
		if base > run.Start {
			h.FreeList().Insert(run.Start, base-run.Start)
		}
		if tail := run.End() - (base + size); tail > 0 {
			h.FreeList().Insert(base+size, tail)
		}

		h.PlaceObject(base, object, isRoot)
		a.stats.Allocations++
		a.stats.TotalAllocated += size
		return base, nil
	}

	return heap.NullAddr, &vmerr.AllocationError{Size: size, Alignment: h.Alignment}
}
