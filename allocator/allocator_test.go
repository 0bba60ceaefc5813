package allocator

import (
	"testing"

	"github.com/gcvm-edu/gcvm/heap"
)

func scalarObj(n int) *heap.Object {
	fields := make([]heap.Field, n)
	for i := range fields {
		fields[i] = heap.NewScalarField(0)
	}
	return &heap.Object{Fields: fields}
}

func TestAllocateFirstFit(t *testing.T) {
	h := heap.New(10, 0)
	a := New()

	base, err := a.Allocate(h, scalarObj(3), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base != 0 {
		t.Fatalf("expected first allocation at 0, got %d", base)
	}
	if !h.IsRoot(0) {
		t.Fatalf("expected object to be registered as root")
	}
	if got := h.CalcFreeMemory(); got != 7 {
		t.Fatalf("expected 7 free units remaining, got %d", got)
	}
	if got := a.Stats().Allocations; got != 1 {
		t.Fatalf("expected 1 recorded allocation, got %d", got)
	}
}

func TestAllocateCouldNotAllocate(t *testing.T) {
	h := heap.New(3, 0)
	a := New()

	if _, err := a.Allocate(h, scalarObj(4), false); err == nil {
		t.Fatalf("expected AllocationError when object is larger than the heap")
	}
	if got := h.CalcFreeMemory(); got != 3 {
		t.Fatalf("heap should be unchanged after a failed allocation, got %d free", got)
	}
}

func TestAllocateRespectsAlignment(t *testing.T) {
	h := heap.New(10, 4)
	a := New()

	// First allocation of size 3 lands at 0, consuming [0,3); remaining
	// free run starts at 3 but the next aligned base is 4.
	if _, err := a.Allocate(h, scalarObj(3), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base, err := a.Allocate(h, scalarObj(2), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base != 4 {
		t.Fatalf("expected second object aligned to 4, got %d", base)
	}
}

func TestAllocateAlignmentFailureLeavesHeapUnchanged(t *testing.T) {
	h := heap.New(5, 4)
	a := New()

	// The aligned bases within [0,5) are 0 and 4. After a 3-unit object at
	// 0, the free run [3,5) could hold a 2-unit object at 3, but the only
	// aligned base in it (4) leaves just one unit.
	if _, err := a.Allocate(h, scalarObj(3), false); err != nil {
		t.Fatalf("unexpected error placing at 0: %v", err)
	}
	if _, err := a.Allocate(h, scalarObj(2), false); err == nil {
		t.Fatalf("expected allocation failure: no aligned base fits a 2-unit object in [3,5)")
	}
	if got := h.CalcFreeMemory(); got != 2 {
		t.Fatalf("expected heap unchanged by the failed allocation, got %d free", got)
	}
}

func TestAllocateFreeThenReallocate(t *testing.T) {
	h := heap.New(10, 0)
	a := New()

	base1, err := a.Allocate(h, scalarObj(3), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.FreeObject(base1); err != nil {
		t.Fatalf("unexpected error freeing: %v", err)
	}
	base2, err := a.Allocate(h, scalarObj(3), false)
	if err != nil {
		t.Fatalf("unexpected error reallocating: %v", err)
	}
	if base2 != base1 {
		t.Fatalf("expected reallocation to reuse the freed slot at %d, got %d", base1, base2)
	}
}
