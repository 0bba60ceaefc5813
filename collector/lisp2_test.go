package collector

import (
	"testing"

	"github.com/gcvm-edu/gcvm/heap"
)

// TestLisp2CompactionWithReferenceRewrite builds a heap with a gap of dead
// space between two live, differently-sized objects and checks that after
// compaction both have moved down contiguously from 0 and the surviving
// cross-reference has been rewritten to the new address.
func TestLisp2CompactionWithReferenceRewrite(t *testing.T) {
	h := heap.New(10, 0)
	h.FreeList().Remove(0)

	// object A at 0 (size 2): field 0 scalar, field 1 ref -> object B.
	a := &heap.Object{Fields: []heap.Field{heap.NewScalarField(1), heap.NewRefField(5)}}
	// dead object at 2 (size 3), unreachable garbage.
	dead := &heap.Object{Fields: []heap.Field{heap.NewScalarField(0), heap.NewScalarField(0), heap.NewScalarField(0)}}
	// object B at 5 (size 1): one scalar field.
	b := &heap.Object{Fields: []heap.Field{heap.NewScalarField(77)}}

	h.PlaceObject(0, a, true)
	h.PlaceObject(2, dead, false)
	h.PlaceObject(5, b, false)
	h.FreeList().Reset(nil)
	h.FreeList().Insert(6, 4)

	c := New(Lisp2)
	result, err := c.Collect(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stats.ObjectsFreed != 1 {
		t.Fatalf("expected the dead object freed, got %d", result.Stats.ObjectsFreed)
	}

	rootObj, ok := h.ObjectAt(0)
	if !ok {
		t.Fatalf("root should remain at address 0 (already at its final location)")
	}
	newBBase := rootObj.Fields[1].Ptr
	if newBBase != 2 {
		t.Fatalf("expected object B relocated to 2 (immediately after A), got %d", newBBase)
	}
	bObj, ok := h.ObjectAt(newBBase)
	if !ok || bObj.Fields[0].Value != 77 {
		t.Fatalf("expected relocated object B's contents to survive, got %+v ok=%v", bObj, ok)
	}
	if got := h.CalcFreeMemory(); got != 7 {
		t.Fatalf("expected 7 free units after compaction, got %d", got)
	}
	for _, base := range h.Objects() {
		obj, _ := h.ObjectAt(base)
		if obj.Header.Marked {
			t.Fatalf("expected marks cleared after compaction")
		}
		if obj.Header.Forward != nil {
			t.Fatalf("expected forward pointers cleared after compaction")
		}
	}
}

func TestLisp2NoGarbageIsANoOp(t *testing.T) {
	h := heap.New(6, 0)
	h.FreeList().Remove(0)
	h.FreeList().Insert(2, 4)
	h.PlaceObject(0, &heap.Object{Fields: []heap.Field{heap.NewScalarField(5)}}, true)

	c := New(Lisp2)
	if _, err := c.Collect(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj, ok := h.ObjectAt(0)
	if !ok || obj.Fields[0].Value != 5 {
		t.Fatalf("expected the sole object to remain untouched at 0")
	}
}
