package mutator

import (
	"testing"

	"github.com/gcvm-edu/gcvm/heap"
)

func TestWriteThenReadScalarRoundTrips(t *testing.T) {
	h := heap.New(10, 0)
	h.FreeList().Remove(0)
	h.FreeList().Insert(2, 8)
	h.PlaceObject(0, &heap.Object{Fields: []heap.Field{heap.NewScalarField(0), heap.NewScalarField(0)}}, true)

	m := New()
	if err := m.Write(h, 1, 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := m.Read(h, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestReadFollowsReferenceChainToScalar(t *testing.T) {
	h := heap.New(10, 0)
	h.FreeList().Remove(0)
	h.FreeList().Insert(4, 6)
	// object A at 0: one ref field pointing at object B.
	h.PlaceObject(0, &heap.Object{Fields: []heap.Field{heap.NewRefField(2)}}, true)
	// object B at 2: one scalar field holding 7.
	h.PlaceObject(2, &heap.Object{Fields: []heap.Field{heap.NewScalarField(7)}}, false)

	m := New()
	got, err := m.Read(h, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Fatalf("expected dereferenced value 7, got %d", got)
	}
}

func TestReadNullReferenceFaults(t *testing.T) {
	h := heap.New(10, 0)
	h.FreeList().Remove(0)
	h.FreeList().Insert(1, 9)
	h.PlaceObject(0, &heap.Object{Fields: []heap.Field{heap.NewRefField(heap.NullAddr)}}, true)

	m := New()
	if _, err := m.Read(h, 0); err == nil {
		t.Fatalf("expected NullPointerException reading through a null ref")
	}
}

func TestReadCyclicReferenceFaultsInsteadOfHanging(t *testing.T) {
	h := heap.New(10, 0)
	h.FreeList().Remove(0)
	h.FreeList().Insert(2, 8)
	// object A at 0 points at object B at 1, which points back at A.
	h.PlaceObject(0, &heap.Object{Fields: []heap.Field{heap.NewRefField(1)}}, true)
	h.PlaceObject(1, &heap.Object{Fields: []heap.Field{heap.NewRefField(0)}}, false)

	m := New()
	if _, err := m.Read(h, 0); err == nil {
		t.Fatalf("expected a cyclic-reference error instead of infinite recursion")
	}
}

func TestReadUnknownAddressSegfaults(t *testing.T) {
	h := heap.New(10, 0)
	m := New()
	if _, err := m.Read(h, 5); err == nil {
		t.Fatalf("expected SegmentationFault reading an address with no object")
	}
}

func TestWriteReferenceFieldStoresRawAddress(t *testing.T) {
	h := heap.New(10, 0)
	h.FreeList().Remove(0)
	h.FreeList().Insert(1, 9)
	h.PlaceObject(0, &heap.Object{Fields: []heap.Field{heap.NewRefField(heap.NullAddr)}}, true)

	m := New()
	if err := m.Write(h, 0, 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj, _ := h.ObjectAt(0)
	if obj.Fields[0].Ptr != 99 {
		t.Fatalf("expected raw pointer 99 stored, got %d", obj.Fields[0].Ptr)
	}
}
