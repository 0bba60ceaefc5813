package vm

import (
	"testing"

	"github.com/gcvm-edu/gcvm/collector"
	"github.com/gcvm-edu/gcvm/heap"
)

func TestTickAllocateAdvancesHeap(t *testing.T) {
	m := New(10, 0, collector.MarkSweep)
	obj := &heap.Object{Fields: []heap.Field{heap.NewScalarField(0)}}
	res, err := m.Tick(Instruction{Kind: KindAllocate, Object: obj, IsRoot: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != KindAllocate || res.Addr != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := m.Heap.CalcFreeMemory(); got != 9 {
		t.Fatalf("expected 9 free units, got %d", got)
	}
}

func TestTickReadWriteRoundTrip(t *testing.T) {
	m := New(10, 0, collector.MarkSweep)
	obj := &heap.Object{Fields: []heap.Field{heap.NewScalarField(0)}}
	allocRes, err := m.Tick(Instruction{Kind: KindAllocate, Object: obj, IsRoot: true})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if _, err := m.Tick(Instruction{Kind: KindWrite, Addr: allocRes.Addr, Value: 5}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readRes, err := m.Tick(Instruction{Kind: KindRead, Addr: allocRes.Addr})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if readRes.Value != 5 {
		t.Fatalf("expected 5, got %d", readRes.Value)
	}
}

func TestTickGCCoalescesFreedSpace(t *testing.T) {
	m := New(10, 0, collector.MarkSweep)
	obj := &heap.Object{Fields: []heap.Field{heap.NewScalarField(0)}}
	if _, err := m.Tick(Instruction{Kind: KindAllocate, Object: obj, IsRoot: false}); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	res, err := m.Tick(Instruction{Kind: KindGC})
	if err != nil {
		t.Fatalf("gc: %v", err)
	}
	if res.Kind != KindGC {
		t.Fatalf("expected a GC result, got %+v", res)
	}
	if res.GCResult.Stats.ObjectsFreed != 1 {
		t.Fatalf("expected the unrooted object freed, got %d", res.GCResult.Stats.ObjectsFreed)
	}
	if got := m.Heap.CalcFreeMemory(); got != 10 {
		t.Fatalf("expected the whole heap free again, got %d", got)
	}
}

func TestTickErrorLeavesHeapUnchanged(t *testing.T) {
	m := New(2, 0, collector.MarkSweep)
	obj := &heap.Object{Fields: []heap.Field{heap.NewScalarField(0), heap.NewScalarField(0), heap.NewScalarField(0)}}
	before := m.Heap.CalcFreeMemory()
	if _, err := m.Tick(Instruction{Kind: KindAllocate, Object: obj, IsRoot: true}); err == nil {
		t.Fatalf("expected an AllocationError for an object larger than the heap")
	}
	if got := m.Heap.CalcFreeMemory(); got != before {
		t.Fatalf("heap should be untouched after a failed tick, got %d want %d", got, before)
	}
}
