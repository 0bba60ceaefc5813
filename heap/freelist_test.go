package heap

import "testing"

func TestFreeListInsertCoalesces(t *testing.T) {
	fl := NewFreeList()
	fl.Insert(0, 3)
	fl.Insert(3, 4)
	if fl.Len() != 1 {
		t.Fatalf("expected coalesced single run, got %d runs: %+v", fl.Len(), fl.Iter())
	}
	run := fl.Iter()[0]
	if run.Start != 0 || run.Size != 7 {
		t.Fatalf("expected (0,7), got (%d,%d)", run.Start, run.Size)
	}
}

func TestFreeListInsertKeepsLargerOnDuplicateStart(t *testing.T) {
	fl := NewFreeList()
	fl.Insert(5, 2)
	fl.Insert(5, 1) // smaller, should be ignored
	if got := fl.Iter()[0].Size; got != 2 {
		t.Fatalf("expected size 2 kept, got %d", got)
	}
	fl.Insert(5, 10) // larger, should replace
	if got := fl.Iter()[0].Size; got != 10 {
		t.Fatalf("expected size 10 after larger insert, got %d", got)
	}
}

func TestFreeListRemove(t *testing.T) {
	fl := NewFreeList()
	fl.Insert(0, 2)
	fl.Insert(10, 2)
	fl.Remove(0)
	if fl.Len() != 1 || fl.Iter()[0].Start != 10 {
		t.Fatalf("expected only (10,2) left, got %+v", fl.Iter())
	}
	fl.Remove(999) // no-op
	if fl.Len() != 1 {
		t.Fatalf("remove of absent start should be a no-op")
	}
}

func TestFreeListTotal(t *testing.T) {
	fl := NewFreeList()
	fl.Insert(0, 3)
	fl.Insert(20, 5)
	if got := fl.Total(); got != 8 {
		t.Fatalf("expected total 8, got %d", got)
	}
}

func TestFreeListMaximality(t *testing.T) {
	fl := NewFreeList()
	fl.Insert(0, 5)
	fl.Insert(5, 5)
	fl.Insert(12, 3)
	fl.Coalesce()
	runs := fl.Iter()
	for i := 0; i+1 < len(runs); i++ {
		if runs[i].Start+runs[i].Size >= runs[i+1].Start {
			t.Fatalf("runs %+v and %+v should have coalesced", runs[i], runs[i+1])
		}
	}
}
