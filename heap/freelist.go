package heap

import "sort"

// FreeRun is a maximal contiguous unallocated range [Start, Start+Size).
type FreeRun struct {
	Start Address
	Size  int
}

// End returns the address just past this run.
func (r FreeRun) End() Address {
	return r.Start + r.Size
}

// FreeList maintains the maximal free runs of a heap, keyed by start
// address and kept in ascending order. This mirrors the teacher's
// gc_blocks.go free-range bookkeeping (there: a two-level linked list keyed
// by run length for fast first-fit-by-size lookups on a block-addressed
// heap) but keyed by start address instead, since spec.md requires
// "ordered mapping from start address to length" for deterministic
// first-fit scanning and for next/previous-run introspection.
type FreeList struct {
	runs []FreeRun // sorted by Start, no two overlapping, no two adjacent
}

// NewFreeList returns an empty free list.
func NewFreeList() *FreeList {
	return &FreeList{}
}

// Len returns the number of distinct free runs.
func (fl *FreeList) Len() int {
	return len(fl.runs)
}

// Iter returns the free runs in ascending start order. The returned slice
// must not be mutated by the caller.
func (fl *FreeList) Iter() []FreeRun {
	return fl.runs
}

// Total returns the sum of all free run sizes (calc_free_memory in spec.md).
func (fl *FreeList) Total() int {
	total := 0
	for _, r := range fl.runs {
		total += r.Size
	}
	return total
}

func (fl *FreeList) indexOf(start Address) (int, bool) {
	i := sort.Search(len(fl.runs), func(i int) bool { return fl.runs[i].Start >= start })
	if i < len(fl.runs) && fl.runs[i].Start == start {
		return i, true
	}
	return i, false
}

// Insert adds a run, coalescing it with any touching or overlapping
// neighbor. If an identical-start entry already exists with a larger size,
// the larger size is kept (defensive, per spec.md §4.1).
func (fl *FreeList) Insert(start Address, size int) {
	if size <= 0 {
		return
	}
	i, exists := fl.indexOf(start)
	if exists {
		if fl.runs[i].Size >= size {
			return
		}
		fl.runs[i].Size = size
	} else {
		fl.runs = append(fl.runs, FreeRun{})
		copy(fl.runs[i+1:], fl.runs[i:])
		fl.runs[i] = FreeRun{Start: start, Size: size}
	}
	fl.Coalesce()
}

// Remove deletes exactly the run starting at start; a no-op if absent.
func (fl *FreeList) Remove(start Address) {
	i, exists := fl.indexOf(start)
	if !exists {
		return
	}
	fl.runs = append(fl.runs[:i], fl.runs[i+1:]...)
}

// Reset discards all current runs and replaces them with runs, which need
// not be sorted or coalesced (Reset coalesces them). Used by snapshot
// restoration, which reconstructs free-list state verbatim rather than by
// replaying allocations.
func (fl *FreeList) Reset(runs []FreeRun) {
	fl.runs = append([]FreeRun{}, runs...)
	sort.Slice(fl.runs, func(i, j int) bool { return fl.runs[i].Start < fl.runs[j].Start })
	fl.Coalesce()
}

// Coalesce sweeps the list in start order merging any two runs where
// a.End() >= b.Start ("touches or overlaps", spec.md §4.1).
func (fl *FreeList) Coalesce() {
	if len(fl.runs) < 2 {
		return
	}
	merged := fl.runs[:1]
	for _, next := range fl.runs[1:] {
		last := &merged[len(merged)-1]
		if last.End() >= next.Start {
			if end := next.End(); end > last.End() {
				last.Size = end - last.Start
			}
			continue
		}
		merged = append(merged, next)
	}
	fl.runs = merged
}
