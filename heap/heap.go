package heap

import (
	"sort"

	"github.com/gcvm-edu/gcvm/vmerr"
)

// MemCell is a visualization-only status for one address unit of memory.
// Authority for what's allocated/free lives in Objects/FreeList; MemCell is
// kept in sync for front-ends that want a byte-level picture without
// re-deriving it from the object map on every frame.
type MemCell uint8

const (
	CellFree MemCell = iota
	CellAllocated
	CellMarked
	CellToBeFreed
)

// Heap owns the entire logical address space: the object map, the roots
// set, the free list, and the alignment constraint every allocation must
// respect. A sorted map from address to object is the canonical
// representation (see spec.md §9): it is never backed by raw pointers into
// a byte buffer, since objects must be iterable and movable by address.
type Heap struct {
	Size      int
	Alignment int

	objects    map[Address]*Object
	objOrder   []Address // kept sorted ascending; authoritative iteration order
	roots      map[Address]struct{}
	freeList   *FreeList
	memory     []MemCell
}

// AlignUp rounds x up to the next multiple of alignment. alignment == 0
// means no constraint (identity).
func AlignUp(x, alignment int) int {
	if alignment <= 0 {
		return x
	}
	if x%alignment == 0 {
		return x
	}
	return x + (alignment - x%alignment)
}

// New creates an empty heap of the given size with the whole address space
// as one free run.
func New(size, alignment int) *Heap {
	h := &Heap{
		Size:      size,
		Alignment: alignment,
		objects:   make(map[Address]*Object),
		roots:     make(map[Address]struct{}),
		freeList:  NewFreeList(),
		memory:    make([]MemCell, size),
	}
	if size > 0 {
		h.freeList.Insert(0, size)
	}
	return h
}

// FreeList returns the heap's free list for direct inspection/mutation by
// the allocator and collectors.
func (h *Heap) FreeList() *FreeList {
	return h.freeList
}

// ObjectAt returns the object stored at base, if any.
func (h *Heap) ObjectAt(base Address) (*Object, bool) {
	o, ok := h.objects[base]
	return o, ok
}

// Objects returns object bases in ascending order. The returned slice must
// not be mutated.
func (h *Heap) Objects() []Address {
	return h.objOrder
}

// Roots returns the current root set as a fresh sorted slice.
func (h *Heap) Roots() []Address {
	out := make([]Address, 0, len(h.roots))
	for a := range h.roots {
		out = append(out, a)
	}
	sort.Ints(out)
	return out
}

// IsRoot reports whether addr is in the roots set.
func (h *Heap) IsRoot(addr Address) bool {
	_, ok := h.roots[addr]
	return ok
}

// AddRoot marks addr as a root. addr must already be an object base.
func (h *Heap) AddRoot(addr Address) {
	h.roots[addr] = struct{}{}
}

// RemoveRoot removes addr from the roots set (a no-op if absent).
func (h *Heap) RemoveRoot(addr Address) {
	delete(h.roots, addr)
}

// PlaceObject installs obj at base, marking the memory cells allocated and
// recording it as a root when isRoot is set. The caller (the allocator) is
// responsible for having already removed base's span from the free list.
func (h *Heap) PlaceObject(base Address, obj *Object, isRoot bool) {
	h.objects[base] = obj
	i := sort.SearchInts(h.objOrder, base)
	h.objOrder = append(h.objOrder, 0)
	copy(h.objOrder[i+1:], h.objOrder[i:])
	h.objOrder[i] = base
	if isRoot {
		h.roots[base] = struct{}{}
	}
	h.markCells(base, obj.Size(), CellAllocated)
}

func (h *Heap) markCells(base Address, size int, state MemCell) {
	for i := base; i < base+size && i < len(h.memory); i++ {
		h.memory[i] = state
	}
}

// removeObjectRecord deletes base from the object map/order/roots without
// touching the free list; callers decide what happens to the freed span.
func (h *Heap) removeObjectRecord(base Address) (*Object, bool) {
	obj, ok := h.objects[base]
	if !ok {
		return nil, false
	}
	delete(h.objects, base)
	delete(h.roots, base)
	i := sort.SearchInts(h.objOrder, base)
	if i < len(h.objOrder) && h.objOrder[i] == base {
		h.objOrder = append(h.objOrder[:i], h.objOrder[i+1:]...)
	}
	return obj, true
}

// FreeObject removes addr from Objects and Roots, returns its slot to the
// free list, and coalesces. DeallocationError if addr is not an object
// base.
func (h *Heap) FreeObject(addr Address) error {
	obj, ok := h.removeObjectRecord(addr)
	if !ok {
		return &vmerr.DeallocationError{Addr: addr}
	}
	h.freeList.Insert(addr, obj.Size())
	h.markCells(addr, obj.Size(), CellFree)
	return nil
}

// MoveObject relocates the object at from to to: frees the from slot
// (returning its space to the free list, removing it from roots), installs
// the object at to, reserves [to, to+size) in the free list, and restores
// root status if it was a root. A single coalesce runs afterward, as
// spec.md §4.5.2 prescribes for heap.move_object.
func (h *Heap) MoveObject(from, to Address) error {
	wasRoot := h.IsRoot(from)
	obj, ok := h.removeObjectRecord(from)
	if !ok {
		return &vmerr.DeallocationError{Addr: from}
	}
	h.freeList.Insert(from, obj.Size())
	h.reserve(to, obj.Size())
	h.objects[to] = obj
	i := sort.SearchInts(h.objOrder, to)
	h.objOrder = append(h.objOrder, 0)
	copy(h.objOrder[i+1:], h.objOrder[i:])
	h.objOrder[i] = to
	if wasRoot {
		h.roots[to] = struct{}{}
	}
	h.markCells(from, obj.Size(), CellFree)
	h.markCells(to, obj.Size(), CellAllocated)
	h.freeList.Coalesce()
	return nil
}

// reserve removes [start, start+size) from the free list, splitting any
// run(s) that overlap it. Used internally by MoveObject, which (unlike the
// allocator) knows exactly where the object must land; a compactor's
// relocation order guarantees the destination range is free by the time
// this runs, but reserve tolerates a destination split across more than one
// adjoining run rather than assuming a single covering run.
func (h *Heap) reserve(start, size int) {
	end := start + size
	var leftover []FreeRun
	for _, r := range h.freeList.Iter() {
		if r.End() <= start || r.Start >= end {
			continue
		}
		if r.Start < start {
			leftover = append(leftover, FreeRun{Start: r.Start, Size: start - r.Start})
		}
		if r.End() > end {
			leftover = append(leftover, FreeRun{Start: end, Size: r.End() - end})
		}
	}
	for _, r := range h.freeList.Iter() {
		if r.End() > start && r.Start < end {
			h.freeList.Remove(r.Start)
		}
	}
	for _, r := range leftover {
		h.freeList.Insert(r.Start, r.Size)
	}
}

// LookupObjectAddr finds the greatest object base <= addr such that addr
// falls inside that object's span. Returns SegmentationFault otherwise.
func (h *Heap) LookupObjectAddr(addr Address) (Address, error) {
	i := sort.Search(len(h.objOrder), func(i int) bool { return h.objOrder[i] > addr }) - 1
	if i < 0 {
		return NullAddr, &vmerr.SegmentationFault{Addr: addr}
	}
	base := h.objOrder[i]
	obj := h.objects[base]
	if addr >= base+obj.Size() {
		return NullAddr, &vmerr.SegmentationFault{Addr: addr}
	}
	return base, nil
}

// NextObjectAddr returns the strict successor of addr in object-base order.
// As spec.md §9 notes, this is "strict successor of a known base": if addr
// is not itself an object base, NextObjectAddr returns (NullAddr, false)
// rather than the nearest following base. Compactors only ever call this on
// addresses already known to be bases, so this contract is sufficient and
// documented rather than silently reinterpreted.
func (h *Heap) NextObjectAddr(addr Address) (Address, bool) {
	i := sort.SearchInts(h.objOrder, addr)
	if i >= len(h.objOrder) || h.objOrder[i] != addr {
		return NullAddr, false
	}
	if i+1 >= len(h.objOrder) {
		return NullAddr, false
	}
	return h.objOrder[i+1], true
}

// PrevObjectAddr is the strict-predecessor counterpart to NextObjectAddr,
// with the same "of a known base" contract.
func (h *Heap) PrevObjectAddr(addr Address) (Address, bool) {
	i := sort.SearchInts(h.objOrder, addr)
	if i >= len(h.objOrder) || h.objOrder[i] != addr {
		return NullAddr, false
	}
	if i == 0 {
		return NullAddr, false
	}
	return h.objOrder[i-1], true
}

// CalcFreeMemory sums the free list's run sizes.
func (h *Heap) CalcFreeMemory() int {
	return h.freeList.Total()
}

// MergeFreeRanges is an alias for FreeList().Coalesce(), named to match
// spec.md §4.6.
func (h *Heap) MergeFreeRanges() {
	h.freeList.Coalesce()
}

// MemoryCells returns a copy of the per-address-unit visualization status
// array (spec.md §3 Heap.memory). It is derived, not authoritative: callers
// must not rely on it for correctness, only for display.
func (h *Heap) MemoryCells() []MemCell {
	out := make([]MemCell, len(h.memory))
	copy(out, h.memory)
	return out
}

// ClearAllMarks resets header.Marked to false on every object, used at the
// start of a mark phase and again at the end of a mark-sweep cycle. The
// compactors clear survivor marks directly on each object instead.
func (h *Heap) ClearAllMarks() {
	for _, base := range h.objOrder {
		h.objects[base].Header.Marked = false
	}
}
