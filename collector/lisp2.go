package collector

import "github.com/gcvm-edu/gcvm/heap"

// Lisp2Compactor implements the three-pass, variable-size-friendly Lisp-2
// compaction of spec.md §4.5.2: compute_locations, update_references,
// relocate.
type Lisp2Compactor struct{}

// Collect runs one Lisp-2 mark-compact cycle.
func (c *Lisp2Compactor) Collect(h *heap.Heap) (Result, error) {
	_, events := mark(h)

	// Dead objects are discarded up front, exactly like mark-sweep's sweep
	// phase; Lisp-2 then packs only the survivors.
	var freed, freedBytes int
	for _, a := range append([]heap.Address{}, h.Objects()...) {
		obj, ok := h.ObjectAt(a)
		if !ok || obj.Header.Marked {
			continue
		}
		size := obj.Size()
		if err := h.FreeObject(a); err != nil {
			return Result{}, err
		}
		freed++
		freedBytes += size
		events = append(events, Event{Kind: EventFree, Addr: a, Size: size})
	}

	// Pass 1: compute_locations.
	addrs := append([]heap.Address{}, h.Objects()...)
	free := 0
	for _, a := range addrs {
		obj, _ := h.ObjectAt(a)
		dest := free
		obj.Header.Forward = &dest
		free += heap.AlignUp(obj.Size(), h.Alignment)
	}

	// Pass 2: update_references. Objects have not moved yet, so every
	// address still resolves against its pre-compaction position.
	for _, a := range addrs {
		obj, _ := h.ObjectAt(a)
		for i := range obj.Fields {
			f := &obj.Fields[i]
			if f.Kind != heap.Ref || f.IsNull() {
				continue
			}
			ownerBase, err := h.LookupObjectAddr(f.Ptr)
			if err != nil {
				continue
			}
			owner, _ := h.ObjectAt(ownerBase)
			if owner.Header.Forward == nil {
				continue
			}
			f.Ptr = *owner.Header.Forward + (f.Ptr - ownerBase)
		}
	}

	// Pass 3: relocate, ascending address order so a destination is always
	// already vacated by the time it's needed (destinations never exceed
	// their source address).
	var bytesMoved int
	for _, a := range addrs {
		obj, _ := h.ObjectAt(a)
		dest := *obj.Header.Forward
		if dest != a {
			size := obj.Size()
			if err := h.MoveObject(a, dest); err != nil {
				return Result{}, err
			}
			bytesMoved += size
			events = append(events, Event{Kind: EventMove, Addr: dest, Size: size})
		}
		obj.Header.ClearForward()
		obj.Header.Marked = false
	}

	h.MergeFreeRanges()

	return Result{
		Stats: Stats{
			ObjectsMarked: len(addrs),
			ObjectsFreed:  freed,
			BytesFreed:    freedBytes,
			BytesMoved:    bytesMoved,
			FreeBytes:     h.CalcFreeMemory(),
		},
		Events: events,
	}, nil
}

// Kind reports this collector's algorithm name.
func (c *Lisp2Compactor) Kind() Kind { return Lisp2 }

// NewInstance returns a fresh Lisp2Compactor.
func (c *Lisp2Compactor) NewInstance() Collector { return &Lisp2Compactor{} }
