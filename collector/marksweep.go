package collector

import "github.com/gcvm-edu/gcvm/heap"

// MarkSweepCollector implements spec.md §4.4: mark from roots, then sweep
// every unmarked object back into the free list, then coalesce once.
type MarkSweepCollector struct{}

// Collect runs one mark-sweep cycle.
func (c *MarkSweepCollector) Collect(h *heap.Heap) (Result, error) {
	marked, events := mark(h)

	var freed, freedBytes int
	for _, base := range append([]heap.Address{}, h.Objects()...) {
		obj, ok := h.ObjectAt(base)
		if !ok || obj.Header.Marked {
			continue
		}
		size := obj.Size()
		if err := h.FreeObject(base); err != nil {
			return Result{}, err
		}
		freed++
		freedBytes += size
		events = append(events, Event{Kind: EventFree, Addr: base, Size: size})
	}

	h.MergeFreeRanges()
	h.ClearAllMarks()

	return Result{
		Stats: Stats{
			ObjectsMarked: marked,
			ObjectsFreed:  freed,
			BytesFreed:    freedBytes,
			FreeBytes:     h.CalcFreeMemory(),
		},
		Events: events,
	}, nil
}

// Kind reports this collector's algorithm name.
func (c *MarkSweepCollector) Kind() Kind { return MarkSweep }

// NewInstance returns a fresh MarkSweepCollector (it carries no state
// between cycles, so this is equivalent to &MarkSweepCollector{}).
func (c *MarkSweepCollector) NewInstance() Collector { return &MarkSweepCollector{} }
