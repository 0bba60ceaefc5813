// Package collector implements the mark-sweep and mark-compact (two-finger,
// Lisp-2) garbage collectors described in spec.md §4.4-§4.5, grounded on
// the mark/sweep structure of the teacher's src/runtime/gc_blocks.go
// (scanList-driven mark phase, nibble-sweep of block state) adapted from an
// unsafe block-addressed heap to heap.Heap's address-keyed object map.
package collector

import "github.com/gcvm-edu/gcvm/heap"

// Kind names a collector algorithm, the way compileopts.validGCOptions
// enumerates legal -gc= values in the teacher.
type Kind string

const (
	MarkSweep Kind = "mark-sweep"
	TwoFinger Kind = "two-finger"
	Lisp2     Kind = "lisp2"
)

// Event is one entry of a GC's ordered event trail, consumed by a
// visualizing front-end.
type Event struct {
	Kind EventKind
	Addr heap.Address
	Size int
}

type EventKind uint8

const (
	EventMark EventKind = iota
	EventFree
	EventMove
)

func (k EventKind) String() string {
	switch k {
	case EventMark:
		return "mark"
	case EventFree:
		return "free"
	case EventMove:
		return "move"
	default:
		return "unknown"
	}
}

// Stats summarizes one collection cycle, modeled on the teacher's
// runGC() (freeBytes uintptr) return value plus its gcTotalAlloc/gcMallocs
// globals (spec.md §4.4 calls these "opaque to this spec"; SPEC_FULL §12
// fixes their shape).
type Stats struct {
	ObjectsMarked int
	ObjectsFreed  int
	BytesFreed    int
	BytesMoved    int
	FreeBytes     int
}

// Result pairs a cycle's stats with its event trail.
type Result struct {
	Stats  Stats
	Events []Event
}

// Collector is the capability every GC algorithm implements: run one
// collection cycle, report what kind it is, and produce a fresh instance of
// the same kind. (Session.Restart gets its fresh collector from New with the
// configured kind, through vm.New, not from NewInstance.)
type Collector interface {
	Collect(h *heap.Heap) (Result, error)
	Kind() Kind
	NewInstance() Collector
}

// New builds a Collector of the given kind.
func New(kind Kind) Collector {
	switch kind {
	case TwoFinger:
		return &TwoFingerCompactor{}
	case Lisp2:
		return &Lisp2Compactor{}
	default:
		return &MarkSweepCollector{}
	}
}

// mark performs the shared mark phase used by all three collectors: clear
// every mark, then an iterative DFS from the roots using an explicit stack
// (spec.md §4.4 step 2), recording a Mark event per newly-marked object.
func mark(h *heap.Heap) (marked int, events []Event) {
	h.ClearAllMarks()

	stack := append([]heap.Address{}, h.Roots()...)
	for len(stack) > 0 {
		addr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// Ref fields may hold an interior address (spec.md §3 invariant 3),
		// so resolve to the owning object base before checking marks.
		base, err := h.LookupObjectAddr(addr)
		if err != nil {
			// Doesn't resolve to any object base; not an error, just a
			// dangling or stale reference (spec.md §4.4 step 3).
			continue
		}
		obj, _ := h.ObjectAt(base)
		if obj.Header.Marked {
			continue
		}
		obj.Header.Marked = true
		marked++
		events = append(events, Event{Kind: EventMark, Addr: base, Size: obj.Size()})

		for _, f := range obj.Fields {
			if f.Kind == heap.Ref && !f.IsNull() {
				stack = append(stack, f.Ptr)
			}
		}
	}
	return marked, events
}
