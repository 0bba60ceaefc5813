// Package mutator implements user-level field reads and writes against a
// heap, including the transitive dereference semantics of spec.md §4.3.
package mutator

import (
	"github.com/gcvm-edu/gcvm/heap"
	"github.com/gcvm-edu/gcvm/vmerr"
)

// Mutator performs reads and writes on behalf of the VM.
type Mutator struct{}

// New returns a ready-to-use Mutator.
func New() *Mutator {
	return &Mutator{}
}

// Read resolves addr to a field and returns its scalar value, recursively
// dereferencing through Ref fields until it reaches a Scalar. A visited-set
// guards against a cyclic reference graph causing non-termination (spec.md
// §9 prefers this over a hard recursion-depth bound): the generator never
// emits cycles, but a user-supplied write can create one, and the mutator
// must not hang when that happens.
func (m *Mutator) Read(h *heap.Heap, addr heap.Address) (heap.Value, error) {
	visited := make(map[heap.Address]struct{})
	return m.read(h, addr, visited)
}

func (m *Mutator) read(h *heap.Heap, addr heap.Address, visited map[heap.Address]struct{}) (heap.Value, error) {
	if _, seen := visited[addr]; seen {
		return 0, &vmerr.NullPointerException{Addr: addr, Detail: "cyclic reference chain detected"}
	}
	visited[addr] = struct{}{}

	base, field, err := resolve(h, addr)
	if err != nil {
		return 0, err
	}
	switch field.Kind {
	case heap.Scalar:
		return field.Value, nil
	case heap.Ref:
		if field.IsNull() {
			return 0, &vmerr.NullPointerException{Addr: addr}
		}
		return m.read(h, field.Ptr, visited)
	default:
		_ = base
		return 0, &vmerr.SegmentationFault{Addr: addr}
	}
}

// Write resolves addr to a field and overwrites it in place: a Scalar
// field's value is replaced directly, a Ref field's pointer is replaced
// with Ptr(value) taken as a raw address with no validation — a subsequent
// read through it may fault.
func (m *Mutator) Write(h *heap.Heap, addr heap.Address, value heap.Value) error {
	base, idx, err := resolveIndex(h, addr)
	if err != nil {
		return err
	}
	obj, _ := h.ObjectAt(base)
	switch obj.Fields[idx].Kind {
	case heap.Scalar:
		obj.Fields[idx].Value = value
	case heap.Ref:
		obj.Fields[idx].Ptr = value
	}
	return nil
}

// resolve finds the (object base, field) pair addr refers to.
func resolve(h *heap.Heap, addr heap.Address) (heap.Address, heap.Field, error) {
	base, idx, err := resolveIndex(h, addr)
	if err != nil {
		return heap.NullAddr, heap.Field{}, err
	}
	obj, _ := h.ObjectAt(base)
	return base, obj.Fields[idx], nil
}

// resolveIndex finds the object base owning addr and the field index within
// it, per spec.md §4.3: the greatest object base <= addr such that
// addr < base+size.
func resolveIndex(h *heap.Heap, addr heap.Address) (heap.Address, int, error) {
	base, err := h.LookupObjectAddr(addr)
	if err != nil {
		return heap.NullAddr, 0, err
	}
	return base, addr - base, nil
}
