package generator

import "github.com/gcvm-edu/gcvm/heap"

// reachableFrom walks the reference graph starting at src, via the
// mutator's own notion of a Ref field, collecting the set of object bases
// reachable from it. It stops on revisit (cycle), null, or a reference that
// doesn't resolve to any object (spec.md §4.8 "Reference chain
// computation"). The generator uses this set to keep every Write it emits
// acyclic: a pointer write never targets an address already reachable from
// its source.
func reachableFrom(h *heap.Heap, src heap.Address) map[heap.Address]bool {
	visited := make(map[heap.Address]bool)
	stack := []heap.Address{src}
	for len(stack) > 0 {
		addr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[addr] {
			continue
		}
		obj, ok := h.ObjectAt(addr)
		if !ok {
			continue
		}
		visited[addr] = true
		for _, f := range obj.Fields {
			if f.Kind != heap.Ref || f.IsNull() {
				continue
			}
			if base, err := h.LookupObjectAddr(f.Ptr); err == nil {
				stack = append(stack, base)
			}
		}
	}
	return visited
}
