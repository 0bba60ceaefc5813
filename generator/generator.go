// Package generator builds random programs that exercise a VM while
// generating, biasing every choice toward valid addresses and field kinds
// so the emitted program is non-trivial and never panics the shadow VM it
// runs against (spec.md §4.8).
package generator

import (
	"math/rand"

	"github.com/gcvm-edu/gcvm/collector"
	"github.com/gcvm-edu/gcvm/heap"
	"github.com/gcvm-edu/gcvm/vm"
)

// Generator owns a shadow VM it executes each emitted instruction against,
// so later choices can be informed by what currently exists on the heap.
type Generator struct {
	cfg    Config
	rng    *rand.Rand
	shadow *vm.VM
}

// New builds a Generator over a fresh shadow VM of the given heap
// parameters and collector kind, seeded for reproducibility.
func New(cfg Config, heapSize, alignment int, kind collector.Kind, seed int64) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		shadow: vm.New(heapSize, alignment, kind),
	}, nil
}

// Generate builds a Program of cfg.Steps instructions.
func (g *Generator) Generate() vm.Program {
	instrs := make([]vm.Instruction, 0, g.cfg.Steps)
	for i := 0; i < g.cfg.Steps; i++ {
		instrs = append(instrs, g.step())
	}
	return vm.Program{Instructions: instrs}
}

// step picks one weighted instruction kind and emits it, executing against
// the shadow VM along the way.
func (g *Generator) step() vm.Instruction {
	switch g.pickKind() {
	case vm.KindRead:
		return g.doRead()
	case vm.KindWrite:
		return g.doWrite()
	case vm.KindGC:
		return g.doGC()
	default:
		return g.doAllocate()
	}
}

func (g *Generator) pickKind() vm.InstructionKind {
	w := g.cfg.Weights
	total := w.Allocate + w.Read + w.Write + w.GC
	if total <= 0 {
		return vm.KindAllocate
	}
	n := g.rng.Intn(total)
	switch {
	case n < w.Allocate:
		return vm.KindAllocate
	case n < w.Allocate+w.Read:
		return vm.KindRead
	case n < w.Allocate+w.Read+w.Write:
		return vm.KindWrite
	default:
		return vm.KindGC
	}
}

func (g *Generator) randomObject() *heap.Object {
	n := g.cfg.MinFields
	if g.cfg.MaxFields > g.cfg.MinFields {
		n += g.rng.Intn(g.cfg.MaxFields - g.cfg.MinFields + 1)
	}
	fields := make([]heap.Field, n)
	for i := range fields {
		if g.rng.Intn(2) == 0 {
			fields[i] = heap.NewScalarField(g.rng.Intn(g.cfg.ScalarMax + 1))
		} else {
			fields[i] = heap.NewRefField(heap.NullAddr)
		}
	}
	return &heap.Object{Fields: fields}
}

// doAllocate builds and ticks an Allocate instruction, always marking the
// object a root (spec.md §4.8: "current behavior; future work may
// randomize"). If the shadow VM cannot satisfy it, the generator downgrades
// to a GC instruction instead of panicking.
func (g *Generator) doAllocate() vm.Instruction {
	obj := g.randomObject()
	instr := vm.Instruction{Kind: vm.KindAllocate, Object: obj, IsRoot: true}
	if _, err := g.shadow.Tick(instr); err != nil {
		return g.doGC()
	}
	return instr
}

// doRead picks a random existing object and a random scalar field of it,
// falling back to Allocate when no object has a scalar field to read.
func (g *Generator) doRead() vm.Instruction {
	bases := g.shadow.Heap.Objects()
	if len(bases) == 0 {
		return g.doAllocate()
	}
	order := g.rng.Perm(len(bases))
	for _, oi := range order {
		base := bases[oi]
		obj, _ := g.shadow.Heap.ObjectAt(base)
		scalarIdx := scalarFieldIndices(obj)
		if len(scalarIdx) == 0 {
			continue
		}
		idx := scalarIdx[g.rng.Intn(len(scalarIdx))]
		addr := base + idx
		instr := vm.Instruction{Kind: vm.KindRead, Addr: addr}
		if _, err := g.shadow.Tick(instr); err == nil {
			return instr
		}
	}
	return g.doAllocate()
}

func scalarFieldIndices(obj *heap.Object) []int {
	var idx []int
	for i, f := range obj.Fields {
		if f.Kind == heap.Scalar {
			idx = append(idx, i)
		}
	}
	return idx
}

// doWrite picks a random existing object. With probability PScalarWrite it
// writes a random scalar into one of that object's scalar fields; otherwise
// it writes, into one of its ref fields, a pointer to a different object
// outside the source's reachable set, guaranteeing the reference graph
// stays a DAG (spec.md §4.8). Falls back to Allocate when the object has no
// field of the chosen kind or no valid pointer target exists.
func (g *Generator) doWrite() vm.Instruction {
	bases := g.shadow.Heap.Objects()
	if len(bases) == 0 {
		return g.doAllocate()
	}
	base := bases[g.rng.Intn(len(bases))]
	obj, _ := g.shadow.Heap.ObjectAt(base)
	wantScalar := g.rng.Float64() < g.cfg.PScalarWrite
	var fieldIdxs []int
	for i, f := range obj.Fields {
		if (f.Kind == heap.Scalar) == wantScalar {
			fieldIdxs = append(fieldIdxs, i)
		}
	}
	if len(fieldIdxs) == 0 {
		return g.doAllocate()
	}
	addr := base + fieldIdxs[g.rng.Intn(len(fieldIdxs))]

	var value heap.Value
	if wantScalar {
		value = g.rng.Intn(g.cfg.ScalarMax + 1)
	} else {
		target, ok := g.pickAcyclicTarget(base)
		if !ok {
			return g.doAllocate()
		}
		value = target
	}

	instr := vm.Instruction{Kind: vm.KindWrite, Addr: addr, Value: value}
	if _, err := g.shadow.Tick(instr); err != nil {
		// Spec.md §4.8: "On write returning AllocationError, emit a GC
		// instruction instead." Write never allocates in this VM, but the
		// fallback is kept for fidelity to the spec's stated contract and
		// as a defensive guard should that ever change.
		return g.doGC()
	}
	return instr
}

func (g *Generator) pickAcyclicTarget(src heap.Address) (heap.Address, bool) {
	reachable := reachableFrom(g.shadow.Heap, src)
	bases := g.shadow.Heap.Objects()
	candidates := make([]heap.Address, 0, len(bases))
	for _, b := range bases {
		if !reachable[b] {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return heap.NullAddr, false
	}
	return candidates[g.rng.Intn(len(candidates))], true
}

func (g *Generator) doGC() vm.Instruction {
	instr := vm.Instruction{Kind: vm.KindGC}
	// A GC cycle cannot fail in this VM's collectors, so any error here
	// would indicate a genuine bug rather than something to route around.
	if _, err := g.shadow.Tick(instr); err != nil {
		panic(err)
	}
	return instr
}
