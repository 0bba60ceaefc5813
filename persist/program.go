// Package persist implements the tolerated, non-normative persistence
// formats of spec.md §6: the program file format (rts_config + program) and
// the heap snapshot format. Nothing here is part of the core's contract —
// the in-process API (session.Session) is — but a front-end or test harness
// needs somewhere to load and save fixtures from disk.
package persist

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/shlex"
	"gopkg.in/yaml.v2"

	"github.com/gcvm-edu/gcvm/collector"
	"github.com/gcvm-edu/gcvm/generator"
	"github.com/gcvm-edu/gcvm/heap"
	"github.com/gcvm-edu/gcvm/session"
	"github.com/gcvm-edu/gcvm/vm"
)

// yamlDocument is the on-disk shape of a program file: two top-level
// fields, rts_config and program, per spec.md §6.
type yamlDocument struct {
	RTSConfig yamlConfig       `yaml:"rts_config"`
	Program   []yamlInstr      `yaml:"program"`
}

type yamlConfig struct {
	HeapSize  int    `yaml:"heap_size"`
	Alignment int    `yaml:"alignment"`
	GC        string `yaml:"gc"`
	Seed      int64  `yaml:"seed"`
}

type yamlInstr struct {
	Type   string      `yaml:"_type"`
	Object *yamlObject `yaml:"object,omitempty"`
	IsRoot bool        `yaml:"is_root,omitempty"`
	Addr   *int        `yaml:"addr,omitempty"`
	Value  *int        `yaml:"value,omitempty"`
}

type yamlObject struct {
	Fields []yamlField `yaml:"fields"`
}

type yamlField struct {
	Kind  string `yaml:"kind"` // "scalar" or "ref"
	Value int    `yaml:"value,omitempty"`
	// Ptr is always written, even when 0: a ref field at base address 0 is
	// the common case, not the edge case, and omitempty would make it
	// indistinguishable from a null ref (NullAddr) on reload.
	Ptr int `yaml:"ptr"`
}

func toYAMLDoc(cfg session.ProgramRuntimeConfig, p vm.Program) yamlDocument {
	doc := yamlDocument{
		RTSConfig: yamlConfig{
			HeapSize:  cfg.HeapSize,
			Alignment: cfg.Alignment,
			GC:        string(cfg.Collector),
			Seed:      cfg.Seed,
		},
	}
	for _, instr := range p.Instructions {
		doc.Program = append(doc.Program, instructionToYAML(instr))
	}
	return doc
}

func instructionToYAML(instr vm.Instruction) yamlInstr {
	out := yamlInstr{Type: instr.Kind.String()}
	switch instr.Kind {
	case vm.KindAllocate:
		out.Object = objectToYAML(instr.Object)
		out.IsRoot = instr.IsRoot
	case vm.KindRead:
		addr := instr.Addr
		out.Addr = &addr
	case vm.KindWrite:
		addr, value := instr.Addr, instr.Value
		out.Addr, out.Value = &addr, &value
	}
	return out
}

func objectToYAML(o *heap.Object) *yamlObject {
	yo := &yamlObject{Fields: make([]yamlField, len(o.Fields))}
	for i, f := range o.Fields {
		switch f.Kind {
		case heap.Scalar:
			yo.Fields[i] = yamlField{Kind: "scalar", Value: f.Value}
		case heap.Ref:
			yo.Fields[i] = yamlField{Kind: "ref", Ptr: f.Ptr}
		}
	}
	return yo
}

func fromYAMLDoc(doc yamlDocument) (vm.Program, session.ProgramRuntimeConfig, error) {
	cfg := session.ProgramRuntimeConfig{
		HeapSize:  doc.RTSConfig.HeapSize,
		Alignment: doc.RTSConfig.Alignment,
		Collector: collector.Kind(doc.RTSConfig.GC),
		Generator: generator.DefaultConfig(),
		Seed:      doc.RTSConfig.Seed,
	}

	prog := vm.Program{Instructions: make([]vm.Instruction, 0, len(doc.Program))}
	for i, yi := range doc.Program {
		instr, err := instructionFromYAML(yi)
		if err != nil {
			return vm.Program{}, session.ProgramRuntimeConfig{}, fmt.Errorf("persist: instruction %d: %w", i, err)
		}
		prog.Instructions = append(prog.Instructions, instr)
	}
	return prog, cfg, nil
}

func instructionFromYAML(yi yamlInstr) (vm.Instruction, error) {
	switch yi.Type {
	case "Allocate":
		if yi.Object == nil {
			return vm.Instruction{}, fmt.Errorf("Allocate instruction missing object")
		}
		return vm.Instruction{Kind: vm.KindAllocate, Object: objectFromYAML(yi.Object), IsRoot: yi.IsRoot}, nil
	case "Read":
		if yi.Addr == nil {
			return vm.Instruction{}, fmt.Errorf("Read instruction missing addr")
		}
		return vm.Instruction{Kind: vm.KindRead, Addr: *yi.Addr}, nil
	case "Write":
		if yi.Addr == nil || yi.Value == nil {
			return vm.Instruction{}, fmt.Errorf("Write instruction missing addr/value")
		}
		return vm.Instruction{Kind: vm.KindWrite, Addr: *yi.Addr, Value: *yi.Value}, nil
	case "GC":
		return vm.Instruction{Kind: vm.KindGC}, nil
	default:
		return vm.Instruction{}, fmt.Errorf("unknown instruction type %q", yi.Type)
	}
}

func objectFromYAML(yo *yamlObject) *heap.Object {
	fields := make([]heap.Field, len(yo.Fields))
	for i, yf := range yo.Fields {
		switch yf.Kind {
		case "ref":
			// Ptr is always written on save (see yamlField.Ptr), so the
			// literal value round-trips exactly, including 0 and NullAddr.
			fields[i] = heap.NewRefField(yf.Ptr)
		default:
			fields[i] = heap.NewScalarField(yf.Value)
		}
	}
	return &heap.Object{Fields: fields}
}

// SaveProgramFile writes cfg+p to path as YAML, holding an exclusive file
// lock for the duration of the write so a concurrently running front-end
// driver never observes a half-written file.
func SaveProgramFile(path string, cfg session.ProgramRuntimeConfig, p vm.Program) error {
	fl := flock.New(path + ".lock")
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("persist: locking %s: %w", path, err)
	}
	defer fl.Unlock()

	data, err := yaml.Marshal(toYAMLDoc(cfg, p))
	if err != nil {
		return fmt.Errorf("persist: marshaling program: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persist: writing %s: %w", path, err)
	}
	return nil
}

// LoadProgramFile reads a YAML program file written by SaveProgramFile.
func LoadProgramFile(path string) (vm.Program, session.ProgramRuntimeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return vm.Program{}, session.ProgramRuntimeConfig{}, fmt.Errorf("persist: reading %s: %w", path, err)
	}
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return vm.Program{}, session.ProgramRuntimeConfig{}, fmt.Errorf("persist: parsing %s: %w", path, err)
	}
	return fromYAMLDoc(doc)
}

// ParseLineProgram parses the line-oriented program encoding spec.md §6
// also allows: one instruction per line, shell-word-split with shlex so a
// quoted token can carry spaces. Recognized forms:
//
//	alloc root scalar=3 ref=nil ...
//	alloc       scalar=3 ...
//	read <addr>
//	write <addr> <value>
//	gc
func ParseLineProgram(text string) (vm.Program, error) {
	var prog vm.Program
	for lineNo, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens, err := shlex.Split(line)
		if err != nil {
			return vm.Program{}, fmt.Errorf("persist: line %d: %w", lineNo+1, err)
		}
		instr, err := instructionFromTokens(tokens)
		if err != nil {
			return vm.Program{}, fmt.Errorf("persist: line %d: %w", lineNo+1, err)
		}
		prog.Instructions = append(prog.Instructions, instr)
	}
	return prog, nil
}

func instructionFromTokens(tokens []string) (vm.Instruction, error) {
	if len(tokens) == 0 {
		return vm.Instruction{}, fmt.Errorf("empty instruction")
	}
	switch strings.ToLower(tokens[0]) {
	case "alloc", "allocate":
		isRoot := false
		var fields []heap.Field
		for _, tok := range tokens[1:] {
			if tok == "root" {
				isRoot = true
				continue
			}
			kv := strings.SplitN(tok, "=", 2)
			if len(kv) != 2 {
				return vm.Instruction{}, fmt.Errorf("bad field token %q", tok)
			}
			switch kv[0] {
			case "scalar":
				v, err := strconv.Atoi(kv[1])
				if err != nil {
					return vm.Instruction{}, fmt.Errorf("bad scalar value %q: %w", kv[1], err)
				}
				fields = append(fields, heap.NewScalarField(v))
			case "ref":
				if kv[1] == "nil" {
					fields = append(fields, heap.NewRefField(heap.NullAddr))
					continue
				}
				a, err := strconv.Atoi(kv[1])
				if err != nil {
					return vm.Instruction{}, fmt.Errorf("bad ref address %q: %w", kv[1], err)
				}
				fields = append(fields, heap.NewRefField(a))
			default:
				return vm.Instruction{}, fmt.Errorf("unknown field kind %q", kv[0])
			}
		}
		return vm.Instruction{Kind: vm.KindAllocate, Object: &heap.Object{Fields: fields}, IsRoot: isRoot}, nil

	case "read":
		if len(tokens) != 2 {
			return vm.Instruction{}, fmt.Errorf("read takes exactly one address")
		}
		addr, err := strconv.Atoi(tokens[1])
		if err != nil {
			return vm.Instruction{}, fmt.Errorf("bad address %q: %w", tokens[1], err)
		}
		return vm.Instruction{Kind: vm.KindRead, Addr: addr}, nil

	case "write":
		if len(tokens) != 3 {
			return vm.Instruction{}, fmt.Errorf("write takes exactly an address and a value")
		}
		addr, err := strconv.Atoi(tokens[1])
		if err != nil {
			return vm.Instruction{}, fmt.Errorf("bad address %q: %w", tokens[1], err)
		}
		value, err := strconv.Atoi(tokens[2])
		if err != nil {
			return vm.Instruction{}, fmt.Errorf("bad value %q: %w", tokens[2], err)
		}
		return vm.Instruction{Kind: vm.KindWrite, Addr: addr, Value: value}, nil

	case "gc":
		return vm.Instruction{Kind: vm.KindGC}, nil

	default:
		return vm.Instruction{}, fmt.Errorf("unknown instruction %q", tokens[0])
	}
}
