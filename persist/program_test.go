package persist

import (
	"path/filepath"
	"testing"

	"github.com/gcvm-edu/gcvm/collector"
	"github.com/gcvm-edu/gcvm/heap"
	"github.com/gcvm-edu/gcvm/session"
	"github.com/gcvm-edu/gcvm/vm"
)

func sampleProgram() vm.Program {
	return vm.Program{Instructions: []vm.Instruction{
		{Kind: vm.KindAllocate, Object: &heap.Object{Fields: []heap.Field{
			heap.NewScalarField(3),
			heap.NewRefField(heap.NullAddr),
		}}, IsRoot: true},
		{Kind: vm.KindWrite, Addr: 1, Value: 5},
		{Kind: vm.KindRead, Addr: 0},
		{Kind: vm.KindGC},
	}}
}

func TestProgramFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "program.yaml")

	cfg := session.DefaultProgramRuntimeConfig()
	cfg.Collector = collector.TwoFinger
	prog := sampleProgram()

	if err := SaveProgramFile(path, cfg, prog); err != nil {
		t.Fatalf("save: %v", err)
	}
	gotProg, gotCfg, err := LoadProgramFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if gotCfg.Collector != collector.TwoFinger {
		t.Fatalf("expected collector kind to round-trip, got %q", gotCfg.Collector)
	}
	if got := len(gotProg.Instructions); got != len(prog.Instructions) {
		t.Fatalf("expected %d instructions, got %d", len(prog.Instructions), got)
	}
	writeInstr := gotProg.Instructions[1]
	if writeInstr.Kind != vm.KindWrite || writeInstr.Addr != 1 || writeInstr.Value != 5 {
		t.Fatalf("write instruction did not round-trip: %+v", writeInstr)
	}
	allocInstr := gotProg.Instructions[0]
	if len(allocInstr.Object.Fields) != 2 || allocInstr.Object.Fields[0].Value != 3 {
		t.Fatalf("allocate instruction's object did not round-trip: %+v", allocInstr.Object)
	}
	if !allocInstr.Object.Fields[1].IsNull() {
		t.Fatalf("expected the null ref field to round-trip as null")
	}
}

func TestParseLineProgramBasicForms(t *testing.T) {
	text := `
# a comment, and a blank line above

alloc root scalar=4 ref=nil
write 0 7
read 1
gc
`
	prog, err := ParseLineProgram(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(prog.Instructions); got != 4 {
		t.Fatalf("expected 4 instructions, got %d", got)
	}
	if prog.Instructions[0].Kind != vm.KindAllocate || !prog.Instructions[0].IsRoot {
		t.Fatalf("expected a rooted allocate first, got %+v", prog.Instructions[0])
	}
	if got := len(prog.Instructions[0].Object.Fields); got != 2 {
		t.Fatalf("expected 2 fields parsed, got %d", got)
	}
	if prog.Instructions[1].Kind != vm.KindWrite || prog.Instructions[1].Value != 7 {
		t.Fatalf("unexpected write instruction: %+v", prog.Instructions[1])
	}
	if prog.Instructions[2].Kind != vm.KindRead || prog.Instructions[2].Addr != 1 {
		t.Fatalf("unexpected read instruction: %+v", prog.Instructions[2])
	}
	if prog.Instructions[3].Kind != vm.KindGC {
		t.Fatalf("expected a gc instruction, got %+v", prog.Instructions[3])
	}
}

func TestParseLineProgramRejectsUnknownInstruction(t *testing.T) {
	if _, err := ParseLineProgram("frobnicate 1 2"); err == nil {
		t.Fatalf("expected an error for an unrecognized instruction")
	}
}
