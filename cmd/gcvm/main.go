// Command gcvm is a thin terminal driver for package session: it is not
// part of the core (spec.md §1 scopes the terminal UI out as an external
// collaborator) but a real repo needs something to actually run a program,
// the way the teacher ships `tinygo build`/`tinygo flash` atop its compiler
// packages.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/inhies/go-bytesize"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-tty"

	"github.com/gcvm-edu/gcvm/collector"
	"github.com/gcvm-edu/gcvm/persist"
	"github.com/gcvm-edu/gcvm/session"
	"github.com/gcvm-edu/gcvm/vm"
)

func main() {
	heapSize := flag.Int("heap", 64, "heap size in address units")
	alignment := flag.Int("align", 0, "allocation alignment (0 = none)")
	gcKind := flag.String("gc", string(collector.MarkSweep), "collector kind: mark-sweep, two-finger, lisp2")
	steps := flag.Int("steps", 30, "number of instructions to generate")
	seed := flag.Int64("seed", 1, "program generator seed")
	programFile := flag.String("program", "", "load a program file instead of generating one")
	interactive := flag.Bool("step", false, "single-step: wait for a keypress between ticks")
	flag.Parse()

	out := colorable.NewColorableStdout()

	cfg := session.DefaultProgramRuntimeConfig()
	cfg.HeapSize = *heapSize
	cfg.Alignment = *alignment
	cfg.Collector = collector.Kind(*gcKind)
	cfg.Generator.Steps = *steps
	cfg.Seed = *seed

	sess, err := session.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *programFile != "" {
		prog, fileCfg, err := persist.LoadProgramFile(*programFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		_ = fileCfg
		sess.LoadProgram(prog)
	} else if _, _, err := sess.GenProgram(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var t *tty.TTY
	if *interactive {
		t, err = tty.Open()
		if err != nil {
			fmt.Fprintln(out, "step mode unavailable, running without pauses:", err)
			*interactive = false
		} else {
			defer t.Close()
		}
	}

	for i := 0; i < len(sess.Program().Instructions); i++ {
		if *interactive {
			fmt.Fprint(out, "\033[2mpress any key to tick...\033[0m")
			if _, err := t.ReadRune(); err != nil {
				break
			}
			fmt.Fprint(out, "\r")
		}
		printTick(out, sess)
	}
}

func printTick(out io.Writer, sess *session.Session) {
	idx := sess.InstrPtr()
	res, err := sess.Tick()
	if err != nil {
		fmt.Fprintf(out, "\033[31m[%d] error: %v\033[0m\n", idx, err)
		return
	}

	switch res.Kind {
	case vm.KindAllocate:
		fmt.Fprintf(out, "\033[32m[%d] allocate\033[0m addr=%d fields=%d\n", idx, res.Addr, len(res.Object.Fields))
	case vm.KindRead:
		fmt.Fprintf(out, "\033[36m[%d] read\033[0m addr=%d value=%d\n", idx, res.Addr, res.Value)
	case vm.KindWrite:
		fmt.Fprintf(out, "\033[36m[%d] write\033[0m addr=%d value=%d\n", idx, res.Addr, res.Value)
	case vm.KindGC:
		freed := bytesize.New(float64(res.GCResult.Stats.BytesFreed))
		free := bytesize.New(float64(res.GCResult.Stats.FreeBytes))
		fmt.Fprintf(out, "\033[33m[%d] gc\033[0m marked=%d freed=%d (%s) heap_free=%s\n",
			idx, res.GCResult.Stats.ObjectsMarked, res.GCResult.Stats.ObjectsFreed, freed, free)
	}
}
