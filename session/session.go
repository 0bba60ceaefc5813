// Package session owns the program pointer, bounded event log, and VM
// lifecycle, translating tick results into the in-process API of spec.md
// §6: Session::new, Session::tick, Session::restart, Session::gen_program.
package session

import (
	"github.com/gcvm-edu/gcvm/generator"
	"github.com/gcvm-edu/gcvm/vm"
	"github.com/gcvm-edu/gcvm/vmerr"
)

// VMError is the error type returned by Session.Tick, matching spec.md §6's
// Result<InstructionResult, VMError>. It is always one of the concrete
// types in package vmerr.
type VMError = error

// Session drives a Program against a VM, one instruction per Tick.
type Session struct {
	cfg     ProgramRuntimeConfig
	program vm.Program
	ptr     int
	log     *Log
	machine *vm.VM
}

// New builds a Session over a fresh VM described by cfg, with no program
// loaded yet. Use LoadProgram or GenProgram to populate one.
func New(cfg ProgramRuntimeConfig) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		cfg:     cfg,
		log:     newLog(),
		machine: vm.New(cfg.HeapSize, cfg.Alignment, cfg.Collector),
	}, nil
}

// LoadProgram replaces the session's program and rewinds the pointer to 0.
// It does not touch the VM or log.
func (s *Session) LoadProgram(p vm.Program) {
	s.program = p
	s.ptr = 0
}

// Program returns the currently loaded program.
func (s *Session) Program() vm.Program {
	return s.program
}

// InstrPtr returns the index of the next instruction Tick will execute.
func (s *Session) InstrPtr() int {
	return s.ptr
}

// Log returns the session's bounded event log.
func (s *Session) Log() *Log {
	return s.log
}

// Machine exposes the underlying VM for read-only introspection (heap
// snapshots, etc.) by a front-end between ticks.
func (s *Session) Machine() *vm.VM {
	return s.machine
}

// Tick executes the next instruction. On success the program pointer
// advances and the result is logged; on error the pointer is left in place
// and the error is logged instead (spec.md §7: errors do not mutate heap
// state and do not advance the pointer). Ticking past the end of the
// program returns an UnknownError.
func (s *Session) Tick() (vm.InstructionResult, VMError) {
	if s.ptr >= len(s.program.Instructions) {
		err := &vmerr.UnknownError{Detail: "tick past end of program"}
		s.log.push(LogEntry{InstrIndex: s.ptr, Err: err})
		return vm.InstructionResult{}, err
	}

	instr := s.program.Instructions[s.ptr]
	res, err := s.machine.Tick(instr)
	if err != nil {
		s.log.push(LogEntry{InstrIndex: s.ptr, Instr: instr, Err: err})
		return vm.InstructionResult{}, err
	}
	s.log.push(LogEntry{InstrIndex: s.ptr, Instr: instr, Result: res})
	s.ptr++
	return res, nil
}

// Restart resets the VM with a fresh heap and a freshly-constructed
// collector of the same kind, clears the log, and rewinds the pointer to 0
// (spec.md §4.9). The loaded program is kept; callers that want a new
// program should call GenProgram or LoadProgram afterward.
func (s *Session) Restart() {
	s.machine = vm.New(s.cfg.HeapSize, s.cfg.Alignment, s.cfg.Collector)
	s.log.clear()
	s.ptr = 0
}

// GenProgram builds a fresh random program against a throwaway shadow VM
// matching this session's config, loads it, and returns it alongside the
// config used to build it (spec.md §6: Session::gen_program).
func (s *Session) GenProgram() (vm.Program, ProgramRuntimeConfig, error) {
	gen, err := generator.New(s.cfg.Generator, s.cfg.HeapSize, s.cfg.Alignment, s.cfg.Collector, s.cfg.Seed)
	if err != nil {
		return vm.Program{}, ProgramRuntimeConfig{}, err
	}
	p := gen.Generate()
	s.LoadProgram(p)
	return p, s.cfg, nil
}
