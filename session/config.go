package session

import (
	"fmt"

	"github.com/gcvm-edu/gcvm/collector"
	"github.com/gcvm-edu/gcvm/generator"
)

// ProgramRuntimeConfig bundles everything a Session needs to build a VM and,
// optionally, generate a program for it: heap size, alignment, collector
// kind, and the generator's own configuration. It mirrors the shape
// compileopts.Options gives the teacher's compiler: plain exported fields
// plus a Validate method enumerating legal values (spec.md §6 rts_config).
type ProgramRuntimeConfig struct {
	HeapSize  int
	Alignment int
	Collector collector.Kind
	Generator generator.Config
	Seed      int64
}

// DefaultProgramRuntimeConfig returns a small, immediately usable config.
func DefaultProgramRuntimeConfig() ProgramRuntimeConfig {
	return ProgramRuntimeConfig{
		HeapSize:  64,
		Alignment: 0,
		Collector: collector.MarkSweep,
		Generator: generator.DefaultConfig(),
		Seed:      1,
	}
}

// Validate checks that the config describes a buildable VM.
func (c ProgramRuntimeConfig) Validate() error {
	if c.HeapSize <= 0 {
		return fmt.Errorf("session: heap size must be positive, got %d", c.HeapSize)
	}
	if c.Alignment < 0 {
		return fmt.Errorf("session: alignment must be non-negative, got %d", c.Alignment)
	}
	switch c.Collector {
	case collector.MarkSweep, collector.TwoFinger, collector.Lisp2:
	default:
		return fmt.Errorf("session: unknown collector kind %q", c.Collector)
	}
	return c.Generator.Validate()
}
