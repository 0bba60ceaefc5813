package generator

import "fmt"

// Weights is the weighted choice distribution over the four instruction
// kinds (spec.md §4.8). A zero weight disables that instruction entirely —
// useful early on an empty heap, where Read/Write have nothing to act on.
type Weights struct {
	Allocate int
	Read     int
	Write    int
	GC       int
}

// Config drives the program generator.
type Config struct {
	Weights Weights

	MinFields int // minimum fields per generated object (>=1)
	MaxFields int // maximum fields per generated object (<=10 per spec.md §4.8)

	ScalarMax int // inclusive upper bound for a random scalar payload (spec.md default: 9)

	// PScalarWrite is the probability, in [0,1], that a Write targets a
	// scalar payload rather than a pointer (spec.md §4.8:
	// p_scalar/(p_scalar+p_pointer)).
	PScalarWrite float64

	Steps int // number of instructions to generate
}

// DefaultConfig matches the weights and bounds spec.md §4.8 describes.
func DefaultConfig() Config {
	return Config{
		Weights:      Weights{Allocate: 4, Read: 3, Write: 3, GC: 1},
		MinFields:    1,
		MaxFields:    10,
		ScalarMax:    9,
		PScalarWrite: 0.5,
		Steps:        50,
	}
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.Weights.Allocate+c.Weights.Read+c.Weights.Write+c.Weights.GC <= 0 {
		return fmt.Errorf("generator: at least one instruction weight must be positive")
	}
	if c.Weights.Allocate < 0 || c.Weights.Read < 0 || c.Weights.Write < 0 || c.Weights.GC < 0 {
		return fmt.Errorf("generator: weights must be non-negative")
	}
	if c.MinFields < 1 || c.MaxFields < c.MinFields || c.MaxFields > 10 {
		return fmt.Errorf("generator: field count bounds must satisfy 1 <= min <= max <= 10, got [%d,%d]", c.MinFields, c.MaxFields)
	}
	if c.ScalarMax < 0 {
		return fmt.Errorf("generator: scalar max must be non-negative")
	}
	if c.PScalarWrite < 0 || c.PScalarWrite > 1 {
		return fmt.Errorf("generator: PScalarWrite must be in [0,1], got %v", c.PScalarWrite)
	}
	if c.Steps < 0 {
		return fmt.Errorf("generator: steps must be non-negative")
	}
	return nil
}
