// Package vmerr defines the error taxonomy shared by every component of the
// GC virtual machine. Errors are typed values, not formatted strings, so
// callers (the session driver, tests) can match on kind with errors.As.
package vmerr

import "fmt"

// Address mirrors heap.Address without importing the heap package, to avoid
// an import cycle (heap itself returns these errors).
type Address = int

// AllocationError is returned when the allocator cannot satisfy a request.
type AllocationError struct {
	Size      int
	Alignment int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("gc: could not allocate %d field(s) (alignment %d): no free run large enough", e.Size, e.Alignment)
}

// DeallocationError is returned by free_object on an unknown address. It
// indicates a logic bug in the caller (usually a collector), not bad user
// input.
type DeallocationError struct {
	Addr Address
}

func (e *DeallocationError) Error() string {
	return fmt.Sprintf("gc: deallocation of unknown address %d", e.Addr)
}

// SegmentationFault is returned when an address does not lie inside any
// object.
type SegmentationFault struct {
	Addr Address
}

func (e *SegmentationFault) Error() string {
	return fmt.Sprintf("gc: segmentation fault at address %d", e.Addr)
}

// NullPointerException is returned when a mutator read crosses a null
// reference field.
type NullPointerException struct {
	Addr   Address
	Detail string
}

func (e *NullPointerException) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("gc: null pointer dereferenced at address %d", e.Addr)
	}
	return fmt.Sprintf("gc: null pointer dereferenced at address %d: %s", e.Addr, e.Detail)
}

// GCError is reserved for collector-internal failure. No collector in this
// module currently produces one; it exists so the taxonomy is complete and
// future collectors (e.g. a generational variant) have somewhere to report
// internal inconsistency without inventing a new error kind.
type GCError struct {
	Reason string
}

func (e *GCError) Error() string {
	return fmt.Sprintf("gc: internal collector error: %s", e.Reason)
}

// UnknownError is returned by the session when ticking past the end of the
// program.
type UnknownError struct {
	Detail string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("gc: unknown error: %s", e.Detail)
}
