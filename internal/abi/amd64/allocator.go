// SPDX-License-Identifier: Apache-2.0

package amd64

import kerrors "kefir/internal/errors"

// Register is a physical register id in the System V amd64 parameter
// sequence.
type Register int

// IntegerParamRegs and SSEParamRegs are the fixed general-purpose and
// SSE argument-register sequences of the System V amd64 calling
// convention (spec.md §4.5 "a fixed sequence").
var (
	IntegerParamRegs = []Register{0 /*RDI*/, 1 /*RSI*/, 2 /*RDX*/, 3 /*RCX*/, 4 /*R8*/, 5 /*R9*/}
	SSEParamRegs     = []Register{0, 1, 2, 3, 4, 5, 6, 7} // XMM0..XMM7
)

// Location is where one qword of a classified argument lands.
type Location struct {
	InMemory    bool
	Reg         Register
	IsSSE       bool
	StackOffset int // valid only if InMemory
}

// ParameterAllocator assigns classified arguments to the fixed
// integer/SSE register sequences, spilling to the stack once a class's
// registers are exhausted (spec.md §4.5 "each non-Memory qword consumes
// a general-purpose or SSE parameter register from a fixed sequence;
// when registers run out the remaining qwords spill to the stack").
type ParameterAllocator struct {
	nextInt   int
	nextSSE   int
	stackUsed int
}

// NewParameterAllocator returns an allocator starting from the first
// integer and SSE parameter registers.
func NewParameterAllocator() *ParameterAllocator {
	return &ParameterAllocator{}
}

// Allocate assigns a location to every qword of classes, in order,
// returning one Location per qword.
func (a *ParameterAllocator) Allocate(classes []QClass) ([]Location, error) {
	if len(classes) == 1 && classes[0] == Memory {
		return []Location{a.spill(8)}, nil
	}

	locs := make([]Location, len(classes))
	for i, c := range classes {
		switch c {
		case Integer:
			if a.nextInt < len(IntegerParamRegs) {
				locs[i] = Location{Reg: IntegerParamRegs[a.nextInt]}
				a.nextInt++
				continue
			}
			locs[i] = a.spill(8)
		case SSE, SSEUp:
			if a.nextSSE < len(SSEParamRegs) {
				locs[i] = Location{Reg: SSEParamRegs[a.nextSSE], IsSSE: true}
				a.nextSSE++
				continue
			}
			locs[i] = a.spill(8)
		case X87, X87Up, ComplexX87:
			// X87-family qwords come from a long double (X87, X87Up)
			// or complex long double (ComplexX87) that was not merged
			// into Memory; the classifier returns them as such, and
			// this allocator never places them in a GP or SSE
			// register: each such qword takes an 8-byte stack slot.
			locs[i] = a.spill(8)
		default:
			return nil, kerrors.Newf(kerrors.Internal, "amd64: cannot allocate qword class %v", c)
		}
	}
	return locs, nil
}

func (a *ParameterAllocator) spill(size int) Location {
	off := a.stackUsed
	a.stackUsed += size
	return Location{InMemory: true, StackOffset: off}
}

// IntegerRegistersUsed and SSERegistersUsed report how many registers
// of each class the allocator has consumed so far.
func (a *ParameterAllocator) IntegerRegistersUsed() int { return a.nextInt }
func (a *ParameterAllocator) SSERegistersUsed() int     { return a.nextSSE }
