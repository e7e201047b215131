// SPDX-License-Identifier: Apache-2.0

// Package regalloc implements spec.md §3.3/§4.4: the amd64 register
// allocator. It consumes a per-virtual-register lifetime/interference
// model built from a completed SSA function's linearized instruction
// stream and produces a per-vreg allocation record plus the set of
// physical registers touched.
//
// Grounded on the teacher's internal/ir package for the overall
// "container + pass" shape (a data model package plus one file per
// pipeline stage), on other_examples/ register-allocator references
// (wazero's and ProjectSerenity-firefly's linear-scan allocators) for
// the active-set/priority-bucket allocation idiom, and on
// original_source/source/core/sort.c for the deterministic mergesort
// this package's allocation order depends on.
package regalloc

// Register is a physical register id; its meaning (which architectural
// register, GP vs SSE) is defined by the target's register-order table
// (internal/abi/amd64), not by this package.
type Register int

// Kind is a virtual register's category (spec.md §3.3).
type Kind int

const (
	KindUnspecified Kind = iota
	KindGeneralPurpose
	KindFloatingPoint
	KindSpillSpace
	KindExternalMemory
	KindImmediateInteger
	KindLocalVariable
	KindPair
)

// ResultTag tags a virtual register's allocation-result variant
// (spec.md §3.3 "The allocation result is a tagged union").
type ResultTag int

const (
	Unallocated ResultTag = iota
	AllocRegister
	AllocSpillDirect
	AllocSpillIndirect
	AllocMemoryPointer
	AllocImmediateInteger
	AllocLocalVariable
	AllocPair
)

// Result is one virtual register's allocation outcome.
type Result struct {
	Tag        ResultTag
	Register   Register
	SlotIndex  int
	SlotCount  int
	PairFirst  *VReg
	PairSecond *VReg
}

// Preallocation is the IR emitter's advance request for a vreg's
// placement (spec.md §6.4).
type Preallocation struct {
	Requirement *Register
	Hint        *Register
	SameAs      *VReg
}

// VReg is one amd64 virtual register (spec.md §3.3).
type VReg struct {
	ID            int
	Kind          Kind
	Begin, End    int // half-open... spec says half-open but begin/end inclusive per text; treated as a closed [Begin,End] interval
	Blocks        map[int]bool
	Interference  map[int]bool
	Preallocation *Preallocation

	// SpillLength/SpillAlign are the requested {length, alignment} in
	// qwords for a KindSpillSpace vreg (spec.md §4.4 step 6e).
	SpillLength int
	SpillAlign  int

	// PairFirst/PairSecond are the two component registers of a
	// KindPair vreg; interference and allocation delegate to them
	// (spec.md §3.3 "(indirectly via two sub-register allocations)").
	PairFirst  *VReg
	PairSecond *VReg

	Result Result
}

// NewVReg returns a vreg with the given id, kind, and lifetime, ready
// for block registration and interference computation.
func NewVReg(id int, kind Kind, begin, end int) *VReg {
	return &VReg{
		ID: id, Kind: kind, Begin: begin, End: end,
		Blocks:       make(map[int]bool),
		Interference: make(map[int]bool),
	}
}

// Overlaps reports whether v's lifetime overlaps other's.
func (v *VReg) Overlaps(other *VReg) bool {
	return v.Begin <= other.End && other.Begin <= v.End
}

// SharesBlock reports whether v and other are both registered in at
// least one common virtual block.
func (v *VReg) SharesBlock(other *VReg) bool {
	for b := range v.Blocks {
		if other.Blocks[b] {
			return true
		}
	}
	return false
}

// Duration returns the vreg's lifetime length in instructions.
func (v *VReg) Duration() int { return v.End - v.Begin }
