// SPDX-License-Identifier: Apache-2.0

package regalloc

import "kefir/internal/ssa"

// Linearize assigns a dense linear instruction index to every
// instruction of fn, in block then intra-block order, and returns the
// per-instruction index side table alongside the total code length
// (spec.md §4.4 step 1).
func Linearize(fn *ssa.Function) (map[*ssa.Instruction]int, int) {
	indices := make(map[*ssa.Instruction]int)
	idx := 0
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			indices[inst] = idx
			idx++
		}
	}
	return indices, idx
}

// Program is the allocator's input: the vreg set, virtual-block
// events, preserve-point and stash requests an IR emitter recorded
// alongside a completed SSA function (spec.md §4.4 "Inputs").
type Program struct {
	CodeLength      int
	VRegs           []*VReg
	BlockEvents     []BlockEvent
	PreserveIndices []int
	Stashes         []Stash
}

// Target is the register-class configuration the allocator scans
// (spec.md §4.4 step 6d), keyed by vreg kind.
type Target struct {
	GeneralPurpose []Register
	FloatingPoint  []Register
	CalleeSaved    map[Register]bool
}

// Allocator runs the full spec.md §4.4 pipeline over one Program.
type Allocator struct {
	Target Target
}

// Run executes steps 2-8 of spec.md §4.4 (step 1, linearization, is the
// caller's responsibility when building Program from an ssa.Function)
// and reports results to frame.
func (a *Allocator) Run(p *Program, frame StackFrame) error {
	tree, err := CollectVirtualBlocks(p.BlockEvents, p.CodeLength)
	if err != nil {
		return err
	}
	for _, v := range p.VRegs {
		tree.RegisterVReg(v)
	}

	ApplyPreservePoints(tree, p.VRegs, p.PreserveIndices, p.CodeLength)

	BuildInterference(p.VRegs)

	byID := make(map[int]*VReg, len(p.VRegs))
	for _, v := range p.VRegs {
		byID[v.ID] = v
	}

	ordered := OrderByPriority(p.VRegs, p.CodeLength)

	gpOrder := BuildRegisterOrder(a.Target.GeneralPurpose, a.Target.CalleeSaved)
	fpOrder := BuildRegisterOrder(a.Target.FloatingPoint, a.Target.CalleeSaved)

	spill := &SpillBitset{}
	for _, v := range ordered {
		order := gpOrder
		if v.Kind == KindFloatingPoint {
			order = fpOrder
		}
		if err := AllocateOne(v, byID, order, spill); err != nil {
			return err
		}
	}

	if err := ResolveStashes(p.Stashes, p.VRegs, byID, gpOrder, spill); err != nil {
		return err
	}

	Finalize(p.VRegs, spill, a.Target.CalleeSaved, frame)
	return nil
}
