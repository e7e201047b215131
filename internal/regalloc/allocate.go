// SPDX-License-Identifier: Apache-2.0

package regalloc

import kerrors "kefir/internal/errors"

// BuildRegisterOrder returns allRegs reordered caller-saved-first,
// callee-saved-last (spec.md §4.4 step 6d "caller-saved before
// callee-saved, via a mergesort pre-pass") — a stable partition, which
// a mergesort keyed on calleeSaved membership produces identically to
// this direct two-pass partition.
func BuildRegisterOrder(allRegs []Register, calleeSaved map[Register]bool) []Register {
	order := make([]Register, 0, len(allRegs))
	for _, r := range allRegs {
		if !calleeSaved[r] {
			order = append(order, r)
		}
	}
	for _, r := range allRegs {
		if calleeSaved[r] {
			order = append(order, r)
		}
	}
	return order
}

// AllocateOne implements spec.md §4.4 step 6 for a single virtual
// register: it assumes every vreg v interferes with has already been
// allocated (callers must process vregs in priority order, as
// OrderByPriority returns).
func AllocateOne(v *VReg, byID map[int]*VReg, order []Register, spill *SpillBitset) error {
	switch v.Kind {
	case KindImmediateInteger:
		v.Result = Result{Tag: AllocImmediateInteger}
		return nil
	case KindLocalVariable:
		v.Result = Result{Tag: AllocLocalVariable}
		return nil
	case KindExternalMemory:
		v.Result = Result{Tag: AllocMemoryPointer}
		return nil
	case KindSpillSpace:
		length, align := v.SpillLength, v.SpillAlign
		if length == 0 {
			length = 1
		}
		if align == 0 {
			align = 1
		}
		idx := spill.Allocate(length, align)
		v.Result = Result{Tag: AllocSpillDirect, SlotIndex: idx, SlotCount: length}
		return nil
	case KindPair:
		if err := AllocateOne(v.PairFirst, byID, order, spill); err != nil {
			return err
		}
		if err := AllocateOne(v.PairSecond, byID, order, spill); err != nil {
			return err
		}
		v.Result = Result{Tag: AllocPair, PairFirst: v.PairFirst, PairSecond: v.PairSecond}
		return nil
	}

	activeRegisters := map[Register]bool{}
	activeHints := map[Register]bool{}
	for id := range v.Interference {
		other := byID[id]
		if other == nil {
			continue
		}
		if other.Result.Tag == AllocRegister {
			activeRegisters[other.Result.Register] = true
		}
		if other.Preallocation != nil {
			if other.Preallocation.Requirement != nil {
				activeHints[*other.Preallocation.Requirement] = true
			}
			if other.Preallocation.Hint != nil {
				activeHints[*other.Preallocation.Hint] = true
			}
		}
	}

	// b. Requirement: must be honored, or InternalError.
	if p := v.Preallocation; p != nil && p.Requirement != nil {
		if activeRegisters[*p.Requirement] {
			return kerrors.Newf(kerrors.Internal,
				"regalloc: required register conflicts with an active allocation for vreg %d", v.ID)
		}
		v.Result = Result{Tag: AllocRegister, Register: *p.Requirement}
		return nil
	}

	// c. Hint or SameAs, if free.
	if p := v.Preallocation; p != nil {
		if p.Hint != nil && !activeRegisters[*p.Hint] {
			v.Result = Result{Tag: AllocRegister, Register: *p.Hint}
			return nil
		}
		if p.SameAs != nil && p.SameAs.Result.Tag == AllocRegister && !activeRegisters[p.SameAs.Result.Register] {
			v.Result = Result{Tag: AllocRegister, Register: p.SameAs.Result.Register}
			return nil
		}
	}

	// d. Scan preferred order: hint-free registers first, then any
	// register not already active; otherwise spill.
	for _, r := range order {
		if !activeRegisters[r] && !activeHints[r] {
			v.Result = Result{Tag: AllocRegister, Register: r}
			return nil
		}
	}
	for _, r := range order {
		if !activeRegisters[r] {
			v.Result = Result{Tag: AllocRegister, Register: r}
			return nil
		}
	}

	length, align := 1, 1
	if v.Kind == KindFloatingPoint {
		length, align = 2, 2
	}
	idx := spill.Allocate(length, align)
	v.Result = Result{Tag: AllocSpillDirect, SlotIndex: idx, SlotCount: length}
	return nil
}
