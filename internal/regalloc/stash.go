// SPDX-License-Identifier: Apache-2.0

package regalloc

// Stash is a stash_activate pseudo-instruction request: at the
// activation index, save every live physical register overlapping the
// stash's register mask into a spill area (spec.md §4.4 step 7).
type Stash struct {
	ActivationIndex int
	LivenessIndex   int
	Mask            map[Register]bool
	SpillVReg       *VReg // the indirect-spill vreg whose size this resizes
}

// ResolveStashes computes, for each stash, the spill-space size its
// masked registers require — 1 qword per live general-purpose
// register, 2 per live SSE register — resizes the associated spill
// vreg, and allocates it (spec.md §4.4 step 7).
func ResolveStashes(stashes []Stash, vregs []*VReg, byID map[int]*VReg, order []Register, spill *SpillBitset) error {
	for i := range stashes {
		s := &stashes[i]
		length := 0
		for _, v := range vregs {
			if v.Result.Tag != AllocRegister || !s.Mask[v.Result.Register] {
				continue
			}
			if !v.Overlaps(&VReg{Begin: s.LivenessIndex, End: s.ActivationIndex}) {
				continue
			}
			if v.Kind == KindFloatingPoint {
				length += 2
			} else {
				length++
			}
		}
		s.SpillVReg.Kind = KindSpillSpace
		s.SpillVReg.SpillLength = length
		s.SpillVReg.SpillAlign = 1
		if length > 1 {
			s.SpillVReg.SpillAlign = 2
		}
		if err := AllocateOne(s.SpillVReg, byID, order, spill); err != nil {
			return err
		}
	}
	return nil
}
