// SPDX-License-Identifier: Apache-2.0

package regalloc

// StackFrame is the externally-maintained stack-frame object the
// allocator reports register and spill-area usage to (spec.md §6.2):
// opaque beyond the methods it exposes here. UseRegister and
// UseSSERegister are reported separately because a prologue preserves
// them differently — push/pop for general-purpose registers, movaps
// save/restore sequences for SSE (original_source's stack_frame.c;
// SPEC_FULL.md §7 item 5).
type StackFrame interface {
	UseRegister(r Register)
	UseSSERegister(r Register)
	EnsureSpillArea(qwords int)
}

// Finalize reports the maximum spill-area size and every non-volatile
// (callee-saved) register touched to frame, split by general-purpose
// vs. SSE (spec.md §4.4 step 8, enriched per SPEC_FULL.md §7 item 5).
func Finalize(vregs []*VReg, spill *SpillBitset, calleeSaved map[Register]bool, frame StackFrame) {
	frame.EnsureSpillArea(spill.Size())
	reportedGP := map[Register]bool{}
	reportedSSE := map[Register]bool{}
	for _, v := range vregs {
		if v.Result.Tag != AllocRegister || !calleeSaved[v.Result.Register] {
			continue
		}
		if v.Kind == KindFloatingPoint {
			if !reportedSSE[v.Result.Register] {
				frame.UseSSERegister(v.Result.Register)
				reportedSSE[v.Result.Register] = true
			}
			continue
		}
		if !reportedGP[v.Result.Register] {
			frame.UseRegister(v.Result.Register)
			reportedGP[v.Result.Register] = true
		}
	}
}
