// SPDX-License-Identifier: Apache-2.0

package regalloc

import "math"

// baseBlockID is the id CollectVirtualBlocks always assigns the
// function-wide default block (spec.md §4.4 step 2 "a default block
// wraps the entire function").
const baseBlockID = 0

// priorityKey is the (upper, lower) allocation-order bucket key of
// spec.md §4.4 step 5.
type priorityKey struct {
	upper int
	lower int
}

func priorityOf(v *VReg, codeLength int) priorityKey {
	if v.End-v.Begin >= codeLength && v.Blocks[baseBlockID] {
		return priorityKey{upper: math.MaxInt32, lower: v.Begin}
	}
	return priorityKey{upper: v.Duration() >> 5, lower: v.Begin}
}

func less(a, b priorityKey) bool {
	if a.upper != b.upper {
		return a.upper < b.upper
	}
	return a.lower < b.lower
}

// OrderByPriority returns vregs sorted into ascending priority-bucket
// order (spec.md §4.4 step 5), via the package's deterministic
// mergesort. Registers whose lifetime spans the whole function and are
// registered in the base block are deprioritized to the end.
func OrderByPriority(vregs []*VReg, codeLength int) []*VReg {
	ordered := append([]*VReg(nil), vregs...)
	SortVRegsStable(ordered, func(a, b *VReg) bool {
		return less(priorityOf(a, codeLength), priorityOf(b, codeLength))
	})
	return ordered
}
