// SPDX-License-Identifier: Apache-2.0

package regalloc

// SortVRegsStable sorts vregs in place by less, using a bottom-up,
// stable merge sort — grounded on
// original_source/source/core/sort.c's stable mergesort, which the
// allocator depends on for "numerical semantics are deterministic
// given a fixed virtual-register enumeration order and a fixed
// mergesort comparator" (spec.md §4.4).
func SortVRegsStable(vregs []*VReg, less func(a, b *VReg) bool) {
	n := len(vregs)
	if n < 2 {
		return
	}
	buf := make([]*VReg, n)
	src, dst := vregs, buf

	for width := 1; width < n; width *= 2 {
		for lo := 0; lo < n; lo += 2 * width {
			mid := minInt(lo+width, n)
			hi := minInt(lo+2*width, n)
			mergeRuns(src, dst, lo, mid, hi, less)
		}
		src, dst = dst, src
	}
	if &src[0] != &vregs[0] {
		copy(vregs, src)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func mergeRuns(src, dst []*VReg, lo, mid, hi int, less func(a, b *VReg) bool) {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		// Stability: on a tie, prefer the left run's element.
		if less(src[j], src[i]) {
			dst[k] = src[j]
			j++
		} else {
			dst[k] = src[i]
			i++
		}
		k++
	}
	for i < mid {
		dst[k] = src[i]
		i++
		k++
	}
	for j < hi {
		dst[k] = src[j]
		j++
		k++
	}
}
