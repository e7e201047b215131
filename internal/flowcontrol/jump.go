// SPDX-License-Identifier: Apache-2.0

package flowcontrol

import (
	"kefir/internal/ast"
	kerrors "kefir/internal/errors"
)

// ScopePop is emitted by LowerJump for every VL-array scope the jump
// unwinds through, in innermost-first order, matching the runtime
// scope-pop ast-translator/jump.c emits for each crossed VLA.
type ScopePop struct {
	VLArrayID int
}

// LowerJump implements spec.md §4.1's jump-lowering algorithm for a
// jump from origin to target. It returns, in emission order, the
// ScopePops the jump must perform before it fires, or an Analysis error
// if the jump is invalid.
//
// Step 1 rejects jumping into any scope that still holds a live VLA
// (spec.md: "Jumping into a scope holding a live VLA always fails").
// Step 2 collects the scope-pops owed for VLAs between origin and their
// common ancestor with target. Step 3 additionally rejects a forward
// jump that skips over a sibling Block whose VLA would be left
// uninitialized on the taken path.
func (t *Tree) LowerJump(origin, target *Point, originLoc ast.Position) ([]ScopePop, error) {
	common, err := t.CommonParent(origin, target)
	if err != nil {
		return nil, err
	}

	// Step 1: jumping into a scope with a live VLA is always invalid,
	// forward or backward.
	for _, s := range t.PointParents(target, common) {
		if s.tag == Block && s.ContainsVLArrays() {
			return nil, kerrors.NewAnalysis(originLoc, "Cannot jump into scope with local VLA variables")
		}
	}

	// Step 2: unwind VLA scopes from origin up to (excluding) common,
	// innermost first.
	originAncestors := t.PointParents(origin, common)
	var pops []ScopePop
	for _, s := range originAncestors {
		if s.tag == Block && s.ContainsVLArrays() {
			id, err := s.VLArrayHead()
			if err != nil {
				return nil, err
			}
			pops = append(pops, ScopePop{VLArrayID: id})
		}
	}

	// Step 3: a forward jump (target's top-ancestor appears after
	// origin's among common's children) that skips over an
	// intervening sibling Block with VLA allocations leaves that
	// block's VLA uninitialized on the taken path.
	targetAncestors := t.PointParents(target, common)
	if len(originAncestors) > 0 && len(targetAncestors) > 0 {
		siblings := childrenOf(t, common)
		originTop := originAncestors[len(originAncestors)-1]
		targetTop := targetAncestors[len(targetAncestors)-1]
		oi := siblingIndex(siblings, originTop)
		ti := siblingIndex(siblings, targetTop)
		if oi >= 0 && ti > oi+1 {
			for _, between := range siblings[oi+1 : ti] {
				if between.tag == Block && between.ContainsVLArrays() {
					return nil, kerrors.NewAnalysis(originLoc,
						"Cannot jump in the scope with uninitialized VLA variables")
				}
			}
		}
	}

	return pops, nil
}
