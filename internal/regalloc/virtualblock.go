// SPDX-License-Identifier: Apache-2.0

package regalloc

import kerrors "kefir/internal/errors"

// VBlock is one node of the virtual-block tree (spec.md §3.3/§4.4 step
// 2): a nesting scope, distinct from the flow-control tree, delimited
// in the IR stream by virtual_block_begin/end pseudo-instructions.
type VBlock struct {
	ID       int
	Parent   *VBlock
	Children []*VBlock
	Start    int // linearized instruction index virtual_block_begin occupies
	End      int // linearized instruction index virtual_block_end occupies
}

// BlockEvent is one virtual_block_begin/end pseudo-instruction, at its
// linearized instruction index.
type BlockEvent struct {
	Index int
	Begin bool
	ID    int
}

// VirtualBlockTree is the collected tree plus an index → innermost
// block lookup.
type VirtualBlockTree struct {
	Base  *VBlock
	byID  map[int]*VBlock
	spans []*VBlock // open blocks at each point, built incrementally
}

// CollectVirtualBlocks builds the virtual-block tree from an ordered
// event stream (spec.md §4.4 step 2: "A default block wraps the entire
// function"). events must be sorted by Index and well-nested.
func CollectVirtualBlocks(events []BlockEvent, codeLength int) (*VirtualBlockTree, error) {
	base := &VBlock{ID: baseBlockID, Start: 0, End: codeLength}
	tree := &VirtualBlockTree{Base: base, byID: map[int]*VBlock{baseBlockID: base}}

	stack := []*VBlock{base}
	for _, ev := range events {
		if ev.Begin {
			if _, exists := tree.byID[ev.ID]; exists {
				return nil, kerrors.Newf(kerrors.InvalidState, "regalloc: duplicate virtual block id %d", ev.ID)
			}
			b := &VBlock{ID: ev.ID, Parent: stack[len(stack)-1], Start: ev.Index}
			stack[len(stack)-1].Children = append(stack[len(stack)-1].Children, b)
			tree.byID[ev.ID] = b
			stack = append(stack, b)
		} else {
			if len(stack) <= 1 {
				return nil, kerrors.New(kerrors.InvalidState, "regalloc: virtual_block_end with no matching begin")
			}
			top := stack[len(stack)-1]
			if top.ID != ev.ID {
				return nil, kerrors.Newf(kerrors.InvalidState, "regalloc: mismatched virtual block end, expected %d got %d", top.ID, ev.ID)
			}
			top.End = ev.Index
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) != 1 {
		return nil, kerrors.New(kerrors.InvalidState, "regalloc: unclosed virtual block at end of stream")
	}
	return tree, nil
}

// InnermostAt returns the innermost block containing instruction index
// idx.
func (t *VirtualBlockTree) InnermostAt(idx int) *VBlock {
	return innermostAt(t.Base, idx)
}

func innermostAt(b *VBlock, idx int) *VBlock {
	if idx < b.Start || idx > b.End {
		return nil
	}
	for _, c := range b.Children {
		if found := innermostAt(c, idx); found != nil {
			return found
		}
	}
	return b
}

// EnclosingChain returns b and every ancestor up to and including the
// base block.
func (t *VirtualBlockTree) EnclosingChain(b *VBlock) []*VBlock {
	var chain []*VBlock
	for cur := b; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	return chain
}

// RegisterVReg registers v in the innermost virtual block containing
// its first mention (v.Begin) and every block enclosing it (spec.md
// §4.4 step 2: "a register is registered in its block and all
// enclosing blocks").
func (t *VirtualBlockTree) RegisterVReg(v *VReg) {
	innermost := t.InnermostAt(v.Begin)
	if innermost == nil {
		innermost = t.Base
	}
	for _, b := range t.EnclosingChain(innermost) {
		v.Blocks[b.ID] = true
	}
}

// ApplyPreservePoints expands the lifetime of every vreg live at a
// preserve_active_virtual_registers pseudo-op to [0, codeLength] and
// re-registers it in the base block (spec.md §4.4 step 3), modeling
// long-lived values across arbitrary boundaries such as setjmp.
func ApplyPreservePoints(tree *VirtualBlockTree, vregs []*VReg, preserveIndices []int, codeLength int) {
	for _, idx := range preserveIndices {
		for _, v := range vregs {
			if v.Begin <= idx && idx <= v.End {
				v.Begin, v.End = 0, codeLength
				v.Blocks[baseBlockID] = true
			}
		}
	}
}
