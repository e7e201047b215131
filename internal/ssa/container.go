// SPDX-License-Identifier: Apache-2.0

package ssa

import (
	kerrors "kefir/internal/errors"
	"kefir/internal/lir"
)

// CreateBlock appends a new, empty, unfinalized block and returns it
// (spec.md §4.3 "create a new, empty, unfinalized block").
func (f *Function) CreateBlock() *Block {
	b := &Block{ID: len(f.blocks), Labels: make(map[string]bool)}
	f.blocks = append(f.blocks, b)
	return b
}

// Block returns the block with the given id, or false if out of range.
func (f *Function) Block(id int) (*Block, bool) {
	if id < 0 || id >= len(f.blocks) {
		return nil, false
	}
	return f.blocks[id], true
}

// Blocks returns every block in the function, in creation (id) order.
func (f *Function) Blocks() []*Block { return f.blocks }

// NewValue allocates a fresh, unique value-ref (spec.md §3.2 "Every
// instruction is identified by a unique value-ref").
func (f *Function) NewValue() ValueRef {
	v := f.nextValue
	f.nextValue++
	return v
}

// AppendInstruction appends inst to b's instruction list (and, if it
// has a side effect or terminates the block, to the control-flow
// sub-list), returning an error if b is already finalized (spec.md
// §4.3 "append an instruction to a block (error if already finalized,
// unless it is the terminator")).
func (f *Function) AppendInstruction(b *Block, inst *Instruction) error {
	if b.finalized {
		return kerrors.New(kerrors.InvalidState, "ssa: cannot append to a finalized block")
	}
	inst.Block = b.ID
	b.Instructions = append(b.Instructions, inst)
	if inst.hasSideEffect() {
		b.Control = append(b.Control, inst)
	}
	if f.terminates(inst) {
		b.finalized = true
		b.Succs = f.terminatorSuccessors(inst)
	}
	return nil
}

// terminates reports whether inst ends its block. Every opcode but
// InlineAssembly decides this from its own tag; InlineAssembly only
// terminates once its site has recorded jump targets (spec.md §4.2
// "InlineAsm (when it has jump targets)") — a site with none is an
// ordinary side-effecting instruction with an implicit fallthrough.
func (f *Function) terminates(inst *Instruction) bool {
	if inst.Op == lir.OpInlineAssembly {
		site, ok := f.InlineAsmSite(inst.InlineAsmSite)
		return ok && len(site.JumpTargets) > 0
	}
	return inst.IsTerminator()
}

func (f *Function) terminatorSuccessors(inst *Instruction) []int {
	switch inst.Op {
	case lir.OpJump:
		return []int{inst.Target}
	case lir.OpBranch, lir.OpBranchCompare:
		return []int{inst.Target, inst.Alt}
	case lir.OpInlineAssembly:
		site, ok := f.InlineAsmSite(inst.InlineAsmSite)
		if !ok {
			return nil
		}
		succs := make([]int, 0, len(site.JumpTargets)+1)
		for _, blockID := range site.JumpTargets {
			succs = append(succs, blockID)
		}
		if site.DefaultBlock >= 0 {
			succs = append(succs, site.DefaultBlock)
		}
		return succs
	default:
		// Return, IJump (indirect — resolved by a separate jump table,
		// not tracked as a static successor), and TailCall/
		// TailInvokeVirtual (the function exits) have no static
		// intra-function successor.
		return nil
	}
}

// AddLabel records a public label on b, used by inline-assembly jump
// targets (spec.md §3.2 "a set of public labels").
func (b *Block) AddLabel(name string) { b.Labels[name] = true }

// CreatePhi allocates a new φ-node on b (spec.md §3.2 "for each block a
// set of φ-nodes").
func (f *Function) CreatePhi(b *Block) *Phi {
	p := &Phi{Ref: f.NewValue(), Block: b.ID, Inputs: make(map[int]ValueRef)}
	b.Phis = append(b.Phis, p)
	return p
}

// AddInput records the φ-node's value for a given predecessor block
// (spec.md §3.2 "inputs: map block-id → value-ref").
func (p *Phi) AddInput(pred int, val ValueRef) error {
	if _, exists := p.Inputs[pred]; exists {
		return kerrors.New(kerrors.InvalidState, "ssa: phi already has an input for this predecessor")
	}
	p.Inputs[pred] = val
	return nil
}

// CreateCallSite allocates a new global call-site record (spec.md
// §3.2).
func (f *Function) CreateCallSite(callee string, virtual bool) *CallSite {
	cs := &CallSite{ID: len(f.callSites), Callee: callee, IsVirtual: virtual}
	f.callSites = append(f.callSites, cs)
	return cs
}

// CallSite returns the call-site record with the given id.
func (f *Function) CallSite(id int) (*CallSite, bool) {
	if id < 0 || id >= len(f.callSites) {
		return nil, false
	}
	return f.callSites[id], true
}

// SetArg fills call-site argument slot i, growing the slice as needed
// (spec.md §3.2's third named mutation: "filling in call-site argument
// slots").
func (cs *CallSite) SetArg(i int, val ValueRef) {
	for len(cs.Args) <= i {
		cs.Args = append(cs.Args, 0)
	}
	cs.Args[i] = val
}

// CreateInlineAsmSite allocates a new global inline-assembly-site
// record (spec.md §3.2).
func (f *Function) CreateInlineAsmSite() *InlineAsmSite {
	ias := &InlineAsmSite{ID: len(f.inlineAsmSites), JumpTargets: make(map[string]int), DefaultBlock: -1}
	f.inlineAsmSites = append(f.inlineAsmSites, ias)
	return ias
}

// InlineAsmSite returns the inline-assembly-site record with the given
// id.
func (f *Function) InlineAsmSite(id int) (*InlineAsmSite, bool) {
	if id < 0 || id >= len(f.inlineAsmSites) {
		return nil, false
	}
	return f.inlineAsmSites[id], true
}

// SetParam fills inline-assembly-site parameter slot i, growing the
// slice as needed.
func (ias *InlineAsmSite) SetParam(i int, val ValueRef) {
	for len(ias.Params) <= i {
		ias.Params = append(ias.Params, 0)
	}
	ias.Params[i] = val
}

// SetDefaultTarget records the inline-assembly site's fallthrough block
// (the block execution resumes in when no asm-goto label fires).
func (ias *InlineAsmSite) SetDefaultTarget(blockID int) { ias.DefaultBlock = blockID }

// AddJumpTarget records a goto-label's resolved block for an
// inline-assembly site (supplemented feature, SPEC_FULL.md §7: resolving
// asm-goto output labels to SSA blocks).
func (ias *InlineAsmSite) AddJumpTarget(label string, blockID int) {
	ias.JumpTargets[label] = blockID
}

// MoveInstructionAfter relocates inst within its own block's ordering
// to immediately follow after, the first of spec.md §3.2's three named
// post-creation mutations ("moving an instruction within a block's
// ordering"). The constructor in this package does not call it.
func (f *Function) MoveInstructionAfter(b *Block, inst, after *Instruction) error {
	idx := indexOf(b.Instructions, inst)
	afterIdx := indexOf(b.Instructions, after)
	if idx < 0 || afterIdx < 0 {
		return kerrors.New(kerrors.InvalidParameter, "ssa: instruction not found in block")
	}
	b.Instructions = append(b.Instructions[:idx], b.Instructions[idx+1:]...)
	if idx < afterIdx {
		afterIdx--
	}
	b.Instructions = append(b.Instructions[:afterIdx+1], append([]*Instruction{inst}, b.Instructions[afterIdx+1:]...)...)
	return nil
}

func indexOf(list []*Instruction, target *Instruction) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return -1
}
