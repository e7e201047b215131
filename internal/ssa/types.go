// SPDX-License-Identifier: Apache-2.0

// Package ssa implements the optimizer SSA container of spec.md §3.2/§4.3
// and the SSA constructor of spec.md §4.2: translating kefir/internal/lir's
// linear stack-machine IR into basic blocks with φ-nodes for values that
// cross block boundaries on the operand stack.
//
// Grounded on the teacher's internal/ir package (Function/BasicBlock/
// Value/Instruction/Terminator and the builder's symbolic-stack SSA
// construction), generalized from Kanso's EVM opcode set to kefir's
// opcode table, and on original_source/source/optimizer/constructor.c
// and headers/kefir/optimizer/constructor_internal.h for the three-pass
// algorithm and φ-equalization rule.
package ssa

import (
	"kefir/internal/debuginfo"
	"kefir/internal/lir"
)

// ValueRef is the dense, unique identity of an SSA instruction's
// result (spec.md §3.2 "Every instruction is identified by a unique
// value-ref").
type ValueRef int

// Instruction is one SSA-form instruction. It is immutable after
// creation except for the three mutations spec.md §3.2 names: moving it
// within a block's ordering, attaching φ inputs (tracked on Phi, not
// here), and filling in call-site argument slots (tracked on CallSite).
type Instruction struct {
	Ref   ValueRef
	Op    lir.Opcode
	Block int // owning block id

	Width lir.Width
	Sign  lir.Signedness
	Arith lir.ArithOp
	Unary lir.UnaryOp
	Rel   lir.CompareRelation
	Order lir.MemOrder

	IntVal   int64
	FloatVal float64
	Str      string

	Operands []ValueRef

	// Target/Alt name successor block ids for terminators: the taken
	// branch and, for Branch, the fallthrough alternative.
	Target int
	Alt    int

	// CallSite/InlineAsmSite index into the owning Function's global
	// call-site / inline-asm-site lists (spec.md §3.2); -1 means this
	// instruction has none (every opcode but the call family and
	// InlineAssembly).
	CallSite      int
	InlineAsmSite int
}

// IsTerminator reports whether this instruction's opcode alone decides
// block termination (spec.md §3.2 "Terminator opcodes"). InlineAssembly
// is the one opcode whose termination depends on its site's recorded
// jump targets rather than the opcode tag (spec.md §4.2 "InlineAsm
// (when it has jump targets)"); callers that need that distinction use
// Function.terminates, which has the site.
func (i *Instruction) IsTerminator() bool {
	if i.Op == lir.OpInlineAssembly {
		return false
	}
	return i.Op.IsTerminator()
}

// hasSideEffect reports whether the instruction belongs in a block's
// control-flow sub-list (spec.md §3.2: "the subset of instructions that
// have side effects / terminate control flow").
func (i *Instruction) hasSideEffect() bool {
	switch i.Op {
	case lir.OpStore, lir.OpZeroMemory, lir.OpCopyMemory, lir.OpScopePush, lir.OpScopePop,
		lir.OpLocalLifetimeMark, lir.OpAtomicStore, lir.OpAtomicCmpxchg, lir.OpCall, lir.OpTailCall,
		lir.OpVirtualCall, lir.OpTailVirtualCall, lir.OpInlineAssembly, lir.OpFenvSave, lir.OpFenvClear,
		lir.OpFenvUpdate, lir.OpVarargStart, lir.OpVarargCopy:
		return true
	default:
		return i.IsTerminator()
	}
}

// Phi is a φ-node: one per merge point per symbolic-stack slot that
// crosses a block boundary (spec.md §3.2 "for each block a set of
// φ-nodes (inputs: map block-id → value-ref)").
type Phi struct {
	Ref    ValueRef
	Block  int
	Inputs map[int]ValueRef
}

// CallSite is a global call-site record (spec.md §3.2).
type CallSite struct {
	ID           int
	Callee       string
	Args         []ValueRef
	ReturnBuf    ValueRef
	HasReturn    bool
	VirtualTarget ValueRef
	IsVirtual    bool
}

// InlineAsmSite is a global inline-assembly-site record (spec.md §3.2).
type InlineAsmSite struct {
	ID           int
	Params       []ValueRef
	JumpTargets  map[string]int // label -> block id
	DefaultBlock int
}

// Block is one SSA basic block: an ordered instruction list, a
// parallel control-flow sub-list, a set of public labels, and its
// φ-nodes (spec.md §3.2).
type Block struct {
	ID           int
	Instructions []*Instruction
	Control      []*Instruction
	Labels       map[string]bool
	Phis         []*Phi
	finalized    bool
	Preds        []int
	Succs        []int
}

// IsFinalized reports whether the block has a terminator (spec.md
// §4.3 "query finalization state of a block").
func (b *Block) IsFinalized() bool { return b.finalized }

// Function is one SSA-form function: its blocks, global call/inline-asm
// sites, and an opaque debug-info side table (spec.md §3.2).
type Function struct {
	Name           string
	blocks         []*Block
	callSites      []*CallSite
	inlineAsmSites []*InlineAsmSite
	Debug          *debuginfo.Table

	nextValue ValueRef
	nextPhi   int
}

// NewFunction returns an empty SSA function ready for block/instruction
// construction.
func NewFunction(name string) *Function {
	return &Function{Name: name, Debug: debuginfo.NewTable()}
}
