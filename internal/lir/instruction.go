// SPDX-License-Identifier: Apache-2.0

// Package lir implements the linear stack-machine intermediate
// representation of spec.md §6.1: the handshake format between the IR
// emitter (out of scope — part of the AST translator) and the SSA
// constructor (internal/ssa). An instruction is an opcode plus a small
// payload; spec.md describes the payload as a packed union of machine
// words, a C memory-layout concern. In Go the equivalent is a tagged
// struct (spec.md §9 "Opcode dispatch is preferably a single match on
// the tag; the source's macro-expanded giant switch is an
// implementation tactic, not a design constraint") — fields unused by a
// given opcode are simply left zero.
//
// Width-parameterized opcodes (the IntNN_ADD/SUB/... family of spec.md
// §3.2) are represented as one opcode plus a Width field rather than
// one opcode constant per width, for the same reason.
package lir

import "fmt"

// Width is the operand width of an arithmetic, comparison, or
// conversion instruction.
type Width int

const (
	W8 Width = 8
	W16 Width = 16
	W32 Width = 32
	W64 Width = 64
	// WLongDouble and WComplex mark the long-double and complex
	// variants spec.md §3.2 calls out alongside the four integer
	// widths.
	WLongDouble Width = -1
	WComplex    Width = -2
)

// Signedness distinguishes the int/uint/float/double flavors of
// arithmetic and comparison sub-operations (spec.md §3.2 ScalarCompare).
type Signedness int

const (
	Signed Signedness = iota
	Unsigned
	FloatKind
	DoubleKind
)

// ArithOp enumerates the integer/bitwise arithmetic family
// (IntNN_ADD/SUB/MUL/DIV/MOD/AND/OR/XOR/LSHIFT/RSHIFT/ARSHIFT/
// BOOL_AND/BOOL_OR of spec.md §3.2).
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
	And
	Or
	Xor
	Lshift
	Rshift
	Arshift
	BoolAnd
	BoolOr
)

// UnaryOp enumerates NOT/NEG/BOOL_NOT/TO_BOOL.
type UnaryOp int

const (
	Not UnaryOp = iota
	Neg
	BoolNot
	ToBool
)

// CompareRelation enumerates equals/greater/lesser (signed) and
// above/below (unsigned), the relation half of ScalarCompare's K.
type CompareRelation int

const (
	Equals CompareRelation = iota
	Greater
	Lesser
	Above
	Below
)

// MemOrder is the atomic memory-order argument; spec.md §4.2 notes only
// SeqCst is currently mapped.
type MemOrder int

const SeqCst MemOrder = 0

// Opcode is the linear IR's instruction tag.
type Opcode int

const (
	OpIntConst Opcode = iota
	OpUIntConst
	OpFloat32Const
	OpFloat64Const
	OpLongDoubleConst
	OpStringRef
	OpBlockLabel
	OpPlaceholder

	OpVStackPick
	OpVStackPop
	OpVStackExchange

	OpArith
	OpUnary
	OpScalarCompare
	OpConvert

	OpLoad
	OpStore
	OpZeroMemory
	OpCopyMemory

	OpGetGlobal
	OpGetThreadLocal
	OpGetLocal
	OpAllocLocal

	OpBitsExtract
	OpBitsInsert

	OpPtrAdd

	OpVarargStart
	OpVarargEnd
	OpVarargGet
	OpVarargCopy

	OpStackAlloc
	OpScopePush
	OpScopePop
	OpLocalLifetimeMark

	OpAtomicLoad
	OpAtomicStore
	OpAtomicCmpxchg

	OpOverflowArith

	OpGetArgument

	OpSelect
	OpSelectCompare

	OpBranch
	OpBranchCompare
	OpJump
	OpIJump
	OpReturn

	OpCall
	OpTailCall
	OpVirtualCall
	OpTailVirtualCall

	OpInlineAssembly

	OpFenvSave
	OpFenvClear
	OpFenvUpdate
)

var opcodeNames = map[Opcode]string{
	OpIntConst: "IntConst", OpUIntConst: "UIntConst",
	OpFloat32Const: "Float32Const", OpFloat64Const: "Float64Const",
	OpLongDoubleConst: "LongDoubleConst", OpStringRef: "StringRef",
	OpBlockLabel: "BlockLabel", OpPlaceholder: "Placeholder",
	OpVStackPick: "VStackPick", OpVStackPop: "VStackPop", OpVStackExchange: "VStackExchange",
	OpArith: "Arith", OpUnary: "Unary", OpScalarCompare: "ScalarCompare", OpConvert: "Convert",
	OpLoad: "Load", OpStore: "Store", OpZeroMemory: "ZeroMemory", OpCopyMemory: "CopyMemory",
	OpGetGlobal: "GetGlobal", OpGetThreadLocal: "GetThreadLocal", OpGetLocal: "GetLocal", OpAllocLocal: "AllocLocal",
	OpBitsExtract: "BitsExtract", OpBitsInsert: "BitsInsert", OpPtrAdd: "PtrAdd",
	OpVarargStart: "VarargStart", OpVarargEnd: "VarargEnd", OpVarargGet: "VarargGet", OpVarargCopy: "VarargCopy",
	OpStackAlloc: "StackAlloc", OpScopePush: "ScopePush", OpScopePop: "ScopePop", OpLocalLifetimeMark: "LocalLifetimeMark",
	OpAtomicLoad: "AtomicLoad", OpAtomicStore: "AtomicStore", OpAtomicCmpxchg: "AtomicCmpxchg",
	OpOverflowArith: "OverflowArith", OpGetArgument: "GetArgument",
	OpSelect: "Select", OpSelectCompare: "SelectCompare",
	OpBranch: "Branch", OpBranchCompare: "BranchCompare", OpJump: "Jump", OpIJump: "IJump", OpReturn: "Return",
	OpCall: "Invoke", OpTailCall: "TailInvoke", OpVirtualCall: "InvokeVirtual", OpTailVirtualCall: "TailInvokeVirtual",
	OpInlineAssembly: "InlineAssembly",
	OpFenvSave:       "FenvSave", OpFenvClear: "FenvClear", OpFenvUpdate: "FenvUpdate",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(%d)", int(o))
}

// IsTerminator reports whether the opcode may end a block (spec.md §3.2
// "Terminator opcodes").
func (o Opcode) IsTerminator() bool {
	switch o {
	case OpJump, OpBranch, OpBranchCompare, OpIJump, OpReturn, OpTailCall, OpTailVirtualCall:
		return true
	default:
		return false
	}
}

// Instruction is one linear-IR instruction: an opcode and the payload
// fields it interprets (spec.md §6.1 "a small fixed payload").
type Instruction struct {
	Op Opcode

	Width  Width
	Sign   Signedness
	Arith  ArithOp
	Unary  UnaryOp
	Rel    CompareRelation
	Order  MemOrder

	IntVal   int64
	FloatVal float64
	Str      string

	// Target is the offset (index into the enclosing Block's
	// instruction list) a Jump/Branch/BranchCompare target label
	// resolves to, filled in once all labels in the block are known;
	// while that is pending, ParseListing keeps the label name in Str.
	// Offset is not read by ParseListing or the SSA constructor.
	Target int
	Offset int

	// FuncID names the callee declaration for Invoke/TailInvoke/
	// InvokeVirtual/TailInvokeVirtual (spec.md §3.2).
	FuncID string
	// Argc is the operand count an Invoke-family instruction pops
	// (the argument list, plus the callee value-ref for virtual
	// calls).
	Argc int
	// HasReturn marks whether the callee produces a value pushed back
	// onto the stack.
	HasReturn bool

	// InlineAsmID names the inline-assembly site this instruction
	// delegates to (spec.md §4.2 "InlineAssembly id").
	InlineAsmID string
}

func (i Instruction) String() string {
	switch i.Op {
	case OpIntConst, OpUIntConst:
		return fmt.Sprintf("%s %d", i.Op, i.IntVal)
	case OpFloat32Const, OpFloat64Const, OpLongDoubleConst:
		return fmt.Sprintf("%s %g", i.Op, i.FloatVal)
	case OpVStackPick, OpVStackExchange:
		return fmt.Sprintf("%s %d", i.Op, i.IntVal)
	case OpArith:
		return fmt.Sprintf("Int%d_%v", int(i.Width), i.Arith)
	case OpScalarCompare:
		return fmt.Sprintf("ScalarCompare %v/%v/%d", i.Sign, i.Rel, i.Width)
	case OpBranch, OpJump:
		return fmt.Sprintf("%s @%d", i.Op, i.Target)
	default:
		return i.Op.String()
	}
}
