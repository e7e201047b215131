// SPDX-License-Identifier: Apache-2.0

package lir

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	kerrors "kefir/internal/errors"
)

var listingParser = participle.MustBuild[listing](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace", "Comment"),
)

// opSpec describes how an opcode's arguments map onto Instruction
// fields, keyed by the textual mnemonic used in listings.
type opSpec struct {
	op       Opcode
	build    func(inst *Instruction, args []*arg) error
}

var mnemonics = map[string]opSpec{
	"IntConst":       {OpIntConst, intArg},
	"UIntConst":      {OpUIntConst, intArg},
	"Float32Const":   {OpFloat32Const, floatArg},
	"Float64Const":   {OpFloat64Const, floatArg},
	"VStackPick":     {OpVStackPick, intArg},
	"VStackPop":      {OpVStackPop, noArg},
	"VStackExchange": {OpVStackExchange, intArg},
	"Branch":         {OpBranch, branchArg},
	"Jump":           {OpJump, jumpArg},
	"IJump":          {OpIJump, noArg},
	"Return":         {OpReturn, noArg},
	"ScalarCompare":  {OpScalarCompare, compareArg},
	"StackAlloc":     {OpStackAlloc, noArg},
	"ScopePush":      {OpScopePush, noArg},
	"ScopePop":       {OpScopePop, intArg},
}

func noArg(inst *Instruction, args []*arg) error { return nil }

func intArg(inst *Instruction, args []*arg) error {
	if len(args) != 1 || args[0].Int == nil {
		return fmt.Errorf("expected one integer argument")
	}
	inst.IntVal = *args[0].Int
	return nil
}

func floatArg(inst *Instruction, args []*arg) error {
	if len(args) != 1 {
		return fmt.Errorf("expected one float argument")
	}
	if args[0].Float != nil {
		inst.FloatVal = *args[0].Float
	} else if args[0].Int != nil {
		inst.FloatVal = float64(*args[0].Int)
	} else {
		return fmt.Errorf("expected a numeric argument")
	}
	return nil
}

func branchArg(inst *Instruction, args []*arg) error {
	if len(args) < 1 || !args[0].At || args[0].Ident == nil {
		return fmt.Errorf("Branch requires a @label target")
	}
	inst.Str = *args[0].Ident
	if len(args) > 1 && args[1].Int != nil {
		inst.Width = Width(*args[1].Int)
	} else {
		inst.Width = W64
	}
	return nil
}

func jumpArg(inst *Instruction, args []*arg) error {
	if len(args) != 1 || !args[0].At || args[0].Ident == nil {
		return fmt.Errorf("Jump requires a @label target")
	}
	inst.Str = *args[0].Ident
	return nil
}

func compareArg(inst *Instruction, args []*arg) error {
	if len(args) < 2 || args[0].Ident == nil || args[1].Int == nil {
		return fmt.Errorf("ScalarCompare requires <relation> <width>")
	}
	switch *args[0].Ident {
	case "int_equals":
		inst.Sign, inst.Rel = Signed, Equals
	case "int_greater":
		inst.Sign, inst.Rel = Signed, Greater
	case "int_lesser":
		inst.Sign, inst.Rel = Signed, Lesser
	case "uint_above":
		inst.Sign, inst.Rel = Unsigned, Above
	case "uint_below":
		inst.Sign, inst.Rel = Unsigned, Below
	default:
		return fmt.Errorf("unknown compare relation %q", *args[0].Ident)
	}
	inst.Width = Width(*args[1].Int)
	return nil
}

// ParseListing parses the textual linear-IR format into a Block. Labels
// named "label NAME:" may be referenced by name in Jump/Branch
// instructions (as "@NAME") regardless of definition order; forward
// references are resolved once the full listing is read, matching the
// fact that the real emitter's BlockLabel arguments are themselves
// forward-reference-safe instruction offsets (spec.md §4.2 pass 1).
func ParseListing(name, src string) (*Block, error) {
	ast, err := listingParser.ParseString(name, src)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.InvalidParameter, err, "failed to parse linear-IR listing "+name)
	}

	block := NewBlock(name)
	type pending struct {
		index int
		label string
	}
	var pendings []pending

	for _, ln := range ast.Lines {
		switch {
		case ln.Label != nil:
			block.AddLabel(ln.Label.Name, len(block.Instructions))
		case ln.Instr != nil:
			spec, ok := mnemonics[ln.Instr.Op]
			if !ok {
				return nil, kerrors.Newf(kerrors.InvalidState, "unrecognized opcode %q in listing %s", ln.Instr.Op, name)
			}
			inst := Instruction{Op: spec.op}
			if err := spec.build(&inst, ln.Instr.Args); err != nil {
				return nil, kerrors.Wrap(kerrors.InvalidParameter, err, "bad operand for "+ln.Instr.Op)
			}
			idx := block.Append(inst)
			if inst.Op == OpJump || inst.Op == OpBranch {
				pendings = append(pendings, pending{idx, inst.Str})
			}
		}
	}

	for _, p := range pendings {
		offset, ok := block.Labels[p.label]
		if !ok {
			return nil, kerrors.Newf(kerrors.InvalidState, "undefined label %q referenced in listing %s", p.label, name)
		}
		inst := block.Instructions[p.index]
		inst.Target = offset
		block.Instructions[p.index] = inst
	}

	return block, nil
}

// MustParseListing is ParseListing but panics on error, for embedding
// fixed test fixtures inline.
func MustParseListing(name, src string) *Block {
	b, err := ParseListing(name, src)
	if err != nil {
		panic(err)
	}
	return b
}
